package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/terabiome/stackbuilder/internal/auth"
	"github.com/terabiome/stackbuilder/internal/credentials"
	"github.com/terabiome/stackbuilder/internal/node"
	"github.com/terabiome/stackbuilder/internal/provisioner"
	"github.com/terabiome/stackbuilder/internal/registry"
)

// GenericResponse is a standard API response structure
type GenericResponse struct {
	Body    any    `json:"body,omitempty"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// responseCallback is a function type for error handling callbacks
type responseCallback func()

// parseBodyAndHandleError parses the request body and handles errors. An
// empty body is accepted unless requireBody is set.
func parseBodyAndHandleError(writer http.ResponseWriter, request *http.Request, target any, requireBody bool) (responseCallback, error) {
	err := json.NewDecoder(request.Body).Decode(target)
	if errors.Is(err, io.EOF) && !requireBody {
		err = nil
	}
	if err != nil {
		writeResult(writer, http.StatusBadRequest, GenericResponse{
			Body:    nil,
			Message: "invalid request body",
			Error:   err.Error(),
		})
		return func() {}, err
	}
	return func() {}, nil
}

// writeResult writes a JSON response with the given status code
func writeResult(writer http.ResponseWriter, statusCode int, response GenericResponse) {
	writeJSON(writer, statusCode, response)
}

func writeJSON(writer http.ResponseWriter, statusCode int, v any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(statusCode)
	json.NewEncoder(writer).Encode(v)
}

// statusForError maps domain errors to HTTP status codes.
func statusForError(err error) int {
	var (
		fileErr *credentials.FileWriteError
		failure *provisioner.DeploymentFailure
		authErr *auth.AuthError
	)

	switch {
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, node.ErrOperationInProgress):
		return http.StatusConflict
	case errors.Is(err, node.ErrServiceCallsUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrMissingSecret):
		return http.StatusPreconditionFailed
	case errors.As(err, &fileErr):
		return http.StatusInternalServerError
	case errors.As(err, &failure):
		return http.StatusBadGateway
	case errors.As(err, &authErr):
		if authErr.StatusCode == http.StatusBadRequest || authErr.StatusCode == http.StatusUnauthorized {
			return http.StatusUnauthorized
		}
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
