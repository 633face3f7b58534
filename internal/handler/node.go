package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/terabiome/stackbuilder/internal/adapter"
	"github.com/terabiome/stackbuilder/internal/api"
	"github.com/terabiome/stackbuilder/internal/node"
	"github.com/terabiome/stackbuilder/internal/registry"
)

// Node handles node lifecycle and input requests
type Node struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// NewNode creates a new Node handler
func NewNode(registry *registry.Registry, logger *slog.Logger) *Node {
	return &Node{
		registry: registry,
		logger:   logger,
	}
}

// lookup resolves the {id} path parameter and answers 404 when unknown.
func (h *Node) lookup(writer http.ResponseWriter, request *http.Request) (*node.Node, bool) {
	n, err := h.registry.Get(chi.URLParam(request, "id"))
	if err != nil {
		writeResult(writer, http.StatusNotFound, GenericResponse{
			Body:    nil,
			Message: "node not found",
			Error:   err.Error(),
		})
		return nil, false
	}
	return n, true
}

// detached keeps the request values but not its cancellation: a script that
// has started runs to completion or provision_timeout even if the client goes
// away.
func detached(request *http.Request) context.Context {
	return context.WithoutCancel(request.Context())
}

// List handles GET /nodes
func (h *Node) List(writer http.ResponseWriter, request *http.Request) {
	writeResult(writer, http.StatusOK, GenericResponse{
		Body:    adapter.AdaptStatuses(h.registry.List()),
		Message: "listed nodes successfully",
	})
}

// Get handles GET /nodes/{id}
func (h *Node) Get(writer http.ResponseWriter, request *http.Request) {
	n, ok := h.lookup(writer, request)
	if !ok {
		return
	}

	writeResult(writer, http.StatusOK, GenericResponse{
		Body:    adapter.AdaptStatus(n),
		Message: "retrieved node successfully",
	})
}

// Input handles POST /nodes/{id}/input. A topic makes a service call, an
// empty body or blank topic deploys.
func (h *Node) Input(writer http.ResponseWriter, request *http.Request) {
	n, ok := h.lookup(writer, request)
	if !ok {
		return
	}

	var input api.InputRequest
	cb, err := parseBodyAndHandleError(writer, request, &input, false)
	if err != nil {
		cb()
		return
	}

	out, err := n.Handle(detached(request), adapter.AdaptInput(input))
	if err != nil {
		message := "deploy failed"
		if input.Topic != "" && n.SupportsServiceCalls() {
			message = "service call failed"
		}
		h.logger.Error(message, slog.String("node", n.ID()), slog.String("error", err.Error()))
		writeResult(writer, statusForError(err), GenericResponse{
			Body:    adapter.AdaptOutput(out),
			Message: message,
			Error:   err.Error(),
		})
		return
	}

	writeResult(writer, http.StatusOK, GenericResponse{
		Body:    adapter.AdaptOutput(out),
		Message: "processed input successfully",
	})
}

// Deploy handles POST /nodes/{id}/deploy
func (h *Node) Deploy(writer http.ResponseWriter, request *http.Request) {
	n, ok := h.lookup(writer, request)
	if !ok {
		return
	}

	out, err := n.Deploy(detached(request))
	if err != nil {
		writeResult(writer, statusForError(err), GenericResponse{
			Body:    adapter.AdaptOutput(out),
			Message: "deploy failed",
			Error:   err.Error(),
		})
		return
	}

	writeResult(writer, http.StatusOK, GenericResponse{
		Body:    adapter.AdaptOutput(out),
		Message: "deployed stack successfully",
	})
}

// Uninstall handles POST /nodes/{id}/uninstall. The node stays registered.
func (h *Node) Uninstall(writer http.ResponseWriter, request *http.Request) {
	n, ok := h.lookup(writer, request)
	if !ok {
		return
	}

	if err := n.Uninstall(detached(request)); err != nil {
		writeResult(writer, statusForError(err), GenericResponse{
			Body:    nil,
			Message: "uninstall failed",
			Error:   err.Error(),
		})
		return
	}

	writeResult(writer, http.StatusOK, GenericResponse{
		Body:    adapter.AdaptStatus(n),
		Message: "uninstalled stack successfully",
	})
}

// Remove handles DELETE /nodes/{id}: the stack is uninstalled and the node
// unregistered. Uninstall failures are logged by the node only.
func (h *Node) Remove(writer http.ResponseWriter, request *http.Request) {
	id := chi.URLParam(request, "id")
	if err := h.registry.Remove(detached(request), id); err != nil {
		writeResult(writer, statusForError(err), GenericResponse{
			Body:    nil,
			Message: "failed to remove node",
			Error:   err.Error(),
		})
		return
	}

	writeResult(writer, http.StatusOK, GenericResponse{
		Body:    map[string]string{"id": id},
		Message: "removed node successfully",
	})
}
