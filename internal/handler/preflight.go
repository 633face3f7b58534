package handler

import (
	"log/slog"
	"net/http"

	"github.com/terabiome/stackbuilder/internal/preflight"
)

// Preflight reports whether this host can run the configured scripts
type Preflight struct {
	checker *preflight.Checker
	targets []preflight.Target
	logger  *slog.Logger
}

func NewPreflight(checker *preflight.Checker, targets []preflight.Target, logger *slog.Logger) *Preflight {
	return &Preflight{
		checker: checker,
		targets: targets,
		logger:  logger,
	}
}

// Check handles GET /system/preflight
func (h *Preflight) Check(writer http.ResponseWriter, request *http.Request) {
	report := h.checker.Run(request.Context(), h.targets)
	h.logger.Debug("preflight finished", slog.Bool("ready", report.Ready), slog.Int("checks", len(report.Checks)))

	if !report.Ready {
		writeResult(writer, http.StatusServiceUnavailable, GenericResponse{
			Body:    report,
			Message: "host is not ready to provision",
		})
		return
	}

	writeResult(writer, http.StatusOK, GenericResponse{
		Body:    report,
		Message: "host is ready to provision",
	})
}
