package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/terabiome/stackbuilder/internal/adapter"
	"github.com/terabiome/stackbuilder/internal/api"
	"github.com/terabiome/stackbuilder/internal/registry"
)

// Info serves the connection metadata of deployed catalogues. Responses are
// bare objects, not GenericResponse envelopes.
type Info struct {
	registry *registry.Registry
}

func NewInfo(registry *registry.Registry) *Info {
	return &Info{registry: registry}
}

// Get handles GET /federated-catalogue/info/{id}
func (h *Info) Get(writer http.ResponseWriter, request *http.Request) {
	n, err := h.registry.Get(chi.URLParam(request, "id"))
	if err != nil {
		writeJSON(writer, http.StatusNotFound, api.ErrorResponse{Error: "Node not found"})
		return
	}

	writeJSON(writer, http.StatusOK, adapter.AdaptInfo(n.Info()))
}
