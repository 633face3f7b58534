package routes

import (
	"log/slog"
	"net/http"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/terabiome/stackbuilder/internal/handler"
	"go.uber.org/atomic"
)

// Handlers groups the handlers mounted by the router
type Handlers struct {
	Node      *handler.Node
	Info      *handler.Info
	Preflight *handler.Preflight
}

// Router wraps chi.Mux and provides route setup
type Router struct {
	*chi.Mux

	ready  *atomic.Bool
	logger *slog.Logger
}

// V1Handler returns a handler for v1 API routes
func (router *Router) V1Handler(h Handlers) http.Handler {
	mux := chi.NewRouter()

	mux.Route("/nodes", func(r chi.Router) {
		r.Get("/", h.Node.List)
		r.Get("/{id}", h.Node.Get)
		r.Delete("/{id}", h.Node.Remove)
		r.Post("/{id}/input", h.Node.Input)
		r.Post("/{id}/deploy", h.Node.Deploy)
		r.Post("/{id}/uninstall", h.Node.Uninstall)
	})

	if h.Preflight != nil {
		mux.Get("/system/preflight", h.Preflight.Check)
	}

	return mux
}

// SetupMux creates and configures the main router. ready gates /readyz.
func SetupMux(h Handlers, ready *atomic.Bool, logger *slog.Logger) *Router {
	router := Router{Mux: chi.NewRouter(), ready: ready, logger: logger}

	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(router.httpLogger)

	router.Mount("/api/v1", router.V1Handler(h))
	router.Get("/federated-catalogue/info/{id}", h.Info.Get)

	router.Get("/heartbeat", func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(200)
		writer.Write([]byte("i have not exploded"))
	})
	router.Get("/livez", func(writer http.ResponseWriter, request *http.Request) {
		writeStatus(writer, http.StatusOK, "alive")
	})
	router.Get("/readyz", router.readiness)

	return &router
}

func (router *Router) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(router.logger, next)
}

func (router *Router) readiness(writer http.ResponseWriter, request *http.Request) {
	if router.ready != nil && !router.ready.Load() {
		writeStatus(writer, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeStatus(writer, http.StatusOK, "ready")
}

func writeStatus(writer http.ResponseWriter, statusCode int, status string) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(statusCode)
	writer.Write([]byte(`{"status":"` + status + `"}`))
}
