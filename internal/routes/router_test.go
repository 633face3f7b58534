package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/terabiome/stackbuilder/internal/handler"
	"github.com/terabiome/stackbuilder/internal/registry"
	"github.com/terabiome/stackbuilder/pkg/logger"
	"go.uber.org/atomic"
)

func newTestRouter(ready *atomic.Bool) *Router {
	log := logger.Discard()
	reg := registry.New(log)
	return SetupMux(Handlers{
		Node: handler.NewNode(reg, log),
		Info: handler.NewInfo(reg),
	}, ready, log)
}

func serve(r http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHeartbeat(t *testing.T) {
	rec := serve(newTestRouter(atomic.NewBool(true)), http.MethodGet, "/heartbeat")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "i have not exploded", rec.Body.String())
}

func TestReadiness(t *testing.T) {
	ready := atomic.NewBool(false)
	r := newTestRouter(ready)

	assert.Equal(t, http.StatusServiceUnavailable, serve(r, http.MethodGet, "/readyz").Code)
	ready.Store(true)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/readyz").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/livez").Code)
}

func TestMountedRoutes(t *testing.T) {
	r := newTestRouter(atomic.NewBool(true))

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/nodes").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/v1/nodes/nope").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/federated-catalogue/info/nope").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(r, http.MethodPut, "/api/v1/nodes/nope/deploy").Code)
}
