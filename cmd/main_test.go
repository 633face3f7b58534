package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terabiome/stackbuilder/internal/api"
	"github.com/terabiome/stackbuilder/internal/config"
)

func newNodesServer(t *testing.T, statuses []api.NodeStatus) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/nodes", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"body":    statuses,
			"message": "listed nodes successfully",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolveServerID_NameWithoutConfiguredID(t *testing.T) {
	srv := newNodesServer(t, []api.NodeStatus{
		{ID: "0b9f7c1e-aaaa-4bbb-8ccc-000000000001", Name: "fc-team"},
		{ID: "orce-1", Name: "orce"},
	})
	cfg := &config.Config{
		HTTPTimeout: 5 * time.Second,
		Nodes:       []config.NodeConfig{{Name: "fc-team", Kind: "federated-catalogue"}},
	}

	id, err := resolveServerID(context.Background(), cfg, srv.URL, "fc-team")

	require.NoError(t, err)
	assert.Equal(t, "0b9f7c1e-aaaa-4bbb-8ccc-000000000001", id)
}

func TestResolveServerID_ConfiguredIDSkipsLookup(t *testing.T) {
	cfg := &config.Config{
		HTTPTimeout: 5 * time.Second,
		Nodes:       []config.NodeConfig{{ID: "fc-1", Name: "fc-team", Kind: "federated-catalogue"}},
	}

	id, err := resolveServerID(context.Background(), cfg, "http://127.0.0.1:0", "fc-team")

	require.NoError(t, err)
	assert.Equal(t, "fc-1", id)
}

func TestMatchNode(t *testing.T) {
	statuses := []api.NodeStatus{
		{ID: "a", Name: "b"},
		{ID: "b", Name: "c"},
	}

	assert.Equal(t, "b", matchNode(statuses, "b"))
	assert.Equal(t, "b", matchNode(statuses, "c"))
	assert.Equal(t, "missing", matchNode(statuses, "missing"))
	assert.Equal(t, "", matchNode(nil, ""))
}
