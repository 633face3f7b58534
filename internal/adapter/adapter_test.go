package adapter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/terabiome/stackbuilder/internal/api"
	"github.com/terabiome/stackbuilder/internal/config"
	"github.com/terabiome/stackbuilder/internal/extractor"
	"github.com/terabiome/stackbuilder/internal/node"
	"github.com/terabiome/stackbuilder/internal/proxy"
	"github.com/terabiome/stackbuilder/pkg/constants"
)

func TestAdaptNodeConfig(t *testing.T) {
	got := AdaptNodeConfig(config.NodeConfig{
		ID:              "fc-1",
		Kind:            constants.KIND_FEDERATED_CATALOGUE,
		KubeConfig:      "kube",
		Domain:          "example.org",
		Instance:        "team",
		AdminUser:       "admin",
		AdminPassword:   "pw",
		ServiceUser:     "alice",
		ServicePassword: "alice-pw",
		DeploymentType:  "helm",
	})

	assert.Equal(t, node.Config{
		ID:              "fc-1",
		Kind:            constants.KIND_FEDERATED_CATALOGUE,
		KubeConfig:      "kube",
		Domain:          "example.org",
		Path:            "team",
		AdminUser:       "admin",
		AdminPassword:   "pw",
		DefaultUser:     "alice",
		DefaultPassword: "alice-pw",
		DeploymentType:  "helm",
	}, got)
}

func TestAdaptInput(t *testing.T) {
	msg := AdaptInput(api.InputRequest{
		Topic:        "/x",
		Payload:      json.RawMessage(`{}`),
		ClientSecret: "s",
		Username:     "u",
	})

	assert.True(t, msg.IsServiceCall())
	assert.Equal(t, "s", msg.ClientSecret)
	assert.Equal(t, "u", msg.Username)
	assert.Equal(t, json.RawMessage(`{}`), msg.Payload)
}

func TestAdaptOutput(t *testing.T) {
	assert.Nil(t, AdaptOutput(nil))

	deployed := AdaptOutput(&node.Output{Payload: extractor.Result{ClientSecret: "s3cr3t"}})
	assert.Equal(t, api.InfoResponse{ClientSecret: "s3cr3t"}, deployed.Payload)
	assert.Nil(t, deployed.Response)

	called := AdaptOutput(&node.Output{
		Topic:    "/x",
		Response: &proxy.Response{StatusCode: 404, Body: "missing"},
	})
	assert.Equal(t, &api.ServiceResponse{StatusCode: 404, Body: "missing"}, called.Response)
	assert.Equal(t, "/x", called.Topic)

	failed := AdaptOutput(&node.Output{Payload: "helm failed"})
	assert.Equal(t, "helm failed", failed.Payload)
}
