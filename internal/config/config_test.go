package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terabiome/stackbuilder/pkg/constants"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, ":8080", cfg.ListenAddress)
	assert.Equal(t, "bash", cfg.Shell)
	assert.Zero(t, cfg.ProvisionTimeout)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.False(t, cfg.InsecureSkipVerify)
	assert.True(t, filepath.IsAbs(cfg.ScriptRoot))
	assert.Equal(t, constants.DefaultTokenURLTemplate, cfg.TokenURLTemplate)
	assert.Empty(t, cfg.Nodes)
}

func TestLoad_FileAndNodes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "kube.yaml", "apiVersion: v1\n")
	path := writeFile(t, dir, "stackbuilder.yaml", `
log_level: debug
provision_timeout: 10m
script_root: /opt/esb
nodes:
  - id: fc-1
    name: catalogue
    kind: federated-catalogue
    kubeconfig_file: kube.yaml
    private_key: KEY
    certificate: CERT
    domain: example.org
    instance: team
    admin_user: admin
    admin_password: secret
    service_user: alice
    service_password: alice-pass
  - id: orce-1
    kind: orchestration-engine
    domain: example.org
    instance: orce
    deployment_type: helm
    script_dir: custom
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 10*time.Minute, cfg.ProvisionTimeout)
	require.Len(t, cfg.Nodes, 2)

	fc := cfg.Nodes[0]
	assert.Equal(t, constants.KIND_FEDERATED_CATALOGUE, fc.Kind)
	assert.Equal(t, "apiVersion: v1\n", fc.KubeConfig)
	assert.Equal(t, "KEY", fc.PrivateKey)
	assert.Equal(t, "team", fc.Instance)
	assert.Equal(t, "alice", fc.ServiceUser)
	assert.Equal(t, "/opt/esb/federated-catalogue", cfg.ScriptDirFor(fc))

	orce := cfg.Nodes[1]
	assert.Equal(t, "helm", orce.DeploymentType)
	assert.Equal(t, "/opt/esb/custom", cfg.ScriptDirFor(orce))

	found, ok := cfg.FindNode("catalogue")
	require.True(t, ok)
	assert.Equal(t, "fc-1", found.ID)
	_, ok = cfg.FindNode("nope")
	assert.False(t, ok)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STACKBUILDER_LOG_FORMAT", "json")
	t.Setenv("STACKBUILDER_INSECURE_SKIP_VERIFY", "true")
	t.Setenv("STACKBUILDER_HTTP_TIMEOUT", "5s")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.InsecureSkipVerify)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
}

func TestLoad_InlineAndFileConflict(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "kube.yaml", "x")
	path := writeFile(t, dir, "c.yaml", `
nodes:
  - kind: federated-catalogue
    domain: d
    instance: i
    kubeconfig: inline
    kubeconfig_file: kube.yaml
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "mutually exclusive")
}

func TestLoad_MissingCredentialFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "c.yaml", `
nodes:
  - kind: federated-catalogue
    domain: d
    instance: i
    certificate_file: missing.crt
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "certificate_file")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{LogLevel: "info", LogFormat: "text", Shell: "bash"}
	}

	assert.NoError(t, valid().Validate())

	c := valid()
	c.LogLevel = "trace"
	assert.Error(t, c.Validate())

	c = valid()
	c.LogFormat = "xml"
	assert.Error(t, c.Validate())

	c = valid()
	c.Shell = ""
	assert.Error(t, c.Validate())

	c = valid()
	c.ProvisionTimeout = -time.Second
	assert.Error(t, c.Validate())

	c = valid()
	c.Nodes = []NodeConfig{{Kind: "k3s", Domain: "d", Instance: "i"}}
	assert.ErrorContains(t, c.Validate(), "invalid kind")

	c = valid()
	c.Nodes = []NodeConfig{{Kind: constants.KIND_ORCHESTRATION_ENGINE, Instance: "i"}}
	assert.ErrorContains(t, c.Validate(), "domain")

	c = valid()
	c.Nodes = []NodeConfig{
		{ID: "a", Kind: constants.KIND_ORCHESTRATION_ENGINE, Domain: "d", Instance: "i"},
		{ID: "a", Kind: constants.KIND_FEDERATED_CATALOGUE, Domain: "d", Instance: "j"},
	}
	assert.ErrorContains(t, c.Validate(), "duplicate id")
}
