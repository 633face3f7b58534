package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/viper"
	"github.com/terabiome/stackbuilder/internal/node"
	"github.com/terabiome/stackbuilder/pkg/constants"
)

type Config struct {
	LogLevel         string
	LogFormat        string
	ListenAddress    string
	TelemetryEnabled bool

	// ScriptRoot holds one script directory per node kind.
	ScriptRoot       string
	Shell            string
	TempDir          string
	ProvisionTimeout time.Duration

	HTTPTimeout        time.Duration
	InsecureSkipVerify bool
	TokenURLTemplate   string
	ServiceURLTemplate string

	Nodes []NodeConfig
}

// NodeConfig is one configured node. Credential content is given inline or
// read from the matching *_file path at load time.
type NodeConfig struct {
	ID   string             `mapstructure:"id"`
	Name string             `mapstructure:"name"`
	Kind constants.NodeKind `mapstructure:"kind"`

	KubeConfig      string `mapstructure:"kubeconfig"`
	KubeConfigFile  string `mapstructure:"kubeconfig_file"`
	PrivateKey      string `mapstructure:"private_key"`
	PrivateKeyFile  string `mapstructure:"private_key_file"`
	Certificate     string `mapstructure:"certificate"`
	CertificateFile string `mapstructure:"certificate_file"`

	Domain   string `mapstructure:"domain"`
	Instance string `mapstructure:"instance"`

	AdminUser     string `mapstructure:"admin_user"`
	AdminPassword string `mapstructure:"admin_password"`

	ClientID        string `mapstructure:"client_id"`
	ServiceUser     string `mapstructure:"service_user"`
	ServicePassword string `mapstructure:"service_password"`

	DeploymentType     string `mapstructure:"deployment_type"`
	DeploymentPathType string `mapstructure:"deployment_path_type"`

	// ScriptDir overrides <script_root>/<kind>.
	ScriptDir string `mapstructure:"script_dir"`
}

// Load reads defaults, the optional config file and STACKBUILDER_* env vars.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("listen_address", ":8080")
	v.SetDefault("telemetry_enabled", false)
	v.SetDefault("script_root", "./scripts")
	v.SetDefault("shell", "bash")
	v.SetDefault("temp_dir", "")
	v.SetDefault("provision_timeout", time.Duration(0))
	v.SetDefault("http_timeout", 30*time.Second)
	v.SetDefault("insecure_skip_verify", false)
	v.SetDefault("token_url_template", constants.DefaultTokenURLTemplate)
	v.SetDefault("service_url_template", constants.DefaultServiceURLTemplate)

	v.SetEnvPrefix("stackbuilder")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		LogLevel:           v.GetString("log_level"),
		LogFormat:          v.GetString("log_format"),
		ListenAddress:      v.GetString("listen_address"),
		TelemetryEnabled:   v.GetBool("telemetry_enabled"),
		ScriptRoot:         v.GetString("script_root"),
		Shell:              v.GetString("shell"),
		TempDir:            v.GetString("temp_dir"),
		ProvisionTimeout:   v.GetDuration("provision_timeout"),
		HTTPTimeout:        v.GetDuration("http_timeout"),
		InsecureSkipVerify: v.GetBool("insecure_skip_verify"),
		TokenURLTemplate:   v.GetString("token_url_template"),
		ServiceURLTemplate: v.GetString("service_url_template"),
	}

	if err := v.UnmarshalKey("nodes", &cfg.Nodes); err != nil {
		return nil, fmt.Errorf("failed to decode nodes: %w", err)
	}

	if abs, err := filepath.Abs(cfg.ScriptRoot); err == nil {
		cfg.ScriptRoot = abs
	}

	base := ""
	if path != "" {
		base = filepath.Dir(path)
	}
	for i := range cfg.Nodes {
		if err := cfg.Nodes[i].loadFiles(base); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.LogLevel)
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format: %s (valid: text, json)", c.LogFormat)
	}

	if c.Shell == "" {
		return errors.New("shell must not be empty")
	}

	if c.ProvisionTimeout < 0 {
		return fmt.Errorf("invalid provision timeout: %s", c.ProvisionTimeout)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("invalid http timeout: %s", c.HTTPTimeout)
	}

	seen := make(map[string]bool)
	for i, n := range c.Nodes {
		if !slices.Contains(node.Kinds(), n.Kind) {
			return fmt.Errorf("node %d: invalid kind %q (valid: %s, %s)", i, n.Kind,
				constants.KIND_FEDERATED_CATALOGUE, constants.KIND_ORCHESTRATION_ENGINE)
		}
		if n.Domain == "" {
			return fmt.Errorf("node %d: domain is required", i)
		}
		if n.Instance == "" {
			return fmt.Errorf("node %d: instance is required", i)
		}
		if n.ID == "" {
			continue
		}
		if seen[n.ID] {
			return fmt.Errorf("node %d: duplicate id %s", i, n.ID)
		}
		seen[n.ID] = true
	}

	return nil
}

// ScriptDirFor returns the script directory of a node.
func (c *Config) ScriptDirFor(n NodeConfig) string {
	if n.ScriptDir != "" {
		if filepath.IsAbs(n.ScriptDir) {
			return n.ScriptDir
		}
		return filepath.Join(c.ScriptRoot, n.ScriptDir)
	}
	return filepath.Join(c.ScriptRoot, string(n.Kind))
}

// FindNode returns the configured node with the given id or name.
func (c *Config) FindNode(ref string) (NodeConfig, bool) {
	for _, n := range c.Nodes {
		if n.ID == ref || (n.Name != "" && n.Name == ref) {
			return n, true
		}
	}
	return NodeConfig{}, false
}

func (n *NodeConfig) loadFiles(base string) error {
	files := []struct {
		label  string
		inline *string
		file   string
	}{
		{"kubeconfig", &n.KubeConfig, n.KubeConfigFile},
		{"private_key", &n.PrivateKey, n.PrivateKeyFile},
		{"certificate", &n.Certificate, n.CertificateFile},
	}

	for _, f := range files {
		if f.file == "" {
			continue
		}
		if *f.inline != "" {
			return fmt.Errorf("%s and %s_file are mutually exclusive", f.label, f.label)
		}
		path := f.file
		if !filepath.IsAbs(path) && base != "" {
			path = filepath.Join(base, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s_file: %w", f.label, err)
		}
		*f.inline = string(data)
	}
	return nil
}
