package node

import (
	"errors"
	"fmt"

	"github.com/terabiome/stackbuilder/internal/credentials"
	"github.com/terabiome/stackbuilder/pkg/constants"
)

// Config is the deployment configuration of one node. Credential content is
// opaque and never validated.
type Config struct {
	ID   string
	Name string
	Kind constants.NodeKind

	KubeConfig  string
	PrivateKey  string
	Certificate string

	Domain string
	// Path is the instance path segment the stack is served under.
	Path string

	AdminUser     string
	AdminPassword string

	// ClientID, DefaultUser and DefaultPassword only apply to kinds that
	// proxy service calls.
	ClientID        string
	DefaultUser     string
	DefaultPassword string

	// Recorded for orchestration engines, not passed to the scripts.
	DeploymentType     string
	DeploymentPathType string
}

// Validate checks what URLs and script arguments are built from.
func (c Config) Validate() error {
	if _, ok := profiles[c.Kind]; !ok {
		return fmt.Errorf("unsupported node kind %q", c.Kind)
	}
	if c.Domain == "" {
		return errors.New("domain is required")
	}
	if c.Path == "" {
		return errors.New("instance path is required")
	}
	return nil
}

// Secrets returns the configured values that must never be logged.
func (c Config) Secrets() []string {
	return []string{c.AdminPassword, c.DefaultPassword}
}

func (c Config) installBlobs() credentials.Blobs {
	return credentials.Blobs{
		KubeConfig:  []byte(c.KubeConfig),
		PrivateKey:  []byte(c.PrivateKey),
		Certificate: []byte(c.Certificate),
	}
}

func (c Config) uninstallBlobs() credentials.Blobs {
	return credentials.Blobs{KubeConfig: []byte(c.KubeConfig)}
}

// profile captures how a node kind talks to its scripts.
type profile struct {
	installArgs   func(c Config, s *credentials.Set) []string
	uninstallArgs func(c Config, s *credentials.Set) []string
	// extracts reports whether deploy output carries connection metadata.
	extracts bool
	// serviceCalls reports whether a topic routes input to the service proxy.
	serviceCalls bool
}

var profiles = map[constants.NodeKind]profile{
	constants.KIND_FEDERATED_CATALOGUE: {
		installArgs: func(c Config, s *credentials.Set) []string {
			return []string{
				s.KubeConfig, s.PrivateKey, s.Certificate,
				c.Domain, c.Path,
				c.AdminUser, c.AdminPassword,
				c.DefaultUser, c.DefaultPassword,
			}
		},
		uninstallArgs: func(c Config, s *credentials.Set) []string {
			return []string{s.KubeConfig, c.Path}
		},
		extracts:     true,
		serviceCalls: true,
	},
	constants.KIND_ORCHESTRATION_ENGINE: {
		installArgs: func(c Config, s *credentials.Set) []string {
			return []string{
				c.Path, s.KubeConfig,
				c.Domain,
				s.Certificate, s.PrivateKey,
				c.AdminUser, c.AdminPassword,
			}
		},
		uninstallArgs: func(c Config, s *credentials.Set) []string {
			return []string{c.Path, s.KubeConfig}
		},
	},
}

// Kinds lists the supported node kinds.
func Kinds() []constants.NodeKind {
	return []constants.NodeKind{
		constants.KIND_FEDERATED_CATALOGUE,
		constants.KIND_ORCHESTRATION_ENGINE,
	}
}
