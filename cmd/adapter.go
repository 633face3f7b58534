package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/terabiome/stackbuilder/internal/adapter"
	"github.com/terabiome/stackbuilder/internal/config"
	"github.com/terabiome/stackbuilder/internal/node"
	"github.com/terabiome/stackbuilder/internal/preflight"
	"github.com/terabiome/stackbuilder/internal/provisioner"
	"github.com/terabiome/stackbuilder/internal/registry"
	"github.com/terabiome/stackbuilder/pkg/executor"
	"github.com/terabiome/stackbuilder/pkg/httpclient"
)

// initNode builds one node with its own executor so that its passwords are
// masked in logged command lines.
func initNode(cfg *config.Config, nc config.NodeConfig, httpClient *http.Client, log *slog.Logger) (*node.Node, error) {
	nodeCfg := adapter.AdaptNodeConfig(nc)
	scriptDir := cfg.ScriptDirFor(nc)

	exec := executor.NewLocal(log,
		executor.WithDir(scriptDir),
		executor.WithRedacted(nodeCfg.Secrets()...),
	)

	invoker := provisioner.NewInvoker(exec, provisioner.Config{
		ScriptRoot: scriptDir,
		Shell:      cfg.Shell,
		TempDir:    cfg.TempDir,
		Timeout:    cfg.ProvisionTimeout,
	}, log)

	n, err := node.New(nodeCfg, node.Options{
		Invoker:            invoker,
		HTTPClient:         httpClient,
		TokenURLTemplate:   cfg.TokenURLTemplate,
		ServiceURLTemplate: cfg.ServiceURLTemplate,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize node %s: %w", nodeRef(nc), err)
	}
	return n, nil
}

// initRegistry builds and registers every configured node.
func initRegistry(cfg *config.Config, log *slog.Logger) (*registry.Registry, error) {
	httpClient := httpclient.New(cfg.InsecureSkipVerify, cfg.HTTPTimeout)
	reg := registry.New(log)

	for _, nc := range cfg.Nodes {
		n, err := initNode(cfg, nc, httpClient, log)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(n); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// lookupNode resolves a node by id or name and builds it.
func lookupNode(cfg *config.Config, ref string, log *slog.Logger) (*node.Node, error) {
	if ref == "" {
		return nil, fmt.Errorf("node id or name is required")
	}
	nc, ok := cfg.FindNode(ref)
	if !ok {
		return nil, fmt.Errorf("node %q is not configured", ref)
	}
	return initNode(cfg, nc, httpclient.New(cfg.InsecureSkipVerify, cfg.HTTPTimeout), log)
}

func preflightTargets(cfg *config.Config) []preflight.Target {
	targets := make([]preflight.Target, len(cfg.Nodes))
	for i, nc := range cfg.Nodes {
		targets[i] = preflight.Target{Node: nodeRef(nc), ScriptDir: cfg.ScriptDirFor(nc)}
	}
	return targets
}

func nodeRef(nc config.NodeConfig) string {
	switch {
	case nc.ID != "":
		return nc.ID
	case nc.Name != "":
		return nc.Name
	default:
		return nc.Domain + "/" + nc.Instance
	}
}
