// Package preflight checks that a host can run the provisioning scripts of
// the configured nodes.
package preflight

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/terabiome/stackbuilder/internal/api"
	"github.com/terabiome/stackbuilder/internal/credentials"
	"github.com/terabiome/stackbuilder/pkg/constants"
	"github.com/terabiome/stackbuilder/pkg/executor"
)

// Target is a script directory used by one node.
type Target struct {
	Node      string
	ScriptDir string
}

type Checker struct {
	exec    executor.Executor
	shell   string
	tempDir string
	logger  *slog.Logger
}

func NewChecker(exec executor.Executor, shell, tempDir string, logger *slog.Logger) *Checker {
	return &Checker{
		exec:    exec,
		shell:   shell,
		tempDir: tempDir,
		logger:  logger.With(slog.String("component", "preflight")),
	}
}

// Run checks the shell, the temp dir and every script of every target. The
// scripts are only parsed, never executed.
func (c *Checker) Run(ctx context.Context, targets []Target) api.PreflightReport {
	var checks []api.PreflightCheck

	checks = append(checks, c.checkShell(ctx))
	checks = append(checks, c.checkTempDir())

	seen := make(map[string]bool)
	for _, t := range targets {
		for _, script := range []string{constants.InstallScript, constants.UninstallScript} {
			path := filepath.Join(t.ScriptDir, script)
			if seen[path] {
				continue
			}
			seen[path] = true
			checks = append(checks, c.checkScript(ctx, t.Node, path))
		}
	}

	report := api.PreflightReport{Checks: checks, Ready: true}
	for _, check := range checks {
		if !check.OK {
			report.Ready = false
			c.logger.Warn("preflight check failed",
				slog.String("check", check.Name),
				slog.String("target", check.Target),
				slog.String("detail", check.Detail),
			)
		}
	}
	return report
}

func (c *Checker) checkShell(ctx context.Context) api.PreflightCheck {
	check := api.PreflightCheck{Name: "shell", Target: c.shell}

	result, err := executor.RunAndCapture(ctx, c.exec, c.shell, "-c", "exit 0")
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	check.OK = result.Succeeded()
	if !check.OK {
		check.Detail = fmt.Sprintf("exited with code %d", result.ExitCode)
	}
	return check
}

func (c *Checker) checkTempDir() api.PreflightCheck {
	target := c.tempDir
	if target == "" {
		target = os.TempDir()
	}
	check := api.PreflightCheck{Name: "temp-dir", Target: target}

	staged, err := credentials.Materialize(c.tempDir, credentials.Blobs{KubeConfig: []byte{}})
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	if err := staged.Remove(); err != nil {
		check.Detail = err.Error()
		return check
	}
	check.OK = true
	return check
}

func (c *Checker) checkScript(ctx context.Context, node, path string) api.PreflightCheck {
	check := api.PreflightCheck{Name: "script", Target: path}

	if _, err := os.Stat(path); err != nil {
		check.Detail = fmt.Sprintf("%s: %v", node, err)
		return check
	}

	result, err := executor.RunAndCapture(ctx, c.exec, c.shell, "-n", path)
	if err != nil && result.ExitCode <= 0 {
		check.Detail = err.Error()
		return check
	}
	if !result.Succeeded() {
		check.Detail = strings.TrimSpace(result.Stderr)
		if check.Detail == "" {
			check.Detail = fmt.Sprintf("syntax check exited with code %d", result.ExitCode)
		}
		return check
	}

	check.OK = true
	return check
}
