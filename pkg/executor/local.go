package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const (
	redactedValue = "******"

	// waitDelay bounds how long a killed command may hold its output pipes,
	// e.g. through a grandchild that inherited them.
	waitDelay = 2 * time.Second
)

type Local struct {
	dir      string
	redacted map[string]struct{}
	logger   *slog.Logger
}

type Option func(*Local)

// WithDir sets the working directory of every spawned process.
func WithDir(dir string) Option {
	return func(e *Local) {
		e.dir = dir
	}
}

// WithRedacted masks the given argument values in logged command lines.
func WithRedacted(values ...string) Option {
	return func(e *Local) {
		for _, v := range values {
			if v != "" {
				e.redacted[v] = struct{}{}
			}
		}
	}
}

func NewLocal(logger *slog.Logger, opts ...Option) *Local {
	e := &Local{
		redacted: make(map[string]struct{}),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Local) Name() string {
	return "local-shell"
}

// Dir returns the working directory, empty for the caller's own.
func (e *Local) Dir() string {
	return e.dir
}

// Execute runs command with args passed as separate argv entries. No shell
// ever sees the argument values.
func (e *Local) Execute(
	ctx context.Context,
	stdout, stderr io.Writer,
	command string, args ...string,
) (int, error) {
	cmdStr := e.CommandString(command, args)
	e.logger.Debug("executing command locally", slog.String("cmd", cmdStr), slog.String("dir", e.dir))

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = e.dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	err := cmd.Run()

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
			exitCode := exitErr.ExitCode()
			e.logger.Warn("command failed",
				slog.String("cmd", cmdStr),
				slog.Int("exit_code", exitCode),
			)
			return exitCode, fmt.Errorf("command exited with code %d: %w", exitCode, err)
		}

		e.logger.Error("command execution error",
			slog.String("cmd", cmdStr),
			slog.String("error", err.Error()),
		)
		return -1, fmt.Errorf("command execution failed: %w", err)
	}

	e.logger.Debug("command succeeded", slog.String("cmd", cmdStr))
	return 0, nil
}

// CommandString renders the command line with every argument quoted as a
// single token and redacted values masked.
func (e *Local) CommandString(command string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, command)
	for _, arg := range args {
		if _, ok := e.redacted[arg]; ok {
			parts = append(parts, strconv.Quote(redactedValue))
			continue
		}
		parts = append(parts, strconv.Quote(arg))
	}
	return strings.Join(parts, " ")
}
