package executor

import (
	"context"
	"io"
)

type Executor interface {
	Execute(ctx context.Context, stdout, stderr io.Writer, command string, args ...string) (exitCode int, err error)
	Name() string
}

type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Error    error
}

// Succeeded reports whether the command ran and exited with code zero.
func (r *Result) Succeeded() bool {
	return r.Error == nil && r.ExitCode == 0
}
