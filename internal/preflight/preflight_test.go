package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terabiome/stackbuilder/pkg/executor"
	"github.com/terabiome/stackbuilder/pkg/logger"
)

func newChecker(t *testing.T, shell string) *Checker {
	t.Helper()
	log := logger.Discard()
	return NewChecker(executor.NewLocal(log), shell, t.TempDir(), log)
}

func TestRun_Ready(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deploy.sh"), []byte("echo deploy\n"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "uninstall.sh"), []byte("echo uninstall\n"), 0o700))

	report := newChecker(t, "sh").Run(context.Background(), []Target{
		{Node: "a", ScriptDir: dir},
		{Node: "b", ScriptDir: dir},
	})

	assert.True(t, report.Ready)
	// shell, temp dir and each script once
	assert.Len(t, report.Checks, 4)
}

func TestRun_MissingAndBrokenScripts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deploy.sh"), []byte("if then fi (\n"), 0o700))

	report := newChecker(t, "sh").Run(context.Background(), []Target{{Node: "a", ScriptDir: dir}})

	assert.False(t, report.Ready)
	byTarget := map[string]bool{}
	for _, c := range report.Checks {
		byTarget[c.Target] = c.OK
	}
	assert.False(t, byTarget[filepath.Join(dir, "deploy.sh")])
	assert.False(t, byTarget[filepath.Join(dir, "uninstall.sh")])
}

func TestRun_UnknownShell(t *testing.T) {
	report := newChecker(t, "definitely-not-a-shell").Run(context.Background(), nil)

	assert.False(t, report.Ready)
	assert.Equal(t, "shell", report.Checks[0].Name)
	assert.False(t, report.Checks[0].OK)
	assert.True(t, report.Checks[1].OK)
}
