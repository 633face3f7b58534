package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terabiome/stackbuilder/internal/node"
	"github.com/terabiome/stackbuilder/internal/provisioner"
	"github.com/terabiome/stackbuilder/pkg/constants"
	"github.com/terabiome/stackbuilder/pkg/executor"
	"github.com/terabiome/stackbuilder/pkg/logger"
)

func newNode(t *testing.T, id, scriptRoot string) *node.Node {
	t.Helper()
	log := logger.Discard()
	inv := provisioner.NewInvoker(
		executor.NewLocal(log, executor.WithDir(scriptRoot)),
		provisioner.Config{ScriptRoot: scriptRoot, Shell: "sh", TempDir: t.TempDir()},
		log,
	)
	n, err := node.New(node.Config{
		ID:     id,
		Kind:   constants.KIND_ORCHESTRATION_ENGINE,
		Domain: "example.org",
		Path:   id,
	}, node.Options{Invoker: inv}, log)
	require.NoError(t, err)
	return n
}

func TestRegisterAndGet(t *testing.T) {
	r := New(logger.Discard())
	n := newNode(t, "a", t.TempDir())

	require.NoError(t, r.Register(n))
	assert.Error(t, r.Register(n))

	got, err := r.Get("a")
	require.NoError(t, err)
	assert.Same(t, n, got)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListIsOrdered(t *testing.T) {
	r := New(logger.Discard())
	root := t.TempDir()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, r.Register(newNode(t, id, root)))
	}

	var ids []string
	for _, n := range r.List() {
		ids = append(ids, n.ID())
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestRemoveUninstalls(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, constants.UninstallScript), []byte("touch uninstalled"), 0o700))

	r := New(logger.Discard())
	require.NoError(t, r.Register(newNode(t, "a", root)))

	require.NoError(t, r.Remove(context.Background(), "a"))

	_, err := os.Stat(filepath.Join(root, "uninstalled"))
	assert.NoError(t, err)
	_, err = r.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, r.Remove(context.Background(), "a"), ErrNotFound)
}
