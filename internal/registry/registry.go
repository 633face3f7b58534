// Package registry keeps the nodes served by one host, keyed by id.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/terabiome/stackbuilder/internal/node"
)

var ErrNotFound = errors.New("node not found")

type Registry struct {
	mu     sync.RWMutex
	nodes  map[string]*node.Node
	logger *slog.Logger
}

func New(logger *slog.Logger) *Registry {
	return &Registry{
		nodes:  make(map[string]*node.Node),
		logger: logger.With(slog.String("component", "registry")),
	}
}

// Register adds n. Ids must be unique.
func (r *Registry) Register(n *node.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[n.ID()]; exists {
		return fmt.Errorf("node %s already registered", n.ID())
	}
	r.nodes[n.ID()] = n

	r.logger.Info("node registered", slog.String("node", n.ID()), slog.String("kind", string(n.Kind())))
	return nil
}

func (r *Registry) Get(id string) (*node.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return n, nil
}

// List returns every node ordered by id.
func (r *Registry) List() []*node.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	nodes := make([]*node.Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].ID() < nodes[j].ID()
	})
	return nodes
}

// Remove unregisters the node and closes it as removed, which uninstalls its
// stack.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	n, ok := r.nodes[id]
	if ok {
		delete(r.nodes, id)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	n.Close(ctx, true)
	r.logger.Info("node removed", slog.String("node", id))
	return nil
}

// Close closes every node without uninstalling.
func (r *Registry) Close(ctx context.Context) {
	for _, n := range r.List() {
		n.Close(ctx, false)
	}
}
