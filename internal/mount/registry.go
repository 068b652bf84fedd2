package mount

import (
	"context"
	"sort"
	"sync"

	"github.com/objectfs/mountfs/internal/config"
	"github.com/objectfs/mountfs/pkg/errors"
	"github.com/objectfs/mountfs/pkg/vpath"
)

// Registry holds at most one Manager per namespace, created on first use
// from the namespace properties.
type Registry struct {
	props config.Properties
	deps  Dependencies

	mu       sync.Mutex
	managers map[string]*Manager
	closed   bool
}

// NewRegistry creates a registry configuring managers from props.
func NewRegistry(props config.Properties, deps Dependencies) *Registry {
	return &Registry{
		props:    props,
		deps:     deps,
		managers: make(map[string]*Manager),
	}
}

// Manager returns the manager of the namespace p belongs to.
func (r *Registry) Manager(ctx context.Context, p vpath.Path) (*Manager, error) {
	root := p.Namespace()
	prefix := config.NamespacePrefix(root)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errors.NewError(errors.ErrCodeComponentStopped, "mount registry is closed").
			WithComponent("mount")
	}
	if m, ok := r.managers[prefix]; ok {
		return m, nil
	}

	ns, err := config.NamespaceFromProperties(r.props, prefix)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidConfig, "namespace "+prefix+" is not configured").
			WithComponent("mount").
			WithDetail("namespace", prefix)
	}
	m, err := NewManager(ctx, root, ns, r.deps)
	if err != nil {
		return nil, err
	}
	r.managers[prefix] = m
	return m, nil
}

// Register adds a manager built by the caller.
func (r *Registry) Register(m *Manager) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.managers[m.Prefix()]; exists {
		return errors.Newf(errors.ErrCodeInvalidConfig, "namespace %s already has a manager", m.Prefix()).
			WithComponent("mount")
	}
	r.managers[m.Prefix()] = m
	return nil
}

// AddMount adds a mount through the manager owning virtualPath.
func (r *Registry) AddMount(ctx context.Context, realPath, virtualPath vpath.Path, persist bool) error {
	m, err := r.Manager(ctx, virtualPath)
	if err != nil {
		return err
	}
	return m.AddMount(ctx, realPath, virtualPath, persist)
}

// Managers returns the managers created so far, ordered by prefix.
func (r *Registry) Managers() []*Manager {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Manager, 0, len(r.managers))
	for _, m := range r.managers {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Prefix() < out[j].Prefix() })
	return out
}

// Close closes every manager. Later lookups fail.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.managers {
		m.Close()
	}
	r.closed = true
}
