package mount

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/objectfs/mountfs/internal/config"
	"github.com/objectfs/mountfs/pkg/errors"
	"github.com/objectfs/mountfs/pkg/types"
	"github.com/objectfs/mountfs/pkg/vpath"
)

// Factory derives mounts on demand, for paths no stored mount covers.
type Factory interface {
	Initialize(ctx context.Context) error

	// FindMount returns the mount rooted exactly at key, or nil. An error
	// is treated as no mount at that level.
	FindMount(ctx context.Context, key MountKey) (Mount, error)
}

// FileSystems resolves the backend serving a real path.
type FileSystems interface {
	ForPath(p vpath.Path) (types.FileSystem, error)
	Qualify(p vpath.Path) vpath.Path
}

// NoopFactory never finds a mount.
type NoopFactory struct{}

// Initialize implements Factory.
func (NoopFactory) Initialize(context.Context) error { return nil }

// FindMount implements Factory.
func (NoopFactory) FindMount(context.Context, MountKey) (Mount, error) { return nil, nil }

// FactoryParams is what a factory constructor may depend on.
type FactoryParams struct {
	Namespace    *config.NamespaceConfig
	DefaultMount Mount
	FileSystems  FileSystems
	Logger       *slog.Logger
}

// FactoryConstructor builds a factory for one namespace.
type FactoryConstructor func(params FactoryParams) (Factory, error)

// Factory names known to DefaultFactories.
const (
	FactoryNoop  = "noop"
	FactoryXAttr = "xattr"
)

// FactoryRegistry maps the names accepted by the mount.factory.class
// property to constructors.
type FactoryRegistry struct {
	mu    sync.RWMutex
	ctors map[string]FactoryConstructor
}

// NewFactoryRegistry creates an empty registry.
func NewFactoryRegistry() *FactoryRegistry {
	return &FactoryRegistry{ctors: make(map[string]FactoryConstructor)}
}

// DefaultFactories returns a registry holding the noop and xattr factories.
func DefaultFactories() *FactoryRegistry {
	r := NewFactoryRegistry()
	_ = r.Register(FactoryNoop, func(FactoryParams) (Factory, error) {
		return NoopFactory{}, nil
	})
	_ = r.Register(FactoryXAttr, func(p FactoryParams) (Factory, error) {
		attr := config.DefaultFactoryAttr
		if p.Namespace != nil && p.Namespace.FactoryAttr != "" {
			attr = p.Namespace.FactoryAttr
		}
		return NewAttrFactory(p.DefaultMount, p.FileSystems, attr, p.Logger), nil
	})
	return r
}

// Register adds a constructor. Names are unique.
func (r *FactoryRegistry) Register(name string, ctor FactoryConstructor) error {
	if name == "" || ctor == nil {
		return errors.NewError(errors.ErrCodeInvalidConfig, "factory name and constructor are required").
			WithComponent("mount")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ctors[name]; exists {
		return errors.Newf(errors.ErrCodeInvalidConfig, "factory %q already registered", name).
			WithComponent("mount")
	}
	r.ctors[name] = ctor
	return nil
}

// New builds the factory registered as name.
func (r *FactoryRegistry) New(name string, params FactoryParams) (Factory, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[name]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.Newf(errors.ErrCodeFactoryUnknown, "unknown mount factory %q", name).
			WithComponent("mount").
			WithDetail("known", r.Names())
	}
	return ctor(params)
}

// Names lists the registered factory names.
func (r *FactoryRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
