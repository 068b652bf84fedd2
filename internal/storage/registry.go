// Package storage maps URI schemes onto the storage backends that serve
// them.
package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/objectfs/mountfs/pkg/errors"
	"github.com/objectfs/mountfs/pkg/types"
	"github.com/objectfs/mountfs/pkg/vpath"
)

// Registry holds one FileSystem per scheme.
//
// Example usage:
//
//	reg := NewRegistry(local.Scheme)
//	reg.Register(local.New(logger))
//	reg.Register(memory.New(logger))
//	fsys, _ := reg.ForPath(vpath.MustParse("mem://scratch/table"))
type Registry struct {
	mu            sync.RWMutex
	backends      map[string]types.FileSystem
	defaultScheme string
}

// NewRegistry creates an empty registry. Paths without a scheme are served
// by the backend registered for defaultScheme.
func NewRegistry(defaultScheme string) *Registry {
	return &Registry{
		backends:      make(map[string]types.FileSystem),
		defaultScheme: defaultScheme,
	}
}

// Register adds a backend under its own scheme.
// Returns an error if the scheme is already taken.
func (r *Registry) Register(fsys types.FileSystem) error {
	if fsys == nil {
		return fmt.Errorf("cannot register nil file system")
	}
	scheme := fsys.Scheme()
	if scheme == "" {
		return fmt.Errorf("cannot register file system with empty scheme")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.backends[scheme]; exists {
		return fmt.Errorf("file system for scheme %q already registered", scheme)
	}
	r.backends[scheme] = fsys
	return nil
}

// Lookup returns the backend registered for scheme.
func (r *Registry) Lookup(scheme string) (types.FileSystem, error) {
	if scheme == "" {
		scheme = r.defaultScheme
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	fsys, ok := r.backends[scheme]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeStorageUnsupported, "no file system registered for scheme %q", scheme).
			WithComponent("storage").WithDetail("scheme", scheme)
	}
	return fsys, nil
}

// ForPath returns the backend serving p.
func (r *Registry) ForPath(p vpath.Path) (types.FileSystem, error) {
	return r.Lookup(p.Scheme)
}

// Qualify fills in the default scheme for scheme-less paths.
func (r *Registry) Qualify(p vpath.Path) vpath.Path {
	if p.Scheme != "" || r.defaultScheme == "" {
		return p
	}
	return vpath.New(r.defaultScheme, p.Authority, p.Path)
}

// Schemes lists the registered schemes in order.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemes := make([]string, 0, len(r.backends))
	for s := range r.backends {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}
