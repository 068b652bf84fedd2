// Package filesystem re-exposes a virtual namespace as a storage FileSystem.
// Every operation resolves the virtual path to a real one through a
// ContextProvider, runs against the real backend and translates results and
// error messages back to virtual paths.
package filesystem

import (
	"context"

	"github.com/objectfs/mountfs/internal/mount"
	"github.com/objectfs/mountfs/pkg/vpath"
)

// PathContext binds a virtual path to the real path it currently maps to.
type PathContext interface {
	// OriginalPath returns the virtual path the context was created for.
	OriginalPath() vpath.Path

	// ContextPath returns the real path backing OriginalPath.
	ContextPath() vpath.Path

	// OriginalPathOf maps a real path below ContextPath back to its
	// virtual form.
	OriginalPathOf(contextPath vpath.Path) (vpath.Path, error)
}

// ContextProvider creates the PathContext of a virtual path.
type ContextProvider interface {
	PathContext(ctx context.Context, virtual vpath.Path) (PathContext, error)
}

// mountContext is a PathContext backed by a resolved mount.
type mountContext struct {
	original vpath.Path
	resolved vpath.Path
	mount    mount.Mount
}

// NewMountContext resolves virtual through mt.
func NewMountContext(mt mount.Mount, virtual vpath.Path) (PathContext, error) {
	rp, err := mt.ToMountPath(virtual)
	if err != nil {
		return nil, err
	}
	return &mountContext{original: virtual, resolved: rp, mount: mt}, nil
}

func (c *mountContext) OriginalPath() vpath.Path {
	return c.original
}

func (c *mountContext) ContextPath() vpath.Path {
	return c.resolved
}

func (c *mountContext) OriginalPathOf(contextPath vpath.Path) (vpath.Path, error) {
	return c.mount.FromMountPath(contextPath)
}
