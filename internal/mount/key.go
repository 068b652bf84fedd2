// Package mount resolves virtual paths of a namespace to real paths in
// some storage backend.
//
// Resolution consults four tiers in order: mounts added at runtime, the
// mount table last reloaded from its backing file, a pluggable Factory and
// finally the namespace's default mount. Within each tier the most specific
// mount wins, found by walking the MountKey of the path towards the root.
package mount

import (
	"strings"

	"github.com/objectfs/mountfs/pkg/utils"
	"github.com/objectfs/mountfs/pkg/vpath"
)

// MountKey identifies a path by scheme, authority and path components. It
// is comparable and used directly as a map key.
//
// The root path has a single empty component, so it is distinct from a key
// with no components at all.
type MountKey struct {
	scheme    string
	authority string
	path      string
	depth     int
}

// NewMountKey builds the key of p.
func NewMountKey(p vpath.Path) MountKey {
	parts := p.Components()
	return MountKey{
		scheme:    p.Scheme,
		authority: p.Authority,
		path:      strings.Join(parts, utils.PathSeparator),
		depth:     len(parts),
	}
}

// ParentKey returns the key shortened by its last component. ok is false
// once a single component is left.
func (k MountKey) ParentKey() (parent MountKey, ok bool) {
	if k.depth <= 1 {
		return MountKey{}, false
	}
	i := strings.LastIndex(k.path, utils.PathSeparator)
	return MountKey{
		scheme:    k.scheme,
		authority: k.authority,
		path:      k.path[:i],
		depth:     k.depth - 1,
	}, true
}

// Scheme returns the scheme of the key.
func (k MountKey) Scheme() string { return k.scheme }

// Authority returns the authority of the key.
func (k MountKey) Authority() string { return k.authority }

// Depth returns the number of path components.
func (k MountKey) Depth() int { return k.depth }

// Components returns a copy of the path components.
func (k MountKey) Components() []string {
	if k.depth == 0 {
		return nil
	}
	return strings.Split(k.path, utils.PathSeparator)
}

// Path rebuilds the path the key was created from.
func (k MountKey) Path() vpath.Path {
	return vpath.Path{
		Scheme:    k.scheme,
		Authority: k.authority,
		Path:      utils.JoinPath(k.Components()),
	}
}

func (k MountKey) String() string {
	return k.Path().String()
}
