package mount

import (
	"fmt"
	"strings"

	"github.com/objectfs/mountfs/pkg/errors"
	"github.com/objectfs/mountfs/pkg/utils"
	"github.com/objectfs/mountfs/pkg/vpath"
)

// PathRewrite binds one real root to one virtual root. Paths below either
// root keep their suffix components verbatim.
type PathRewrite struct {
	real         vpath.Path
	virtual      vpath.Path
	realParts    int
	virtualParts int
	key          MountKey
}

var _ Mount = (*PathRewrite)(nil)

// NewPathRewrite creates the mount realRoot <-> virtualRoot.
func NewPathRewrite(realRoot, virtualRoot vpath.Path) *PathRewrite {
	return &PathRewrite{
		real:         realRoot,
		virtual:      virtualRoot,
		realParts:    len(realRoot.Components()),
		virtualParts: len(virtualRoot.Components()),
		key:          NewMountKey(virtualRoot),
	}
}

// ParsePathRewrite parses both roots and creates the mount.
func ParsePathRewrite(realRoot, virtualRoot string) (*PathRewrite, error) {
	r, err := vpath.Parse(realRoot)
	if err != nil {
		return nil, err
	}
	v, err := vpath.Parse(virtualRoot)
	if err != nil {
		return nil, err
	}
	return NewPathRewrite(r, v), nil
}

// RealRoot returns the real root.
func (m *PathRewrite) RealRoot() vpath.Path { return m.real }

// VirtualRoot returns the virtual root.
func (m *PathRewrite) VirtualRoot() vpath.Path { return m.virtual }

// Key implements Mount.
func (m *PathRewrite) Key() MountKey { return m.key }

// ToMountPath implements Mount.
func (m *PathRewrite) ToMountPath(p vpath.Path) (vpath.Path, error) {
	if !within(m.virtual, p) {
		return vpath.Path{}, outOfScope("toMountPath", p, m.virtual)
	}
	return rebase(p, m.virtualParts, m.real), nil
}

// FromMountPath implements Mount.
func (m *PathRewrite) FromMountPath(p vpath.Path) (vpath.Path, error) {
	if !within(m.real, p) {
		return vpath.Path{}, outOfScope("fromMountPath", p, m.real)
	}
	return rebase(p, m.realParts, m.virtual), nil
}

func (m *PathRewrite) String() string {
	return fmt.Sprintf("%s -> %s", m.virtual, m.real)
}

// within reports whether p is root or one of its descendants.
func within(root, p vpath.Path) bool {
	for {
		if p == root {
			return true
		}
		var ok bool
		if p, ok = p.Parent(); !ok {
			return false
		}
	}
}

// rebase moves p, known to lie below a root of depth rootParts, onto
// target. The root itself maps to target unchanged.
func rebase(p vpath.Path, rootParts int, target vpath.Path) vpath.Path {
	suffix := p.Components()[rootParts:]
	if len(suffix) == 0 {
		return target
	}
	return target.Join(strings.Join(suffix, utils.PathSeparator))
}

func outOfScope(op string, p, root vpath.Path) error {
	return errors.Newf(errors.ErrCodePathOutOfScope, "path %s is not in %s", p, root).
		WithComponent("mount").
		WithOperation(op).
		WithDetail("path", p.String()).
		WithDetail("root", root.String())
}
