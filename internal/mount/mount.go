package mount

import "github.com/objectfs/mountfs/pkg/vpath"

// Mount translates paths between a virtual subtree and a real one.
type Mount interface {
	// ToMountPath maps a virtual path at or below the mount's virtual root
	// to its real path.
	ToMountPath(virtualPath vpath.Path) (vpath.Path, error)

	// FromMountPath maps a real path at or below the mount's real root back
	// to its virtual path.
	FromMountPath(realPath vpath.Path) (vpath.Path, error)

	// Key is the key of the virtual root, under which the mount is stored.
	Key() MountKey
}
