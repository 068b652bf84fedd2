package filesystem

import (
	"context"
	"log/slog"

	"github.com/objectfs/mountfs/internal/mount"
	"github.com/objectfs/mountfs/pkg/types"
	"github.com/objectfs/mountfs/pkg/vpath"
)

// MountScheme is the scheme of virtual mount paths.
const MountScheme = "mount"

// MountProvider creates path contexts from the mount managers of a registry.
type MountProvider struct {
	mounts *mount.Registry
}

// NewMountProvider returns a provider resolving through mounts.
func NewMountProvider(mounts *mount.Registry) *MountProvider {
	return &MountProvider{mounts: mounts}
}

// PathContext implements ContextProvider.
func (p *MountProvider) PathContext(ctx context.Context, virtual vpath.Path) (PathContext, error) {
	m, err := p.mounts.Manager(ctx, virtual)
	if err != nil {
		return nil, err
	}
	mt, err := m.GetMount(ctx, virtual)
	if err != nil {
		return nil, err
	}
	return NewMountContext(mt, virtual)
}

// MountFileSystem is the FileSystem of the mount:// scheme.
type MountFileSystem struct {
	*ContextFileSystem
	mounts *mount.Registry
}

// NewMountFileSystem creates the mount:// file system over mounts. Real
// paths are served by fileSystems.
func NewMountFileSystem(mounts *mount.Registry, fileSystems mount.FileSystems, metrics types.MetricsCollector, logger *slog.Logger) *MountFileSystem {
	return &MountFileSystem{
		ContextFileSystem: NewContextFileSystem(MountScheme, NewMountProvider(mounts), fileSystems, metrics, logger),
		mounts:            mounts,
	}
}

// Mounts returns the registry backing the file system.
func (f *MountFileSystem) Mounts() *mount.Registry {
	return f.mounts
}

// AddMount maps realPath to virtualPath, optionally persisting the entry in
// the mount table of the owning namespace.
func (f *MountFileSystem) AddMount(ctx context.Context, realPath, virtualPath vpath.Path, persist bool) error {
	return f.mounts.AddMount(ctx, realPath, virtualPath, persist)
}

// ReloadMounts reloads the mount table of the namespace p belongs to.
func (f *MountFileSystem) ReloadMounts(ctx context.Context, p vpath.Path) error {
	m, err := f.mounts.Manager(ctx, p)
	if err != nil {
		return err
	}
	return m.ReloadMounts(ctx)
}

// RealPath returns the real path p currently maps to.
func (f *MountFileSystem) RealPath(ctx context.Context, p vpath.Path) (vpath.Path, error) {
	m, err := f.mounts.Manager(ctx, p)
	if err != nil {
		return vpath.Path{}, err
	}
	return m.RealPath(ctx, p)
}

var (
	_ ContextProvider  = (*MountProvider)(nil)
	_ types.FileSystem = (*MountFileSystem)(nil)
)
