package filesystem

import (
	"context"
	"log/slog"
	"sort"

	"github.com/objectfs/mountfs/internal/config"
	"github.com/objectfs/mountfs/internal/mount"
	"github.com/objectfs/mountfs/pkg/errors"
	"github.com/objectfs/mountfs/pkg/types"
	"github.com/objectfs/mountfs/pkg/vpath"
)

// ChrootScheme is the scheme of chroot views.
const ChrootScheme = config.ChrootScheme

// ChrootProvider maps each chroot://<authority>/ view onto one real root.
type ChrootProvider struct {
	roots map[string]*mount.PathRewrite
}

// NewChrootProvider returns a provider for roots, keyed by authority.
func NewChrootProvider(roots map[string]vpath.Path) *ChrootProvider {
	p := &ChrootProvider{roots: make(map[string]*mount.PathRewrite, len(roots))}
	for authority, root := range roots {
		p.roots[authority] = mount.NewPathRewrite(root, vpath.New(ChrootScheme, authority, vpath.Root))
	}
	return p
}

// PathContext implements ContextProvider.
func (p *ChrootProvider) PathContext(_ context.Context, virtual vpath.Path) (PathContext, error) {
	rewrite, ok := p.roots[virtual.Authority]
	if !ok || virtual.Scheme != ChrootScheme {
		return nil, errors.Newf(errors.ErrCodePathInvalid, "no chroot configured for %s", virtual.Namespace()).
			WithComponent("chroot-fs").WithDetail("path", virtual.String())
	}
	return NewMountContext(rewrite, virtual)
}

// ChrootFileSystem is the FileSystem of the chroot:// scheme. Each authority
// exposes the tree below a single real root.
type ChrootFileSystem struct {
	*ContextFileSystem
	provider *ChrootProvider
}

// NewChrootFileSystem creates the chroot:// file system. Real paths are
// served by fileSystems.
func NewChrootFileSystem(roots map[string]vpath.Path, fileSystems mount.FileSystems, metrics types.MetricsCollector, logger *slog.Logger) *ChrootFileSystem {
	provider := NewChrootProvider(roots)
	return &ChrootFileSystem{
		ContextFileSystem: NewContextFileSystem(ChrootScheme, provider, fileSystems, metrics, logger),
		provider:          provider,
	}
}

// NewChrootFileSystemFromProperties builds the chroot views declared in
// props. Scheme-less roots are qualified by fileSystems.
func NewChrootFileSystemFromProperties(props config.Properties, fileSystems mount.FileSystems, metrics types.MetricsCollector, logger *slog.Logger) (*ChrootFileSystem, error) {
	roots := make(map[string]vpath.Path)
	for _, prefix := range props.Chroots() {
		c, err := config.ChrootFromProperties(props, prefix)
		if err != nil {
			return nil, err
		}
		root, err := vpath.Parse(c.Root)
		if err != nil {
			return nil, err
		}
		roots[c.Authority()] = fileSystems.Qualify(root)
	}
	return NewChrootFileSystem(roots, fileSystems, metrics, logger), nil
}

// Roots returns the configured views ordered by authority.
func (f *ChrootFileSystem) Roots() []*mount.PathRewrite {
	out := make([]*mount.PathRewrite, 0, len(f.provider.roots))
	for _, r := range f.provider.roots {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VirtualRoot().Authority < out[j].VirtualRoot().Authority })
	return out
}

// RealPath returns the real path p maps to.
func (f *ChrootFileSystem) RealPath(ctx context.Context, p vpath.Path) (vpath.Path, error) {
	pc, err := f.provider.PathContext(ctx, p)
	if err != nil {
		return vpath.Path{}, err
	}
	return pc.ContextPath(), nil
}

var (
	_ ContextProvider  = (*ChrootProvider)(nil)
	_ types.FileSystem = (*ChrootFileSystem)(nil)
)
