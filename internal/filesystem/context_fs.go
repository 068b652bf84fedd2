package filesystem

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/objectfs/mountfs/internal/mount"
	"github.com/objectfs/mountfs/pkg/errors"
	"github.com/objectfs/mountfs/pkg/types"
	"github.com/objectfs/mountfs/pkg/vpath"
)

// ContextFileSystem serves a virtual scheme by delegating every call to the
// real file system selected by the path context.
type ContextFileSystem struct {
	scheme      string
	provider    ContextProvider
	fileSystems mount.FileSystems
	metrics     types.MetricsCollector
	logger      *slog.Logger
}

// NewContextFileSystem creates a file system for scheme. metrics may be nil.
func NewContextFileSystem(scheme string, provider ContextProvider, fileSystems mount.FileSystems, metrics types.MetricsCollector, logger *slog.Logger) *ContextFileSystem {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContextFileSystem{
		scheme:      scheme,
		provider:    provider,
		fileSystems: fileSystems,
		metrics:     metrics,
		logger:      logger.With("component", "context-fs", "scheme", scheme),
	}
}

// Scheme implements types.FileSystem.
func (f *ContextFileSystem) Scheme() string {
	return f.scheme
}

// resolve returns the context of p and the file system serving its real path.
func (f *ContextFileSystem) resolve(ctx context.Context, op string, p vpath.Path) (PathContext, types.FileSystem, error) {
	if p.Scheme != f.scheme {
		return nil, nil, errors.Newf(errors.ErrCodeStorageUnsupported, "scheme %q not served by %s file system", p.Scheme, f.scheme).
			WithComponent("context-fs").WithOperation(op).WithDetail("path", p.String())
	}
	pc, err := f.provider.PathContext(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	fsys, err := f.fileSystems.ForPath(pc.ContextPath())
	if err != nil {
		return nil, nil, rewriteError(err, pc)
	}
	f.logger.Debug("path context resolved", "op", op, "virtual", p.String(), "real", pc.ContextPath().String())
	return pc, fsys, nil
}

func (f *ContextFileSystem) observe(op string, start time.Time, err error) {
	if f.metrics != nil {
		f.metrics.RecordOperation(op, time.Since(start), err == nil)
	}
}

// Open implements types.FileSystem.
func (f *ContextFileSystem) Open(ctx context.Context, p vpath.Path) (r io.ReadCloser, err error) {
	defer func(start time.Time) { f.observe("open", start, err) }(time.Now())
	pc, fsys, err := f.resolve(ctx, "open", p)
	if err != nil {
		return nil, err
	}
	r, err = fsys.Open(ctx, pc.ContextPath())
	return r, rewriteError(err, pc)
}

// Create implements types.FileSystem.
func (f *ContextFileSystem) Create(ctx context.Context, p vpath.Path, overwrite bool) (w io.WriteCloser, err error) {
	defer func(start time.Time) { f.observe("create", start, err) }(time.Now())
	pc, fsys, err := f.resolve(ctx, "create", p)
	if err != nil {
		return nil, err
	}
	w, err = fsys.Create(ctx, pc.ContextPath(), overwrite)
	return w, rewriteError(err, pc)
}

// Rename implements types.FileSystem. Both paths must resolve to the same
// real file system and authority.
func (f *ContextFileSystem) Rename(ctx context.Context, src, dst vpath.Path) (err error) {
	defer func(start time.Time) { f.observe("rename", start, err) }(time.Now())
	if !src.SameNamespace(dst) {
		return crossMount(src, dst)
	}
	spc, sfs, err := f.resolve(ctx, "rename", src)
	if err != nil {
		return err
	}
	dpc, dfs, err := f.resolve(ctx, "rename", dst)
	if err != nil {
		return err
	}
	if sfs != dfs || !spc.ContextPath().SameNamespace(dpc.ContextPath()) {
		return crossMount(src, dst).
			WithDetail("real_src", spc.ContextPath().String()).
			WithDetail("real_dst", dpc.ContextPath().String())
	}
	err = sfs.Rename(ctx, spc.ContextPath(), dpc.ContextPath())
	return rewriteError(err, spc, dpc)
}

func crossMount(src, dst vpath.Path) *errors.MountFSError {
	return errors.Newf(errors.ErrCodeCrossMountRename, "cannot rename %s to %s across mounts", src, dst).
		WithComponent("context-fs").WithOperation("rename")
}

// Delete implements types.FileSystem.
func (f *ContextFileSystem) Delete(ctx context.Context, p vpath.Path, recursive bool) (err error) {
	defer func(start time.Time) { f.observe("delete", start, err) }(time.Now())
	pc, fsys, err := f.resolve(ctx, "delete", p)
	if err != nil {
		return err
	}
	return rewriteError(fsys.Delete(ctx, pc.ContextPath(), recursive), pc)
}

// ListStatus implements types.FileSystem. Entries carry virtual paths.
func (f *ContextFileSystem) ListStatus(ctx context.Context, p vpath.Path) (out []types.FileStatus, err error) {
	defer func(start time.Time) { f.observe("list", start, err) }(time.Now())
	pc, fsys, err := f.resolve(ctx, "list", p)
	if err != nil {
		return nil, err
	}
	entries, err := fsys.ListStatus(ctx, pc.ContextPath())
	if err != nil {
		return nil, rewriteError(err, pc)
	}
	out = make([]types.FileStatus, 0, len(entries))
	for _, st := range entries {
		virtual, err := pc.OriginalPathOf(st.Path)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", p, err)
		}
		st.Path = virtual
		out = append(out, st)
	}
	return out, nil
}

// Mkdirs implements types.FileSystem.
func (f *ContextFileSystem) Mkdirs(ctx context.Context, p vpath.Path) (err error) {
	defer func(start time.Time) { f.observe("mkdirs", start, err) }(time.Now())
	pc, fsys, err := f.resolve(ctx, "mkdirs", p)
	if err != nil {
		return err
	}
	return rewriteError(fsys.Mkdirs(ctx, pc.ContextPath()), pc)
}

// GetFileStatus implements types.FileSystem. The status carries p.
func (f *ContextFileSystem) GetFileStatus(ctx context.Context, p vpath.Path) (st *types.FileStatus, err error) {
	defer func(start time.Time) { f.observe("stat", start, err) }(time.Now())
	pc, fsys, err := f.resolve(ctx, "stat", p)
	if err != nil {
		return nil, err
	}
	st, err = fsys.GetFileStatus(ctx, pc.ContextPath())
	if err != nil {
		return nil, rewriteError(err, pc)
	}
	out := *st
	out.Path = pc.OriginalPath()
	return &out, nil
}

// GetAttr implements types.FileSystem.
func (f *ContextFileSystem) GetAttr(ctx context.Context, p vpath.Path, name string) (value []byte, err error) {
	defer func(start time.Time) { f.observe("getattr", start, err) }(time.Now())
	pc, fsys, err := f.resolve(ctx, "getattr", p)
	if err != nil {
		return nil, err
	}
	value, err = fsys.GetAttr(ctx, pc.ContextPath(), name)
	return value, rewriteError(err, pc)
}

// SetAttr implements types.AttrSetter when the real file system does.
func (f *ContextFileSystem) SetAttr(ctx context.Context, p vpath.Path, name string, value []byte) (err error) {
	defer func(start time.Time) { f.observe("setattr", start, err) }(time.Now())
	pc, fsys, err := f.resolve(ctx, "setattr", p)
	if err != nil {
		return err
	}
	setter, ok := fsys.(types.AttrSetter)
	if !ok {
		return fmt.Errorf("setattr %s %s: %w", p, name, types.ErrAttrNotSupported)
	}
	return rewriteError(setter.SetAttr(ctx, pc.ContextPath(), name, value), pc)
}

// contextError carries a message rewritten to virtual paths over the
// original error.
type contextError struct {
	msg string
	err error
}

func (e *contextError) Error() string {
	return e.msg
}

func (e *contextError) Unwrap() error {
	return e.err
}

// rewriteError replaces the real paths of the given contexts with their
// virtual paths in the message of err. errors.Is and errors.As see the
// original error.
func rewriteError(err error, contexts ...PathContext) error {
	if err == nil {
		return nil
	}
	var reps []replacement
	for _, pc := range contexts {
		virtual := pc.OriginalPath().String()
		reps = append(reps, replacement{old: pc.ContextPath().String(), new: virtual})
		// Local backends report bare paths.
		if rp := pc.ContextPath().Path; rp != "" && rp != "/" {
			reps = append(reps, replacement{old: rp, new: virtual, bare: true})
		}
	}

	msg := err.Error()
	rewritten, changed := replacePaths(msg, reps)
	if !changed {
		return err
	}
	return &contextError{msg: rewritten, err: err}
}

type replacement struct {
	old  string
	new  string
	bare bool
}

// replacePaths replaces whole paths in s in a single left to right pass. A
// match must end where a path component ends; a bare path must also start
// where a path starts. The longest match wins.
func replacePaths(s string, reps []replacement) (string, bool) {
	var sb strings.Builder
	changed := false
	for i := 0; i < len(s); {
		best := -1
		for j, r := range reps {
			if !strings.HasPrefix(s[i:], r.old) {
				continue
			}
			if end := i + len(r.old); end < len(s) && s[end] != '/' && isPathByte(s[end]) {
				continue
			}
			if r.bare && i > 0 && isPathByte(s[i-1]) {
				continue
			}
			if best < 0 || len(r.old) > len(reps[best].old) {
				best = j
			}
		}
		if best < 0 {
			sb.WriteByte(s[i])
			i++
			continue
		}
		sb.WriteString(reps[best].new)
		i += len(reps[best].old)
		changed = true
	}
	return sb.String(), changed
}

func isPathByte(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("/._-~%+@", c) >= 0
}

var (
	_ types.FileSystem = (*ContextFileSystem)(nil)
	_ types.AttrSetter = (*ContextFileSystem)(nil)
)
