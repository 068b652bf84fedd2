// Package memory serves mem://<authority> paths from in-process memory
// file systems, one per authority. Contents vanish with the process.
package memory

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/avfs/avfs"
	"github.com/avfs/avfs/idm/memidm"
	"github.com/avfs/avfs/vfs/memfs"

	"github.com/objectfs/mountfs/pkg/errors"
	"github.com/objectfs/mountfs/pkg/types"
	"github.com/objectfs/mountfs/pkg/vpath"
)

// Scheme is the URI scheme served by this backend.
const Scheme = "mem"

// FileSystem implements types.FileSystem over avfs memory file systems.
type FileSystem struct {
	mu      sync.Mutex
	volumes map[string]*volume
	logger  *slog.Logger
}

type volume struct {
	vfs *memfs.MemFS

	attrMu sync.RWMutex
	attrs  map[string]map[string][]byte
}

// New creates an empty memory file system.
func New(logger *slog.Logger) *FileSystem {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSystem{
		volumes: make(map[string]*volume),
		logger:  logger.With("component", "memory-fs"),
	}
}

// Scheme implements types.FileSystem.
func (f *FileSystem) Scheme() string {
	return Scheme
}

func (f *FileSystem) volume(op string, p vpath.Path) (*volume, error) {
	if p.Scheme != Scheme {
		return nil, errors.Newf(errors.ErrCodeStorageUnsupported, "scheme %q not served by memory file system", p.Scheme).
			WithComponent("memory-fs").WithOperation(op).WithDetail("path", p.String())
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.volumes[p.Authority]
	if !ok {
		v = &volume{
			vfs:   memfs.New(memfs.WithIdm(memidm.New())),
			attrs: make(map[string]map[string][]byte),
		}
		f.volumes[p.Authority] = v
		f.logger.Debug("volume created", "authority", p.Authority)
	}
	return v, nil
}

// translate maps avfs errno values onto io/fs sentinels and renders the
// full URI in the message.
func translate(op string, p vpath.Path, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case stderrors.Is(err, fs.ErrNotExist), stderrors.Is(err, avfs.ErrNoSuchFileOrDir):
		return &fs.PathError{Op: op, Path: p.String(), Err: fs.ErrNotExist}
	case stderrors.Is(err, fs.ErrExist), stderrors.Is(err, avfs.ErrFileExists):
		return &fs.PathError{Op: op, Path: p.String(), Err: fs.ErrExist}
	case stderrors.Is(err, fs.ErrPermission), stderrors.Is(err, avfs.ErrPermDenied):
		return &fs.PathError{Op: op, Path: p.String(), Err: fs.ErrPermission}
	default:
		return &fs.PathError{Op: op, Path: p.String(), Err: unwrapPathError(err)}
	}
}

func unwrapPathError(err error) error {
	var pe *fs.PathError
	if stderrors.As(err, &pe) {
		return pe.Err
	}
	var le *os.LinkError
	if stderrors.As(err, &le) {
		return le.Err
	}
	return err
}

// Open implements types.FileSystem.
func (f *FileSystem) Open(ctx context.Context, p vpath.Path) (io.ReadCloser, error) {
	v, err := f.volume("open", p)
	if err != nil {
		return nil, err
	}
	fi, err := v.vfs.Stat(p.Path)
	if err != nil {
		return nil, translate("open", p, err)
	}
	if fi.IsDir() {
		return nil, &fs.PathError{Op: "open", Path: p.String(), Err: fmt.Errorf("is a directory")}
	}
	file, err := v.vfs.Open(p.Path)
	if err != nil {
		return nil, translate("open", p, err)
	}
	return file, nil
}

// Create implements types.FileSystem.
func (f *FileSystem) Create(ctx context.Context, p vpath.Path, overwrite bool) (io.WriteCloser, error) {
	v, err := f.volume("create", p)
	if err != nil {
		return nil, err
	}
	if parent, ok := p.Parent(); ok {
		if err := v.vfs.MkdirAll(parent.Path, 0o755); err != nil {
			return nil, translate("create", parent, err)
		}
	}
	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flag |= os.O_EXCL
	}
	file, err := v.vfs.OpenFile(p.Path, flag, 0o644)
	if err != nil {
		return nil, translate("create", p, err)
	}
	return file, nil
}

// Rename implements types.FileSystem. Attributes follow the renamed tree.
func (f *FileSystem) Rename(ctx context.Context, src, dst vpath.Path) error {
	if !src.SameNamespace(dst) {
		return errors.NewError(errors.ErrCodeStorageUnsupported, "rename across memory volumes").
			WithComponent("memory-fs").WithOperation("rename").
			WithDetail("src", src.String()).WithDetail("dst", dst.String())
	}
	v, err := f.volume("rename", src)
	if err != nil {
		return err
	}
	if _, err := v.vfs.Lstat(src.Path); err != nil {
		return translate("rename", src, err)
	}
	if _, err := v.vfs.Lstat(dst.Path); err == nil {
		return &fs.PathError{Op: "rename", Path: dst.String(), Err: fs.ErrExist}
	}
	if parent, ok := dst.Parent(); ok {
		if err := v.vfs.MkdirAll(parent.Path, 0o755); err != nil {
			return translate("rename", parent, err)
		}
	}
	if err := v.vfs.Rename(src.Path, dst.Path); err != nil {
		return translate("rename", src, err)
	}
	v.moveAttrs(src.Path, dst.Path)
	return nil
}

// Delete implements types.FileSystem.
func (f *FileSystem) Delete(ctx context.Context, p vpath.Path, recursive bool) error {
	v, err := f.volume("delete", p)
	if err != nil {
		return err
	}
	if _, err := v.vfs.Lstat(p.Path); err != nil {
		return translate("delete", p, err)
	}
	if recursive {
		err = v.vfs.RemoveAll(p.Path)
	} else {
		err = v.vfs.Remove(p.Path)
	}
	if err != nil {
		return translate("delete", p, err)
	}
	v.dropAttrs(p.Path)
	return nil
}

// ListStatus implements types.FileSystem. Listing a file returns its own
// status.
func (f *FileSystem) ListStatus(ctx context.Context, p vpath.Path) ([]types.FileStatus, error) {
	v, err := f.volume("list", p)
	if err != nil {
		return nil, err
	}
	fi, err := v.vfs.Stat(p.Path)
	if err != nil {
		return nil, translate("list", p, err)
	}
	if !fi.IsDir() {
		return []types.FileStatus{types.StatusFromInfo(p, fi)}, nil
	}

	entries, err := v.vfs.ReadDir(p.Path)
	if err != nil {
		return nil, translate("list", p, err)
	}
	out := make([]types.FileStatus, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, types.StatusFromInfo(p.Join(entry.Name()), info))
	}
	return out, nil
}

// Mkdirs implements types.FileSystem.
func (f *FileSystem) Mkdirs(ctx context.Context, p vpath.Path) error {
	v, err := f.volume("mkdirs", p)
	if err != nil {
		return err
	}
	return translate("mkdirs", p, v.vfs.MkdirAll(p.Path, 0o755))
}

// GetFileStatus implements types.FileSystem.
func (f *FileSystem) GetFileStatus(ctx context.Context, p vpath.Path) (*types.FileStatus, error) {
	v, err := f.volume("stat", p)
	if err != nil {
		return nil, err
	}
	fi, err := v.vfs.Stat(p.Path)
	if err != nil {
		return nil, translate("stat", p, err)
	}
	st := types.StatusFromInfo(p, fi)
	return &st, nil
}

// GetAttr implements types.FileSystem.
func (f *FileSystem) GetAttr(ctx context.Context, p vpath.Path, name string) ([]byte, error) {
	v, err := f.volume("getattr", p)
	if err != nil {
		return nil, err
	}
	if _, err := v.vfs.Lstat(p.Path); err != nil {
		return nil, translate("getattr", p, err)
	}

	v.attrMu.RLock()
	defer v.attrMu.RUnlock()
	value, ok := v.attrs[p.Path][name]
	if !ok {
		return nil, fmt.Errorf("getattr %s %s: %w", p, name, types.ErrAttrNotFound)
	}
	return append([]byte(nil), value...), nil
}

// SetAttr implements types.AttrSetter.
func (f *FileSystem) SetAttr(ctx context.Context, p vpath.Path, name string, value []byte) error {
	v, err := f.volume("setattr", p)
	if err != nil {
		return err
	}
	if _, err := v.vfs.Lstat(p.Path); err != nil {
		return translate("setattr", p, err)
	}

	v.attrMu.Lock()
	defer v.attrMu.Unlock()
	m, ok := v.attrs[p.Path]
	if !ok {
		m = make(map[string][]byte)
		v.attrs[p.Path] = m
	}
	m[name] = append([]byte(nil), value...)
	return nil
}

func within(p, root string) (string, bool) {
	if p == root {
		return "", true
	}
	prefix := root
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if rest, ok := strings.CutPrefix(p, prefix); ok {
		return "/" + rest, true
	}
	return "", false
}

func (v *volume) moveAttrs(from, to string) {
	v.attrMu.Lock()
	defer v.attrMu.Unlock()

	moved := make(map[string]map[string][]byte)
	for p, m := range v.attrs {
		if suffix, ok := within(p, from); ok {
			delete(v.attrs, p)
			moved[strings.TrimSuffix(to, "/")+suffix] = m
		}
	}
	for p, m := range moved {
		v.attrs[p] = m
	}
}

func (v *volume) dropAttrs(root string) {
	v.attrMu.Lock()
	defer v.attrMu.Unlock()
	for p := range v.attrs {
		if _, ok := within(p, root); ok {
			delete(v.attrs, p)
		}
	}
}
