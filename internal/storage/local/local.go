// Package local serves file:// paths from the local disk.
package local

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/objectfs/mountfs/pkg/errors"
	"github.com/objectfs/mountfs/pkg/types"
	"github.com/objectfs/mountfs/pkg/vpath"
)

// Scheme is the URI scheme served by this backend.
const Scheme = "file"

// FileSystem implements types.FileSystem on the host file system.
type FileSystem struct {
	logger *slog.Logger
}

// New creates a local file system.
func New(logger *slog.Logger) *FileSystem {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSystem{logger: logger.With("component", "local-fs")}
}

// Scheme implements types.FileSystem.
func (f *FileSystem) Scheme() string {
	return Scheme
}

func (f *FileSystem) osPath(op string, p vpath.Path) (string, error) {
	if p.Scheme != Scheme && p.Scheme != "" {
		return "", errors.Newf(errors.ErrCodeStorageUnsupported, "scheme %q not served by local file system", p.Scheme).
			WithComponent("local-fs").WithOperation(op).WithDetail("path", p.String())
	}
	if p.Path == "" {
		return "", errors.NewError(errors.ErrCodePathInvalid, "empty path").
			WithComponent("local-fs").WithOperation(op)
	}
	return filepath.FromSlash(p.Path), nil
}

// Open implements types.FileSystem.
func (f *FileSystem) Open(ctx context.Context, p vpath.Path) (io.ReadCloser, error) {
	name, err := f.osPath("open", p)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	fi, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if fi.IsDir() {
		_ = file.Close()
		return nil, &fs.PathError{Op: "open", Path: name, Err: fmt.Errorf("is a directory")}
	}
	return file, nil
}

// Create implements types.FileSystem.
func (f *FileSystem) Create(ctx context.Context, p vpath.Path, overwrite bool) (io.WriteCloser, error) {
	name, err := f.osPath("create", p)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return nil, err
	}
	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flag |= os.O_EXCL
	}
	return os.OpenFile(name, flag, 0o644)
}

// Rename implements types.FileSystem.
func (f *FileSystem) Rename(ctx context.Context, src, dst vpath.Path) error {
	from, err := f.osPath("rename", src)
	if err != nil {
		return err
	}
	to, err := f.osPath("rename", dst)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(from); err != nil {
		return err
	}
	if _, err := os.Lstat(to); err == nil {
		return &os.LinkError{Op: "rename", Old: from, New: to, Err: fs.ErrExist}
	}
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return err
	}
	return os.Rename(from, to)
}

// Delete implements types.FileSystem.
func (f *FileSystem) Delete(ctx context.Context, p vpath.Path, recursive bool) error {
	name, err := f.osPath("delete", p)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(name); err != nil {
		return err
	}
	if recursive {
		return os.RemoveAll(name)
	}
	return os.Remove(name)
}

// ListStatus implements types.FileSystem. Listing a file returns its own
// status.
func (f *FileSystem) ListStatus(ctx context.Context, p vpath.Path) ([]types.FileStatus, error) {
	name, err := f.osPath("list", p)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(name)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return []types.FileStatus{types.StatusFromInfo(p, fi)}, nil
	}

	entries, err := os.ReadDir(name)
	if err != nil {
		return nil, err
	}
	out := make([]types.FileStatus, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		out = append(out, types.StatusFromInfo(p.Join(entry.Name()), info))
	}
	return out, nil
}

// Mkdirs implements types.FileSystem.
func (f *FileSystem) Mkdirs(ctx context.Context, p vpath.Path) error {
	name, err := f.osPath("mkdirs", p)
	if err != nil {
		return err
	}
	return os.MkdirAll(name, 0o755)
}

// GetFileStatus implements types.FileSystem.
func (f *FileSystem) GetFileStatus(ctx context.Context, p vpath.Path) (*types.FileStatus, error) {
	name, err := f.osPath("stat", p)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(name)
	if err != nil {
		return nil, err
	}
	st := types.StatusFromInfo(p, fi)
	return &st, nil
}

// GetAttr implements types.FileSystem using extended attributes.
func (f *FileSystem) GetAttr(ctx context.Context, p vpath.Path, attr string) ([]byte, error) {
	name, err := f.osPath("getattr", p)
	if err != nil {
		return nil, err
	}
	if _, err := os.Lstat(name); err != nil {
		return nil, err
	}
	return getxattr(name, attr)
}

// SetAttr implements types.AttrSetter using extended attributes.
func (f *FileSystem) SetAttr(ctx context.Context, p vpath.Path, attr string, value []byte) error {
	name, err := f.osPath("setattr", p)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(name); err != nil {
		return err
	}
	return setxattr(name, attr, value)
}
