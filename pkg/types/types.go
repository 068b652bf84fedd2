package types

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/objectfs/mountfs/pkg/vpath"
)

// FileStatus describes an object returned by a FileSystem.
type FileStatus struct {
	Path    vpath.Path  `json:"path"`
	Size    int64       `json:"size"`
	IsDir   bool        `json:"is_dir"`
	Mode    os.FileMode `json:"mode"`
	ModTime time.Time   `json:"mod_time"`
	ETag    string      `json:"etag,omitempty"`
}

// Name returns the final path component.
func (s FileStatus) Name() string {
	return s.Path.Name()
}

// Exists reports whether p exists on fsys.
func Exists(ctx context.Context, fsys FileSystem, p vpath.Path) (bool, error) {
	_, err := fsys.GetFileStatus(ctx, p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// NotExist returns an error for p that satisfies errors.Is(err, fs.ErrNotExist).
func NotExist(op string, p vpath.Path) error {
	return &fs.PathError{Op: op, Path: p.String(), Err: fs.ErrNotExist}
}

// StatusFromInfo builds a FileStatus for p from a file info.
func StatusFromInfo(p vpath.Path, fi fs.FileInfo) FileStatus {
	return FileStatus{
		Path:    p,
		Size:    fi.Size(),
		IsDir:   fi.IsDir(),
		Mode:    fi.Mode(),
		ModTime: fi.ModTime(),
	}
}
