package types

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/objectfs/mountfs/pkg/vpath"
)

// Attribute lookup sentinels. Backends wrap these so callers can use errors.Is.
var (
	// ErrAttrNotFound means the object exists but carries no such attribute.
	ErrAttrNotFound = errors.New("attribute not found")
	// ErrAttrNotSupported means the backend cannot store attributes at all.
	ErrAttrNotSupported = errors.New("attributes not supported")
)

// FileSystem is the hierarchical storage API every backend implements and
// the virtual mount namespace re-exposes. Paths carry their scheme and
// authority; a backend only accepts paths of its own scheme.
//
// Not-found conditions wrap io/fs.ErrNotExist.
type FileSystem interface {
	// Scheme returns the URI scheme served by this file system.
	Scheme() string

	// Open opens an object for reading.
	Open(ctx context.Context, p vpath.Path) (io.ReadCloser, error)

	// Create opens an object for writing, creating missing parents. With
	// overwrite false an existing object is an error.
	Create(ctx context.Context, p vpath.Path, overwrite bool) (io.WriteCloser, error)

	// Rename moves src to dst. dst must not exist.
	Rename(ctx context.Context, src, dst vpath.Path) error

	// Delete removes an object, or a directory tree when recursive is set.
	Delete(ctx context.Context, p vpath.Path, recursive bool) error

	// ListStatus lists the direct children of a directory.
	ListStatus(ctx context.Context, p vpath.Path) ([]FileStatus, error)

	// Mkdirs creates a directory and any missing parents.
	Mkdirs(ctx context.Context, p vpath.Path) error

	// GetFileStatus describes a single object.
	GetFileStatus(ctx context.Context, p vpath.Path) (*FileStatus, error)

	// GetAttr reads an out-of-band attribute attached to an object.
	GetAttr(ctx context.Context, p vpath.Path, name string) ([]byte, error)
}

// AttrSetter is implemented by backends that can attach attributes.
type AttrSetter interface {
	SetAttr(ctx context.Context, p vpath.Path, name string, value []byte) error
}

// MetricsCollector receives mount engine events. Implementations must be
// safe for concurrent use.
type MetricsCollector interface {
	RecordResolution(namespace, tier string)
	RecordReload(namespace string, duration time.Duration, success bool)
	RecordPersist(namespace, result string)
	RecordMountEntries(namespace, tier string, entries int)
	RecordOperation(operation string, duration time.Duration, success bool)
}
