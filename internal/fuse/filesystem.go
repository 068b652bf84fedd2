package fuse

import (
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	gofs "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/objectfs/mountfs/pkg/errors"
	"github.com/objectfs/mountfs/pkg/types"
	"github.com/objectfs/mountfs/pkg/vpath"
)

// safeInt64ToUint64 safely converts int64 to uint64, preventing negative values
func safeInt64ToUint64(i int64) uint64 {
	if i < 0 {
		return 0
	}
	return uint64(i)
}

// safeIntToUint32 safely converts int to uint32, preventing overflow
func safeIntToUint32(i int) uint32 {
	if i < 0 {
		return 0
	}
	if i > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(i)
}

// Config holds the attributes reported for every node.
type Config struct {
	DefaultUID uint32 `yaml:"default_uid"`
	DefaultGID uint32 `yaml:"default_gid"`
	FileMode   uint32 `yaml:"file_mode"`
	DirMode    uint32 `yaml:"dir_mode"`

	EntryTimeout time.Duration `yaml:"entry_timeout"`
	AttrTimeout  time.Duration `yaml:"attr_timeout"`
}

// DefaultConfig returns the attributes used when none are configured.
func DefaultConfig() *Config {
	return &Config{
		DefaultUID:   1000,
		DefaultGID:   1000,
		FileMode:     0o444,
		DirMode:      0o555,
		EntryTimeout: time.Second,
		AttrTimeout:  time.Second,
	}
}

// FileSystem serves a read-only view of one namespace of a storage
// FileSystem.
type FileSystem struct {
	backend types.FileSystem
	root    vpath.Path
	config  *Config
	metrics types.MetricsCollector
	logger  *slog.Logger

	stats Stats
}

// Stats counts the requests answered by the view.
type Stats struct {
	Lookups   atomic.Int64
	Readdirs  atomic.Int64
	Opens     atomic.Int64
	Reads     atomic.Int64
	BytesRead atomic.Int64
	Errors    atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Lookups   int64 `json:"lookups"`
	Readdirs  int64 `json:"readdirs"`
	Opens     int64 `json:"opens"`
	Reads     int64 `json:"reads"`
	BytesRead int64 `json:"bytes_read"`
	Errors    int64 `json:"errors"`
}

// NewFileSystem creates a view of root served by backend. config, metrics
// and logger may be nil.
func NewFileSystem(backend types.FileSystem, root vpath.Path, config *Config, metrics types.MetricsCollector, logger *slog.Logger) *FileSystem {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSystem{
		backend: backend,
		root:    root,
		config:  config,
		metrics: metrics,
		logger:  logger.With("component", "fuse", "root", root.String()),
	}
}

// Root returns the root inode
func (f *FileSystem) Root() gofs.InodeEmbedder {
	return &DirectoryNode{fsys: f, path: f.root}
}

// GetStats returns current filesystem statistics
func (f *FileSystem) GetStats() StatsSnapshot {
	return StatsSnapshot{
		Lookups:   f.stats.Lookups.Load(),
		Readdirs:  f.stats.Readdirs.Load(),
		Opens:     f.stats.Opens.Load(),
		Reads:     f.stats.Reads.Load(),
		BytesRead: f.stats.BytesRead.Load(),
		Errors:    f.stats.Errors.Load(),
	}
}

func (f *FileSystem) fail(op string, p vpath.Path, err error) syscall.Errno {
	errno := toErrno(err)
	if errno != syscall.ENOENT {
		f.stats.Errors.Add(1)
		f.logger.Warn("request failed", "op", op, "path", p.String(), "error", err)
	}
	return errno
}

func (f *FileSystem) observe(op string, start time.Time, errno syscall.Errno) {
	if f.metrics != nil {
		f.metrics.RecordOperation("fuse_"+op, time.Since(start), errno == 0)
	}
}

// fillAttr copies st into out using the configured ownership and modes.
func (f *FileSystem) fillAttr(st *types.FileStatus, out *fuse.Attr) {
	if st.IsDir {
		out.Mode = fuse.S_IFDIR | f.config.DirMode
		out.Nlink = 2
	} else {
		out.Mode = fuse.S_IFREG | f.config.FileMode
		out.Nlink = 1
		out.Size = safeInt64ToUint64(st.Size)
	}
	out.Uid = f.config.DefaultUID
	out.Gid = f.config.DefaultGID

	mtime := st.ModTime
	if mtime.IsZero() {
		mtime = time.Unix(0, 0)
	}
	out.SetTimes(&mtime, &mtime, &mtime)
}

// toErrno maps storage errors onto errno values.
func toErrno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case stderrors.Is(err, fs.ErrNotExist), errors.HasCode(err, errors.ErrCodePathOutOfScope):
		return syscall.ENOENT
	case stderrors.Is(err, fs.ErrPermission), errors.HasCode(err, errors.ErrCodeAccessDenied):
		return syscall.EACCES
	case stderrors.Is(err, context.Canceled):
		return syscall.EINTR
	default:
		return syscall.EIO
	}
}

// DirectoryNode represents a directory in the filesystem
type DirectoryNode struct {
	gofs.Inode
	fsys *FileSystem
	path vpath.Path
}

var (
	_ gofs.NodeLookuper  = (*DirectoryNode)(nil)
	_ gofs.NodeReaddirer = (*DirectoryNode)(nil)
	_ gofs.NodeGetattrer = (*DirectoryNode)(nil)
)

// Lookup looks up a child node by name
func (n *DirectoryNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (node *gofs.Inode, errno syscall.Errno) {
	defer func(start time.Time) { n.fsys.observe("lookup", start, errno) }(time.Now())
	n.fsys.stats.Lookups.Add(1)

	child := n.path.Join(name)
	st, err := n.fsys.backend.GetFileStatus(ctx, child)
	if err != nil {
		return nil, n.fsys.fail("lookup", child, err)
	}

	n.fsys.fillAttr(st, &out.Attr)
	out.SetEntryTimeout(n.fsys.config.EntryTimeout)
	out.SetAttrTimeout(n.fsys.config.AttrTimeout)

	if st.IsDir {
		return n.NewInode(ctx, &DirectoryNode{fsys: n.fsys, path: child}, gofs.StableAttr{Mode: fuse.S_IFDIR}), 0
	}
	return n.NewInode(ctx, &FileNode{fsys: n.fsys, path: child}, gofs.StableAttr{Mode: fuse.S_IFREG}), 0
}

// Readdir reads directory contents
func (n *DirectoryNode) Readdir(ctx context.Context) (stream gofs.DirStream, errno syscall.Errno) {
	defer func(start time.Time) { n.fsys.observe("readdir", start, errno) }(time.Now())
	n.fsys.stats.Readdirs.Add(1)

	entries, err := n.fsys.backend.ListStatus(ctx, n.path)
	if err != nil {
		return nil, n.fsys.fail("readdir", n.path, err)
	}

	out := make([]fuse.DirEntry, 0, len(entries))
	for _, st := range entries {
		mode := uint32(fuse.S_IFREG)
		if st.IsDir {
			mode = fuse.S_IFDIR
		}
		out = append(out, fuse.DirEntry{Name: st.Name(), Mode: mode})
	}
	return gofs.NewListDirStream(out), 0
}

// Getattr gets directory attributes
func (n *DirectoryNode) Getattr(ctx context.Context, _ gofs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	st, err := n.fsys.backend.GetFileStatus(ctx, n.path)
	if err != nil {
		if !n.path.IsRoot() {
			return n.fsys.fail("getattr", n.path, err)
		}
		// The namespace root may have no backing directory yet.
		st = &types.FileStatus{Path: n.path, IsDir: true}
	}
	n.fsys.fillAttr(st, &out.Attr)
	out.SetTimeout(n.fsys.config.AttrTimeout)
	return 0
}

// FileNode represents a file in the filesystem
type FileNode struct {
	gofs.Inode
	fsys *FileSystem
	path vpath.Path
}

var (
	_ gofs.NodeOpener    = (*FileNode)(nil)
	_ gofs.NodeGetattrer = (*FileNode)(nil)
)

// Getattr gets file attributes
func (n *FileNode) Getattr(ctx context.Context, _ gofs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	st, err := n.fsys.backend.GetFileStatus(ctx, n.path)
	if err != nil {
		return n.fsys.fail("getattr", n.path, err)
	}
	n.fsys.fillAttr(st, &out.Attr)
	out.SetTimeout(n.fsys.config.AttrTimeout)
	return 0
}

// Open opens a file for reading. Write access fails with EROFS.
func (n *FileNode) Open(ctx context.Context, flags uint32) (fh gofs.FileHandle, fuseFlags uint32, errno syscall.Errno) {
	defer func(start time.Time) { n.fsys.observe("open", start, errno) }(time.Now())
	n.fsys.stats.Opens.Add(1)

	if flags&(syscall.O_WRONLY|syscall.O_RDWR|syscall.O_CREAT|syscall.O_TRUNC|syscall.O_APPEND) != 0 {
		return nil, 0, syscall.EROFS
	}
	r, err := n.fsys.backend.Open(ctx, n.path)
	if err != nil {
		return nil, 0, n.fsys.fail("open", n.path, err)
	}
	return &FileHandle{fsys: n.fsys, path: n.path, reader: r}, 0, 0
}

// FileHandle represents an open file handle. Reads at the current offset
// stream; other offsets use ReadAt when the reader supports it and reopen
// the object otherwise.
type FileHandle struct {
	fsys *FileSystem
	path vpath.Path

	mu     sync.Mutex
	reader io.ReadCloser
	pos    int64
}

var (
	_ gofs.FileReader   = (*FileHandle)(nil)
	_ gofs.FileReleaser = (*FileHandle)(nil)
)

// Read reads data from the file
func (h *FileHandle) Read(ctx context.Context, dest []byte, off int64) (res fuse.ReadResult, errno syscall.Errno) {
	defer func(start time.Time) { h.fsys.observe("read", start, errno) }(time.Now())
	h.fsys.stats.Reads.Add(1)

	h.mu.Lock()
	defer h.mu.Unlock()

	n, err := h.readAt(ctx, dest, off)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, h.fsys.fail("read", h.path, err)
	}
	h.fsys.stats.BytesRead.Add(int64(n))
	return fuse.ReadResultData(dest[:n]), 0
}

func (h *FileHandle) readAt(ctx context.Context, dest []byte, off int64) (int, error) {
	if h.reader == nil {
		return 0, fs.ErrClosed
	}
	if ra, ok := h.reader.(io.ReaderAt); ok {
		return ra.ReadAt(dest, off)
	}

	if off < h.pos {
		if err := h.reopen(ctx); err != nil {
			return 0, err
		}
	}
	if off > h.pos {
		skipped, err := io.CopyN(io.Discard, h.reader, off-h.pos)
		h.pos += skipped
		if err != nil {
			return 0, err
		}
	}
	n, err := io.ReadFull(h.reader, dest)
	h.pos += int64(n)
	return n, err
}

func (h *FileHandle) reopen(ctx context.Context) error {
	_ = h.reader.Close()
	h.reader = nil
	r, err := h.fsys.backend.Open(ctx, h.path)
	if err != nil {
		return err
	}
	h.reader, h.pos = r, 0
	return nil
}

// Release releases the file handle
func (h *FileHandle) Release(ctx context.Context) syscall.Errno {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.reader == nil {
		return 0
	}
	err := h.reader.Close()
	h.reader = nil
	if err != nil {
		return h.fsys.fail("release", h.path, err)
	}
	return 0
}
