package fuse

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	gofs "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/objectfs/mountfs/pkg/errors"
)

// MountConfig contains mount-specific configuration
type MountConfig struct {
	MountPoint string `yaml:"mount_point"`
	AllowOther bool   `yaml:"allow_other"`
	Debug      bool   `yaml:"debug"`
	FSName     string `yaml:"fsname"`
	Subtype    string `yaml:"subtype"`
}

// MountManager manages FUSE mount operations
type MountManager struct {
	filesystem *FileSystem
	config     *MountConfig
	logger     *slog.Logger

	mu      sync.Mutex
	server  *fuse.Server
	mounted bool
	done    chan struct{}
}

// NewMountManager creates a new mount manager
func NewMountManager(filesystem *FileSystem, config *MountConfig, logger *slog.Logger) *MountManager {
	if config == nil {
		config = &MountConfig{}
	}
	if config.FSName == "" {
		config.FSName = "mountfs"
	}
	if config.Subtype == "" {
		config.Subtype = filesystem.root.Scheme
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MountManager{
		filesystem: filesystem,
		config:     config,
		logger:     logger.With("component", "fuse-mount", "mount_point", config.MountPoint),
	}
}

// Mount mounts the filesystem at the configured mount point and serves it
// in the background.
func (m *MountManager) Mount(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mounted {
		return errors.NewError(errors.ErrCodeMountFailed, "filesystem is already mounted").
			WithComponent("fuse").WithOperation("mount")
	}
	if err := m.validateMountPoint(); err != nil {
		return errors.Wrap(err, errors.ErrCodeMountFailed, "invalid mount point").
			WithComponent("fuse").WithOperation("mount").WithDetail("mount_point", m.config.MountPoint)
	}

	server, err := gofs.Mount(m.config.MountPoint, m.filesystem.Root(), m.buildFUSEOptions())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeMountFailed, "failed to mount filesystem").
			WithComponent("fuse").WithOperation("mount").WithDetail("mount_point", m.config.MountPoint)
	}

	m.server = server
	m.mounted = true
	m.done = make(chan struct{})
	m.logger.Info("filesystem mounted", "root", m.filesystem.root.String())

	go func(server *fuse.Server, done chan struct{}) {
		server.Wait()
		m.mu.Lock()
		m.mounted = false
		m.mu.Unlock()
		close(done)
		m.logger.Info("FUSE server stopped")
	}(server, m.done)

	return nil
}

// Unmount unmounts the filesystem
func (m *MountManager) Unmount() error {
	m.mu.Lock()
	server := m.server
	mounted := m.mounted
	m.mu.Unlock()

	if !mounted || server == nil {
		return errors.NewError(errors.ErrCodeComponentStopped, "filesystem is not mounted").
			WithComponent("fuse").WithOperation("unmount")
	}

	m.logger.Info("unmounting filesystem")
	if err := server.Unmount(); err != nil {
		m.logger.Warn("normal unmount failed, trying lazy unmount", "error", err)
		if forceErr := m.forceUnmount(); forceErr != nil {
			return fmt.Errorf("unmount failed: %w (force unmount also failed: %v)", err, forceErr)
		}
	}

	m.mu.Lock()
	m.server = nil
	m.mu.Unlock()
	return nil
}

// IsMounted checks if the filesystem is currently mounted
func (m *MountManager) IsMounted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mounted
}

// GetMountPoint returns the current mount point
func (m *MountManager) GetMountPoint() string {
	return m.config.MountPoint
}

// Wait blocks until the filesystem is unmounted or ctx is done.
func (m *MountManager) Wait(ctx context.Context) error {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetStats returns filesystem statistics
func (m *MountManager) GetStats() StatsSnapshot {
	return m.filesystem.GetStats()
}

func (m *MountManager) validateMountPoint() error {
	if m.config.MountPoint == "" {
		return fmt.Errorf("mount point cannot be empty")
	}

	info, err := os.Stat(m.config.MountPoint)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("mount point does not exist: %s", m.config.MountPoint)
		}
		return fmt.Errorf("cannot access mount point: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("mount point is not a directory: %s", m.config.MountPoint)
	}

	entries, err := os.ReadDir(m.config.MountPoint)
	if err != nil {
		return fmt.Errorf("cannot read mount point directory: %w", err)
	}
	if len(entries) > 0 {
		m.logger.Warn("mount point is not empty")
	}

	if isMounted("/proc/mounts", m.config.MountPoint) {
		return fmt.Errorf("mount point %s is already mounted", m.config.MountPoint)
	}
	return nil
}

func (m *MountManager) buildFUSEOptions() *gofs.Options {
	entryTimeout := m.filesystem.config.EntryTimeout
	attrTimeout := m.filesystem.config.AttrTimeout
	negativeTimeout := time.Duration(0)

	opts := &gofs.Options{
		MountOptions: fuse.MountOptions{
			Name:       m.config.FSName,
			FsName:     m.config.FSName,
			Debug:      m.config.Debug,
			AllowOther: m.config.AllowOther,
		},
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		UID:             m.filesystem.config.DefaultUID,
		GID:             m.filesystem.config.DefaultGID,
	}
	opts.Options = append(opts.Options, "ro")
	if m.config.Subtype != "" {
		opts.Options = append(opts.Options, "subtype="+m.config.Subtype)
	}
	return opts
}

func (m *MountManager) forceUnmount() error {
	// 2 is MNT_DETACH on Linux.
	return syscall.Unmount(m.config.MountPoint, 2)
}

// isMounted reports whether mountPoint appears as a mount target in the
// mounts table at mountsFile.
func isMounted(mountsFile, mountPoint string) bool {
	f, err := os.Open(mountsFile)
	if err != nil {
		return false
	}
	defer f.Close()

	target := filepath.Clean(mountPoint)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && filepath.Clean(fields[1]) == target {
			return true
		}
	}
	return false
}

// CurrentOwner returns the uid and gid of the running process.
func CurrentOwner() (uid, gid uint32) {
	return safeIntToUint32(os.Getuid()), safeIntToUint32(os.Getgid())
}
