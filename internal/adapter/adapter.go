package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/objectfs/mountfs/internal/config"
	"github.com/objectfs/mountfs/internal/filesystem"
	"github.com/objectfs/mountfs/internal/fuse"
	"github.com/objectfs/mountfs/internal/metrics"
	"github.com/objectfs/mountfs/internal/mount"
	"github.com/objectfs/mountfs/internal/scheduler"
	"github.com/objectfs/mountfs/internal/storage"
	"github.com/objectfs/mountfs/internal/storage/local"
	"github.com/objectfs/mountfs/internal/storage/memory"
	"github.com/objectfs/mountfs/internal/storage/s3"
	"github.com/objectfs/mountfs/pkg/errors"
	"github.com/objectfs/mountfs/pkg/health"
	"github.com/objectfs/mountfs/pkg/types"
	"github.com/objectfs/mountfs/pkg/vpath"
)

// Adapter wires storage backends, mount managers and the mount file system
// from one configuration and owns their lifecycle.
type Adapter struct {
	config *config.Configuration
	base   *slog.Logger
	logger *slog.Logger

	metrics   *metrics.Collector
	health    *health.Tracker
	scheduler *scheduler.Scheduler
	storage   *storage.Registry
	factories *mount.FactoryRegistry
	mounts    *mount.Registry
	mountFS   *filesystem.MountFileSystem
	chrootFS  *filesystem.ChrootFileSystem

	mu      sync.Mutex
	views   []*fuse.MountManager
	started bool
	stopped bool
}

// Option customizes an Adapter.
type Option func(*options)

type options struct {
	s3API     s3.API
	factories map[string]mount.FactoryConstructor
	backends  []types.FileSystem
}

// WithS3API serves s3:// paths through api instead of a client built from
// the configuration.
func WithS3API(api s3.API) Option {
	return func(o *options) { o.s3API = api }
}

// WithFactory registers an additional mount factory under name.
func WithFactory(name string, ctor mount.FactoryConstructor) Option {
	return func(o *options) {
		if o.factories == nil {
			o.factories = make(map[string]mount.FactoryConstructor)
		}
		o.factories[name] = ctor
	}
}

// WithBackend registers an additional storage backend.
func WithBackend(fsys types.FileSystem) Option {
	return func(o *options) { o.backends = append(o.backends, fsys) }
}

// New creates a new adapter instance
func New(ctx context.Context, cfg *config.Configuration, logger *slog.Logger, opts ...Option) (*Adapter, error) {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &Adapter{
		config: cfg,
		base:   logger,
		logger: logger.With("component", "adapter"),
	}

	var err error
	a.metrics, err = metrics.NewCollector(&metrics.Config{
		Enabled: cfg.Monitoring.Metrics.Enabled,
		Port:    cfg.Monitoring.Metrics.Port,
		Path:    cfg.Monitoring.Metrics.Path,
	}, logger)
	if err != nil {
		return nil, err
	}

	a.health = health.NewTracker(health.DefaultConfig())
	a.health.AddStateChangeCallback(a.logHealthChange)
	a.metrics.SetHealthHandler(a.health.Handler())

	if a.storage, err = a.buildStorage(ctx, o, logger); err != nil {
		return nil, err
	}

	a.factories = mount.DefaultFactories()
	for name, ctor := range o.factories {
		if err := a.factories.Register(name, ctor); err != nil {
			return nil, err
		}
	}

	a.scheduler = scheduler.New(logger)
	a.mounts = mount.NewRegistry(cfg.Properties, mount.Dependencies{
		FileSystems: a.storage,
		Factories:   a.factories,
		Scheduler:   a.scheduler,
		Metrics:     a.metrics,
		Health:      a.health,
		Logger:      logger,
	})
	a.mountFS = filesystem.NewMountFileSystem(a.mounts, a.storage, a.metrics, logger)
	if a.chrootFS, err = filesystem.NewChrootFileSystemFromProperties(cfg.Properties, a.storage, a.metrics, logger); err != nil {
		return nil, err
	}

	a.logger.Debug("adapter created",
		"schemes", strings.Join(a.storage.Schemes(), ","),
		"factories", strings.Join(a.factories.Names(), ","),
		"namespaces", strings.Join(cfg.Properties.Namespaces(), ","),
		"chroots", strings.Join(cfg.Properties.Chroots(), ","))
	return a, nil
}

func (a *Adapter) buildStorage(ctx context.Context, o options, logger *slog.Logger) (*storage.Registry, error) {
	reg := storage.NewRegistry(a.config.Storage.DefaultScheme)
	backends := []types.FileSystem{
		local.New(logger),
		memory.New(logger),
	}

	s3cfg := &s3.Config{
		Region:         a.config.Storage.S3.Region,
		Endpoint:       a.config.Storage.S3.Endpoint,
		Profile:        a.config.Storage.S3.Profile,
		ForcePathStyle: a.config.Storage.S3.UsePathStyle,
		MaxRetries:     a.config.Network.Retry.MaxAttempts,
		RetryBaseDelay: a.config.Network.Retry.BaseDelay,
		RetryMaxDelay:  a.config.Network.Retry.MaxDelay,

		EnableCargoShipOptimization: a.config.Storage.S3.AcceleratedUploads,
		UploadThreshold:             a.config.Storage.S3.UploadThreshold,
		UploadConcurrency:           a.config.Storage.S3.UploadConcurrency,
	}
	switch {
	case o.s3API != nil:
		backends = append(backends, s3.NewBackend(o.s3API, s3cfg, logger))
	case !a.config.Storage.S3.Disabled:
		backend, err := s3.NewBackendFromConfig(ctx, s3cfg, logger)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConnectionFailed, "failed to create S3 backend").
				WithComponent("adapter")
		}
		backends = append(backends, backend)
	}
	backends = append(backends, o.backends...)

	for _, b := range backends {
		if err := reg.Register(b); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Start starts the metrics endpoint and creates the manager of every
// configured namespace, loading its mount table once.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return errors.NewError(errors.ErrCodeComponentStopped, "adapter is stopped").WithComponent("adapter")
	}
	if a.started {
		return nil
	}

	if err := a.metrics.Start(ctx); err != nil {
		return err
	}
	for _, prefix := range a.config.Properties.Namespaces() {
		root, err := NamespaceRoot(prefix)
		if err != nil {
			return err
		}
		a.health.RegisterComponent(prefix)
		m, err := a.mounts.Manager(ctx, root)
		if err != nil {
			return err
		}
		if err := m.ReloadMounts(ctx); err != nil {
			a.logger.Warn("initial mount table load failed", "namespace", prefix, "error", err)
		}
	}

	a.started = true
	a.logger.Info("adapter started", "namespaces", len(a.mounts.Managers()))
	return nil
}

// Stop unmounts FUSE views, cancels reloads and stops the metrics endpoint.
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return nil
	}
	a.stopped = true

	var firstErr error
	for _, v := range a.views {
		if v.IsMounted() {
			if err := v.Unmount(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	a.mounts.Close()
	a.scheduler.Stop()
	if err := a.metrics.Stop(ctx); err != nil && firstErr == nil {
		firstErr = err
	}

	a.logger.Info("adapter stopped")
	return firstErr
}

func (a *Adapter) logHealthChange(namespace string, oldState, newState health.HealthState, err error) {
	attrs := []any{"namespace", namespace, "from", oldState.String(), "to", newState.String()}
	switch {
	case newState == health.StateHealthy:
		a.logger.Info("mount table recovered", attrs...)
	case newState == health.StateUnavailable:
		a.logger.Error("mount table unavailable", append(attrs, "error", err)...)
	default:
		a.logger.Warn("mount table unhealthy", append(attrs, "error", err)...)
	}
}

// Config returns the configuration the adapter was built from.
func (a *Adapter) Config() *config.Configuration {
	return a.config
}

// Health returns the tracker of mount table health per namespace.
func (a *Adapter) Health() *health.Tracker {
	return a.health
}

// Storage returns the registry of real backends.
func (a *Adapter) Storage() *storage.Registry {
	return a.storage
}

// Mounts returns the mount manager registry.
func (a *Adapter) Mounts() *mount.Registry {
	return a.mounts
}

// MountFS returns the mount:// file system.
func (a *Adapter) MountFS() *filesystem.MountFileSystem {
	return a.mountFS
}

// ChrootFS returns the chroot:// file system.
func (a *Adapter) ChrootFS() *filesystem.ChrootFileSystem {
	return a.chrootFS
}

// Metrics returns the metrics collector.
func (a *Adapter) Metrics() *metrics.Collector {
	return a.metrics
}

// ParsePath parses s, filling in the default scheme for bare paths.
func (a *Adapter) ParsePath(s string) (vpath.Path, error) {
	p, err := vpath.Parse(s)
	if err != nil {
		return vpath.Path{}, err
	}
	return a.storage.Qualify(p), nil
}

// FileSystem returns the file system serving p: the mount file system for
// mount:// paths, the chroot file system for chroot:// paths and the
// matching backend otherwise.
func (a *Adapter) FileSystem(p vpath.Path) (types.FileSystem, error) {
	switch p.Scheme {
	case filesystem.MountScheme:
		return a.mountFS, nil
	case filesystem.ChrootScheme:
		return a.chrootFS, nil
	}
	return a.storage.ForPath(p)
}

// Manager returns the mount manager of the namespace p belongs to.
func (a *Adapter) Manager(ctx context.Context, p vpath.Path) (*mount.Manager, error) {
	if p.Scheme != filesystem.MountScheme {
		return nil, errors.Newf(errors.ErrCodePathInvalid, "%s is not a mount path", p).
			WithComponent("adapter")
	}
	return a.mounts.Manager(ctx, p)
}

// MountFUSE exposes the namespace of root at dir. The view is unmounted by
// Stop.
func (a *Adapter) MountFUSE(ctx context.Context, root vpath.Path, dir string) (*fuse.MountManager, error) {
	if _, err := a.Manager(ctx, root); err != nil {
		return nil, err
	}

	fc := fuse.DefaultConfig()
	fc.DefaultUID, fc.DefaultGID = fuse.CurrentOwner()
	fc.EntryTimeout = a.config.FUSE.EntryTimeout
	fc.AttrTimeout = a.config.FUSE.AttrTimeout

	view := fuse.NewFileSystem(a.mountFS, root.Namespace(), fc, a.metrics, a.base)
	mgr := fuse.NewMountManager(view, &fuse.MountConfig{
		MountPoint: dir,
		AllowOther: a.config.FUSE.AllowOther,
		Debug:      a.config.FUSE.Debug,
	}, a.base)
	if err := mgr.Mount(ctx); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.views = append(a.views, mgr)
	a.mu.Unlock()
	return mgr, nil
}

// NamespaceRoot returns the root path of the namespace configured under
// prefix "<scheme>.<authority>".
func NamespaceRoot(prefix string) (vpath.Path, error) {
	scheme, authority, ok := strings.Cut(prefix, ".")
	if !ok || scheme == "" || authority == "" {
		return vpath.Path{}, errors.Newf(errors.ErrCodeInvalidConfig, "invalid namespace prefix %q", prefix).
			WithComponent("adapter")
	}
	return vpath.New(scheme, authority, "/"), nil
}
