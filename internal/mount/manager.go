package mount

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/objectfs/mountfs/internal/config"
	"github.com/objectfs/mountfs/internal/scheduler"
	"github.com/objectfs/mountfs/pkg/errors"
	"github.com/objectfs/mountfs/pkg/types"
	"github.com/objectfs/mountfs/pkg/vpath"
)

// Tier names the source a resolved mount came from.
type Tier string

// Resolution tiers in order of precedence.
const (
	TierExplicit   Tier = "explicit"
	TierReloadable Tier = "reloadable"
	TierDynamic    Tier = "dynamic"
	TierDefault    Tier = "default"
)

// Dependencies are shared by the managers of a process.
type Dependencies struct {
	FileSystems FileSystems
	Factories   *FactoryRegistry
	Scheduler   *scheduler.Scheduler
	Metrics     types.MetricsCollector
	Health      HealthRecorder
	Logger      *slog.Logger
}

// HealthRecorder receives the outcome of mount table reloads and updates,
// keyed by namespace prefix.
type HealthRecorder interface {
	RecordSuccess(component string)
	RecordError(component string, err error)
}

// Manager resolves the virtual paths of one namespace and owns its mount
// state.
//
// Each tier is safe for concurrent readers on its own; a resolution reads
// the tiers one after another without a lock spanning them.
type Manager struct {
	root         vpath.Path
	ns           config.NamespaceConfig
	tablePath    vpath.Path
	codec        EntryCodec
	fileSystems  FileSystems
	factory      Factory
	defaultMount *PathRewrite

	explicit      sync.Map // MountKey -> *PathRewrite
	explicitCount atomic.Int64
	reloadable    atomic.Pointer[map[MountKey]*PathRewrite]

	persistMu sync.Mutex
	handle    *scheduler.Handle
	closeOnce sync.Once

	metrics types.MetricsCollector
	health  HealthRecorder
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// NewManager creates the manager of the namespace rooted at root and, unless
// automatic updates are disabled, schedules its periodic reload.
func NewManager(ctx context.Context, root vpath.Path, ns *config.NamespaceConfig, deps Dependencies) (*Manager, error) {
	if ns == nil {
		return nil, errors.NewError(errors.ErrCodeMissingConfig, "namespace configuration is required").
			WithComponent("mount")
	}
	if deps.FileSystems == nil {
		return nil, errors.NewError(errors.ErrCodeNotInitialized, "file systems are required").
			WithComponent("mount")
	}
	if err := ns.Validate(); err != nil {
		return nil, fmt.Errorf("namespace %s: %w", ns.Prefix, err)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	if deps.Health == nil {
		deps.Health = noopHealth{}
	}
	if deps.Factories == nil {
		deps.Factories = DefaultFactories()
	}

	root = root.Namespace()
	defaultReal, err := vpath.Parse(ns.DefaultMount)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		root:         root,
		ns:           *ns,
		codec:        EntryCodec{RealField: ns.RealField, VirtualField: ns.VirtualField},
		fileSystems:  deps.FileSystems,
		defaultMount: NewPathRewrite(deps.FileSystems.Qualify(defaultReal), root),
		metrics:      deps.Metrics,
		health:       deps.Health,
		logger:       deps.Logger.With("component", "mount-manager", "namespace", ns.Prefix),
		now:          time.Now,
		newID:        newTempID,
	}
	empty := make(map[MountKey]*PathRewrite)
	m.reloadable.Store(&empty)

	if ns.Path != "" {
		tablePath, err := vpath.Parse(ns.Path)
		if err != nil {
			return nil, err
		}
		m.tablePath = deps.FileSystems.Qualify(tablePath)
	}

	m.factory, err = deps.Factories.New(ns.FactoryClass, FactoryParams{
		Namespace:    ns,
		DefaultMount: m.defaultMount,
		FileSystems:  deps.FileSystems,
		Logger:       deps.Logger,
	})
	if err != nil {
		return nil, err
	}
	if err := m.factory.Initialize(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMountFailed, "mount factory initialization failed").
			WithComponent("mount").
			WithDetail("factory", ns.FactoryClass)
	}

	if !ns.AutomaticUpdatesDisabled {
		if deps.Scheduler == nil {
			return nil, errors.NewError(errors.ErrCodeNotInitialized, "scheduler is required for automatic updates").
				WithComponent("mount")
		}
		m.handle, err = deps.Scheduler.Schedule("mount-reload/"+ns.Prefix, ns.Delay, ns.Period, m.reloadTask)
		if err != nil {
			return nil, err
		}
	}

	m.logger.Info("mount manager created",
		"root", root.String(),
		"default_mount", m.defaultMount.RealRoot().String(),
		"table", m.tablePath.String(),
		"factory", ns.FactoryClass,
		"automatic_updates", !ns.AutomaticUpdatesDisabled)
	return m, nil
}

// Root returns the root of the managed namespace.
func (m *Manager) Root() vpath.Path {
	return m.root
}

// Prefix returns the property prefix of the namespace.
func (m *Manager) Prefix() string {
	return m.ns.Prefix
}

// TablePath returns the backing mount table, zero if none is configured.
func (m *Manager) TablePath() vpath.Path {
	return m.tablePath
}

// DefaultMount returns the catch-all mount of the namespace root.
func (m *Manager) DefaultMount() *PathRewrite {
	return m.defaultMount
}

// GetMount returns the mount governing p.
func (m *Manager) GetMount(ctx context.Context, p vpath.Path) (Mount, error) {
	mt, _, err := m.Resolve(ctx, p)
	return mt, err
}

// Resolve returns the mount governing p and the tier it was found in.
func (m *Manager) Resolve(ctx context.Context, p vpath.Path) (Mount, Tier, error) {
	if !p.SameNamespace(m.root) {
		return nil, "", outOfScope("getMount", p, m.root)
	}

	key := NewMountKey(p)
	var (
		mt   Mount
		tier Tier
	)
	if found := m.findExplicit(key); found != nil {
		mt, tier = found, TierExplicit
	} else if found := findMount(*m.reloadable.Load(), key); found != nil {
		mt, tier = found, TierReloadable
	} else if found := m.findDynamic(ctx, key); found != nil {
		mt, tier = found, TierDynamic
	} else {
		mt, tier = m.defaultMount, TierDefault
	}

	m.metrics.RecordResolution(m.ns.Prefix, string(tier))
	m.logger.Debug("resolved mount", "path", p.String(), "tier", string(tier), "mount", mt.Key().String())
	return mt, tier, nil
}

// RealPath translates p through the mount governing it.
func (m *Manager) RealPath(ctx context.Context, p vpath.Path) (vpath.Path, error) {
	mt, err := m.GetMount(ctx, p)
	if err != nil {
		return vpath.Path{}, err
	}
	return mt.ToMountPath(p)
}

func (m *Manager) findExplicit(key MountKey) *PathRewrite {
	for k, ok := key, true; ok; k, ok = k.ParentKey() {
		if v, found := m.explicit.Load(k); found {
			return v.(*PathRewrite)
		}
	}
	return nil
}

func findMount(mounts map[MountKey]*PathRewrite, key MountKey) *PathRewrite {
	for k, ok := key, true; ok; k, ok = k.ParentKey() {
		if mt, found := mounts[k]; found {
			return mt
		}
	}
	return nil
}

func (m *Manager) findDynamic(ctx context.Context, key MountKey) Mount {
	for k, ok := key, true; ok; k, ok = k.ParentKey() {
		mt, err := m.factory.FindMount(ctx, k)
		if err != nil {
			m.logger.Debug("mount factory lookup failed", "key", k.String(), "error", err)
			continue
		}
		if mt != nil {
			return mt
		}
	}
	return nil
}

// AddMount registers realPath <-> virtualPath for the rest of the process
// lifetime, replacing an explicit mount with the same virtual root. With
// persist the entry is also appended to the mount table; the mount stays
// registered even if persisting fails.
func (m *Manager) AddMount(ctx context.Context, realPath, virtualPath vpath.Path, persist bool) error {
	if !virtualPath.SameNamespace(m.root) {
		return outOfScope("addMount", virtualPath, m.root)
	}

	mt := NewPathRewrite(m.fileSystems.Qualify(realPath), virtualPath)
	if _, loaded := m.explicit.Swap(mt.Key(), mt); !loaded {
		m.explicitCount.Add(1)
	}
	m.metrics.RecordMountEntries(m.ns.Prefix, string(TierExplicit), int(m.explicitCount.Load()))
	m.logger.Info("mount added", "virtual", virtualPath.String(), "real", mt.RealRoot().String(), "persist", persist)

	if !persist {
		return nil
	}
	return m.persist(ctx, mt)
}

// ReloadMounts replaces the reloadable tier with the content of the mount
// table. A missing table leaves the tier unchanged; so does any malformed
// line, reported as MOUNT_TABLE_PARSE.
func (m *Manager) ReloadMounts(ctx context.Context) error {
	if m.tablePath.IsZero() {
		return nil
	}

	start := time.Now()
	mounts, found, err := m.loadTable(ctx)
	if err != nil {
		m.metrics.RecordReload(m.ns.Prefix, time.Since(start), false)
		m.health.RecordError(m.ns.Prefix, err)
		return err
	}
	m.health.RecordSuccess(m.ns.Prefix)
	if !found {
		m.logger.Debug("mount table not found, keeping current mounts", "path", m.tablePath.String())
		return nil
	}

	m.reloadable.Store(&mounts)
	m.metrics.RecordReload(m.ns.Prefix, time.Since(start), true)
	m.metrics.RecordMountEntries(m.ns.Prefix, string(TierReloadable), len(mounts))
	m.logger.Debug("mount table reloaded", "path", m.tablePath.String(), "entries", len(mounts))
	return nil
}

// reloadTask runs one scheduled reload. A reload that has started runs to
// completion even if the schedule is cancelled meanwhile.
func (m *Manager) reloadTask(ctx context.Context) {
	if err := m.ReloadMounts(context.WithoutCancel(ctx)); err != nil {
		m.logger.Error("background mount reload failed", "path", m.tablePath.String(), "error", err)
	}
}

// Snapshot is a point-in-time copy of the stored mounts.
type Snapshot struct {
	Default    *PathRewrite
	Explicit   []*PathRewrite
	Reloadable []*PathRewrite
}

// Snapshot returns the stored mounts ordered by virtual root.
func (m *Manager) Snapshot() Snapshot {
	s := Snapshot{Default: m.defaultMount}
	m.explicit.Range(func(_, v any) bool {
		s.Explicit = append(s.Explicit, v.(*PathRewrite))
		return true
	})
	for _, mt := range *m.reloadable.Load() {
		s.Reloadable = append(s.Reloadable, mt)
	}
	sortMounts(s.Explicit)
	sortMounts(s.Reloadable)
	return s
}

func sortMounts(mounts []*PathRewrite) {
	sort.Slice(mounts, func(i, j int) bool {
		return mounts[i].VirtualRoot().String() < mounts[j].VirtualRoot().String()
	})
}

// Close cancels the periodic reload. Resolution keeps working.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		if m.handle != nil {
			m.handle.Cancel()
		}
		m.logger.Debug("mount manager closed")
	})
}

type noopHealth struct{}

func (noopHealth) RecordSuccess(string)       {}
func (noopHealth) RecordError(string, error) {}

type noopMetrics struct{}

func (noopMetrics) RecordResolution(string, string)             {}
func (noopMetrics) RecordReload(string, time.Duration, bool)    {}
func (noopMetrics) RecordPersist(string, string)                {}
func (noopMetrics) RecordMountEntries(string, string, int)      {}
func (noopMetrics) RecordOperation(string, time.Duration, bool) {}
