package filesystem

import (
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/objectfs/mountfs/internal/config"
	"github.com/objectfs/mountfs/internal/mount"
	"github.com/objectfs/mountfs/internal/storage"
	"github.com/objectfs/mountfs/internal/storage/memory"
	"github.com/objectfs/mountfs/pkg/types"
	"github.com/objectfs/mountfs/pkg/utils"
	"github.com/objectfs/mountfs/pkg/vpath"
)

func newStorage(t *testing.T) *storage.Registry {
	t.Helper()
	reg := storage.NewRegistry(memory.Scheme)
	require.NoError(t, reg.Register(memory.New(utils.DiscardLogger())))
	return reg
}

func newMountFS(t *testing.T, metrics types.MetricsCollector) (*MountFileSystem, *storage.Registry) {
	t.Helper()
	fss := newStorage(t)
	props := config.Properties{
		"mount.x.default.mount":              "mem://data/",
		"mount.x.path":                       "mem://t/mounts",
		"mount.x.automatic.updates.disabled": "true",
		"mount.y.default.mount":              "mem://other/",
		"mount.y.automatic.updates.disabled": "true",
	}
	mounts := mount.NewRegistry(props, mount.Dependencies{
		FileSystems: fss,
		Metrics:     metrics,
		Logger:      utils.DiscardLogger(),
	})
	t.Cleanup(mounts.Close)
	return NewMountFileSystem(mounts, fss, metrics, utils.DiscardLogger()), fss
}

func write(t *testing.T, fsys types.FileSystem, p, content string) {
	t.Helper()
	w, err := fsys.Create(context.Background(), vpath.MustParse(p), true)
	require.NoError(t, err)
	_, err = io.WriteString(w, content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func read(t *testing.T, fsys types.FileSystem, p string) string {
	t.Helper()
	r, err := fsys.Open(context.Background(), vpath.MustParse(p))
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func realFS(t *testing.T, fss *storage.Registry) types.FileSystem {
	t.Helper()
	fsys, err := fss.Lookup(memory.Scheme)
	require.NoError(t, err)
	return fsys
}

func paths(entries []types.FileStatus) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path.String())
	}
	sort.Strings(out)
	return out
}

type operationMetrics struct {
	mu  sync.Mutex
	ops map[string][]bool
}

func newOperationMetrics() *operationMetrics {
	return &operationMetrics{ops: make(map[string][]bool)}
}

func (m *operationMetrics) RecordResolution(string, string)          {}
func (m *operationMetrics) RecordReload(string, time.Duration, bool) {}
func (m *operationMetrics) RecordPersist(string, string)             {}
func (m *operationMetrics) RecordMountEntries(string, string, int)   {}

func (m *operationMetrics) RecordOperation(op string, _ time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops[op] = append(m.ops[op], success)
}

func (m *operationMetrics) results(op string) []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.ops[op]...)
}
