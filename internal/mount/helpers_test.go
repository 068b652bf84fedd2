package mount

import (
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/objectfs/mountfs/internal/config"
	"github.com/objectfs/mountfs/internal/storage"
	"github.com/objectfs/mountfs/internal/storage/local"
	"github.com/objectfs/mountfs/internal/storage/memory"
	"github.com/objectfs/mountfs/pkg/types"
	"github.com/objectfs/mountfs/pkg/utils"
	"github.com/objectfs/mountfs/pkg/vpath"
)

const testTable = "mem://t/tables/mounts"

func newFileSystems(t *testing.T, backends ...types.FileSystem) *storage.Registry {
	t.Helper()
	reg := storage.NewRegistry(local.Scheme)
	if len(backends) == 0 {
		backends = []types.FileSystem{memory.New(utils.DiscardLogger())}
	}
	for _, b := range backends {
		require.NoError(t, reg.Register(b))
	}
	if _, err := reg.Lookup(local.Scheme); err != nil {
		require.NoError(t, reg.Register(local.New(utils.DiscardLogger())))
	}
	return reg
}

func testNamespace(prefix, defaultMount string) *config.NamespaceConfig {
	return &config.NamespaceConfig{
		Prefix:                   prefix,
		Path:                     testTable,
		Period:                   config.DefaultPeriod,
		Delay:                    config.DefaultDelay,
		AutomaticUpdatesDisabled: true,
		DefaultMount:             defaultMount,
		FactoryClass:             config.DefaultFactoryClass,
		FactoryAttr:              config.DefaultFactoryAttr,
		RealField:                config.DefaultRealField,
		VirtualField:             config.DefaultVirtualField,
	}
}

func newTestManager(t *testing.T, root string, ns *config.NamespaceConfig, deps Dependencies) *Manager {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = utils.DiscardLogger()
	}
	m, err := NewManager(context.Background(), vpath.MustParse(root), ns, deps)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func putFile(t *testing.T, fss FileSystems, p, content string) {
	t.Helper()
	path := vpath.MustParse(p)
	fsys, err := fss.ForPath(path)
	require.NoError(t, err)
	w, err := fsys.Create(context.Background(), path, true)
	require.NoError(t, err)
	_, err = io.WriteString(w, content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

// replaceFile swaps in new content so concurrent readers see either the old
// file, no file or the new file.
func replaceFile(t *testing.T, fss FileSystems, p, content string) {
	t.Helper()
	path := vpath.MustParse(p)
	tmp := vpath.MustParse(p + ".next")
	putFile(t, fss, tmp.String(), content)
	fsys, err := fss.ForPath(path)
	require.NoError(t, err)
	require.NoError(t, fsys.Delete(context.Background(), path, false))
	require.NoError(t, fsys.Rename(context.Background(), tmp, path))
}

func readFile(t *testing.T, fss FileSystems, p string) string {
	t.Helper()
	path := vpath.MustParse(p)
	fsys, err := fss.ForPath(path)
	require.NoError(t, err)
	r, err := fsys.Open(context.Background(), path)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func listNames(t *testing.T, fss FileSystems, dir string) []string {
	t.Helper()
	path := vpath.MustParse(dir)
	fsys, err := fss.ForPath(path)
	require.NoError(t, err)
	entries, err := fsys.ListStatus(context.Background(), path)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func resolveReal(t *testing.T, m *Manager, p string) string {
	t.Helper()
	got, err := m.RealPath(context.Background(), vpath.MustParse(p))
	require.NoError(t, err)
	return got.String()
}

func entryLine(realRoot, virtualRoot string) string {
	return `{"realPath":"` + realRoot + `","virtualPath":"` + virtualRoot + `"}`
}

// recordingMetrics captures what a manager reports.
type recordingMetrics struct {
	mu          sync.Mutex
	resolutions map[string]int
	persists    []string
	reloads     []bool
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{resolutions: make(map[string]int)}
}

func (r *recordingMetrics) RecordResolution(_, tier string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolutions[tier]++
}

func (r *recordingMetrics) RecordReload(_ string, _ time.Duration, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reloads = append(r.reloads, success)
}

func (r *recordingMetrics) RecordPersist(_, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persists = append(r.persists, result)
}

func (r *recordingMetrics) RecordMountEntries(string, string, int)      {}
func (r *recordingMetrics) RecordOperation(string, time.Duration, bool) {}

func (r *recordingMetrics) persistResults() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.persists...)
}

var _ types.MetricsCollector = (*recordingMetrics)(nil)
