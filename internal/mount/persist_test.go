package mount

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectfs/mountfs/internal/storage/memory"
	"github.com/objectfs/mountfs/pkg/errors"
	"github.com/objectfs/mountfs/pkg/types"
	"github.com/objectfs/mountfs/pkg/utils"
	"github.com/objectfs/mountfs/pkg/vpath"
)

// faultyFS fails renames selected by failRename.
type faultyFS struct {
	types.FileSystem
	failRename func(src, dst vpath.Path) bool
}

func (f *faultyFS) Rename(ctx context.Context, src, dst vpath.Path) error {
	if f.failRename != nil && f.failRename(src, dst) {
		return fmt.Errorf("injected rename failure %s -> %s", src, dst)
	}
	return f.FileSystem.Rename(ctx, src, dst)
}

func fixedClock(m *Manager) {
	m.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	m.newID = func() string { return "id" }
}

func TestPersistCreatesTable(t *testing.T) {
	fss := newFileSystems(t)
	metrics := newRecordingMetrics()
	m := newTestManager(t, "mount://x/", testNamespace("mount.x", "mem://data/"),
		Dependencies{FileSystems: fss, Metrics: metrics})

	require.NoError(t, m.AddMount(context.Background(),
		vpath.MustParse("mem://r/a"), vpath.MustParse("mount://x/a"), true))

	assert.Equal(t, entryLine("mem://r/a", "mount://x/a")+"\n", readFile(t, fss, testTable))
	assert.Equal(t, []string{"mounts"}, listNames(t, fss, "mem://t/tables"))
	assert.Equal(t, []string{persistOK}, metrics.persistResults())
}

func TestPersistAppendsAndCompacts(t *testing.T) {
	fss := newFileSystems(t)
	putFile(t, fss, testTable, "  "+entryLine("mem://r/one", "mount://x/one")+"  \n\n\t\n"+
		entryLine("mem://r/two", "mount://x/two"))

	m := newTestManager(t, "mount://x/", testNamespace("mount.x", "mem://data/"), Dependencies{FileSystems: fss})
	require.NoError(t, m.AddMount(context.Background(),
		vpath.MustParse("mem://r/three"), vpath.MustParse("mount://x/three"), true))

	want := entryLine("mem://r/one", "mount://x/one") + "\n" +
		entryLine("mem://r/two", "mount://x/two") + "\n" +
		entryLine("mem://r/three", "mount://x/three") + "\n"
	assert.Equal(t, want, readFile(t, fss, testTable))
	assert.Equal(t, []string{"mounts"}, listNames(t, fss, "mem://t/tables"))
}

func TestPersistUsesFieldNames(t *testing.T) {
	fss := newFileSystems(t)
	ns := testNamespace("mount.x", "mem://data/")
	ns.RealField = "source"
	ns.VirtualField = "destination"
	m := newTestManager(t, "mount://x/", ns, Dependencies{FileSystems: fss})

	require.NoError(t, m.AddMount(context.Background(),
		vpath.MustParse("mem://r/a"), vpath.MustParse("mount://x/a"), true))
	assert.Equal(t, `{"source":"mem://r/a","destination":"mount://x/a"}`+"\n", readFile(t, fss, testTable))
}

func TestPersistWithoutTable(t *testing.T) {
	fss := newFileSystems(t)
	ns := testNamespace("mount.x", "mem://data/")
	ns.Path = ""
	m := newTestManager(t, "mount://x/", ns, Dependencies{FileSystems: fss})

	err := m.AddMount(context.Background(), vpath.MustParse("mem://r/a"), vpath.MustParse("mount://x/a"), true)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingConfig))
	assert.Equal(t, "mem://r/a/f", resolveReal(t, m, "mount://x/a/f"))
}

func TestPersistRollsBack(t *testing.T) {
	table := vpath.MustParse(testTable)
	faulty := &faultyFS{
		FileSystem: memory.New(utils.DiscardLogger()),
		failRename: func(src, dst vpath.Path) bool {
			return dst == table && strings.HasPrefix(src.Name(), ".mounts.tmp.")
		},
	}
	fss := newFileSystems(t, faulty)
	original := entryLine("mem://r/one", "mount://x/one") + "\n"
	putFile(t, fss, testTable, original)

	metrics := newRecordingMetrics()
	m := newTestManager(t, "mount://x/", testNamespace("mount.x", "mem://data/"),
		Dependencies{FileSystems: fss, Metrics: metrics})
	fixedClock(m)

	err := m.AddMount(context.Background(), vpath.MustParse("mem://r/a"), vpath.MustParse("mount://x/a"), true)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMountTablePersist))
	assert.False(t, errors.HasCode(err, errors.ErrCodeMountTableLost))

	assert.Equal(t, original, readFile(t, fss, testTable))
	assert.Equal(t, []string{".mounts.tmp.id", "mounts"}, listNames(t, fss, "mem://t/tables"))
	assert.Equal(t, []string{persistRolledBack}, metrics.persistResults())

	// The mount is still registered for this process.
	assert.Equal(t, "mem://r/a/f", resolveReal(t, m, "mount://x/a/f"))
}

func TestPersistReportsLostTable(t *testing.T) {
	table := vpath.MustParse(testTable)
	faulty := &faultyFS{
		FileSystem: memory.New(utils.DiscardLogger()),
		failRename: func(_, dst vpath.Path) bool { return dst == table },
	}
	fss := newFileSystems(t, faulty)
	putFile(t, fss, testTable, entryLine("mem://r/one", "mount://x/one")+"\n")

	metrics := newRecordingMetrics()
	m := newTestManager(t, "mount://x/", testNamespace("mount.x", "mem://data/"),
		Dependencies{FileSystems: fss, Metrics: metrics})
	fixedClock(m)

	err := m.AddMount(context.Background(), vpath.MustParse("mem://r/a"), vpath.MustParse("mount://x/a"), true)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMountTableLost))
	assert.Equal(t, []string{".mounts.tmp.id", "mounts.old.20240102030405"}, listNames(t, fss, "mem://t/tables"))
	assert.Equal(t, []string{persistLost}, metrics.persistResults())

	// With the table gone a reload is a no-op.
	require.NoError(t, m.ReloadMounts(context.Background()))
}

func TestPersistBackupFailureLeavesTable(t *testing.T) {
	table := vpath.MustParse(testTable)
	faulty := &faultyFS{
		FileSystem: memory.New(utils.DiscardLogger()),
		failRename: func(src, _ vpath.Path) bool { return src == table },
	}
	fss := newFileSystems(t, faulty)
	original := entryLine("mem://r/one", "mount://x/one") + "\n"
	putFile(t, fss, testTable, original)

	m := newTestManager(t, "mount://x/", testNamespace("mount.x", "mem://data/"), Dependencies{FileSystems: fss})
	fixedClock(m)

	err := m.AddMount(context.Background(), vpath.MustParse("mem://r/a"), vpath.MustParse("mount://x/a"), true)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMountTablePersist))
	assert.Equal(t, original, readFile(t, fss, testTable))
}

func TestPersistIsSerialized(t *testing.T) {
	fss := newFileSystems(t)
	m := newTestManager(t, "mount://x/", testNamespace("mount.x", "mem://data/"), Dependencies{FileSystems: fss})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := m.AddMount(ctx, vpath.MustParse(fmt.Sprintf("mem://r/%d", i)),
				vpath.MustParse(fmt.Sprintf("mount://x/m%d", i)), true)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(readFile(t, fss, testTable)), "\n")
	assert.Len(t, lines, 10)

	require.NoError(t, m.ReloadMounts(ctx))
	assert.Len(t, m.Snapshot().Reloadable, 10)
}

func TestPersistedMountsWithEscapedNamesReload(t *testing.T) {
	fss := newFileSystems(t)
	ctx := context.Background()
	m := newTestManager(t, "mount://x/", testNamespace("mount.x", "mem://data/"), Dependencies{FileSystems: fss})

	mounts := []struct {
		real    vpath.Path
		virtual vpath.Path
	}{
		{vpath.New("mem", "r", "/sale"), vpath.New("mount", "x", "/sale/50%off")},
		{vpath.New("mem", "r", "/lit"), vpath.MustParse("mount://x/a%2541")},
		{vpath.New("mem", "r", "/odd"), vpath.New("mount", "x", "/what?/now#1")},
		{vpath.New("mem", "r", "/two words"), vpath.New("mount", "x", "/with space")},
		{vpath.New("mem", "r", "/ok"), vpath.New("mount", "x", "/ok")},
	}
	for _, mt := range mounts {
		require.NoError(t, m.AddMount(ctx, mt.real, mt.virtual, true))
	}

	restarted := newTestManager(t, "mount://x/", testNamespace("mount.x", "mem://data/"), Dependencies{FileSystems: fss})
	require.NoError(t, restarted.ReloadMounts(ctx))
	require.Len(t, restarted.Snapshot().Reloadable, len(mounts))

	for _, mt := range mounts {
		got, err := restarted.RealPath(ctx, mt.virtual.Join("f"))
		require.NoError(t, err, mt.virtual.String())
		assert.Equal(t, mt.real.Join("f"), got, mt.virtual.String())
	}
	got, err := restarted.RealPath(ctx, vpath.New("mount", "x", "/aA/f"))
	require.NoError(t, err)
	assert.Equal(t, "mem://data/aA/f", got.String())
}
