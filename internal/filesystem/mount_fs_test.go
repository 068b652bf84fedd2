package filesystem

import (
	"context"
	stderrors "errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectfs/mountfs/pkg/errors"
	"github.com/objectfs/mountfs/pkg/vpath"
)

func TestMountFileSystemDefaultMount(t *testing.T) {
	mfs, fss := newMountFS(t, nil)
	backing := realFS(t, fss)

	write(t, mfs, "mount://x/a/b.txt", "via default")
	assert.Equal(t, "via default", read(t, backing, "mem://data/a/b.txt"))

	rp, err := mfs.RealPath(context.Background(), vpath.MustParse("mount://x/a/b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "mem://data/a/b.txt", rp.String())
}

func TestMountFileSystemExplicitMount(t *testing.T) {
	mfs, fss := newMountFS(t, nil)
	backing := realFS(t, fss)
	ctx := context.Background()

	require.NoError(t, mfs.AddMount(ctx, vpath.MustParse("mem://other/archive"), vpath.MustParse("mount://x/old"), false))
	write(t, backing, "mem://other/archive/2020/report", "r")

	assert.Equal(t, "r", read(t, mfs, "mount://x/old/2020/report"))

	entries, err := mfs.ListStatus(ctx, vpath.MustParse("mount://x/old/2020"))
	require.NoError(t, err)
	assert.Equal(t, []string{"mount://x/old/2020/report"}, paths(entries))
}

func TestMountFileSystemCrossMountRename(t *testing.T) {
	mfs, _ := newMountFS(t, nil)
	ctx := context.Background()

	require.NoError(t, mfs.AddMount(ctx, vpath.MustParse("mem://other/e"), vpath.MustParse("mount://x/ext"), false))
	write(t, mfs, "mount://x/a", "payload")

	err := mfs.Rename(ctx, vpath.MustParse("mount://x/a"), vpath.MustParse("mount://x/ext/a"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeCrossMountRename))

	err = mfs.Rename(ctx, vpath.MustParse("mount://x/a"), vpath.MustParse("mount://y/a"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeCrossMountRename))

	require.NoError(t, mfs.Rename(ctx, vpath.MustParse("mount://x/a"), vpath.MustParse("mount://x/b")))
	assert.Equal(t, "payload", read(t, mfs, "mount://x/b"))
}

func TestMountFileSystemReload(t *testing.T) {
	mfs, fss := newMountFS(t, nil)
	backing := realFS(t, fss)
	ctx := context.Background()

	write(t, backing, "mem://t/mounts", `{"realPath":"mem://other/projects","virtualPath":"mount://x/p"}`+"\n")
	require.NoError(t, mfs.ReloadMounts(ctx, vpath.MustParse("mount://x/")))

	rp, err := mfs.RealPath(ctx, vpath.MustParse("mount://x/p/one"))
	require.NoError(t, err)
	assert.Equal(t, "mem://other/projects/one", rp.String())
}

func TestMountFileSystemPersistedMount(t *testing.T) {
	mfs, fss := newMountFS(t, nil)
	backing := realFS(t, fss)
	ctx := context.Background()

	require.NoError(t, mfs.AddMount(ctx, vpath.MustParse("mem://other/kept"), vpath.MustParse("mount://x/kept"), true))
	assert.Contains(t, read(t, backing, "mem://t/mounts"), `"virtualPath":"mount://x/kept"`)
}

func TestMountFileSystemErrors(t *testing.T) {
	metrics := newOperationMetrics()
	mfs, _ := newMountFS(t, metrics)
	ctx := context.Background()

	_, err := mfs.Open(ctx, vpath.MustParse("mount://x/nothing"))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, fs.ErrNotExist))
	assert.Contains(t, err.Error(), "mount://x/nothing")
	assert.NotContains(t, err.Error(), "mem://data/nothing")

	_, err = mfs.GetFileStatus(ctx, vpath.MustParse("mount://unknown/a"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingConfig))

	_, err = mfs.RealPath(ctx, vpath.MustParse("mount://unknown/a"))
	assert.Error(t, err)

	assert.Equal(t, []bool{false}, metrics.results("open"))
	assert.Equal(t, []bool{false}, metrics.results("stat"))
}
