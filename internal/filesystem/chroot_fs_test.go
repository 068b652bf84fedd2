package filesystem

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectfs/mountfs/internal/config"
	"github.com/objectfs/mountfs/pkg/errors"
	"github.com/objectfs/mountfs/pkg/utils"
	"github.com/objectfs/mountfs/pkg/vpath"
)

func newChrootFS(t *testing.T, props config.Properties) (*ChrootFileSystem, *operationMetrics) {
	t.Helper()
	metrics := newOperationMetrics()
	view, err := NewChrootFileSystemFromProperties(props, newStorage(t), metrics, utils.DiscardLogger())
	require.NoError(t, err)
	return view, metrics
}

func TestChrootFileSystemReadWrite(t *testing.T) {
	view, _ := newChrootFS(t, config.Properties{
		"chroot.home.fs": "mem://data/users/alice",
		"chroot.tmp.fs":  "/scratch",
	})
	ctx := context.Background()

	write(t, view, "chroot://home/notes/todo", "milk")
	assert.Equal(t, "milk", read(t, view, "chroot://home/notes/todo"))

	rp, err := view.RealPath(ctx, vpath.MustParse("chroot://home/notes/todo"))
	require.NoError(t, err)
	assert.Equal(t, "mem://data/users/alice/notes/todo", rp.String())

	rp, err = view.RealPath(ctx, vpath.MustParse("chroot://home/"))
	require.NoError(t, err)
	assert.Equal(t, "mem://data/users/alice", rp.String())

	rp, err = view.RealPath(ctx, vpath.MustParse("chroot://tmp/a"))
	require.NoError(t, err)
	assert.Equal(t, "mem:///scratch/a", rp.String())

	entries, err := view.ListStatus(ctx, vpath.MustParse("chroot://home/notes"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "chroot://home/notes/todo", entries[0].Path.String())

	st, err := view.GetFileStatus(ctx, vpath.MustParse("chroot://home/notes"))
	require.NoError(t, err)
	assert.True(t, st.IsDir)
	assert.Equal(t, "chroot://home/notes", st.Path.String())

	roots := view.Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, "chroot://home/ -> mem://data/users/alice", roots[0].String())
	assert.Equal(t, "tmp", roots[1].VirtualRoot().Authority)
}

func TestChrootFileSystemErrors(t *testing.T) {
	view, metrics := newChrootFS(t, config.Properties{"chroot.home.fs": "mem://data/users/alice"})
	ctx := context.Background()

	_, err := view.Open(ctx, vpath.MustParse("chroot://home/missing"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "chroot://home/missing")
	assert.NotContains(t, err.Error(), "mem://data")

	_, err = view.Open(ctx, vpath.MustParse("chroot://bob/file"))
	assert.True(t, errors.HasCode(err, errors.ErrCodePathInvalid))

	_, err = view.Open(ctx, vpath.MustParse("mount://home/file"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeStorageUnsupported))

	assert.Equal(t, []bool{false, false, false}, metrics.results("open"))
}

func TestChrootFileSystemFromInvalidProperties(t *testing.T) {
	_, err := NewChrootFileSystemFromProperties(config.Properties{"chroot.home.fs": "chroot://x/"},
		newStorage(t), nil, utils.DiscardLogger())
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfig))
}
