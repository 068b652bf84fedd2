package mount

import (
	"context"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/objectfs/mountfs/pkg/errors"
	"github.com/objectfs/mountfs/pkg/types"
	"github.com/objectfs/mountfs/pkg/vpath"
)

// AttrFactory lets directories declare themselves mount points: an
// attribute on the real object holds the real root the directory maps to.
type AttrFactory struct {
	defaultMount Mount
	fileSystems  FileSystems
	attr         string
	logger       *slog.Logger
}

// NewAttrFactory creates a factory reading attr from the objects that
// defaultMount maps each candidate path to.
func NewAttrFactory(defaultMount Mount, fileSystems FileSystems, attr string, logger *slog.Logger) *AttrFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &AttrFactory{
		defaultMount: defaultMount,
		fileSystems:  fileSystems,
		attr:         attr,
		logger:       logger.With("component", "attr-factory"),
	}
}

// Initialize implements Factory.
func (f *AttrFactory) Initialize(context.Context) error {
	if f.defaultMount == nil || f.fileSystems == nil {
		return errors.NewError(errors.ErrCodeNotInitialized, "attribute factory requires a default mount and file systems").
			WithComponent("mount")
	}
	return nil
}

// FindMount implements Factory. The namespace root is never a link.
func (f *AttrFactory) FindMount(ctx context.Context, key MountKey) (Mount, error) {
	if key.Depth() <= 1 {
		return nil, nil
	}

	virtual := key.Path()
	realPath, err := f.defaultMount.ToMountPath(virtual)
	if err != nil {
		return nil, err
	}
	fsys, err := f.fileSystems.ForPath(realPath)
	if err != nil {
		return nil, err
	}

	value, err := fsys.GetAttr(ctx, realPath, f.attr)
	switch {
	case err == nil:
	case errors.Is(err, types.ErrAttrNotFound),
		errors.Is(err, types.ErrAttrNotSupported),
		errors.Is(err, fs.ErrNotExist):
		return nil, nil
	default:
		return nil, err
	}

	target, err := vpath.Parse(strings.TrimSpace(string(value)))
	if err != nil {
		return nil, err
	}
	target = f.fileSystems.Qualify(target)
	f.logger.Debug("found linked directory", "path", virtual.String(), "target", target.String())
	return NewPathRewrite(target, virtual), nil
}
