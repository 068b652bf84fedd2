package mount

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"

	"github.com/google/uuid"

	"github.com/objectfs/mountfs/pkg/errors"
	"github.com/objectfs/mountfs/pkg/types"
	"github.com/objectfs/mountfs/pkg/vpath"
)

const (
	// BackupTimeLayout formats the timestamp of <name>.old.<timestamp>.
	BackupTimeLayout = "20060102150405"

	maxLineSize = 1 << 20
)

// Persist results reported to metrics.
const (
	persistOK         = "ok"
	persistFailed     = "failed"
	persistRolledBack = "rolled_back"
	persistLost       = "lost"
)

func newTempID() string {
	return uuid.NewString()
}

// scanTable calls fn with every non-blank, trimmed line of the mount table
// and its 1-based line number. found is false when the table does not exist.
func (m *Manager) scanTable(ctx context.Context, fsys types.FileSystem, op string, fn func(n int, line []byte) error) (found bool, err error) {
	r, err := fsys.Open(ctx, m.tablePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrCodeStorageRead, "cannot open mount table").
			WithComponent("mount").WithOperation(op).WithDetail("path", m.tablePath.String())
	}
	defer r.Close()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	n := 0
	for sc.Scan() {
		n++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(n, line); err != nil {
			return true, err
		}
	}
	if err := sc.Err(); err != nil {
		return true, m.parseError(op, n+1, err)
	}
	return true, nil
}

func (m *Manager) parseError(op string, line int, err error) error {
	return errors.Wrap(err, errors.ErrCodeMountTableParse, fmt.Sprintf("%s line %d", m.tablePath, line)).
		WithComponent("mount").
		WithOperation(op).
		WithDetail("path", m.tablePath.String()).
		WithDetail("line", line)
}

func (m *Manager) loadTable(ctx context.Context) (map[MountKey]*PathRewrite, bool, error) {
	fsys, err := m.fileSystems.ForPath(m.tablePath)
	if err != nil {
		return nil, false, err
	}

	mounts := make(map[MountKey]*PathRewrite)
	found, err := m.scanTable(ctx, fsys, "reloadMounts", func(n int, line []byte) error {
		mt, err := m.codec.Decode(line)
		if err != nil {
			return m.parseError("reloadMounts", n, err)
		}
		mt = NewPathRewrite(m.fileSystems.Qualify(mt.RealRoot()), mt.VirtualRoot())
		mounts[mt.Key()] = mt
		return nil
	})
	if err != nil || !found {
		return nil, found, err
	}
	return mounts, true, nil
}

// persist appends mt to the mount table without ever leaving a partially
// written table under the canonical name:
//
//  1. write the current lines plus the new entry to .<name>.tmp.<id>
//  2. rename <name> to <name>.old.<timestamp>
//  3. rename the temporary file to <name>
//  4. delete the backup, or rename it back to <name> if step 3 failed
//
// A failed step 3 leaves the temporary file behind. Concurrent writers in
// other processes can still lose updates.
func (m *Manager) persist(ctx context.Context, mt *PathRewrite) (err error) {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	result := persistFailed
	defer func() {
		m.metrics.RecordPersist(m.ns.Prefix, result)
		if err != nil {
			m.health.RecordError(m.ns.Prefix, err)
		} else {
			m.health.RecordSuccess(m.ns.Prefix)
		}
	}()

	if m.tablePath.IsZero() {
		return errors.NewError(errors.ErrCodeMissingConfig, "no mount table configured").
			WithComponent("mount").WithOperation("addMount").WithDetail("key", m.ns.Prefix+".path")
	}
	dir, ok := m.tablePath.Parent()
	if !ok {
		return errors.Newf(errors.ErrCodePathInvalid, "mount table %s has no parent", m.tablePath).
			WithComponent("mount").WithOperation("addMount")
	}
	fsys, err := m.fileSystems.ForPath(m.tablePath)
	if err != nil {
		return err
	}

	entry, err := m.codec.Encode(mt)
	if err != nil {
		return m.persistError("cannot encode mount entry", err)
	}

	var content bytes.Buffer
	exists, err := m.scanTable(ctx, fsys, "addMount", func(_ int, line []byte) error {
		content.Write(line)
		content.WriteByte('\n')
		return nil
	})
	if err != nil {
		return err
	}
	content.Write(entry)
	content.WriteByte('\n')

	name := m.tablePath.Name()
	tmp := dir.Join("." + name + ".tmp." + m.newID())
	if err := writeFile(ctx, fsys, tmp, content.Bytes()); err != nil {
		return m.persistError("cannot write temporary mount table", err)
	}

	if !exists {
		if err := fsys.Rename(ctx, tmp, m.tablePath); err != nil {
			return m.persistError("cannot install mount table", err)
		}
		result = persistOK
		m.logger.Info("mount table created", "path", m.tablePath.String())
		return nil
	}

	backup := dir.Join(name + ".old." + m.now().Format(BackupTimeLayout))
	if err := fsys.Rename(ctx, m.tablePath, backup); err != nil {
		return m.persistError("cannot back up mount table", err)
	}

	if err := fsys.Rename(ctx, tmp, m.tablePath); err != nil {
		if rbErr := fsys.Rename(ctx, backup, m.tablePath); rbErr != nil {
			result = persistLost
			m.logger.Error("mount table lost: restoring backup failed",
				"must_alert", true,
				"path", m.tablePath.String(),
				"backup", backup.String(),
				"temp", tmp.String(),
				"error", err,
				"rollback_error", rbErr)
			return errors.Wrap(err, errors.ErrCodeMountTableLost, "mount table renamed away and not restored").
				WithComponent("mount").
				WithOperation("addMount").
				WithDetail("path", m.tablePath.String()).
				WithDetail("backup", backup.String()).
				WithDetail("rollback_error", rbErr.Error())
		}
		result = persistRolledBack
		m.logger.Warn("mount table update rolled back", "path", m.tablePath.String(), "temp", tmp.String(), "error", err)
		return m.persistError("cannot install mount table", err)
	}

	if err := fsys.Delete(ctx, backup, false); err != nil {
		m.logger.Warn("cannot delete mount table backup", "backup", backup.String(), "error", err)
	}
	result = persistOK
	m.logger.Info("mount table updated", "path", m.tablePath.String())
	return nil
}

func (m *Manager) persistError(msg string, err error) error {
	return errors.Wrap(err, errors.ErrCodeMountTablePersist, msg).
		WithComponent("mount").
		WithOperation("addMount").
		WithDetail("path", m.tablePath.String())
}

func writeFile(ctx context.Context, fsys types.FileSystem, p vpath.Path, data []byte) error {
	w, err := fsys.Create(ctx, p, false)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
