// Package storage provides destination write adapters.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"heiconv/core"
	apperrors "heiconv/errors"
)

// Local writes files on the local filesystem. Content is staged in a
// hidden temp file inside the destination directory, synced, then renamed
// over the target: the rename never crosses filesystems and no reader ever
// observes a partial file. The staging file is removed on any failure.
type Local struct {
	permissions os.FileMode
}

var _ core.Writer = (*Local)(nil)

// NewLocal creates a Local writer. perm 0 defaults to 0644.
func NewLocal(perm os.FileMode) *Local {
	if perm == 0 {
		perm = 0o644
	}
	return &Local{permissions: perm}
}

func (l *Local) Put(ctx context.Context, path string, r io.Reader) (n int64, err error) {
	if cerr := ctx.Err(); cerr != nil {
		return 0, apperrors.Wrap(apperrors.KindDestinationUnwritable, "local.put", cerr)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, fmt.Sprintf(".%s.tmp-*", filepath.Base(path)))
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindDestinationUnwritable, "local.put.stage", err)
	}
	tmpName := tmp.Name()
	closed := false
	defer func() {
		if !closed {
			tmp.Close()
		}
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if err = tmp.Chmod(l.permissions); err != nil {
		return 0, apperrors.Wrap(apperrors.KindDestinationUnwritable, "local.put.chmod", err)
	}
	if n, err = io.Copy(tmp, r); err != nil {
		return 0, apperrors.Wrap(apperrors.KindDestinationUnwritable, "local.put.copy", err)
	}
	if err = tmp.Sync(); err != nil {
		return 0, apperrors.Wrap(apperrors.KindDestinationUnwritable, "local.put.sync", err)
	}
	closed = true
	if err = tmp.Close(); err != nil {
		return 0, apperrors.Wrap(apperrors.KindDestinationUnwritable, "local.put.close", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return 0, apperrors.Wrap(apperrors.KindDestinationUnwritable, "local.put.rename", err)
	}
	return n, nil
}

// Exists reports whether a file is present at path.
func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, apperrors.Wrap(apperrors.KindDestinationUnwritable, "local.exists", err)
	}
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, apperrors.Wrap(apperrors.KindDestinationUnwritable, "local.exists.stat", err)
}

// Remove deletes the file at path. A missing file is not an error.
func (l *Local) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.KindDestinationUnwritable, "local.remove", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperrors.Wrap(apperrors.KindDestinationUnwritable, "local.remove", err)
	}
	return nil
}
