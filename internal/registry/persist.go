package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/x31337/extsync/internal/platform"
)

const backupTimeLayout = "20060102_150405"

// Persist writes the registry if it changed since it was loaded. The first
// write of a session backs up the existing file before replacing it.
func (s *Store) Persist() error {
	if !s.dirty {
		return nil
	}

	if s.existed && s.backedUp == "" {
		if _, err := s.Backup(); err != nil {
			return err
		}
	}

	data, err := s.Encode()
	if err != nil {
		return err
	}
	if err := writeAtomic(s.path, data, s.perm); err != nil {
		return fmt.Errorf("writing registry %s: %w", s.path, err)
	}

	s.existed = true
	s.dirty = false
	return nil
}

// Backup copies the registry file on disk to
// "<registry>.backup.<YYYYMMDD_HHMMSS>" and returns the backup path. It
// returns an empty path when there is no file to back up.
func (s *Store) Backup() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading registry for backup: %w", err)
	}

	base := s.path + ".backup." + s.now().Format(backupTimeLayout)
	dst := base
	for n := 1; ; n++ {
		f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, s.perm)
		if errors.Is(err, fs.ErrExist) {
			dst = base + "_" + strconv.Itoa(n)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating backup %s: %w", dst, err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			_ = os.Remove(dst)
			return "", fmt.Errorf("writing backup %s: %w", dst, err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(dst)
			return "", fmt.Errorf("closing backup %s: %w", dst, err)
		}
		break
	}

	s.backedUp = dst
	return dst, nil
}

// writeAtomic writes data to a temp file in the destination directory, syncs
// it and renames it over path.
func writeAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	tempPath := tmp.Name()

	cleanup := func(err error) error {
		tmp.Close()
		_ = os.Remove(tempPath)
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(fmt.Errorf("writing temporary file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(fmt.Errorf("syncing temporary file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temporary file: %w", err)
	}
	if err := platform.Chmod(tempPath, perm); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("setting permissions: %w", err)
	}

	if err := platform.ReplaceFile(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temporary file: %w", err)
	}
	return nil
}
