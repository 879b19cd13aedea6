package platform

import (
	"os"
	"runtime"
)

// Chmod sets file permissions. On Windows this is a no-op because Windows
// does not support Unix-style permission bits.
func Chmod(path string, mode os.FileMode) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	return os.Chmod(path, mode)
}

// FileMode returns the permission bits of path, or fallback when the file
// cannot be stat'ed.
func FileMode(path string, fallback os.FileMode) (os.FileMode, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return fallback, false
	}
	return info.Mode().Perm(), true
}
