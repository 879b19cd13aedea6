package platform

import (
	"errors"
	"os"
	"runtime"
	"time"
)

const (
	replaceAttempts = 5
	replaceBackoff  = 20 * time.Millisecond
)

// ReplaceFile renames src over dst. On Windows a rename onto a file held open
// by another process (an editor watching its registry, a virus scanner) fails
// transiently, so the rename is retried with a short backoff there.
func ReplaceFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil || runtime.GOOS != "windows" {
		return err
	}
	for i := 1; i < replaceAttempts; i++ {
		var linkErr *os.LinkError
		if !errors.As(err, &linkErr) {
			return err
		}
		time.Sleep(time.Duration(i) * replaceBackoff)
		if err = os.Rename(src, dst); err == nil {
			return nil
		}
	}
	return err
}
