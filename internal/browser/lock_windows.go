//go:build windows

package browser

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"
)

// acquireProfileLock takes an exclusive, non-blocking lock on the profile
// directory so two sessions never drive the same agent profile.
func acquireProfileLock(dir string) (*os.File, error) {
	lockPath := filepath.Join(dir, LockFileName)

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("cannot open lock file: %w", err)
	}

	handle := windows.Handle(file.Fd())
	overlapped := &windows.Overlapped{}
	err = windows.LockFileEx(handle, windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY, 0, 1, 0, overlapped)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: %s", ErrProfileLocked, dir)
	}

	// Write our PID to the lock file
	_ = file.Truncate(0)
	_, _ = file.Seek(0, 0)
	fmt.Fprintf(file, "%d\n", os.Getpid())
	_ = file.Sync()

	return file, nil
}

// releaseProfileLock releases the lock file
func releaseProfileLock(file *os.File) {
	if file != nil {
		handle := windows.Handle(file.Fd())
		overlapped := &windows.Overlapped{}
		_ = windows.UnlockFileEx(handle, 0, 1, 0, overlapped)
		file.Close()
	}
}
