//go:build unix

package fslock

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Lock takes a blocking exclusive flock on f. The kernel releases the lock when the
// descriptor is closed, including on process crash.
func Lock(f *os.File) (*Handle, error) {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return nil, fmt.Errorf("flock %s: %w", f.Name(), err)
	}
	return &Handle{file: f}, nil
}

// Handle is a held lock.
type Handle struct {
	file *os.File
}

// Unlock releases the lock. It is safe to call multiple times.
func (h *Handle) Unlock() error {
	if h == nil || h.file == nil {
		return nil
	}
	err := unix.Flock(int(h.file.Fd()), unix.LOCK_UN)
	h.file = nil
	if err != nil {
		return fmt.Errorf("funlock: %w", err)
	}
	return nil
}
