//go:build !unix

package fslock

import (
	"os"
	"path/filepath"
	"sync"
)

var (
	locksMu sync.Mutex
	locks   = make(map[string]*sync.Mutex)
)

// Lock serializes writers of the same path within this process. Platforms without
// flock get no cross-process exclusion.
func Lock(f *os.File) (*Handle, error) {
	path, err := filepath.Abs(f.Name())
	if err != nil {
		path = f.Name()
	}

	locksMu.Lock()
	mu, ok := locks[path]
	if !ok {
		mu = &sync.Mutex{}
		locks[path] = mu
	}
	locksMu.Unlock()

	mu.Lock()
	return &Handle{mu: mu}, nil
}

// Handle is a held lock.
type Handle struct {
	mu *sync.Mutex
}

// Unlock releases the lock. It is safe to call multiple times.
func (h *Handle) Unlock() error {
	if h == nil || h.mu == nil {
		return nil
	}
	h.mu.Unlock()
	h.mu = nil
	return nil
}
