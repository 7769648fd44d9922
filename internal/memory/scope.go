// Package memory provides ownership helpers for Arrow-backed benchmark inputs.
//
// A benchmark definition loads its datasets during setup and must release them exactly once
// after the timed region closes. Scope tracks everything a definition owns so its cleanup
// operation is a single Release call instead of closures sharing captured variables.
package memory

import (
	"runtime"
	"sync"
)

// Releaser is anything holding Arrow buffers.
type Releaser interface {
	Release()
}

// Scope owns a set of resources and releases them together.
type Scope struct {
	mu        sync.Mutex
	resources []Releaser
	released  bool
}

// NewScope creates an empty scope.
func NewScope() *Scope {
	return &Scope{}
}

// Track adds r to the scope and returns it. Tracking into a released scope releases r
// immediately.
func Track[T Releaser](s *Scope, r T) T {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		r.Release()
		return r
	}
	s.resources = append(s.resources, r)
	return r
}

// Len returns the number of tracked resources.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resources)
}

// Release releases every tracked resource in reverse order of tracking. Later calls are no-ops.
func (s *Scope) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return
	}
	for i := len(s.resources) - 1; i >= 0; i-- {
		if s.resources[i] != nil {
			s.resources[i].Release()
		}
	}
	s.resources = nil
	s.released = true
}

// ForceGC runs a full collection, including finalizers queued by the first cycle.
func ForceGC() {
	runtime.GC()
	runtime.GC()
	runtime.Gosched()
}
