package results

import (
	"encoding/csv"
	"fmt"
	"os"

	berrors "github.com/paveg/tablebench/internal/errors"
	"github.com/paveg/tablebench/internal/fslock"
)

// Logger appends records to one results file.
type Logger struct {
	path   string
	layout Layout
}

// NewLogger creates a logger for path using layout.
func NewLogger(path string, layout Layout) *Logger {
	return &Logger{path: path, layout: layout}
}

// Path returns the results file path.
func (l *Logger) Path() string {
	return l.path
}

// Layout returns the logger's column layout.
func (l *Logger) Layout() Layout {
	return l.layout
}

// Append writes rec as one row. The header is written when the file is empty, decided
// while holding an exclusive lock on the file so concurrent writers cannot both write it.
func (l *Logger) Append(rec Record) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return berrors.NewResourceError("append", rec.BenchName, "opening results file "+l.path, err)
	}
	defer f.Close()

	lock, err := fslock.Lock(f)
	if err != nil {
		return fmt.Errorf("locking results file: %w", err)
	}
	defer lock.Unlock() //nolint:errcheck // closing the file releases the lock as well

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat results file: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(l.layout.Columns); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	if err := w.Write(l.layout.Row(rec)); err != nil {
		return fmt.Errorf("writing row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing results: %w", err)
	}
	return nil
}
