// Package results appends benchmark results to an append-only CSV log.
//
// Two column layouts exist: the standard layout written by the library driver and the
// engine layout, which additionally records the process identifier and the garbage
// collection time observed around the timed region. Both share one logger; the layout
// is a named configuration.
package results

import (
	"fmt"
	"strconv"
	"time"
)

// TimestampFormat renders timestamps with microseconds and a numeric zone offset.
const TimestampFormat = "2006-01-02 15:04:05.000000-07:00"

// Record is one benchmark execution. It is never mutated after construction.
type Record struct {
	BenchName      string
	TimestampUTC   time.Time
	TimestampLocal time.Time
	ElapsedSeconds float64
	ProcessID      string
	GCSeconds      float64
}

// NewRecord builds a record stamped with end in UTC and in loc.
func NewRecord(name string, end time.Time, elapsed time.Duration, loc *time.Location) Record {
	if loc == nil {
		loc = time.UTC
	}
	return Record{
		BenchName:      name,
		TimestampUTC:   end.UTC(),
		TimestampLocal: end.In(loc),
		ElapsedSeconds: elapsed.Seconds(),
	}
}

// WithProcess returns a copy of r carrying process metadata.
func (r Record) WithProcess(processID string, gcSeconds float64) Record {
	r.ProcessID = processID
	r.GCSeconds = gcSeconds
	return r
}

// Layout is a fixed column order for a results file.
type Layout struct {
	Name    string
	Columns []string
	process bool
}

// Named layouts.
var (
	Standard = Layout{
		Name:    "standard",
		Columns: []string{"bench_name", "timestamp_nyc", "timestamp_utc", "elapsed_seconds"},
	}
	Engine = Layout{
		Name:    "engine",
		Columns: []string{"bench_name", "timestamp_nyc", "timestamp_utc", "process_unique_id", "gc_seconds", "elapsed_seconds"},
		process: true,
	}
)

// LayoutByName resolves a layout by its configuration name.
func LayoutByName(name string) (Layout, error) {
	switch name {
	case Standard.Name:
		return Standard, nil
	case Engine.Name:
		return Engine, nil
	default:
		return Layout{}, fmt.Errorf("unknown results layout %q", name)
	}
}

// HasProcess reports whether the layout records process metadata.
func (l Layout) HasProcess() bool {
	return l.process
}

// Row renders r in the layout's column order.
func (l Layout) Row(r Record) []string {
	row := []string{
		r.BenchName,
		r.TimestampLocal.Format(TimestampFormat),
		r.TimestampUTC.Format(TimestampFormat),
	}
	if l.process {
		row = append(row, r.ProcessID, formatFloat(r.GCSeconds))
	}
	return append(row, formatFloat(r.ElapsedSeconds))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
