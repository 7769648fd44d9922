package results

import (
	"encoding/csv"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"
)

// ReadAll parses a results file written by Logger and reports which layout it uses.
func ReadAll(path string) ([]Record, Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Layout{}, fmt.Errorf("opening results file: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, Layout{}, fmt.Errorf("reading results file %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, Standard, nil
	}

	var layout Layout
	switch {
	case slices.Equal(rows[0], Standard.Columns):
		layout = Standard
	case slices.Equal(rows[0], Engine.Columns):
		layout = Engine
	default:
		return nil, Layout{}, fmt.Errorf("results file %s has unrecognized header %v", path, rows[0])
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := parseRow(layout, row)
		if err != nil {
			return nil, Layout{}, fmt.Errorf("results file %s line %d: %w", path, i+2, err)
		}
		records = append(records, rec)
	}
	return records, layout, nil
}

func parseRow(layout Layout, row []string) (Record, error) {
	if len(row) != len(layout.Columns) {
		return Record{}, fmt.Errorf("expected %d fields, got %d", len(layout.Columns), len(row))
	}

	local, err := time.Parse(TimestampFormat, row[1])
	if err != nil {
		return Record{}, fmt.Errorf("parsing local timestamp: %w", err)
	}
	utc, err := time.Parse(TimestampFormat, row[2])
	if err != nil {
		return Record{}, fmt.Errorf("parsing utc timestamp: %w", err)
	}
	elapsed, err := strconv.ParseFloat(row[len(row)-1], 64)
	if err != nil {
		return Record{}, fmt.Errorf("parsing elapsed seconds: %w", err)
	}

	rec := Record{
		BenchName:      row[0],
		TimestampLocal: local,
		TimestampUTC:   utc.UTC(),
		ElapsedSeconds: elapsed,
	}
	if layout.process {
		gc, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return Record{}, fmt.Errorf("parsing gc seconds: %w", err)
		}
		rec.ProcessID = row[3]
		rec.GCSeconds = gc
	}
	return rec, nil
}
