// Package dataset names and loads the parquet datasets that benchmarks read.
//
// Datasets live under <output_prefix_path>/data/. Sized tables follow the pattern
// <table>[-no-nulls]-<rows>.parquet where rows carries an optional k or m suffix, for
// example relation-no-nulls-100m.parquet. Lookup tables such as animals.parquet are
// unsized.
package dataset

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// Ext is the dataset file extension.
	Ext = ".parquet"
	// DataDir is the directory under the output prefix that holds datasets and results.
	DataDir = "data"

	noNullsMarker = "-no-nulls"
)

// Name identifies a dataset file.
type Name struct {
	Table string
	// Rows is zero for unsized tables.
	Rows int64
	// Nulls reports whether value columns may contain nulls.
	Nulls bool
}

// Parse splits a dataset file name into its parts.
func Parse(file string) (Name, error) {
	base := strings.TrimSuffix(filepath.Base(file), Ext)
	if base == "" {
		return Name{}, fmt.Errorf("empty dataset name %q", file)
	}

	idx := strings.LastIndex(base, "-")
	if idx < 0 {
		return Name{Table: base}, nil
	}
	rows, err := ParseRows(base[idx+1:])
	if err != nil {
		// The last segment is part of the table name, e.g. "my-table".
		return Name{Table: base}, nil //nolint:nilerr // unsized name
	}

	table := base[:idx]
	nulls := true
	if trimmed, ok := strings.CutSuffix(table, noNullsMarker); ok {
		table, nulls = trimmed, false
	}
	if table == "" {
		return Name{}, fmt.Errorf("dataset name %q has no table", file)
	}
	return Name{Table: table, Rows: rows, Nulls: nulls}, nil
}

// String renders the file name, including the extension.
func (n Name) String() string {
	return FileFor(n.Table, n.Tag())
}

// Tag renders the dataset tag, e.g. "no-nulls-100m". Unsized tables have no tag.
func (n Name) Tag() string {
	if n.Rows == 0 {
		return ""
	}
	tag := FormatRows(n.Rows)
	if !n.Nulls {
		tag = strings.TrimPrefix(noNullsMarker, "-") + "-" + tag
	}
	return tag
}

// ParseRows reads a row count such as "100m", "30k" or "1500".
func ParseRows(s string) (int64, error) {
	mult := int64(1)
	switch {
	case strings.HasSuffix(s, "m"):
		mult, s = 1_000_000, strings.TrimSuffix(s, "m")
	case strings.HasSuffix(s, "k"):
		mult, s = 1_000, strings.TrimSuffix(s, "k")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid row count %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("row count must be positive, got %d", n)
	}
	return n * mult, nil
}

// FormatRows renders a row count with the largest exact k or m suffix.
func FormatRows(n int64) string {
	switch {
	case n%1_000_000 == 0:
		return strconv.FormatInt(n/1_000_000, 10) + "m"
	case n%1_000 == 0:
		return strconv.FormatInt(n/1_000, 10) + "k"
	default:
		return strconv.FormatInt(n, 10)
	}
}

// FileFor joins a table and a dataset tag such as "no-nulls-100m" into a file name.
// An empty tag names an unsized table.
func FileFor(table, tag string) string {
	if tag == "" {
		return table + Ext
	}
	return table + "-" + tag + Ext
}

// Path returns the location of a dataset file under the output prefix.
func Path(outputPrefixPath, file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(outputPrefixPath, DataDir, file)
}
