// Package table provides a narrow columnar table over Apache Arrow arrays.
//
// It implements exactly the operations the benchmark bodies time: projection, head,
// filtering, derived columns, grouping with aggregation, hash joins, stable sorts and
// as-of joins. Columns are single-chunk int64, float64 or utf8 arrays.
//
// Memory management: a Table owns one reference to each of its columns. Every operation
// returns a new Table (or array) that must be released by the caller.
package table

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

var (
	// ErrColumnNotFound is returned when an operation names a column the table lacks.
	ErrColumnNotFound = errors.New("column does not exist")
	// ErrUnsupportedType is returned for column types outside int64, float64 and utf8.
	ErrUnsupportedType = errors.New("unsupported column type")
	// ErrMismatchedLength is returned when arrays of different lengths are combined.
	ErrMismatchedLength = errors.New("arrays must have the same length")
)

// Table is an immutable set of equally long named columns.
type Table struct {
	names []string
	cols  []arrow.Array
	rows  int
	mem   memory.Allocator
}

// New builds a table from names and columns, taking ownership of the columns.
// On error the columns are released.
func New(mem memory.Allocator, names []string, cols []arrow.Array) (*Table, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	if err := validate(names, cols); err != nil {
		for _, c := range cols {
			c.Release()
		}
		return nil, err
	}

	rows := 0
	if len(cols) > 0 {
		rows = cols[0].Len()
	}
	return &Table{names: names, cols: cols, rows: rows, mem: mem}, nil
}

func validate(names []string, cols []arrow.Array) error {
	if len(names) != len(cols) {
		return fmt.Errorf("%d names for %d columns", len(names), len(cols))
	}
	seen := make(map[string]struct{}, len(names))
	for i, name := range names {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = struct{}{}
		if err := supported(cols[i]); err != nil {
			return fmt.Errorf("column %q: %w", name, err)
		}
		if cols[i].Len() != cols[0].Len() {
			return fmt.Errorf("column %q: %w", name, ErrMismatchedLength)
		}
	}
	return nil
}

func supported(arr arrow.Array) error {
	switch arr.(type) {
	case *array.Int64, *array.Float64, *array.String:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, arr.DataType())
	}
}

// FromArrow converts an Arrow table, concatenating chunked columns. Single-chunk columns
// share their buffers with tbl.
func FromArrow(tbl arrow.Table, mem memory.Allocator) (*Table, error) {
	return fromArrow(tbl, mem, false)
}

// CopyFromArrow converts an Arrow table into buffers allocated from mem only, so the
// result owns nothing from the allocator that built tbl.
func CopyFromArrow(tbl arrow.Table, mem memory.Allocator) (*Table, error) {
	return fromArrow(tbl, mem, true)
}

func fromArrow(tbl arrow.Table, mem memory.Allocator, copyAll bool) (*Table, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	schema := tbl.Schema()
	names := make([]string, 0, tbl.NumCols())
	cols := make([]arrow.Array, 0, tbl.NumCols())

	release := func() {
		for _, c := range cols {
			c.Release()
		}
	}

	for i := range int(tbl.NumCols()) {
		field := schema.Field(i)
		chunks := tbl.Column(i).Data().Chunks()

		var col arrow.Array
		switch len(chunks) {
		case 0:
			col = array.MakeArrayOfNull(mem, field.Type, 0)
		case 1:
			if !copyAll {
				col = chunks[0]
				col.Retain()
				break
			}
			fallthrough
		default:
			concatenated, err := array.Concatenate(chunks, mem)
			if err != nil {
				release()
				return nil, fmt.Errorf("concatenating column %s: %w", field.Name, err)
			}
			col = concatenated
		}
		names = append(names, field.Name)
		cols = append(cols, col)
	}

	return New(mem, names, cols)
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return t.rows
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int {
	return len(t.cols)
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Schema returns an Arrow schema describing the table.
func (t *Table) Schema() *arrow.Schema {
	fields := make([]arrow.Field, len(t.cols))
	for i, c := range t.cols {
		fields[i] = arrow.Field{Name: t.names[i], Type: c.DataType(), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

func (t *Table) index(name string) (int, error) {
	for i, n := range t.names {
		if n == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}

// Column returns the named column. The array is borrowed from the table.
func (t *Table) Column(name string) (arrow.Array, error) {
	i, err := t.index(name)
	if err != nil {
		return nil, err
	}
	return t.cols[i], nil
}

func (t *Table) columns(names []string) ([]arrow.Array, error) {
	out := make([]arrow.Array, len(names))
	for i, name := range names {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		out[i] = col
	}
	return out, nil
}

// Select returns a table with only the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols, err := t.columns(names)
	if err != nil {
		return nil, err
	}
	for _, c := range cols {
		c.Retain()
	}
	selected := make([]string, len(names))
	copy(selected, names)
	return New(t.mem, selected, cols)
}

// Head returns the first n rows.
func (t *Table) Head(n int) *Table {
	n = max(0, min(n, t.rows))
	cols := make([]arrow.Array, len(t.cols))
	for i, c := range t.cols {
		cols[i] = array.NewSlice(c, 0, int64(n))
	}
	return &Table{names: t.ColumnNames(), cols: cols, rows: n, mem: t.mem}
}

// WithColumn returns a table with arr added as name, replacing an existing column of the
// same name. Ownership of arr moves to the new table.
func (t *Table) WithColumn(name string, arr arrow.Array) (*Table, error) {
	if arr.Len() != t.rows && len(t.cols) > 0 {
		arr.Release()
		return nil, fmt.Errorf("column %q: %w", name, ErrMismatchedLength)
	}

	names := make([]string, 0, len(t.cols)+1)
	cols := make([]arrow.Array, 0, len(t.cols)+1)
	replaced := false
	for i, c := range t.cols {
		if t.names[i] == name {
			names = append(names, name)
			cols = append(cols, arr)
			replaced = true
			continue
		}
		c.Retain()
		names = append(names, t.names[i])
		cols = append(cols, c)
	}
	if !replaced {
		names = append(names, name)
		cols = append(cols, arr)
	}
	return New(t.mem, names, cols)
}

// Release releases the table's references to its columns.
func (t *Table) Release() {
	for _, c := range t.cols {
		c.Release()
	}
	t.cols = nil
}

// String returns a short description of the table.
func (t *Table) String() string {
	return fmt.Sprintf("Table[rows=%d cols=%v]", t.rows, t.names)
}

// take gathers rows idx from every column. An index of -1 produces a null.
func (t *Table) take(idx []int) (*Table, error) {
	cols := make([]arrow.Array, 0, len(t.cols))
	for _, c := range t.cols {
		taken, err := take(t.mem, c, idx)
		if err != nil {
			for _, done := range cols {
				done.Release()
			}
			return nil, err
		}
		cols = append(cols, taken)
	}
	return New(t.mem, t.ColumnNames(), cols)
}

func take(mem memory.Allocator, arr arrow.Array, idx []int) (arrow.Array, error) {
	switch a := arr.(type) {
	case *array.Int64:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		b.Reserve(len(idx))
		for _, i := range idx {
			if i < 0 || a.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(a.Value(i))
		}
		return b.NewArray(), nil
	case *array.Float64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		b.Reserve(len(idx))
		for _, i := range idx {
			if i < 0 || a.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(a.Value(i))
		}
		return b.NewArray(), nil
	case *array.String:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		b.Reserve(len(idx))
		for _, i := range idx {
			if i < 0 || a.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(a.Value(i))
		}
		return b.NewArray(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, arr.DataType())
	}
}
