package table

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Term is one coefficient of a linear combination of int64 columns.
type Term struct {
	Column string
	Coef   int64
}

func (t *Table) int64Columns(names []string) ([]*array.Int64, error) {
	cols, err := t.columns(names)
	if err != nil {
		return nil, err
	}
	out := make([]*array.Int64, len(cols))
	for i, c := range cols {
		ints, ok := c.(*array.Int64)
		if !ok {
			return nil, fmt.Errorf("column %q is %s, want int64: %w", names[i], c.DataType(), ErrUnsupportedType)
		}
		out[i] = ints
	}
	return out, nil
}

// LinearInt64 computes constant + sum(coef * column) for every row. A null in any term
// yields a null.
func (t *Table) LinearInt64(terms []Term, constant int64) (arrow.Array, error) {
	names := make([]string, len(terms))
	for i, term := range terms {
		names[i] = term.Column
	}
	cols, err := t.int64Columns(names)
	if err != nil {
		return nil, err
	}

	b := array.NewInt64Builder(t.mem)
	defer b.Release()
	b.Reserve(t.rows)
rows:
	for row := range t.rows {
		v := constant
		for i, col := range cols {
			if col.IsNull(row) {
				b.AppendNull()
				continue rows
			}
			v += terms[i].Coef * col.Value(row)
		}
		b.Append(v)
	}
	return b.NewArray(), nil
}

// MapRows calls fn once per row with the values of the named int64 columns and collects
// the results. The slice passed to fn is reused between calls. Rows with a null input
// produce a null.
func (t *Table) MapRows(names []string, fn func(row []int64) int64) (arrow.Array, error) {
	cols, err := t.int64Columns(names)
	if err != nil {
		return nil, err
	}

	b := array.NewInt64Builder(t.mem)
	defer b.Release()
	b.Reserve(t.rows)
	values := make([]int64, len(cols))
rows:
	for row := range t.rows {
		for i, col := range cols {
			if col.IsNull(row) {
				b.AppendNull()
				continue rows
			}
			values[i] = col.Value(row)
		}
		b.Append(fn(values))
	}
	return b.NewArray(), nil
}
