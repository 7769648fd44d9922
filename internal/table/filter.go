package table

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Filter keeps the rows where mask is true. Null mask entries drop the row.
func (t *Table) Filter(mask *array.Boolean) (*Table, error) {
	if mask.Len() != t.rows {
		return nil, fmt.Errorf("mask of length %d for %d rows: %w", mask.Len(), t.rows, ErrMismatchedLength)
	}

	idx := make([]int, 0, t.rows)
	for i := range t.rows {
		if mask.IsValid(i) && mask.Value(i) {
			idx = append(idx, i)
		}
	}
	return t.take(idx)
}

// EqualColumns returns a mask that is true where the two named columns hold equal
// non-null values.
func (t *Table) EqualColumns(left, right string) (*array.Boolean, error) {
	cols, err := t.columns([]string{left, right})
	if err != nil {
		return nil, err
	}
	if !arrow.TypeEqual(cols[0].DataType(), cols[1].DataType()) {
		return nil, fmt.Errorf("comparing %s with %s: %w", cols[0].DataType(), cols[1].DataType(), ErrUnsupportedType)
	}

	b := array.NewBooleanBuilder(t.mem)
	defer b.Release()
	b.Reserve(t.rows)
	for i := range t.rows {
		b.Append(valuesEqual(cols[0], i, cols[1], i))
	}
	return b.NewBooleanArray(), nil
}

// valuesEqual compares two cells of arrays of the same type. Nulls never compare equal.
func valuesEqual(a arrow.Array, i int, b arrow.Array, j int) bool {
	if a.IsNull(i) || b.IsNull(j) {
		return false
	}
	switch a := a.(type) {
	case *array.Int64:
		return a.Value(i) == b.(*array.Int64).Value(j)
	case *array.Float64:
		return a.Value(i) == b.(*array.Float64).Value(j)
	case *array.String:
		return a.Value(i) == b.(*array.String).Value(j)
	}
	return false
}
