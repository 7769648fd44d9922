package table

import (
	"cmp"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// SortBy returns the rows ordered ascending by the named columns. The sort is stable and
// nulls sort last.
func (t *Table) SortBy(names ...string) (*Table, error) {
	cols, err := t.columns(names)
	if err != nil {
		return nil, err
	}

	idx := make([]int, t.rows)
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		for _, c := range cols {
			if r := compareCells(c, a, b); r != 0 {
				return r
			}
		}
		return 0
	})
	return t.take(idx)
}

func compareCells(col arrow.Array, i, j int) int {
	ni, nj := col.IsNull(i), col.IsNull(j)
	switch {
	case ni && nj:
		return 0
	case ni:
		return 1
	case nj:
		return -1
	}
	switch c := col.(type) {
	case *array.Int64:
		return cmp.Compare(c.Value(i), c.Value(j))
	case *array.Float64:
		return cmp.Compare(c.Value(i), c.Value(j))
	case *array.String:
		return cmp.Compare(c.Value(i), c.Value(j))
	}
	return 0
}
