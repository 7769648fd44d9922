package table

import (
	"fmt"
	"slices"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// AsOfJoin matches every left row with the right row that has the largest on value not
// greater than the left row's, optionally within equal by keys. Left order is kept and
// unmatched rows get null right columns. The on columns must be int64; neither side
// needs to be sorted.
func (t *Table) AsOfJoin(right *Table, on string, by ...string) (*Table, error) {
	leftOn, err := t.int64Columns([]string{on})
	if err != nil {
		return nil, fmt.Errorf("left side: %w", err)
	}
	rightOn, err := right.int64Columns([]string{on})
	if err != nil {
		return nil, fmt.Errorf("right side: %w", err)
	}
	leftBy, err := t.columns(by)
	if err != nil {
		return nil, fmt.Errorf("left side: %w", err)
	}
	rightBy, err := right.columns(by)
	if err != nil {
		return nil, fmt.Errorf("right side: %w", err)
	}
	if err := checkKeyTypes(leftBy, rightBy, by); err != nil {
		return nil, err
	}

	candidates := asofCandidates(rightOn[0], rightBy, right.rows)
	index := candidates.index

	var probe *rowHasher
	if index != nil {
		probe = newRowHasher(leftBy)
	}
	rightIdx := make([]int, t.rows)
	leftIdx := make([]int, t.rows)
	for row := range t.rows {
		leftIdx[row] = row
		rightIdx[row] = -1
		if leftOn[0].IsNull(row) {
			continue
		}

		grp := int32(0)
		if index != nil {
			if grp = index.lookup(probe, row); grp < 0 {
				continue
			}
		}
		rows := candidates.rows[grp]
		target := leftOn[0].Value(row)
		pos := sort.Search(len(rows), func(k int) bool {
			return rightOn[0].Value(rows[k]) > target
		}) - 1
		if pos >= 0 {
			rightIdx[row] = rows[pos]
		}
	}

	return combine(t, leftIdx, right, rightIdx, append([]string{on}, by...))
}

type asofGroups struct {
	index *hashIndex // nil when there are no by keys
	rows  [][]int    // right rows per group, ascending by the on column
}

func asofCandidates(on *array.Int64, by []arrow.Array, n int) asofGroups {
	var groups asofGroups
	if len(by) > 0 {
		groups.index = newHashIndex(by, 0)
	} else {
		groups.rows = [][]int{nil}
	}

	for row := range n {
		if on.IsNull(row) {
			continue
		}
		grp := int32(0)
		if groups.index != nil {
			if grp = groups.index.insert(row); grp < 0 {
				continue
			}
			if int(grp) == len(groups.rows) {
				groups.rows = append(groups.rows, nil)
			}
		}
		groups.rows[grp] = append(groups.rows[grp], row)
	}

	for _, rows := range groups.rows {
		slices.SortStableFunc(rows, func(a, b int) int {
			return compareCells(on, a, b)
		})
	}
	return groups
}
