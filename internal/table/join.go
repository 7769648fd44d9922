package table

import (
	"fmt"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
)

// JoinKind selects which left rows survive a join.
type JoinKind int

const (
	// LeftJoin keeps every left row; unmatched rows get null right columns.
	LeftJoin JoinKind = iota
	// InnerJoin keeps only left rows with at least one match.
	InnerJoin
)

// ParseJoinKind resolves "left" or "inner".
func ParseJoinKind(name string) (JoinKind, error) {
	switch name {
	case "", "left":
		return LeftJoin, nil
	case "inner":
		return InnerJoin, nil
	default:
		return 0, fmt.Errorf("unknown join kind %q", name)
	}
}

func (k JoinKind) String() string {
	if k == InnerJoin {
		return "inner"
	}
	return "left"
}

// Join hash-joins right onto t by the key columns on. Output rows follow left order,
// with one row per matching right row in right order. Right key columns are dropped and
// other right columns that clash with a left name get a "_right" suffix.
func (t *Table) Join(right *Table, on []string, kind JoinKind) (*Table, error) {
	if len(on) == 0 {
		return nil, fmt.Errorf("join requires at least one key")
	}
	leftKeys, err := t.columns(on)
	if err != nil {
		return nil, fmt.Errorf("left side: %w", err)
	}
	rightKeys, err := right.columns(on)
	if err != nil {
		return nil, fmt.Errorf("right side: %w", err)
	}
	if err := checkKeyTypes(leftKeys, rightKeys, on); err != nil {
		return nil, err
	}

	index := newHashIndex(rightKeys, right.rows)
	var matches [][]int
	for row := range right.rows {
		grp := index.insert(row)
		if grp < 0 {
			continue
		}
		if int(grp) == len(matches) {
			matches = append(matches, nil)
		}
		matches[grp] = append(matches[grp], row)
	}

	probe := newRowHasher(leftKeys)
	leftIdx := make([]int, 0, t.rows)
	rightIdx := make([]int, 0, t.rows)
	for row := range t.rows {
		grp := index.lookup(probe, row)
		if grp < 0 {
			if kind == LeftJoin {
				leftIdx = append(leftIdx, row)
				rightIdx = append(rightIdx, -1)
			}
			continue
		}
		for _, r := range matches[grp] {
			leftIdx = append(leftIdx, row)
			rightIdx = append(rightIdx, r)
		}
	}

	return combine(t, leftIdx, right, rightIdx, on)
}

// combine gathers left rows and right rows side by side, dropping the right columns
// named in exclude.
func combine(left *Table, leftIdx []int, right *Table, rightIdx []int, exclude []string) (*Table, error) {
	names := left.ColumnNames()
	cols := make([]arrow.Array, 0, len(left.cols)+len(right.cols))
	release := func() {
		for _, c := range cols {
			c.Release()
		}
	}

	for _, c := range left.cols {
		taken, err := take(left.mem, c, leftIdx)
		if err != nil {
			release()
			return nil, err
		}
		cols = append(cols, taken)
	}

	for i, c := range right.cols {
		name := right.names[i]
		if slices.Contains(exclude, name) {
			continue
		}
		taken, err := take(left.mem, c, rightIdx)
		if err != nil {
			release()
			return nil, err
		}
		if slices.Contains(names, name) {
			name += "_right"
		}
		names = append(names, name)
		cols = append(cols, taken)
	}

	return New(left.mem, names, cols)
}
