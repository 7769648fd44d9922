package table

import (
	"fmt"
	"math"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"golang.org/x/exp/constraints"
)

// AggKind is an aggregation function.
type AggKind int

const (
	AggCount AggKind = iota
	AggSum
	AggMin
	AggMax
	AggMean
	AggStd
	AggFirst
	AggLast
)

var aggNames = map[AggKind]string{
	AggCount: "count",
	AggSum:   "sum",
	AggMin:   "min",
	AggMax:   "max",
	AggMean:  "mean",
	AggStd:   "std",
	AggFirst: "first",
	AggLast:  "last",
}

func (k AggKind) String() string {
	if name, ok := aggNames[k]; ok {
		return name
	}
	return fmt.Sprintf("AggKind(%d)", int(k))
}

// ParseAggKind resolves an aggregation by name.
func ParseAggKind(name string) (AggKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for kind, n := range aggNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown aggregation %q", name)
}

// Agg names one output column of a grouped aggregation. As defaults to Column.
type Agg struct {
	Kind   AggKind
	Column string
	As     string
}

func (a Agg) outputName() string {
	if a.As != "" {
		return a.As
	}
	return a.Column
}

// Grouping is a table partitioned by key columns. Groups are ordered by first appearance
// and rows with a null key are excluded.
type Grouping struct {
	t       *Table
	keys    []string
	groupOf []int32
	reps    []int
}

// GroupBy partitions the table by the named key columns.
func (t *Table) GroupBy(keys ...string) (*Grouping, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("group by requires at least one key")
	}
	cols, err := t.columns(keys)
	if err != nil {
		return nil, err
	}

	index := newHashIndex(cols, 0)
	groupOf := make([]int32, t.rows)
	for row := range t.rows {
		groupOf[row] = index.insert(row)
	}

	return &Grouping{t: t, keys: keys, groupOf: groupOf, reps: index.reps}, nil
}

// NumGroups returns the number of distinct keys.
func (g *Grouping) NumGroups() int {
	return len(g.reps)
}

// Agg computes one column per aggregation and returns the key columns followed by the
// aggregates, one row per group.
func (g *Grouping) Agg(aggs ...Agg) (*Table, error) {
	keyTable, err := g.t.Select(g.keys...)
	if err != nil {
		return nil, err
	}
	defer keyTable.Release()

	out, err := keyTable.take(g.reps)
	if err != nil {
		return nil, err
	}

	for _, agg := range aggs {
		col, err := g.t.Column(agg.Column)
		if err != nil {
			out.Release()
			return nil, err
		}
		result, err := g.aggregate(agg.Kind, col)
		if err != nil {
			out.Release()
			return nil, fmt.Errorf("%s(%s): %w", agg.Kind, agg.Column, err)
		}
		next, err := out.withNewColumn(agg.outputName(), result)
		out.Release()
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

// withNewColumn is WithColumn without replacement; a clash is an error.
func (t *Table) withNewColumn(name string, arr arrow.Array) (*Table, error) {
	if _, err := t.index(name); err == nil {
		arr.Release()
		return nil, fmt.Errorf("duplicate column %q", name)
	}
	return t.WithColumn(name, arr)
}

func (g *Grouping) aggregate(kind AggKind, col arrow.Array) (arrow.Array, error) {
	mem := g.t.mem
	n := g.NumGroups()

	switch kind {
	case AggCount:
		counts := make([]int64, n)
		for row, grp := range g.groupOf {
			if grp >= 0 && col.IsValid(row) {
				counts[grp]++
			}
		}
		return buildNumeric(mem, counts, nil), nil
	case AggFirst, AggLast:
		idx := make([]int, n)
		for i := range idx {
			idx[i] = -1
		}
		for row, grp := range g.groupOf {
			if grp < 0 || col.IsNull(row) {
				continue
			}
			if kind == AggLast || idx[grp] < 0 {
				idx[grp] = row
			}
		}
		return take(mem, col, idx)
	}

	switch c := col.(type) {
	case *array.Int64:
		return aggregateNumeric[int64](mem, kind, c, g.groupOf, n)
	case *array.Float64:
		return aggregateNumeric[float64](mem, kind, c, g.groupOf, n)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, col.DataType())
	}
}

type number interface {
	constraints.Integer | constraints.Float
}

type numericArray[T number] interface {
	IsNull(i int) bool
	Value(i int) T
}

func aggregateNumeric[T number](mem memory.Allocator, kind AggKind, col numericArray[T], groupOf []int32, n int) (arrow.Array, error) {
	switch kind {
	case AggSum, AggMin, AggMax:
		vals, valid := reduce(kind, col, groupOf, n)
		return buildNumeric(mem, vals, valid), nil
	case AggMean, AggStd:
		counts, means, m2 := moments(col, groupOf, n)
		out := make([]float64, n)
		valid := make([]bool, n)
		for grp := range n {
			if kind == AggMean {
				out[grp], valid[grp] = means[grp], counts[grp] > 0
				continue
			}
			if counts[grp] > 1 {
				out[grp], valid[grp] = math.Sqrt(m2[grp]/float64(counts[grp]-1)), true
			}
		}
		return buildNumeric(mem, out, valid), nil
	default:
		return nil, fmt.Errorf("aggregation %s is not numeric", kind)
	}
}

// reduce computes sum, min or max per group. Sums of empty groups are zero; min and max
// of empty groups are null.
func reduce[T number](kind AggKind, col numericArray[T], groupOf []int32, n int) ([]T, []bool) {
	vals := make([]T, n)
	seen := make([]bool, n)
	for row, grp := range groupOf {
		if grp < 0 || col.IsNull(row) {
			continue
		}
		v := col.Value(row)
		switch {
		case !seen[grp]:
			vals[grp] = v
		case kind == AggSum:
			vals[grp] += v
		case kind == AggMin && v < vals[grp]:
			vals[grp] = v
		case kind == AggMax && v > vals[grp]:
			vals[grp] = v
		}
		seen[grp] = true
	}
	if kind == AggSum {
		return vals, nil
	}
	return vals, seen
}

// moments accumulates count, mean and the sum of squared deviations with Welford's method.
func moments[T number](col numericArray[T], groupOf []int32, n int) ([]int64, []float64, []float64) {
	counts := make([]int64, n)
	means := make([]float64, n)
	m2 := make([]float64, n)
	for row, grp := range groupOf {
		if grp < 0 || col.IsNull(row) {
			continue
		}
		x := float64(col.Value(row))
		counts[grp]++
		delta := x - means[grp]
		means[grp] += delta / float64(counts[grp])
		m2[grp] += delta * (x - means[grp])
	}
	return counts, means, m2
}

// buildNumeric builds an int64 or float64 array; valid may be nil when every value is set.
func buildNumeric[T number](mem memory.Allocator, vals []T, valid []bool) arrow.Array {
	switch v := any(vals).(type) {
	case []int64:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		b.AppendValues(v, valid)
		return b.NewArray()
	case []float64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		b.AppendValues(v, valid)
		return b.NewArray()
	}

	b := array.NewFloat64Builder(mem)
	defer b.Release()
	for i, x := range vals {
		if valid != nil && !valid[i] {
			b.AppendNull()
			continue
		}
		b.Append(float64(x))
	}
	return b.NewArray()
}
