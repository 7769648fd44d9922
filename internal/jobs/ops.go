package jobs

import (
	"fmt"
	"slices"

	"github.com/paveg/tablebench/internal/table"
)

func equalFilter(left, right string) tableOp {
	return func(t *table.Table) (*table.Table, error) {
		mask, err := t.EqualColumns(left, right)
		if err != nil {
			return nil, err
		}
		defer mask.Release()
		return t.Filter(mask)
	}
}

// groupAgg groups by keys and aggregates with aggs. With no aggs, kind is applied to
// every non-key column.
func groupAgg(keys []string, kind table.AggKind, aggs []table.Agg) tableOp {
	return func(t *table.Table) (*table.Table, error) {
		grouped, err := t.GroupBy(keys...)
		if err != nil {
			return nil, err
		}
		use := aggs
		if use == nil {
			for _, name := range t.ColumnNames() {
				if !slices.Contains(keys, name) {
					use = append(use, table.Agg{Kind: kind, Column: name})
				}
			}
		}
		return grouped.Agg(use...)
	}
}

func sortBy(keys []string) tableOp {
	return func(t *table.Table) (*table.Table, error) {
		return t.SortBy(keys...)
	}
}

// Derived is one computed int64 column: Constant + sum(Coef * Column).
type Derived struct {
	Name     string       `yaml:"name"`
	Terms    []table.Term `yaml:"terms"`
	Constant int64        `yaml:"constant"`
}

// deriveColumns adds every derived column in order; later columns may use earlier ones.
func deriveColumns(derived []Derived) tableOp {
	return func(t *table.Table) (*table.Table, error) {
		current := t
		for _, d := range derived {
			arr, err := current.LinearInt64(d.Terms, d.Constant)
			if err == nil {
				var next *table.Table
				next, err = current.WithColumn(d.Name, arr)
				if err == nil {
					if current != t {
						current.Release()
					}
					current = next
					continue
				}
			}
			if current != t {
				current.Release()
			}
			return nil, fmt.Errorf("deriving %s: %w", d.Name, err)
		}
		if current == t {
			return t.Select(t.ColumnNames()...)
		}
		return current, nil
	}
}

// rowPolynomial evaluates ((v0*m + v1)*m + v2)... row by row into one new column.
func rowPolynomial(columns []string, multiplier int64, name string) tableOp {
	return func(t *table.Table) (*table.Table, error) {
		arr, err := t.MapRows(columns, func(row []int64) int64 {
			var acc int64
			for _, v := range row {
				acc = acc*multiplier + v
			}
			return acc
		})
		if err != nil {
			return nil, err
		}
		empty, err := t.Select()
		if err != nil {
			arr.Release()
			return nil, err
		}
		defer empty.Release()
		return empty.WithColumn(name, arr)
	}
}
