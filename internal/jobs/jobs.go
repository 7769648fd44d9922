// Package jobs provides the built-in benchmark kinds.
//
// Each kind turns a benchmark file into a definition: datasets are loaded during setup and
// tracked in a memory scope, the timed operation runs against them, and cleanup releases the
// scope. Operations that read their input inside the timed region say so in their docs.
package jobs

import (
	"context"
	"fmt"

	"github.com/paveg/tablebench/internal/bench"
	"github.com/paveg/tablebench/internal/dataset"
	"github.com/paveg/tablebench/internal/memory"
	"github.com/paveg/tablebench/internal/table"
)

// Benchmark kinds.
const (
	KindReadTable = "readtable"
	KindWhere     = "where"
	KindCountBy   = "count_by"
	KindSumBy     = "sum_by"
	KindComboAgg  = "combo_agg"
	KindJoin      = "join"
	KindSort      = "sort"
	KindUpdate    = "update"
	KindView      = "view"
	KindAsOf      = "asof"
)

// Register adds every built-in kind to reg.
func Register(reg *bench.Registry) error {
	factories := map[string]bench.Factory{
		KindReadTable: newReadTable,
		KindWhere:     newWhere,
		KindCountBy:   newGroupAgg(table.AggCount),
		KindSumBy:     newGroupAgg(table.AggSum),
		KindComboAgg:  newComboAgg,
		KindJoin:      newJoin,
		KindSort:      newSort,
		KindUpdate:    newUpdate,
		KindView:      newView,
		KindAsOf:      newAsOf,
	}
	for kind, factory := range factories {
		if err := reg.Register(kind, factory); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in kinds.
func NewRegistry() *bench.Registry {
	reg := bench.NewRegistry()
	if err := Register(reg); err != nil {
		panic(err)
	}
	return reg
}

// setup carries the state one factory builds.
type setup struct {
	ctx   context.Context
	env   bench.Env
	spec  bench.FileSpec
	scope *memory.Scope
}

func newSetup(ctx context.Context, env bench.Env, spec bench.FileSpec) *setup {
	return &setup{ctx: ctx, env: env, spec: spec, scope: memory.NewScope()}
}

// tableName picks the logical table, defaulting to the only declared one.
func (s *setup) tableName(name string) (string, error) {
	if name != "" {
		return name, nil
	}
	if len(s.spec.Tables) != 1 {
		return "", fmt.Errorf("params.table is required when %d tables are declared", len(s.spec.Tables))
	}
	for logical := range s.spec.Tables {
		return logical, nil
	}
	return "", nil
}

// read loads a logical table without tracking it.
func (s *setup) read(ctx context.Context, logical string, opts ...dataset.Option) (*table.Table, error) {
	file, err := s.spec.Table(logical)
	if err != nil {
		return nil, err
	}
	return dataset.Open(ctx, s.env.DatasetPath(file), s.env.Allocator, opts...)
}

// load reads a logical table during setup and tracks it for cleanup.
func (s *setup) load(logical string, opts ...dataset.Option) (*table.Table, error) {
	tbl, err := s.read(s.ctx, logical, opts...)
	if err != nil {
		return nil, err
	}
	if s.env.Logger != nil {
		s.env.Logger.Debug("loaded dataset", "bench", s.spec.Name, "table", logical, "rows", tbl.NumRows())
	}
	return memory.Track(s.scope, tbl), nil
}

// fail releases everything loaded so far and returns err.
func (s *setup) fail(err error) (*bench.Definition, error) {
	s.scope.Release()
	return nil, err
}

// keep tracks a result so it is released during cleanup instead of inside the timed region.
func (s *setup) keep(t *table.Table) *table.Table {
	return memory.Track(s.scope, t)
}

func (s *setup) definition(run func() (int64, error)) *bench.Definition {
	return &bench.Definition{
		Name: s.spec.Name,
		Run:  run,
		Cleanup: func() error {
			s.scope.Release()
			return nil
		},
	}
}

// projection returns the dataset options for an optional column list.
func projection(columns []string) []dataset.Option {
	if len(columns) == 0 {
		return nil
	}
	return []dataset.Option{dataset.WithColumns(columns...)}
}

// repeatSlices returns head slices of t of sizes 0, step, 2*step, ... below its row count.
func (s *setup) repeatSlices(t *table.Table, step int) []*table.Table {
	var slices []*table.Table
	for size := 0; size < t.NumRows(); size += step {
		slices = append(slices, memory.Track(s.scope, t.Head(size)))
	}
	return slices
}

// tableOp is one timed table operation.
type tableOp func(t *table.Table) (*table.Table, error)

// repeatCount selects the row count a repeat run reports.
type repeatCount int

const (
	// countLast reports the rows of the last slice's result.
	countLast repeatCount = iota
	// countSum reports the rows of every slice's result added together.
	countSum
)

// runOp applies op to the input, or to every repeat slice when step is positive, and
// returns the row count of the last result.
func (s *setup) runOp(input *table.Table, step int, op tableOp) (*bench.Definition, error) {
	return s.runRepeated(input, step, countLast, op)
}

// runRepeated is runOp with a choice of how repeat slices are counted.
func (s *setup) runRepeated(input *table.Table, step int, count repeatCount, op tableOp) (*bench.Definition, error) {
	if step < 0 {
		return s.fail(fmt.Errorf("repeat_step must be positive, got %d", step))
	}
	if step == 0 {
		return s.definition(func() (int64, error) {
			out, err := op(input)
			if err != nil {
				return 0, err
			}
			return int64(s.keep(out).NumRows()), nil
		}), nil
	}

	slices := s.repeatSlices(input, step)
	return s.definition(func() (int64, error) {
		var (
			last  *table.Table
			total int64
		)
		for _, slice := range slices {
			out, err := op(slice)
			if last != nil {
				last.Release()
				last = nil
			}
			if err != nil {
				return 0, err
			}
			total += int64(out.NumRows())
			last = out
		}
		if last == nil {
			return 0, nil
		}
		rows := int64(s.keep(last).NumRows())
		if count == countSum {
			return total, nil
		}
		return rows, nil
	}), nil
}
