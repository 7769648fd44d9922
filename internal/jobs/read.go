package jobs

import (
	"context"
	"fmt"

	"github.com/paveg/tablebench/internal/bench"
	"github.com/paveg/tablebench/internal/dataset"
)

type readTableParams struct {
	Table   string   `yaml:"table"`
	Columns []string `yaml:"columns"`
	Limit   int      `yaml:"limit"`
	// Parallel decodes columns concurrently.
	Parallel bool `yaml:"parallel"`
}

// newReadTable times reading a dataset from disk. The result is the number of cells,
// rows times columns.
func newReadTable(ctx context.Context, env bench.Env, spec bench.FileSpec) (*bench.Definition, error) {
	var p readTableParams
	if err := spec.DecodeParams(&p); err != nil {
		return nil, err
	}
	s := newSetup(ctx, env, spec)
	logical, err := s.tableName(p.Table)
	if err != nil {
		return nil, err
	}
	opts := projection(p.Columns)
	if p.Limit > 0 {
		opts = append(opts, dataset.WithLimit(p.Limit))
	}
	if p.Parallel {
		opts = append(opts, dataset.WithParallel(true))
	}

	return s.definition(func() (int64, error) {
		tbl, err := s.read(ctx, logical, opts...)
		if err != nil {
			return 0, err
		}
		s.keep(tbl)
		return int64(tbl.NumRows()) * int64(tbl.NumCols()), nil
	}), nil
}

type whereParams struct {
	Table   string   `yaml:"table"`
	Left    string   `yaml:"left"`
	Right   string   `yaml:"right"`
	Columns []string `yaml:"columns"`
	// Preload reads the dataset during setup instead of inside the timed region.
	Preload bool `yaml:"preload"`
}

// newWhere times filtering rows where two columns are equal.
func newWhere(ctx context.Context, env bench.Env, spec bench.FileSpec) (*bench.Definition, error) {
	p := whereParams{Left: "adjective_id", Right: "animal_id"}
	if err := spec.DecodeParams(&p); err != nil {
		return nil, err
	}
	s := newSetup(ctx, env, spec)
	logical, err := s.tableName(p.Table)
	if err != nil {
		return nil, err
	}
	opts := projection(p.Columns)
	op := equalFilter(p.Left, p.Right)

	if p.Preload {
		input, err := s.load(logical, opts...)
		if err != nil {
			return s.fail(err)
		}
		return s.runOp(input, 0, op)
	}

	return s.definition(func() (int64, error) {
		input, err := s.read(ctx, logical, opts...)
		if err != nil {
			return 0, err
		}
		s.keep(input)
		out, err := op(input)
		if err != nil {
			return 0, fmt.Errorf("filtering %s: %w", logical, err)
		}
		return int64(s.keep(out).NumRows()), nil
	}), nil
}
