package jobs

import (
	"context"
	"fmt"

	"github.com/paveg/tablebench/internal/bench"
	"github.com/paveg/tablebench/internal/table"
)

type groupParams struct {
	Table   string   `yaml:"table"`
	Keys    []string `yaml:"keys"`
	Columns []string `yaml:"columns"`
	// RepeatStep times the operation over head slices growing by this many rows.
	RepeatStep int `yaml:"repeat_step"`
}

// newGroupAgg builds count_by and sum_by: group by keys and apply kind to every other
// loaded column. The result is the number of groups.
func newGroupAgg(kind table.AggKind) bench.Factory {
	return func(ctx context.Context, env bench.Env, spec bench.FileSpec) (*bench.Definition, error) {
		var p groupParams
		if err := spec.DecodeParams(&p); err != nil {
			return nil, err
		}
		if len(p.Keys) == 0 {
			return nil, fmt.Errorf("params.keys is required")
		}

		s := newSetup(ctx, env, spec)
		logical, err := s.tableName(p.Table)
		if err != nil {
			return nil, err
		}
		input, err := s.load(logical, projection(p.Columns)...)
		if err != nil {
			return s.fail(err)
		}
		return s.runOp(input, p.RepeatStep, groupAgg(p.Keys, kind, nil))
	}
}

// AggSpec is a named aggregation in a benchmark file.
type AggSpec struct {
	Op     string `yaml:"op"`
	Column string `yaml:"column"`
	As     string `yaml:"as"`
}

type comboParams struct {
	groupParams `yaml:",inline"`
	Aggs        []AggSpec `yaml:"aggs"`
}

// newComboAgg groups by keys and computes a list of named aggregations.
func newComboAgg(ctx context.Context, env bench.Env, spec bench.FileSpec) (*bench.Definition, error) {
	var p comboParams
	if err := spec.DecodeParams(&p); err != nil {
		return nil, err
	}
	if len(p.Keys) == 0 {
		return nil, fmt.Errorf("params.keys is required")
	}
	if len(p.Aggs) == 0 {
		return nil, fmt.Errorf("params.aggs is required")
	}

	aggs := make([]table.Agg, len(p.Aggs))
	for i, a := range p.Aggs {
		kind, err := table.ParseAggKind(a.Op)
		if err != nil {
			return nil, fmt.Errorf("params.aggs[%d]: %w", i, err)
		}
		if a.Column == "" {
			return nil, fmt.Errorf("params.aggs[%d]: column is required", i)
		}
		aggs[i] = table.Agg{Kind: kind, Column: a.Column, As: a.As}
	}

	s := newSetup(ctx, env, spec)
	logical, err := s.tableName(p.Table)
	if err != nil {
		return nil, err
	}
	input, err := s.load(logical, projection(p.Columns)...)
	if err != nil {
		return s.fail(err)
	}
	return s.runOp(input, p.RepeatStep, groupAgg(p.Keys, 0, aggs))
}
