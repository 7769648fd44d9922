package jobs

import (
	"context"
	"fmt"

	"github.com/paveg/tablebench/internal/bench"
	"github.com/paveg/tablebench/internal/table"
)

// JoinStep joins one more logical table onto the running result.
type JoinStep struct {
	Table string   `yaml:"table"`
	On    []string `yaml:"on"`
	How   string   `yaml:"how"`
}

type joinParams struct {
	Left  string     `yaml:"left"`
	Joins []JoinStep `yaml:"joins"`
	// Columns projects the final result.
	Columns []string `yaml:"columns"`
}

// newJoin chains hash joins starting from the left table, e.g. relation joined with
// adjectives and then animals. The result is the joined row count.
func newJoin(ctx context.Context, env bench.Env, spec bench.FileSpec) (*bench.Definition, error) {
	p := joinParams{Left: "relation"}
	if err := spec.DecodeParams(&p); err != nil {
		return nil, err
	}
	if len(p.Joins) == 0 {
		return nil, fmt.Errorf("params.joins is required")
	}

	s := newSetup(ctx, env, spec)
	left, err := s.load(p.Left)
	if err != nil {
		return s.fail(err)
	}
	rights := make([]*table.Table, len(p.Joins))
	kinds := make([]table.JoinKind, len(p.Joins))
	for i, step := range p.Joins {
		if len(step.On) == 0 {
			return s.fail(fmt.Errorf("params.joins[%d].on is required", i))
		}
		if kinds[i], err = table.ParseJoinKind(step.How); err != nil {
			return s.fail(fmt.Errorf("params.joins[%d]: %w", i, err))
		}
		if rights[i], err = s.load(step.Table); err != nil {
			return s.fail(err)
		}
	}

	return s.runOp(left, 0, func(t *table.Table) (*table.Table, error) {
		current := t
		release := func() {
			if current != t {
				current.Release()
			}
		}
		for i, step := range p.Joins {
			next, err := current.Join(rights[i], step.On, kinds[i])
			release()
			if err != nil {
				return nil, fmt.Errorf("joining %s: %w", step.Table, err)
			}
			current = next
		}
		if len(p.Columns) == 0 {
			return current, nil
		}
		defer release()
		return current.Select(p.Columns...)
	})
}

type sortParams struct {
	Table      string   `yaml:"table"`
	Keys       []string `yaml:"keys"`
	Columns    []string `yaml:"columns"`
	RepeatStep int      `yaml:"repeat_step"`
}

// newSort times a stable multi-key sort. A repeat run reports the rows of all slices together.
func newSort(ctx context.Context, env bench.Env, spec bench.FileSpec) (*bench.Definition, error) {
	var p sortParams
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
	return s.runRepeated(input, p.RepeatStep, countSum, sortBy(p.Keys))
}

type asofParams struct {
	Left  string   `yaml:"left"`
	Right string   `yaml:"right"`
	On    string   `yaml:"on"`
	By    []string `yaml:"by"`
}

// newAsOf times an as-of join of the left table against the right one. The result is
// the left row count.
func newAsOf(ctx context.Context, env bench.Env, spec bench.FileSpec) (*bench.Definition, error) {
	p := asofParams{Left: "auditqueue", Right: "workqueue", On: "timestamp"}
	if err := spec.DecodeParams(&p); err != nil {
		return nil, err
	}

	s := newSetup(ctx, env, spec)
	left, err := s.load(p.Left)
	if err != nil {
		return s.fail(err)
	}
	right, err := s.load(p.Right)
	if err != nil {
		return s.fail(err)
	}

	return s.runOp(left, 0, func(t *table.Table) (*table.Table, error) {
		return t.AsOfJoin(right, p.On, p.By...)
	})
}
