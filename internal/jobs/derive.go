package jobs

import (
	"context"
	"fmt"

	"github.com/paveg/tablebench/internal/bench"
	"github.com/paveg/tablebench/internal/table"
)

// DefaultMultiplier combines two ids into one composite id.
const DefaultMultiplier = 643

type updateParams struct {
	Table   string    `yaml:"table"`
	Columns []string  `yaml:"columns"`
	Derived []Derived `yaml:"derived"`
	// Count adds vp1..vpN columns, each the sum of the id columns plus its index.
	Count int `yaml:"count"`
}

// newUpdate times adding derived columns. With neither derived nor count it adds the composite
// id adjective_id*643 + animal_id.
func newUpdate(ctx context.Context, env bench.Env, spec bench.FileSpec) (*bench.Definition, error) {
	var p updateParams
	if err := spec.DecodeParams(&p); err != nil {
		return nil, err
	}
	derived, err := p.resolve()
	if err != nil {
		return nil, err
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
	return s.runOp(input, 0, deriveColumns(derived))
}

func (p updateParams) resolve() ([]Derived, error) {
	if len(p.Derived) > 0 && p.Count > 0 {
		return nil, fmt.Errorf("params.derived and params.count are exclusive")
	}
	for i, d := range p.Derived {
		if d.Name == "" || len(d.Terms) == 0 {
			return nil, fmt.Errorf("params.derived[%d] needs a name and terms", i)
		}
	}
	if len(p.Derived) > 0 {
		return p.Derived, nil
	}

	ids := []Derived{}
	for i := 1; i <= p.Count; i++ {
		ids = append(ids, Derived{
			Name:     fmt.Sprintf("vp%d", i),
			Terms:    idTerms(1),
			Constant: int64(i),
		})
	}
	if len(ids) > 0 {
		return ids, nil
	}
	return []Derived{{Name: "composite_id", Terms: idTerms(DefaultMultiplier)}}, nil
}

func idTerms(adjectiveCoef int64) []table.Term {
	return []table.Term{
		{Column: "adjective_id", Coef: adjectiveCoef},
		{Column: "animal_id", Coef: 1},
	}
}

type viewParams struct {
	Table      string   `yaml:"table"`
	Columns    []string `yaml:"columns"`
	Multiplier int64    `yaml:"multiplier"`
	As         string   `yaml:"as"`
}

// newView times a row-wise apply that folds the columns into one value per row.
func newView(ctx context.Context, env bench.Env, spec bench.FileSpec) (*bench.Definition, error) {
	p := viewParams{
		Columns:    []string{"adjective_id", "animal_id"},
		Multiplier: DefaultMultiplier,
		As:         "view",
	}
	if err := spec.DecodeParams(&p); err != nil {
		return nil, err
	}
	if len(p.Columns) == 0 {
		return nil, fmt.Errorf("params.columns is required")
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
	return s.runOp(input, 0, rowPolynomial(p.Columns, p.Multiplier, p.As))
}
