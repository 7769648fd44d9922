package bench_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paveg/tablebench/internal/bench"
)

// fakeParams drives the fake benchmark kind used across the tests.
type fakeParams struct {
	Rows     int64 `yaml:"rows"`
	Fail     bool  `yaml:"fail"`
	Panic    bool  `yaml:"panic"`
	SetupErr bool  `yaml:"setup_error"`
}

// fakeCounters records how often each phase ran.
type fakeCounters struct {
	setups   int
	runs     int
	cleanups int

	// cleanedUp counts cleanups per definition name.
	cleanedUp map[string]int
}

func fakeRegistry(t *testing.T, counters *fakeCounters) *bench.Registry {
	t.Helper()
	reg := bench.NewRegistry()
	reg.MustRegister("fake", func(_ context.Context, _ bench.Env, spec bench.FileSpec) (*bench.Definition, error) {
		var p fakeParams
		if err := spec.DecodeParams(&p); err != nil {
			return nil, err
		}
		if p.SetupErr {
			return nil, errors.New("setup exploded")
		}
		counters.setups++
		return &bench.Definition{
			Name: spec.Name,
			Run: func() (int64, error) {
				counters.runs++
				if p.Panic {
					panic("boom")
				}
				if p.Fail {
					return 0, errors.New("operation failed")
				}
				return p.Rows, nil
			},
			Cleanup: func() error {
				counters.cleanups++
				if counters.cleanedUp == nil {
					counters.cleanedUp = make(map[string]int)
				}
				counters.cleanedUp[spec.Name]++
				return nil
			},
		}, nil
	})
	return reg
}

func writeBenchFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
