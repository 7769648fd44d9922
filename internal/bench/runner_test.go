package bench_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/tablebench/internal/bench"
	berrors "github.com/paveg/tablebench/internal/errors"
	"github.com/paveg/tablebench/internal/probe"
)

// tickClock advances by step on every call.
func tickClock(start time.Time, step time.Duration) func() time.Time {
	now := start
	return func() time.Time {
		t := now
		now = now.Add(step)
		return t
	}
}

type recordingSampler struct {
	calls []string
}

func (s *recordingSampler) Pre() probe.Sample {
	s.calls = append(s.calls, "pre")
	return probe.Sample{Collection: 10 * time.Millisecond}
}

func (s *recordingSampler) Post(_ string, pre probe.Sample, elapsed time.Duration) probe.Reading {
	s.calls = append(s.calls, "post")
	return probe.Reading{ProcessID: "p", GCSeconds: 0.5, Elapsed: elapsed, Contaminated: true}
}

func TestRunnerRun(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var stdout bytes.Buffer
	runner := bench.NewRunner(bench.WithClock(tickClock(start, 1500*time.Millisecond)), bench.WithStdout(&stdout))

	var order []string
	def := &bench.Definition{
		Name: "sum-by",
		Run: func() (int64, error) {
			order = append(order, "run")
			return 250, nil
		},
		Cleanup: func() error {
			order = append(order, "cleanup")
			return nil
		},
	}

	m, err := runner.Run(def)
	require.NoError(t, err)

	assert.Equal(t, []string{"run", "cleanup"}, order)
	assert.Equal(t, "sum-by", m.Name)
	assert.Equal(t, int64(250), m.Rows)
	assert.Equal(t, 1500*time.Millisecond, m.Elapsed)
	assert.Equal(t, start, m.Start)
	assert.Equal(t, start.Add(1500*time.Millisecond), m.End)
	assert.Nil(t, m.Reading)
	assert.Equal(t, "250\n1.5\n", stdout.String())
}

func TestRunnerCleanupAlwaysRunsOnce(t *testing.T) {
	tests := []struct {
		name string
		run  func() (int64, error)
	}{
		{name: "success", run: func() (int64, error) { return 1, nil }},
		{name: "error", run: func() (int64, error) { return 0, errors.New("failed") }},
		{name: "panic", run: func() (int64, error) { panic("boom") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanups := 0
			def := &bench.Definition{
				Name: tt.name,
				Run:  tt.run,
				Cleanup: func() error {
					cleanups++
					return nil
				},
			}
			_, _ = bench.NewRunner().Run(def)
			assert.Equal(t, 1, cleanups)
		})
	}
}

func TestRunnerErrors(t *testing.T) {
	var stdout bytes.Buffer
	runner := bench.NewRunner(bench.WithStdout(&stdout))

	t.Run("run error", func(t *testing.T) {
		_, err := runner.Run(&bench.Definition{Name: "x", Run: func() (int64, error) { return 0, errors.New("bad input") }})
		require.ErrorIs(t, err, berrors.ErrRun)
		assert.Contains(t, err.Error(), "bad input")
	})

	t.Run("panic becomes run error", func(t *testing.T) {
		_, err := runner.Run(&bench.Definition{Name: "x", Run: func() (int64, error) { panic("boom") }})
		require.ErrorIs(t, err, berrors.ErrRun)
		assert.Contains(t, err.Error(), "panic: boom")
	})

	assert.Empty(t, stdout.String(), "failed runs print nothing")
}

func TestRunnerCleanupErrorIsDiscarded(t *testing.T) {
	var logs bytes.Buffer
	logger := log.NewWithOptions(&logs, log.Options{Level: log.DebugLevel})
	runner := bench.NewRunner(bench.WithRunnerLogger(logger))

	m, err := runner.Run(&bench.Definition{
		Name:    "x",
		Run:     func() (int64, error) { return 3, nil },
		Cleanup: func() error { return errors.New("release failed") },
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.Rows)
	assert.Contains(t, logs.String(), "release failed")

	_, err = runner.Run(&bench.Definition{
		Name:    "y",
		Run:     func() (int64, error) { return 0, errors.New("run failed") },
		Cleanup: func() error { return errors.New("release failed") },
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run failed")
	assert.NotContains(t, err.Error(), "release failed")

	_, err = runner.Run(&bench.Definition{
		Name:    "z",
		Run:     func() (int64, error) { return 1, nil },
		Cleanup: func() error { panic("cleanup panic") },
	})
	require.NoError(t, err)
}

func TestRunnerSampler(t *testing.T) {
	sampler := &recordingSampler{}
	runner := bench.NewRunner(bench.WithSampler(sampler))

	var order []string
	m, err := runner.Run(&bench.Definition{
		Name: "x",
		Run: func() (int64, error) {
			sampler.calls = append(sampler.calls, "run")
			return 1, nil
		},
		Cleanup: func() error {
			order = append(order, "cleanup")
			return nil
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"pre", "run", "post"}, sampler.calls)
	require.NotNil(t, m.Reading)
	assert.True(t, m.Reading.Contaminated)
	assert.InDelta(t, 0.5, m.Reading.GCSeconds, 1e-9)
	assert.Equal(t, []string{"cleanup"}, order)
}
