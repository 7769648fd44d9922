package bench_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/tablebench/internal/bench"
	berrors "github.com/paveg/tablebench/internal/errors"
	"github.com/paveg/tablebench/internal/probe"
	"github.com/paveg/tablebench/internal/results"
)

type recordingObserver struct {
	observed []string
	failed   []string
}

func (o *recordingObserver) Observe(m bench.Measurement) { o.observed = append(o.observed, m.Name) }
func (o *recordingObserver) Fail(file string, _ error)   { o.failed = append(o.failed, file) }

type driverFixture struct {
	dir      string
	counters *fakeCounters
	stdout   *bytes.Buffer
	observer *recordingObserver
	results  string
}

func newDriver(t *testing.T, layout results.Layout, mutate func(*bench.DriverConfig)) (*bench.Driver, *driverFixture) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))

	fx := &driverFixture{
		dir:      dir,
		counters: &fakeCounters{},
		stdout:   &bytes.Buffer{},
		observer: &recordingObserver{},
		results:  filepath.Join(dir, "data", "results.csv"),
	}
	p := probe.New(probe.WithProcessID("proc-1"), probe.WithClock(&fixedClock{}), probe.WithCollector(func() {}))

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	cfg := bench.DriverConfig{
		Loader:         bench.NewLoader(fakeRegistry(t, fx.counters), bench.Env{OutputPrefixPath: dir}),
		Runner:         bench.NewRunner(bench.WithStdout(fx.stdout), bench.WithSampler(p)),
		Results:        results.NewLogger(fx.results, layout),
		Iterations:     1,
		Location:       loc,
		Probe:          p,
		ProcessInfoDir: filepath.Join(dir, "data"),
		Observer:       fx.observer,
		Stdout:         fx.stdout,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return bench.NewDriver(cfg), fx
}

type fixedClock struct{}

func (fixedClock) CollectionTime() time.Duration { return 0 }

func (fx *driverFixture) file(t *testing.T, name, content string) string {
	t.Helper()
	return writeBenchFile(t, fx.dir, name, content)
}

func TestDriverOneRowPerRun(t *testing.T) {
	driver, fx := newDriver(t, results.Standard, nil)
	files := []string{
		fx.file(t, "a.yaml", "name: bench-a\nkind: fake\nparams:\n  rows: 1\n"),
		fx.file(t, "b.yaml", "name: bench-b\nkind: fake\nparams:\n  rows: 2\n"),
		fx.file(t, "c.yaml", "name: bench-c\nkind: fake\nparams:\n  rows: 3\n"),
	}

	summary, err := driver.Run(context.Background(), files)
	require.NoError(t, err)
	require.NoError(t, summary.Err())
	assert.Equal(t, 3, summary.Succeeded)
	assert.Len(t, summary.Measurements, 3)

	records, layout, err := results.ReadAll(fx.results)
	require.NoError(t, err)
	assert.Equal(t, results.Standard.Name, layout.Name)
	require.Len(t, records, 3)
	assert.Equal(t, "bench-a", records[0].BenchName)
	assert.Equal(t, "bench-c", records[2].BenchName)

	out := fx.stdout.String()
	assert.Contains(t, out, "Running "+files[0]+"...")
	assert.Contains(t, out, "Ran "+files[2]+" in ")
	assert.Equal(t, []string{"bench-a", "bench-b", "bench-c"}, fx.observer.observed)
}

func TestDriverIterations(t *testing.T) {
	driver, fx := newDriver(t, results.Standard, func(cfg *bench.DriverConfig) { cfg.Iterations = 3 })
	file := fx.file(t, "a.yaml", "name: bench-a\nkind: fake\n")

	summary, err := driver.Run(context.Background(), []string{file})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 3, fx.counters.setups, "each iteration builds a fresh definition")
	assert.Equal(t, 3, fx.counters.runs)
	assert.Equal(t, 3, fx.counters.cleanups)

	records, _, err := results.ReadAll(fx.results)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestDriverContinuesAfterFailure(t *testing.T) {
	driver, fx := newDriver(t, results.Standard, nil)
	files := []string{
		fx.file(t, "fail.yaml", "name: failing\nkind: fake\nparams:\n  fail: true\n"),
		filepath.Join(fx.dir, "missing.yaml"),
		fx.file(t, "ok.yaml", "name: ok\nkind: fake\n"),
	}

	summary, err := driver.Run(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 2, fx.counters.cleanups)
	assert.Equal(t, map[string]int{"failing": 1, "ok": 1}, fx.counters.cleanedUp, "the failing run was still cleaned up")
	require.Len(t, summary.Failures, 2)
	assert.ErrorIs(t, summary.Failures[0].Err, berrors.ErrRun)
	assert.ErrorIs(t, summary.Failures[1].Err, berrors.ErrResource)
	require.Error(t, summary.Err())
	assert.Equal(t, files[:2], fx.observer.failed)

	records, _, err := results.ReadAll(fx.results)
	require.NoError(t, err)
	require.Len(t, records, 1, "failed runs write no row")
	assert.Equal(t, "ok", records[0].BenchName)
}

func TestDriverAbort(t *testing.T) {
	driver, fx := newDriver(t, results.Standard, func(cfg *bench.DriverConfig) { cfg.Abort = true })
	files := []string{
		fx.file(t, "fail.yaml", "name: failing\nkind: fake\nparams:\n  fail: true\n"),
		fx.file(t, "ok.yaml", "name: ok\nkind: fake\n"),
	}

	summary, err := driver.Run(context.Background(), files)
	require.ErrorIs(t, err, berrors.ErrRun)
	assert.Equal(t, 1, summary.Failed)
	assert.Zero(t, summary.Succeeded)
	assert.Equal(t, 1, fx.counters.runs)
}

func TestDriverEngineLayout(t *testing.T) {
	driver, fx := newDriver(t, results.Engine, nil)
	file := fx.file(t, "a.yaml", "name: bench-a\nkind: fake\n")

	summary, err := driver.Run(context.Background(), []string{file})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	records, layout, err := results.ReadAll(fx.results)
	require.NoError(t, err)
	assert.Equal(t, results.Engine.Name, layout.Name)
	require.Len(t, records, 1)
	assert.Equal(t, "proc-1", records[0].ProcessID)
	assert.Zero(t, records[0].GCSeconds)

	_, err = os.Stat(filepath.Join(fx.dir, "data", "proc-1.csv"))
	assert.NoError(t, err, "process info file is written")
}

func TestDriverMissingResultsDirectory(t *testing.T) {
	driver, fx := newDriver(t, results.Standard, nil)
	file := fx.file(t, "a.yaml", "name: bench-a\nkind: fake\n")
	require.NoError(t, os.RemoveAll(filepath.Join(fx.dir, "data")))

	summary, err := driver.Run(context.Background(), []string{file})
	require.NoError(t, err)
	require.Len(t, summary.Failures, 1)
	assert.ErrorIs(t, summary.Failures[0].Err, berrors.ErrResource)
}

func TestDriverCancelled(t *testing.T) {
	driver, fx := newDriver(t, results.Standard, nil)
	file := fx.file(t, "a.yaml", "name: bench-a\nkind: fake\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := driver.Run(ctx, []string{file})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.Succeeded)
	assert.Zero(t, fx.counters.runs)
}
