package bench

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	berrors "github.com/paveg/tablebench/internal/errors"
	"github.com/paveg/tablebench/internal/probe"
)

// Measurement is the outcome of one successful run.
type Measurement struct {
	Name    string
	Rows    int64
	Start   time.Time
	End     time.Time
	Elapsed time.Duration
	// Reading is set when the runner samples the runtime.
	Reading *probe.Reading
}

// Sampler observes the runtime around the timed region.
type Sampler interface {
	Pre() probe.Sample
	Post(bench string, pre probe.Sample, elapsed time.Duration) probe.Reading
}

// Runner times a definition's operation.
type Runner struct {
	now     func() time.Time
	stdout  io.Writer
	sampler Sampler
	logger  *log.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// WithStdout sets where row counts and elapsed times are printed.
func WithStdout(w io.Writer) RunnerOption {
	return func(r *Runner) { r.stdout = w }
}

// WithSampler samples the runtime before and after the timed region.
func WithSampler(s Sampler) RunnerOption {
	return func(r *Runner) { r.sampler = s }
}

// WithRunnerLogger sets the logger for discarded cleanup errors.
func WithRunnerLogger(logger *log.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates a runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{now: time.Now, stdout: io.Discard}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.New(io.Discard)
	}
	return r
}

// Run times def.Run and then calls def.Cleanup exactly once, whatever the outcome.
// A cleanup failure is logged and never replaces the run's result. On success the row
// count and elapsed seconds are printed.
func (r *Runner) Run(def *Definition) (Measurement, error) {
	var sample probe.Sample
	if r.sampler != nil {
		sample = r.sampler.Pre()
	}

	start := r.now()
	rows, runErr := timed(def.Run)
	end := r.now()
	elapsed := end.Sub(start)

	var reading *probe.Reading
	if r.sampler != nil {
		rd := r.sampler.Post(def.Name, sample, elapsed)
		reading = &rd
	}

	r.cleanup(def)

	if runErr != nil {
		return Measurement{}, berrors.NewRunError(def.Name, runErr)
	}

	fmt.Fprintln(r.stdout, rows)
	fmt.Fprintln(r.stdout, elapsed.Seconds())

	return Measurement{
		Name:    def.Name,
		Rows:    rows,
		Start:   start,
		End:     end,
		Elapsed: elapsed,
		Reading: reading,
	}, nil
}

func timed(run func() (int64, error)) (rows int64, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return run()
}

func (r *Runner) cleanup(def *Definition) {
	if def.Cleanup == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.logger.Debug("cleanup panicked", "bench", def.Name, "panic", p)
		}
	}()
	if err := def.Cleanup(); err != nil {
		r.logger.Debug("cleanup failed", "bench", def.Name, "err", err)
	}
}
