package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	berrors "github.com/paveg/tablebench/internal/errors"
	"github.com/paveg/tablebench/internal/probe"
	"github.com/paveg/tablebench/internal/results"
)

// Observer receives the outcome of every run, e.g. to export metrics.
type Observer interface {
	Observe(m Measurement)
	Fail(file string, err error)
}

// Failure is one run that did not produce a result row.
type Failure struct {
	File      string
	Iteration int
	Err       error
}

// Summary describes a finished batch.
type Summary struct {
	Succeeded    int
	Failed       int
	Contaminated int
	Measurements []Measurement
	Failures     []Failure
}

// Err joins the failures, or returns nil when every run succeeded.
func (s Summary) Err() error {
	errs := make([]error, 0, len(s.Failures))
	for _, f := range s.Failures {
		errs = append(errs, fmt.Errorf("%s (iteration %d): %w", f.File, f.Iteration, f.Err))
	}
	return errors.Join(errs...)
}

// DriverConfig wires a Driver.
type DriverConfig struct {
	Loader  *Loader
	Runner  *Runner
	Results *results.Logger
	// Iterations per benchmark file, at least 1.
	Iterations int
	// Abort stops the batch at the first failure instead of continuing.
	Abort    bool
	Location *time.Location
	// Probe supplies the process identifier for layouts that record it.
	Probe          *probe.Probe
	ProcessInfoDir string
	Observer       Observer
	Stdout         io.Writer
	Logger         *log.Logger
}

// Driver runs benchmark files one after another.
type Driver struct {
	cfg DriverConfig
}

// NewDriver creates a driver.
func NewDriver(cfg DriverConfig) *Driver {
	if cfg.Iterations < 1 {
		cfg.Iterations = 1
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Stdout == nil {
		cfg.Stdout = io.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	return &Driver{cfg: cfg}
}

// Run executes every file Iterations times, in order. Failures are recorded in the
// summary; with Abort the first failure ends the batch and is returned. Cancelling ctx
// stops the batch before the next run.
func (d *Driver) Run(ctx context.Context, files []string) (Summary, error) {
	var summary Summary
	for _, file := range files {
		for iteration := 1; iteration <= d.cfg.Iterations; iteration++ {
			if err := ctx.Err(); err != nil {
				return summary, err
			}

			m, err := d.runOnce(ctx, file)
			if err != nil {
				summary.Failed++
				summary.Failures = append(summary.Failures, Failure{File: file, Iteration: iteration, Err: err})
				d.cfg.Logger.Warn("benchmark failed",
					"file", file, "iteration", iteration, "kind", berrors.KindOf(err), "err", err)
				if d.cfg.Observer != nil {
					d.cfg.Observer.Fail(file, err)
				}
				if d.cfg.Abort {
					return summary, err
				}
				continue
			}

			summary.Succeeded++
			summary.Measurements = append(summary.Measurements, m)
			if m.Reading != nil && m.Reading.Contaminated {
				summary.Contaminated++
			}
			if d.cfg.Observer != nil {
				d.cfg.Observer.Observe(m)
			}
		}
	}
	return summary, nil
}

func (d *Driver) runOnce(ctx context.Context, file string) (Measurement, error) {
	def, err := d.cfg.Loader.Load(ctx, file)
	if err != nil {
		return Measurement{}, err
	}

	fmt.Fprintf(d.cfg.Stdout, "Running %s...\n", file)
	d.cfg.Logger.Debug("running benchmark", "file", file, "bench", def.Name)

	m, err := d.cfg.Runner.Run(def)
	if err != nil {
		return Measurement{}, err
	}

	rec := results.NewRecord(m.Name, m.End, m.Elapsed, d.cfg.Location)
	if d.cfg.Results.Layout().HasProcess() {
		rec, err = d.processRecord(rec, m)
		if err != nil {
			return Measurement{}, err
		}
	}
	if err := d.cfg.Results.Append(rec); err != nil {
		return Measurement{}, err
	}

	fmt.Fprintf(d.cfg.Stdout, "Ran %s in %v seconds.\n", file, m.Elapsed.Seconds())
	return m, nil
}

func (d *Driver) processRecord(rec results.Record, m Measurement) (results.Record, error) {
	if d.cfg.Probe == nil {
		return rec, berrors.NewDefinitionError(m.Name, "layout records process data but no probe is configured", nil)
	}
	if _, err := d.cfg.Probe.EnsureInfo(d.cfg.ProcessInfoDir); err != nil {
		return rec, err
	}

	var gcSeconds float64
	if m.Reading != nil {
		gcSeconds = m.Reading.GCSeconds
	}
	return rec.WithProcess(d.cfg.Probe.ID(), gcSeconds), nil
}
