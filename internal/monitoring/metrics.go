// Package monitoring exports benchmark outcomes: Prometheus metrics for a running batch
// and a markdown report once it finishes.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/paveg/tablebench/internal/bench"
	berrors "github.com/paveg/tablebench/internal/errors"
)

const namespace = "tablebench"

// Collector records every run of a batch as Prometheus metrics. It implements
// bench.Observer and owns its registry, so several collectors never clash.
type Collector struct {
	registry *prometheus.Registry

	elapsed      *prometheus.HistogramVec
	runs         *prometheus.CounterVec
	failures     *prometheus.CounterVec
	rows         *prometheus.GaugeVec
	gcSeconds    *prometheus.GaugeVec
	contaminated *prometheus.CounterVec
}

// NewCollector creates a collector with all metrics registered.
func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.elapsed = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "elapsed_seconds",
			Help:      "Wall-clock duration of the timed region",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"bench"},
	)

	c.runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed benchmark runs",
		},
		[]string{"bench"},
	)

	c.failures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Benchmark runs that produced no result row",
		},
		[]string{"file", "kind"},
	)

	c.rows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows",
			Help:      "Row count returned by the last run",
		},
		[]string{"bench"},
	)

	c.gcSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gc_seconds",
			Help:      "Collector pause time attributed to the last run",
		},
		[]string{"bench"},
	)

	c.contaminated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contaminated_total",
			Help:      "Runs whose timing was dominated by garbage collection",
		},
		[]string{"bench"},
	)

	c.registry.MustRegister(c.elapsed, c.runs, c.failures, c.rows, c.gcSeconds, c.contaminated)
	return c
}

// Registry returns the registry the metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Observe records a successful run.
func (c *Collector) Observe(m bench.Measurement) {
	c.elapsed.WithLabelValues(m.Name).Observe(m.Elapsed.Seconds())
	c.runs.WithLabelValues(m.Name).Inc()
	c.rows.WithLabelValues(m.Name).Set(float64(m.Rows))

	if m.Reading == nil {
		return
	}
	c.gcSeconds.WithLabelValues(m.Name).Set(m.Reading.GCSeconds)
	if m.Reading.Contaminated {
		c.contaminated.WithLabelValues(m.Name).Inc()
	}
}

// Fail records a run that failed, labelled with its error kind.
func (c *Collector) Fail(file string, err error) {
	kind := berrors.KindOf(err).String()
	c.failures.WithLabelValues(file, kind).Inc()
}

// WriteTextfile writes the current metrics in the text exposition format, for the node
// exporter textfile collector, and returns the number of metric families written. The
// file is replaced atomically.
func (c *Collector) WriteTextfile(path string) (int, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return 0, berrors.NewResourceError("write", path, "cannot gather metrics", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return 0, berrors.NewResourceError("write", path, "cannot write metrics file", err)
	}
	return len(families), nil
}

var _ bench.Observer = (*Collector)(nil)
