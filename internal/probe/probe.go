// Package probe samples the runtime around a timed benchmark region.
//
// A Probe reads cumulative garbage collection time before and after the region, forces a
// collection before timing starts, and flags measurements where collection time is large
// compared with the elapsed time. It also owns the process identifier that ties result
// rows to a per-process info file.
package probe

import (
	"io"
	"runtime"
	"runtime/metrics"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// DefaultWarnRatio is the gc_seconds/elapsed ratio at which a measurement is contaminated.
const DefaultWarnRatio = 0.25

var processID = sync.OnceValue(uuid.NewString)

// ProcessID returns the identifier generated once for this process.
func ProcessID() string {
	return processID()
}

// CollectionClock reports cumulative garbage collection time.
type CollectionClock interface {
	CollectionTime() time.Duration
}

// gcCPUMetric covers pauses, dedicated and idle mark workers and mark assists.
const gcCPUMetric = "/cpu/classes/gc/total:cpu-seconds"

// RuntimeClock reads the CPU time the Go runtime has spent on garbage collection,
// including the concurrent mark phase.
type RuntimeClock struct{}

// CollectionTime implements CollectionClock.
func (RuntimeClock) CollectionTime() time.Duration {
	sample := []metrics.Sample{{Name: gcCPUMetric}}
	metrics.Read(sample)
	if sample[0].Value.Kind() != metrics.KindFloat64 {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)
		return time.Duration(stats.PauseTotalNs)
	}
	return time.Duration(sample[0].Value.Float64() * float64(time.Second))
}

// Sample is the state captured before the timed region.
type Sample struct {
	// Collection is the cumulative collection time read before the forced collection.
	Collection time.Duration
	// Forced is the collection time spent by the forced collection itself.
	Forced time.Duration
}

// Reading is the outcome of a probed run.
type Reading struct {
	ProcessID    string
	GCSeconds    float64
	Elapsed      time.Duration
	Contaminated bool
}

// Probe samples collection time around benchmark runs.
type Probe struct {
	clock   CollectionClock
	collect func()
	ratio   float64
	id      string
	logger  *log.Logger

	mu      sync.Mutex
	written map[string]bool
	extra   []InfoRow
}

// Option configures a Probe.
type Option func(*Probe)

// WithClock replaces the runtime collection clock.
func WithClock(clock CollectionClock) Option {
	return func(p *Probe) { p.clock = clock }
}

// WithCollector replaces the forced collection run by Pre.
func WithCollector(collect func()) Option {
	return func(p *Probe) { p.collect = collect }
}

// WithWarnRatio sets the contamination threshold.
func WithWarnRatio(ratio float64) Option {
	return func(p *Probe) { p.ratio = ratio }
}

// WithProcessID overrides the process identifier.
func WithProcessID(id string) Option {
	return func(p *Probe) { p.id = id }
}

// WithLogger sets the logger used for contamination warnings.
func WithLogger(logger *log.Logger) Option {
	return func(p *Probe) { p.logger = logger }
}

// WithInfo appends rows to the process-info snapshot.
func WithInfo(rows ...InfoRow) Option {
	return func(p *Probe) { p.extra = append(p.extra, rows...) }
}

// New creates a probe.
func New(opts ...Option) *Probe {
	p := &Probe{
		clock:   RuntimeClock{},
		collect: runtime.GC,
		ratio:   DefaultWarnRatio,
		id:      ProcessID(),
		written: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.New(io.Discard)
	}
	return p
}

// ID returns the process identifier recorded with results.
func (p *Probe) ID() string {
	return p.id
}

// Pre reads the collection clock and then forces a collection so the timed region
// starts with a clean heap. The forced collection is not charged to the run.
func (p *Probe) Pre() Sample {
	before := p.clock.CollectionTime()
	p.collect()
	return Sample{Collection: before, Forced: max(p.clock.CollectionTime()-before, 0)}
}

// Post reads the clock again and evaluates the run. Contaminated readings are logged
// as warnings.
func (p *Probe) Post(bench string, pre Sample, elapsed time.Duration) Reading {
	delta := max(p.clock.CollectionTime()-pre.Collection-pre.Forced, 0)
	gcSeconds := delta.Seconds()

	reading := Reading{
		ProcessID:    p.id,
		GCSeconds:    gcSeconds,
		Elapsed:      elapsed,
		Contaminated: gcSeconds > 0 && gcSeconds >= p.ratio*elapsed.Seconds(),
	}
	if reading.Contaminated {
		p.logger.Warn("measurement contaminated by garbage collection",
			"bench", bench,
			"gc_seconds", gcSeconds,
			"elapsed_seconds", elapsed.Seconds(),
			"ratio", p.ratio)
	}
	return reading
}
