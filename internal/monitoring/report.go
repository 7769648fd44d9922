package monitoring

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/paveg/tablebench/internal/bench"
)

const percentageBase = 100

// BenchStats summarizes every successful run of one benchmark.
type BenchStats struct {
	Name         string
	Runs         int
	Rows         int64
	Total        time.Duration
	Mean         time.Duration
	Min          time.Duration
	Max          time.Duration
	GCSeconds    float64
	Contaminated int
}

// Aggregate groups measurements by benchmark name, in order of first appearance.
func Aggregate(measurements []bench.Measurement) []BenchStats {
	index := make(map[string]int)
	var stats []BenchStats

	for _, m := range measurements {
		i, ok := index[m.Name]
		if !ok {
			i = len(stats)
			index[m.Name] = i
			stats = append(stats, BenchStats{Name: m.Name, Min: m.Elapsed, Max: m.Elapsed})
		}
		s := &stats[i]
		s.Runs++
		s.Rows = m.Rows
		s.Total += m.Elapsed
		s.Min = min(s.Min, m.Elapsed)
		s.Max = max(s.Max, m.Elapsed)
		if m.Reading != nil {
			s.GCSeconds += m.Reading.GCSeconds
			if m.Reading.Contaminated {
				s.Contaminated++
			}
		}
	}

	for i := range stats {
		stats[i].Mean = stats[i].Total / time.Duration(stats[i].Runs)
	}
	return stats
}

// Report is a markdown summary of a finished batch.
type Report struct {
	Generated time.Time
	ProcessID string
	Stats     []BenchStats
	Failures  []bench.Failure

	// ResultsPath and ResultsRows describe the results log after the batch, when known.
	ResultsPath string
	ResultsRows int
}

// NewReport builds a report from a batch summary.
func NewReport(summary bench.Summary, processID string, generated time.Time) Report {
	return Report{
		Generated: generated,
		ProcessID: processID,
		Stats:     Aggregate(summary.Measurements),
		Failures:  summary.Failures,
	}
}

// WriteTo writes the markdown report to w.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, r.Markdown())
	return int64(n), err
}

// Markdown renders the report.
func (r Report) Markdown() string {
	var report strings.Builder

	report.WriteString("# Benchmark Report\n\n")
	fmt.Fprintf(&report, "Generated: %s\n\n", r.Generated.Format(time.RFC3339))
	if r.ProcessID != "" {
		fmt.Fprintf(&report, "Process: %s\n\n", r.ProcessID)
	}
	if r.ResultsPath != "" {
		fmt.Fprintf(&report, "Results: %s (%d rows)\n\n", r.ResultsPath, r.ResultsRows)
	}

	if len(r.Stats) == 0 && len(r.Failures) == 0 {
		report.WriteString("No benchmark results available.\n")
		return report.String()
	}

	r.writeSummaryTable(&report)
	r.writeFailures(&report)
	r.writeInsights(&report)

	return report.String()
}

func (r Report) writeSummaryTable(report *strings.Builder) {
	if len(r.Stats) == 0 {
		return
	}
	report.WriteString("## Summary\n\n")
	report.WriteString("| Benchmark | Runs | Rows | Mean (s) | Min (s) | Max (s) | GC (s) |\n")
	report.WriteString("|-----------|------|------|----------|---------|---------|--------|\n")

	for _, s := range r.Stats {
		name := s.Name
		if s.Contaminated > 0 {
			name += " ⚠"
		}
		fmt.Fprintf(report, "| %s | %d | %s | %.6f | %.6f | %.6f | %.6f |\n",
			name,
			s.Runs,
			humanize.Comma(s.Rows),
			s.Mean.Seconds(),
			s.Min.Seconds(),
			s.Max.Seconds(),
			s.GCSeconds)
	}

	report.WriteString("\n")
}

func (r Report) writeFailures(report *strings.Builder) {
	if len(r.Failures) == 0 {
		return
	}
	report.WriteString("## Failures\n\n")
	for _, f := range r.Failures {
		fmt.Fprintf(report, "- **%s** (iteration %d): %v\n", f.File, f.Iteration, f.Err)
	}
	report.WriteString("\n")
}

func (r Report) writeInsights(report *strings.Builder) {
	report.WriteString("## Insights\n\n")

	if len(r.Stats) > 1 {
		fastest, slowest := r.fastestAndSlowest()
		fmt.Fprintf(report, "- **Fastest:** %s (%.6fs mean)\n", fastest.Name, fastest.Mean.Seconds())
		fmt.Fprintf(report, "- **Slowest:** %s (%.6fs mean)\n", slowest.Name, slowest.Mean.Seconds())
		if fastest.Mean > 0 {
			fmt.Fprintf(report, "- **Ratio:** %.2fx\n", float64(slowest.Mean)/float64(fastest.Mean))
		}
	}

	succeeded := 0
	for _, s := range r.Stats {
		succeeded += s.Runs
	}
	total := succeeded + len(r.Failures)
	fmt.Fprintf(report, "- **Success Rate:** %d/%d (%.1f%%)\n",
		succeeded, total, float64(succeeded)/float64(total)*percentageBase)
}

func (r Report) fastestAndSlowest() (BenchStats, BenchStats) {
	fastest, slowest := r.Stats[0], r.Stats[0]
	for _, s := range r.Stats[1:] {
		if s.Mean < fastest.Mean {
			fastest = s
		}
		if s.Mean > slowest.Mean {
			slowest = s
		}
	}
	return fastest, slowest
}
