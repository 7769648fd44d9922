package cli

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/paveg/tablebench/internal/bench"
	"github.com/paveg/tablebench/internal/config"
	berrors "github.com/paveg/tablebench/internal/errors"
	"github.com/paveg/tablebench/internal/jobs"
	benchmem "github.com/paveg/tablebench/internal/memory"
	"github.com/paveg/tablebench/internal/monitoring"
	"github.com/paveg/tablebench/internal/probe"
	"github.com/paveg/tablebench/internal/results"
)

const shutdownTimeout = 5 * time.Second

// benchOptions holds flag values. Only flags the user set override the configuration.
type benchOptions struct {
	iterations  int
	layout      string
	results     string
	configFile  string
	onError     string
	metricsFile string
	metricsAddr string
	tag         string
	timezone    string
	report      bool
	verbose     bool
}

// Execute runs the tablebench command and returns its exit status.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return execute(ctx, newBenchCommand(stdout, stderr), args, stdout, stderr)
}

func newBenchCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &benchOptions{}

	cmd := &cobra.Command{
		Use:   "tablebench [flags] <output_prefix_path> <benchmark_file> [<benchmark_file> ...]",
		Short: "Run table operation benchmarks and append timings to a results log",
		Long: `tablebench loads each benchmark file, performs its untimed setup, times the
operation and appends one row per run to the results CSV under <output_prefix_path>/data.

A failing benchmark is logged and the batch continues unless --on-error=abort.
The exit status is 1 when any run failed.`,
		Args: minArgs(2, "<output_prefix_path> and at least one <benchmark_file>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runBatch(cmd.Context(), cfg, args[0], args[1:], stdout, stderr)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&opts.iterations, "iterations", "n", config.DefaultIterations, "run each benchmark file this many times")
	flags.StringVar(&opts.layout, "layout", config.LayoutStandard, `results layout, "standard" or "engine"`)
	flags.StringVar(&opts.results, "results", "", "results CSV (default <output_prefix_path>/data/<layout file>)")
	flags.StringVar(&opts.configFile, "config", "", "configuration file (.yaml, .yml or .json)")
	flags.StringVar(&opts.onError, "on-error", config.OnErrorContinue, `failure policy, "continue" or "abort"`)
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the batch")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	flags.StringVar(&opts.tag, "tag", config.DefaultTag, "dataset tag substituted for ${tag} in benchmark files")
	flags.StringVar(&opts.timezone, "timezone", config.DefaultTimezone, "zone of the local timestamp column")
	flags.BoolVar(&opts.report, "report", false, "print a markdown report after the batch")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flags.SortFlags = false

	return cmd
}

// resolveConfig layers defaults, the config file, TABLEBENCH_* variables and flags.
func resolveConfig(cmd *cobra.Command, opts *benchOptions) (config.Config, error) {
	cfg := config.NewConfig()
	if opts.configFile != "" {
		loaded, err := config.LoadFromFile(opts.configFile)
		if err != nil {
			return cfg, berrors.NewResourceError("load", opts.configFile, "cannot load configuration", err)
		}
		cfg = loaded
	}
	cfg = config.LoadFromEnv(cfg)

	flags := cmd.Flags()
	if flags.Changed("iterations") {
		cfg.Iterations = opts.iterations
	}
	if flags.Changed("layout") {
		cfg.Layout = opts.layout
	}
	if flags.Changed("results") {
		cfg.ResultsFile = opts.results
	}
	if flags.Changed("on-error") {
		cfg.OnError = opts.onError
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = opts.metricsFile
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = opts.metricsAddr
	}
	if flags.Changed("tag") {
		cfg.Tag = opts.tag
	}
	if flags.Changed("timezone") {
		cfg.Timezone = opts.timezone
	}
	if flags.Changed("report") {
		cfg.Report = opts.report
	}
	if flags.Changed("verbose") {
		cfg.Verbose = opts.verbose
	}

	if err := cfg.Validate(); err != nil {
		return cfg, berrors.NewUsageError(err.Error())
	}
	return cfg, nil
}

// configInfo describes the effective configuration in the process-info file.
func configInfo(cfg config.Config) []probe.InfoRow {
	return []probe.InfoRow{
		{Type: "config", Key: "layout", Value: cfg.Layout},
		{Type: "config", Key: "iterations", Value: strconv.Itoa(cfg.Iterations)},
		{Type: "config", Key: "on_error", Value: cfg.OnError},
		{Type: "config", Key: "tag", Value: cfg.Tag},
		{Type: "config", Key: "gc_warn_ratio", Value: strconv.FormatFloat(cfg.GCWarnRatio, 'g', -1, 64)},
	}
}

func runBatch(ctx context.Context, cfg config.Config, prefix string, files []string, stdout, stderr io.Writer) error {
	logger := newLogger(stderr, "tablebench", cfg.Verbose)

	// Validate has already checked both.
	layout, err := results.LayoutByName(cfg.Layout)
	if err != nil {
		return berrors.NewUsageError(err.Error())
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return berrors.NewUsageError(err.Error())
	}

	p := probe.New(
		probe.WithCollector(benchmem.ForceGC),
		probe.WithWarnRatio(cfg.GCWarnRatio),
		probe.WithLogger(logger),
		probe.WithInfo(configInfo(cfg)...),
	)
	collector := monitoring.NewCollector()

	if cfg.MetricsAddr != "" {
		stop := serveMetrics(collector, cfg.MetricsAddr, logger)
		defer stop()
	}

	loader := bench.NewLoader(jobs.NewRegistry(), bench.Env{
		OutputPrefixPath: prefix,
		Tag:              cfg.Tag,
		Allocator:        memory.NewGoAllocator(),
		Logger:           logger,
	})
	runner := bench.NewRunner(
		bench.WithStdout(stdout),
		bench.WithSampler(p),
		bench.WithRunnerLogger(logger),
	)
	driver := bench.NewDriver(bench.DriverConfig{
		Loader:         loader,
		Runner:         runner,
		Results:        results.NewLogger(cfg.ResultsPath(prefix), layout),
		Iterations:     cfg.Iterations,
		Abort:          cfg.OnError == config.OnErrorAbort,
		Location:       loc,
		Probe:          p,
		ProcessInfoDir: cfg.ProcessInfoPath(prefix),
		Observer:       collector,
		Stdout:         stdout,
		Logger:         logger,
	})

	logger.Debug("starting batch",
		"files", len(files), "iterations", cfg.Iterations, "layout", cfg.Layout,
		"results", cfg.ResultsPath(prefix), "process", p.ID())

	summary, runErr := driver.Run(ctx, files)

	logger.Info("batch finished",
		"succeeded", summary.Succeeded, "failed", summary.Failed, "contaminated", summary.Contaminated)

	if cfg.MetricsFile != "" {
		families, err := collector.WriteTextfile(cfg.MetricsFile)
		if err != nil {
			logger.Error("writing metrics", "err", err)
		} else {
			logger.Debug("wrote metrics", "path", cfg.MetricsFile, "families", families)
		}
	}
	if cfg.Report {
		writeReport(summary, p.ID(), cfg.ResultsPath(prefix), stdout, logger)
	}

	if runErr != nil {
		logger.Error("batch stopped", "err", runErr)
		return errReported
	}
	if summary.Err() != nil {
		return errReported
	}
	return nil
}

// writeReport prints the markdown report, including how many rows the results log holds.
func writeReport(summary bench.Summary, processID, resultsPath string, w io.Writer, logger *log.Logger) {
	report := monitoring.NewReport(summary, processID, time.Now())
	if records, _, err := results.ReadAll(resultsPath); err == nil {
		report.ResultsPath = resultsPath
		report.ResultsRows = len(records)
	} else {
		logger.Debug("reading results log", "path", resultsPath, "err", err)
	}
	if _, err := report.WriteTo(w); err != nil {
		logger.Error("writing report", "err", err)
	}
}

// serveMetrics starts a metrics server in the background and returns its stop function.
func serveMetrics(collector *monitoring.Collector, addr string, logger *log.Logger) func() {
	srv := monitoring.NewServer(collector, addr)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("metrics server", "addr", addr, "err", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Debug("stopping metrics server", "err", err)
		}
	}
}
