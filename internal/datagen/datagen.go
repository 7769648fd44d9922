// Package datagen writes the deterministic parquet fixtures that benchmarks read.
//
// Every table is generated from a seeded PRNG so two runs with the same Options produce
// byte-identical inputs. Files are zstd compressed.
package datagen

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/parquet-go/parquet-go"

	"github.com/paveg/tablebench/internal/dataset"
	"github.com/paveg/tablebench/internal/parallel"
)

const (
	// DefaultRows is the relation size when Options.Rows is unset.
	DefaultRows = 1_000_000
	// DefaultAnimals is the number of distinct animals.
	DefaultAnimals = 500
	// DefaultAdjectives is the number of distinct adjectives.
	DefaultAdjectives = 600
	// DefaultUsers is the number of distinct user ids in the queue tables.
	DefaultUsers = 1_000
	// DefaultNullPercent is the share of null Values in relation tables with nulls.
	DefaultNullPercent = 10.0
	// DefaultSeed seeds every generator.
	DefaultSeed = 0x5eed

	batchSize = 8 * 1024
	// auditRatio is how many workqueue rows there are per auditqueue row.
	auditRatio = 100
)

// Options configures a fixture set.
type Options struct {
	Rows       int64
	Animals    int64
	Adjectives int64
	Users      int64
	// Nulls also writes relation-<rows>.parquet with nullable Values.
	Nulls bool
	// NullPercent is the share of null Values with Nulls; nil uses DefaultNullPercent.
	NullPercent *float64
	Seed        uint64
	// Workers bounds how many files are written at once; 0 uses every CPU.
	Workers int
}

// WithDefaults fills zero fields.
func (o Options) WithDefaults() Options {
	if o.Rows == 0 {
		o.Rows = DefaultRows
	}
	if o.Animals == 0 {
		o.Animals = DefaultAnimals
	}
	if o.Adjectives == 0 {
		o.Adjectives = DefaultAdjectives
	}
	if o.Users == 0 {
		o.Users = DefaultUsers
	}
	if o.NullPercent == nil {
		percent := DefaultNullPercent
		o.NullPercent = &percent
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	return o
}

// Validate reports invalid option values.
func (o Options) Validate() error {
	if o.Rows <= 0 {
		return fmt.Errorf("Rows must be positive, got %d", o.Rows)
	}
	if o.Animals <= 0 || o.Adjectives <= 0 || o.Users <= 0 {
		return fmt.Errorf("Animals, Adjectives and Users must be positive")
	}
	if o.Workers < 0 {
		return fmt.Errorf("Workers must not be negative, got %d", o.Workers)
	}
	if p := o.nullPercent(); p < 0 || p > 100 {
		return fmt.Errorf("NullPercent must be between 0 and 100, got %g", p)
	}
	return nil
}

func (o Options) nullPercent() float64 {
	if o.NullPercent == nil {
		return DefaultNullPercent
	}
	return *o.NullPercent
}

// Generator writes fixture files into <prefix>/data.
type Generator struct {
	prefix  string
	options Options
	logger  *log.Logger
}

// New creates a generator. A nil logger discards output.
func New(outputPrefixPath string, options Options, logger *log.Logger) (*Generator, error) {
	options = options.WithDefaults()
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Generator{prefix: outputPrefixPath, options: options, logger: logger}, nil
}

type fixture struct {
	name  dataset.Name
	write func(path string) error
}

func (g *Generator) fixtures() []fixture {
	o := g.options
	fixtures := []fixture{
		{dataset.Name{Table: "animals"}, func(p string) error { return WriteAnimals(p, o.Animals) }},
		{dataset.Name{Table: "adjectives"}, func(p string) error { return WriteAdjectives(p, o.Adjectives) }},
		{dataset.Name{Table: "relation", Rows: o.Rows}, func(p string) error { return WriteRelation(p, o, false) }},
	}
	if o.Nulls {
		fixtures = append(fixtures, fixture{
			dataset.Name{Table: "relation", Rows: o.Rows, Nulls: true},
			func(p string) error { return WriteRelation(p, o, true) },
		})
	}

	auditRows := max(o.Rows/auditRatio, 1)
	fixtures = append(fixtures,
		fixture{dataset.Name{Table: "workqueue", Rows: o.Rows}, func(p string) error { return WriteQueue(p, o.Rows, o.Users, o.Seed+1) }},
		fixture{dataset.Name{Table: "auditqueue", Rows: auditRows}, func(p string) error { return WriteQueue(p, auditRows, o.Users, o.Seed+2) }},
	)
	return fixtures
}

// Run writes every fixture, several at once, and returns the written paths in a fixed
// order. Files not yet started are skipped once ctx is cancelled or a write fails.
func (g *Generator) Run(ctx context.Context) ([]string, error) {
	dir := filepath.Join(g.prefix, dataset.DataDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	pool := parallel.NewWorkerPool(g.options.Workers)
	paths, err := parallel.ProcessIndexed(ctx, pool, g.fixtures(),
		func(ctx context.Context, _ int, f fixture) (string, error) {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			path := dataset.Path(g.prefix, f.name.String())
			if err := f.write(path); err != nil {
				return "", fmt.Errorf("writing %s: %w", f.name, err)
			}
			if info, err := os.Stat(path); err == nil {
				g.logger.Info("wrote dataset", "file", f.name.String(), "size", humanize.Bytes(uint64(info.Size())))
			}
			return path, nil
		})

	written := make([]string, 0, len(paths))
	for _, path := range paths {
		if path != "" {
			written = append(written, path)
		}
	}
	return written, err
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// writeRows streams n generated rows of T into a zstd compressed parquet file.
func writeRows[T any](path string, n int64, gen func(i int64) T) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	w := parquet.NewGenericWriter[T](f, parquet.Compression(&parquet.Zstd))
	batch := make([]T, 0, batchSize)
	for i := range n {
		batch = append(batch, gen(i))
		if len(batch) == batchSize {
			if _, err := w.Write(batch); err != nil {
				return fmt.Errorf("writing rows at %d: %w", i+1-int64(len(batch)), err)
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if _, err := w.Write(batch); err != nil {
			return fmt.Errorf("writing final rows: %w", err)
		}
	}
	return w.Close()
}
