package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/paveg/tablebench/internal/datagen"
	"github.com/paveg/tablebench/internal/dataset"
	berrors "github.com/paveg/tablebench/internal/errors"
)

type datagenOptions struct {
	rows        string
	animals     int64
	adjectives  int64
	users       int64
	nulls       bool
	nullPercent float64
	seed        uint64
	workers     int
	verbose     bool
}

// ExecuteDatagen runs the tablebench-datagen command and returns its exit status.
func ExecuteDatagen(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return execute(ctx, newDatagenCommand(stdout, stderr), args, stdout, stderr)
}

func newDatagenCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &datagenOptions{}

	cmd := &cobra.Command{
		Use:   "tablebench-datagen [flags] <output_prefix_path>",
		Short: "Write the parquet fixtures benchmarks read",
		Long: `tablebench-datagen writes animals, adjectives, relation, workqueue and auditqueue
tables under <output_prefix_path>/data. Output is deterministic for a given seed.`,
		Args: exactArgs(1, "<output_prefix_path>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := opts.generatorOptions()
			if err != nil {
				return err
			}
			logger := newLogger(stderr, "datagen", opts.verbose)
			gen, err := datagen.New(args[0], options, logger)
			if err != nil {
				return berrors.NewUsageError(err.Error())
			}

			paths, err := gen.Run(cmd.Context())
			for _, path := range paths {
				fmt.Fprintln(stdout, path)
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.rows, "rows", dataset.FormatRows(datagen.DefaultRows), `relation and workqueue rows, e.g. "100m" or "30k"`)
	flags.Int64Var(&opts.animals, "animals", datagen.DefaultAnimals, "rows in the animals table")
	flags.Int64Var(&opts.adjectives, "adjectives", datagen.DefaultAdjectives, "rows in the adjectives table")
	flags.Int64Var(&opts.users, "users", datagen.DefaultUsers, "distinct user ids in the queue tables")
	flags.BoolVar(&opts.nulls, "nulls", false, "also write a relation table with null Values")
	flags.Float64Var(&opts.nullPercent, "null-percent", datagen.DefaultNullPercent, "share of null Values with --nulls")
	flags.Uint64Var(&opts.seed, "seed", datagen.DefaultSeed, "PRNG seed")
	flags.IntVar(&opts.workers, "workers", 0, "files written at once (default every CPU)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flags.SortFlags = false

	return cmd
}

func (o *datagenOptions) generatorOptions() (datagen.Options, error) {
	rows, err := dataset.ParseRows(o.rows)
	if err != nil {
		return datagen.Options{}, berrors.NewUsageError(err.Error())
	}
	return datagen.Options{
		Rows:        rows,
		Animals:     o.animals,
		Adjectives:  o.adjectives,
		Users:       o.users,
		Nulls:       o.nulls,
		NullPercent: &o.nullPercent,
		Seed:        o.seed,
		Workers:     o.workers,
	}, nil
}
