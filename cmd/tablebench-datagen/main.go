// Command tablebench-datagen writes the parquet fixtures that benchmarks read.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/paveg/tablebench/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.ExecuteDatagen(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
