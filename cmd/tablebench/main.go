// Command tablebench runs benchmark files and appends their timings to a results log.
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
	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
