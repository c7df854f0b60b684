// Command feeder grows the German vocabulary and grammar corpus in capped,
// deduplicated batches and reports on past runs.
//
// Usage:
//
//	feeder [--vocabulary | --grammar | --both] [--force] [--verbose]
//	feeder --status | --gaps | --history [--history-limit N] | --config
//	feeder --migrate | --cleanup | --serve [addr]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/scry-feeder/internal/redact"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", redact.Error(err))
		stop()
		os.Exit(1)
	}
}
