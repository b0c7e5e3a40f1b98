// Command tocd runs the TOC engine process: the ops HTTP server (/live,
// /ready, /health, /metrics and the manual retention sweep) and the periodic
// retention sweeper. It stops gracefully on SIGINT or SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/frankbria/auto-author/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "tocd: %v\n", err)
		os.Exit(1)
	}
}
