// Package main provides the restartcheck CLI application.
// restartcheck validates simulator restarts by comparing a chain of restarted
// legs against a single uninterrupted run over the same interval.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"restartcheck/cmd/restartcheck/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := cli.NewApp()
	rootCmd := app.CreateRootCommand()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
