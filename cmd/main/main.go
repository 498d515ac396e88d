package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() { os.Exit(run()) }

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, state := rootCommand()
	defer state.close()

	if err := cmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
