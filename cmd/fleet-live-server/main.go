package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/technopolitica/fleet-live/cmd/fleet-live-server/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.NewServerCommand(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}
