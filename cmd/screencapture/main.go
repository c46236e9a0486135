package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/porticus-lab/go-screencapture/internal/cli"
)

// Set via ldflags at build time.
var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli.SetVersion(version, commit, date)
	if err := cli.Execute(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130) // Standard shell convention for SIGINT
		}
		// cobra already printed the error.
		os.Exit(1)
	}
}
