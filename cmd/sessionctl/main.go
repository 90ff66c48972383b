package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aussiebroadwan/sessionkit/internal/sessionctl/app"
	"github.com/aussiebroadwan/sessionkit/pkg/authsdk"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, args, err := app.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "sessionctl: %v\n", err)
		app.Usage(os.Stderr)
		return 2
	}

	application, err := app.New(ctx, cfg, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sessionctl: failed to initialize: %v\n", err)
		return 1
	}
	defer application.Close()

	err = application.Run(ctx, args)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, app.ErrUsage):
		fmt.Fprintf(os.Stderr, "sessionctl: %v\n", err)
		app.Usage(os.Stderr)
		return 2
	case errors.Is(err, authsdk.ErrSessionTerminated), errors.Is(err, authsdk.ErrSessionExpired),
		errors.Is(err, authsdk.ErrRefreshFailed):
		fmt.Fprintf(os.Stderr, "sessionctl: %v\n", err)
		return 3
	default:
		fmt.Fprintf(os.Stderr, "sessionctl: %v\n", err)
		return 1
	}
}
