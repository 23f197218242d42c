package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"newsletter/cmd/internal/ctl"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := ctl.Run(ctx, os.Args[1:], ctl.StdIO())
	cancel()

	switch {
	case err == nil:
	case errors.Is(err, ctl.ErrUsage):
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "newsletterctl:", err)
		os.Exit(1)
	}
}
