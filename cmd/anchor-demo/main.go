package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/anchor/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional)")
	statePath := flag.String("state", "", "override saved-state database path (optional)")
	delivery := flag.String("delivery", "", "delivery policy: all, latest or latest-cache (optional)")
	tick := flag.Duration("tick", 0, "counter interval (optional, defaults to 1s)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		StatePath:  *statePath,
		Delivery:   *delivery,
	}
	if every := *tick; every > 0 {
		opts.TickEvery = every
	} else if every < 0 {
		fmt.Fprintf(os.Stderr, "anchor-demo: -tick must be positive, got %v\n", every)
		return 2
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "anchor-demo: %v\n", err)
		return 1
	}
	return 0
}
