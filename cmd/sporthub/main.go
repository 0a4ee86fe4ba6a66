package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/sporthub/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional, defaults to ~/.config/sporthub/config.toml)")
	pollSeconds := flag.Int("poll", 0, "health poll interval in seconds (optional, defaults to poll_interval)")
	check := flag.Bool("check", false, "test every endpoint once, print a report and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{ConfigPath: *configPath}
	if poll := *pollSeconds; poll > 0 {
		opts.PollEvery = poll
	}

	if *check {
		if err := app.Check(ctx, opts, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "sporthub: %v\n", err)
			return 1
		}
		return 0
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "sporthub: %v\n", err)
		return 1
	}
	return 0
}
