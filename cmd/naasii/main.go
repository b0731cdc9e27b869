// Package main runs a Naasii dice game on the console.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	playcmd "github.com/louisbranch/naasii/internal/cmd/play"
	"github.com/louisbranch/naasii/internal/platform/config"
)

func main() {
	cfg, err := playcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exit("parse flags", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := playcmd.Run(ctx, cfg, os.Stdin, os.Stdout, os.Stderr); err != nil {
		stop()
		config.Exit("naasii", err)
	}
}
