// Package cmd holds the startup plumbing shared by naasii commands.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/naasii/internal/platform/config"
	"github.com/louisbranch/naasii/internal/platform/otel"
	"github.com/louisbranch/naasii/internal/platform/timeouts"
	"github.com/rs/zerolog"
)

// ServicePlay names the game command in telemetry.
const ServicePlay = "naasii"

// TelemetrySetup installs tracing for a service and returns its shutdown.
type TelemetrySetup func(ctx context.Context, service string) (func(context.Context) error, error)

// Command runs a naasii command body between telemetry setup and shutdown.
type Command struct {
	Service string
	// ShutdownTimeout bounds the telemetry flush. Zero uses timeouts.Shutdown.
	ShutdownTimeout time.Duration
	Logger          zerolog.Logger
	// Telemetry defaults to otel.Setup.
	Telemetry TelemetrySetup
}

// ParseConfig loads NAASII_ environment defaults into cfg.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseArgs parses command-line flags over the environment defaults.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// Run executes body with telemetry installed. The body's error is returned
// unchanged; a failed flush is only logged.
func (c Command) Run(ctx context.Context, body func(context.Context) error) error {
	service := strings.TrimSpace(c.Service)
	if service == "" {
		return fmt.Errorf("service name is required")
	}
	if body == nil {
		return fmt.Errorf("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	setup := c.Telemetry
	if setup == nil {
		setup = otel.Setup
	}
	shutdown, err := setup(ctx, service)
	if err != nil {
		return err
	}
	defer func() {
		timeout := c.ShutdownTimeout
		if timeout <= 0 {
			timeout = timeouts.Shutdown
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			c.Logger.Error().Err(err).Str("service", service).Msg("otel shutdown")
		}
	}()

	started := time.Now()
	err = body(ctx)
	c.Logger.Debug().Str("service", service).Dur("elapsed", time.Since(started)).Err(err).Msg("command finished")
	return err
}
