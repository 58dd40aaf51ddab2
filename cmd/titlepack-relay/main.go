// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/titlepack/titlepack/lib/cdn"
	"github.com/titlepack/titlepack/lib/clock"
	"github.com/titlepack/titlepack/lib/config"
	"github.com/titlepack/titlepack/lib/metrics"
	"github.com/titlepack/titlepack/lib/process"
	"github.com/titlepack/titlepack/lib/ratelimit"
	"github.com/titlepack/titlepack/lib/service"
	"github.com/titlepack/titlepack/lib/version"
)

const binaryName = "titlepack-relay"

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet(binaryName, pflag.ContinueOnError)
	var (
		configPath  string
		listen      string
		logLevel    string
		showVersion bool
	)
	flags.StringVar(&configPath, "config", "", "path to the configuration file (default: $"+config.EnvironmentVariable+")")
	flags.StringVar(&listen, "listen", "", "listen address, overriding listen.address")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, or error")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Printf("%s %s\n", binaryName, version.Full())
		return nil
	}

	level, err := service.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	logger := service.NewLogger(level)

	cfg, source, err := config.Resolve(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Listen.Address = listen
	}
	logger.Info("configuration loaded",
		"source", source,
		"environment", string(cfg.Environment),
		"cdn", cfg.CDN.BaseURL,
	)

	layout, err := cfg.Layout()
	if err != nil {
		return err
	}
	format, err := cfg.ArchiveFormat()
	if err != nil {
		return err
	}
	zipMethod, err := cfg.ZipMethod()
	if err != nil {
		return err
	}

	cdnConfig := cfg.CDNClientConfig(logger)
	if cdnConfig.UserAgent == cdn.DefaultUserAgent {
		cdnConfig.UserAgent = version.UserAgent(binaryName)
	}
	client, err := cdn.NewClient(cdnConfig)
	if err != nil {
		return fmt.Errorf("creating CDN client: %w", err)
	}

	clk := clock.Real()
	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		IdleTTL:           cfg.RateLimit.IdleTTL,
	}, clk)

	relay := NewRelay(RelayConfig{
		Source:        client,
		Layout:        layout,
		DefaultFormat: format,
		ZipMethod:     zipMethod,
		AllowOrigin:   cfg.Listen.AllowOrigin,
		Limiter:       limiter,
		Metrics:       metrics.New(),
		Clock:         clk,
		Logger:        logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go limiter.Run(ctx)

	server := service.NewHTTPServer(service.HTTPServerConfig{
		Address:           cfg.Listen.Address,
		Handler:           relay.Handler(),
		ReadHeaderTimeout: cfg.Listen.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.Listen.ShutdownTimeout,
		Logger:            logger,
	})

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(ctx)
	}()

	select {
	case <-server.Ready():
		logger.Info("relay ready",
			"address", server.Addr().String(),
			"version", version.Version,
			"default_format", format.String(),
		)
	case err := <-serveDone:
		return err
	}

	return <-serveDone
}
