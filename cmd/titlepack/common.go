// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/titlepack/titlepack/cmd/titlepack/cli"
	"github.com/titlepack/titlepack/lib/bundle"
	"github.com/titlepack/titlepack/lib/cdn"
	"github.com/titlepack/titlepack/lib/codec"
	"github.com/titlepack/titlepack/lib/config"
	"github.com/titlepack/titlepack/lib/service"
	"github.com/titlepack/titlepack/lib/version"
)

// sourceFlags are shared by commands that talk to the content server.
type sourceFlags struct {
	configPath string
	logLevel   string
}

func (f *sourceFlags) bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.configPath, "config", "", "path to the configuration file (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&f.logLevel, "log-level", "warn", "log level: debug, info, warn, or error")
}

// setup resolves the configuration and builds the logger and CDN
// client.
func (f *sourceFlags) setup(a *app) (*config.Config, *slog.Logger, *cdn.Client, error) {
	level, err := service.ParseLevel(f.logLevel)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("--log-level: %w", err)
	}
	logger := a.newLogger(level)

	cfg, source, err := config.Resolve(f.configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Debug("configuration loaded", "source", source, "cdn", cfg.CDN.BaseURL)

	cdnConfig := cfg.CDNClientConfig(logger)
	if cdnConfig.UserAgent == cdn.DefaultUserAgent {
		cdnConfig.UserAgent = version.UserAgent(binaryName)
	}
	client, err := cdn.NewClient(cdnConfig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating CDN client: %w", err)
	}
	return cfg, logger, client, nil
}

// outputFlags select how a Description is printed.
type outputFlags struct {
	encoding string
	diagnose bool
}

func (f *outputFlags) bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.encoding, "encoding", "json", "output encoding: json or cbor")
	flagSet.BoolVar(&f.diagnose, "diagnose", false, "print CBOR output in diagnostic notation instead of raw bytes")
}

func (f *outputFlags) emit(w io.Writer, description *bundle.Description) error {
	encoding, err := codec.ParseEncoding(f.encoding)
	if err != nil {
		return fmt.Errorf("--encoding: %w", err)
	}
	if encoding == codec.JSON {
		if f.diagnose {
			return fmt.Errorf("--diagnose requires --encoding cbor")
		}
		return cli.WriteJSON(w, description)
	}
	if !f.diagnose {
		return codec.Encode(w, codec.CBOR, description)
	}
	data, err := codec.Marshal(description)
	if err != nil {
		return err
	}
	notation, err := codec.Diagnose(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, notation)
	return err
}
