// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"

	"github.com/spf13/pflag"

	"github.com/titlepack/titlepack/cmd/titlepack/cli"
	"github.com/titlepack/titlepack/lib/bundle"
	"github.com/titlepack/titlepack/lib/title"
)

func (a *app) infoCommand() *cli.Command {
	var (
		source       sourceFlags
		output       outputFlags
		titleVersion string
	)
	return &cli.Command{
		Name:    "info",
		Summary: "Print a title's decoded metadata and ticket",
		Description: `Fetch a title's metadata and ticket from the content server and print
them decoded. No content blobs are downloaded.`,
		Usage: "titlepack info <tid> [flags]",
		Examples: []cli.Example{
			{Description: "Show the latest metadata as JSON", Command: "titlepack info 0005000E10101D00"},
			{Description: "Show version 208 in CBOR diagnostic notation", Command: "titlepack info 0005000E10101D00 --title-version 208 --encoding cbor --diagnose"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("info", pflag.ContinueOnError)
			source.bind(flagSet)
			output.bind(flagSet)
			flagSet.StringVar(&titleVersion, "title-version", "", "title version to describe (default: latest)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return errors.New("usage: titlepack info <tid> [flags]")
			}
			id, err := title.ParseIdentifier(args[0])
			if err != nil {
				return err
			}
			version, err := bundle.ParseVersion(titleVersion)
			if err != nil {
				return err
			}

			cfg, logger, client, err := source.setup(a)
			if err != nil {
				return err
			}
			layout, err := cfg.Layout()
			if err != nil {
				return err
			}

			describer := &bundle.Describer{Source: client, Layout: layout, Logger: logger}
			description, err := describer.Describe(ctx, id, version)
			if err != nil {
				return err
			}
			return output.emit(a.stdout, description)
		},
	}
}
