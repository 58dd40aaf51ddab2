// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/titlepack/titlepack/cmd/titlepack/cli"
	"github.com/titlepack/titlepack/lib/bundle"
	"github.com/titlepack/titlepack/lib/title"
)

func (a *app) decodeCommand() *cli.Command {
	var (
		output     outputFlags
		ticketPath string
		layoutName string
	)
	return &cli.Command{
		Name:    "decode",
		Summary: "Decode local metadata and ticket files",
		Description: `Decode a title metadata file, and optionally its ticket, without
contacting the content server. The title identifier is read from the
metadata header.

Exits 1 after printing when the ticket is present but does not decode.`,
		Usage: "titlepack decode <tmd-file> [flags]",
		Examples: []cli.Example{
			{Description: "Decode a metadata file and its ticket", Command: "titlepack decode title.tmd --ticket title.tik"},
			{Description: "Decode a record with the fixed 64-entry info table", Command: "titlepack decode tmd --layout ctr"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("decode", pflag.ContinueOnError)
			output.bind(flagSet)
			flagSet.StringVar(&ticketPath, "ticket", "", "ticket (cetk) file to decode alongside")
			flagSet.StringVar(&layoutName, "layout", "default", "metadata record layout: default, ctr, or wii")
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) != 1 {
				return errors.New("usage: titlepack decode <tmd-file> [flags]")
			}
			layout, err := title.ParseLayout(layoutName)
			if err != nil {
				return fmt.Errorf("--layout: %w", err)
			}
			metadata, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var ticket []byte
			if ticketPath != "" {
				if ticket, err = os.ReadFile(ticketPath); err != nil {
					return err
				}
			}

			description, err := bundle.DescribeRecords(layout, metadata, ticket)
			if err != nil {
				return fmt.Errorf("decoding %s: %w", args[0], err)
			}
			if err := output.emit(a.stdout, description); err != nil {
				return err
			}
			if description.TicketError != "" {
				fmt.Fprintf(a.stderr, "ticket %s: %s\n", ticketPath, description.TicketError)
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}
