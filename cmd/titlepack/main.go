// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/titlepack/titlepack/cmd/titlepack/cli"
	"github.com/titlepack/titlepack/lib/process"
	"github.com/titlepack/titlepack/lib/service"
	"github.com/titlepack/titlepack/lib/version"
)

const binaryName = "titlepack"

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		newLogger: service.NewCommandLogger,
	}
	return a.root().Execute(ctx, os.Args[1:])
}

// app carries the process-level dependencies every command uses, so
// tests can capture output.
type app struct {
	stdout    io.Writer
	stderr    io.Writer
	newLogger func(level slog.Level) *slog.Logger
}

func (a *app) root() *cli.Command {
	return &cli.Command{
		Name:   binaryName,
		Stderr: a.stderr,
		Description: `Titlepack: title metadata decoder and archive assembler.

Decodes title metadata (TMD) and ticket (CETK) records and assembles
archives of every content blob a title references, streaming each blob
from the content server straight into the archive.`,
		Subcommands: []*cli.Command{
			a.fetchCommand(),
			a.infoCommand(),
			a.decodeCommand(),
			a.tidCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(context.Context, []string) error {
					fmt.Fprintf(a.stdout, "%s %s\n", binaryName, version.Full())
					return nil
				},
			},
		},
	}
}
