// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/titlepack/titlepack/cmd/titlepack/cli"
	"github.com/titlepack/titlepack/lib/archive"
	"github.com/titlepack/titlepack/lib/bundle"
	"github.com/titlepack/titlepack/lib/title"
)

func (a *app) fetchCommand() *cli.Command {
	var (
		source       sourceFlags
		titleVersion string
		format       string
		zipMethod    string
		output       string
		outputJSON   bool
	)
	return &cli.Command{
		Name:    "fetch",
		Summary: "Download a title into an archive",
		Description: `Download a title's metadata, ticket, and every content blob into one
archive. The ticket is included when the content server has one; a
missing content blob fails the whole fetch and no file is left behind.

The archive is written to a temporary file next to the destination and
renamed into place only after it is complete.`,
		Usage: "titlepack fetch <tid> [flags]",
		Examples: []cli.Example{
			{Description: "Fetch the latest version as a zip in the current directory", Command: "titlepack fetch 0005000E10101D00"},
			{Description: "Fetch version 208 as zstd-compressed tar", Command: "titlepack fetch 0005000E10101D00 --title-version 208 --format tar.zst"},
			{Description: "Stream the archive to another program", Command: "titlepack fetch 0005000E10101D00 -o - | unzip -l /dev/stdin"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("fetch", pflag.ContinueOnError)
			source.bind(flagSet)
			flagSet.StringVar(&titleVersion, "title-version", "", "title version to fetch (default: latest)")
			flagSet.StringVarP(&format, "format", "f", "", "archive format: zip, tar, tar.zst, or tar.lz4 (default: archive.default_format)")
			flagSet.StringVar(&zipMethod, "zip-method", "", "zip entry method: store or deflate (default: archive.zip_method)")
			flagSet.StringVarP(&output, "output", "o", "", "destination file or directory, or - for stdout (default: <tid>[-v<version>].<ext>)")
			flagSet.BoolVar(&outputJSON, "json", false, "print the result as JSON")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return errors.New("usage: titlepack fetch <tid> [flags]")
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
			if format == "" {
				format = cfg.Archive.DefaultFormat
			}
			archiveFormat, err := archive.ParseFormat(format)
			if err != nil {
				return fmt.Errorf("--format: %w", err)
			}
			if zipMethod == "" {
				zipMethod = cfg.Archive.ZipMethod
			}
			method, err := archive.ParseZipMethod(zipMethod)
			if err != nil {
				return fmt.Errorf("--zip-method: %w", err)
			}

			assembler := &bundle.Assembler{Source: client, Layout: layout, Logger: logger}
			prepared, err := assembler.Prepare(ctx, bundle.Request{ID: id, Version: version})
			if err != nil {
				return err
			}
			options := archive.Options{ZipMethod: method}

			if output == "-" {
				result, err := writeArchive(ctx, prepared, a.stdout, archiveFormat, options)
				if err != nil {
					return err
				}
				return a.printFetchResult(a.stderr, "-", result, outputJSON)
			}

			destination, err := destinationPath(output, bundle.ArchiveFileName(id, version, archiveFormat))
			if err != nil {
				return err
			}
			result, err := writeArchiveFile(ctx, prepared, destination, archiveFormat, options)
			if err != nil {
				return err
			}
			return a.printFetchResult(a.stdout, destination, result, outputJSON)
		},
	}
}

// destinationPath resolves --output: empty means fileName in the
// current directory, an existing directory means fileName inside it.
func destinationPath(output, fileName string) (string, error) {
	if output == "" {
		return fileName, nil
	}
	info, err := os.Stat(output)
	switch {
	case err == nil && info.IsDir():
		return filepath.Join(output, fileName), nil
	case err == nil || errors.Is(err, os.ErrNotExist):
		return output, nil
	default:
		return "", err
	}
}

func writeArchive(ctx context.Context, prepared *bundle.Prepared, w io.Writer, format archive.Format, options archive.Options) (*bundle.Result, error) {
	buffered := bufio.NewWriterSize(w, 256<<10)
	sink, err := archive.New(format, buffered, options)
	if err != nil {
		return nil, err
	}
	result, err := prepared.Write(ctx, sink)
	if err != nil {
		return nil, err
	}
	if err := buffered.Flush(); err != nil {
		return nil, fmt.Errorf("flushing archive: %w", err)
	}
	return result, nil
}

// writeArchiveFile writes to a temporary file beside path and renames it
// into place once the archive is finalized.
func writeArchiveFile(ctx context.Context, prepared *bundle.Prepared, path string, format archive.Format, options archive.Options) (result *bundle.Result, err error) {
	file, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.partial")
	if err != nil {
		return nil, fmt.Errorf("creating temporary archive: %w", err)
	}
	temporary := file.Name()
	defer func() {
		if err != nil {
			file.Close()
			os.Remove(temporary)
		}
	}()

	result, err = writeArchive(ctx, prepared, file, format, options)
	if err != nil {
		return nil, err
	}
	if err := file.Sync(); err != nil {
		return nil, fmt.Errorf("syncing %s: %w", temporary, err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("closing %s: %w", temporary, err)
	}
	if err := os.Rename(temporary, path); err != nil {
		return nil, fmt.Errorf("renaming archive into place: %w", err)
	}
	return result, nil
}

func (a *app) printFetchResult(w io.Writer, destination string, result *bundle.Result, outputJSON bool) error {
	if outputJSON {
		return cli.WriteJSON(w, struct {
			Path string `json:"path"`
			*bundle.Result
		}{Path: destination, Result: result})
	}

	ticket := "ticket included"
	if !result.TicketPresent {
		ticket = "no ticket"
	}
	fmt.Fprintf(w, "%s: %s version %d, %d entries, %d bytes, %s\n",
		destination, result.ID, result.TitleVersion, len(result.Entries), result.Bytes, ticket)
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  NAME\tKIND\tSIZE\tBLAKE3\n")
	for _, entry := range result.Entries {
		fmt.Fprintf(tw, "  %s\t%s\t%d\t%s\n", entry.Name, entry.Kind, entry.Size, entry.Digest)
	}
	return tw.Flush()
}
