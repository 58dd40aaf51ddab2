// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/titlepack/titlepack/cmd/titlepack/cli"
	"github.com/titlepack/titlepack/lib/title"
)

func (a *app) tidCommand() *cli.Command {
	var outputJSON bool
	return &cli.Command{
		Name:    "tid",
		Summary: "Decompose title identifiers",
		Description: `Split each 16-digit title identifier into its type, unique id, and
variant, and name the category and region they encode. Unknown types and
regions are reported as such rather than rejected.`,
		Usage: "titlepack tid <tid>... [flags]",
		Examples: []cli.Example{
			{Description: "Decompose one identifier", Command: "titlepack tid 0004000000055D00"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("tid", pflag.ContinueOnError)
			flagSet.BoolVar(&outputJSON, "json", false, "print as JSON")
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) == 0 {
				return errors.New("usage: titlepack tid <tid>... [flags]")
			}
			identifiers := make([]title.Identifier, 0, len(args))
			for _, arg := range args {
				id, err := title.ParseIdentifier(arg)
				if err != nil {
					return err
				}
				identifiers = append(identifiers, id)
			}

			if outputJSON {
				return cli.WriteJSON(a.stdout, identifiers)
			}
			tw := tabwriter.NewWriter(a.stdout, 2, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "TITLE ID\tTYPE\tCATEGORY\tUNIQUE ID\tVARIANT\tREGION\n")
			for _, id := range identifiers {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s (%d)\t%s\t%s\n",
					id.Value, id.Type, id.Category.Name, id.UniqueID, id.UniqueIDDecimal, id.Variant, id.Region)
			}
			return tw.Flush()
		},
	}
}
