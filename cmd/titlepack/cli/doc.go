// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command framework for the titlepack CLI.
//
// The central type is [Command]: a named command with optional nested
// [Command.Subcommands], a [pflag.FlagSet] factory, and a Run function.
// The tree is assembled in cmd/titlepack and dispatched with
// [Command.Execute], which parses flags, routes subcommands, and prints
// structured help with examples.
//
// Unknown subcommands and flags get a "did you mean" suggestion when a
// known name is within edit distance 3.
//
// [ExitError] lets a command choose its exit status after printing its
// own output.
package cli
