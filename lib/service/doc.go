// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the process scaffolding shared by titlepack
// binaries: an HTTP server with graceful shutdown and the standard
// structured loggers.
//
// Binaries compose these pieces in their own main() rather than
// inheriting from a framework. [HTTPServer] owns the listener
// lifecycle; the caller supplies the handler. [NewLogger] is for
// long-running daemons and always emits JSON. [NewCommandLogger] is for
// interactive commands and switches to text output when stderr is a
// terminal.
package service
