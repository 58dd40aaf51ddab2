// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides the entrypoint error handler shared by
// titlepack binaries. It is the one place outside command output that
// writes raw text to stderr, for failures that happen before or instead
// of the structured logger.
package process
