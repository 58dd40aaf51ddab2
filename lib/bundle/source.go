// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"context"
	"io"
)

// Source fetches objects by path. *cdn.Client is the production
// implementation. Not-found outcomes must match cdn.ErrNotFound;
// everything else is treated as a transport failure.
type Source interface {
	// Fetch reads a whole, small object (metadata or ticket).
	Fetch(ctx context.Context, path string) ([]byte, error)

	// FetchStream opens a content object for sequential reading. The
	// caller closes the returned body. Cancelling ctx must make
	// pending and future reads fail.
	FetchStream(ctx context.Context, path string) (io.ReadCloser, error)
}

// EntryKind classifies archive entries.
type EntryKind string

const (
	EntryMetadata EntryKind = "tmd"
	EntryTicket   EntryKind = "cetk"
	EntryContent  EntryKind = "content"
)

// Recorder observes assembly progress. lib/metrics provides the
// Prometheus implementation. Methods are called synchronously from the
// assembling goroutine.
type Recorder interface {
	// EntryWritten is called after each entry is closed.
	EntryWritten(kind EntryKind, bytes int64)

	// TicketMissing is called when the ticket fetch or write was
	// downgraded to "absent".
	TicketMissing()
}

type nopRecorder struct{}

func (nopRecorder) EntryWritten(EntryKind, int64) {}
func (nopRecorder) TicketMissing()                {}
