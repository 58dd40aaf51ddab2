// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"errors"
	"fmt"

	"github.com/titlepack/titlepack/lib/cdn"
)

var (
	// ErrMetadataUnavailable means the source has no metadata record
	// for the requested identifier and version.
	ErrMetadataUnavailable = errors.New("title metadata unavailable")

	// ErrContentUnavailable means a content chunk could not be fetched
	// or did not match its declared size. Assembly stops at the first
	// such chunk.
	ErrContentUnavailable = errors.New("content unavailable")

	// ErrTransportFailure means a fetch failed for a reason other than
	// the object not existing.
	ErrTransportFailure = errors.New("transport failure")

	// ErrInvalidVersion means a version string is not a decimal number
	// between 0 and 65535.
	ErrInvalidVersion = errors.New("invalid title version")
)

// ChunkError reports the content chunk at which assembly stopped. It
// matches ErrContentUnavailable, and ErrTransportFailure too when the
// underlying cause was a transport failure.
type ChunkError struct {
	ID    uint32
	Index uint16
	Path  string
	Err   error
}

func (err *ChunkError) Error() string {
	return fmt.Sprintf("content %08x (index %d) from %s: %v", err.ID, err.Index, err.Path, err.Err)
}

func (err *ChunkError) Unwrap() error {
	return err.Err
}

func (err *ChunkError) Is(target error) bool {
	return target == ErrContentUnavailable
}

// LengthError reports a content stream that ended before, or continued
// past, its declared size.
type LengthError struct {
	Declared uint64

	// Received is the number of bytes read. For a long stream it is
	// Declared plus however many extra bytes were observed.
	Received uint64
}

func (err *LengthError) Error() string {
	if err.Received < err.Declared {
		return fmt.Sprintf("stream ended after %d of %d bytes", err.Received, err.Declared)
	}
	return fmt.Sprintf("stream continued past the declared %d bytes", err.Declared)
}

// classifyFetch maps a source error for a metadata fetch onto the
// bundle taxonomy.
func classifyFetch(err error, path string) error {
	if cdn.IsNotFound(err) {
		return fmt.Errorf("%w: %s: %w", ErrMetadataUnavailable, path, err)
	}
	return fmt.Errorf("%w: fetching %s: %w", ErrTransportFailure, path, err)
}

// classifyContent wraps a failure to open or read a content stream.
func classifyContent(err error) error {
	if errors.Is(err, cdn.ErrTransport) {
		return fmt.Errorf("%w: %w", ErrTransportFailure, err)
	}
	return err
}
