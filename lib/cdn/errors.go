// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package cdn

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched when the CDN has no object at the path
	// (HTTP 404 or 410).
	ErrNotFound = errors.New("cdn: not found")

	// ErrTransport is matched by every *TransportError.
	ErrTransport = errors.New("cdn: transport failure")
)

// TransportError is any fetch failure other than not-found: a network
// error, a non-success status, or a body that could not be read.
type TransportError struct {
	// Path is the CDN path that was requested.
	Path string

	// StatusCode is the HTTP status, or zero when no response was
	// received.
	StatusCode int

	Err error
}

func (err *TransportError) Error() string {
	if err.StatusCode != 0 {
		return fmt.Sprintf("cdn: fetching %s: HTTP %d: %v", err.Path, err.StatusCode, err.Err)
	}
	return fmt.Sprintf("cdn: fetching %s: %v", err.Path, err.Err)
}

func (err *TransportError) Unwrap() error {
	return err.Err
}

// Is makes errors.Is(err, ErrTransport) hold for every TransportError.
func (err *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// IsNotFound reports whether err is a not-found outcome.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
