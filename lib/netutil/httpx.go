// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP I/O helpers shared by the CDN client and
// the relay.
//
// Whole-body reads (ReadLimited, ErrorBody) are bounded so that a
// misbehaving upstream cannot exhaust memory. They are for small records
// and error bodies, never for content blobs, which are streamed with
// io.Copy.
//
// IsExpectedCloseError classifies errors caused by the other side
// going away, which the relay logs at a lower level than real failures.
package netutil

import (
	"errors"
	"fmt"
	"io"
)

// MaxErrorBodySize bounds how much of an error response is kept for
// diagnostics.
const MaxErrorBodySize int64 = 4 << 10

// ErrResponseTooLarge is returned by ReadLimited when the body is longer
// than the limit.
var ErrResponseTooLarge = errors.New("response body exceeds size limit")

// ReadLimited reads body in full, failing with ErrResponseTooLarge if it
// holds more than limit bytes. Unlike io.LimitReader alone, an oversized
// body is an error rather than a silently truncated record.
func ReadLimited(body io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrResponseTooLarge, limit)
	}
	return data, nil
}

// ErrorBody reads the start of an HTTP error response for use in error
// messages. Read errors are ignored; a partial body is still useful.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxErrorBodySize))
	return string(data)
}

// DrainAndClose discards a bounded amount of the remaining body and
// closes it, letting the transport reuse the connection.
func DrainAndClose(body io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, MaxErrorBodySize))
	return body.Close()
}
