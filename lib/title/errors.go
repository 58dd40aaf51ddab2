// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package title

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncatedRecord is matched by decode errors where the buffer
	// ends before the offsets being read.
	ErrTruncatedRecord = errors.New("truncated record")

	// ErrMalformedHeader is matched by decode errors where the header
	// fields are internally inconsistent.
	ErrMalformedHeader = errors.New("malformed header")

	// ErrInvalidIdentifier is returned by ParseIdentifier for input that
	// is not exactly 16 hexadecimal digits.
	ErrInvalidIdentifier = errors.New("invalid title identifier")
)

// DecodeError describes where decoding a record stopped. Err is one of
// ErrTruncatedRecord or ErrMalformedHeader, so callers classify with
// errors.Is and inspect offsets with errors.As.
type DecodeError struct {
	// Record is "tmd" or "ticket".
	Record string

	// Section names the part of the record being validated, e.g.
	// "header" or "content chunk table".
	Section string

	// Offset is the absolute byte offset at which validation failed.
	Offset int

	// Need is the number of bytes required starting at Offset. Zero
	// for ErrMalformedHeader failures that are not length related.
	Need int

	// Size is the length of the buffer being decoded.
	Size int

	Err error
}

func (e *DecodeError) Error() string {
	if e.Need > 0 {
		return fmt.Sprintf("title: %s %s: need %#x bytes at offset %#x, record is %#x bytes: %v",
			e.Record, e.Section, e.Need, e.Offset, e.Size, e.Err)
	}
	return fmt.Sprintf("title: %s %s at offset %#x: %v", e.Record, e.Section, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// require returns a truncation error unless buf holds n bytes at offset.
// Negative or overflowing spans are reported as truncation too, so a
// hostile count can never turn into an out-of-range slice.
func require(buf []byte, record, section string, offset, n int) error {
	if !Fields(buf).Has(offset, n) {
		return &DecodeError{
			Record:  record,
			Section: section,
			Offset:  offset,
			Need:    n,
			Size:    len(buf),
			Err:     ErrTruncatedRecord,
		}
	}
	return nil
}

func malformed(record, section string, offset, size int) error {
	return &DecodeError{
		Record:  record,
		Section: section,
		Offset:  offset,
		Size:    size,
		Err:     ErrMalformedHeader,
	}
}
