// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package title

import (
	"bytes"
	"encoding/binary"
)

// Fields reads big-endian fixed-width values at arbitrary offsets of a
// raw record. Reads do not bounds-check beyond what slicing does: the
// decoders validate every span with Has before reading, so
// a Fields value is only indexed inside ranges already known to exist.
type Fields []byte

// Has reports whether n bytes are available at offset.
func (f Fields) Has(offset, n int) bool {
	return offset >= 0 && n >= 0 && offset <= len(f) && n <= len(f)-offset
}

func (f Fields) Uint8(offset int) uint8 {
	return f[offset]
}

func (f Fields) Uint16(offset int) uint16 {
	return binary.BigEndian.Uint16(f[offset : offset+2])
}

func (f Fields) Uint32(offset int) uint32 {
	return binary.BigEndian.Uint32(f[offset : offset+4])
}

// Uint64 decodes a full 64-bit value. Content sizes go through here and
// must never be narrowed.
func (f Fields) Uint64(offset int) uint64 {
	return binary.BigEndian.Uint64(f[offset : offset+8])
}

// Bytes returns a copy of n bytes at offset. The copy keeps decoded
// records independent of the input buffer's lifetime.
func (f Fields) Bytes(offset, n int) []byte {
	out := make([]byte, n)
	copy(out, f[offset:offset+n])
	return out
}

// ASCII returns the NUL-terminated string stored in the n-byte field at
// offset. A field without a terminator is returned in full.
func (f Fields) ASCII(offset, n int) string {
	field := f[offset : offset+n]
	if end := bytes.IndexByte(field, 0); end >= 0 {
		field = field[:end]
	}
	return string(field)
}
