// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"fmt"
	"strings"
)

// Format identifies an archive container.
type Format uint8

const (
	// FormatZip is a zip archive. Content blobs are already encrypted,
	// so the default method stores entries without compression.
	FormatZip Format = iota

	// FormatTar is an uncompressed POSIX tar stream.
	FormatTar

	// FormatTarZstd is a tar stream compressed with zstd.
	FormatTarZstd

	// FormatTarLZ4 is a tar stream compressed with the lz4 frame format.
	FormatTarLZ4
)

// Formats lists every supported format in a stable order.
var Formats = []Format{FormatZip, FormatTar, FormatTarZstd, FormatTarLZ4}

// String returns the canonical name: "zip", "tar", "tar.zst", or
// "tar.lz4".
func (format Format) String() string {
	switch format {
	case FormatZip:
		return "zip"
	case FormatTar:
		return "tar"
	case FormatTarZstd:
		return "tar.zst"
	case FormatTarLZ4:
		return "tar.lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(format))
	}
}

// ParseFormat parses a format name. Matching is case-insensitive and
// accepts "tzst", "tar.zstd", and "tlz4" as aliases. The empty string
// parses as FormatZip.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "zip":
		return FormatZip, nil
	case "tar":
		return FormatTar, nil
	case "tar.zst", "tar.zstd", "tzst":
		return FormatTarZstd, nil
	case "tar.lz4", "tlz4":
		return FormatTarLZ4, nil
	default:
		return 0, fmt.Errorf("archive: unknown format %q (want zip, tar, tar.zst, or tar.lz4)", name)
	}
}

// Extension returns the file name extension without a leading dot.
func (format Format) Extension() string {
	return format.String()
}

// ContentType returns the media type for HTTP responses.
func (format Format) ContentType() string {
	switch format {
	case FormatZip:
		return "application/zip"
	case FormatTar:
		return "application/x-tar"
	case FormatTarZstd:
		return "application/zstd"
	case FormatTarLZ4:
		return "application/x-lz4"
	default:
		return "application/octet-stream"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (format Format) MarshalText() ([]byte, error) {
	if int(format) >= len(Formats) {
		return nil, fmt.Errorf("archive: cannot marshal %s", format)
	}
	return []byte(format.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (format *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*format = parsed
	return nil
}

// ZipMethod selects how zip entries are encoded.
type ZipMethod uint8

const (
	// ZipStore writes entries uncompressed.
	ZipStore ZipMethod = iota

	// ZipDeflate compresses entries with deflate.
	ZipDeflate
)

// String returns "store" or "deflate".
func (method ZipMethod) String() string {
	switch method {
	case ZipStore:
		return "store"
	case ZipDeflate:
		return "deflate"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(method))
	}
}

// ParseZipMethod parses "store" or "deflate". The empty string parses
// as ZipStore.
func ParseZipMethod(name string) (ZipMethod, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "store":
		return ZipStore, nil
	case "deflate":
		return ZipDeflate, nil
	default:
		return 0, fmt.Errorf("archive: unknown zip method %q (want store or deflate)", name)
	}
}
