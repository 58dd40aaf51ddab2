// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package title

import (
	"fmt"
)

// Header field offsets, relative to the header origin.
const (
	tmdIssuerOffset           = 0x00
	tmdIssuerSize             = 0x40
	tmdVersionOffset          = 0x40
	tmdCACRLVersionOffset     = 0x41
	tmdSignerCRLVersionOffset = 0x42
	tmdSystemVersionOffset    = 0x48
	tmdTitleIDOffset          = 0x4C
	tmdTitleVersionOffset     = 0x9C
	tmdContentCountOffset     = 0x9E
	tmdBootContentOffset      = 0xA0
	tmdContentInfoCountOffset = 0xA2

	// tmdMinimumHeaderSize covers every header field decoded above.
	tmdMinimumHeaderSize = 0xA4

	// ContentInfoRecordSize is the size of one content-info record.
	ContentInfoRecordSize = 0x24

	// contentChunkFixedSize is the part of a content chunk record that
	// precedes the digest: id, index, type, size.
	contentChunkFixedSize = 0x10
)

// Content chunk type flags.
const (
	ContentTypeEncrypted uint16 = 0x0001
	ContentTypeDisc      uint16 = 0x0002
	ContentTypeCFM       uint16 = 0x0004
	ContentTypeOptional  uint16 = 0x4000
	ContentTypeShared    uint16 = 0x8000
)

// InfoRecordsFromHeader makes a Layout read the content-info record
// count from the header instead of using a fixed number.
const InfoRecordsFromHeader = -1

// Layout is the record geometry that varies between platform
// generations.
type Layout struct {
	// HeaderSize is the size of the fixed header, from the header
	// origin to the first content-info record.
	HeaderSize int

	// DigestSize is the width of the hash stored in each content chunk
	// record.
	DigestSize int

	// InfoRecords is the number of content-info records between the
	// header and the chunk table, or InfoRecordsFromHeader.
	InfoRecords int
}

var (
	// DefaultLayout reads the content-info record count from the
	// header and expects 32-byte digests.
	DefaultLayout = Layout{HeaderSize: 0xC4, DigestSize: 32, InfoRecords: InfoRecordsFromHeader}

	// CTRLayout has the fixed table of 64 content-info records.
	CTRLayout = Layout{HeaderSize: 0xC4, DigestSize: 32, InfoRecords: 64}

	// WiiLayout has no content-info table and 20-byte digests.
	WiiLayout = Layout{HeaderSize: 0xA4, DigestSize: 20, InfoRecords: 0}
)

// ParseLayout returns the named preset layout.
func ParseLayout(name string) (Layout, error) {
	switch name {
	case "", "default":
		return DefaultLayout, nil
	case "ctr":
		return CTRLayout, nil
	case "wii":
		return WiiLayout, nil
	default:
		return Layout{}, fmt.Errorf("unknown record layout %q (want default, ctr, or wii)", name)
	}
}

// Validate checks that the layout can hold every decoded header field.
func (layout Layout) Validate() error {
	if layout.HeaderSize < tmdMinimumHeaderSize {
		return fmt.Errorf("layout header size %#x is smaller than %#x", layout.HeaderSize, tmdMinimumHeaderSize)
	}
	if layout.DigestSize <= 0 {
		return fmt.Errorf("layout digest size must be positive, got %d", layout.DigestSize)
	}
	if layout.InfoRecords < InfoRecordsFromHeader {
		return fmt.Errorf("layout info record count %d is invalid", layout.InfoRecords)
	}
	return nil
}

// ChunkRecordSize is the size of one content chunk record.
func (layout Layout) ChunkRecordSize() int {
	return contentChunkFixedSize + layout.DigestSize
}

// Metadata is a decoded title metadata record.
type Metadata struct {
	Signature        SignatureKind
	Issuer           string
	FormatVersion    uint8
	CACRLVersion     uint8
	SignerCRLVersion uint8
	TitleID          uint64
	SystemVersion    uint32
	TitleVersion     uint16
	ContentCount     uint16
	ContentInfoCount uint16
	BootContent      uint16

	// Contents is in table order. Callers that assemble archives or
	// report contents must preserve this order.
	Contents []ContentChunk
}

// TitleIDHex returns the title id as 16 lowercase hex digits.
func (metadata *Metadata) TitleIDHex() string {
	return fmt.Sprintf("%016x", metadata.TitleID)
}

// ContentChunk describes one content blob listed by a TMD.
type ContentChunk struct {
	ID    uint32
	Index uint16
	Type  uint16
	Size  uint64
	Hash  []byte
}

// IDHex returns the content id as 8 lowercase hex digits, the form used
// in CDN paths and archive entry names.
func (chunk ContentChunk) IDHex() string {
	return fmt.Sprintf("%08x", chunk.ID)
}

func (chunk ContentChunk) Encrypted() bool { return chunk.Type&ContentTypeEncrypted != 0 }
func (chunk ContentChunk) Optional() bool  { return chunk.Type&ContentTypeOptional != 0 }
func (chunk ContentChunk) Shared() bool    { return chunk.Type&ContentTypeShared != 0 }

// DecodeMetadata decodes buf with DefaultLayout.
func DecodeMetadata(buf []byte) (*Metadata, error) {
	return DefaultLayout.DecodeMetadata(buf)
}

// DecodeMetadata decodes a title metadata record. The buffer is not
// retained; digests are copied out.
//
// Failures are *DecodeError values matching ErrTruncatedRecord when the
// buffer is too short for the header or the chunk table, and
// ErrMalformedHeader when the header is internally inconsistent (no
// contents, or a content index listed twice).
func (layout Layout) DecodeMetadata(buf []byte) (*Metadata, error) {
	const record = "tmd"

	if err := layout.Validate(); err != nil {
		return nil, err
	}

	origin, kind, err := signatureBlock(buf, record)
	if err != nil {
		return nil, err
	}
	if err := require(buf, record, "header", origin, layout.HeaderSize); err != nil {
		return nil, err
	}

	header := Fields(buf[origin:])
	metadata := &Metadata{
		Signature:        kind,
		Issuer:           header.ASCII(tmdIssuerOffset, tmdIssuerSize),
		FormatVersion:    header.Uint8(tmdVersionOffset),
		CACRLVersion:     header.Uint8(tmdCACRLVersionOffset),
		SignerCRLVersion: header.Uint8(tmdSignerCRLVersionOffset),
		SystemVersion:    header.Uint32(tmdSystemVersionOffset),
		TitleID:          header.Uint64(tmdTitleIDOffset),
		TitleVersion:     header.Uint16(tmdTitleVersionOffset),
		ContentCount:     header.Uint16(tmdContentCountOffset),
		BootContent:      header.Uint16(tmdBootContentOffset),
		ContentInfoCount: header.Uint16(tmdContentInfoCountOffset),
	}

	if metadata.ContentCount == 0 {
		return nil, malformed(record, "content count", origin+tmdContentCountOffset, len(buf))
	}

	infoRecords := layout.InfoRecords
	if infoRecords == InfoRecordsFromHeader {
		infoRecords = int(metadata.ContentInfoCount)
	}

	tableOrigin := origin + layout.HeaderSize + infoRecords*ContentInfoRecordSize
	recordSize := layout.ChunkRecordSize()
	count := int(metadata.ContentCount)
	if err := require(buf, record, "content chunk table", tableOrigin, count*recordSize); err != nil {
		return nil, err
	}

	table := Fields(buf[tableOrigin:])
	metadata.Contents = make([]ContentChunk, count)
	seen := make(map[uint16]struct{}, count)
	for i := range metadata.Contents {
		offset := i * recordSize
		chunk := ContentChunk{
			ID:    table.Uint32(offset),
			Index: table.Uint16(offset + 0x04),
			Type:  table.Uint16(offset + 0x06),
			Size:  table.Uint64(offset + 0x08),
			Hash:  table.Bytes(offset+contentChunkFixedSize, layout.DigestSize),
		}
		if _, duplicate := seen[chunk.Index]; duplicate {
			return nil, malformed(record, fmt.Sprintf("content chunk %d index", i), tableOrigin+offset+0x04, len(buf))
		}
		seen[chunk.Index] = struct{}{}
		metadata.Contents[i] = chunk
	}

	return metadata, nil
}
