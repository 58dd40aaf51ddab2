// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

// Package titletest builds synthetic title metadata and ticket records
// for tests. Builders write every field at the offsets the decoders in
// lib/title read, so a decode of Bytes() reproduces the builder's
// values.
package titletest

import (
	"encoding/binary"

	"github.com/titlepack/titlepack/lib/title"
)

// Chunk is one content chunk record.
type Chunk struct {
	ID    uint32
	Index uint16
	Type  uint16
	Size  uint64
	Hash  []byte
}

// Metadata describes a TMD to build. Zero values produce a valid
// RSA-2048 record under title.DefaultLayout.
type Metadata struct {
	SignatureTag     uint32
	Layout           title.Layout
	Issuer           string
	FormatVersion    uint8
	CACRLVersion     uint8
	SignerCRLVersion uint8
	SystemVersion    uint32
	TitleID          uint64
	TitleVersion     uint16
	BootContent      uint16

	// InfoRecords is the number of content-info records written. It is
	// also stored in the header count field. Ignored when Layout fixes
	// the number of records.
	InfoRecords int

	Chunks []Chunk

	// Trailer is appended after the chunk table, standing in for the
	// certificate chain real records carry.
	Trailer []byte
}

func (record Metadata) layout() title.Layout {
	if record.Layout == (title.Layout{}) {
		return title.DefaultLayout
	}
	return record.Layout
}

func (record Metadata) signatureTag() uint32 {
	if record.SignatureTag == 0 {
		return title.TagRSA2048
	}
	return record.SignatureTag
}

// Bytes encodes the record.
func (record Metadata) Bytes() []byte {
	layout := record.layout()
	origin := title.ResolveSignature(record.signatureTag()).BlockLength()

	infoRecords := layout.InfoRecords
	if infoRecords == title.InfoRecordsFromHeader {
		infoRecords = record.InfoRecords
	}
	tableOrigin := origin + layout.HeaderSize + infoRecords*title.ContentInfoRecordSize
	recordSize := layout.ChunkRecordSize()

	buf := make([]byte, tableOrigin+len(record.Chunks)*recordSize, tableOrigin+len(record.Chunks)*recordSize+len(record.Trailer))
	binary.BigEndian.PutUint32(buf[0:], record.signatureTag())
	fillPattern(buf[4:origin])

	header := buf[origin:]
	copy(header[0x00:0x40], record.Issuer)
	header[0x40] = record.FormatVersion
	header[0x41] = record.CACRLVersion
	header[0x42] = record.SignerCRLVersion
	binary.BigEndian.PutUint32(header[0x48:], record.SystemVersion)
	binary.BigEndian.PutUint64(header[0x4C:], record.TitleID)
	binary.BigEndian.PutUint16(header[0x9C:], record.TitleVersion)
	binary.BigEndian.PutUint16(header[0x9E:], uint16(len(record.Chunks)))
	binary.BigEndian.PutUint16(header[0xA0:], record.BootContent)
	if layout.InfoRecords == title.InfoRecordsFromHeader {
		binary.BigEndian.PutUint16(header[0xA2:], uint16(record.InfoRecords))
	}
	fillPattern(buf[origin+layout.HeaderSize : tableOrigin])

	for i, chunk := range record.Chunks {
		entry := buf[tableOrigin+i*recordSize:]
		binary.BigEndian.PutUint32(entry[0x00:], chunk.ID)
		binary.BigEndian.PutUint16(entry[0x04:], chunk.Index)
		binary.BigEndian.PutUint16(entry[0x06:], chunk.Type)
		binary.BigEndian.PutUint64(entry[0x08:], chunk.Size)
		copy(entry[0x10:recordSize], chunk.Hash)
	}

	return append(buf, record.Trailer...)
}

// Ticket describes a ticket record to build.
type Ticket struct {
	SignatureTag   uint32
	Issuer         string
	TitleKey       [16]byte
	TicketID       uint64
	ConsoleID      uint32
	TitleID        uint64
	CommonKeyIndex uint8
}

// Bytes encodes the record with a 0x164-byte body.
func (record Ticket) Bytes() []byte {
	tag := record.SignatureTag
	if tag == 0 {
		tag = title.TagRSA2048
	}
	origin := title.ResolveSignature(tag).BlockLength()

	buf := make([]byte, origin+0x164)
	binary.BigEndian.PutUint32(buf[0:], tag)
	fillPattern(buf[4:origin])

	body := buf[origin:]
	copy(body[0x00:0x40], record.Issuer)
	copy(body[0x7F:0x8F], record.TitleKey[:])
	binary.BigEndian.PutUint64(body[0x90:], record.TicketID)
	binary.BigEndian.PutUint32(body[0x98:], record.ConsoleID)
	binary.BigEndian.PutUint64(body[0x9C:], record.TitleID)
	body[0xB1] = record.CommonKeyIndex
	return buf
}

// fillPattern writes a non-zero pattern into regions the decoders skip,
// so tests catch offsets that land in the wrong place.
func fillPattern(region []byte) {
	for i := range region {
		region[i] = byte(0xA5 ^ i)
	}
}
