// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zeebo/blake3"

	"github.com/titlepack/titlepack/lib/title"
)

// Describer fetches and decodes a title's records without assembling
// an archive.
type Describer struct {
	Source Source

	// Layout decodes metadata records. The zero Layout means
	// title.DefaultLayout.
	Layout title.Layout

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Description is the structured view of a title. Identifiers and
// digests are rendered as hex strings; sizes stay exact integers.
type Description struct {
	Identifier title.Identifier `json:"identifier"`
	Version    Version          `json:"requested_version,omitzero"`
	Header     Header           `json:"header"`
	Contents   []Content        `json:"contents"`

	// ContentBytes is the sum of every content chunk's declared size.
	ContentBytes uint64 `json:"content_bytes"`

	// TicketPresent reports whether the source served a ticket.
	TicketPresent bool `json:"ticket_present"`

	// Ticket is the decoded ticket. It is nil when no ticket was served
	// or the served bytes did not decode; TicketError carries the
	// decode failure in the latter case.
	Ticket      *Ticket `json:"ticket,omitempty"`
	TicketError string  `json:"ticket_error,omitempty"`

	etag string
}

// Header is the decoded metadata header.
type Header struct {
	Signature        title.SignatureKind `json:"signature"`
	Issuer           string              `json:"issuer"`
	FormatVersion    uint8               `json:"format_version"`
	CACRLVersion     uint8               `json:"ca_crl_version"`
	SignerCRLVersion uint8               `json:"signer_crl_version"`
	SystemVersion    uint32              `json:"system_version"`
	TitleID          string              `json:"title_id"`
	TitleVersion     uint16              `json:"title_version"`
	ContentCount     uint16              `json:"content_count"`
	ContentInfoCount uint16              `json:"content_info_count"`
	BootContent      uint16              `json:"boot_content"`
}

// Content is one content chunk in table order.
type Content struct {
	ID        string `json:"id"`
	Index     uint16 `json:"index"`
	Type      uint16 `json:"type"`
	Encrypted bool   `json:"encrypted"`
	Optional  bool   `json:"optional"`
	Shared    bool   `json:"shared"`
	Size      uint64 `json:"size"`
	Hash      string `json:"hash"`
}

// Ticket is the decoded ticket. TitleKey is the encrypted key exactly
// as stored.
type Ticket struct {
	Signature      title.SignatureKind `json:"signature"`
	Issuer         string              `json:"issuer"`
	TitleKey       string              `json:"title_key"`
	TicketID       string              `json:"ticket_id"`
	ConsoleID      string              `json:"console_id"`
	TitleID        string              `json:"title_id"`
	CommonKeyIndex uint8               `json:"common_key_index"`
}

// ETag returns a strong entity tag derived from the metadata bytes and
// ticket presence, including the surrounding quotes.
func (description *Description) ETag() string {
	return description.etag
}

// Describe fetches and decodes the metadata and ticket for id. Failures
// are those of Assembler.Prepare; ticket problems are reported in the
// Description instead.
func (describer *Describer) Describe(ctx context.Context, id title.Identifier, version Version) (*Description, error) {
	if describer.Source == nil {
		return nil, errors.New("bundle: describer has no source")
	}
	logger := describer.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("title_id", id.String(), "version", version.String())

	layout := describer.Layout
	if layout == (title.Layout{}) {
		layout = title.DefaultLayout
	}
	raw, metadata, err := fetchMetadata(ctx, describer.Source, layout, Request{ID: id, Version: version})
	if err != nil {
		return nil, err
	}

	ticketPath := TicketPath(id)
	ticketBytes, err := describer.Source.Fetch(ctx, ticketPath)
	switch {
	case err != nil:
		logger.Warn("ticket unavailable", "path", ticketPath, "error", err)
		ticketBytes = nil
	case len(ticketBytes) == 0:
		logger.Warn("ticket is empty", "path", ticketPath)
	}

	description := describe(id, version, raw, metadata, ticketBytes)
	if description.TicketError != "" {
		logger.Warn("ticket does not decode", "path", ticketPath, "error", description.TicketError)
	}
	return description, nil
}

// DescribeRecords decodes a metadata record and an optional ticket that
// are already in memory. The identifier is taken from the metadata
// header. An empty ticket means none; a ticket that does not decode is
// reported in TicketError, as Describe does.
func DescribeRecords(layout title.Layout, metadata, ticket []byte) (*Description, error) {
	if layout == (title.Layout{}) {
		layout = title.DefaultLayout
	}
	decoded, err := layout.DecodeMetadata(metadata)
	if err != nil {
		return nil, err
	}
	id, err := title.ParseIdentifier(decoded.TitleIDHex())
	if err != nil {
		return nil, err
	}
	return describe(id, Latest, metadata, decoded, ticket), nil
}

func describe(id title.Identifier, version Version, raw []byte, metadata *title.Metadata, ticket []byte) *Description {
	description := &Description{
		Identifier: id,
		Version:    version,
		Header:     headerView(metadata),
		Contents:   make([]Content, len(metadata.Contents)),
	}
	for i, chunk := range metadata.Contents {
		description.Contents[i] = contentView(chunk)
		description.ContentBytes += chunk.Size
	}

	if len(ticket) > 0 {
		description.TicketPresent = true
		decoded, err := title.DecodeTicket(ticket)
		if err != nil {
			description.TicketError = err.Error()
		} else {
			description.Ticket = ticketView(decoded)
		}
	}

	description.etag = computeETag(raw, description.TicketPresent)
	return description
}

func computeETag(metadata []byte, ticketPresent bool) string {
	hasher := blake3.New()
	hasher.Write(metadata)
	if ticketPresent {
		hasher.Write([]byte{1})
	} else {
		hasher.Write([]byte{0})
	}
	sum := hasher.Sum(nil)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

func headerView(metadata *title.Metadata) Header {
	return Header{
		Signature:        metadata.Signature,
		Issuer:           metadata.Issuer,
		FormatVersion:    metadata.FormatVersion,
		CACRLVersion:     metadata.CACRLVersion,
		SignerCRLVersion: metadata.SignerCRLVersion,
		SystemVersion:    metadata.SystemVersion,
		TitleID:          fmt.Sprintf("%016X", metadata.TitleID),
		TitleVersion:     metadata.TitleVersion,
		ContentCount:     metadata.ContentCount,
		ContentInfoCount: metadata.ContentInfoCount,
		BootContent:      metadata.BootContent,
	}
}

func contentView(chunk title.ContentChunk) Content {
	return Content{
		ID:        chunk.IDHex(),
		Index:     chunk.Index,
		Type:      chunk.Type,
		Encrypted: chunk.Encrypted(),
		Optional:  chunk.Optional(),
		Shared:    chunk.Shared(),
		Size:      chunk.Size,
		Hash:      hex.EncodeToString(chunk.Hash),
	}
}

func ticketView(ticket *title.Ticket) *Ticket {
	return &Ticket{
		Signature:      ticket.Signature,
		Issuer:         ticket.Issuer,
		TitleKey:       hex.EncodeToString(ticket.TitleKey[:]),
		TicketID:       fmt.Sprintf("%016X", ticket.TicketID),
		ConsoleID:      fmt.Sprintf("%08X", ticket.ConsoleID),
		TitleID:        fmt.Sprintf("%016X", ticket.TitleID),
		CommonKeyIndex: ticket.CommonKeyIndex,
	}
}
