// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/zeebo/blake3"

	"github.com/titlepack/titlepack/lib/archive"
	"github.com/titlepack/titlepack/lib/title"
)

// Request identifies the title to assemble.
type Request struct {
	ID      title.Identifier
	Version Version
}

// Assembler builds title archives from a Source. The zero value is not
// usable; Source is required. An Assembler holds no per-request state
// and may be shared between goroutines if its Source and Recorder can.
type Assembler struct {
	Source Source

	// Layout decodes metadata records. The zero Layout means
	// title.DefaultLayout.
	Layout title.Layout

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics is optional.
	Metrics Recorder
}

// Entry describes one entry written to the archive.
type Entry struct {
	Name string    `json:"name"`
	Kind EntryKind `json:"kind"`
	Size int64     `json:"size"`

	// Digest is the hex BLAKE3-256 digest of the entry's bytes,
	// computed while streaming.
	Digest string `json:"digest"`
}

// Result summarizes a finalized archive.
type Result struct {
	ID            title.Identifier `json:"id"`
	Version       Version          `json:"version,omitzero"`
	TitleVersion  uint16           `json:"title_version"`
	TicketPresent bool             `json:"ticket_present"`
	Entries       []Entry          `json:"entries"`

	// Bytes is the sum of entry sizes, excluding container overhead.
	Bytes int64 `json:"bytes"`
}

// Prepared is a fetched and decoded metadata record, ready to be
// written out.
type Prepared struct {
	Request  Request
	Metadata *title.Metadata

	raw       []byte
	assembler *Assembler
	logger    *slog.Logger
}

// ContentBytes returns the total declared size of every content chunk.
func (prepared *Prepared) ContentBytes() uint64 {
	var total uint64
	for _, chunk := range prepared.Metadata.Contents {
		total += chunk.Size
	}
	return total
}

// Assemble runs Prepare and then Write.
func (assembler *Assembler) Assemble(ctx context.Context, request Request, sink archive.Sink) (*Result, error) {
	prepared, err := assembler.Prepare(ctx, request)
	if err != nil {
		return nil, err
	}
	return prepared.Write(ctx, sink)
}

// Prepare fetches and decodes the metadata record. Failures match
// ErrMetadataUnavailable, ErrTransportFailure, title.ErrTruncatedRecord,
// or title.ErrMalformedHeader. No sink is involved, so a caller can
// still report these failures cleanly.
func (assembler *Assembler) Prepare(ctx context.Context, request Request) (*Prepared, error) {
	if assembler.Source == nil {
		return nil, errors.New("bundle: assembler has no source")
	}
	logger := assembler.logger().With("title_id", request.ID.String(), "version", request.Version.String())

	raw, metadata, err := fetchMetadata(ctx, assembler.Source, assembler.layout(), request)
	if err != nil {
		return nil, err
	}
	if metadata.TitleID != request.ID.Uint64() {
		logger.Warn("metadata title id differs from request",
			"metadata_title_id", metadata.TitleIDHex())
	}
	logger.Debug("metadata decoded",
		"title_version", metadata.TitleVersion,
		"contents", len(metadata.Contents))

	return &Prepared{
		Request:   request,
		Metadata:  metadata,
		raw:       raw,
		assembler: assembler,
		logger:    logger,
	}, nil
}

// Write emits the metadata, the ticket when available, and every
// content chunk in table order into sink, then finalizes it. On any
// failure the sink is aborted instead of finalized and the error is
// returned; a *ChunkError identifies the chunk that stopped assembly.
func (prepared *Prepared) Write(ctx context.Context, sink archive.Sink) (result *Result, err error) {
	assembler := prepared.assembler
	request := prepared.Request
	logger := prepared.logger
	recorder := assembler.recorder()

	defer func() {
		if err == nil {
			return
		}
		if abortErr := sink.Abort(); abortErr != nil {
			logger.Error("aborting archive failed", "error", abortErr)
		}
		logger.Error("archive assembly aborted", "error", err)
		result = nil
	}()

	result = &Result{
		ID:           request.ID,
		Version:      request.Version,
		TitleVersion: prepared.Metadata.TitleVersion,
	}

	entry, err := writeBytes(sink, MetadataEntryName(request.ID), EntryMetadata, prepared.raw)
	if err != nil {
		return nil, err
	}
	result.add(entry)
	recorder.EntryWritten(EntryMetadata, entry.Size)

	if ticket := prepared.fetchTicket(ctx); ticket != nil {
		entry, err := writeBytes(sink, TicketEntryName(request.ID), EntryTicket, ticket)
		if err != nil {
			return nil, err
		}
		result.add(entry)
		result.TicketPresent = true
		recorder.EntryWritten(EntryTicket, entry.Size)
	} else {
		recorder.TicketMissing()
	}

	for _, chunk := range prepared.Metadata.Contents {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("assembly cancelled before content %08x: %w", chunk.ID, err)
		}
		entry, err := prepared.writeChunk(ctx, sink, chunk)
		if err != nil {
			return nil, err
		}
		result.add(entry)
		recorder.EntryWritten(EntryContent, entry.Size)
	}

	if err := sink.Finalize(); err != nil {
		return nil, fmt.Errorf("finalizing archive: %w", err)
	}
	logger.Info("archive assembled",
		"entries", len(result.Entries),
		"bytes", result.Bytes,
		"ticket_present", result.TicketPresent)
	return result, nil
}

// fetchTicket returns the raw ticket, or nil when it cannot be fetched.
// Ticket failures never fail assembly.
func (prepared *Prepared) fetchTicket(ctx context.Context) []byte {
	path := TicketPath(prepared.Request.ID)
	ticket, err := prepared.assembler.Source.Fetch(ctx, path)
	if err != nil {
		prepared.logger.Warn("ticket unavailable, continuing without it", "path", path, "error", err)
		return nil
	}
	if len(ticket) == 0 {
		prepared.logger.Warn("ticket is empty, continuing without it", "path", path)
		return nil
	}
	return ticket
}

func (prepared *Prepared) writeChunk(ctx context.Context, sink archive.Sink, chunk title.ContentChunk) (Entry, error) {
	request := prepared.Request
	path := ContentPath(request.ID, chunk)
	chunkError := func(err error) error {
		return &ChunkError{ID: chunk.ID, Index: chunk.Index, Path: path, Err: err}
	}

	if chunk.Size > math.MaxInt64 {
		return Entry{}, chunkError(fmt.Errorf("%w: declared size %d is not addressable", title.ErrMalformedHeader, chunk.Size))
	}
	size := int64(chunk.Size)

	body, err := prepared.assembler.Source.FetchStream(ctx, path)
	if err != nil {
		return Entry{}, chunkError(classifyContent(err))
	}
	defer body.Close()

	name := ContentEntryName(request.ID, chunk)
	writer, err := sink.OpenEntry(name, size)
	if err != nil {
		return Entry{}, err
	}

	hasher := blake3.New()
	source := &readTracker{reader: body}
	copied, err := io.CopyN(io.MultiWriter(writer, hasher), source, size)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return Entry{}, fmt.Errorf("assembly cancelled during content %08x: %w", chunk.ID, ctx.Err())
		case source.err == nil:
			return Entry{}, fmt.Errorf("writing entry %s: %w", name, err)
		case errors.Is(source.err, io.EOF):
			return Entry{}, chunkError(&LengthError{Declared: chunk.Size, Received: uint64(copied)})
		default:
			return Entry{}, chunkError(classifyContent(source.err))
		}
	}

	// The stream must end exactly at the declared size.
	var extra [1]byte
	if n, _ := io.ReadFull(body, extra[:]); n > 0 {
		return Entry{}, chunkError(&LengthError{Declared: chunk.Size, Received: chunk.Size + uint64(n)})
	}

	if err := sink.CloseEntry(); err != nil {
		return Entry{}, err
	}
	prepared.logger.Debug("content written", "content_id", chunk.IDHex(), "index", chunk.Index, "bytes", size)
	return Entry{
		Name:   name,
		Kind:   EntryContent,
		Size:   size,
		Digest: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

func writeBytes(sink archive.Sink, name string, kind EntryKind, data []byte) (Entry, error) {
	writer, err := sink.OpenEntry(name, int64(len(data)))
	if err != nil {
		return Entry{}, err
	}
	if _, err := writer.Write(data); err != nil {
		return Entry{}, fmt.Errorf("writing entry %s: %w", name, err)
	}
	if err := sink.CloseEntry(); err != nil {
		return Entry{}, err
	}
	digest := blake3.Sum256(data)
	return Entry{
		Name:   name,
		Kind:   kind,
		Size:   int64(len(data)),
		Digest: hex.EncodeToString(digest[:]),
	}, nil
}

func (result *Result) add(entry Entry) {
	result.Entries = append(result.Entries, entry)
	result.Bytes += entry.Size
}

// fetchMetadata fetches and decodes the metadata record for request.
func fetchMetadata(ctx context.Context, source Source, layout title.Layout, request Request) ([]byte, *title.Metadata, error) {
	path := MetadataPath(request.ID, request.Version)
	raw, err := source.Fetch(ctx, path)
	if err != nil {
		return nil, nil, classifyFetch(err, path)
	}
	metadata, err := layout.DecodeMetadata(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return raw, metadata, nil
}

func (assembler *Assembler) layout() title.Layout {
	if assembler.Layout == (title.Layout{}) {
		return title.DefaultLayout
	}
	return assembler.Layout
}

func (assembler *Assembler) logger() *slog.Logger {
	if assembler.Logger == nil {
		return slog.Default()
	}
	return assembler.Logger
}

func (assembler *Assembler) recorder() Recorder {
	if assembler.Metrics == nil {
		return nopRecorder{}
	}
	return assembler.Metrics
}

// readTracker remembers the first read error so that a failed copy can
// be attributed to the source rather than the sink.
type readTracker struct {
	reader io.Reader
	err    error
}

func (tracker *readTracker) Read(p []byte) (int, error) {
	n, err := tracker.reader.Read(p)
	if err != nil && tracker.err == nil {
		tracker.err = err
	}
	return n, err
}
