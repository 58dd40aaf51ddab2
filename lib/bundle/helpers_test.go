// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package bundle_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/titlepack/titlepack/lib/archive"
	"github.com/titlepack/titlepack/lib/bundle"
	"github.com/titlepack/titlepack/lib/cdn"
	"github.com/titlepack/titlepack/lib/title"
	"github.com/titlepack/titlepack/lib/title/titletest"
)

const testTitleID = "0004000000055D00"

// testEntryPrefix is testTitleID as it appears in archive names.
const testEntryPrefix = "0004000000055d00"

func mustIdentifier(t *testing.T, value string) title.Identifier {
	t.Helper()
	id, err := title.ParseIdentifier(value)
	if err != nil {
		t.Fatalf("ParseIdentifier(%q): %v", value, err)
	}
	return id
}

// object is one path served by fakeSource.
type object struct {
	data []byte
	err  error

	// streamErr, when set, is returned by Read after data is consumed
	// instead of io.EOF.
	streamErr error
}

// fakeSource serves objects from memory and records every request.
type fakeSource struct {
	mu        sync.Mutex
	objects   map[string]object
	requested []string

	// onStream is called before each FetchStream returns.
	onStream func(path string)
}

func newFakeSource() *fakeSource {
	return &fakeSource{objects: make(map[string]object)}
}

func (source *fakeSource) put(path string, data []byte) {
	source.objects[path] = object{data: data}
}

func (source *fakeSource) fail(path string, err error) {
	source.objects[path] = object{err: err}
}

func (source *fakeSource) lookup(path string) (object, error) {
	source.mu.Lock()
	defer source.mu.Unlock()
	source.requested = append(source.requested, path)
	found, ok := source.objects[path]
	if !ok {
		return object{}, fmt.Errorf("%w: %s", cdn.ErrNotFound, path)
	}
	if found.err != nil {
		return object{}, found.err
	}
	return found, nil
}

func (source *fakeSource) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	found, err := source.lookup(path)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(found.data), nil
}

func (source *fakeSource) FetchStream(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	found, err := source.lookup(path)
	if err != nil {
		return nil, err
	}
	if source.onStream != nil {
		source.onStream(path)
	}
	var reader io.Reader = bytes.NewReader(found.data)
	if found.streamErr != nil {
		reader = io.MultiReader(reader, errorReader{found.streamErr})
	}
	return &contextReader{ctx: ctx, reader: reader}, nil
}

func (source *fakeSource) requests() []string {
	source.mu.Lock()
	defer source.mu.Unlock()
	return append([]string(nil), source.requested...)
}

type errorReader struct{ err error }

func (r errorReader) Read([]byte) (int, error) { return 0, r.err }

// contextReader fails reads once ctx is done, like an HTTP body bound
// to a request context.
type contextReader struct {
	ctx    context.Context
	reader io.Reader
	closed bool
}

func (r *contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.reader.Read(p)
}

func (r *contextReader) Close() error {
	r.closed = true
	return nil
}

// recordingSink records the calls made on it and keeps entry content.
type recordingSink struct {
	events  []string
	entries map[string]*bytes.Buffer
	open    string

	// failOpen makes OpenEntry fail for the named entry.
	failOpen string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{entries: make(map[string]*bytes.Buffer)}
}

func (sink *recordingSink) OpenEntry(name string, size int64) (io.Writer, error) {
	if name == sink.failOpen {
		return nil, errors.New("client went away")
	}
	sink.events = append(sink.events, fmt.Sprintf("open %s %d", name, size))
	sink.open = name
	buffer := &bytes.Buffer{}
	sink.entries[name] = buffer
	return buffer, nil
}

func (sink *recordingSink) CloseEntry() error {
	sink.events = append(sink.events, "close "+sink.open)
	sink.open = ""
	return nil
}

func (sink *recordingSink) Finalize() error {
	sink.events = append(sink.events, "finalize")
	return nil
}

func (sink *recordingSink) Abort() error {
	sink.events = append(sink.events, "abort")
	return nil
}

func (sink *recordingSink) last() string {
	if len(sink.events) == 0 {
		return ""
	}
	return sink.events[len(sink.events)-1]
}

func (sink *recordingSink) contains(event string) bool {
	for _, recorded := range sink.events {
		if recorded == event {
			return true
		}
	}
	return false
}

var _ archive.Sink = (*recordingSink)(nil)

// countingRecorder implements bundle.Recorder.
type countingRecorder struct {
	entries        map[bundle.EntryKind]int
	bytes          int64
	ticketsMissing int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{entries: make(map[bundle.EntryKind]int)}
}

func (recorder *countingRecorder) EntryWritten(kind bundle.EntryKind, bytes int64) {
	recorder.entries[kind]++
	recorder.bytes += bytes
}

func (recorder *countingRecorder) TicketMissing() {
	recorder.ticketsMissing++
}

// fixture is a title with three contents served from a fakeSource.
type fixture struct {
	id       title.Identifier
	source   *fakeSource
	metadata []byte
	ticket   []byte
	chunks   []titletest.Chunk
	contents map[uint32][]byte
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	id := mustIdentifier(t, testTitleID)

	// Content ids deliberately out of numeric order: table order wins.
	contents := map[uint32][]byte{
		0x00000005: bytes.Repeat([]byte{0x11}, 4096),
		0x00000001: bytes.Repeat([]byte("abc"), 10000),
		0x0000000A: {0x42},
	}
	chunks := []titletest.Chunk{
		{ID: 0x00000005, Index: 0, Type: title.ContentTypeEncrypted, Size: 4096},
		{ID: 0x00000001, Index: 1, Type: title.ContentTypeEncrypted | title.ContentTypeOptional, Size: 30000},
		{ID: 0x0000000A, Index: 2, Type: title.ContentTypeEncrypted, Size: 1},
	}
	for i := range chunks {
		chunks[i].Hash = bytes.Repeat([]byte{byte(i + 1)}, 32)
	}

	metadata := titletest.Metadata{
		Issuer:       "Root-CA00000003-CP0000000b",
		TitleID:      id.Uint64(),
		TitleVersion: 1040,
		InfoRecords:  64,
		Chunks:       chunks,
		Trailer:      bytes.Repeat([]byte{0xEE}, 0x700),
	}.Bytes()
	ticket := titletest.Ticket{
		Issuer:   "Root-CA00000003-XS0000000c",
		TitleKey: [16]byte{0xDE, 0xAD, 0xBE, 0xEF},
		TicketID: 0x0004A1B2C3D4E5F6,
		TitleID:  id.Uint64(),
	}.Bytes()

	source := newFakeSource()
	source.put(bundle.MetadataPath(id, bundle.Latest), metadata)
	source.put(bundle.TicketPath(id), ticket)
	for _, chunk := range chunks {
		source.put(fmt.Sprintf("%s/%08x", id.Lower(), chunk.ID), contents[chunk.ID])
	}

	return &fixture{
		id:       id,
		source:   source,
		metadata: metadata,
		ticket:   ticket,
		chunks:   chunks,
		contents: contents,
	}
}

func (f *fixture) contentPath(i int) string {
	return fmt.Sprintf("%s/%08x", f.id.Lower(), f.chunks[i].ID)
}

func (f *fixture) contentEntry(i int) string {
	return fmt.Sprintf("%s-%08x.app", f.id.Lower(), f.chunks[i].ID)
}
