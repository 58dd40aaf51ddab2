// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/titlepack/titlepack/lib/clock"
)

var (
	// ErrEntryOpen is returned by OpenEntry while another entry is
	// still open.
	ErrEntryOpen = errors.New("archive: an entry is already open")

	// ErrNoEntry is returned by CloseEntry when no entry is open.
	ErrNoEntry = errors.New("archive: no entry is open")

	// ErrClosed is returned by every operation after Finalize or Abort.
	ErrClosed = errors.New("archive: sink is closed")

	// ErrSizeMismatch is returned when an entry receives more or fewer
	// bytes than its declared size.
	ErrSizeMismatch = errors.New("archive: entry size mismatch")
)

// Sink receives archive entries in order. Implementations are not safe
// for concurrent use.
type Sink interface {
	// OpenEntry starts an entry of exactly size bytes and returns the
	// writer for its content.
	OpenEntry(name string, size int64) (io.Writer, error)

	// CloseEntry completes the open entry. It fails with
	// ErrSizeMismatch if fewer than the declared bytes were written.
	CloseEntry() error

	// Finalize writes the container trailer. No entry may be open.
	Finalize() error

	// Abort releases resources without completing the container. It
	// is safe to call at any point, including after another method
	// failed, and is a no-op after Finalize or a previous Abort.
	Abort() error
}

// Options configures a Sink.
type Options struct {
	// ZipMethod applies to FormatZip. Defaults to ZipStore.
	ZipMethod ZipMethod

	// Clock stamps entry modification times. Defaults to clock.Real().
	Clock clock.Clock
}

// New returns a Sink writing format to w. The sink never closes w.
func New(format Format, w io.Writer, options Options) (Sink, error) {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}

	var (
		backend container
		err     error
	)
	switch format {
	case FormatZip:
		backend, err = newZipContainer(w, options.ZipMethod)
	case FormatTar, FormatTarZstd, FormatTarLZ4:
		backend, err = newTarContainer(w, format)
	default:
		err = fmt.Errorf("archive: unsupported format %s", format)
	}
	if err != nil {
		return nil, err
	}
	return &sink{backend: backend, clock: options.Clock}, nil
}

// container is the per-format half of a Sink. The sink enforces the
// entry protocol; containers only encode.
type container interface {
	begin(name string, size int64, modified time.Time) (io.Writer, error)
	end() error
	finish() error
	discard() error
}

type sinkState uint8

const (
	stateIdle sinkState = iota
	stateEntry
	stateClosed
)

type sink struct {
	backend container
	clock   clock.Clock
	state   sinkState

	// Open entry bookkeeping.
	name      string
	remaining int64
	content   io.Writer
}

func (s *sink) OpenEntry(name string, size int64) (io.Writer, error) {
	switch s.state {
	case stateEntry:
		return nil, fmt.Errorf("%w: cannot open %q while %q is open", ErrEntryOpen, name, s.name)
	case stateClosed:
		return nil, ErrClosed
	}
	if name == "" {
		return nil, errors.New("archive: entry name is empty")
	}
	if size < 0 {
		return nil, fmt.Errorf("archive: entry %q has negative size %d", name, size)
	}

	content, err := s.backend.begin(name, size, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("archive: opening entry %q: %w", name, err)
	}
	s.state = stateEntry
	s.name = name
	s.remaining = size
	s.content = content
	return &entryWriter{sink: s}, nil
}

func (s *sink) CloseEntry() error {
	switch s.state {
	case stateIdle:
		return ErrNoEntry
	case stateClosed:
		return ErrClosed
	}
	if s.remaining != 0 {
		return fmt.Errorf("%w: entry %q is %d bytes short", ErrSizeMismatch, s.name, s.remaining)
	}
	if err := s.backend.end(); err != nil {
		return fmt.Errorf("archive: closing entry %q: %w", s.name, err)
	}
	s.state = stateIdle
	s.name = ""
	s.content = nil
	return nil
}

func (s *sink) Finalize() error {
	switch s.state {
	case stateEntry:
		return fmt.Errorf("%w: cannot finalize while %q is open", ErrEntryOpen, s.name)
	case stateClosed:
		return ErrClosed
	}
	s.state = stateClosed
	if err := s.backend.finish(); err != nil {
		return fmt.Errorf("archive: finalizing: %w", err)
	}
	return nil
}

func (s *sink) Abort() error {
	if s.state == stateClosed {
		return nil
	}
	s.state = stateClosed
	s.content = nil
	return s.backend.discard()
}

// entryWriter bounds writes to the open entry's declared size.
type entryWriter struct {
	sink *sink
}

func (w *entryWriter) Write(p []byte) (int, error) {
	s := w.sink
	if s.state != stateEntry || s.content == nil {
		return 0, ErrNoEntry
	}
	var overflow bool
	if int64(len(p)) > s.remaining {
		p = p[:s.remaining]
		overflow = true
	}
	n, err := s.content.Write(p)
	s.remaining -= int64(n)
	if err != nil {
		return n, err
	}
	if overflow {
		return n, fmt.Errorf("%w: entry %q exceeds its declared size", ErrSizeMismatch, s.name)
	}
	return n, nil
}
