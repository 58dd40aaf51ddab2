// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/titlepack/titlepack/lib/clock"
)

var testTime = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

type testEntry struct {
	name    string
	content []byte
}

func sampleEntries() []testEntry {
	return []testEntry{
		{"0004000000055d00-tmd", bytes.Repeat([]byte{0xAB}, 0xB04)},
		{"0004000000055d00-cetk", bytes.Repeat([]byte{0xCD}, 0x350)},
		{"0004000000055d00-00000000.app", bytes.Repeat([]byte("content!"), 20000)},
		{"0004000000055d00-00000001.app", nil},
	}
}

func writeArchive(t *testing.T, format Format, options Options, entries []testEntry) []byte {
	t.Helper()
	var output bytes.Buffer
	sink, err := New(format, &output, options)
	if err != nil {
		t.Fatalf("New(%s): %v", format, err)
	}
	for _, entry := range entries {
		writer, err := sink.OpenEntry(entry.name, int64(len(entry.content)))
		if err != nil {
			t.Fatalf("OpenEntry(%q): %v", entry.name, err)
		}
		// Copy in uneven pieces to exercise the pass-through path.
		reader := struct{ io.Reader }{bytes.NewReader(entry.content)}
		if _, err := io.CopyBuffer(writer, reader, make([]byte, 1000)); err != nil {
			t.Fatalf("writing %q: %v", entry.name, err)
		}
		if err := sink.CloseEntry(); err != nil {
			t.Fatalf("CloseEntry(%q): %v", entry.name, err)
		}
	}
	if err := sink.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return output.Bytes()
}

func readZip(t *testing.T, data []byte) ([]testEntry, []time.Time) {
	t.Helper()
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	var entries []testEntry
	var times []time.Time
	for _, file := range reader.File {
		opened, err := file.Open()
		if err != nil {
			t.Fatalf("opening %q: %v", file.Name, err)
		}
		content, err := io.ReadAll(opened)
		opened.Close()
		if err != nil {
			t.Fatalf("reading %q: %v", file.Name, err)
		}
		entries = append(entries, testEntry{file.Name, content})
		times = append(times, file.Modified)
	}
	return entries, times
}

func readTar(t *testing.T, source io.Reader) ([]testEntry, []time.Time) {
	t.Helper()
	reader := tar.NewReader(source)
	var entries []testEntry
	var times []time.Time
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar Next: %v", err)
		}
		content, err := io.ReadAll(reader)
		if err != nil {
			t.Fatalf("reading %q: %v", header.Name, err)
		}
		entries = append(entries, testEntry{header.Name, content})
		times = append(times, header.ModTime)
	}
	return entries, times
}

func readArchive(t *testing.T, format Format, data []byte) ([]testEntry, []time.Time) {
	t.Helper()
	switch format {
	case FormatZip:
		return readZip(t, data)
	case FormatTar:
		return readTar(t, bytes.NewReader(data))
	case FormatTarZstd:
		decoder, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("zstd.NewReader: %v", err)
		}
		defer decoder.Close()
		return readTar(t, decoder)
	case FormatTarLZ4:
		return readTar(t, lz4.NewReader(bytes.NewReader(data)))
	}
	t.Fatalf("no reader for %s", format)
	return nil, nil
}

func TestSinkRoundTrip(t *testing.T) {
	type variant struct {
		name    string
		format  Format
		options Options
	}
	variants := []variant{
		{"zip store", FormatZip, Options{ZipMethod: ZipStore}},
		{"zip deflate", FormatZip, Options{ZipMethod: ZipDeflate}},
		{"tar", FormatTar, Options{}},
		{"tar.zst", FormatTarZstd, Options{}},
		{"tar.lz4", FormatTarLZ4, Options{}},
	}
	for _, test := range variants {
		t.Run(test.name, func(t *testing.T) {
			test.options.Clock = clock.Fake(testTime)
			want := sampleEntries()
			data := writeArchive(t, test.format, test.options, want)

			got, times := readArchive(t, test.format, data)
			if len(got) != len(want) {
				t.Fatalf("read %d entries, want %d", len(got), len(want))
			}
			for i := range want {
				if got[i].name != want[i].name {
					t.Errorf("entry %d name = %q, want %q", i, got[i].name, want[i].name)
				}
				if !bytes.Equal(got[i].content, want[i].content) {
					t.Errorf("entry %q content differs (%d bytes, want %d)", want[i].name, len(got[i].content), len(want[i].content))
				}
				if !times[i].Equal(testTime) {
					t.Errorf("entry %q modified %v, want %v", want[i].name, times[i], testTime)
				}
			}
		})
	}
}

func TestZipDeflateCompresses(t *testing.T) {
	entries := []testEntry{{"repetitive", bytes.Repeat([]byte("a"), 1<<16)}}
	stored := writeArchive(t, FormatZip, Options{ZipMethod: ZipStore}, entries)
	deflated := writeArchive(t, FormatZip, Options{ZipMethod: ZipDeflate}, entries)
	if len(deflated) >= len(stored) {
		t.Errorf("deflated archive is %d bytes, stored is %d", len(deflated), len(stored))
	}
}

func TestSinkProtocolErrors(t *testing.T) {
	for _, format := range Formats {
		t.Run(format.String(), func(t *testing.T) {
			sink, err := New(format, io.Discard, Options{})
			if err != nil {
				t.Fatal(err)
			}

			if err := sink.CloseEntry(); !errors.Is(err, ErrNoEntry) {
				t.Errorf("CloseEntry without entry: %v, want ErrNoEntry", err)
			}
			if _, err := sink.OpenEntry("", 1); err == nil {
				t.Error("OpenEntry with empty name succeeded")
			}
			if _, err := sink.OpenEntry("negative", -1); err == nil {
				t.Error("OpenEntry with negative size succeeded")
			}

			writer, err := sink.OpenEntry("first", 4)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := sink.OpenEntry("second", 1); !errors.Is(err, ErrEntryOpen) {
				t.Errorf("nested OpenEntry: %v, want ErrEntryOpen", err)
			}
			if err := sink.Finalize(); !errors.Is(err, ErrEntryOpen) {
				t.Errorf("Finalize with open entry: %v, want ErrEntryOpen", err)
			}

			if _, err := writer.Write([]byte("ab")); err != nil {
				t.Fatal(err)
			}
			if err := sink.CloseEntry(); !errors.Is(err, ErrSizeMismatch) {
				t.Errorf("CloseEntry of short entry: %v, want ErrSizeMismatch", err)
			}

			n, err := writer.Write([]byte("cdef"))
			if !errors.Is(err, ErrSizeMismatch) {
				t.Errorf("overflowing Write: %v, want ErrSizeMismatch", err)
			}
			if n != 2 {
				t.Errorf("overflowing Write wrote %d bytes, want 2", n)
			}
			if err := sink.CloseEntry(); err != nil {
				t.Errorf("CloseEntry after filling entry: %v", err)
			}

			if err := sink.Abort(); err != nil {
				t.Fatalf("Abort: %v", err)
			}
			if err := sink.Abort(); err != nil {
				t.Errorf("second Abort: %v", err)
			}
			if _, err := sink.OpenEntry("late", 0); !errors.Is(err, ErrClosed) {
				t.Errorf("OpenEntry after Abort: %v, want ErrClosed", err)
			}
			if err := sink.Finalize(); !errors.Is(err, ErrClosed) {
				t.Errorf("Finalize after Abort: %v, want ErrClosed", err)
			}
			if _, err := writer.Write([]byte("x")); !errors.Is(err, ErrNoEntry) {
				t.Errorf("Write after Abort: %v, want ErrNoEntry", err)
			}
		})
	}
}

func TestFinalizeTwice(t *testing.T) {
	sink, err := New(FormatTar, io.Discard, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Finalize(); err != nil {
		t.Fatalf("Finalize of empty archive: %v", err)
	}
	if err := sink.Finalize(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Finalize: %v, want ErrClosed", err)
	}
	if err := sink.Abort(); err != nil {
		t.Errorf("Abort after Finalize: %v", err)
	}
}

func TestAbortedZipIsUnreadable(t *testing.T) {
	var output bytes.Buffer
	sink, err := New(FormatZip, &output, Options{})
	if err != nil {
		t.Fatal(err)
	}
	writer, err := sink.OpenEntry("partial", 8)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := writer.Write([]byte("abcd")); err != nil {
		t.Fatal(err)
	}
	if err := sink.Abort(); err != nil {
		t.Fatal(err)
	}
	if _, err := zip.NewReader(bytes.NewReader(output.Bytes()), int64(output.Len())); err == nil {
		t.Fatal("aborted zip opened without error")
	}
}

func TestAbortedPlainTarIsIncomplete(t *testing.T) {
	var output bytes.Buffer
	sink, err := New(FormatTar, &output, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range []testEntry{
		{"0004000000055d00-tmd", bytes.Repeat([]byte{0xAB}, 0xB04)},
		{"0004000000055d00-00000000.app", []byte("first content")},
	} {
		writer, err := sink.OpenEntry(entry.name, int64(len(entry.content)))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := writer.Write(entry.content); err != nil {
			t.Fatal(err)
		}
		if err := sink.CloseEntry(); err != nil {
			t.Fatal(err)
		}
	}
	if err := sink.Abort(); err != nil {
		t.Fatalf("Abort: %v", err)
	}

	reader := tar.NewReader(bytes.NewReader(output.Bytes()))
	var names []string
	for {
		header, err := reader.Next()
		if err == io.EOF {
			t.Fatalf("aborted tar read back as a complete archive with entries %q", names)
		}
		if err != nil {
			break
		}
		names = append(names, header.Name)
	}
	if len(names) != 2 {
		t.Errorf("entries before the abort marker = %q, want both written entries", names)
	}
}

func TestAbortedCompressedTarIsIncomplete(t *testing.T) {
	for _, format := range []Format{FormatTarZstd, FormatTarLZ4} {
		t.Run(format.String(), func(t *testing.T) {
			var output bytes.Buffer
			sink, err := New(format, &output, Options{})
			if err != nil {
				t.Fatal(err)
			}
			content := strings.Repeat("payload ", 4096)
			writer, err := sink.OpenEntry("complete", int64(len(content)))
			if err != nil {
				t.Fatal(err)
			}
			io.WriteString(writer, content)
			if err := sink.CloseEntry(); err != nil {
				t.Fatal(err)
			}
			if err := sink.Abort(); err != nil {
				t.Fatalf("Abort: %v", err)
			}

			// Nothing was flushed to the output after the abort, so the
			// stream cannot hold the tar trailer.
			written := output.Len()
			var decoded []byte
			switch format {
			case FormatTarZstd:
				decoder, err := zstd.NewReader(bytes.NewReader(output.Bytes()))
				if err != nil {
					t.Fatal(err)
				}
				decoded, _ = io.ReadAll(decoder)
				decoder.Close()
			case FormatTarLZ4:
				decoded, _ = io.ReadAll(lz4.NewReader(bytes.NewReader(output.Bytes())))
			}
			if len(decoded) >= len(content)+3*512 {
				t.Errorf("aborted %s stream (%d bytes) decoded to a complete archive (%d bytes)", format, written, len(decoded))
			}
		})
	}
}

type failingWriter struct {
	err error
}

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestUnderlyingWriteFailure(t *testing.T) {
	broken := errors.New("connection reset")
	sink, err := New(FormatTar, failingWriter{broken}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = sink.OpenEntry("entry", 4)
	if !errors.Is(err, broken) {
		t.Fatalf("OpenEntry over a broken writer: %v, want %v", err, broken)
	}
	if err := sink.Abort(); err != nil {
		t.Errorf("Abort after failure: %v", err)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Format(77), io.Discard, Options{}); err == nil {
		t.Error("New with unknown format succeeded")
	}
	if _, err := New(FormatZip, io.Discard, Options{ZipMethod: ZipMethod(9)}); err == nil {
		t.Error("New with unknown zip method succeeded")
	}
}
