// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive writes streaming archive containers one entry at a
// time.
//
// A Sink accepts a sequence of entries whose sizes are declared before
// their bytes arrive. Callers follow a strict protocol:
//
//	writer, err := sink.OpenEntry(name, size)
//	io.CopyN(writer, source, size)
//	sink.CloseEntry()
//	... more entries ...
//	sink.Finalize()   // or sink.Abort() on any failure
//
// Only one entry may be open at a time, and entry bytes go straight
// through to the underlying writer, so memory use is independent of
// entry size. Finalize writes the container trailer (zip central
// directory, tar end blocks, compressor frame end); Abort releases
// resources without writing a trailer, leaving the output visibly
// incomplete. Plain tar gets one corrupt header block on Abort, since
// a tar stream cut at an entry boundary otherwise reads as complete.
//
// Four formats are supported: zip (stored or deflated via
// klauspost/compress/zip), plain tar, tar compressed with zstd, and tar
// compressed with lz4.
package archive
