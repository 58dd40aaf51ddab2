// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// tarContainer writes a tar stream, optionally through a compressor.
type tarContainer struct {
	writer     *tar.Writer
	compressor compressor

	// output is the uncompressed destination for FormatTar, where
	// discard must mark the stream as broken itself.
	output io.Writer
}

// tarBlockSize is the tar header and padding unit.
const tarBlockSize = 512

// compressor is the part of the zstd and lz4 stream writers that the
// tar container drives.
type compressor interface {
	io.WriteCloser
	// abandon drops buffered state without writing it.
	abandon() error
}

func newTarContainer(w io.Writer, format Format) (*tarContainer, error) {
	container := &tarContainer{}
	switch format {
	case FormatTar:
		container.writer = tar.NewWriter(w)
		container.output = w
	case FormatTarZstd:
		encoder, err := zstd.NewWriter(w,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		container.compressor = zstdCompressor{encoder}
	case FormatTarLZ4:
		encoder := lz4.NewWriter(w)
		if err := encoder.Apply(
			lz4.ConcurrencyOption(1),
			lz4.CompressionLevelOption(lz4.Fast),
		); err != nil {
			return nil, fmt.Errorf("configuring lz4 encoder: %w", err)
		}
		container.compressor = lz4Compressor{encoder}
	default:
		return nil, fmt.Errorf("archive: %s is not a tar format", format)
	}
	if container.compressor != nil {
		container.writer = tar.NewWriter(container.compressor)
	}
	return container, nil
}

func (c *tarContainer) begin(name string, size int64, modified time.Time) (io.Writer, error) {
	header := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Size:     size,
		Mode:     0o644,
		ModTime:  modified.Truncate(time.Second),
	}
	if err := c.writer.WriteHeader(header); err != nil {
		return nil, err
	}
	return c.writer, nil
}

// end pads the entry to the tar block size.
func (c *tarContainer) end() error {
	return c.writer.Flush()
}

func (c *tarContainer) finish() error {
	if err := c.writer.Close(); err != nil {
		if c.compressor != nil {
			c.compressor.abandon()
		}
		return err
	}
	if c.compressor != nil {
		return c.compressor.Close()
	}
	return nil
}

// discard leaves compressed streams without their frame trailer. A
// plain tar stream already ends on an entry boundary, so it gets a
// header block that fails its checksum and readers stop with an error
// instead of seeing a shorter archive. If that write fails the output
// is already cut short.
func (c *tarContainer) discard() error {
	if c.compressor != nil {
		return c.compressor.abandon()
	}
	c.output.Write(bytes.Repeat([]byte{0xFF}, tarBlockSize))
	return nil
}

type zstdCompressor struct {
	*zstd.Encoder
}

func (c zstdCompressor) abandon() error {
	c.Encoder.Reset(io.Discard)
	return c.Encoder.Close()
}

type lz4Compressor struct {
	*lz4.Writer
}

func (c lz4Compressor) abandon() error {
	c.Writer.Reset(io.Discard)
	return c.Writer.Close()
}
