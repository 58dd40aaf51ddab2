// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zip"
)

type zipContainer struct {
	writer *zip.Writer
	method uint16
}

func newZipContainer(w io.Writer, method ZipMethod) (*zipContainer, error) {
	container := &zipContainer{writer: zip.NewWriter(w)}
	switch method {
	case ZipStore:
		container.method = zip.Store
	case ZipDeflate:
		container.method = zip.Deflate
	default:
		return nil, fmt.Errorf("archive: unsupported zip method %s", method)
	}
	return container, nil
}

func (c *zipContainer) begin(name string, size int64, modified time.Time) (io.Writer, error) {
	header := &zip.FileHeader{
		Name:     name,
		Method:   c.method,
		Modified: modified,
	}
	header.SetMode(0o644)
	return c.writer.CreateHeader(header)
}

// end is a no-op: the zip writer completes an entry (data descriptor)
// when the next one starts or the archive closes.
func (c *zipContainer) end() error {
	return nil
}

func (c *zipContainer) finish() error {
	return c.writer.Close()
}

// discard leaves the central directory unwritten, so readers reject the
// output as incomplete.
func (c *zipContainer) discard() error {
	return nil
}
