// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"fmt"

	"github.com/titlepack/titlepack/lib/archive"
	"github.com/titlepack/titlepack/lib/title"
)

// Source paths are relative to the CDN base URL. Paths and archive
// names both use the lowercase identifier.

// MetadataPath returns "<tid>/tmd", or "<tid>/tmd.<version>" when a
// version is selected.
func MetadataPath(id title.Identifier, version Version) string {
	if number, ok := version.Number(); ok {
		return fmt.Sprintf("%s/tmd.%d", id.Lower(), number)
	}
	return id.Lower() + "/tmd"
}

// TicketPath returns "<tid>/cetk".
func TicketPath(id title.Identifier) string {
	return id.Lower() + "/cetk"
}

// ContentPath returns "<tid>/<content id as 8 hex digits>".
func ContentPath(id title.Identifier, chunk title.ContentChunk) string {
	return fmt.Sprintf("%s/%08x", id.Lower(), chunk.ID)
}

// MetadataEntryName returns the archive entry name of the metadata
// record.
func MetadataEntryName(id title.Identifier) string {
	return id.Lower() + "-tmd"
}

// TicketEntryName returns the archive entry name of the ticket.
func TicketEntryName(id title.Identifier) string {
	return id.Lower() + "-cetk"
}

// ContentEntryName returns "<tid>-<content id>.app".
func ContentEntryName(id title.Identifier, chunk title.ContentChunk) string {
	return fmt.Sprintf("%s-%08x.app", id.Lower(), chunk.ID)
}

// ArchiveFileName returns "<tid>.<ext>" or "<tid>-v<version>.<ext>".
func ArchiveFileName(id title.Identifier, version Version, format archive.Format) string {
	if number, ok := version.Number(); ok {
		return fmt.Sprintf("%s-v%d.%s", id.Lower(), number, format.Extension())
	}
	return fmt.Sprintf("%s.%s", id.Lower(), format.Extension())
}
