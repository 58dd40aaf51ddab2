// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

// Package bundle turns a title identifier into an archive of the
// title's metadata, ticket, and content, and into a structured
// description of the title.
//
// The Assembler runs one sequential pipeline per request:
//
//  1. fetch and decode the title metadata (Prepare)
//  2. write the metadata entry
//  3. fetch the ticket and write it if present (failures only log)
//  4. for each content chunk in table order, stream it from the source
//     straight into its archive entry
//  5. finalize the archive, or abort it on the first failure
//
// Only one content stream is open at a time and no content blob is
// held in memory. Splitting Prepare from Write lets an HTTP handler
// reject unknown titles and malformed metadata with a proper status
// before any response bytes are committed.
//
// The Describer performs the fetch-and-decode half of the pipeline and
// returns a Description suitable for JSON or CBOR encoding.
package bundle
