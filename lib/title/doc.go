// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

// Package title decodes the binary records a title CDN publishes for
// every installable title: the title metadata record (TMD), which lists
// the content blobs that make up the title, and the ticket record
// (CETK), which carries the title key and issuance fields.
//
// Both records start with a variable-length signature block whose size
// is selected by a 4-byte big-endian tag ([ResolveSignature]). The fixed
// header follows the signature block; every offset in this package is
// relative to that header origin. All multi-byte integers are big-endian
// and are read through [Fields].
//
// Decoders are pure functions over an immutable buffer. They never
// verify signatures and never decrypt anything; the title key is
// returned as opaque bytes.
//
// Record geometry that differs between platform generations (digest
// width, fixed header size, number of content-info records) is carried
// by [Layout]. [DecodeMetadata] uses [DefaultLayout].
//
// [ParseIdentifier] decomposes a 16-hex-digit title identifier into its
// category, unique id, and variant fields using static lookup tables.
package title
