// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec encodes response values as JSON or CBOR.
//
// Description and result types carry `json` struct tags only.
// fxamacker/cbor reads `json` tags when `cbor` tags are absent, so one
// tag controls field naming and omission in both formats. Types that
// implement encoding.TextMarshaler (signature kinds, versions, archive
// formats) encode as text in both.
//
// The CBOR encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so
// a given value always produces identical bytes:
//
//	data, err := codec.Marshal(description)
//
// HTTP handlers pick the format from the Accept header:
//
//	encoding := codec.Negotiate(request.Header.Get("Accept"))
//	writer.Header().Set("Content-Type", encoding.ContentType())
//	codec.Encode(writer, encoding, description)
package codec
