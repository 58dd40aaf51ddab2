// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

// Titlepack-relay serves title archives and descriptions over HTTP.
//
// Endpoints:
//
//   - GET /download?tid=<16 hex>[&ver=<decimal>][&format=zip|tar|tar.zst|tar.lz4]
//     streams an archive holding the metadata record, the ticket when the
//     content server has one, and every content blob in table order.
//   - GET /info?tid=<16 hex>[&ver=<decimal>] returns the decoded metadata
//     and ticket as JSON, or CBOR when the Accept header asks for
//     application/cbor. Responses carry an ETag and honour If-None-Match.
//   - GET /metrics exposes Prometheus metrics.
//   - GET /healthz reports liveness.
//
// Validation and metadata failures are reported with a status code and a
// JSON {"error": "..."} body. Once an archive's headers are on the wire a
// failure can no longer change the status, so the relay aborts the
// connection instead and the client sees a truncated transfer.
//
// Configuration comes from --config or TITLEPACK_CONFIG (see lib/config);
// without either the built-in defaults apply.
package main
