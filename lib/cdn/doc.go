// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

// Package cdn is the HTTP client for the title content-distribution
// network. It fetches bytes by path relative to a configured base URL
// and reports three outcomes: the bytes, [ErrNotFound], or a
// [*TransportError] for everything else (network failures, unexpected
// statuses, oversized records).
//
// Small records (title metadata, tickets) are fetched whole with
// [Client.Fetch], bounded by Config.MaxRecordSize. Content blobs are
// fetched with [Client.FetchStream], which hands back the response body
// so the caller can stream it without buffering.
//
// Every request carries the caller's context: cancelling it aborts the
// request and any body read in progress.
//
// Transport settings, including the option to skip TLS verification
// that the upstream CDN's certificate chain has historically required,
// are explicit [Config] fields. Nothing is configured globally.
package cdn
