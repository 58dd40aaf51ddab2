// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

// Titlepack is the operator CLI. It drives the same decoding and
// assembly code as titlepack-relay from a terminal:
//
//	titlepack fetch <tid>      download a title into an archive file
//	titlepack info <tid>       print the decoded metadata and ticket
//	titlepack decode <file>    decode local metadata and ticket files
//	titlepack tid <tid>...     decompose title identifiers
//
// Commands that reach the content server read the same configuration
// as the relay, from --config or TITLEPACK_CONFIG.
package main
