// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for titlepack packages.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so that individual tests do not carry their own time.After
// calls. They are the only place tests wait on the wall clock; every
// other timing concern goes through lib/clock.
//
// Helpers call t.Fatalf on failure rather than returning errors.
package testutil
