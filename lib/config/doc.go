// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads titlepack configuration.
//
// Configuration comes from a single file named by the TITLEPACK_CONFIG
// environment variable (via [Load]) or a --config flag (via
// [LoadFile]). Files ending in .jsonc or .json are read as JSON with
// comments; everything else is YAML. Commands run with neither use
// [Default] and say so in their log output. There is no file
// discovery.
//
// The file may carry development, staging, and production sections
// that override base values when [Config].Environment matches.
// Production without an explicit section gets a default override that
// turns TLS verification back on.
//
// ${VAR} and ${VAR:-default} patterns are expanded in the listen
// address, CDN base URL, and user agent after loading. No other
// environment variable overrides a file value.
package config
