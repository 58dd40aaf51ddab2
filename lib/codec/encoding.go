// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"strings"
)

// Encoding is a response serialization format.
type Encoding uint8

const (
	JSON Encoding = iota
	CBOR
)

const (
	jsonContentType = "application/json"
	cborContentType = "application/cbor"
)

// ContentType returns the media type, with charset for JSON.
func (encoding Encoding) ContentType() string {
	if encoding == CBOR {
		return cborContentType
	}
	return jsonContentType + "; charset=utf-8"
}

func (encoding Encoding) String() string {
	if encoding == CBOR {
		return "cbor"
	}
	return "json"
}

// ParseEncoding parses "json" or "cbor".
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return JSON, nil
	case "cbor":
		return CBOR, nil
	default:
		return 0, fmt.Errorf("unknown encoding %q (want json or cbor)", name)
	}
}

// Negotiate picks CBOR when the Accept header lists application/cbor
// with a non-zero quality ahead of, or instead of, application/json.
// Everything else, including an empty header, gets JSON.
func Negotiate(accept string) Encoding {
	for _, part := range strings.Split(accept, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if params["q"] == "0" {
			continue
		}
		switch mediaType {
		case cborContentType:
			return CBOR
		case jsonContentType:
			return JSON
		}
	}
	return JSON
}

// Encode writes v to w in the given encoding. JSON output is
// newline-terminated.
func Encode(w io.Writer, encoding Encoding, v any) error {
	if encoding == CBOR {
		return NewEncoder(w).Encode(v)
	}
	return json.NewEncoder(w).Encode(v)
}
