// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"fmt"
	"strconv"
	"strings"
)

// Version selects a specific title version. The zero Version means
// "latest".
type Version struct {
	number uint16
	set    bool
}

// Latest requests whichever version the source serves by default.
var Latest = Version{}

// VersionOf returns a Version selecting number.
func VersionOf(number uint16) Version {
	return Version{number: number, set: true}
}

// ParseVersion parses a decimal title version. The empty string parses
// as Latest. Signs, hex, and values above 65535 fail with
// ErrInvalidVersion.
func ParseVersion(s string) (Version, error) {
	if s == "" {
		return Latest, nil
	}
	if strings.TrimLeft(s, "0123456789") != "" {
		return Version{}, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidVersion, s)
	}
	number, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q is out of range", ErrInvalidVersion, s)
	}
	return VersionOf(uint16(number)), nil
}

// IsLatest reports whether v selects no specific version.
func (v Version) IsLatest() bool {
	return !v.set
}

// Number returns the selected version and whether one is selected.
func (v Version) Number() (uint16, bool) {
	return v.number, v.set
}

// String returns the decimal version, or "latest".
func (v Version) String() string {
	if !v.set {
		return "latest"
	}
	return strconv.FormatUint(uint64(v.number), 10)
}

// MarshalText encodes Latest as an empty string.
func (v Version) MarshalText() ([]byte, error) {
	if !v.set {
		return []byte{}, nil
	}
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler via ParseVersion.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
