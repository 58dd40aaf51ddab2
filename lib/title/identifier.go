// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package title

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[0-9a-fA-F]{16}$`)

// Category describes the title type encoded in the first eight digits.
type Category struct {
	Name        string `json:"category"`
	Description string `json:"description"`
}

// UnknownCategory is reported for type prefixes missing from the table.
var UnknownCategory = Category{Name: "Unknown", Description: "Unknown"}

var categories = map[string]Category{
	"00040000": {"Application", "Game/Application"},
	"00040001": {"System Application", "System Software"},
	"00040002": {"DLP Child", "Download Play Content"},
	"0004000E": {"Update", "System Update"},
	"00040010": {"System Data Archive", "Essential System Data"},
	"0004001B": {"Shared Data Archive", "Shared System Data"},
	"00040030": {"Applet", "System Applet"},
	"00040080": {"Firmware", "Firmware Package"},
	"0004008C": {"DLC", "Downloadable Content"},
	"000400DB": {"Demo", "Demo Version"},
}

// UnknownRegion is reported for region codes missing from the table.
const UnknownRegion = "World/Unknown"

var regions = map[uint8]string{
	0x00: "Japan",
	0x01: "North America",
	0x02: "Europe",
	0x03: "Australia",
	0x04: "China",
	0x05: "Korea",
	0x06: "Taiwan",
}

// Identifier is a decomposed title identifier. All string fields are
// uppercase hex.
type Identifier struct {
	Value    string   `json:"value"`
	Type     string   `json:"type"`
	Category Category `json:"category"`

	UniqueID        string `json:"unique_id"`
	UniqueIDDecimal uint16 `json:"unique_id_decimal"`

	Variant    string `json:"variant"`
	Flags      uint8  `json:"flags"`
	RegionCode uint8  `json:"region_code"`
	Region     string `json:"region"`
}

// ParseIdentifier validates and decomposes a title identifier. The input
// must be exactly 16 hex digits in either case; anything else fails with
// ErrInvalidIdentifier. Unmapped types and regions are not errors.
func ParseIdentifier(s string) (Identifier, error) {
	if !identifierPattern.MatchString(s) {
		return Identifier{}, fmt.Errorf("%w: %q is not 16 hexadecimal digits", ErrInvalidIdentifier, s)
	}
	value := strings.ToUpper(s)

	id := Identifier{
		Value:    value,
		Type:     value[0:8],
		UniqueID: value[8:12],
		Variant:  value[12:16],
		Category: UnknownCategory,
		Region:   UnknownRegion,
	}
	if category, ok := categories[id.Type]; ok {
		id.Category = category
	}

	// The pattern guarantees these parse.
	unique, _ := strconv.ParseUint(id.UniqueID, 16, 16)
	flags, _ := strconv.ParseUint(id.Variant[0:2], 16, 8)
	region, _ := strconv.ParseUint(id.Variant[2:4], 16, 8)
	id.UniqueIDDecimal = uint16(unique)
	id.Flags = uint8(flags)
	id.RegionCode = uint8(region)
	if name, ok := regions[id.RegionCode]; ok {
		id.Region = name
	}
	return id, nil
}

// String returns the canonical uppercase form.
func (id Identifier) String() string {
	return id.Value
}

// Lower returns the lowercase form used in CDN paths and file names.
func (id Identifier) Lower() string {
	return strings.ToLower(id.Value)
}

// Uint64 returns the identifier as a number, for comparison with the
// title id fields of decoded records.
func (id Identifier) Uint64() uint64 {
	value, _ := strconv.ParseUint(id.Value, 16, 64)
	return value
}
