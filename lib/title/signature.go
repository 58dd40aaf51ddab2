// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package title

import (
	"encoding/binary"
	"fmt"
)

// SignatureKind identifies the signature scheme that prefixes a record.
// The kind only determines how many bytes to skip before the header;
// signature bytes are never read or verified.
type SignatureKind uint8

const (
	// SignatureLegacy covers every tag outside the named kinds. Records
	// with such tags are assumed to carry an RSA-2048 sized block.
	SignatureLegacy SignatureKind = iota
	SignatureRSA4096
	SignatureRSA2048
	SignatureECDSA
)

// Signature type tags as stored big-endian at offset 0.
const (
	TagRSA4096 uint32 = 0x00010000
	TagRSA2048 uint32 = 0x00010001
	TagECDSA   uint32 = 0x00010002
)

const (
	signatureTagSize = 4

	// LegacySignatureLength is the block length assumed for unknown
	// tags: tag, 0x100 payload and 0x3C padding.
	LegacySignatureLength = 0x140
)

// ResolveSignature maps a signature tag to its kind. Unknown tags map
// to SignatureLegacy rather than failing.
func ResolveSignature(tag uint32) SignatureKind {
	switch tag {
	case TagRSA4096:
		return SignatureRSA4096
	case TagRSA2048:
		return SignatureRSA2048
	case TagECDSA:
		return SignatureECDSA
	default:
		return SignatureLegacy
	}
}

// BlockLength returns the total length of the signature block (tag,
// payload and padding), which is the offset of the record header.
func (kind SignatureKind) BlockLength() int {
	switch kind {
	case SignatureRSA4096:
		return signatureTagSize + 0x200 + 0x3C
	case SignatureRSA2048:
		return signatureTagSize + 0x100 + 0x3C
	case SignatureECDSA:
		return signatureTagSize + 0x3C + 0x40
	default:
		return LegacySignatureLength
	}
}

func (kind SignatureKind) String() string {
	switch kind {
	case SignatureRSA4096:
		return "rsa-4096"
	case SignatureRSA2048:
		return "rsa-2048"
	case SignatureECDSA:
		return "ecdsa"
	case SignatureLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(kind))
	}
}

// MarshalText encodes the kind by name so that JSON and CBOR output
// carry "rsa-2048" rather than an enum ordinal.
func (kind SignatureKind) MarshalText() ([]byte, error) {
	return []byte(kind.String()), nil
}

// SignatureLength reads the tag at the start of buf and returns the
// signature block length along with the resolved kind.
func SignatureLength(buf []byte) (int, SignatureKind, error) {
	return signatureBlock(buf, "record")
}

func signatureBlock(buf []byte, record string) (int, SignatureKind, error) {
	if err := require(buf, record, "signature tag", 0, signatureTagSize); err != nil {
		return 0, SignatureLegacy, err
	}
	kind := ResolveSignature(binary.BigEndian.Uint32(buf))
	return kind.BlockLength(), kind, nil
}
