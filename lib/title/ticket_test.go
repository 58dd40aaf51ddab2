// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package title_test

import (
	"errors"
	"testing"

	"github.com/titlepack/titlepack/lib/title"
	"github.com/titlepack/titlepack/lib/title/titletest"
)

func sampleTicket() titletest.Ticket {
	return titletest.Ticket{
		Issuer:         "Root-CA00000003-XS0000000c",
		TitleKey:       [16]byte{0x0F, 0x1E, 0x2D, 0x3C, 0x4B, 0x5A, 0x69, 0x78, 0x87, 0x96, 0xA5, 0xB4, 0xC3, 0xD2, 0xE1, 0xF0},
		TicketID:       0x0001A2B3C4D5E6F7,
		ConsoleID:      0x12345678,
		TitleID:        0x0004000000055D00,
		CommonKeyIndex: 1,
	}
}

func TestDecodeTicket(t *testing.T) {
	for _, tag := range []uint32{title.TagRSA4096, title.TagRSA2048, title.TagECDSA, 0} {
		record := sampleTicket()
		record.SignatureTag = tag
		ticket, err := title.DecodeTicket(record.Bytes())
		if err != nil {
			t.Fatalf("tag %#x: DecodeTicket: %v", tag, err)
		}
		if ticket.Issuer != record.Issuer {
			t.Errorf("Issuer = %q", ticket.Issuer)
		}
		if ticket.TitleKey != record.TitleKey {
			t.Errorf("TitleKey = %x, want %x", ticket.TitleKey, record.TitleKey)
		}
		if ticket.TicketID != record.TicketID {
			t.Errorf("TicketID = %#x", ticket.TicketID)
		}
		if ticket.ConsoleID != record.ConsoleID {
			t.Errorf("ConsoleID = %#x", ticket.ConsoleID)
		}
		if ticket.TitleID != record.TitleID {
			t.Errorf("TitleID = %#x", ticket.TitleID)
		}
		if ticket.CommonKeyIndex != 1 {
			t.Errorf("CommonKeyIndex = %d", ticket.CommonKeyIndex)
		}
	}
}

func TestDecodeTicketTruncated(t *testing.T) {
	buf := sampleTicket().Bytes()
	for _, size := range []int{0, 2, 0x140, 0x140 + 0xB1, len(buf) - 1} {
		_, err := title.DecodeTicket(buf[:size])
		if !errors.Is(err, title.ErrTruncatedRecord) {
			t.Errorf("DecodeTicket(%#x bytes) error = %v, want ErrTruncatedRecord", size, err)
		}
	}
}
