// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package title

// Ticket field offsets, relative to the header origin.
const (
	ticketIssuerOffset         = 0x00
	ticketIssuerSize           = 0x40
	ticketTitleKeyOffset       = 0x7F
	ticketTitleKeySize         = 0x10
	ticketIDOffset             = 0x90
	ticketConsoleIDOffset      = 0x98
	ticketTitleIDOffset        = 0x9C
	ticketCommonKeyIndexOffset = 0xB1

	// ticketBodySize is the fixed part of the ticket body that precedes
	// the variable content index.
	ticketBodySize = 0x164
)

// Ticket is a decoded ticket record. TitleKey is the encrypted title key
// exactly as stored; nothing in this repository decrypts it.
type Ticket struct {
	Signature      SignatureKind
	Issuer         string
	TitleKey       [ticketTitleKeySize]byte
	TicketID       uint64
	ConsoleID      uint32
	TitleID        uint64
	CommonKeyIndex uint8
}

// DecodeTicket decodes a ticket record. Buffers shorter than the
// signature block plus the fixed ticket body fail with a *DecodeError
// matching ErrTruncatedRecord.
func DecodeTicket(buf []byte) (*Ticket, error) {
	const record = "ticket"

	origin, kind, err := signatureBlock(buf, record)
	if err != nil {
		return nil, err
	}
	if err := require(buf, record, "body", origin, ticketBodySize); err != nil {
		return nil, err
	}

	body := Fields(buf[origin:])
	ticket := &Ticket{
		Signature:      kind,
		Issuer:         body.ASCII(ticketIssuerOffset, ticketIssuerSize),
		TicketID:       body.Uint64(ticketIDOffset),
		ConsoleID:      body.Uint32(ticketConsoleIDOffset),
		TitleID:        body.Uint64(ticketTitleIDOffset),
		CommonKeyIndex: body.Uint8(ticketCommonKeyIndexOffset),
	}
	copy(ticket.TitleKey[:], body[ticketTitleKeyOffset:ticketTitleKeyOffset+ticketTitleKeySize])
	return ticket, nil
}
