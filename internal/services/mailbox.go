package services

import (
	"encoding/binary"
	"fmt"
)

// Mailbox chunks outgoing pushes into MaxPayload-sized frames and parses
// CMD_MAILBOX_READ_RESP / CMD_MAILBOX_AVAILABLE_RESP payloads. Unlike the
// legacy wire format, the frame header's own payload length makes an
// explicit length prefix on push unnecessary — chunked pushes are just
// successive CMD_MAILBOX_PUSH frames; reassembly is left to the host.
type Mailbox struct{}

// BuildPush splits message into one or more CMD_MAILBOX_PUSH payloads.
func (Mailbox) BuildPush(message []byte) [][]byte {
	return Console{}.Write(message)
}

// ParseReadResponse parses a CMD_MAILBOX_READ_RESP payload:
// [msg_len_be:2][msg...].
func (Mailbox) ParseReadResponse(payload []byte) ([]byte, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("services: mailbox read response too short")
	}
	msgLen := binary.BigEndian.Uint16(payload[:2])
	if len(payload) < 2+int(msgLen) {
		return nil, fmt.Errorf("services: mailbox read response truncated")
	}
	msg := make([]byte, msgLen)
	copy(msg, payload[2:2+msgLen])
	return msg, nil
}

// ParseAvailableResponse parses a CMD_MAILBOX_AVAILABLE_RESP payload:
// [count_be:2].
func (Mailbox) ParseAvailableResponse(payload []byte) (uint16, error) {
	if len(payload) < 2 {
		return 0, fmt.Errorf("services: mailbox available response too short")
	}
	return binary.BigEndian.Uint16(payload[:2]), nil
}
