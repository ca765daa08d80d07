// Package frame implements the RPC frame header, builder and parser that
// sit above the COBS/RLE wire codecs in internal/wire: the fixed-layout
// [version][payload_len][command_id][payload][crc32] structure exchanged
// between host and endpoint.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

// ProtocolVersion is the only version this module builds or accepts.
const ProtocolVersion = 0x02

// MaxPayload is the largest payload a single frame may carry.
const MaxPayload = 256

// HeaderSize is the wire size of version + payload_length + command_id.
const HeaderSize = 5

// CRCSize is the wire size of the trailing CRC-32.
const CRCSize = 4

// MaxRawFrame is the largest a built frame (header + payload + crc) can be.
const MaxRawFrame = HeaderSize + MaxPayload + CRCSize

// CompressedFlag is OR'd into the on-wire command_id when the payload was
// RLE-compressed by the sender; callers must mask it off to recover the
// logical command ID and RLE-decompress the payload before use.
const CompressedFlag = 0x8000

// Sentinel errors returned by Parse. Wrap with fmt.Errorf("...: %w", err)
// at call sites that need additional context.
var (
	ErrMalformed   = errors.New("frame: malformed")
	ErrCRCMismatch = errors.New("frame: crc mismatch")
	ErrOverflow    = errors.New("frame: payload exceeds maximum size")
)

// Header is the fixed 5-byte frame header, decoded from network byte order.
type Header struct {
	Version    uint8
	PayloadLen uint16
	CommandID  uint16
}

// Frame is a fully parsed, validated frame: header plus payload. The CRC
// itself is not retained since Parse already verified it.
type Frame struct {
	Header  Header
	Payload []byte
}

// Compressed reports whether the sender flagged this frame's payload as
// RLE-compressed.
func (f Frame) Compressed() bool {
	return f.Header.CommandID&CompressedFlag != 0
}

// LogicalCommandID returns the command ID with the compressed-payload flag
// masked off.
func (f Frame) LogicalCommandID() uint16 {
	return f.Header.CommandID &^ CompressedFlag
}

// Build encodes commandID and payload into a raw frame: header, payload,
// and a trailing big-endian CRC-32 (IEEE 802.3) computed over header and
// payload. Set the CompressedFlag bit in commandID beforehand if payload
// has already been RLE-compressed by the caller. Build fails only if
// payload exceeds MaxPayload.
func Build(commandID uint16, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("frame: build payload len %d: %w", len(payload), ErrOverflow)
	}
	dataLen := HeaderSize + len(payload)
	out := make([]byte, dataLen+CRCSize)

	out[0] = ProtocolVersion
	binary.BigEndian.PutUint16(out[1:3], uint16(len(payload)))
	binary.BigEndian.PutUint16(out[3:5], commandID)
	copy(out[HeaderSize:dataLen], payload)

	crc := crc32.ChecksumIEEE(out[:dataLen])
	binary.BigEndian.PutUint32(out[dataLen:], crc)

	return out, nil
}

// Parse validates and decodes a raw, COBS-decoded frame buffer. Validation
// order matches the endpoint firmware: overall size bounds, then CRC, then
// header fields, then payload-length consistency — CRC is checked before
// any header field is trusted.
func Parse(raw []byte) (Frame, error) {
	if len(raw) == 0 || len(raw) > MaxRawFrame || len(raw) < HeaderSize+CRCSize {
		return Frame{}, fmt.Errorf("frame: parse size %d: %w", len(raw), ErrMalformed)
	}

	crcStart := len(raw) - CRCSize
	receivedCRC := binary.BigEndian.Uint32(raw[crcStart:])
	calculatedCRC := crc32.ChecksumIEEE(raw[:crcStart])
	if receivedCRC != calculatedCRC {
		return Frame{}, ErrCRCMismatch
	}

	dataLen := crcStart
	h := Header{
		Version:    raw[0],
		PayloadLen: binary.BigEndian.Uint16(raw[1:3]),
		CommandID:  binary.BigEndian.Uint16(raw[3:5]),
	}

	if h.Version != ProtocolVersion ||
		int(h.PayloadLen) > MaxPayload ||
		HeaderSize+int(h.PayloadLen) != dataLen {
		return Frame{}, fmt.Errorf("frame: parse header %+v: %w", h, ErrMalformed)
	}

	payload := make([]byte, h.PayloadLen)
	copy(payload, raw[HeaderSize:dataLen])

	return Frame{Header: h, Payload: payload}, nil
}
