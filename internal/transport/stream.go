package transport

import (
	"bytes"

	"github.com/yunbridge/mculink/internal/frame"
	"github.com/yunbridge/mculink/internal/wire"
)

// rxBufferCap bounds how much unterminated input the stream reader will
// accumulate before giving up and resyncing on the next terminator; it
// must comfortably exceed MaxRawFrame once COBS-encoded.
const rxBufferCap = 4 * frame.MaxRawFrame

// RxBufferCap is rxBufferCap, exposed so a caller sizing a FlowControl
// watermark against this same accumulator doesn't have to duplicate the
// constant.
const RxBufferCap = rxBufferCap

// Stream accumulates raw bytes off a Port and splits them into
// COBS-delimited, zero-terminated packets. It performs no frame parsing
// of its own; callers pass each returned packet to dispatch.Dispatch,
// which parses the frame and RLE-decompresses the payload if the
// command ID's compressed flag is set.
type Stream struct {
	buf bytes.Buffer
}

// Buffered reports how many unterminated bytes the accumulator is
// currently holding, for watermark-driven flow control.
func (s *Stream) Buffered() int {
	return s.buf.Len()
}

// Feed appends newly read bytes to the accumulator and returns every
// complete (0x00-terminated) packet found, COBS-decoded, in order.
// Malformed COBS groups are dropped and reported via onError, and the
// accumulator resyncs on the next terminator rather than stalling.
func (s *Stream) Feed(chunk []byte, onError func(error)) [][]byte {
	s.buf.Write(chunk)
	var packets [][]byte

	for {
		data := s.buf.Bytes()
		term := bytes.IndexByte(data, 0x00)
		if term < 0 {
			if s.buf.Len() > rxBufferCap {
				// No terminator in an unreasonably large span: drop it
				// all and wait for a fresh packet to begin.
				s.buf.Reset()
			}
			return packets
		}

		encoded := data[:term]
		s.buf.Next(term + 1)

		if len(encoded) == 0 {
			continue // back-to-back terminators; nothing to decode
		}
		decoded, err := wire.COBSDecode(encoded)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			continue
		}
		packets = append(packets, decoded)
	}
}

// EncodePacket COBS-encodes raw and appends the 0x00 packet terminator,
// producing bytes ready to hand to Port.Write.
func EncodePacket(raw []byte) []byte {
	encoded := wire.COBSEncode(raw)
	return append(encoded, 0x00)
}
