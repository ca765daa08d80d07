// Package wire implements the byte-level codecs that sit under the frame
// layer: Consistent Overhead Byte Stuffing for zero-free, terminator
// delimited packets, and an optional run-length compressor for large
// repetitive payloads.
package wire

import "errors"

// ErrZeroInStream is returned by COBSDecode when the encoded input contains
// a zero byte, which can only happen if the stream is malformed or the
// terminator was consumed as data.
var ErrZeroInStream = errors.New("wire: unexpected zero byte in cobs stream")

// ErrTruncatedGroup is returned by COBSDecode when a length code promises
// more bytes than remain in the buffer.
var ErrTruncatedGroup = errors.New("wire: truncated cobs group")

// COBSMaxOverhead is the number of extra bytes COBSEncode adds to an input
// shorter than 254 bytes. Longer inputs gain one more code byte for each
// full run of 254 non-zero bytes.
const COBSMaxOverhead = 1

// COBSEncode maps src (which may contain zero bytes) to a zero-free byte
// sequence. The returned slice never contains 0x00; callers append the
// 0x00 packet terminator themselves. COBSEncode never fails: every byte
// sequence, including the empty one, has a valid encoding.
func COBSEncode(src []byte) []byte {
	dst := make([]byte, 0, len(src)+len(src)/254+2)
	codeIdx := 0
	dst = append(dst, 0) // placeholder code byte
	code := byte(1)

	for _, b := range src {
		if b == 0 {
			dst[codeIdx] = code
			codeIdx = len(dst)
			dst = append(dst, 0)
			code = 1
			continue
		}
		dst = append(dst, b)
		code++
		if code == 0xFF {
			dst[codeIdx] = code
			codeIdx = len(dst)
			dst = append(dst, 0)
			code = 1
		}
	}
	dst[codeIdx] = code
	return dst
}

// COBSDecode is the inverse of COBSEncode. It fails with ErrZeroInStream if
// src contains an in-stream zero (COBS-encoded data never does), and with
// ErrTruncatedGroup if a length code runs past the end of src.
func COBSDecode(src []byte) ([]byte, error) {
	dst := make([]byte, 0, len(src))
	i := 0
	for i < len(src) {
		code := src[i]
		if code == 0 {
			return nil, ErrZeroInStream
		}
		i++
		n := int(code) - 1
		if i+n > len(src) {
			return nil, ErrTruncatedGroup
		}
		dst = append(dst, src[i:i+n]...)
		i += n
		if code < 0xFF && i < len(src) {
			dst = append(dst, 0)
		}
	}
	return dst, nil
}
