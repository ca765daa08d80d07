package wire

import "errors"

// RLE run-length parameters, matched to the byte budgets of the embedded
// endpoint: a run shorter than minRunLength costs more to encode than it
// saves, and should_compress gates the whole payload on the same logic.
const (
	rleEscapeByte     = 0xFF
	rleMinRunLength   = 4
	rleMaxRunLength   = 256
	minCompressInput  = 8
	minCompressSaving = 4
)

// ErrRLETruncated is returned by RLEDecode when an escape byte is not
// followed by both its count byte and its value byte.
var ErrRLETruncated = errors.New("wire: truncated rle escape sequence")

// RLEEncode compresses runs of rleMinRunLength or more identical bytes
// into a 3-byte escape sequence: [0xFF][count-1][value]. A literal 0xFF
// byte in src is escaped as [0xFF][0x00][0xFF] so the escape byte itself
// never appears unescaped in the output.
func RLEEncode(src []byte) []byte {
	dst := make([]byte, 0, len(src))
	i := 0
	for i < len(src) {
		b := src[i]
		run := 1
		for i+run < len(src) && src[i+run] == b && run < rleMaxRunLength {
			run++
		}
		switch {
		case b == rleEscapeByte:
			dst = append(dst, rleEscapeByte, 0x00, rleEscapeByte)
			i++
		case run >= rleMinRunLength:
			dst = append(dst, rleEscapeByte, byte(run-1), b)
			i += run
		default:
			dst = append(dst, b)
			i++
		}
	}
	return dst
}

// RLEDecode reverses RLEEncode.
func RLEDecode(src []byte) ([]byte, error) {
	dst := make([]byte, 0, len(src))
	i := 0
	for i < len(src) {
		b := src[i]
		if b != rleEscapeByte {
			dst = append(dst, b)
			i++
			continue
		}
		if i+2 >= len(src) {
			return nil, ErrRLETruncated
		}
		count := int(src[i+1]) + 1
		value := src[i+2]
		for n := 0; n < count; n++ {
			dst = append(dst, value)
		}
		i += 3
	}
	return dst, nil
}

// ShouldCompress applies the same heuristic the endpoint firmware uses
// before spending cycles on RLEEncode: payloads under minCompressInput
// bytes are never worth it, and the encoded form must save at least
// minCompressSaving bytes over the raw payload, or compression is skipped
// and the raw payload is sent with the frame's compressed-payload flag
// left unset.
func ShouldCompress(src []byte) bool {
	if len(src) < minCompressInput {
		return false
	}
	encoded := RLEEncode(src)
	return len(src)-len(encoded) >= minCompressSaving
}
