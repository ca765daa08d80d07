package security

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
)

var (
	katSHA256Msg      = []byte("abc")
	katSHA256Expected = []byte{
		0xBA, 0x78, 0x16, 0xBF, 0x8F, 0x01, 0xCF, 0xEA, 0x41, 0x41, 0x40,
		0xDE, 0x5D, 0xAE, 0x22, 0x23, 0xB0, 0x03, 0x61, 0xA3, 0x96, 0x17,
		0x7A, 0x9C, 0xB4, 0x10, 0xFF, 0x61, 0xF2, 0x00, 0x15, 0xAD,
	}

	katHMACKey      = []byte("key")
	katHMACData     = []byte("The quick brown fox jumps over the lazy dog")
	katHMACExpected = []byte{
		0xF7, 0xBC, 0x83, 0xF4, 0x30, 0x53, 0x84, 0x24, 0xB1, 0x32, 0x98,
		0xE6, 0xAA, 0x6F, 0xB1, 0x43, 0xEF, 0x4D, 0x59, 0xA1, 0x49, 0x46,
		0x17, 0x59, 0x97, 0x47, 0x9D, 0xBC, 0x2D, 0x1A, 0x3C, 0xD8,
	}
)

// SelfTest runs the power-on known-answer test against the SHA-256 and
// HMAC-SHA-256 primitives this package relies on. A failure here means
// the cryptographic stack on this build is not trustworthy; callers feed
// a false result into the link state machine as the crypto_fault event,
// which puts the link in Fault.
func SelfTest() bool {
	sum := sha256.Sum256(katSHA256Msg)
	if !bytes.Equal(sum[:], katSHA256Expected) {
		return false
	}

	mac := hmac.New(sha256.New, katHMACKey)
	mac.Write(katHMACData)
	if !bytes.Equal(mac.Sum(nil), katHMACExpected) {
		return false
	}

	return true
}
