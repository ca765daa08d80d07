package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
)

// Tag computes the handshake authentication tag: HMAC-SHA-256(secret,
// nonce), truncated to TagLength bytes.
func Tag(secret, nonce []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(nonce)
	return mac.Sum(nil)[:TagLength]
}

// VerifyTag reports whether tag is the correct handshake tag for nonce
// under secret, compared in constant time so a mismatching byte position
// cannot be inferred from timing.
func VerifyTag(secret, nonce, tag []byte) bool {
	want := Tag(secret, nonce)
	return subtle.ConstantTimeCompare(want, tag) == 1
}
