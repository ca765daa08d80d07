// Package security implements the handshake authentication tag, secret
// storage, anti-replay nonce validation, and the power-on cryptographic
// self-test that gate entry into the link's synchronized state.
package security

import (
	"crypto/rand"
	"fmt"

	"github.com/awnumar/memguard"
)

// TagLength is the size, in bytes, of the truncated HMAC-SHA-256
// handshake tag.
const TagLength = 16

// NonceLength is the size, in bytes, of the handshake nonce: 8 bytes of
// randomness followed by an 8-byte big-endian monotonic counter.
const NonceLength = 16

// Secret holds the shared handshake secret in a memguard.LockedBuffer:
// mlocked, never swapped to disk, and destroyed (zero-wiped) on Close.
// Secret is safe to hold for the lifetime of a Link; it must be closed
// exactly once, typically alongside a link reset.
type Secret struct {
	buf *memguard.LockedBuffer
}

// NewSecret copies key into a locked buffer and returns a Secret owning
// it. The caller should overwrite key after this call returns; NewSecret
// does not wipe the caller's copy.
func NewSecret(key []byte) *Secret {
	return &Secret{buf: memguard.NewBufferFromBytes(key)}
}

// Bytes returns the secret's current contents. The returned slice aliases
// locked memory and must not be retained past the Secret's lifetime.
func (s *Secret) Bytes() []byte {
	return s.buf.Bytes()
}

// Close wipes and unlocks the underlying buffer. After Close, Bytes
// returns a destroyed, zero-length buffer.
func (s *Secret) Close() {
	s.buf.Destroy()
}

// GenerateNonce fills a 16-byte nonce: 8 random bytes followed by the
// monotonic counter, incremented and written big-endian into the last 8
// bytes. counter is advanced and must be persisted by the caller across
// handshakes to keep the anti-replay guarantee.
func GenerateNonce(counter *uint64) ([NonceLength]byte, error) {
	var nonce [NonceLength]byte
	if _, err := rand.Read(nonce[:8]); err != nil {
		return nonce, fmt.Errorf("security: generate nonce: %w", err)
	}
	*counter++
	putCounter(nonce[8:], *counter)
	return nonce, nil
}

// ExtractNonceCounter reads the big-endian counter out of a nonce's last
// 8 bytes.
func ExtractNonceCounter(nonce []byte) uint64 {
	var c uint64
	for _, b := range nonce[8:16] {
		c = (c << 8) | uint64(b)
	}
	return c
}

// ValidateNonceCounter rejects any nonce whose counter is not strictly
// greater than lastCounter, defeating replay of a previously accepted
// handshake nonce. On success, *lastCounter is advanced to the nonce's
// counter.
func ValidateNonceCounter(nonce []byte, lastCounter *uint64) bool {
	current := ExtractNonceCounter(nonce)
	if current <= *lastCounter {
		return false
	}
	*lastCounter = current
	return true
}

func putCounter(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[7-i] = byte(v >> (i * 8))
	}
}
