// Package services implements the client-side capability stubs carried
// over the link: console, datastore, mailbox, filesystem, process and
// GPIO. Each builds request frame payloads and parses the matching
// response payloads; none of them own the wire — the caller hands the
// built payload to the link's send path and feeds received frames back
// into HandleResponse.
package services

import (
	"github.com/yunbridge/mculink/internal/frame"
)

// Console chunks writes to MaxPayload-sized CMD_CONSOLE_WRITE frames. It
// carries no response handling: console writes are fire-and-forget from
// the host's perspective, acknowledged only at the link layer.
type Console struct{}

// Write splits data into one or more console-write payloads, each no
// larger than frame.MaxPayload bytes, preserving order.
func (Console) Write(data []byte) [][]byte {
	if len(data) == 0 {
		return nil
	}
	var chunks [][]byte
	for len(data) > 0 {
		n := len(data)
		if n > frame.MaxPayload {
			n = frame.MaxPayload
		}
		chunk := make([]byte, n)
		copy(chunk, data[:n])
		chunks = append(chunks, chunk)
		data = data[n:]
	}
	return chunks
}
