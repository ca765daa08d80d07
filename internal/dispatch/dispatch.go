// Package dispatch turns a raw, COBS-decoded byte slice into a routed,
// deduplicated frame: it parses the frame, suppresses a duplicate
// delivery within the peer's retry window, classifies the command into
// its capability category, and reports whether an ACK is owed back.
package dispatch

import (
	"fmt"

	"github.com/yunbridge/mculink/internal/frame"
	"github.com/yunbridge/mculink/internal/metrics"
	"github.com/yunbridge/mculink/internal/wire"
)

// Result is what the dispatcher decided about one inbound raw frame.
type Result struct {
	Frame     frame.Frame
	Category  frame.Category
	Duplicate bool
	NeedsAck  bool
}

// seenEntry records when (in link-local milliseconds) a CRC was last
// accepted, so a retransmit of the same frame within retryWindowMs can be
// recognized and suppressed without re-running the command.
type seenEntry struct {
	crc   uint32
	sawMs uint64
	inUse bool
}

// dedupeSlots bounds how many distinct recent CRCs the dispatcher
// remembers at once; it only needs to cover frames still inside one
// retry window, and the link never has more than one critical frame in
// flight plus a couple of unacknowledged control frames at a time.
const dedupeSlots = 8

// Dispatcher parses, deduplicates and classifies inbound frames. The
// zero value is ready to use.
type Dispatcher struct {
	seen          [dedupeSlots]seenEntry
	next          int
	retryWindowMs uint64
}

// NewDispatcher returns a Dispatcher that suppresses duplicate CRCs seen
// within retryWindowMs of each other — set this to
// ackTimeoutMs*(retryLimit+1), the longest span over which the peer may
// still be retransmitting a frame it never got acked.
func NewDispatcher(retryWindowMs uint64) *Dispatcher {
	return &Dispatcher{retryWindowMs: retryWindowMs}
}

// Dispatch parses raw (already COBS-decoded) and classifies it. If the
// frame's compressed-payload flag is set, its payload is RLE-decoded
// here, before dedup or routing see it; a decode failure is reported as
// ErrMalformed so the caller can emit STATUS_MALFORMED. nowMs is the
// link's current cooperative-loop clock, used for dedup expiry. A parse
// failure is returned as-is (ErrMalformed/ErrCRCMismatch) so the caller
// can emit the appropriate status frame.
func (d *Dispatcher) Dispatch(raw []byte, nowMs uint64) (Result, error) {
	f, err := frame.Parse(raw)
	if err != nil {
		metrics.IncMalformedFrame()
		return Result{}, fmt.Errorf("dispatch: %w", err)
	}

	if f.Compressed() {
		decoded, derr := wire.RLEDecode(f.Payload)
		if derr != nil {
			metrics.IncMalformedFrame()
			return Result{}, fmt.Errorf("dispatch: rle decode failed (%v): %w", derr, frame.ErrMalformed)
		}
		f.Payload = decoded
	}

	crc := frameCRC(raw)
	dup := d.isDuplicate(crc, nowMs)
	if !dup {
		d.remember(crc, nowMs)
	} else {
		metrics.IncDedupHit()
	}

	logical := f.LogicalCommandID()
	return Result{
		Frame:     f,
		Category:  frame.Classify(logical),
		Duplicate: dup,
		NeedsAck:  frame.RequiresAck(logical),
	}, nil
}

// RetryWindowMs returns the duplicate-suppression window this
// dispatcher was constructed with, so a caller can rearm a dedup-reset
// timer for the same span on every fresh (non-duplicate) frame.
func (d *Dispatcher) RetryWindowMs() uint64 {
	return d.retryWindowMs
}

// Reset clears the remembered-CRC table, forgetting every recent
// delivery. Called once the retry window has passed with no further
// traffic, so a CRC that happens to repeat long after the original
// delivery is not mistaken for a retransmit of it.
func (d *Dispatcher) Reset() {
	d.seen = [dedupeSlots]seenEntry{}
	d.next = 0
}

func (d *Dispatcher) isDuplicate(crc uint32, nowMs uint64) bool {
	for _, e := range d.seen {
		if e.inUse && e.crc == crc && nowMs-e.sawMs <= d.retryWindowMs {
			return true
		}
	}
	return false
}

func (d *Dispatcher) remember(crc uint32, nowMs uint64) {
	d.seen[d.next] = seenEntry{crc: crc, sawMs: nowMs, inUse: true}
	d.next = (d.next + 1) % dedupeSlots
}

func frameCRC(raw []byte) uint32 {
	if len(raw) < frame.CRCSize {
		return 0
	}
	crcBytes := raw[len(raw)-frame.CRCSize:]
	return uint32(crcBytes[0])<<24 | uint32(crcBytes[1])<<16 | uint32(crcBytes[2])<<8 | uint32(crcBytes[3])
}
