package services

import (
	"errors"
	"fmt"
)

// MaxKeyLength is the longest datastore/mailbox key the wire format
// carries, matching the endpoint firmware's fixed key buffer.
const MaxKeyLength = 64

// pendingKeysCapacity bounds the fixed-capacity FIFO the original firmware used to
// correlate an asynchronous CMD_DATASTORE_GET_RESP back to the key that
// requested it; the response payload carries only the value, not the
// key, so the requester has to remember request order.
const pendingKeysCapacity = 8

// ErrKeyTooLong is returned when a key exceeds MaxKeyLength.
var ErrKeyTooLong = errors.New("services: key too long")

// ErrNoPendingKey is returned by HandleGetResponse when a response
// arrives with no outstanding request to correlate it with.
var ErrNoPendingKey = errors.New("services: get response with no pending request")

// Datastore builds CMD_DATASTORE_PUT/CMD_DATASTORE_GET request payloads
// and correlates CMD_DATASTORE_GET_RESP payloads back to the key that
// requested them, via a small FIFO of in-flight keys.
type Datastore struct {
	pending [pendingKeysCapacity]string
	head    int
	size    int
}

// BuildPut encodes a put request payload: [key_len][key][value].
func (Datastore) BuildPut(key, value string) ([]byte, error) {
	if len(key) == 0 || len(key) > MaxKeyLength {
		return nil, fmt.Errorf("services: put key %q: %w", key, ErrKeyTooLong)
	}
	payload := make([]byte, 1+len(key)+len(value))
	payload[0] = byte(len(key))
	copy(payload[1:], key)
	copy(payload[1+len(key):], value)
	return payload, nil
}

// BuildGet encodes a get request payload (just the key) and tracks it so
// the matching response can be correlated by HandleGetResponse. It fails
// with ErrKeyTooLong if key won't fit, or if the pending-key FIFO is
// already full — a caller that keeps issuing gets faster than responses
// arrive has exceeded what the firmware's bounded tracker can hold.
func (d *Datastore) BuildGet(key string) ([]byte, error) {
	if len(key) == 0 || len(key) > MaxKeyLength {
		return nil, fmt.Errorf("services: get key %q: %w", key, ErrKeyTooLong)
	}
	if d.size == pendingKeysCapacity {
		return nil, fmt.Errorf("services: get key %q: pending key queue full", key)
	}
	idx := (d.head + d.size) % pendingKeysCapacity
	d.pending[idx] = key
	d.size++
	return []byte(key), nil
}

// HandleGetResponse parses a CMD_DATASTORE_GET_RESP payload
// ([value_len][value...]) and returns the value along with the key that
// was popped off the pending FIFO to correlate it.
func (d *Datastore) HandleGetResponse(payload []byte) (key string, value []byte, err error) {
	if d.size == 0 {
		return "", nil, ErrNoPendingKey
	}
	if len(payload) < 1 {
		return "", nil, fmt.Errorf("services: get response payload too short")
	}
	valueLen := int(payload[0])
	if len(payload) < 1+valueLen {
		return "", nil, fmt.Errorf("services: get response value truncated")
	}

	key = d.pending[d.head]
	d.head = (d.head + 1) % pendingKeysCapacity
	d.size--

	value = make([]byte, valueLen)
	copy(value, payload[1:1+valueLen])
	return key, value, nil
}

// Pending returns the number of outstanding, unanswered get requests.
func (d *Datastore) Pending() int {
	return d.size
}
