package dispatch

import (
	"bytes"
	"errors"
	"testing"

	"github.com/yunbridge/mculink/internal/frame"
	"github.com/yunbridge/mculink/internal/wire"
)

func TestDispatchClassifiesAndNeedsAck(t *testing.T) {
	d := NewDispatcher(1000)
	raw, err := frame.Build(frame.CmdConsoleWrite, []byte("hi"))
	if err != nil {
		t.Fatalf("frame.Build: %v", err)
	}
	res, err := d.Dispatch(raw, 0)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Category != frame.CategoryConsole {
		t.Fatalf("Category = %v, want CategoryConsole", res.Category)
	}
	if !res.NeedsAck {
		t.Fatalf("expected console write to need an ACK")
	}
	if res.Duplicate {
		t.Fatalf("first delivery must not be a duplicate")
	}
}

func TestDispatchDedupWithinRetryWindow(t *testing.T) {
	d := NewDispatcher(500)
	raw, _ := frame.Build(frame.CmdConsoleWrite, []byte("hi"))

	first, err := d.Dispatch(raw, 0)
	if err != nil || first.Duplicate {
		t.Fatalf("first Dispatch: res=%+v err=%v", first, err)
	}
	second, err := d.Dispatch(raw, 100)
	if err != nil {
		t.Fatalf("second Dispatch: %v", err)
	}
	if !second.Duplicate {
		t.Fatalf("expected second delivery within the retry window to be a duplicate")
	}

	d.Reset()
	third, err := d.Dispatch(raw, 150)
	if err != nil {
		t.Fatalf("third Dispatch: %v", err)
	}
	if third.Duplicate {
		t.Fatalf("expected delivery after Reset to be treated as fresh")
	}
}

func TestDispatchRLEDecodesCompressedPayload(t *testing.T) {
	d := NewDispatcher(1000)
	original := bytes.Repeat([]byte{0x41}, 64)
	compressed := wire.RLEEncode(original)
	raw, err := frame.Build(frame.CmdConsoleWrite|frame.CompressedFlag, compressed)
	if err != nil {
		t.Fatalf("frame.Build: %v", err)
	}

	res, err := d.Dispatch(raw, 0)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !bytes.Equal(res.Frame.Payload, original) {
		t.Fatalf("decoded payload = % X, want % X", res.Frame.Payload, original)
	}
}

func TestDispatchMalformedRLEReturnsError(t *testing.T) {
	d := NewDispatcher(1000)
	// An escape byte followed by a count but no value byte is a truncated
	// RLE sequence.
	raw, err := frame.Build(frame.CmdConsoleWrite|frame.CompressedFlag, []byte{0xFF, 0x03})
	if err != nil {
		t.Fatalf("frame.Build: %v", err)
	}
	if _, err := d.Dispatch(raw, 0); !errors.Is(err, frame.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestRetryWindowMs(t *testing.T) {
	d := NewDispatcher(750)
	if d.RetryWindowMs() != 750 {
		t.Fatalf("RetryWindowMs() = %d, want 750", d.RetryWindowMs())
	}
}
