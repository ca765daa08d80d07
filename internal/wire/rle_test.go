package wire

import (
	"bytes"
	"testing"
)

func TestRLERoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x01, 0x02, 0x03},
		bytes.Repeat([]byte{0x41}, 10),
		bytes.Repeat([]byte{0xFF}, 5),
		append([]byte{0x01, 0x02}, bytes.Repeat([]byte{0x09}, 300)...),
		{0xFF, 0xFF, 0xFF},
	}
	for i, in := range cases {
		enc := RLEEncode(in)
		dec, err := RLEDecode(enc)
		if err != nil {
			t.Fatalf("case %d: decode error: %v", i, err)
		}
		if !bytes.Equal(dec, in) {
			t.Fatalf("case %d: round trip mismatch: got % X want % X", i, dec, in)
		}
	}
}

func TestRLEDecodeTruncated(t *testing.T) {
	if _, err := RLEDecode([]byte{0xFF, 0x03}); err != ErrRLETruncated {
		t.Fatalf("expected ErrRLETruncated, got %v", err)
	}
}

func TestShouldCompress(t *testing.T) {
	if ShouldCompress([]byte{0x01, 0x02, 0x03}) {
		t.Fatalf("short payload should not be flagged compressible")
	}
	run := bytes.Repeat([]byte{0x00}, 32)
	if !ShouldCompress(run) {
		t.Fatalf("long repetitive run should be flagged compressible")
	}
	random := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A}
	if ShouldCompress(random) {
		t.Fatalf("non-repetitive payload should not be flagged compressible")
	}
}

func FuzzRLERoundTrip(f *testing.F) {
	f.Add([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	f.Add([]byte{0x01, 0x02, 0x03})
	f.Fuzz(func(t *testing.T, in []byte) {
		enc := RLEEncode(in)
		dec, err := RLEDecode(enc)
		if err != nil {
			t.Fatalf("decode error: %v", err)
		}
		if !bytes.Equal(dec, in) {
			t.Fatalf("round trip mismatch: got % X want % X", dec, in)
		}
	})
}
