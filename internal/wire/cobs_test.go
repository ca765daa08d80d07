package wire

import (
	"bytes"
	"testing"
)

func TestCOBSRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x00},
		{0x11, 0x22, 0x00, 0x33},
		{0x00, 0x00, 0x00},
		bytes.Repeat([]byte{0x01}, 300),
		append(bytes.Repeat([]byte{0x05}, 253), 0x00, 0x06),
	}
	for i, in := range cases {
		enc := COBSEncode(in)
		for _, b := range enc {
			if b == 0 {
				t.Fatalf("case %d: encoded output contains zero byte: % X", i, enc)
			}
		}
		dec, err := COBSDecode(enc)
		if err != nil {
			t.Fatalf("case %d: decode error: %v", i, err)
		}
		if !bytes.Equal(dec, in) && !(len(dec) == 0 && len(in) == 0) {
			t.Fatalf("case %d: round trip mismatch: got % X want % X", i, dec, in)
		}
	}
}

func TestCOBSDecodeErrors(t *testing.T) {
	if _, err := COBSDecode([]byte{0x00, 0x01}); err != ErrZeroInStream {
		t.Fatalf("expected ErrZeroInStream, got %v", err)
	}
	if _, err := COBSDecode([]byte{0x05, 0x01, 0x02}); err != ErrTruncatedGroup {
		t.Fatalf("expected ErrTruncatedGroup, got %v", err)
	}
}

func FuzzCOBSRoundTrip(f *testing.F) {
	f.Add([]byte{0x00, 0x01, 0x02})
	f.Add([]byte{})
	f.Add(bytes.Repeat([]byte{0x00}, 10))
	f.Fuzz(func(t *testing.T, in []byte) {
		enc := COBSEncode(in)
		dec, err := COBSDecode(enc)
		if err != nil {
			t.Fatalf("decode error: %v", err)
		}
		if !bytes.Equal(dec, in) {
			t.Fatalf("round trip mismatch: got % X want % X", dec, in)
		}
	})
}
