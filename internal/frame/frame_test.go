package frame

import (
	"bytes"
	"errors"
	"testing"
)

func TestBuildParseRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		cmd     uint16
		payload []byte
	}{
		{"empty payload", CmdLinkSync, nil},
		{"small payload", CmdDigitalWrite, []byte{0x01, 0x02, 0x03}},
		{"max payload", CmdConsoleWrite, bytes.Repeat([]byte{0xAA}, MaxPayload)},
		{"compressed flag set", CmdConsoleWrite | CompressedFlag, []byte{0xFF, 0x03, 0x00}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			raw, err := Build(c.cmd, c.payload)
			if err != nil {
				t.Fatalf("Build error: %v", err)
			}
			f, err := Parse(raw)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if f.Header.CommandID != c.cmd {
				t.Fatalf("command id: got %#x want %#x", f.Header.CommandID, c.cmd)
			}
			if !bytes.Equal(f.Payload, c.payload) {
				t.Fatalf("payload mismatch: got % X want % X", f.Payload, c.payload)
			}
		})
	}
}

func TestBuildOverflow(t *testing.T) {
	_, err := Build(CmdConsoleWrite, make([]byte, MaxPayload+1))
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestParseCRCMismatch(t *testing.T) {
	raw, err := Build(CmdLinkSync, []byte{0x01})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	raw[len(raw)-1] ^= 0xFF
	if _, err := Parse(raw); !errors.Is(err, ErrCRCMismatch) {
		t.Fatalf("expected ErrCRCMismatch, got %v", err)
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := Parse(nil); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for empty input, got %v", err)
	}
	if _, err := Parse(make([]byte, MaxRawFrame+1)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for oversized input, got %v", err)
	}

	raw, err := Build(CmdLinkSync, []byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	raw[0] = ProtocolVersion + 1
	if _, err := Parse(raw); err == nil {
		t.Fatalf("expected an error for a bad version byte")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		id   uint16
		want Category
	}{
		{CmdLinkSync, CategorySystem},
		{CmdGetVersionResp, CategorySystem},
		{CmdXOFF, CategoryFlowControl},
		{CmdDigitalWrite, CategoryGPIO},
		{CmdConsoleWrite, CategoryConsole},
		{CmdDatastorePut, CategoryDatastore},
		{CmdDatastoreGetResp, CategoryDatastore},
		{CmdMailboxRead, CategoryMailbox},
		{CmdFileWrite, CategoryFilesystem},
		{CmdProcessRun, CategoryProcess},
		{CmdProcessRunResp, CategoryProcess},
	}
	for _, c := range cases {
		if got := Classify(c.id); got != c.want {
			t.Errorf("Classify(%#x) = %v, want %v", c.id, got, c.want)
		}
	}
}

func TestRequiresAck(t *testing.T) {
	if RequiresAck(CmdGetVersionResp) {
		t.Fatalf("response frames must not require their own ack")
	}
	if !RequiresAck(CmdConsoleWrite) {
		t.Fatalf("a request command should require ack")
	}
}

func TestCompressedFlagHelpers(t *testing.T) {
	f := Frame{Header: Header{CommandID: CmdConsoleWrite | CompressedFlag}}
	if !f.Compressed() {
		t.Fatalf("expected Compressed() true")
	}
	if f.LogicalCommandID() != CmdConsoleWrite {
		t.Fatalf("LogicalCommandID() = %#x, want %#x", f.LogicalCommandID(), CmdConsoleWrite)
	}
}
