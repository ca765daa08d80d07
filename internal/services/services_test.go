package services

import (
	"bytes"
	"errors"
	"testing"

	"github.com/yunbridge/mculink/internal/frame"
)

func TestConsoleWriteChunking(t *testing.T) {
	data := bytes.Repeat([]byte{0x41}, frame.MaxPayload+10)
	chunks := Console{}.Write(data)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if len(chunks[0]) != frame.MaxPayload || len(chunks[1]) != 10 {
		t.Fatalf("chunk sizes = %d, %d", len(chunks[0]), len(chunks[1]))
	}
	var rejoined []byte
	for _, c := range chunks {
		rejoined = append(rejoined, c...)
	}
	if !bytes.Equal(rejoined, data) {
		t.Fatalf("rejoined chunks don't match original data")
	}
}

func TestDatastorePutGetRoundTrip(t *testing.T) {
	var ds Datastore
	put, err := ds.BuildPut("k", "v")
	if err != nil {
		t.Fatalf("BuildPut: %v", err)
	}
	if !bytes.Equal(put, []byte{1, 'k', 'v'}) {
		t.Fatalf("BuildPut = % X", put)
	}

	if _, err := ds.BuildGet("k"); err != nil {
		t.Fatalf("BuildGet: %v", err)
	}
	if ds.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", ds.Pending())
	}

	resp := append([]byte{3}, []byte("val")...)
	key, value, err := ds.HandleGetResponse(resp)
	if err != nil {
		t.Fatalf("HandleGetResponse: %v", err)
	}
	if key != "k" || !bytes.Equal(value, []byte("val")) {
		t.Fatalf("got key=%q value=%q", key, value)
	}
	if ds.Pending() != 0 {
		t.Fatalf("Pending = %d, want 0", ds.Pending())
	}
}

func TestDatastoreGetResponseWithNoPending(t *testing.T) {
	var ds Datastore
	if _, _, err := ds.HandleGetResponse([]byte{0}); !errors.Is(err, ErrNoPendingKey) {
		t.Fatalf("expected ErrNoPendingKey, got %v", err)
	}
}

func TestDatastoreKeyTooLong(t *testing.T) {
	var ds Datastore
	longKey := string(bytes.Repeat([]byte{'a'}, MaxKeyLength+1))
	if _, err := ds.BuildGet(longKey); !errors.Is(err, ErrKeyTooLong) {
		t.Fatalf("expected ErrKeyTooLong, got %v", err)
	}
}

func TestMailboxResponses(t *testing.T) {
	readResp := append([]byte{0, 3}, []byte("hey")...)
	msg, err := Mailbox{}.ParseReadResponse(readResp)
	if err != nil {
		t.Fatalf("ParseReadResponse: %v", err)
	}
	if !bytes.Equal(msg, []byte("hey")) {
		t.Fatalf("msg = %q", msg)
	}

	count, err := Mailbox{}.ParseAvailableResponse([]byte{0, 5})
	if err != nil {
		t.Fatalf("ParseAvailableResponse: %v", err)
	}
	if count != 5 {
		t.Fatalf("count = %d, want 5", count)
	}
}

func TestFilesystemBuilders(t *testing.T) {
	header, err := Filesystem{}.BuildWrite("/tmp/foo")
	if err != nil {
		t.Fatalf("BuildWrite: %v", err)
	}
	if int(header[0]) != len("/tmp/foo") {
		t.Fatalf("path length prefix wrong: %d", header[0])
	}
	if _, err := Filesystem{}.BuildRead("/tmp/foo"); err != nil {
		t.Fatalf("BuildRead: %v", err)
	}
}

func TestProcessRunAndPollRoundTrip(t *testing.T) {
	var p Process
	run, err := p.BuildRun("echo hi")
	if err != nil {
		t.Fatalf("BuildRun: %v", err)
	}
	if string(run) != "echo hi" {
		t.Fatalf("BuildRun = %q", run)
	}

	poll, err := p.BuildPoll(42)
	if err != nil {
		t.Fatalf("BuildPoll: %v", err)
	}
	if len(poll) != 2 {
		t.Fatalf("BuildPoll payload len = %d, want 2", len(poll))
	}

	pollResp := []byte{0, 0, 0, 2, 'h', 'i', 0, 0}
	pid, result, err := p.HandlePollResponse(pollResp)
	if err != nil {
		t.Fatalf("HandlePollResponse: %v", err)
	}
	if pid != 42 {
		t.Fatalf("pid = %d, want 42", pid)
	}
	if !bytes.Equal(result.Stdout, []byte("hi")) {
		t.Fatalf("stdout = %q", result.Stdout)
	}
}

func TestSystemResponses(t *testing.T) {
	v, err := System{}.ParseGetVersionResponse([]byte{2, 1})
	if err != nil || v.Major != 2 || v.Minor != 1 {
		t.Fatalf("ParseGetVersionResponse = %+v %v", v, err)
	}
	mem, err := System{}.ParseGetFreeMemoryResponse([]byte{0x01, 0x00})
	if err != nil || mem != 256 {
		t.Fatalf("ParseGetFreeMemoryResponse = %d %v", mem, err)
	}
}

func TestGpioReadResponses(t *testing.T) {
	pin, high, err := Gpio{}.ParseDigitalReadResponse([]byte{3, 1})
	if err != nil || pin != 3 || !high {
		t.Fatalf("ParseDigitalReadResponse = %d %v %v", pin, high, err)
	}
	pin, value, err := Gpio{}.ParseAnalogReadResponse([]byte{5, 0x01, 0x00})
	if err != nil || pin != 5 || value != 256 {
		t.Fatalf("ParseAnalogReadResponse = %d %d %v", pin, value, err)
	}
}
