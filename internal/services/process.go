package services

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// pendingPidsCapacity bounds the FIFO of outstanding CMD_PROCESS_POLL
// requests the way the endpoint firmware's etl::queue does.
const pendingPidsCapacity = 8

// ErrNoPendingPid is returned by HandlePollResponse when a poll response
// arrives with no outstanding poll request to correlate it with.
var ErrNoPendingPid = errors.New("services: poll response with no pending request")

// RunResult is the parsed payload of a CMD_PROCESS_RUN_RESP or
// CMD_PROCESS_POLL_RESP frame: a status byte plus captured stdout/stderr.
type RunResult struct {
	Status uint8
	Stdout []byte
	Stderr []byte
}

// PollResult extends RunResult with the exit code a completed poll
// reports.
type PollResult struct {
	RunResult
	ExitCode int8
}

// Process builds CMD_PROCESS_RUN/RUN_ASYNC/POLL/KILL request payloads and
// parses their responses. Poll correlates responses to PIDs via a small
// FIFO, mirroring the firmware's pending-pid tracker.
type Process struct {
	pending [pendingPidsCapacity]uint16
	head    int
	size    int
}

// BuildRun encodes a CMD_PROCESS_RUN / CMD_PROCESS_RUN_ASYNC payload: the
// command line verbatim.
func (Process) BuildRun(command string) ([]byte, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("services: empty process command")
	}
	return []byte(command), nil
}

// BuildPoll encodes a CMD_PROCESS_POLL payload ([pid_be:2]) and tracks
// pid for response correlation.
func (p *Process) BuildPoll(pid uint16) ([]byte, error) {
	if p.size == pendingPidsCapacity {
		return nil, fmt.Errorf("services: poll pid %d: pending pid queue full", pid)
	}
	idx := (p.head + p.size) % pendingPidsCapacity
	p.pending[idx] = pid
	p.size++
	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload, pid)
	return payload, nil
}

// BuildKill encodes a CMD_PROCESS_KILL payload ([pid_be:2]).
func (Process) BuildKill(pid uint16) []byte {
	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload, pid)
	return payload
}

// ParseRunResponse parses a CMD_PROCESS_RUN_RESP payload:
// [status:1][stdout_len_be:2][stdout...][stderr_len_be:2][stderr...].
func ParseRunResponse(payload []byte) (RunResult, error) {
	var r RunResult
	if len(payload) < 1 {
		return r, fmt.Errorf("services: run response too short")
	}
	r.Status = payload[0]
	rest := payload[1:]
	stdout, rest, err := readLengthPrefixed(rest)
	if err != nil {
		return r, fmt.Errorf("services: run response stdout: %w", err)
	}
	stderr, _, err := readLengthPrefixed(rest)
	if err != nil {
		return r, fmt.Errorf("services: run response stderr: %w", err)
	}
	r.Stdout, r.Stderr = stdout, stderr
	return r, nil
}

// ParseRunAsyncResponse parses a CMD_PROCESS_RUN_ASYNC_RESP payload:
// [pid_be:2].
func ParseRunAsyncResponse(payload []byte) (uint16, error) {
	if len(payload) < 2 {
		return 0, fmt.Errorf("services: run-async response too short")
	}
	return binary.BigEndian.Uint16(payload[:2]), nil
}

// HandlePollResponse parses a CMD_PROCESS_POLL_RESP payload:
// [status:1][exit_code:1][stdout_len_be:2][stdout...][stderr_len_be:2][stderr...],
// and pops the oldest pending PID it correlates to.
func (p *Process) HandlePollResponse(payload []byte) (pid uint16, result PollResult, err error) {
	if p.size == 0 {
		return 0, PollResult{}, ErrNoPendingPid
	}
	if len(payload) < 2 {
		return 0, PollResult{}, fmt.Errorf("services: poll response too short")
	}
	result.Status = payload[0]
	result.ExitCode = int8(payload[1])
	rest := payload[2:]
	stdout, rest, err := readLengthPrefixed(rest)
	if err != nil {
		return 0, PollResult{}, fmt.Errorf("services: poll response stdout: %w", err)
	}
	stderr, _, err := readLengthPrefixed(rest)
	if err != nil {
		return 0, PollResult{}, fmt.Errorf("services: poll response stderr: %w", err)
	}
	result.Stdout, result.Stderr = stdout, stderr

	pid = p.pending[p.head]
	p.head = (p.head + 1) % pendingPidsCapacity
	p.size--
	return pid, result, nil
}

func readLengthPrefixed(buf []byte) (data, rest []byte, err error) {
	if len(buf) < 2 {
		return nil, nil, fmt.Errorf("length prefix truncated")
	}
	n := int(binary.BigEndian.Uint16(buf[:2]))
	if len(buf) < 2+n {
		return nil, nil, fmt.Errorf("data truncated")
	}
	return buf[2 : 2+n], buf[2+n:], nil
}
