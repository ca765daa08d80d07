package services

import "fmt"

// MaxPathLength is the longest filesystem path the wire format carries.
const MaxPathLength = 64

// Filesystem builds CMD_FILE_WRITE/READ/REMOVE request payloads.
type Filesystem struct{}

// BuildWrite encodes the first (header) frame of a chunked file write:
// [path_len][path]. The caller sends the file data itself as one or more
// subsequent frames with the same command ID, matching the legacy
// "chunky frame" split of a header frame followed by data frames.
func (Filesystem) BuildWrite(path string) ([]byte, error) {
	if len(path) == 0 || len(path) > MaxPathLength {
		return nil, fmt.Errorf("services: file path %q: %w", path, ErrKeyTooLong)
	}
	header := make([]byte, 1+len(path))
	header[0] = byte(len(path))
	copy(header[1:], path)
	return header, nil
}

// BuildRead encodes a CMD_FILE_READ request payload (the path).
func (Filesystem) BuildRead(path string) ([]byte, error) {
	if len(path) == 0 || len(path) > MaxPathLength {
		return nil, fmt.Errorf("services: file path %q: %w", path, ErrKeyTooLong)
	}
	return []byte(path), nil
}

// BuildRemove encodes a CMD_FILE_REMOVE request payload (the path).
func (Filesystem) BuildRemove(path string) ([]byte, error) {
	return Filesystem{}.BuildRead(path)
}
