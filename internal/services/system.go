package services

import (
	"encoding/binary"
	"fmt"
)

// VersionInfo is the parsed payload of a CMD_GET_VERSION_RESP frame.
type VersionInfo struct {
	Major uint8
	Minor uint8
}

// System builds CMD_GET_VERSION/CMD_GET_FREE_MEMORY request payloads
// (both empty) and parses their responses.
type System struct{}

// BuildGetVersion encodes the (empty) CMD_GET_VERSION request payload.
func (System) BuildGetVersion() []byte { return nil }

// ParseGetVersionResponse parses a CMD_GET_VERSION_RESP payload:
// [major][minor].
func (System) ParseGetVersionResponse(payload []byte) (VersionInfo, error) {
	if len(payload) < 2 {
		return VersionInfo{}, fmt.Errorf("services: get-version response too short")
	}
	return VersionInfo{Major: payload[0], Minor: payload[1]}, nil
}

// BuildGetFreeMemory encodes the (empty) CMD_GET_FREE_MEMORY request
// payload.
func (System) BuildGetFreeMemory() []byte { return nil }

// ParseGetFreeMemoryResponse parses a CMD_GET_FREE_MEMORY_RESP payload:
// [free_bytes_be:2].
func (System) ParseGetFreeMemoryResponse(payload []byte) (uint16, error) {
	if len(payload) < 2 {
		return 0, fmt.Errorf("services: get-free-memory response too short")
	}
	return binary.BigEndian.Uint16(payload[:2]), nil
}

// FeatureBits is the bitset carried in a CMD_GET_CAPABILITIES_RESP
// payload, one bit per optional hardware feature the target build
// compiled in.
type FeatureBits uint32

const (
	FeatureWatchdog FeatureBits = 1 << iota
	FeatureRLE
	FeatureEEPROM
	FeatureDAC
	FeatureSecondaryUART
	FeatureI2C
	FeatureFPU
	Feature3V3Logic
	FeatureLargeBuffer
)

// Has reports whether bit is set in f.
func (f FeatureBits) Has(bit FeatureBits) bool { return f&bit != 0 }

// CapabilitiesInfo is the parsed payload of a CMD_GET_CAPABILITIES_RESP
// frame: protocol version, target architecture id, pin counts, and the
// feature bitset.
type CapabilitiesInfo struct {
	ProtocolVersion uint8
	ArchID          uint8
	NumDigitalPins  uint8
	NumAnalogPins   uint8
	Features        FeatureBits
}

// BuildGetCapabilities encodes the (empty) CMD_GET_CAPABILITIES request
// payload.
func (System) BuildGetCapabilities() []byte { return nil }

// BuildGetCapabilitiesResponse encodes info as a CMD_GET_CAPABILITIES_RESP
// payload: [protocol_version][arch_id][num_digital][num_analog]
// [feature_bits_be:4].
func (System) BuildGetCapabilitiesResponse(info CapabilitiesInfo) []byte {
	out := make([]byte, 8)
	out[0] = info.ProtocolVersion
	out[1] = info.ArchID
	out[2] = info.NumDigitalPins
	out[3] = info.NumAnalogPins
	binary.BigEndian.PutUint32(out[4:8], uint32(info.Features))
	return out
}

// ParseGetCapabilitiesResponse parses a CMD_GET_CAPABILITIES_RESP
// payload into a CapabilitiesInfo.
func (System) ParseGetCapabilitiesResponse(payload []byte) (CapabilitiesInfo, error) {
	if len(payload) < 8 {
		return CapabilitiesInfo{}, fmt.Errorf("services: get-capabilities response too short")
	}
	return CapabilitiesInfo{
		ProtocolVersion: payload[0],
		ArchID:          payload[1],
		NumDigitalPins:  payload[2],
		NumAnalogPins:   payload[3],
		Features:        FeatureBits(binary.BigEndian.Uint32(payload[4:8])),
	}, nil
}

// BuildSetBaudrate encodes a CMD_SET_BAUDRATE request payload: a 4-byte
// big-endian rate in baud.
func (System) BuildSetBaudrate(baud uint32) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, baud)
	return out
}

// ParseSetBaudrateRequest decodes an inbound CMD_SET_BAUDRATE payload
// into the requested baud rate.
func (System) ParseSetBaudrateRequest(payload []byte) (uint32, error) {
	if len(payload) < 4 {
		return 0, fmt.Errorf("services: set-baudrate request too short")
	}
	return binary.BigEndian.Uint32(payload[:4]), nil
}

// BuildSetBaudrateResponse encodes the (empty) CMD_SET_BAUDRATE_RESP
// payload, sent at the old baud rate before the physical switch occurs.
func (System) BuildSetBaudrateResponse() []byte { return nil }
