package services

import "fmt"

// PinMode mirrors the pin modes the endpoint's GPIO driver accepts.
type PinMode uint8

const (
	PinModeInput PinMode = iota
	PinModeOutput
	PinModeInputPullup
)

// Gpio builds CMD_SET_PIN_MODE/DIGITAL_WRITE/ANALOG_WRITE/DIGITAL_READ/
// ANALOG_READ request payloads and parses their *_RESP payloads. GPIO
// requests carry the pin number in the response too, so no pending-queue
// correlation is needed the way datastore/process need one.
type Gpio struct{}

// BuildSetPinMode encodes [pin][mode].
func (Gpio) BuildSetPinMode(pin uint8, mode PinMode) []byte {
	return []byte{pin, byte(mode)}
}

// BuildDigitalWrite encodes [pin][value] (value is 0 or 1).
func (Gpio) BuildDigitalWrite(pin uint8, high bool) []byte {
	v := byte(0)
	if high {
		v = 1
	}
	return []byte{pin, v}
}

// BuildAnalogWrite encodes [pin][duty].
func (Gpio) BuildAnalogWrite(pin, duty uint8) []byte {
	return []byte{pin, duty}
}

// BuildDigitalRead encodes [pin].
func (Gpio) BuildDigitalRead(pin uint8) []byte {
	return []byte{pin}
}

// BuildAnalogRead encodes [pin].
func (Gpio) BuildAnalogRead(pin uint8) []byte {
	return []byte{pin}
}

// ParseDigitalReadResponse parses [pin][value] and returns the pin and
// whether it read high.
func (Gpio) ParseDigitalReadResponse(payload []byte) (pin uint8, high bool, err error) {
	if len(payload) < 2 {
		return 0, false, fmt.Errorf("services: digital read response too short")
	}
	return payload[0], payload[1] != 0, nil
}

// ParseAnalogReadResponse parses [pin][value_be:2].
func (Gpio) ParseAnalogReadResponse(payload []byte) (pin uint8, value uint16, err error) {
	if len(payload) < 3 {
		return 0, 0, fmt.Errorf("services: analog read response too short")
	}
	return payload[0], uint16(payload[1])<<8 | uint16(payload[2]), nil
}
