// Package transport owns the byte-level link to the physical UART: a
// portable Port abstraction, COBS-framed read/write, a raw-frame
// retransmit cache, watermark-driven XON/XOFF flow control, and deferred
// baud-rate switching.
package transport

import (
	"time"

	"github.com/tarm/serial"
)

// Port abstracts the underlying UART so the link can be driven against a
// fake in tests without opening a real device.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// BaudSetter is an optional capability a Port may implement to allow a
// baud-rate change without closing and reopening the device. The default
// tarm/serial-backed port does not implement it; the Linux-specific port
// in port_linux.go does, via termios2 ioctls.
type BaudSetter interface {
	SetBaud(baud int) error
}

// Open opens name at baud using tarm/serial, the portable default Port
// implementation. It does not support SetBaud; a baud-rate change
// command against this Port requires a close/reopen, which the caller
// must perform itself if it needs that capability.
func Open(name string, baud int, readTimeout time.Duration) (Port, error) {
	cfg := &serial.Config{Name: name, Baud: baud, ReadTimeout: readTimeout}
	return serial.OpenPort(cfg)
}
