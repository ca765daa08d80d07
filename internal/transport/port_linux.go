//go:build linux

package transport

import (
	"fmt"
	"time"

	goserial "github.com/daedaluz/goserial"
)

// LinuxPort wraps github.com/daedaluz/goserial to provide a Port that
// also implements BaudSetter: the baud rate can be changed in place via
// the termios2 ioctl, without closing the file descriptor, which is what
// lets a deferred baud-rate change apply cleanly from a timer callback
// after the ACK for the triggering command has already gone out at the
// old rate.
type LinuxPort struct {
	port *goserial.Port
}

// OpenLinux opens name at baud using the termios2-capable goserial
// backend. readTimeout of zero or less disables read timeouts.
func OpenLinux(name string, baud int, readTimeout time.Duration) (*LinuxPort, error) {
	opts := goserial.NewOptions()
	if readTimeout > 0 {
		opts.SetReadTimeout(readTimeout)
	}
	p, err := goserial.Open(name, opts)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", name, err)
	}
	lp := &LinuxPort{port: p}
	if err := lp.SetBaud(baud); err != nil {
		p.Close()
		return nil, err
	}
	return lp, nil
}

func (p *LinuxPort) Read(b []byte) (int, error)  { return p.port.Read(b) }
func (p *LinuxPort) Write(b []byte) (int, error) { return p.port.Write(b) }
func (p *LinuxPort) Close() error                { return p.port.Close() }

// SetBaud applies a new baud rate in place via termios2, satisfying
// transport.BaudSetter.
func (p *LinuxPort) SetBaud(baud int) error {
	attrs, err := p.port.GetAttr2()
	if err != nil {
		return fmt.Errorf("transport: get attrs: %w", err)
	}
	attrs.SetCustomSpeed(uint32(baud))
	if err := p.port.SetAttr2(goserial.TCSANOW, attrs); err != nil {
		return fmt.Errorf("transport: set baud %d: %w", baud, err)
	}
	return nil
}

var _ BaudSetter = (*LinuxPort)(nil)
