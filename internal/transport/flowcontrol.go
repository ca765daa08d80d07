package transport

// FlowControl implements software XON/XOFF flow control over a fraction
// of a receive buffer's capacity: it reports when the caller should emit
// an XOFF (high watermark reached, not yet paused) or an XON (drained
// back to the low watermark, currently paused). The 3/4 high and 1/4 low
// fractions match the ring-buffer watermarks the endpoint firmware uses
// for its own flow-controlled buffers.
type FlowControl struct {
	capacity int
	paused   bool
}

const (
	lowWaterNumerator  = 1
	highWaterNumerator = 3
	watermarkDenom     = 4
)

// NewFlowControl returns a FlowControl watching a buffer of the given
// capacity.
func NewFlowControl(capacity int) *FlowControl {
	return &FlowControl{capacity: capacity}
}

// Action is what the caller should do in response to the current
// buffer occupancy.
type Action int

const (
	// ActionNone means no flow-control frame needs to be sent.
	ActionNone Action = iota
	// ActionSendXOFF means the caller should emit CmdXOFF, asking the
	// peer to pause sending.
	ActionSendXOFF
	// ActionSendXON means the caller should emit CmdXON; the buffer has
	// drained back to the low watermark.
	ActionSendXON
)

// Update reports what action, if any, to take given the buffer's current
// occupied byte count.
func (f *FlowControl) Update(occupied int) Action {
	highWater := (f.capacity * highWaterNumerator) / watermarkDenom
	lowWater := (f.capacity * lowWaterNumerator) / watermarkDenom

	if !f.paused && occupied >= highWater {
		f.paused = true
		return ActionSendXOFF
	}
	if f.paused && occupied <= lowWater {
		f.paused = false
		return ActionSendXON
	}
	return ActionNone
}

// Paused reports whether the peer has been told to stop sending.
func (f *FlowControl) Paused() bool {
	return f.paused
}
