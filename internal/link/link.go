// Package link wires the link-layer packages — linkstate, txqueue,
// scheduler, dispatch, security and transport — into the single
// cooperative object a host-side or embedded-side process drives: one
// Link per physical UART, with no goroutines of its own.
package link

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/yunbridge/mculink/internal/dispatch"
	"github.com/yunbridge/mculink/internal/frame"
	"github.com/yunbridge/mculink/internal/linkstate"
	"github.com/yunbridge/mculink/internal/logging"
	"github.com/yunbridge/mculink/internal/metrics"
	"github.com/yunbridge/mculink/internal/scheduler"
	"github.com/yunbridge/mculink/internal/security"
	"github.com/yunbridge/mculink/internal/services"
	"github.com/yunbridge/mculink/internal/transport"
	"github.com/yunbridge/mculink/internal/txqueue"
	"github.com/yunbridge/mculink/internal/wire"
)

const (
	defaultAckTimeoutMs    = 200
	defaultRetryLimit      = 3
	defaultStartupStableMs = 50
	// defaultBaudSettleMs is how long the link waits, after emitting a
	// SET_BAUDRATE ack at the old rate, before actually switching the
	// port's baud — giving the ack time to clear the tx buffer at the
	// rate the peer is still listening on.
	defaultBaudSettleMs = 100
)

// Link is the top-level object: it owns the state machine, the outgoing
// queue, the timer bank, the dispatcher, the transport stream, and the
// handshake secret. Construct with NewLink and drive it by calling Tick
// once per cooperative loop iteration and ReadPort whenever the port has
// data.
type Link struct {
	port transport.Port
	in   transport.Stream

	state  linkstate.Machine
	queue  txqueue.Queue
	timers scheduler.Bank
	disp   *dispatch.Dispatcher
	secret *security.Secret
	logger *slog.Logger

	ackTimeoutMs uint32
	retryLimit   int

	nonceCounter uint64
	peerCounter  uint64

	// rxFlow watches this link's own RX accumulator and tells it when to
	// ask the peer to pause (CmdXOFF) or resume (CmdXON) sending.
	rxFlow *transport.FlowControl
	// peerPaused is true once the peer has sent us a CmdXOFF we haven't
	// seen a matching CmdXON for yet: new transmissions are withheld
	// until it clears.
	peerPaused bool

	// capabilities is what this link answers with to an inbound
	// CMD_GET_CAPABILITIES request, for whichever side of the link plays
	// the endpoint role.
	capabilities services.CapabilitiesInfo

	onFrame  func(frame.Frame)
	onStatus func(statusCode uint16)
}

// Option configures a Link at construction time.
type Option func(*Link)

// WithPort sets the transport this link reads from and writes to.
func WithPort(p transport.Port) Option { return func(l *Link) { l.port = p } }

// WithSecret sets the shared handshake secret.
func WithSecret(s *security.Secret) Option { return func(l *Link) { l.secret = s } }

// WithAckTimeout sets how long, in milliseconds, the link waits for an
// ACK to an in-flight critical command.
func WithAckTimeout(ms uint32) Option { return func(l *Link) { l.ackTimeoutMs = ms } }

// WithRetryLimit sets how many retransmits are attempted before an
// in-flight critical command times out back to Unsynchronized.
func WithRetryLimit(n int) Option { return func(l *Link) { l.retryLimit = n } }

// WithLogger overrides the package-global structured logger.
func WithLogger(lg *slog.Logger) Option { return func(l *Link) { l.logger = lg } }

// WithFrameHandler registers a callback invoked for every successfully
// dispatched, non-duplicate inbound frame the link did not fully handle
// itself. Handled internally, and not delivered here: flow-control
// frames, GET_CAPABILITIES and SET_BAUDRATE requests, unknown command
// ids, and status codes received while a critical command is in flight.
func WithFrameHandler(fn func(frame.Frame)) Option { return func(l *Link) { l.onFrame = fn } }

// WithStatusHandler registers a callback invoked for every status code
// received while a critical command is in flight, other than ACK and
// MALFORMED, which the link handles itself (retransmission control), and
// for the STATUS_TIMEOUT the link raises itself when an in-flight
// command's retries are exhausted. Only the status code is delivered.
func WithStatusHandler(fn func(statusCode uint16)) Option {
	return func(l *Link) { l.onStatus = fn }
}

// WithCapabilities sets what this link answers with when it receives an
// inbound CMD_GET_CAPABILITIES request, for whichever side of the link
// is playing the endpoint role.
func WithCapabilities(info services.CapabilitiesInfo) Option {
	return func(l *Link) { l.capabilities = info }
}

// NewLink constructs a Link. The link starts in linkstate.Unsynchronized
// and runs its power-on cryptographic self-test immediately; a failure
// fires EvCryptoFault, leaving the link permanently in Fault until an
// explicit Reset.
func NewLink(opts ...Option) *Link {
	l := &Link{
		ackTimeoutMs: defaultAckTimeoutMs,
		retryLimit:   defaultRetryLimit,
		logger:       logging.L(),
	}
	for _, o := range opts {
		o(l)
	}
	l.disp = dispatch.NewDispatcher(uint64(l.ackTimeoutMs) * uint64(l.retryLimit+1))
	l.rxFlow = transport.NewFlowControl(transport.RxBufferCap)

	if !security.SelfTest() {
		metrics.IncCryptoFault()
		l.state.Fire(linkstate.EvCryptoFault)
		l.logger.Error("crypto_self_test_failed")
	} else {
		l.timers.Start(scheduler.TimerStartupStabilization, defaultStartupStableMs, false, nil)
	}
	metrics.SetLinkState(int(l.state.State()))
	return l
}

// State returns the link's current state.
func (l *Link) State() linkstate.State {
	return l.state.State()
}

// Reset forces the link back to Unsynchronized, clearing the outgoing
// queue, the dedup history, and peer flow-control state, matching an
// EvReset.
func (l *Link) Reset() {
	l.state.Fire(linkstate.EvReset)
	l.queue.Reset()
	l.timers.Stop(scheduler.TimerAckTimeout)
	l.timers.Stop(scheduler.TimerRxDedupe)
	l.timers.Stop(scheduler.TimerBaudrateChange)
	l.disp.Reset()
	l.peerPaused = false
	metrics.SetLinkState(int(l.state.State()))
}

// BeginHandshake generates a fresh nonce and writes the nonce frame to
// the port. The caller supplies the command ID the handshake request
// frame should carry (system-command convention is CmdLinkSync).
func (l *Link) BeginHandshake(commandID uint16) error {
	nonce, err := security.GenerateNonce(&l.nonceCounter)
	if err != nil {
		return fmt.Errorf("link: begin handshake: %w", err)
	}
	raw, err := frame.Build(commandID, nonce[:])
	if err != nil {
		return fmt.Errorf("link: begin handshake: %w", err)
	}
	return l.writeRaw(raw)
}

// CompleteHandshake verifies a peer-returned tag against nonce and, on
// success, fires EvHandshakeComplete.
func (l *Link) CompleteHandshake(nonce, tag []byte) bool {
	if l.secret == nil || !security.VerifyTag(l.secret.Bytes(), nonce, tag) {
		metrics.IncHandshakeFailure()
		return false
	}
	if !security.ValidateNonceCounter(nonce, &l.peerCounter) {
		metrics.IncHandshakeFailure()
		return false
	}
	if err := l.state.Fire(linkstate.EvHandshakeComplete); err != nil {
		return false
	}
	metrics.SetLinkState(int(l.state.State()))
	return true
}

// SendCritical builds a frame for commandID/payload, pushes it to the
// outgoing queue, and — if the link is Idle — immediately writes it and
// arms the ACK timer. It fails if the link cannot currently accept a new
// critical send (AwaitingAck, Unsynchronized, or Fault) or the queue is
// full. The payload is RLE-compressed and the frame's compressed-payload
// flag set whenever wire.ShouldCompress judges it worthwhile.
func (l *Link) SendCritical(commandID uint16, payload []byte) error {
	if !l.state.CanSendCritical() {
		return fmt.Errorf("link: send critical: %w", &linkstate.ErrRejected{State: l.state.State(), Event: linkstate.EvSendCritical})
	}
	wireCommandID, wirePayload := commandID, payload
	if wire.ShouldCompress(payload) {
		wireCommandID |= frame.CompressedFlag
		wirePayload = wire.RLEEncode(payload)
	}
	raw, err := frame.Build(wireCommandID, wirePayload)
	if err != nil {
		return fmt.Errorf("link: send critical: %w", err)
	}
	if err := l.queue.Push(raw); err != nil {
		return fmt.Errorf("link: send critical: %w", err)
	}
	if err := l.state.Fire(linkstate.EvSendCritical); err != nil {
		return err
	}
	metrics.SetLinkState(int(l.state.State()))
	metrics.SetQueueDepth(l.queue.Len())
	return l.transmitHead()
}

func (l *Link) transmitHead() error {
	pf, ok := l.queue.Front()
	if !ok {
		return nil
	}
	if l.peerPaused {
		// The peer asked us to hold off; transmitHead runs again as
		// soon as its CmdXON arrives.
		return nil
	}
	if err := l.writeRaw(pf.Raw); err != nil {
		return err
	}
	l.timers.Start(scheduler.TimerAckTimeout, l.ackTimeoutMs, false, l.onAckTimeout)
	return nil
}

func (l *Link) onAckTimeout() {
	pf, ok := l.queue.Front()
	if !ok {
		return
	}
	if pf.Retries >= l.retryLimit {
		metrics.IncAckTimeout()
		l.state.Fire(linkstate.EvTimeout)
		metrics.SetLinkState(int(l.state.State()))
		l.queue.Pop()
		metrics.SetQueueDepth(l.queue.Len())
		if l.onStatus != nil {
			l.onStatus(frame.StatusTimeout)
		}
		return
	}
	pf.Retries++
	metrics.IncRetransmit("ack_timeout")
	l.writeRaw(pf.Raw)
	l.timers.Start(scheduler.TimerAckTimeout, l.ackTimeoutMs, false, l.onAckTimeout)
}

// AckReceived notifies the link that the peer acknowledged the in-flight
// critical command: it pops the queue head, stops the ACK timer, and
// fires EvAckReceived. Any remaining queued frame is transmitted next.
func (l *Link) AckReceived() error {
	metrics.IncAcksRx()
	l.timers.Stop(scheduler.TimerAckTimeout)
	if err := l.queue.Pop(); err != nil {
		return fmt.Errorf("link: ack received: %w", err)
	}
	metrics.SetQueueDepth(l.queue.Len())
	if err := l.state.Fire(linkstate.EvAckReceived); err != nil {
		return err
	}
	metrics.SetLinkState(int(l.state.State()))
	if l.queue.Len() > 0 {
		if err := l.state.Fire(linkstate.EvSendCritical); err != nil {
			return err
		}
		metrics.SetLinkState(int(l.state.State()))
		return l.transmitHead()
	}
	return nil
}

// RetransmitLast resends the most recently transmitted handshake or
// critical frame verbatim, in response to a peer's malformed-frame
// notification; status, ACK, flow-control and response frames are not
// cached and are never resent by it. This
// does not consume a retry from the in-flight frame's budget: corruption
// in transit is not the same failure as a missing ACK.
func (l *Link) RetransmitLast() error {
	raw, ok := l.queue.LastSent()
	if !ok {
		return fmt.Errorf("link: retransmit last: no frame has been sent yet")
	}
	metrics.IncRetransmit("malformed_notify")
	return l.writeRawNoRecord(raw)
}

func (l *Link) writeRaw(raw []byte) error {
	if err := l.writeRawNoRecord(raw); err != nil {
		return err
	}
	l.queue.RecordSent(raw)
	return nil
}

func (l *Link) writeRawNoRecord(raw []byte) error {
	if l.port == nil {
		return fmt.Errorf("link: write: no port configured")
	}
	packet := transport.EncodePacket(raw)
	if _, err := l.port.Write(packet); err != nil {
		metrics.IncError(metrics.ErrPortWrite)
		return fmt.Errorf("link: write: %w", err)
	}
	metrics.IncFramesTx()
	return nil
}

// ReadPort drains whatever bytes are currently available on the port and,
// outside the startup stabilization window, splits them into packets,
// dispatches each, and invokes the registered frame/status handlers.
// During stabilization the bytes are discarded without being fed to the
// COBS accumulator, to skip boot-time line noise, and nothing is
// dispatched this call. nowMs is the link's current cooperative-loop
// clock, used for receive-side dedup.
func (l *Link) ReadPort(nowMs uint64) error {
	if l.port == nil {
		return fmt.Errorf("link: read: no port configured")
	}
	buf := make([]byte, 512)
	n, err := l.port.Read(buf)
	if n > 0 {
		if l.timers.Active(scheduler.TimerStartupStabilization) {
			l.logger.Debug("startup_stabilization_drain", "bytes", n)
		} else {
			packets := l.in.Feed(buf[:n], func(err error) {
				metrics.IncMalformedFrame()
				l.logger.Debug("cobs_decode_error", "error", err)
			})
			for _, pkt := range packets {
				l.handlePacket(pkt, nowMs)
			}
			l.updateRxFlow()
		}
	}
	if err != nil {
		metrics.IncError(metrics.ErrPortRead)
		return fmt.Errorf("link: read: %w", err)
	}
	return nil
}

// updateRxFlow feeds the accumulator's current occupancy into rxFlow and
// emits CmdXOFF/CmdXON as its watermarks cross.
func (l *Link) updateRxFlow() {
	switch l.rxFlow.Update(l.in.Buffered()) {
	case transport.ActionSendXOFF:
		l.sendControlFrame(frame.CmdXOFF)
	case transport.ActionSendXON:
		l.sendControlFrame(frame.CmdXON)
	}
}

func (l *Link) handlePacket(pkt []byte, nowMs uint64) {
	res, err := l.disp.Dispatch(pkt, nowMs)
	if err != nil {
		l.logger.Debug("dispatch_error", "error", err)
		if errors.Is(err, frame.ErrCRCMismatch) {
			l.sendStatus(frame.StatusCRCMismatch, nil)
		} else {
			l.sendStatus(frame.StatusMalformed, nil)
		}
		return
	}
	metrics.IncFramesRx()
	logical := res.Frame.LogicalCommandID()

	if res.Duplicate {
		// Re-emit the ACK for a repeated delivery without re-invoking
		// any capability handler: the peer is retransmitting because it
		// never saw our first ACK, not because it wants the command run
		// twice.
		if res.NeedsAck {
			l.sendAck(logical)
		}
		return
	}
	// A frame within the retry window of the last one resets the
	// dedup-reset timer; once it fires with no further traffic, the
	// dispatcher's remembered-CRC table is cleared.
	l.timers.Start(scheduler.TimerRxDedupe, uint32(l.disp.RetryWindowMs()), false, l.disp.Reset)

	// The 0x00-0x07 id range is a dual/overlapping command-id space: the
	// same numbers name both status codes and a handful of system
	// requests. A status code is only meaningful relative to a command
	// this link currently has in flight, so that's the disambiguator —
	// with nothing outstanding the identical byte is a system request
	// instead (CategorySystem below already covers the same range).
	if logical <= frame.StatusAck && l.state.State() == linkstate.AwaitingAck {
		l.handleStatus(logical)
		return
	}

	switch res.Category {
	case frame.CategoryFlowControl:
		l.handleFlowControl(logical)
		return
	case frame.CategorySystem:
		if l.handleSystemRequest(logical, res.Frame.Payload) {
			return
		}
	case frame.CategoryUnknown:
		l.sendStatus(frame.StatusCmdUnknown, cmdIDPayload(logical))
		return
	}

	if res.NeedsAck {
		l.sendAck(logical)
	}
	if l.onFrame != nil {
		l.onFrame(res.Frame)
	}
}

// handleStatus reacts to an inbound status code (logical id <=
// frame.StatusAck). ACK and MALFORMED drive the retransmission
// controller directly; everything else is handed to the registered
// status callback, per the "senders treat Malformed on their in-flight
// command as an immediate retransmit signal; all other status frames
// are delivered to a user-registered status callback" error-handling
// policy.
func (l *Link) handleStatus(code uint16) {
	switch code {
	case frame.StatusAck:
		_ = l.AckReceived()
	case frame.StatusMalformed:
		if err := l.RetransmitLast(); err != nil {
			l.logger.Debug("retransmit_last_error", "error", err)
		}
	default:
		if l.onStatus != nil {
			l.onStatus(code)
		}
	}
}

// handleFlowControl updates whether sends to the peer are currently
// withheld. CmdXOFF/CmdXON are never ACKed and never reach onFrame.
func (l *Link) handleFlowControl(logical uint16) {
	switch logical {
	case frame.CmdXOFF:
		l.peerPaused = true
	case frame.CmdXON:
		l.peerPaused = false
		_ = l.transmitHead()
	}
}

// handleSystemRequest answers the system-category commands this link
// fully owns the response for (capabilities query, baud-rate change). It
// reports whether it handled logical, so the caller can skip the
// generic ACK/onFrame path for requests that already got their own
// response.
func (l *Link) handleSystemRequest(logical uint16, payload []byte) bool {
	switch logical {
	case frame.CmdGetCapabilities:
		l.sendCapabilitiesResponse()
		return true
	case frame.CmdSetBaudrate:
		l.handleSetBaudrate(payload)
		return true
	}
	return false
}

func (l *Link) sendCapabilitiesResponse() {
	resp := services.System{}.BuildGetCapabilitiesResponse(l.capabilities)
	raw, err := frame.Build(frame.CmdGetCapabilitiesResp, resp)
	if err != nil {
		return
	}
	_ = l.writeRawNoRecord(raw)
}

// handleSetBaudrate acks the baud-rate change request immediately, at
// the current baud, then arms TimerBaudrateChange to perform the actual
// switch after a settle delay — the ACK must reach the peer at the rate
// it's still listening on.
func (l *Link) handleSetBaudrate(payload []byte) {
	baud, err := services.System{}.ParseSetBaudrateRequest(payload)
	if err != nil {
		l.sendStatus(frame.StatusMalformed, nil)
		return
	}
	raw, err := frame.Build(frame.CmdSetBaudrateResp, services.System{}.BuildSetBaudrateResponse())
	if err != nil {
		return
	}
	_ = l.writeRawNoRecord(raw)

	bs, ok := l.port.(transport.BaudSetter)
	if !ok {
		l.logger.Debug("baud_change_unsupported", "baud", baud)
		return
	}
	l.timers.Start(scheduler.TimerBaudrateChange, defaultBaudSettleMs, false, func() {
		if err := bs.SetBaud(int(baud)); err != nil {
			l.logger.Error("baud_change_error", "error", err, "baud", baud)
		}
	})
}

func (l *Link) sendAck(forCommandID uint16) {
	l.sendStatus(frame.StatusAck, cmdIDPayload(forCommandID))
}

// sendStatus writes a status frame (ACK, MALFORMED, CRC_MISMATCH,
// CMD_UNKNOWN, ...) directly to the port. Status frames are never
// themselves queued or retried.
func (l *Link) sendStatus(code uint16, payload []byte) {
	raw, err := frame.Build(code, payload)
	if err != nil {
		return
	}
	_ = l.writeRawNoRecord(raw)
}

// sendControlFrame writes an XOFF/XON frame directly to the port. Flow
// control frames are never ACKed and never queued.
func (l *Link) sendControlFrame(cmd uint16) {
	raw, err := frame.Build(cmd, nil)
	if err != nil {
		return
	}
	_ = l.writeRawNoRecord(raw)
}

func cmdIDPayload(id uint16) []byte {
	return []byte{byte(id >> 8), byte(id)}
}

// Tick advances the link's timer bank by deltaMs. Call this once per
// cooperative loop iteration with the elapsed time since the last call.
func (l *Link) Tick(deltaMs uint32) {
	l.timers.Tick(deltaMs)
}

// Close wipes the handshake secret, if any.
func (l *Link) Close() {
	if l.secret != nil {
		l.secret.Close()
	}
}
