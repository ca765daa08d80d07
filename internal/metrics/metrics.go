// Package metrics exposes the link's Prometheus counters and gauges,
// plus a cheap in-process atomic mirror for structured log snapshots
// without round-tripping through the Prometheus registry.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yunbridge/mculink/internal/logging"
)

// Prometheus counters and gauges.
var (
	FramesRx = promauto.NewCounter(prometheus.CounterOpts{
		Name: "link_frames_rx_total",
		Help: "Total frames successfully parsed from the serial link.",
	})
	FramesTx = promauto.NewCounter(prometheus.CounterOpts{
		Name: "link_frames_tx_total",
		Help: "Total frames written to the serial link.",
	})
	AcksRx = promauto.NewCounter(prometheus.CounterOpts{
		Name: "link_acks_rx_total",
		Help: "Total ACK frames received for in-flight critical commands.",
	})
	Retransmits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "link_retransmits_total",
		Help: "Total frame retransmissions.",
	})
	RetransmitsByReason = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "link_retransmits_by_reason_total",
		Help: "Retransmissions broken down by trigger (ack_timeout, malformed_notify).",
	}, []string{"reason"})
	AckTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "link_ack_timeouts_total",
		Help: "Total ACK timeouts that exhausted the retry budget.",
	})
	DedupHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "link_dedup_hits_total",
		Help: "Total inbound frames suppressed as duplicates within the retry window.",
	})
	MalformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "link_malformed_frames_total",
		Help: "Total rejected malformed frames (crc mismatch, bad header, truncated).",
	})
	HandshakeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "link_handshake_failures_total",
		Help: "Total rejected handshake tags.",
	})
	CryptoFaults = promauto.NewCounter(prometheus.CounterOpts{
		Name: "link_crypto_faults_total",
		Help: "Total power-on cryptographic self-test failures.",
	})
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "link_tx_queue_depth",
		Help: "Current number of frames queued for transmission.",
	})
	LinkState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "link_state",
		Help: "Current link state: 0=unsynchronized, 1=idle, 2=awaiting_ack, 3=fault.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality).
const (
	ErrPortRead   = "port_read"
	ErrPortWrite  = "port_write"
	ErrTxOverflow = "tx_overflow"
	ErrHandshake  = "handshake"
	ErrCrypto     = "crypto"
)

// StartHTTP serves Prometheus metrics at /metrics and a readiness probe
// at /ready.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for cheap structured-log snapshots.
var (
	localFramesRx     uint64
	localFramesTx     uint64
	localAcksRx       uint64
	localRetransmits  uint64
	localAckTimeouts  uint64
	localDedupHits    uint64
	localMalformed    uint64
	localHandshakeErr uint64
	localCryptoFault  uint64
	localErrors       uint64
	localQueueDepth   uint64
	localLinkState    uint64
)

// Snapshot is a cheap copy of the local atomic counters.
type Snapshot struct {
	FramesRx          uint64
	FramesTx          uint64
	AcksRx            uint64
	Retransmits       uint64
	AckTimeouts       uint64
	DedupHits         uint64
	MalformedFrames   uint64
	HandshakeFailures uint64
	CryptoFaults      uint64
	Errors            uint64
	QueueDepth        uint64
	LinkState         uint64
}

// Snap returns the current Snapshot.
func Snap() Snapshot {
	return Snapshot{
		FramesRx:          atomic.LoadUint64(&localFramesRx),
		FramesTx:          atomic.LoadUint64(&localFramesTx),
		AcksRx:            atomic.LoadUint64(&localAcksRx),
		Retransmits:       atomic.LoadUint64(&localRetransmits),
		AckTimeouts:       atomic.LoadUint64(&localAckTimeouts),
		DedupHits:         atomic.LoadUint64(&localDedupHits),
		MalformedFrames:   atomic.LoadUint64(&localMalformed),
		HandshakeFailures: atomic.LoadUint64(&localHandshakeErr),
		CryptoFaults:      atomic.LoadUint64(&localCryptoFault),
		Errors:            atomic.LoadUint64(&localErrors),
		QueueDepth:        atomic.LoadUint64(&localQueueDepth),
		LinkState:         atomic.LoadUint64(&localLinkState),
	}
}

func IncFramesRx() {
	FramesRx.Inc()
	atomic.AddUint64(&localFramesRx, 1)
}

func IncFramesTx() {
	FramesTx.Inc()
	atomic.AddUint64(&localFramesTx, 1)
}

func IncAcksRx() {
	AcksRx.Inc()
	atomic.AddUint64(&localAcksRx, 1)
}

// IncRetransmit records a retransmission and its trigger: "ack_timeout"
// or "malformed_notify".
func IncRetransmit(reason string) {
	Retransmits.Inc()
	RetransmitsByReason.WithLabelValues(reason).Inc()
	atomic.AddUint64(&localRetransmits, 1)
}

func IncAckTimeout() {
	AckTimeouts.Inc()
	atomic.AddUint64(&localAckTimeouts, 1)
}

func IncDedupHit() {
	DedupHits.Inc()
	atomic.AddUint64(&localDedupHits, 1)
}

func IncMalformedFrame() {
	MalformedFrames.Inc()
	atomic.AddUint64(&localMalformed, 1)
}

func IncHandshakeFailure() {
	HandshakeFailures.Inc()
	atomic.AddUint64(&localHandshakeErr, 1)
}

func IncCryptoFault() {
	CryptoFaults.Inc()
	atomic.AddUint64(&localCryptoFault, 1)
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// SetQueueDepth records the current tx queue depth.
func SetQueueDepth(n int) {
	QueueDepth.Set(float64(n))
	atomic.StoreUint64(&localQueueDepth, uint64(n))
}

// SetLinkState records the current link state as its ordinal value,
// matching internal/linkstate.State's iota order.
func SetLinkState(n int) {
	LinkState.Set(float64(n))
	atomic.StoreUint64(&localLinkState, uint64(n))
}

// InitBuildInfo sets the build info gauge and pre-registers the known
// error label series so the first error of each kind doesn't pay
// registration latency.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{ErrPortRead, ErrPortWrite, ErrTxOverflow, ErrHandshake, ErrCrypto} {
		Errors.WithLabelValues(lbl).Add(0)
	}
	for _, reason := range []string{"ack_timeout", "malformed_notify"} {
		RetransmitsByReason.WithLabelValues(reason).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}

// Ready is a concise alias used at call sites.
func Ready() bool { return IsReady() }
