package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yunbridge/mculink/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"frames_rx", snap.FramesRx,
					"frames_tx", snap.FramesTx,
					"acks_rx", snap.AcksRx,
					"retransmits", snap.Retransmits,
					"ack_timeouts", snap.AckTimeouts,
					"dedup_hits", snap.DedupHits,
					"malformed_frames", snap.MalformedFrames,
					"handshake_failures", snap.HandshakeFailures,
					"crypto_faults", snap.CryptoFaults,
					"queue_depth", snap.QueueDepth,
					"link_state", snap.LinkState,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
