// Command bridge-link is a minimal host-side harness: it opens a serial
// device, wires it into a single internal/link.Link, and drives the
// link's cooperative ReadPort/Tick loop until told to stop. It performs
// no protocol logic of its own beyond the initial handshake and
// exposing Prometheus metrics — everything else lives in internal/link
// and the packages it wires together.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/yunbridge/mculink/internal/frame"
	"github.com/yunbridge/mculink/internal/link"
	"github.com/yunbridge/mculink/internal/linkstate"
	"github.com/yunbridge/mculink/internal/metrics"
	"github.com/yunbridge/mculink/internal/security"
	"github.com/yunbridge/mculink/internal/transport"
)

const loopInterval = 5 * time.Millisecond

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("bridge-link %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(1)
	}

	l := setupLogger(cfg.LogFormat, cfg.LogLevel)
	l.Info("build_info", "version", version, "commit", commit, "date", date)

	secretBytes, err := loadSecret(cfg)
	if err != nil {
		l.Error("secret_load_error", "error", err)
		os.Exit(1)
	}
	secret := security.NewSecret(secretBytes)
	defer secret.Close()

	port, err := transport.Open(cfg.SerialDev, cfg.Baud, cfg.serialReadTO)
	if err != nil {
		l.Error("serial_open_error", "error", err, "device", cfg.SerialDev)
		os.Exit(1)
	}
	defer port.Close()
	l.Info("serial_open", "device", cfg.SerialDev, "baud", cfg.Baud)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var lk *link.Link
	lk = link.NewLink(
		link.WithPort(port),
		link.WithSecret(secret),
		link.WithAckTimeout(uint32(cfg.AckTimeoutMs)),
		link.WithRetryLimit(cfg.RetryLimit),
		link.WithLogger(l),
		link.WithFrameHandler(func(f frame.Frame) {
			handleFrame(lk, l, f)
		}),
	)
	metrics.SetReadinessFunc(func() bool {
		s := lk.State()
		return (s == linkstate.Idle || s == linkstate.AwaitingAck) && ctx.Err() == nil
	})

	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	if cfg.MetricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		httpSrv := metrics.StartHTTP(cfg.MetricsAddr)
		defer func() { _ = httpSrv.Shutdown(context.Background()) }()
	}

	if err := lk.BeginHandshake(frame.CmdLinkSync); err != nil {
		l.Error("handshake_start_error", "error", err)
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	start := time.Now()
	lastTick := start
	ticker := time.NewTicker(loopInterval)
	defer ticker.Stop()

runLoop:
	for {
		select {
		case s := <-sigCh:
			l.Info("shutdown_signal", "signal", s.String())
			break runLoop
		case now := <-ticker.C:
			lk.Tick(uint32(now.Sub(lastTick).Milliseconds()))
			lastTick = now
			if err := lk.ReadPort(uint64(now.Sub(start).Milliseconds())); err != nil {
				l.Debug("read_port_error", "error", err)
			}
		}
	}

	cancel()
	wg.Wait()
}

// handleFrame reacts to frames the link could not fully process on its
// own: a link-sync response carries the nonce/tag pair needed to
// complete the handshake.
func handleFrame(lk *link.Link, l *slog.Logger, f frame.Frame) {
	if f.LogicalCommandID() != frame.CmdLinkSyncResp {
		return
	}
	if len(f.Payload) < security.NonceLength+security.TagLength {
		l.Error("handshake_response_malformed", "len", len(f.Payload))
		return
	}
	nonce := f.Payload[:security.NonceLength]
	tag := f.Payload[security.NonceLength : security.NonceLength+security.TagLength]
	if lk.CompleteHandshake(nonce, tag) {
		l.Info("handshake_complete")
	} else {
		l.Error("handshake_failed")
	}
}
