package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yunbridge/mculink/internal/config"
)

type appConfig struct {
	config.Config
	serialReadTO    time.Duration
	logMetricsEvery time.Duration
	secretEnvVar    string
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	serialDev := flag.String("serial", "/dev/ttyUSB0", "Serial device path")
	baud := flag.Int("baud", 115200, "Serial baud rate")
	serialReadTO := flag.Duration("serial-read-timeout", 50*time.Millisecond, "Serial read timeout")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	ackTimeoutMs := flag.Int("ack-timeout-ms", 200, "Milliseconds to wait for an ACK before retransmitting")
	retryLimit := flag.Int("retry-limit", 3, "Retransmits attempted before the link falls back to unsynchronized")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters (for non-Prometheus setups)")
	secretEnvVar := flag.String("secret-env", "BRIDGE_LINK_SECRET", "Environment variable holding the shared handshake secret")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })

	cfg.SerialDev = *serialDev
	cfg.Baud = *baud
	cfg.serialReadTO = *serialReadTO
	cfg.LogFormat = *logFormat
	cfg.LogLevel = *logLevel
	cfg.MetricsAddr = *metricsAddr
	cfg.AckTimeoutMs = *ackTimeoutMs
	cfg.RetryLimit = *retryLimit
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.secretEnvVar = *secretEnvVar

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	if cfg.serialReadTO <= 0 {
		fmt.Println("configuration error: serial-read-timeout must be > 0")
		return nil, *showVersion
	}
	return cfg, *showVersion
}

// applyEnvOverrides maps BRIDGE_LINK_* environment variables onto cfg
// unless the corresponding flag was explicitly set, mirroring the
// flag-wins-over-env precedence of the original harness.
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }
	recordErr := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	if _, ok := set["serial"]; !ok {
		if v, ok := get("BRIDGE_LINK_SERIAL"); ok && v != "" {
			c.SerialDev = v
		}
	}
	if _, ok := set["baud"]; !ok {
		if v, ok := get("BRIDGE_LINK_BAUD"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.Baud = n
			} else if err != nil {
				recordErr(fmt.Errorf("invalid BRIDGE_LINK_BAUD: %w", err))
			}
		}
	}
	if _, ok := set["serial-read-timeout"]; !ok {
		if v, ok := get("BRIDGE_LINK_SERIAL_READ_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.serialReadTO = d
			} else if err != nil {
				recordErr(fmt.Errorf("invalid BRIDGE_LINK_SERIAL_READ_TIMEOUT: %w", err))
			}
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("BRIDGE_LINK_LOG_FORMAT"); ok && v != "" {
			c.LogFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("BRIDGE_LINK_LOG_LEVEL"); ok && v != "" {
			c.LogLevel = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("BRIDGE_LINK_METRICS"); ok {
			c.MetricsAddr = v
		}
	}
	if _, ok := set["ack-timeout-ms"]; !ok {
		if v, ok := get("BRIDGE_LINK_ACK_TIMEOUT_MS"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.AckTimeoutMs = n
			} else if err != nil {
				recordErr(fmt.Errorf("invalid BRIDGE_LINK_ACK_TIMEOUT_MS: %w", err))
			}
		}
	}
	if _, ok := set["retry-limit"]; !ok {
		if v, ok := get("BRIDGE_LINK_RETRY_LIMIT"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.RetryLimit = n
			} else if err != nil {
				recordErr(fmt.Errorf("invalid BRIDGE_LINK_RETRY_LIMIT: %w", err))
			}
		}
	}
	if _, ok := set["log-metrics-interval"]; !ok {
		if v, ok := get("BRIDGE_LINK_LOG_METRICS_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				c.logMetricsEvery = d
			} else if err != nil {
				recordErr(fmt.Errorf("invalid BRIDGE_LINK_LOG_METRICS_INTERVAL: %w", err))
			}
		}
	}
	if _, ok := set["secret-env"]; !ok {
		if v, ok := get("BRIDGE_LINK_SECRET_ENV"); ok && v != "" {
			c.secretEnvVar = v
		}
	}
	return firstErr
}

// loadSecret reads the shared handshake secret from the environment
// variable cfg.secretEnvVar names. It is never accepted as a flag value,
// since flags are visible in process listings.
func loadSecret(c *appConfig) ([]byte, error) {
	v, ok := os.LookupEnv(c.secretEnvVar)
	if !ok || v == "" {
		return nil, errors.New("bridge-link: " + c.secretEnvVar + " is not set")
	}
	return []byte(v), nil
}
