package main

import "testing"

func TestApplyEnvOverridesFillsUnsetFields(t *testing.T) {
	t.Setenv("BRIDGE_LINK_SERIAL", "/dev/ttyACM1")
	t.Setenv("BRIDGE_LINK_BAUD", "9600")
	t.Setenv("BRIDGE_LINK_ACK_TIMEOUT_MS", "500")

	cfg := &appConfig{}
	cfg.SerialDev = "/dev/ttyUSB0"
	cfg.Baud = 115200
	cfg.AckTimeoutMs = 200

	if err := applyEnvOverrides(cfg, map[string]struct{}{}); err != nil {
		t.Fatalf("applyEnvOverrides: %v", err)
	}
	if cfg.SerialDev != "/dev/ttyACM1" {
		t.Fatalf("SerialDev = %q, want /dev/ttyACM1", cfg.SerialDev)
	}
	if cfg.Baud != 9600 {
		t.Fatalf("Baud = %d, want 9600", cfg.Baud)
	}
	if cfg.AckTimeoutMs != 500 {
		t.Fatalf("AckTimeoutMs = %d, want 500", cfg.AckTimeoutMs)
	}
}

func TestApplyEnvOverridesSkipsExplicitFlags(t *testing.T) {
	t.Setenv("BRIDGE_LINK_BAUD", "9600")

	cfg := &appConfig{}
	cfg.Baud = 115200
	set := map[string]struct{}{"baud": {}}

	if err := applyEnvOverrides(cfg, set); err != nil {
		t.Fatalf("applyEnvOverrides: %v", err)
	}
	if cfg.Baud != 115200 {
		t.Fatalf("Baud = %d, want 115200 (flag should win over env)", cfg.Baud)
	}
}

func TestApplyEnvOverridesRejectsInvalidDuration(t *testing.T) {
	t.Setenv("BRIDGE_LINK_LOG_METRICS_INTERVAL", "not-a-duration")

	cfg := &appConfig{}
	if err := applyEnvOverrides(cfg, map[string]struct{}{}); err == nil {
		t.Fatalf("expected an error for an invalid duration")
	}
}

func TestLoadSecretMissingEnv(t *testing.T) {
	cfg := &appConfig{secretEnvVar: "BRIDGE_LINK_SECRET_DOES_NOT_EXIST"}
	if _, err := loadSecret(cfg); err == nil {
		t.Fatalf("expected an error when the secret env var is unset")
	}
}

func TestLoadSecretPresent(t *testing.T) {
	t.Setenv("BRIDGE_LINK_SECRET_TEST", "topsecret")
	cfg := &appConfig{secretEnvVar: "BRIDGE_LINK_SECRET_TEST"}
	secret, err := loadSecret(cfg)
	if err != nil {
		t.Fatalf("loadSecret: %v", err)
	}
	if string(secret) != "topsecret" {
		t.Fatalf("secret = %q, want topsecret", secret)
	}
}
