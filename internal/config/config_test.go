package config

import "testing"

func validConfig() Config {
	return Config{
		SerialDev:    "/dev/ttyUSB0",
		Baud:         115200,
		AckTimeoutMs: 200,
		RetryLimit:   3,
		LogFormat:    "text",
		LogLevel:     "info",
	}
}

func TestValidateAccepts(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero baud", func(c *Config) { c.Baud = 0 }},
		{"ack timeout below min", func(c *Config) { c.AckTimeoutMs = AckTimeoutMinMs - 1 }},
		{"ack timeout above max", func(c *Config) { c.AckTimeoutMs = AckTimeoutMaxMs + 1 }},
		{"retry limit below min", func(c *Config) { c.RetryLimit = RetryLimitMin - 1 }},
		{"retry limit above max", func(c *Config) { c.RetryLimit = RetryLimitMax + 1 }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"empty serial device", func(c *Config) { c.SerialDev = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Fatalf("Validate() = nil, want error")
			}
		})
	}
}
