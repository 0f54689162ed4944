package authcore

import (
	"testing"
	"time"

	"github.com/kmorrell/authcore/token"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero access ttl", func(c *Config) { c.Token.AccessTTL = 0 }},
		{"refresh shorter than access", func(c *Config) { c.Token.RefreshTTL = time.Minute }},
		{"bad signing method", func(c *Config) { c.Token.SigningMethod = "rs256" }},
		{"zero lockout threshold", func(c *Config) { c.Lockout.MaxFailures = 0 }},
		{"zero lockout window", func(c *Config) { c.Lockout.Window = 0 }},
		{"zero lockout duration", func(c *Config) { c.Lockout.Duration = 0 }},
		{"zero state ttl", func(c *Config) { c.OAuth.StateTTL = 0 }},
		{"account enabled without role", func(c *Config) { c.Account.DefaultRole = "" }},
		{"audit enabled without buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}},
		{"production without secret", func(c *Config) { c.ProductionMode = true }},
		{"production short secret", func(c *Config) {
			c.ProductionMode = true
			c.Token.Secret = []byte("short")
		}},
		{"production ed25519 without keys", func(c *Config) {
			c.ProductionMode = true
			c.Token.SigningMethod = token.MethodEd25519
		}},
		{"production long access ttl", func(c *Config) {
			c.ProductionMode = true
			c.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
			c.Token.AccessTTL = 48 * time.Hour
			c.Token.RefreshTTL = 96 * time.Hour
		}},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestConfigValidateLockoutDisabledSkipsChecks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Lockout = LockoutConfig{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestCloneConfigIsolatesSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")

	clone := cloneConfig(cfg)
	clone.Token.Secret[0] = 'X'

	if cfg.Token.Secret[0] == 'X' {
		t.Fatal("clone must not share the secret slice")
	}
}
