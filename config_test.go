package identity

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Token.TTL != 24*time.Hour {
		t.Fatalf("unexpected token TTL: %v", cfg.Token.TTL)
	}
	if cfg.PasswordReset.TokenTTL != 24*time.Hour {
		t.Fatalf("unexpected reset TTL: %v", cfg.PasswordReset.TokenTTL)
	}
	if cfg.TOTP.Digits != 6 || cfg.TOTP.Period != 30 || cfg.TOTP.Skew != 1 {
		t.Fatalf("unexpected TOTP defaults: %+v", cfg.TOTP)
	}
	if cfg.TOTP.BackupCodeCount != 8 || cfg.TOTP.BackupCodeLength != 8 {
		t.Fatalf("unexpected backup-code defaults: %+v", cfg.TOTP)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestConfigValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero token ttl", func(c *Config) { c.Token.TTL = 0 }},
		{"short totp digits", func(c *Config) { c.TOTP.Digits = 4 }},
		{"zero totp period", func(c *Config) { c.TOTP.Period = 0 }},
		{"negative skew", func(c *Config) { c.TOTP.Skew = -1 }},
		{"wide skew", func(c *Config) { c.TOTP.Skew = 5 }},
		{"no backup codes", func(c *Config) { c.TOTP.BackupCodeCount = 0 }},
		{"short backup codes", func(c *Config) { c.TOTP.BackupCodeLength = 4 }},
		{"zero reset ttl", func(c *Config) { c.PasswordReset.TokenTTL = 0 }},
		{"zero login attempts", func(c *Config) { c.Security.MaxLoginAttempts = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestBuildRequiresStores(t *testing.T) {
	cfg := engineTestConfig()

	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("Build without stores must fail")
	}

	b := New().WithConfig(cfg).WithStores(newMemUserStore(), newMemResetStore())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("a builder must not build twice")
	}
}
