package identity

import (
	"errors"
	"time"

	"github.com/feedbackloop/identity/token"
)

// Config holds every tunable of the identity engine. Instances are set up
// once, validated by [Builder.Build], and treated as immutable afterwards.
type Config struct {
	Token         TokenConfig
	Password      PasswordConfig
	TOTP          TOTPConfig
	PasswordReset PasswordResetConfig
	Security      SecurityConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig configures bearer-token issuance. There is no revocation
// list: a signed token stays valid until its natural expiry, and logout is
// a client-side discard. TTL defaults to 24h.
type TokenConfig struct {
	TTL           time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	Secret        []byte // HS256 signing secret
	PrivateKey    []byte // Ed25519 keys, PEM or raw
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the Argon2id parameters.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
TOTP CONFIG
====================================
*/

// TOTPConfig configures the second factor. Skew counts adjacent time steps
// accepted on either side of the current one; the default of 1 tolerates
// ±30s of clock drift.
type TOTPConfig struct {
	Issuer    string
	Digits    int
	Period    int
	Algorithm string // "SHA1" (default), "SHA256", "SHA512"
	Skew      int

	BackupCodeCount  int
	BackupCodeLength int
}

/*
====================================
PASSWORD RESET CONFIG
====================================
*/

// PasswordResetConfig bounds the reset-token lifecycle.
type PasswordResetConfig struct {
	TokenTTL time.Duration
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig tunes the redis-backed attempt throttles. Throttling is
// active only when the builder is given a redis client.
type SecurityConfig struct {
	MaxLoginAttempts     int
	LoginCooldown        time.Duration
	MaxTwoFactorAttempts int
	TwoFactorCooldown    time.Duration
	MaxResetAttempts     int
	ResetCooldown        time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig configures the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the baseline configuration. Token keys must still
// be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL:           24 * time.Hour,
			SigningMethod: string(token.MethodHS256),
			Issuer:        "feedbackloop",
			Leeway:        30 * time.Second,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		TOTP: TOTPConfig{
			Issuer:           "feedbackloop",
			Digits:           6,
			Period:           30,
			Algorithm:        "SHA1",
			Skew:             1,
			BackupCodeCount:  8,
			BackupCodeLength: 8,
		},
		PasswordReset: PasswordResetConfig{
			TokenTTL: 24 * time.Hour,
		},
		Security: SecurityConfig{
			MaxLoginAttempts:     5,
			LoginCooldown:        15 * time.Minute,
			MaxTwoFactorAttempts: 5,
			TwoFactorCooldown:    10 * time.Minute,
			MaxResetAttempts:     5,
			ResetCooldown:        15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.Token.TTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	if c.TOTP.Digits < 6 || c.TOTP.Digits > 10 {
		return errors.New("totp digits must be between 6 and 10")
	}
	if c.TOTP.Period <= 0 {
		return errors.New("totp period must be positive")
	}
	if c.TOTP.Skew < 0 || c.TOTP.Skew > 2 {
		return errors.New("totp skew must be between 0 and 2")
	}
	if c.TOTP.BackupCodeCount <= 0 || c.TOTP.BackupCodeLength < 8 {
		return errors.New("backup code count must be positive and length >= 8")
	}
	if c.PasswordReset.TokenTTL <= 0 {
		return errors.New("reset token TTL must be positive")
	}
	if c.Security.MaxLoginAttempts <= 0 || c.Security.MaxTwoFactorAttempts <= 0 || c.Security.MaxResetAttempts <= 0 {
		return errors.New("attempt limits must be positive")
	}
	return nil
}
