package authgate

import (
	"errors"
	"time"
)

// SessionConfig controls session token issuance.
type SessionConfig struct {
	// TokenTTL is the session lifetime. Expiry is enforced lazily at
	// validation time; there is no background sweeper.
	TokenTTL time.Duration
}

// OTPConfig controls the one-time code second factor.
type OTPConfig struct {
	Digits      int
	TTL         time.Duration
	MaxAttempts int
}

// TokenConfig controls single-purpose token lifetimes.
type TokenConfig struct {
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

// RateLimitConfig controls the fixed-window limiter guarding sensitive
// entry points. Keys are {prefix}:{client-ip}.
type RateLimitConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration
}

// PasswordConfig carries Argon2id parameters plus the minimum plaintext
// length accepted at signup and reset.
type PasswordConfig struct {
	MinLength   int
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DeliveryConfig shapes outbound email content. AppBaseURL is the
// prefix for verification and reset links.
type DeliveryConfig struct {
	AppBaseURL string
}

// AuditConfig controls the async sink mirror. The store write itself is
// always attempted; this only governs the observability tap.
type AuditConfig struct {
	BufferSize int
	DropIfFull bool
}

// MetricsConfig enables the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// BootstrapConfig is the first-run SUPER_ADMIN identity consumed by
// Engine.Seed. Ignored when the user already exists.
type BootstrapConfig struct {
	AdminEmail    string
	AdminUsername string
	AdminPhone    string
	AdminPassword string
}

// Config is the full engine configuration. Obtain a baseline from
// DefaultConfig and override what you need before Build.
type Config struct {
	Session   SessionConfig
	OTP       OTPConfig
	Tokens    TokenConfig
	RateLimit RateLimitConfig
	Password  PasswordConfig
	Delivery  DeliveryConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Bootstrap BootstrapConfig
}

// DefaultConfig returns the stock configuration: 7-day sessions,
// 6-digit/10-minute/5-attempt OTP, 24h verification and 1h reset tokens,
// 10 requests per 60s per IP on guarded endpoints.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			TokenTTL: 7 * 24 * time.Hour,
		},
		OTP: OTPConfig{
			Digits:      6,
			TTL:         10 * time.Minute,
			MaxAttempts: 5,
		},
		Tokens: TokenConfig{
			VerificationTTL: 24 * time.Hour,
			ResetTTL:        time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Limit:   10,
			Window:  60 * time.Second,
		},
		Password: PasswordConfig{
			MinLength:   8,
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Delivery: DeliveryConfig{
			AppBaseURL: "http://localhost:3000",
		},
		Audit: AuditConfig{
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.Session.TokenTTL <= 0 {
		return errors.New("session token TTL must be positive")
	}
	if c.OTP.Digits < 6 || c.OTP.Digits > 10 {
		return errors.New("otp digits must be between 6 and 10")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("otp TTL must be positive")
	}
	if c.OTP.MaxAttempts <= 0 {
		return errors.New("otp max attempts must be positive")
	}
	if c.Tokens.VerificationTTL <= 0 || c.Tokens.ResetTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Limit <= 0 {
			return errors.New("rate limit must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return errors.New("rate limit window must be positive")
		}
	}
	if c.Password.MinLength < 8 {
		return errors.New("password min length must be >= 8")
	}
	return nil
}
