package mateauth

import (
	"errors"
	"strings"
	"time"
)

// Config is the engine configuration. Start from [DefaultConfig] and
// override fields; [Builder.Build] validates it.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	JWT          JWTConfig
	Session      SessionConfig
	Security     SecurityConfig
	Password     PasswordConfig
	Registration RegistrationConfig
	Notification NotificationConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls access and verification tokens.
type JWTConfig struct {
	AuthTTL         time.Duration
	VerificationTTL time.Duration
	SigningMethod   string // "hs256" (default) or "ed25519"
	PrivateKey      []byte
	PublicKey       []byte
	Issuer          string
	Audience        string
	Leeway          time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls refresh sessions.
type SessionConfig struct {
	RefreshTTL  time.Duration
	RedisPrefix string
	IndexGrace  time.Duration
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig controls login throttling.
type SecurityConfig struct {
	MaxLoginAttempts int
	LoginWindow      time.Duration
	RateLimitPrefix  string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id parameters and the registration policy.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool

	MinLength    int
	RequireUpper bool
	RequireLower bool
	RequireDigit bool
}

/*
====================================
REGISTRATION CONFIG
====================================
*/

// RegistrationConfig bounds usernames accepted at registration.
type RegistrationConfig struct {
	MinUsernameLength int
	MaxUsernameLength int
}

/*
====================================
NOTIFICATION CONFIG
====================================
*/

// NotificationConfig controls the asynchronous verification sender.
type NotificationConfig struct {
	BufferSize int
	Timeout    time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults. Key material is left empty.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AuthTTL:         30 * time.Minute,
			VerificationTTL: 12 * time.Hour,
			SigningMethod:   "hs256",
		},
		Session: SessionConfig{
			RefreshTTL:  30 * 24 * time.Hour,
			RedisPrefix: "rt",
			IndexGrace:  time.Hour,
		},
		Security: SecurityConfig{
			MaxLoginAttempts: 5,
			LoginWindow:      300 * time.Second,
			RateLimitPrefix:  "rl",
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
			MinLength:      8,
			RequireUpper:   true,
			RequireLower:   true,
			RequireDigit:   true,
		},
		Registration: RegistrationConfig{
			MinUsernameLength: 3,
			MaxUsernameLength: 50,
		},
		Notification: NotificationConfig{
			BufferSize: 256,
			Timeout:    10 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AuthTTL <= 0 {
		return errors.New("JWT AuthTTL must be > 0")
	}
	if c.JWT.VerificationTTL <= c.JWT.AuthTTL {
		return errors.New("JWT VerificationTTL must be > AuthTTL")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	if c.JWT.Issuer != strings.TrimSpace(c.JWT.Issuer) || c.JWT.Audience != strings.TrimSpace(c.JWT.Audience) {
		return errors.New("JWT Issuer and Audience must not carry surrounding whitespace")
	}

	// Session
	if c.Session.RefreshTTL <= 0 {
		return errors.New("Session RefreshTTL must be > 0")
	}
	if c.Session.RefreshTTL <= c.JWT.AuthTTL {
		return errors.New("Session RefreshTTL must be > JWT AuthTTL")
	}
	if c.Session.IndexGrace < 0 {
		return errors.New("Session IndexGrace must be >= 0")
	}

	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}

	// Security
	if c.Security.MaxLoginAttempts <= 0 {
		return errors.New("Security MaxLoginAttempts must be > 0")
	}
	if c.Security.LoginWindow < time.Second {
		return errors.New("Security LoginWindow must be >= 1s")
	}
	if c.Security.RateLimitPrefix == "" || c.Security.RateLimitPrefix == c.Session.RedisPrefix {
		return errors.New("Security RateLimitPrefix must be non-empty and differ from Session RedisPrefix")
	}

	// Password
	if c.Password.MinLength < 8 {
		return errors.New("Password MinLength must be >= 8")
	}

	// Registration
	if c.Registration.MinUsernameLength <= 0 || c.Registration.MaxUsernameLength < c.Registration.MinUsernameLength {
		return errors.New("Registration username bounds are invalid")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Notification
	if c.Notification.BufferSize <= 0 {
		return errors.New("Notification BufferSize must be > 0")
	}

	return nil
}
