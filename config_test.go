package mateauth

import (
	"testing"
	"time"
)

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.JWT.AuthTTL != 30*time.Minute || cfg.JWT.VerificationTTL != 12*time.Hour {
		t.Fatalf("unexpected token TTLs: %+v", cfg.JWT)
	}
	if cfg.Session.RefreshTTL != 30*24*time.Hour {
		t.Fatalf("unexpected refresh TTL %v", cfg.Session.RefreshTTL)
	}
	if cfg.Security.MaxLoginAttempts != 5 || cfg.Security.LoginWindow != 300*time.Second {
		t.Fatalf("unexpected login throttle: %+v", cfg.Security)
	}

	// Key material is deliberately absent.
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected default config without a secret to be invalid")
	}
	cfg.JWT.PrivateKey = []byte(testSecret)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config with secret to be valid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "engine test config valid",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "jwt leeway valid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 45 * time.Second
			},
			wantValid: true,
		},
		{
			name: "jwt leeway invalid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "jwt audience padded invalid",
			mutate: func(c *Config) {
				c.JWT.Audience = " mate "
			},
			wantValid: false,
		},
		{
			name: "jwt signing invalid",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "rs256"
			},
			wantValid: false,
		},
		{
			name: "hs256 short secret invalid",
			mutate: func(c *Config) {
				c.JWT.PrivateKey = []byte("short")
			},
			wantValid: false,
		},
		{
			name: "verification ttl not above auth ttl invalid",
			mutate: func(c *Config) {
				c.JWT.VerificationTTL = c.JWT.AuthTTL
			},
			wantValid: false,
		},
		{
			name: "refresh ttl not above auth ttl invalid",
			mutate: func(c *Config) {
				c.Session.RefreshTTL = c.JWT.AuthTTL
			},
			wantValid: false,
		},
		{
			name: "negative index grace invalid",
			mutate: func(c *Config) {
				c.Session.IndexGrace = -time.Second
			},
			wantValid: false,
		},
		{
			name: "shared redis prefixes invalid",
			mutate: func(c *Config) {
				c.Security.RateLimitPrefix = c.Session.RedisPrefix
			},
			wantValid: false,
		},
		{
			name: "zero attempts invalid",
			mutate: func(c *Config) {
				c.Security.MaxLoginAttempts = 0
			},
			wantValid: false,
		},
		{
			name: "sub-second window invalid",
			mutate: func(c *Config) {
				c.Security.LoginWindow = 500 * time.Millisecond
			},
			wantValid: false,
		},
		{
			name: "weak password minimum invalid",
			mutate: func(c *Config) {
				c.Password.MinLength = 6
			},
			wantValid: false,
		},
		{
			name: "inverted username bounds invalid",
			mutate: func(c *Config) {
				c.Registration.MinUsernameLength = 10
				c.Registration.MaxUsernameLength = 5
			},
			wantValid: false,
		},
		{
			name: "enabled audit without buffer invalid",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := engineTestConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected invalid config")
			}
		})
	}
}

func TestBuilderRequiresDependencies(t *testing.T) {
	if _, err := New().WithConfig(engineTestConfig()).WithCredentialStore(newMemStore()).Build(); err == nil {
		t.Fatal("expected missing redis to fail Build")
	}

	mr, rdb := newTestRedis(t)
	defer mr.Close()
	if _, err := New().WithConfig(engineTestConfig()).WithRedis(rdb).Build(); err == nil {
		t.Fatal("expected missing credential store to fail Build")
	}

	b := New().WithConfig(engineTestConfig()).WithRedis(rdb).WithCredentialStore(newMemStore())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected builder reuse to fail")
	}
}

func TestWithConfigCopiesKeyMaterial(t *testing.T) {
	cfg := engineTestConfig()
	b := New().WithConfig(cfg)
	cfg.JWT.PrivateKey[0] = 'X'

	if b.config.JWT.PrivateKey[0] != testSecret[0] {
		t.Fatal("expected builder to hold its own copy of the key")
	}
}
