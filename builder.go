package mateauth

import (
	"errors"
	"log/slog"

	"github.com/mateforge/mateauth/internal/audit"
	"github.com/mateforge/mateauth/internal/rate"
	"github.com/mateforge/mateauth/jwt"
	"github.com/mateforge/mateauth/notify"
	"github.com/mateforge/mateauth/password"
	"github.com/mateforge/mateauth/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users     CredentialStore
	hasher    Hasher
	notifier  Notifier
	auditSink AuditSink
	logger    *slog.Logger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client shared by the session store and the rate limiter.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.users = store
	return b
}

// WithHasher overrides the Argon2id hasher built from Config.Password.
func (b *Builder) WithHasher(h Hasher) *Builder {
	b.hasher = h
	return b
}

// WithNotifier sets the verification sender. Without one, links are logged.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.users == nil {
		return nil, errors.New("credential store required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	codec, err := jwt.NewCodec(jwt.Config{
		AuthTTL:         cfg.JWT.AuthTTL,
		VerificationTTL: cfg.JWT.VerificationTTL,
		SigningMethod:   jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:      cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:       cloneBytes(cfg.JWT.PublicKey),
		Issuer:          cfg.JWT.Issuer,
		Audience:        cfg.JWT.Audience,
		Leeway:          cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	hasher := b.hasher
	if hasher == nil {
		ph, err := password.NewHasher(password.Config{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		})
		if err != nil {
			return nil, err
		}
		hasher = ph
	}

	// Verified against on unknown emails so both failure paths cost one hash.
	dummy, err := hasher.Hash("mateauth-timing-equalizer-0")
	if err != nil {
		return nil, err
	}

	var sender notify.Sender = b.notifier
	if b.notifier == nil {
		sender = notify.NewLogSender(logger, "")
	}

	engine := &Engine{
		config:      cfg,
		codec:       codec,
		sessions:    session.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.IndexGrace),
		limiter:     rate.New(b.redis, cfg.Security.RateLimitPrefix),
		users:       b.users,
		hasher:      hasher,
		dummyDigest: dummy,
		policy: password.Policy{
			MinLength:    cfg.Password.MinLength,
			RequireUpper: cfg.Password.RequireUpper,
			RequireLower: cfg.Password.RequireLower,
			RequireDigit: cfg.Password.RequireDigit,
		},
		notifications: notify.NewDispatcher(sender, notify.Config{
			BufferSize: cfg.Notification.BufferSize,
			Timeout:    cfg.Notification.Timeout,
		}, logger),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger,
	}

	b.built = true

	return engine, nil
}
