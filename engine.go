package mateauth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mateforge/mateauth/internal/audit"
	"github.com/mateforge/mateauth/internal/rate"
	"github.com/mateforge/mateauth/jwt"
	"github.com/mateforge/mateauth/notify"
	"github.com/mateforge/mateauth/password"
	"github.com/mateforge/mateauth/session"
)

// Engine implements registration, login, refresh rotation, logout and email
// verification. It is safe for concurrent use; all mutable state lives in
// Redis and the credential store.
type Engine struct {
	config        Config
	codec         *jwt.Codec
	sessions      *session.Store
	limiter       *rate.Limiter
	users         CredentialStore
	hasher        Hasher
	dummyDigest   string
	policy        password.Policy
	notifications *notify.Dispatcher
	audit         *audit.Dispatcher
	metrics       *Metrics
	logger        *slog.Logger
}

// Close flushes queued notifications and audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.notifications.Close()
	e.audit.Close()
}

// AuditDropped reports audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Ping checks Redis reachability.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.sessions.Ping(ctx); err != nil {
		return infrastructure("session store", err)
	}
	return nil
}

// Authenticate validates an access token and returns its subject.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (uuid.UUID, error) {
	start := time.Now()
	defer e.metricObserve(MetricAuthenticateLatency, start)

	userID, err := e.codec.Parse(accessToken, jwt.KindAuth)
	if err != nil {
		return uuid.Nil, mapTokenError(err)
	}
	return userID, nil
}

func (e *Engine) issuePair(ctx context.Context, userID uuid.UUID, fingerprint string) (*TokenPair, error) {
	access, err := e.codec.Issue(userID, jwt.KindAuth)
	if err != nil {
		return nil, infrastructure("issue access token", err)
	}
	refresh, err := e.sessions.Create(ctx, userID, session.NormalizeFingerprint(fingerprint), e.config.Session.RefreshTTL)
	if err != nil {
		return nil, infrastructure("create session", err)
	}
	e.metricInc(MetricSessionCreated)

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    TokenTypeBearer,
	}, nil
}

func mapTokenError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return ErrTokenInvalid
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, start time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}
