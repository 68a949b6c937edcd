// Package httpapi serves the mateauth engine and users service over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mateforge/mateauth"
	"github.com/mateforge/mateauth/internal/logging"
	"github.com/mateforge/mateauth/middleware"
	"github.com/mateforge/mateauth/users"
)

const defaultMaxBodyBytes = 1 << 20

// Engine is the authentication surface the API drives. *mateauth.Engine implements it.
type Engine interface {
	Register(ctx context.Context, req mateauth.RegisterRequest) (*mateauth.User, error)
	Login(ctx context.Context, email, password, fingerprint string) (*mateauth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken, fingerprint string) (*mateauth.TokenPair, error)
	VerifyEmail(ctx context.Context, token string) error
	Logout(ctx context.Context, refreshToken string, callerID uuid.UUID) error
	LogoutAll(ctx context.Context, callerID uuid.UUID) error
	Authenticate(ctx context.Context, accessToken string) (uuid.UUID, error)
	Ping(ctx context.Context) error
}

// Users is the profile surface. *users.Service implements it.
type Users interface {
	Public(ctx context.Context, id uuid.UUID) (*users.Profile, error)
	Private(ctx context.Context, id uuid.UUID) (*users.Account, error)
	UpdateBio(ctx context.Context, caller uuid.UUID, bio string) (*users.Account, error)
	DeleteAccount(ctx context.Context, caller uuid.UUID) error
	Follow(ctx context.Context, caller, author uuid.UUID) error
	Unfollow(ctx context.Context, caller, author uuid.UUID) error
	Followers(ctx context.Context, id uuid.UUID, limit, offset int) ([]users.Profile, error)
	Following(ctx context.Context, id uuid.UUID, limit, offset int) ([]users.Profile, error)
}

// Pinger reports dependency readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler owns the HTTP routes.
type Handler struct {
	engine       Engine
	users        Users
	database     Pinger
	metrics      http.Handler
	logger       *slog.Logger
	maxBodyBytes int64
}

// Option configures a Handler.
type Option func(*Handler)

// WithDatabase adds db to the readiness check.
func WithDatabase(db Pinger) Option {
	return func(h *Handler) { h.database = db }
}

// WithMetrics serves m at /metrics.
func WithMetrics(m http.Handler) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// NewHandler returns a Handler for engine and svc.
func NewHandler(engine Engine, svc Users, opts ...Option) *Handler {
	h := &Handler{
		engine:       engine,
		users:        svc,
		logger:       logging.Discard(),
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the complete handler tree wrapped in client IP tagging and
// request logging.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	guard := middleware.Guard(h.engine)

	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("POST /auth/refresh", h.handleRefresh)
	mux.HandleFunc("GET /auth/verify", h.handleVerify)
	mux.Handle("POST /auth/logout", guard(http.HandlerFunc(h.handleLogout)))
	mux.Handle("POST /auth/logout-all", guard(http.HandlerFunc(h.handleLogoutAll)))

	if h.users != nil {
		mux.Handle("GET /users/me", guard(http.HandlerFunc(h.handleMe)))
		mux.Handle("PATCH /users/me", guard(http.HandlerFunc(h.handleUpdateMe)))
		mux.Handle("DELETE /users/me", guard(http.HandlerFunc(h.handleDeleteMe)))
		mux.HandleFunc("GET /users/{id}", h.handleProfile)
		mux.Handle("POST /users/{id}/follow", guard(http.HandlerFunc(h.handleFollow)))
		mux.Handle("DELETE /users/{id}/follow", guard(http.HandlerFunc(h.handleUnfollow)))
		mux.HandleFunc("GET /users/{id}/followers", h.handleFollowers)
		mux.HandleFunc("GET /users/{id}/following", h.handleFollowing)
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("GET /readyz", h.handleReady)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}

	return WithRequestLogging(middleware.ClientIP(mux), h.logger)
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.engine.Ping(ctx); err != nil {
		h.logger.Info("readyz.redis.not_ready", "err", err)
		http.Error(w, "redis not ready", http.StatusServiceUnavailable)
		return
	}
	if h.database != nil {
		if err := h.database.Ping(ctx); err != nil {
			h.logger.Info("readyz.db.not_ready", "err", err)
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready\n"))
}
