package mateauth

import (
	"context"
	"errors"
	"time"

	"github.com/mateforge/mateauth/internal/rate"
)

const rateScopeLogin = "login"

// Login authenticates email and password and opens a refresh session bound
// to fingerprint. An unknown email and a wrong password fail identically
// with [ErrInvalidCredentials] and both count against the email's attempt
// budget; after Config.Security.MaxLoginAttempts failures within the window
// Login fails with [*RateLimitError] until the window expires. A successful
// login resets the budget.
func (e *Engine) Login(ctx context.Context, email, password, fingerprint string) (*TokenPair, error) {
	start := time.Now()
	defer e.metricObserve(MetricLoginLatency, start)

	email = normalizeEmail(email)
	limitKey := e.limiter.Key(rateScopeLogin, email)

	if err := e.limiter.Check(ctx, limitKey, e.config.Security.MaxLoginAttempts); err != nil {
		var limitErr *rate.LimitError
		if errors.As(err, &limitErr) {
			rlErr := &RateLimitError{RetryAfter: limitErr.RetryAfter}
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, "", rlErr, func() map[string]string {
				return map[string]string{
					"identifier": email,
				}
			})
			e.emitRateLimit(ctx, rateScopeLogin, limitErr.RetryAfter)
			return nil, rlErr
		}
		return nil, infrastructure("rate limiter", err)
	}

	user, err := e.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, infrastructure("credential store", err)
	}
	if user == nil {
		_, _ = e.hasher.Verify(password, e.dummyDigest)
		return nil, e.loginFailed(ctx, limitKey, email, "")
	}

	ok, err := e.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		e.logger.WarnContext(ctx, "login.verify.error", "user_id", user.ID.String(), "err", err)
	}
	if !ok {
		return nil, e.loginFailed(ctx, limitKey, email, user.ID.String())
	}

	if !user.Verified {
		e.metricInc(MetricLoginUnverified)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID.String(), ErrEmailNotVerified, nil)
		return nil, ErrEmailNotVerified
	}

	e.maybeRehash(ctx, user, password)

	pair, err := e.issuePair(ctx, user.ID, fingerprint)
	if err != nil {
		return nil, err
	}

	if err := e.limiter.Reset(ctx, limitKey); err != nil {
		e.logger.WarnContext(ctx, "login.limiter.reset_failed", "err", err)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID.String(), nil, nil)

	return pair, nil
}

func (e *Engine) loginFailed(ctx context.Context, limitKey, email, userID string) error {
	if _, err := e.limiter.Increment(ctx, limitKey, e.config.Security.LoginWindow); err != nil {
		return infrastructure("rate limiter", err)
	}
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"identifier": email,
		}
	})
	return ErrInvalidCredentials
}

// maybeRehash upgrades legacy or outdated digests after a successful verify.
// Failures are logged; the login still succeeds.
func (e *Engine) maybeRehash(ctx context.Context, user *User, password string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	upgrade, err := e.hasher.NeedsUpgrade(user.PasswordHash)
	if err != nil || !upgrade {
		return
	}
	digest, err := e.hasher.Hash(password)
	if err != nil {
		e.logger.WarnContext(ctx, "login.rehash.failed", "user_id", user.ID.String(), "err", err)
		return
	}
	if err := e.users.UpdatePasswordHash(ctx, user.ID, digest); err != nil {
		e.logger.WarnContext(ctx, "login.rehash.store_failed", "user_id", user.ID.String(), "err", err)
		return
	}
	e.metricInc(MetricPasswordRehashed)
}
