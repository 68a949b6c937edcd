package mateauth

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/mateforge/mateauth/session"
)

// Logout revokes one refresh session owned by callerID. A token owned by
// another user fails with [ErrSessionNotOwned] and is left intact.
func (e *Engine) Logout(ctx context.Context, refreshToken string, callerID uuid.UUID) error {
	rec, err := e.sessions.Fetch(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrSessionCorrupt) {
			e.emitAudit(ctx, auditEventLogoutSession, false, callerID.String(), ErrRefreshInvalid, nil)
			return ErrRefreshInvalid
		}
		return infrastructure("session store", err)
	}

	if rec.UserID != callerID {
		e.emitAudit(ctx, auditEventLogoutSession, false, callerID.String(), ErrSessionNotOwned, nil)
		return ErrSessionNotOwned
	}

	removed, err := e.sessions.Revoke(ctx, callerID, refreshToken)
	if err != nil {
		return infrastructure("session store", err)
	}
	if removed {
		e.metricInc(MetricSessionRevoked)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogoutSession, true, callerID.String(), nil, nil)
	return nil
}

// LogoutAll revokes every refresh session of callerID. Calling it with no
// live sessions succeeds.
func (e *Engine) LogoutAll(ctx context.Context, callerID uuid.UUID) error {
	n, err := e.sessions.RevokeAll(ctx, callerID)
	if err != nil {
		return infrastructure("session store", err)
	}
	for i := 0; i < n; i++ {
		e.metricInc(MetricSessionRevoked)
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, callerID.String(), nil, func() map[string]string {
		return map[string]string{
			"revoked": strconv.Itoa(n),
		}
	})
	return nil
}

// ActiveSessions returns the number of live refresh sessions of userID.
func (e *Engine) ActiveSessions(ctx context.Context, userID uuid.UUID) (int, error) {
	tokens, err := e.sessions.Active(ctx, userID)
	if err != nil {
		return 0, infrastructure("session store", err)
	}
	return len(tokens), nil
}
