package mateauth

import (
	"context"
	"errors"
	"time"

	"github.com/mateforge/mateauth/session"
)

// Refresh rotates refreshToken: the presented session is consumed and a new
// pair is issued for the same user and fingerprint. A token can be rotated
// at most once; concurrent rotations of the same token yield exactly one
// winner and [ErrRefreshInvalid] for the rest.
//
// When the session was bound to a different fingerprint Refresh fails with
// [ErrFingerprintMismatch] and the presented session stays revoked.
func (e *Engine) Refresh(ctx context.Context, refreshToken, fingerprint string) (*TokenPair, error) {
	start := time.Now()
	defer e.metricObserve(MetricRefreshLatency, start)

	rec, err := e.sessions.Take(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrSessionCorrupt) {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, "", ErrRefreshInvalid, nil)
			return nil, ErrRefreshInvalid
		}
		return nil, infrastructure("session store", err)
	}
	e.metricInc(MetricSessionRevoked)

	fingerprint = session.NormalizeFingerprint(fingerprint)
	if !rec.Accepts(fingerprint) {
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricFingerprintMismatch)
		e.emitAudit(ctx, auditEventRefreshFingerprintMismatch, false, rec.UserID.String(), ErrFingerprintMismatch, func() map[string]string {
			return map[string]string{
				"stored":    rec.Fingerprint,
				"presented": fingerprint,
			}
		})
		return nil, ErrFingerprintMismatch
	}

	pair, err := e.issuePair(ctx, rec.UserID, fingerprint)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, rec.UserID.String(), nil, nil)

	return pair, nil
}
