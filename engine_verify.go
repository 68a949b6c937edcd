package mateauth

import (
	"context"
	"errors"

	"github.com/mateforge/mateauth/jwt"
)

// VerifyEmail confirms the address behind a verification token. Verifying
// an already verified account succeeds.
func (e *Engine) VerifyEmail(ctx context.Context, token string) error {
	userID, err := e.codec.Parse(token, jwt.KindVerification)
	if err != nil {
		mapped := mapTokenError(err)
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventEmailVerificationConfirm, false, "", mapped, nil)
		return mapped
	}

	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricVerifyFailure)
			e.emitAudit(ctx, auditEventEmailVerificationConfirm, false, userID.String(), ErrUserNotFound, nil)
			return ErrUserNotFound
		}
		return infrastructure("credential store", err)
	}

	if !user.Verified {
		if err := e.users.MarkVerified(ctx, user.ID); err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return ErrUserNotFound
			}
			return infrastructure("credential store", err)
		}
	}

	e.metricInc(MetricVerifySuccess)
	e.emitAudit(ctx, auditEventEmailVerificationConfirm, true, user.ID.String(), nil, nil)
	return nil
}
