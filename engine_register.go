package mateauth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mateforge/mateauth/jwt"
)

const maxEmailLength = 254

// RegisterRequest is the input to [Engine.Register].
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates an unverified account and queues a verification message.
// Email is checked for uniqueness before username. Delivery failures are
// logged and never fail registration.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	email, err := validateEmail(req.Email)
	if err != nil {
		return nil, e.registerRejected(ctx, err, "email")
	}
	username, err := e.validateUsername(req.Username)
	if err != nil {
		return nil, e.registerRejected(ctx, err, "username")
	}
	if err := e.policy.Validate(req.Password); err != nil {
		return nil, e.registerRejected(ctx, validationFrom(err), "password_policy")
	}

	if err := e.ensureAbsent(ctx, email, username); err != nil {
		return nil, err
	}

	digest, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, e.registerRejected(ctx, validationFrom(err), "hash_policy")
	}

	user, err := e.users.Create(ctx, NewUser{
		Email:        email,
		Username:     username,
		PasswordHash: digest,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) || errors.Is(err, ErrUsernameTaken) {
			return nil, e.registerDuplicate(ctx, err, email)
		}
		return nil, infrastructure("credential store", err)
	}

	token, err := e.codec.Issue(user.ID, jwt.KindVerification)
	if err != nil {
		e.logger.ErrorContext(ctx, "register.verification_token.failed", "user_id", user.ID.String(), "err", err)
	} else {
		e.notifications.Enqueue(user.Email, token)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventAccountCreationSuccess, true, user.ID.String(), nil, nil)

	return user, nil
}

func (e *Engine) ensureAbsent(ctx context.Context, email, username string) error {
	if _, err := e.users.FindByEmail(ctx, email); err == nil {
		return e.registerDuplicate(ctx, ErrEmailTaken, email)
	} else if !errors.Is(err, ErrUserNotFound) {
		return infrastructure("credential store", err)
	}

	if _, err := e.users.FindByUsername(ctx, username); err == nil {
		return e.registerDuplicate(ctx, ErrUsernameTaken, email)
	} else if !errors.Is(err, ErrUserNotFound) {
		return infrastructure("credential store", err)
	}
	return nil
}

func (e *Engine) registerDuplicate(ctx context.Context, err error, email string) error {
	e.metricInc(MetricRegisterDuplicate)
	e.emitAudit(ctx, auditEventAccountCreationDuplicate, false, "", err, func() map[string]string {
		return map[string]string{
			"identifier": email,
		}
	})
	return err
}

func (e *Engine) registerRejected(ctx context.Context, err error, reason string) error {
	e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", err, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(raw string) (string, error) {
	email := normalizeEmail(raw)
	if email == "" {
		return "", ValidationError("email is required")
	}
	if len(email) > maxEmailLength {
		return "", ValidationError("email is too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", ValidationError("email is not a valid address")
	}
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || !strings.Contains(email[at+1:], ".") {
		return "", ValidationError("email is not a valid address")
	}
	return email, nil
}

func (e *Engine) validateUsername(raw string) (string, error) {
	username := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(username)
	if n < e.config.Registration.MinUsernameLength || n > e.config.Registration.MaxUsernameLength {
		return "", ValidationError("username length is out of range")
	}
	for _, r := range username {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", ValidationError("username must not contain whitespace")
		}
	}
	return username, nil
}
