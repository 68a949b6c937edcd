package mateauth

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds. Every error returned by [Engine] matches exactly one of these
// with errors.Is; transports map kinds to status codes.
var (
	// ErrValidation marks malformed input the caller must fix before retrying.
	ErrValidation = errors.New("validation error")
	// ErrConflict marks a duplicate resource or an ownership mismatch.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized marks a bad, expired or missing credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden marks an authenticated request denied by policy.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound marks a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrTooManyAttempts marks a rate-limited request; see [RateLimitError].
	ErrTooManyAttempts = errors.New("too many attempts")
	// ErrInfrastructure marks a store or database failure. Never retried internally.
	ErrInfrastructure = errors.New("infrastructure failure")
)

var (
	// ErrInvalidCredentials is returned for an unknown email and a wrong password alike.
	ErrInvalidCredentials = newKindError(ErrUnauthorized, "Invalid email or password", nil)
	// ErrEmailNotVerified is returned on login before the email is confirmed.
	ErrEmailNotVerified = newKindError(ErrUnauthorized, "Email not verified", nil)
	// ErrRefreshInvalid is returned for an unknown, expired or already rotated refresh token.
	ErrRefreshInvalid = newKindError(ErrUnauthorized, "Invalid or expired refresh token", nil)
	// ErrTokenInvalid is returned for a bad access or verification token.
	ErrTokenInvalid = newKindError(ErrUnauthorized, "Invalid token", nil)
	// ErrTokenExpired is returned for an access or verification token past expiry.
	ErrTokenExpired = newKindError(ErrUnauthorized, "Token expired", nil)
	// ErrFingerprintMismatch is returned when a refresh comes from a different client than
	// the one the session was bound to. The presented session is revoked.
	ErrFingerprintMismatch = newKindError(ErrForbidden, "Wrong device", nil)
	// ErrSessionNotOwned is returned when a caller logs out a session owned by someone else.
	ErrSessionNotOwned = newKindError(ErrConflict, "Invalid token", nil)
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = newKindError(ErrConflict, "Email already exists", nil)
	// ErrUsernameTaken is returned when registering a username that already exists.
	ErrUsernameTaken = newKindError(ErrConflict, "Username already exists", nil)
	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = newKindError(ErrNotFound, "User not found", nil)
	// ErrAlreadyFollowing is returned when a subscription already exists.
	ErrAlreadyFollowing = newKindError(ErrConflict, "Already following", nil)
	// ErrNotFollowing is returned when removing a subscription that does not exist.
	ErrNotFollowing = newKindError(ErrNotFound, "Not following", nil)
)

// kindError carries a caller-facing message, its kind and an optional cause.
type kindError struct {
	kind  error
	msg   string
	cause error
}

func newKindError(kind error, msg string, cause error) *kindError {
	return &kindError{kind: kind, msg: msg, cause: cause}
}

func (e *kindError) Error() string {
	return e.msg
}

func (e *kindError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

// ValidationError returns an [ErrValidation] error with msg as its message.
func ValidationError(msg string) error {
	return newKindError(ErrValidation, msg, nil)
}

func validationFrom(err error) error {
	return newKindError(ErrValidation, err.Error(), err)
}

// Infrastructure tags err as an [ErrInfrastructure] failure of op.
func Infrastructure(op string, err error) error {
	return infrastructure(op, err)
}

func infrastructure(op string, err error) error {
	return newKindError(ErrInfrastructure, op+": "+err.Error(), err)
}

// RateLimitError is returned when an attempt budget is exhausted.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Too many attempts. Try again in %d seconds.", int64(e.RetryAfter/time.Second))
}

// Is lets errors.Is(err, ErrTooManyAttempts) match.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrTooManyAttempts
}

// Message returns the caller-facing text for err. Infrastructure failures
// and unclassified errors collapse to a generic message.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrInfrastructure) || Kind(err) == nil {
		return "Internal server error"
	}
	return err.Error()
}

// Kind returns the kind sentinel err matches, or nil.
func Kind(err error) error {
	for _, kind := range []error{
		ErrValidation,
		ErrConflict,
		ErrUnauthorized,
		ErrForbidden,
		ErrNotFound,
		ErrTooManyAttempts,
		ErrInfrastructure,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
