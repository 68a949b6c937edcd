// Package mateauth provides the authentication core of the mate services:
// registration with email verification, password login, rotating refresh
// sessions bound to a client fingerprint, and logout.
//
// Access and verification tokens are signed JWTs that are never stored.
// Refresh tokens are opaque and live in Redis next to a per-user index so
// every session of a user can be revoked at once. Login attempts are
// throttled per email with a fixed-window counter in the same Redis.
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build].
//
// # Errors
//
// Every error returned by [Engine] matches exactly one kind sentinel
// ([ErrValidation], [ErrConflict], [ErrUnauthorized], [ErrForbidden],
// [ErrNotFound], [ErrTooManyAttempts], [ErrInfrastructure]) with errors.Is.
// Use [Kind] to classify and [Message] for caller-facing text.
//
// # What this package must NOT do
//
//   - Expose Redis clients or session encoding in its public API.
//   - Retry failed store operations.
//   - Tell callers whether an email exists on a failed login.
package mateauth
