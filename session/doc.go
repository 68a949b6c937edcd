// Package session provides Redis-backed refresh sessions: an opaque refresh token maps to a
// small JSON record, and a per-user index set lists the live tokens so every session of a
// user can be revoked without scanning the keyspace.
//
// # Key layout
//
//   - {prefix}:{token}      session record, TTL = refresh lifetime
//   - {prefix}u:{user_id}   index set, TTL = newest session TTL + grace
//
// # Rotation
//
// Rotation is take-then-create. [Store.Take] reads and deletes a record in one script so a
// token can only be taken once; the caller then creates the replacement with [Store.Create].
// A crash between the two steps loses the session, it never duplicates it.
//
// # What this package must NOT do
//
//   - Import mateauth or jwt (no upward imports).
//   - Decide fingerprint policy beyond [Record.Accepts].
package session
