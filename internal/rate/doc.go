// Package rate provides Redis-backed fixed-window attempt counters.
//
// # Window semantics
//
// [Limiter.Increment] runs INCR and sets EXPIRE only while the key has no TTL, so the
// window opens on the first failure and later failures never extend it. A counter left
// without an expiry is given one on its next increment. [Limiter.Check] denies once the
// count reaches the limit and reports the remaining TTL as the retry hint.
//
// # What this package must NOT do
//
//   - Decide which operations are limited (callers build keys with [Key]).
//   - Be imported outside the mateauth module.
package rate
