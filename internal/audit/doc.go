// Package audit dispatches security-relevant events (logins, refreshes, revocations,
// registrations) to a sink off the request path.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines writer, slog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event]: structured record with a ULID, timestamp, type, user, IP and metadata.
//
// # What this package must NOT do
//
//   - Decide which events to emit; the engine does.
//   - Import mateauth or any sibling internal package.
package audit
