// Package middleware adapts mateauth.Engine to net/http.
//
// # Middleware
//
//   - [Guard]: requires an `Authorization: Bearer` access token and stores
//     the authenticated user id in the request context.
//   - [ClientIP]: records the caller address for audit events.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine.Authenticate).
//   - Access Redis.
package middleware
