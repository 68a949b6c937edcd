// Package users is the Postgres-backed account store and the profile and
// subscription operations layered on it.
//
// [Repository] implements mateauth.CredentialStore so the engine can be built
// directly on it. [Service] adds profile reads, bio edits, account deletion
// and follow relations. Schema changes ship as goose migrations embedded in
// the migrations subpackage and are applied with [Migrate].
package users
