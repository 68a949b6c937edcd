// Package password hashes and verifies account passwords and checks the composite
// password policy applied at registration.
//
// # Output format
//
// New hashes are Argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Digests written by older deployments with bcrypt ($2a$, $2b$, $2y$) still verify, and
// [Hasher.NeedsUpgrade] reports them so the caller can rehash after a successful login.
// Argon2id hashes made with weaker parameters are reported the same way.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive digests.
//   - Import any other mateauth package.
//   - Log plaintext passwords.
package password
