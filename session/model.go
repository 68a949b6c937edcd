package session

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// FingerprintUnknown marks a session created without a client fingerprint.
// Such sessions accept any fingerprint on the next refresh.
const FingerprintUnknown = "unknown"

// MaxFingerprintLength is the longest fingerprint stored verbatim. Longer
// fingerprints are stored and compared as a SHA-256 digest.
const MaxFingerprintLength = 1024

const fingerprintDigestPrefix = "sha256:"

// Record is the server-held state behind a refresh token.
type Record struct {
	UserID      uuid.UUID `json:"user_id"`
	Fingerprint string    `json:"fingerprint"`
	IssuedAt    int64     `json:"issued_at"`
}

// Accepts reports whether a refresh presenting fingerprint may use this record.
func (r Record) Accepts(fingerprint string) bool {
	if r.Fingerprint == FingerprintUnknown {
		return true
	}
	return r.Fingerprint == NormalizeFingerprint(fingerprint)
}

// NormalizeFingerprint maps an empty fingerprint to [FingerprintUnknown] and
// one longer than [MaxFingerprintLength] to its digest. It is idempotent.
func NormalizeFingerprint(fingerprint string) string {
	switch {
	case fingerprint == "":
		return FingerprintUnknown
	case len(fingerprint) > MaxFingerprintLength:
		sum := sha256.Sum256([]byte(fingerprint))
		return fingerprintDigestPrefix + hex.EncodeToString(sum[:])
	default:
		return fingerprint
	}
}
