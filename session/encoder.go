package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrSessionCorrupt is returned when a stored record cannot be decoded.
var ErrSessionCorrupt = errors.New("session record corrupt")

// Encode serializes r for storage.
func Encode(r Record) ([]byte, error) {
	if r.UserID == uuid.Nil {
		return nil, errors.New("session record without user id")
	}
	if len(r.Fingerprint) > MaxFingerprintLength {
		return nil, errors.New("fingerprint too long")
	}
	return json.Marshal(r)
}

// Decode parses a stored record.
func Decode(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	if r.UserID == uuid.Nil {
		return Record{}, fmt.Errorf("%w: missing user id", ErrSessionCorrupt)
	}
	if r.Fingerprint == "" {
		r.Fingerprint = FingerprintUnknown
	}
	return r, nil
}
