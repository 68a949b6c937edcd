package password

import (
	"errors"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrPasswordTooShort is returned when a password has fewer than MinLength characters.
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")
	// ErrPasswordNoUpper is returned when an uppercase letter is required but missing.
	ErrPasswordNoUpper = errors.New("password must contain at least one uppercase letter")
	// ErrPasswordNoLower is returned when a lowercase letter is required but missing.
	ErrPasswordNoLower = errors.New("password must contain at least one lowercase letter")
	// ErrPasswordNoDigit is returned when a digit is required but missing.
	ErrPasswordNoDigit = errors.New("password must contain at least one digit")
)

// Policy is the composite rule set applied to new passwords.
type Policy struct {
	MinLength    int
	RequireUpper bool
	RequireLower bool
	RequireDigit bool
}

// DefaultPolicy requires 8 characters with upper, lower and digit.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:    8,
		RequireUpper: true,
		RequireLower: true,
		RequireDigit: true,
	}
}

// Validate returns the first rule pw breaks, or nil. Length counts runes.
func (p Policy) Validate(pw string) error {
	if utf8.RuneCountInString(pw) < p.MinLength {
		return ErrPasswordTooShort
	}

	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	switch {
	case p.RequireUpper && !upper:
		return ErrPasswordNoUpper
	case p.RequireLower && !lower:
		return ErrPasswordNoLower
	case p.RequireDigit && !digit:
		return ErrPasswordNoDigit
	}
	return nil
}
