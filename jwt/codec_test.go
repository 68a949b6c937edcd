package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newHSCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(Config{
		AuthTTL:         15 * time.Minute,
		VerificationTTL: 24 * time.Hour,
		SigningMethod:   MethodHS256,
		PrivateKey:      testSecret,
	})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return c
}

func TestIssueParseRoundTrip(t *testing.T) {
	c := newHSCodec(t)
	subject := uuid.New()

	for _, kind := range []Kind{KindAuth, KindVerification} {
		token, err := c.Issue(subject, kind)
		if err != nil {
			t.Fatalf("issue %s: %v", kind, err)
		}
		got, err := c.Parse(token, kind)
		if err != nil {
			t.Fatalf("parse %s: %v", kind, err)
		}
		if got != subject {
			t.Fatalf("expected subject %s, got %s", subject, got)
		}
	}
}

func TestParseRejectsKindMismatch(t *testing.T) {
	c := newHSCodec(t)
	token, err := c.Issue(uuid.New(), KindVerification)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := c.Parse(token, KindAuth); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestParseExpired(t *testing.T) {
	c := newHSCodec(t)
	issuedAt := time.Now().Add(-time.Hour)
	c.now = func() time.Time { return issuedAt }
	token, err := c.Issue(uuid.New(), KindAuth)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	c.now = time.Now

	if _, err := c.Parse(token, KindAuth); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerificationOutlivesAuth(t *testing.T) {
	c := newHSCodec(t)
	issuedAt := time.Now().Add(-time.Hour)
	c.now = func() time.Time { return issuedAt }
	auth, _ := c.Issue(uuid.New(), KindAuth)
	verify, _ := c.Issue(uuid.New(), KindVerification)
	c.now = time.Now

	if _, err := c.Parse(auth, KindAuth); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected auth token expired, got %v", err)
	}
	if _, err := c.Parse(verify, KindVerification); err != nil {
		t.Fatalf("expected verification token still valid, got %v", err)
	}
}

func TestParseRejectsBadSignature(t *testing.T) {
	c := newHSCodec(t)
	other, err := NewCodec(Config{
		AuthTTL:         time.Minute,
		VerificationTTL: time.Hour,
		SigningMethod:   MethodHS256,
		PrivateKey:      []byte("ffffffffffffffffffffffffffffffff"),
	})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	token, _ := other.Issue(uuid.New(), KindAuth)

	if _, err := c.Parse(token, KindAuth); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
	if _, err := c.Parse("not-a-token", KindAuth); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for garbage, got %v", err)
	}
}

func TestParseRejectsMalformedSubject(t *testing.T) {
	c := newHSCodec(t)
	for _, subject := range []string{"", "alice", uuid.Nil.String()} {
		claims := Claims{Kind: KindAuth, RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
		}}
		token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if _, err := c.Parse(token, KindAuth); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("subject %q: expected ErrTokenInvalid, got %v", subject, err)
		}
	}
}

func TestParseRejectsMissingExpiry(t *testing.T) {
	c := newHSCodec(t)
	claims := Claims{Kind: KindAuth, RegisteredClaims: gjwt.RegisteredClaims{Subject: uuid.NewString()}}
	token, _ := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)

	if _, err := c.Parse(token, KindAuth); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	ed, err := NewCodec(Config{
		AuthTTL:         time.Minute,
		VerificationTTL: time.Hour,
		SigningMethod:   MethodEd25519,
		PrivateKey:      priv,
	})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	hsToken, _ := newHSCodec(t).Issue(uuid.New(), KindAuth)
	if _, err := ed.Parse(hsToken, KindAuth); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected wrong algorithm to be rejected, got %v", err)
	}

	edToken, err := ed.Issue(uuid.New(), KindAuth)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ed.Parse(edToken, KindAuth); err != nil {
		t.Fatalf("expected ed25519 token to parse: %v", err)
	}
}

func TestParseIssuerAndAudience(t *testing.T) {
	c, err := NewCodec(Config{
		AuthTTL:         time.Minute,
		VerificationTTL: time.Hour,
		SigningMethod:   MethodHS256,
		PrivateKey:      testSecret,
		Issuer:          "mateauth",
		Audience:        "api",
	})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	claims := Claims{Kind: KindAuth, RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    "other",
		Audience:  gjwt.ClaimStrings{"api"},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	token, _ := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
	if _, err := c.Parse(token, KindAuth); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected wrong issuer to fail, got %v", err)
	}

	good, _ := c.Issue(uuid.New(), KindAuth)
	if _, err := c.Parse(good, KindAuth); err != nil {
		t.Fatalf("expected own token to parse: %v", err)
	}
}

func TestNewCodecValidation(t *testing.T) {
	cases := []Config{
		{AuthTTL: 0, VerificationTTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: testSecret},
		{AuthTTL: time.Hour, VerificationTTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: testSecret},
		{AuthTTL: time.Minute, VerificationTTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("short")},
		{AuthTTL: time.Minute, VerificationTTL: time.Hour, SigningMethod: "rs256", PrivateKey: testSecret},
		{AuthTTL: time.Minute, VerificationTTL: time.Hour, SigningMethod: MethodEd25519},
	}
	for i, cfg := range cases {
		if _, err := NewCodec(cfg); err == nil {
			t.Fatalf("case %d: expected config error", i)
		}
	}
}
