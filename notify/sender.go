package notify

import (
	"context"
	"log/slog"
	"net/url"
)

// DefaultVerificationBase is the link prefix used when none is configured.
const DefaultVerificationBase = "http://localhost:8000/auth/verify?token="

// Sender delivers one verification message.
type Sender interface {
	SendVerification(ctx context.Context, email, token string) error
}

// VerificationLink appends the query-escaped token to base.
func VerificationLink(base, token string) string {
	if base == "" {
		base = DefaultVerificationBase
	}
	return base + url.QueryEscape(token)
}

// LogSender logs the verification link at info level.
type LogSender struct {
	logger *slog.Logger
	base   string
}

func NewLogSender(logger *slog.Logger, base string) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger, base: base}
}

func (s *LogSender) SendVerification(ctx context.Context, email, token string) error {
	s.logger.InfoContext(ctx, "notify.verification",
		"email", email,
		"link", VerificationLink(s.base, token),
	)
	return nil
}
