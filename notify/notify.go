// Package notify abstracts outbound delivery of password-reset tokens. The
// engine hands a notification to a [Sender]; transports (email, SMS) live
// behind the interface.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// PasswordResetNotification carries everything a transport needs to deliver
// a reset token to its owner.
type PasswordResetNotification struct {
	Recipient string // email when present, contact otherwise
	Name      string
	Token     string
	ExpiresAt time.Time
}

// Sender delivers notifications.
type Sender interface {
	SendPasswordReset(ctx context.Context, n PasswordResetNotification) error
}

// NoOpSender discards notifications. Useful when delivery happens out of
// band, e.g. the caller returns the token over an internal API.
type NoOpSender struct{}

func (NoOpSender) SendPasswordReset(context.Context, PasswordResetNotification) error {
	return nil
}

// LogSender writes notifications to a structured log instead of a real
// transport. Development use only; the token is logged in plaintext.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) SendPasswordReset(_ context.Context, n PasswordResetNotification) error {
	s.logger.Info("password reset requested",
		zap.String("recipient", n.Recipient),
		zap.String("token", n.Token),
		zap.Time("expires_at", n.ExpiresAt),
	)
	return nil
}
