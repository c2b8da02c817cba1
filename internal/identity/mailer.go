package identity

import (
	"context"

	"github.com/merchkit/storefront-core/internal/infrastructure/logging"
)

// Mailer delivers out-of-band messages carrying one-time code links.
// Actual delivery is an external concern; the provider only needs the
// contract.
type Mailer interface {
	SendEmailConfirmation(ctx context.Context, email, link string) error
	SendPasswordReset(ctx context.Context, email, link string) error
}

// LogMailer is a Mailer that writes the link to the log instead of sending
// mail. Used in development and tests.
type LogMailer struct {
	logger *logging.Logger
}

// NewLogMailer creates a log-backed mailer.
func NewLogMailer(logger *logging.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("component", "mailer")}
}

// SendEmailConfirmation logs the confirmation link.
func (m *LogMailer) SendEmailConfirmation(_ context.Context, email, link string) error {
	m.logger.Info("email confirmation link", "email", email, "link", link)
	return nil
}

// SendPasswordReset logs the password reset link.
func (m *LogMailer) SendPasswordReset(_ context.Context, email, link string) error {
	m.logger.Info("password reset link", "email", email, "link", link)
	return nil
}
