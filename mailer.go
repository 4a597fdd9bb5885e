package authflow

import "context"

// Mailer delivers lifecycle notifications. Every call is best-effort from
// the manager's perspective: a send failure is logged and never rolls back
// the state transition that triggered it.
type Mailer interface {
	SendVerificationCode(ctx context.Context, email, otp string) error
	SendWelcome(ctx context.Context, email, name string) error
	SendPasswordResetLink(ctx context.Context, email, link string) error
	SendPasswordResetConfirmation(ctx context.Context, email string) error
}

// LogMailer satisfies Mailer without delivering anything. It logs the secret
// instead, which keeps the lifecycle usable when SMTP is not configured,
// e.g. in development and tests.
type LogMailer struct {
	logger Logger
}

var _ Mailer = (*LogMailer)(nil)

func NewLogMailer(logger Logger) *LogMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendVerificationCode(_ context.Context, email, otp string) error {
	m.logger.Info("[mail disabled] verification OTP for %s: %s", email, otp)
	return nil
}

func (m *LogMailer) SendWelcome(_ context.Context, email, name string) error {
	m.logger.Info("[mail disabled] welcome email for %s <%s>", name, email)
	return nil
}

func (m *LogMailer) SendPasswordResetLink(_ context.Context, email, link string) error {
	m.logger.Info("[mail disabled] reset link for %s: %s", email, link)
	return nil
}

func (m *LogMailer) SendPasswordResetConfirmation(_ context.Context, email string) error {
	m.logger.Info("[mail disabled] password reset confirmation for %s", email)
	return nil
}

func normalizeMailer(m Mailer, logger Logger) Mailer {
	if m == nil {
		return NewLogMailer(logger)
	}
	return m
}
