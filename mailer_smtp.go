package authflow

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/wneessen/go-mail"
)

const verificationBody = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
	<h2>Email Verification</h2>
	<p>Your verification code is:</p>
	<h1 style="background: #f4f4f4; padding: 10px; text-align: center; letter-spacing: 5px;">%s</h1>
	<p>This code will expire in 24 hours.</p>
	<p>If you didn't request this, please ignore this email.</p>
</div>`

const welcomeBody = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
	<h2>Welcome, %s!</h2>
	<p>Your email has been successfully verified.</p>
	<p>Thank you for joining. We're excited to have you on board!</p>
</div>`

const resetLinkBody = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
	<h2>Password Reset</h2>
	<p>You requested to reset your password. Click the link below to proceed:</p>
	<p><a href="%s" style="background: #007bff; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">Reset Password</a></p>
	<p>This link will expire in 1 hour.</p>
	<p>If you didn't request this, please ignore this email.</p>
</div>`

const resetConfirmationBody = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
	<h2>Password Reset Successful</h2>
	<p>Your password has been successfully reset.</p>
	<p>If you did not perform this action, please contact support immediately.</p>
</div>`

// SMTPMailer delivers notifications over SMTP.
type SMTPMailer struct {
	client *mail.Client
	from   string
}

var _ Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer builds a Mailer from SMTP settings. Port 465 switches to
// implicit TLS, matching common provider defaults.
func NewSMTPMailer(cfg MailConfig) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	}

	if cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create SMTP client")
	}

	from := cfg.From
	if from == "" {
		from = cfg.Username
	}

	return &SMTPMailer{
		client: client,
		from:   from,
	}, nil
}

func (m *SMTPMailer) SendVerificationCode(ctx context.Context, email, otp string) error {
	return m.send(ctx, email, "Verify Your Email Address", fmt.Sprintf(verificationBody, otp))
}

func (m *SMTPMailer) SendWelcome(ctx context.Context, email, name string) error {
	return m.send(ctx, email, "Welcome!", fmt.Sprintf(welcomeBody, name))
}

func (m *SMTPMailer) SendPasswordResetLink(ctx context.Context, email, link string) error {
	return m.send(ctx, email, "Password Reset Request", fmt.Sprintf(resetLinkBody, link))
}

func (m *SMTPMailer) SendPasswordResetConfirmation(ctx context.Context, email string) error {
	return m.send(ctx, email, "Password Reset Successful", resetConfirmationBody)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid mail sender address")
	}
	if err := msg.To(to); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid mail recipient address")
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "SMTP delivery failed")
	}

	return nil
}
