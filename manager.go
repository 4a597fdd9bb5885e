package authflow

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

const (
	// DefaultOTPTTL is the verification code window.
	DefaultOTPTTL = 24 * time.Hour
	// DefaultResetTTL is the reset token window.
	DefaultResetTTL = time.Hour
)

// Manager is the credential lifecycle state machine. It owns every
// transition of an account's verification OTP, reset token, and password
// hash: signup issues an OTP, VerifyEmail consumes it exactly once, and the
// forgot/reset pair does the same for reset tokens. Plaintext secrets leave
// the Manager only through the Mailer; the repository sees digests.
type Manager struct {
	repo             RepositoryManager
	mailer           Mailer
	codec            SecretCodec
	logger           Logger
	clock            func() time.Time
	otpTTL           time.Duration
	resetTTL         time.Duration
	resetBaseURL     string
	deterministicIDs bool
}

// NewManager returns a Manager with the logging mailer and default windows.
func NewManager(repo RepositoryManager) *Manager {
	logger := defLogger{}
	return &Manager{
		repo:     repo,
		mailer:   NewLogMailer(logger),
		logger:   logger,
		clock:    time.Now,
		otpTTL:   DefaultOTPTTL,
		resetTTL: DefaultResetTTL,
	}
}

// WithMailer sets the notification sink. nil falls back to the logging
// mailer.
func (m *Manager) WithMailer(mailer Mailer) *Manager {
	m.mailer = normalizeMailer(mailer, m.logger)
	return m
}

func (m *Manager) WithLogger(logger Logger) *Manager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithClock overrides the time source, used by expiry tests.
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	if clock != nil {
		m.clock = clock
	}
	return m
}

func (m *Manager) WithOTPTTL(ttl time.Duration) *Manager {
	if ttl > 0 {
		m.otpTTL = ttl
	}
	return m
}

func (m *Manager) WithResetTTL(ttl time.Duration) *Manager {
	if ttl > 0 {
		m.resetTTL = ttl
	}
	return m
}

// WithResetBaseURL sets the frontend base the reset link is built from.
func (m *Manager) WithResetBaseURL(base string) *Manager {
	m.resetBaseURL = base
	return m
}

// WithDeterministicIDs derives account ids from the signup email instead of
// generating random UUIDs.
func (m *Manager) WithDeterministicIDs(enabled bool) *Manager {
	m.deterministicIDs = enabled
	return m
}

// Login verifies credentials and records the login time. Unknown emails and
// wrong passwords return the identical ErrInvalidCredentials; the dummy
// comparison keeps the cost profile uniform in the unknown-email case.
func (m *Manager) Login(ctx context.Context, email, password string) (*User, error) {
	if err := (validation.Errors{
		"email":    validation.Validate(email, validation.Required),
		"password": validation.Validate(password, validation.Required),
	}).Filter(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "email and password are required").
			WithCode(goerrors.CodeBadRequest)
	}

	user, err := m.repo.Users().FindByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			CompareDummyHash(password)
			return nil, ErrInvalidCredentials
		}
		return nil, wrapStorageError(err, "failed to look up account")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := m.repo.Users().TrackSuccessfulLogin(ctx, user); err != nil {
		return nil, wrapStorageError(err, "failed to record login")
	}

	return user, nil
}

// CheckAuth loads the account behind a validated session.
func (m *Manager) CheckAuth(ctx context.Context, accountID uuid.UUID) (*User, error) {
	user, err := m.repo.Users().FindByID(ctx, accountID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, goerrors.New("user not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return nil, wrapStorageError(err, "failed to load account")
	}

	return user, nil
}

// notify runs a mail send and logs failures. A failed delivery never undoes
// the state transition that triggered it.
func (m *Manager) notify(what string, send func() error) {
	if err := send(); err != nil {
		m.logger.Warn("%s notification failed: %s", what, err)
	}
}

func resolveManagerError(err error, msg string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}
