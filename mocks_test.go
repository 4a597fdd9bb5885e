package authflow_test

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/authflowhq/authflow"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// memUsers is an in-memory Users repository. The Claim* methods hold the
// lock across check-and-clear, mirroring the conditional-update guarantee of
// the real store.
type memUsers struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*authflow.User
}

var _ authflow.Users = (*memUsers)(nil)

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uuid.UUID]*authflow.User{}}
}

func cloneUser(u *authflow.User) *authflow.User {
	c := *u
	return &c
}

func (m *memUsers) FindByID(_ context.Context, id uuid.UUID) (*authflow.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.byID[id]; ok {
		return cloneUser(u), nil
	}
	return nil, repository.NewRecordNotFound()
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*authflow.User, error) {
	return m.FindByEmailTx(ctx, nil, email)
}

func (m *memUsers) FindByEmailTx(_ context.Context, _ bun.IDB, email string) (*authflow.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email = authflow.NormalizeEmail(email)
	for _, u := range m.byID {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

func (m *memUsers) Register(ctx context.Context, user *authflow.User) (*authflow.User, error) {
	return m.RegisterTx(ctx, nil, user)
}

func (m *memUsers) RegisterTx(_ context.Context, _ bun.IDB, user *authflow.User) (*authflow.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = authflow.NormalizeEmail(user.Email)

	for _, u := range m.byID {
		if u.Email == user.Email {
			return nil, authflow.ErrDuplicateEmail
		}
	}

	m.byID[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (m *memUsers) StorePendingReset(_ context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) (*authflow.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}

	u.SetPendingReset(tokenHash, expiresAt)
	return cloneUser(u), nil
}

func (m *memUsers) ClaimVerification(_ context.Context, email, otpHash string, now time.Time) (*authflow.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email = authflow.NormalizeEmail(email)
	for _, u := range m.byID {
		if u.Email == email && u.VerificationOTPHash == otpHash && u.HasPendingVerification(now) {
			u.IsVerified = true
			u.ClearVerification()
			return cloneUser(u), nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

func (m *memUsers) ClaimReset(_ context.Context, tokenHash, passwordHash string, now time.Time) (*authflow.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.byID {
		if u.ResetTokenHash == tokenHash && u.HasPendingReset(now) {
			u.PasswordHash = passwordHash
			u.ClearReset()
			return cloneUser(u), nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

func (m *memUsers) TrackSuccessfulLogin(ctx context.Context, user *authflow.User) error {
	return m.TrackSuccessfulLoginTx(ctx, nil, user)
}

func (m *memUsers) TrackSuccessfulLoginTx(_ context.Context, _ bun.IDB, user *authflow.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[user.ID]
	if !ok {
		return repository.NewRecordNotFound()
	}

	now := time.Now()
	u.LastLoginAt = &now
	user.LastLoginAt = &now
	return nil
}

// memRepoManager satisfies RepositoryManager over memUsers. RunInTx just
// invokes the function; the fake store is already atomic per call.
type memRepoManager struct {
	users *memUsers
}

var _ authflow.RepositoryManager = (*memRepoManager)(nil)

func newMemRepoManager() *memRepoManager {
	return &memRepoManager{users: newMemUsers()}
}

func (m *memRepoManager) Validate() error { return nil }

func (m *memRepoManager) MustValidate() {}

func (m *memRepoManager) RunInTx(ctx context.Context, _ *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	var tx bun.Tx
	return f(ctx, tx)
}

func (m *memRepoManager) Users() authflow.Users { return m.users }

type sentVerification struct {
	Email string
	OTP   string
}

type sentResetLink struct {
	Email string
	Link  string
}

// recordingMailer captures every notification so tests can assert on the
// plaintext secrets the manager emits.
type recordingMailer struct {
	mu            sync.Mutex
	err           error
	Verifications []sentVerification
	Welcomes      []string
	ResetLinks    []sentResetLink
	Confirmations []string
}

var _ authflow.Mailer = (*recordingMailer)(nil)

func (r *recordingMailer) SendVerificationCode(_ context.Context, email, otp string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Verifications = append(r.Verifications, sentVerification{Email: email, OTP: otp})
	return r.err
}

func (r *recordingMailer) SendWelcome(_ context.Context, email, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Welcomes = append(r.Welcomes, email)
	return r.err
}

func (r *recordingMailer) SendPasswordResetLink(_ context.Context, email, link string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ResetLinks = append(r.ResetLinks, sentResetLink{Email: email, Link: link})
	return r.err
}

func (r *recordingMailer) SendPasswordResetConfirmation(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Confirmations = append(r.Confirmations, email)
	return r.err
}

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}
