package authflow

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ClaimVerificationSQL consumes a pending OTP: it matches only a live,
// unexpired digest and clears both verification fields in the same
// statement. Under concurrent attempts at most one caller gets a row back.
var ClaimVerificationSQL = `UPDATE "users" AS "usr"
SET
	"is_verified" = TRUE,
	"verification_otp_hash" = NULL,
	"verification_expires_at" = NULL,
	"updated_at" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND "usr"."email" = ?
AND "usr"."verification_otp_hash" = ?
AND "usr"."verification_expires_at" > ?
RETURNING *;`

// ClaimResetSQL consumes a pending reset token and installs the new
// password hash in one conditional statement. Same single-winner discipline
// as ClaimVerificationSQL.
var ClaimResetSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?,
	"reset_token_hash" = NULL,
	"reset_expires_at" = NULL,
	"updated_at" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND "usr"."reset_token_hash" = ?
AND "usr"."reset_expires_at" > ?
RETURNING *;`

// StorePendingResetSQL overwrites both reset fields atomically, superseding
// any previous request.
var StorePendingResetSQL = `UPDATE "users" AS "usr"
SET
	"reset_token_hash" = ?,
	"reset_expires_at" = ?,
	"updated_at" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

// Users is the account repository surface the lifecycle manager consumes.
// Uniqueness on email is enforced here. The Claim* methods are the only way
// a pending secret is consumed.
type Users interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)

	StorePendingReset(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) (*User, error)
	ClaimVerification(ctx context.Context, email, otpHash string, now time.Time) (*User, error)
	ClaimReset(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*User, error)

	TrackSuccessfulLogin(ctx context.Context, user *User) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.Repository.GetByID(ctx, id.String())
}

func (a *users) FindByEmail(ctx context.Context, email string) (*User, error) {
	return a.FindByEmailTx(ctx, a.db, email)
}

func (a *users) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": NormalizeEmail(email),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)
	return a.Repository.CreateTx(ctx, tx, user)
}

func (a *users) StorePendingReset(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) (*User, error) {
	res, err := a.Repository.RawTx(ctx, a.db, StorePendingResetSQL, tokenHash, expiresAt, time.Now(), id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return res[0], nil
}

func (a *users) ClaimVerification(ctx context.Context, email, otpHash string, now time.Time) (*User, error) {
	res, err := a.Repository.RawTx(ctx, a.db, ClaimVerificationSQL, now, NormalizeEmail(email), otpHash, now)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"email": NormalizeEmail(email),
			})
	}

	return res[0], nil
}

func (a *users) ClaimReset(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*User, error) {
	res, err := a.Repository.RawTx(ctx, a.db, ClaimResetSQL, passwordHash, now, tokenHash, now)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound()
	}

	return res[0], nil
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, user)
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	lastLoginAt := time.Now()
	_, err := tx.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"last_login_at" = ?
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, lastLoginAt, user.ID).Exec(ctx)

	if err == nil {
		user.LastLoginAt = &lastLoginAt
	}

	return err
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	record.Email = NormalizeEmail(record.Email)

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
