package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ridefuture-be/internal/db"
	"ridefuture-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	// GetOrCreate returns the user for email, inserting it with the given names when absent.
	GetOrCreate(ctx context.Context, email, firstName, lastName string) (*User, bool, error)
	UpdateProfile(ctx context.Context, id int64, input UpdateProfileInput) (*User, error)
	SetStaff(ctx context.Context, email string, staff bool) error
	SetPaymentCustomerRef(ctx context.Context, id int64, ref string) error

	SetLoginCode(ctx context.Context, id int64, code LoginCode) error
	GetLoginCode(ctx context.Context, id int64) (*LoginCode, error)
	ClearLoginCode(ctx context.Context, id int64) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const userColumns = `id, email, first_name, last_name, is_active, is_staff, is_superuser, payment_customer_ref, date_joined`

func scanUser(row interface{ Scan(...any) error }, extra ...any) (*User, error) {
	var u User
	var ref sql.NullString

	dest := []any{&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.IsActive, &u.IsStaff, &u.IsSuperuser, &ref, &u.DateJoined}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if ref.Valid {
		u.PaymentCustomerRef = &ref.String
	}
	return &u, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1", email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("db: failed to find user by email", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("db: failed to find user by id", zap.Int64("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// GetOrCreate relies on the unique email index; an existing row keeps its names.
func (r *repository) GetOrCreate(ctx context.Context, email, firstName, lastName string) (*User, bool, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "GetOrCreateUser"),
		zap.String("email", email),
	)

	query := `
		INSERT INTO users (email, first_name, last_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING ` + userColumns + `, (xmax = 0) AS created`

	var created bool
	u, err := scanUser(r.db.QueryRowContext(ctx, query, email, firstName, lastName), &created)
	if err != nil {
		log.Error("db: failed to upsert user", zap.Error(err))
		return nil, false, fmt.Errorf("get or create user: %w", err)
	}

	if created {
		log.Info("user created", zap.Int64("user_id", u.ID))
	}
	return u, created, nil
}

func (r *repository) UpdateProfile(ctx context.Context, id int64, input UpdateProfileInput) (*User, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "UpdateProfile"),
		zap.Int64("user_id", id),
	)

	query := `
		UPDATE users
		SET first_name = COALESCE($2, first_name),
			last_name = COALESCE($3, last_name),
			email = COALESCE($4, email)
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id, input.FirstName, input.LastName, input.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		if db.IsUniqueViolation(err) {
			log.Warn("email already taken")
			return nil, ErrEmailExists
		}
		log.Error("failed to update profile", zap.Error(err))
		return nil, err
	}

	log.Info("profile updated successfully")
	return u, nil
}

func (r *repository) SetStaff(ctx context.Context, email string, staff bool) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET is_staff = $1 WHERE email = $2", staff, strings.ToLower(email))
	if err != nil {
		return fmt.Errorf("set staff flag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repository) SetPaymentCustomerRef(ctx context.Context, id int64, ref string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE users SET payment_customer_ref = $1 WHERE id = $2", ref, id)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to store payment customer ref", zap.Int64("user_id", id), zap.Error(err))
		return fmt.Errorf("set payment customer ref: %w", err)
	}
	return nil
}

// SetLoginCode replaces any code issued earlier.
func (r *repository) SetLoginCode(ctx context.Context, id int64, code LoginCode) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET one_time_code_hash = $1, one_time_code_expires_at = $2
		WHERE id = $3`, code.Hash, code.ExpiresAt, id)
	if err != nil {
		return fmt.Errorf("set login code: %w", err)
	}
	return nil
}

// GetLoginCode returns nil when no code is pending.
func (r *repository) GetLoginCode(ctx context.Context, id int64) (*LoginCode, error) {
	var hash sql.NullString
	var expires sql.NullTime

	err := r.db.QueryRowContext(ctx, `
		SELECT one_time_code_hash, one_time_code_expires_at
		FROM users WHERE id = $1`, id).Scan(&hash, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get login code: %w", err)
	}

	if !hash.Valid || !expires.Valid {
		return nil, nil
	}
	return &LoginCode{Hash: hash.String, ExpiresAt: expires.Time.In(time.UTC)}, nil
}

func (r *repository) ClearLoginCode(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET one_time_code_hash = NULL, one_time_code_expires_at = NULL
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("clear login code: %w", err)
	}
	return nil
}
