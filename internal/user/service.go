package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"ridefuture-be/internal/apperror"
	"ridefuture-be/internal/auth"
	"ridefuture-be/internal/captcha"
	"ridefuture-be/internal/logger"
	"ridefuture-be/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// CodeMailer delivers a freshly generated login code.
type CodeMailer interface {
	SendTempCode(ctx context.Context, email, code string) error
}

type Service interface {
	RequestCode(ctx context.Context, email, captchaToken, remoteIP string) error
	VerifyCode(ctx context.Context, email, code string) (*User, auth.TokenPair, error)
	GetOrCreate(ctx context.Context, email, firstName, lastName string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	UpdateProfile(ctx context.Context, id int64, input UpdateProfileInput) (*User, error)
	IssueTokens(u *User) (auth.TokenPair, error)
	SetStaff(ctx context.Context, email string, staff bool) error
}

type service struct {
	repo     Repository
	tokens   *auth.Manager
	captcha  captcha.Verifier
	mailer   CodeMailer
	hashCost int
	now      func() time.Time
}

func NewService(repo Repository, tokens *auth.Manager, verifier captcha.Verifier, mailer CodeMailer) Service {
	return &service{
		repo:     repo,
		tokens:   tokens,
		captcha:  verifier,
		mailer:   mailer,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// RequestCode issues a new 6-digit code for email, creating the account on first use.
func (s *service) RequestCode(ctx context.Context, email, captchaToken, remoteIP string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "RequestCode"),
	)

	email, ok := NormalizeEmail(email)
	if !ok {
		return apperror.NewValidation("email", "enter a valid email address")
	}

	if s.captcha != nil && s.captcha.Enabled() {
		if strings.TrimSpace(captchaToken) == "" {
			return apperror.NewValidation("recaptcha", "this field is required")
		}
		if err := s.captcha.Verify(ctx, captchaToken, remoteIP); err != nil {
			if errors.Is(err, captcha.ErrRejected) {
				log.Warn("captcha rejected", zap.String("email", email))
				return apperror.NewValidation("recaptcha", "invalid reCAPTCHA, please try again")
			}
			return apperror.Upstream("recaptcha", err)
		}
	}

	u, created, err := s.repo.GetOrCreate(ctx, email, DefaultFirstName, DefaultLastName)
	if err != nil {
		log.Error("failed to resolve user", zap.Error(err))
		return err
	}
	if !u.IsActive {
		return ErrInactiveUser
	}

	code := utils.GenerateNumericCode(6)
	hash, err := HashCode(code, s.hashCost)
	if err != nil {
		log.Error("failed to hash code", zap.Error(err))
		return err
	}

	if err := s.repo.SetLoginCode(ctx, u.ID, LoginCode{Hash: hash, ExpiresAt: s.now().Add(CodeTTL)}); err != nil {
		log.Error("failed to store code", zap.Error(err))
		return err
	}

	if err := s.mailer.SendTempCode(ctx, u.Email, code); err != nil {
		log.Error("failed to send code", zap.Error(err))
		return err
	}

	log.Info("login code issued", zap.Int64("user_id", u.ID), zap.Bool("new_user", created))
	return nil
}

// VerifyCode consumes a valid code and returns the user with a fresh token pair.
func (s *service) VerifyCode(ctx context.Context, email, code string) (*User, auth.TokenPair, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "VerifyCode"),
	)

	email, ok := NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if !ok || code == "" {
		return nil, auth.TokenPair{}, ErrInvalidCode
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, auth.TokenPair{}, ErrInvalidCode
		}
		return nil, auth.TokenPair{}, err
	}

	stored, err := s.repo.GetLoginCode(ctx, u.ID)
	if err != nil {
		return nil, auth.TokenPair{}, err
	}

	if stored == nil || !s.now().Before(stored.ExpiresAt) || !CheckCodeHash(code, stored.Hash) {
		log.Warn("login code rejected", zap.Int64("user_id", u.ID))
		return nil, auth.TokenPair{}, ErrInvalidCode
	}

	if !u.IsActive {
		return nil, auth.TokenPair{}, ErrInactiveUser
	}

	if err := s.repo.ClearLoginCode(ctx, u.ID); err != nil {
		log.Error("failed to consume code", zap.Error(err))
		return nil, auth.TokenPair{}, err
	}

	pair, err := s.IssueTokens(u)
	if err != nil {
		log.Error("failed to issue tokens", zap.Error(err))
		return nil, auth.TokenPair{}, err
	}

	log.Info("login successful", zap.Int64("user_id", u.ID))
	return u, pair, nil
}

func (s *service) GetOrCreate(ctx context.Context, email, firstName, lastName string) (*User, error) {
	email, ok := NormalizeEmail(email)
	if !ok {
		return nil, apperror.NewValidation("email", "enter a valid email address")
	}
	u, _, err := s.repo.GetOrCreate(ctx, email, strings.TrimSpace(firstName), strings.TrimSpace(lastName))
	return u, err
}

func (s *service) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) UpdateProfile(ctx context.Context, id int64, input UpdateProfileInput) (*User, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateProfile"),
		zap.Int64("user_id", id),
	)

	if !input.HasChanges() {
		return nil, apperror.NewValidation("body", "no fields to update")
	}

	vErr := &apperror.ValidationError{}
	if input.FirstName != nil {
		v := strings.TrimSpace(*input.FirstName)
		input.FirstName = &v
		if v == "" {
			vErr.Add("first_name", "cannot be blank")
		}
	}
	if input.LastName != nil {
		v := strings.TrimSpace(*input.LastName)
		input.LastName = &v
		if v == "" {
			vErr.Add("last_name", "cannot be blank")
		}
	}
	if input.Email != nil {
		v, ok := NormalizeEmail(*input.Email)
		if !ok {
			vErr.Add("email", "enter a valid email address")
		}
		input.Email = &v
	}
	if err := vErr.OrNil(); err != nil {
		log.Warn("validation failed", zap.Error(err))
		return nil, err
	}

	return s.repo.UpdateProfile(ctx, id, input)
}

func (s *service) IssueTokens(u *User) (auth.TokenPair, error) {
	return s.tokens.IssuePair(u.ID, u.Email, u.IsStaff)
}

func (s *service) SetStaff(ctx context.Context, email string, staff bool) error {
	email, ok := NormalizeEmail(email)
	if !ok {
		return apperror.NewValidation("email", "enter a valid email address")
	}
	return s.repo.SetStaff(ctx, email, staff)
}
