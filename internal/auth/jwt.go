package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	AccessTokenTTL  = 30 * time.Minute
	RefreshTokenTTL = 48 * time.Hour
)

var (
	ErrMissingSecret = errors.New("JWT_SECRET is not set")
	ErrInvalidToken  = errors.New("invalid token")
)

type Claims struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	IsStaff   bool   `json:"is_staff"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Manager signs and verifies HS256 tokens with a shared secret.
type Manager struct {
	secret []byte
	now    func() time.Time
}

func NewManager(secret string) *Manager {
	return &Manager{secret: []byte(secret), now: time.Now}
}

func (m *Manager) IssuePair(userID int64, email string, isStaff bool) (TokenPair, error) {
	access, err := m.sign(userID, email, isStaff, TokenTypeAccess, AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.sign(userID, email, isStaff, TokenTypeRefresh, RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Parse validates signature, expiry and the expected token type.
func (m *Manager) Parse(tokenStr, tokenType string) (*Claims, error) {
	if len(m.secret) == 0 {
		return nil, ErrMissingSecret
	}

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return m.secret, nil
		},
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, tokenType)
	}

	return claims, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (m *Manager) Refresh(refreshToken string) (string, error) {
	claims, err := m.Parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", err
	}
	return m.sign(claims.UserID, claims.Email, claims.IsStaff, TokenTypeAccess, AccessTokenTTL)
}

func (m *Manager) sign(userID int64, email string, isStaff bool, tokenType string, ttl time.Duration) (string, error) {
	if len(m.secret) == 0 {
		return "", ErrMissingSecret
	}

	now := m.now()
	claims := Claims{
		UserID:    userID,
		Email:     email,
		IsStaff:   isStaff,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}
