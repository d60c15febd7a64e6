package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"roora/internal/core"
	"roora/internal/storage"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
	ErrCodeUsed     = errors.New("login code already used")
)

// CodeStore remembers redeemed login codes. ConsumeLoginCode returns
// storage.ErrConflict when id was redeemed before.
// *storage.SQLiteRepository implements it.
type CodeStore interface {
	ConsumeLoginCode(ctx context.Context, id, userID string, expiresAt time.Time) error
}

const (
	PurposeSession = "session"
	PurposeLogin   = "login"
)

// Claims are carried by both session cookies and login-link codes; Purpose
// keeps one from being replayed as the other.
type Claims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// SessionManager signs and verifies HS256 tokens.
type SessionManager struct {
	secretKey  []byte
	sessionTTL time.Duration
	linkTTL    time.Duration
	codes      CodeStore
	now        func() time.Time
}

// NewSessionManager signs with secretKey. codes makes each login code
// redeemable once.
func NewSessionManager(secretKey string, sessionTTL, linkTTL time.Duration, codes CodeStore) *SessionManager {
	return &SessionManager{
		secretKey:  []byte(secretKey),
		sessionTTL: sessionTTL,
		linkTTL:    linkTTL,
		codes:      codes,
		now:        time.Now,
	}
}

// SessionTTL is the lifetime of session tokens, used for the cookie max-age.
func (m *SessionManager) SessionTTL() time.Duration { return m.sessionTTL }

// Issue creates a session token for the user.
func (m *SessionManager) Issue(user *core.User) (string, error) {
	return m.sign(user, PurposeSession, m.sessionTTL)
}

// IssueLoginCode creates a short-lived code for /auth/callback.
func (m *SessionManager) IssueLoginCode(user *core.User) (string, error) {
	return m.sign(user, PurposeLogin, m.linkTTL)
}

func (m *SessionManager) sign(user *core.User, purpose string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := &Claims{
		UserID:  user.ID,
		Email:   user.Email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate checks a session token.
func (m *SessionManager) Validate(token string) (*Claims, error) {
	return m.validate(token, PurposeSession)
}

// ExchangeLoginCode checks a login-link code and marks it used. A second
// exchange of the same code fails with ErrCodeUsed.
func (m *SessionManager) ExchangeLoginCode(ctx context.Context, code string) (*Claims, error) {
	claims, err := m.validate(code, PurposeLogin)
	if err != nil {
		return nil, err
	}
	if m.codes == nil {
		return nil, errors.New("login codes are disabled")
	}
	if claims.ID == "" {
		return nil, ErrInvalidToken
	}
	err = m.codes.ConsumeLoginCode(ctx, claims.ID, claims.UserID, claims.ExpiresAt.Time)
	if errors.Is(err, storage.ErrConflict) {
		return nil, ErrCodeUsed
	}
	if err != nil {
		return nil, fmt.Errorf("redeem login code: %w", err)
	}
	return claims, nil
}

func (m *SessionManager) validate(tokenString, purpose string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Purpose != purpose || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
