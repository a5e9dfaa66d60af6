package service

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/config"
)

// ErrInvalidToken is returned for tokens that fail parsing or validation.
var ErrInvalidToken = errors.New("invalid token")

// TokenType distinguishes monitor tokens from anything else signed with
// the same secret.
type TokenType string

const TokenTypeMonitor TokenType = "monitor"

// Claims extends JWT standard claims with the monitored sessions.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
	Operator  string    `json:"operator"`
	// Sessions limits the token to these quiz sessions. Empty means all.
	Sessions []string `json:"sessions,omitempty"`
}

// CanMonitor reports whether the token grants access to sessionID.
func (c *Claims) CanMonitor(sessionID string) bool {
	return len(c.Sessions) == 0 || slices.Contains(c.Sessions, sessionID)
}

// AuthService issues and validates monitor tokens.
type AuthService struct {
	secret []byte
	expiry time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{secret: []byte(cfg.JWTSecret), expiry: cfg.JWTExpiry}
}

// GenerateMonitorToken creates a token for operator scoped to sessions.
func (s *AuthService) GenerateMonitorToken(operator string, sessions []string) (string, error) {
	if operator == "" {
		return "", errors.New("operator is required")
	}
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   operator,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
		TokenType: TokenTypeMonitor,
		Operator:  operator,
		Sessions:  sessions,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a monitor JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != TokenTypeMonitor {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
