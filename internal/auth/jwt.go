// Package auth mints and validates the JWT access tokens and opaque refresh
// tokens backing the bearer-credential contract of the API.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Config struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// Claims carried by access tokens.
type Claims struct {
	UserID  int64 `json:"uid"`
	IsStaff bool  `json:"staff"`
	jwt.RegisteredClaims
}

type Manager struct {
	cfg Config
}

func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// MintAccessToken signs a short-lived access token for the user.
func (m *Manager) MintAccessToken(userID int64, isStaff bool, now time.Time) (string, error) {
	claims := Claims{
		UserID:  userID,
		IsStaff: isStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.AccessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken validates the signature and expiry and returns the claims.
func (m *Manager) ParseAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(m.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// NewRefreshToken returns an opaque refresh token and its storable hash.
// Only the hash is persisted, so a leaked tokens table cannot be replayed.
func (m *Manager) NewRefreshToken() (token, hash string) {
	token = uuid.NewString() + uuid.NewString()
	return token, HashRefreshToken(token)
}

// HashRefreshToken maps a refresh token to its storage key.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// AccessTokenTTL exposes the configured access token lifetime.
func (m *Manager) AccessTokenTTL() time.Duration {
	return m.cfg.AccessTokenTTL
}

// RefreshTokenTTL exposes the configured refresh token lifetime.
func (m *Manager) RefreshTokenTTL() time.Duration {
	return m.cfg.RefreshTokenTTL
}
