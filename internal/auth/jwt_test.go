package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(accessTTL time.Duration) *Manager {
	return NewManager(Config{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: 24 * time.Hour,
	})
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newTestManager(15 * time.Minute)

	token, err := m.MintAccessToken(42, true, time.Now())
	require.NoError(t, err)

	claims, err := m.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.True(t, claims.IsStaff)
}

func TestExpiredTokenRejected(t *testing.T) {
	m := newTestManager(15 * time.Minute)

	token, err := m.MintAccessToken(42, false, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = m.ParseAccessToken(token)
	assert.Error(t, err)
}

func TestWrongSecretRejected(t *testing.T) {
	m := newTestManager(15 * time.Minute)
	other := NewManager(Config{JWTSecret: "other-secret", AccessTokenTTL: 15 * time.Minute})

	token, err := m.MintAccessToken(42, false, time.Now())
	require.NoError(t, err)

	_, err = other.ParseAccessToken(token)
	assert.Error(t, err)
}

func TestRefreshTokenHashStable(t *testing.T) {
	m := newTestManager(15 * time.Minute)

	token, hash := m.NewRefreshToken()
	assert.NotEqual(t, token, hash, "only the hash may be persisted")
	assert.Equal(t, hash, HashRefreshToken(token))

	_, otherHash := m.NewRefreshToken()
	assert.NotEqual(t, hash, otherHash)
}
