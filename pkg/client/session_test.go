package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenewSingleFlight(t *testing.T) {
	var refreshes int64
	guard := newSessionGuard(func(ctx context.Context, refreshToken string) (string, string, error) {
		atomic.AddInt64(&refreshes, 1)
		time.Sleep(50 * time.Millisecond)
		return "fresh-access", "fresh-refresh", nil
	}, 5*time.Second)
	guard.SetTokens("stale-access", "old-refresh")

	const callers = 25
	tokens := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = guard.Renew(context.Background(), "stale-access")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "fresh-access", tokens[i])
	}
	assert.Equal(t, int64(1), atomic.LoadInt64(&refreshes),
		"all concurrent callers must share one refresh")
}

func TestRenewFailureBroadcastToAllFollowers(t *testing.T) {
	guard := newSessionGuard(func(ctx context.Context, refreshToken string) (string, string, error) {
		time.Sleep(20 * time.Millisecond)
		return "", "", errors.New("refresh token revoked")
	}, 5*time.Second)
	guard.SetTokens("stale-access", "revoked-refresh")

	const callers = 10
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = guard.Renew(context.Background(), "stale-access")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		assert.ErrorIs(t, errs[i], ErrSessionExpired,
			"followers surface session-expired, never retry")
	}
}

func TestRenewReturnsAlreadyRefreshedToken(t *testing.T) {
	var refreshes int64
	guard := newSessionGuard(func(ctx context.Context, refreshToken string) (string, string, error) {
		atomic.AddInt64(&refreshes, 1)
		return "newer", "r", nil
	}, time.Second)
	guard.SetTokens("current", "r")

	// Caller failed with a token that has since been replaced; no refresh
	// should start.
	token, err := guard.Renew(context.Background(), "older-than-current")
	require.NoError(t, err)
	assert.Equal(t, "current", token)
	assert.Equal(t, int64(0), atomic.LoadInt64(&refreshes))
}

func TestRenewFailsClosedOnTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	guard := newSessionGuard(func(ctx context.Context, refreshToken string) (string, string, error) {
		<-release
		return "late", "r", nil
	}, 30*time.Millisecond)
	guard.SetTokens("stale", "r")

	start := time.Now()
	_, err := guard.Renew(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Less(t, time.Since(start), time.Second, "timeout must not hang callers")
}

func TestRenewHonorsCallerContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	guard := newSessionGuard(func(ctx context.Context, refreshToken string) (string, string, error) {
		<-release
		return "late", "r", nil
	}, 5*time.Second)
	guard.SetTokens("stale", "r")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := guard.Renew(ctx, "stale")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
