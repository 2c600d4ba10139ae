package client

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSessionExpired is returned when the access token could not be refreshed
// and the caller must re-authenticate.
var ErrSessionExpired = errors.New("session expired, re-authentication required")

// refreshFunc exchanges a refresh token for a new token pair.
type refreshFunc func(ctx context.Context, refreshToken string) (accessToken, refreshToken2 string, err error)

// sessionGuard serialises token refreshes. The first caller to observe an
// expired token becomes the leader and runs exactly one refresh; callers
// arriving while it is outstanding wait as followers on the same result.
// A refresh that does not resolve within the timeout fails closed.
type sessionGuard struct {
	refresh refreshFunc
	timeout time.Duration

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	inflight     chan struct{} // non-nil while a refresh is outstanding
	lastErr      error
}

func newSessionGuard(refresh refreshFunc, timeout time.Duration) *sessionGuard {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &sessionGuard{refresh: refresh, timeout: timeout}
}

// SetTokens installs a fresh credential pair, e.g. after login.
func (g *sessionGuard) SetTokens(access, refresh string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.accessToken = access
	g.refreshToken = refresh
	g.lastErr = nil
}

// Token returns the current access token.
func (g *sessionGuard) Token() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.accessToken
}

// Renew returns an access token newer than the stale one the caller just
// failed with, refreshing at most once across all concurrent callers.
func (g *sessionGuard) Renew(ctx context.Context, stale string) (string, error) {
	g.mu.Lock()

	// Another caller already completed the refresh.
	if g.accessToken != "" && g.accessToken != stale {
		token := g.accessToken
		g.mu.Unlock()
		return token, nil
	}

	var done chan struct{}
	if g.inflight == nil {
		done = make(chan struct{})
		g.inflight = done
		refreshToken := g.refreshToken
		g.mu.Unlock()
		go g.lead(refreshToken, done)
	} else {
		done = g.inflight
		g.mu.Unlock()
	}

	select {
	case <-done:
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(g.timeout):
		return "", ErrSessionExpired
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastErr != nil {
		return "", g.lastErr
	}
	return g.accessToken, nil
}

// lead runs the single refresh and broadcasts the result by closing done.
func (g *sessionGuard) lead(refreshToken string, done chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	access, refresh, err := g.refresh(ctx, refreshToken)

	g.mu.Lock()
	if err != nil {
		g.lastErr = ErrSessionExpired
	} else {
		g.accessToken = access
		g.refreshToken = refresh
		g.lastErr = nil
	}
	g.inflight = nil
	g.mu.Unlock()

	close(done)
}
