// Package auth provides bearer-token acquisition for the Coze client: a caching
// TokenManager over a pluggable TokenService, static personal access tokens and
// the JWT OAuth exchange.
package auth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// RefreshSkew is how long before nominal expiry a cached token is considered stale.
const RefreshSkew = 30 * time.Second

var (
	// ErrNotInitialized is returned by a TokenManager that has no TokenService.
	ErrNotInitialized = errors.New("auth: token manager is not initialized with a token service")
	// ErrIllegalState is returned when the TokenService yields an empty token.
	ErrIllegalState = errors.New("auth: token service returned an empty token")
)

// TokenInfo is a freshly issued token and its lifetime in seconds.
type TokenInfo struct {
	Token     string
	ExpiresIn int64
}

// TokenService issues new tokens.
type TokenService interface {
	GetToken(ctx context.Context) (TokenInfo, error)
}

// TokenServiceFunc adapts a function to TokenService.
type TokenServiceFunc func(ctx context.Context) (TokenInfo, error)

func (f TokenServiceFunc) GetToken(ctx context.Context) (TokenInfo, error) { return f(ctx) }

// Option configures a TokenManager.
type Option func(*TokenManager)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *TokenManager) {
		if now != nil {
			m.now = now
		}
	}
}

// TokenManager caches a bearer token in memory and refreshes it through its
// TokenService. Concurrent refreshes are coalesced into one service call.
type TokenManager struct {
	service TokenService
	now     func() time.Time

	mu        sync.RWMutex
	token     string
	expiresAt int64 // epoch seconds

	group singleflight.Group
}

// NewTokenManager returns a manager backed by service.
func NewTokenManager(service TokenService, opts ...Option) (*TokenManager, error) {
	if service == nil {
		return nil, ErrNotInitialized
	}
	m := &TokenManager{service: service, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// GetToken returns the cached token, refreshing it when absent, within RefreshSkew of
// expiry, or when forceRefresh is set. A forced refresh joins a refresh already in flight.
func (m *TokenManager) GetToken(ctx context.Context, forceRefresh bool) (string, error) {
	if m == nil || m.service == nil {
		return "", ErrNotInitialized
	}
	if !forceRefresh {
		if token, ok := m.cached(); ok {
			return token, nil
		}
	}

	// The refresh outlives the caller that started it; each caller waits on its own ctx.
	refreshCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan("token", func() (any, error) {
		return m.refresh(refreshCtx)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			log.Debug("auth: joined in-flight token refresh")
		}
		return res.Val.(string), nil
	}
}

func (m *TokenManager) cached() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == "" {
		return "", false
	}
	if m.clock().Unix() >= m.expiresAt-int64(RefreshSkew/time.Second) {
		return "", false
	}
	return m.token, true
}

func (m *TokenManager) refresh(ctx context.Context) (string, error) {
	info, err := m.service.GetToken(ctx)
	if err != nil {
		return "", fmt.Errorf("auth: refresh token: %w", err)
	}
	token := strings.TrimSpace(info.Token)
	if token == "" {
		return "", ErrIllegalState
	}
	m.mu.Lock()
	m.token = token
	m.expiresAt = m.clock().Unix() + info.ExpiresIn
	m.mu.Unlock()
	log.Debugf("auth: token refreshed, expires in %ds", info.ExpiresIn)
	return token, nil
}

// Invalidate drops the cached token so the next call refreshes.
func (m *TokenManager) Invalidate() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.token = ""
	m.expiresAt = 0
	m.mu.Unlock()
}

// ExpiresAt returns the nominal expiry of the cached token, zero when none is cached.
func (m *TokenManager) ExpiresAt() time.Time {
	if m == nil {
		return time.Time{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == "" {
		return time.Time{}
	}
	return time.Unix(m.expiresAt, 0)
}

// Token implements oauth2.TokenSource.
func (m *TokenManager) Token() (*oauth2.Token, error) {
	token, err := m.GetToken(context.Background(), false)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer", Expiry: m.ExpiresAt()}, nil
}

func (m *TokenManager) clock() time.Time {
	if m.now == nil {
		return time.Now()
	}
	return m.now()
}

// StaticToken is a personal access token. It never refreshes.
type StaticToken string

// GetToken returns the token, or ErrIllegalState when it is blank.
func (s StaticToken) GetToken(context.Context, bool) (string, error) {
	token := strings.TrimSpace(string(s))
	if token == "" {
		return "", ErrIllegalState
	}
	return token, nil
}

// Static marks the token as non-refreshable.
func (StaticToken) Static() bool { return true }

// FromOAuth2 adapts an oauth2.TokenSource into a TokenService. Tokens without an
// expiry are treated as long lived.
func FromOAuth2(ts oauth2.TokenSource) TokenService {
	return TokenServiceFunc(func(context.Context) (TokenInfo, error) {
		if ts == nil {
			return TokenInfo{}, ErrNotInitialized
		}
		tok, err := ts.Token()
		if err != nil {
			return TokenInfo{}, err
		}
		expiresIn := int64(math.MaxInt32)
		if !tok.Expiry.IsZero() {
			expiresIn = int64(time.Until(tok.Expiry) / time.Second)
		}
		return TokenInfo{Token: tok.AccessToken, ExpiresIn: expiresIn}, nil
	})
}
