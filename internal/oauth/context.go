package oauth

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"strava-mcp/internal/session"
)

// refreshSkew is how far ahead of the Strava token expiry a refresh is
// triggered, so in-flight API calls never ride a token about to die.
const refreshSkew = 2 * time.Minute

// SessionContext binds one session to the upstream service for the
// duration of a request. It satisfies the credentials interface the
// Strava client consumes.
type SessionContext struct {
	sessions *session.Store
	upstream *UpstreamService

	mu   sync.Mutex
	sess *session.Session
}

// NewSessionContext wraps a session for request-scoped use.
func NewSessionContext(sessions *session.Store, upstream *UpstreamService, sess *session.Session) *SessionContext {
	return &SessionContext{
		sessions: sessions,
		upstream: upstream,
		sess:     sess,
	}
}

// AccessToken returns the current Strava access token.
func (c *SessionContext) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.AccessToken
}

// SessionID returns the session's identifier.
func (c *SessionContext) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.ID
}

// EnsureActive refreshes the Strava tokens when the access token is
// expired or inside the refresh window.
func (c *SessionContext) EnsureActive(ctx context.Context) error {
	c.mu.Lock()
	expiresAt := c.sess.ExpiresAt
	c.mu.Unlock()

	if time.Until(expiresAt) > refreshSkew {
		return nil
	}
	return c.Refresh(ctx)
}

// Refresh exchanges the session's Strava refresh token for a new pair
// and persists the rotated tokens.
func (c *SessionContext) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if time.Until(c.sess.ExpiresAt) > refreshSkew {
		return nil
	}

	tokens, err := c.upstream.Refresh(ctx, c.sess.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to refresh Strava tokens for session %s: %w", c.sess.ID, err)
	}
	if err := c.sessions.UpdateSessionTokens(ctx, c.sess, tokens); err != nil {
		return fmt.Errorf("failed to persist refreshed tokens for session %s: %w", c.sess.ID, err)
	}

	log.Printf("Refreshed Strava tokens for session %s", c.sess.ID)
	return nil
}
