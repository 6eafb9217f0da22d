package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"strava-mcp/internal/store"
)

// countingBackend wraps a backend and counts Put calls per key prefix.
type countingBackend struct {
	store.Backend
	mu   sync.Mutex
	puts map[string]int
}

func newCountingBackend() *countingBackend {
	return &countingBackend{
		Backend: store.NewMemory(),
		puts:    make(map[string]int),
	}
}

func (b *countingBackend) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	prefix := key
	if idx := strings.Index(key, ":"); idx > 0 {
		prefix = key[:idx]
	}
	b.puts[prefix]++
	b.mu.Unlock()
	return b.Backend.Put(ctx, key, value, ttl)
}

func (b *countingBackend) putCount(prefix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.puts[prefix]
}

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	backend := store.NewMemory()
	t.Cleanup(func() { backend.Close() })
	return NewStore(backend, opts)
}

func testUpstreamTokens() *UpstreamTokens {
	return &UpstreamTokens{
		AccessToken:  "strava-access",
		RefreshToken: "strava-refresh",
		ExpiresAt:    time.Now().Add(6 * time.Hour),
		AthleteID:    4711,
		AthleteName:  "Jo Rider",
	}
}

func TestRegisterDefaultClientsOnce(t *testing.T) {
	backend := newCountingBackend()
	defer backend.Close()
	s := NewStore(backend, Options{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.RegisterDefaultClients(ctx); err != nil {
				t.Errorf("RegisterDefaultClients failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := backend.putCount("client"); got != len(DefaultClients) {
		t.Errorf("got %d client writes, want %d", got, len(DefaultClients))
	}

	client, err := s.GetClient(ctx, "chatgpt")
	if err != nil {
		t.Fatalf("GetClient failed: %v", err)
	}
	if client == nil {
		t.Fatal("chatgpt client not registered")
	}
	if !client.AllowsRedirect("https://mcp.openai.com/v1/oauth/callback") {
		t.Errorf("chatgpt redirect URI not registered: %v", client.RedirectURIs)
	}
}

func TestPendingAuthorizationSingleUse(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()

	pending, err := s.CreateAuthorizationRequest(ctx, AuthorizationRequest{
		ClientID:      "chatgpt",
		RedirectURI:   "https://mcp.openai.com/v1/oauth/callback",
		CodeChallenge: "challenge",
		ClientState:   "client-state",
	})
	if err != nil {
		t.Fatalf("CreateAuthorizationRequest failed: %v", err)
	}
	if pending.State == "" {
		t.Fatal("pending state is empty")
	}

	got, err := s.PopAuthorizationRequest(ctx, pending.State)
	if err != nil {
		t.Fatalf("PopAuthorizationRequest failed: %v", err)
	}
	if got == nil {
		t.Fatal("first pop returned nil")
	}
	if got.ClientState != "client-state" {
		t.Errorf("got client state %q, want %q", got.ClientState, "client-state")
	}

	again, err := s.PopAuthorizationRequest(ctx, pending.State)
	if err != nil {
		t.Fatalf("second pop errored: %v", err)
	}
	if again != nil {
		t.Error("second pop returned a pending request, want nil")
	}
}

func TestPopUnknownState(t *testing.T) {
	s := newTestStore(t, Options{})

	got, err := s.PopAuthorizationRequest(context.Background(), "ghost-state")
	if err != nil {
		t.Fatalf("PopAuthorizationRequest errored: %v", err)
	}
	if got != nil {
		t.Error("pop of unknown state returned a value, want nil")
	}
}

func TestAuthorizationCodeSingleUse(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, testUpstreamTokens())
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	code, err := s.StoreAuthorizationCode(ctx, sess, &PendingAuthorization{
		ClientID:      "chatgpt",
		RedirectURI:   "https://mcp.openai.com/v1/oauth/callback",
		CodeChallenge: "challenge",
	})
	if err != nil {
		t.Fatalf("StoreAuthorizationCode failed: %v", err)
	}

	record, gotSess, err := s.ConsumeAuthorizationCode(ctx, code.Code)
	if err != nil {
		t.Fatalf("ConsumeAuthorizationCode failed: %v", err)
	}
	if record == nil || gotSess == nil {
		t.Fatal("first consume returned nil")
	}
	if gotSess.ID != sess.ID {
		t.Errorf("got session %s, want %s", gotSess.ID, sess.ID)
	}

	record, gotSess, err = s.ConsumeAuthorizationCode(ctx, code.Code)
	if err != nil {
		t.Fatalf("second consume errored: %v", err)
	}
	if record != nil || gotSess != nil {
		t.Error("second consume succeeded, want nil")
	}
}

func TestIssueTokensRotation(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, testUpstreamTokens())
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	first, err := s.IssueTokens(ctx, sess, "chatgpt", nil, "")
	if err != nil {
		t.Fatalf("first IssueTokens failed: %v", err)
	}
	if first.TokenType != "Bearer" {
		t.Errorf("got token type %q, want Bearer", first.TokenType)
	}

	second, err := s.IssueTokens(ctx, sess, "chatgpt", nil, "")
	if err != nil {
		t.Fatalf("second IssueTokens failed: %v", err)
	}
	if second.AccessToken == first.AccessToken {
		t.Error("access token was not rotated")
	}

	// The first generation is dead after rotation.
	if got, err := s.GetAccessToken(ctx, first.AccessToken); err != nil || got != nil {
		t.Errorf("old access token still resolves: %v, err=%v", got, err)
	}
	if got, err := s.GetRefreshToken(ctx, first.RefreshToken); err != nil || got != nil {
		t.Errorf("old refresh token still resolves: %v, err=%v", got, err)
	}

	// The new generation resolves to the session.
	bySess, err := s.GetSessionByToken(ctx, second.AccessToken)
	if err != nil {
		t.Fatalf("GetSessionByToken failed: %v", err)
	}
	if bySess == nil || bySess.ID != sess.ID {
		t.Errorf("new access token does not resolve to session %s", sess.ID)
	}
}

func TestExchangeRefreshTokenRoundTrip(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, testUpstreamTokens())
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	grant, err := s.IssueTokens(ctx, sess, "chatgpt", nil, "")
	if err != nil {
		t.Fatalf("IssueTokens failed: %v", err)
	}

	next, nextSess, err := s.ExchangeRefreshToken(ctx, grant.RefreshToken, nil)
	if err != nil {
		t.Fatalf("ExchangeRefreshToken failed: %v", err)
	}
	if next == nil || nextSess == nil {
		t.Fatal("exchange returned nil")
	}
	if nextSess.ID != sess.ID {
		t.Errorf("got session %s, want %s", nextSess.ID, sess.ID)
	}
	if next.RefreshToken == grant.RefreshToken {
		t.Error("refresh token was not rotated")
	}

	// The consumed refresh token is single-use.
	replay, replaySess, err := s.ExchangeRefreshToken(ctx, grant.RefreshToken, nil)
	if err != nil {
		t.Fatalf("replay exchange errored: %v", err)
	}
	if replay != nil || replaySess != nil {
		t.Error("replayed refresh token succeeded, want nil")
	}
}

func TestRevocationIsFinalAndIdempotent(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, testUpstreamTokens())
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	grant, err := s.IssueTokens(ctx, sess, "chatgpt", nil, "")
	if err != nil {
		t.Fatalf("IssueTokens failed: %v", err)
	}

	if err := s.RevokeAccessToken(ctx, grant.AccessToken); err != nil {
		t.Fatalf("RevokeAccessToken failed: %v", err)
	}
	if err := s.RevokeAccessToken(ctx, grant.AccessToken); err != nil {
		t.Errorf("second revoke errored: %v", err)
	}
	if got, err := s.GetAccessToken(ctx, grant.AccessToken); err != nil || got != nil {
		t.Errorf("revoked access token still resolves: %v, err=%v", got, err)
	}
	if got, err := s.GetSessionByToken(ctx, grant.AccessToken); err != nil || got != nil {
		t.Errorf("revoked access token still maps to a session: %v, err=%v", got, err)
	}

	if err := s.RevokeRefreshToken(ctx, grant.RefreshToken); err != nil {
		t.Fatalf("RevokeRefreshToken failed: %v", err)
	}
	if err := s.RevokeRefreshToken(ctx, grant.RefreshToken); err != nil {
		t.Errorf("second refresh revoke errored: %v", err)
	}
	if got, err := s.GetRefreshToken(ctx, grant.RefreshToken); err != nil || got != nil {
		t.Errorf("revoked refresh token still resolves: %v, err=%v", got, err)
	}

	// The session itself survives revocation.
	if got, err := s.GetSession(ctx, sess.ID); err != nil || got == nil {
		t.Errorf("session gone after token revocation: %v, err=%v", got, err)
	}
}

func TestSessionExpiryCascades(t *testing.T) {
	s := newTestStore(t, Options{SessionTTL: 30 * time.Millisecond})
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, testUpstreamTokens())
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	grant, err := s.IssueTokens(ctx, sess, "chatgpt", nil, "")
	if err != nil {
		t.Fatalf("IssueTokens failed: %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	if got, err := s.GetSession(ctx, sess.ID); err != nil || got != nil {
		t.Errorf("expired session still resolves: %v, err=%v", got, err)
	}
	if got, err := s.GetAccessToken(ctx, grant.AccessToken); err != nil || got != nil {
		t.Errorf("access token survives session expiry: %v, err=%v", got, err)
	}
	if got, err := s.GetRefreshToken(ctx, grant.RefreshToken); err != nil || got != nil {
		t.Errorf("refresh token survives session expiry: %v, err=%v", got, err)
	}
}

func TestSessionTTLSlidesOnRead(t *testing.T) {
	s := newTestStore(t, Options{SessionTTL: 80 * time.Millisecond})
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, testUpstreamTokens())
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// Keep reading inside the TTL window; the session must stay alive
	// well past the original deadline.
	for i := 0; i < 4; i++ {
		time.Sleep(40 * time.Millisecond)
		got, err := s.GetSession(ctx, sess.ID)
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if got == nil {
			t.Fatalf("session expired after %d reads inside the TTL window", i)
		}
	}
}

func TestUpdateSessionTokensNeverShrinksLifetime(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, testUpstreamTokens())
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	before := sess.SessionExpiresAt

	refreshed := testUpstreamTokens()
	refreshed.AccessToken = "strava-access-2"
	refreshed.RefreshToken = "strava-refresh-2"
	if err := s.UpdateSessionTokens(ctx, sess, refreshed); err != nil {
		t.Fatalf("UpdateSessionTokens failed: %v", err)
	}

	if sess.AccessToken != "strava-access-2" {
		t.Errorf("got access token %q, want %q", sess.AccessToken, "strava-access-2")
	}
	if sess.SessionExpiresAt.Before(before) {
		t.Error("session lifetime shrank on token update")
	}
}

func TestRemoveSessionCascades(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, testUpstreamTokens())
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	grant, err := s.IssueTokens(ctx, sess, "chatgpt", nil, "")
	if err != nil {
		t.Fatalf("IssueTokens failed: %v", err)
	}

	if err := s.RemoveSession(ctx, sess.ID); err != nil {
		t.Fatalf("RemoveSession failed: %v", err)
	}
	if got, _ := s.GetSession(ctx, sess.ID); got != nil {
		t.Error("session still resolves after removal")
	}
	if got, _ := s.GetAccessToken(ctx, grant.AccessToken); got != nil {
		t.Error("access token still resolves after session removal")
	}
	if got, _ := s.GetRefreshToken(ctx, grant.RefreshToken); got != nil {
		t.Error("refresh token still resolves after session removal")
	}
}
