package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"strava-mcp/internal/store"
)

// Key namespaces within the backend.
func sessionKey(id string) string      { return "session:" + id }
func pendingKey(state string) string   { return "pending:" + state }
func codeKey(code string) string       { return "authorization_code:" + code }
func accessKey(token string) string    { return "access_token:" + token }
func refreshKey(token string) string   { return "refresh_token:" + token }
func clientKey(clientID string) string { return "client:" + clientID }

// Options configures a Store. Zero values select production defaults;
// tests shorten the TTLs.
type Options struct {
	SessionTTL time.Duration
	CodeTTL    time.Duration
	DurableTTL time.Duration
	Scopes     []string
	Clients    map[string][]string
}

// Store is the typed facade over a store.Backend. Lookups of missing or
// expired entries return (nil, nil); only backend failures surface as
// errors.
type Store struct {
	backend    store.Backend
	sessionTTL time.Duration
	codeTTL    time.Duration
	durableTTL time.Duration
	scopes     []string
	clients    map[string][]string

	registerMu        sync.Mutex
	clientsRegistered bool
}

// NewStore creates a session store on the given backend.
func NewStore(backend store.Backend, opts Options) *Store {
	s := &Store{
		backend:    backend,
		sessionTTL: opts.SessionTTL,
		codeTTL:    opts.CodeTTL,
		durableTTL: opts.DurableTTL,
		scopes:     opts.Scopes,
		clients:    make(map[string][]string),
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = SessionTTL
	}
	if s.codeTTL <= 0 {
		s.codeTTL = AuthorizationCodeTTL
	}
	if s.durableTTL <= 0 {
		s.durableTTL = DurableTTL
	}
	if len(s.scopes) == 0 {
		s.scopes = DefaultScopes
	}
	for id, uris := range opts.Clients {
		s.clients[id] = uris
	}
	for id, uris := range DefaultClients {
		if _, ok := s.clients[id]; !ok {
			s.clients[id] = uris
		}
	}
	return s
}

// Scopes returns the Strava scopes this store issues sessions for.
func (s *Store) Scopes() []string {
	return s.scopes
}

// put marshals v and stores it under key.
func (s *Store) put(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.backend.Put(ctx, key, data, ttl)
}

// get loads key into v. Returns false without error when absent.
func (s *Store) get(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

// take atomically removes key and loads it into v. Returns false
// without error when absent.
func (s *Store) take(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.backend.Take(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

// RegisterDefaultClients writes the configured clients to the backend.
// The one-shot flag is only set after all writes succeed, so a failed
// attempt is retried on the next call.
func (s *Store) RegisterDefaultClients(ctx context.Context) error {
	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	if s.clientsRegistered {
		return nil
	}

	scope := strings.Join(s.scopes, " ")
	for id, uris := range s.clients {
		client := &Client{
			ID:                      id,
			RedirectURIs:            uris,
			TokenEndpointAuthMethod: "none",
			GrantTypes:              []string{"authorization_code", "refresh_token"},
			ResponseTypes:           []string{"code"},
			Scope:                   scope,
			CreatedAt:               time.Now().UTC(),
		}
		if err := s.put(ctx, clientKey(id), client, 0); err != nil {
			return fmt.Errorf("failed to register client %s: %w", id, err)
		}
	}

	s.clientsRegistered = true
	return nil
}

// RegisterClient stores a dynamically registered client.
func (s *Store) RegisterClient(ctx context.Context, client *Client) error {
	return s.put(ctx, clientKey(client.ID), client, 0)
}

// GetClient looks up a registered client.
func (s *Store) GetClient(ctx context.Context, clientID string) (*Client, error) {
	if clientID == "" {
		return nil, nil
	}
	var client Client
	ok, err := s.get(ctx, clientKey(clientID), &client)
	if err != nil || !ok {
		return nil, err
	}
	return &client, nil
}

// CreateAuthorizationRequest persists a pending authorization keyed by a
// fresh upstream state.
func (s *Store) CreateAuthorizationRequest(ctx context.Context, req AuthorizationRequest) (*PendingAuthorization, error) {
	pending := &PendingAuthorization{
		State:         randomToken(16),
		CreatedAt:     time.Now().UTC(),
		ClientID:      req.ClientID,
		RedirectURI:   req.RedirectURI,
		CodeChallenge: req.CodeChallenge,
		Scopes:        req.Scopes,
		Resource:      req.Resource,
		ClientState:   req.ClientState,
	}
	if err := s.put(ctx, pendingKey(pending.State), pending, s.codeTTL); err != nil {
		return nil, err
	}
	return pending, nil
}

// PopAuthorizationRequest removes and returns the pending authorization
// for state. At most one caller gets it.
func (s *Store) PopAuthorizationRequest(ctx context.Context, state string) (*PendingAuthorization, error) {
	var pending PendingAuthorization
	ok, err := s.take(ctx, pendingKey(state), &pending)
	if err != nil || !ok {
		return nil, err
	}
	return &pending, nil
}

// CreateSession persists a new session from a Strava token exchange.
func (s *Store) CreateSession(ctx context.Context, tokens *UpstreamTokens) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:               uuid.NewString(),
		AccessToken:      tokens.AccessToken,
		RefreshToken:     tokens.RefreshToken,
		ExpiresAt:        tokens.ExpiresAt,
		Scopes:           s.scopes,
		CreatedAt:        now,
		UpdatedAt:        now,
		SessionExpiresAt: now.Add(s.sessionTTL),
		Athlete:          tokens.Athlete,
		AthleteID:        tokens.AthleteID,
		AthleteName:      tokens.AthleteName,
	}
	if err := s.persistSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// UpdateSessionTokens replaces a session's Strava tokens after a refresh.
// The session lifetime never shrinks here.
func (s *Store) UpdateSessionTokens(ctx context.Context, sess *Session, tokens *UpstreamTokens) error {
	now := time.Now().UTC()
	sess.AccessToken = tokens.AccessToken
	sess.RefreshToken = tokens.RefreshToken
	sess.ExpiresAt = tokens.ExpiresAt
	sess.UpdatedAt = now
	if extended := now.Add(s.sessionTTL); extended.After(sess.SessionExpiresAt) {
		sess.SessionExpiresAt = extended
	}
	if len(tokens.Athlete) > 0 {
		sess.Athlete = tokens.Athlete
		sess.AthleteID = tokens.AthleteID
		if tokens.AthleteName != "" {
			sess.AthleteName = tokens.AthleteName
		}
	}
	return s.persistSession(ctx, sess)
}

// StoreAuthorizationCode issues a single-use code bound to the session.
func (s *Store) StoreAuthorizationCode(ctx context.Context, sess *Session, pending *PendingAuthorization) (*AuthorizationCode, error) {
	scopes := pending.Scopes
	if len(scopes) == 0 {
		scopes = sess.Scopes
	}
	code := &AuthorizationCode{
		Code:          randomToken(32),
		ClientID:      pending.ClientID,
		RedirectURI:   pending.RedirectURI,
		CodeChallenge: pending.CodeChallenge,
		Scopes:        scopes,
		Resource:      pending.Resource,
		SessionID:     sess.ID,
		ExpiresAt:     time.Now().UTC().Add(s.codeTTL),
	}
	if err := s.put(ctx, codeKey(code.Code), code, s.codeTTL); err != nil {
		return nil, err
	}
	return code, nil
}

// ConsumeAuthorizationCode removes the code and returns it with its
// session. Returns (nil, nil, nil) when the code is unknown, expired,
// or its session is gone.
func (s *Store) ConsumeAuthorizationCode(ctx context.Context, code string) (*AuthorizationCode, *Session, error) {
	var record AuthorizationCode
	ok, err := s.take(ctx, codeKey(code), &record)
	if err != nil || !ok {
		return nil, nil, err
	}
	if time.Now().After(record.ExpiresAt) {
		return nil, nil, nil
	}
	sess, err := s.activeSession(ctx, record.SessionID)
	if err != nil || sess == nil {
		return nil, nil, err
	}
	return &record, sess, nil
}

// IssueTokens rotates the provider tokens for a session: previous tokens
// are removed from the backend, fresh ones are bound to the session, and
// the session lifetime restarts.
func (s *Store) IssueTokens(ctx context.Context, sess *Session, clientID string, scopes []string, resource string) (*TokenGrant, error) {
	if len(scopes) == 0 {
		scopes = sess.Scopes
	}

	if err := s.removeSessionTokens(ctx, sess); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.sessionTTL)
	access := &AccessToken{
		Token:     randomToken(48),
		ClientID:  clientID,
		Scopes:    scopes,
		ExpiresAt: expiresAt,
		Resource:  resource,
		SessionID: sess.ID,
	}
	refresh := &RefreshToken{
		Token:     randomToken(48),
		ClientID:  clientID,
		Scopes:    scopes,
		SessionID: sess.ID,
	}

	if err := s.put(ctx, accessKey(access.Token), access, s.sessionTTL); err != nil {
		return nil, err
	}
	if err := s.put(ctx, refreshKey(refresh.Token), refresh, s.durableTTL); err != nil {
		return nil, err
	}

	sess.MCPToken = access.Token
	sess.OAuthRefreshToken = refresh.Token
	sess.ClientID = clientID
	sess.Resource = resource
	sess.Scopes = scopes
	sess.UpdatedAt = now
	sess.SessionExpiresAt = expiresAt
	if err := s.persistSession(ctx, sess); err != nil {
		return nil, err
	}

	return &TokenGrant{
		AccessToken:  access.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.sessionTTL.Seconds()),
		RefreshToken: refresh.Token,
		Scope:        strings.Join(scopes, " "),
	}, nil
}

// ExchangeRefreshToken consumes a refresh token and rotates the
// session's tokens. Returns (nil, nil, nil) when the token is unknown
// or its session is gone.
func (s *Store) ExchangeRefreshToken(ctx context.Context, token string, scopes []string) (*TokenGrant, *Session, error) {
	var record RefreshToken
	ok, err := s.take(ctx, refreshKey(token), &record)
	if err != nil || !ok {
		return nil, nil, err
	}

	sess, err := s.activeSession(ctx, record.SessionID)
	if err != nil || sess == nil {
		return nil, nil, err
	}
	if sess.OAuthRefreshToken == token {
		sess.OAuthRefreshToken = ""
	}

	if len(scopes) == 0 {
		scopes = record.Scopes
	}
	clientID := sess.ClientID
	if clientID == "" {
		clientID = record.ClientID
	}

	grant, err := s.IssueTokens(ctx, sess, clientID, scopes, sess.Resource)
	if err != nil {
		return nil, nil, err
	}
	return grant, sess, nil
}

// GetSession returns the active session with the given ID.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	return s.activeSession(ctx, id)
}

// GetSessionByToken resolves a provider access token to its session.
func (s *Store) GetSessionByToken(ctx context.Context, token string) (*Session, error) {
	var record AccessToken
	ok, err := s.get(ctx, accessKey(token), &record)
	if err != nil || !ok {
		return nil, err
	}
	if time.Now().After(record.ExpiresAt) {
		_ = s.backend.Delete(ctx, accessKey(token))
		return nil, nil
	}
	return s.activeSession(ctx, record.SessionID)
}

// GetAccessToken returns access token metadata, dropping tokens whose
// session has expired.
func (s *Store) GetAccessToken(ctx context.Context, token string) (*AccessToken, error) {
	var record AccessToken
	ok, err := s.get(ctx, accessKey(token), &record)
	if err != nil || !ok {
		return nil, err
	}
	if time.Now().After(record.ExpiresAt) {
		_ = s.backend.Delete(ctx, accessKey(token))
		return nil, nil
	}
	sess, err := s.activeSession(ctx, record.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		_ = s.backend.Delete(ctx, accessKey(token))
		return nil, nil
	}
	return &record, nil
}

// GetRefreshToken returns refresh token metadata without consuming it.
func (s *Store) GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	var record RefreshToken
	ok, err := s.get(ctx, refreshKey(token), &record)
	if err != nil || !ok {
		return nil, err
	}
	sess, err := s.activeSession(ctx, record.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		_ = s.backend.Delete(ctx, refreshKey(token))
		return nil, nil
	}
	return &record, nil
}

// RevokeAccessToken invalidates an access token. Unknown tokens are a
// no-op.
func (s *Store) RevokeAccessToken(ctx context.Context, token string) error {
	var record AccessToken
	ok, err := s.take(ctx, accessKey(token), &record)
	if err != nil || !ok {
		return err
	}
	sess, err := s.loadSession(ctx, record.SessionID)
	if err != nil || sess == nil {
		return err
	}
	if sess.MCPToken == token {
		sess.MCPToken = ""
		return s.persistSession(ctx, sess)
	}
	return nil
}

// RevokeRefreshToken invalidates a refresh token. Unknown tokens are a
// no-op.
func (s *Store) RevokeRefreshToken(ctx context.Context, token string) error {
	var record RefreshToken
	ok, err := s.take(ctx, refreshKey(token), &record)
	if err != nil || !ok {
		return err
	}
	sess, err := s.loadSession(ctx, record.SessionID)
	if err != nil || sess == nil {
		return err
	}
	if sess.OAuthRefreshToken == token {
		sess.OAuthRefreshToken = ""
		return s.persistSession(ctx, sess)
	}
	return nil
}

// RemoveSession deletes a session and every token bound to it.
func (s *Store) RemoveSession(ctx context.Context, id string) error {
	sess, err := s.loadSession(ctx, id)
	if err != nil || sess == nil {
		return err
	}
	if err := s.removeSessionTokens(ctx, sess); err != nil {
		return err
	}
	return s.backend.Delete(ctx, sessionKey(id))
}

// persistSession writes the session with the durable TTL.
func (s *Store) persistSession(ctx context.Context, sess *Session) error {
	return s.put(ctx, sessionKey(sess.ID), sess, s.durableTTL)
}

// loadSession reads a session without TTL enforcement.
func (s *Store) loadSession(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}
	var sess Session
	ok, err := s.get(ctx, sessionKey(id), &sess)
	if err != nil || !ok {
		return nil, err
	}
	return &sess, nil
}

// activeSession loads a session, evicting it (with its tokens) when the
// session TTL has lapsed, and sliding the TTL forward otherwise.
func (s *Store) activeSession(ctx context.Context, id string) (*Session, error) {
	sess, err := s.loadSession(ctx, id)
	if err != nil || sess == nil {
		return nil, err
	}

	now := time.Now().UTC()
	if sess.SessionExpiresAt.Before(now) {
		if err := s.removeSessionTokens(ctx, sess); err != nil {
			return nil, err
		}
		if err := s.backend.Delete(ctx, sessionKey(id)); err != nil {
			return nil, err
		}
		return nil, nil
	}

	sess.SessionExpiresAt = now.Add(s.sessionTTL)
	if err := s.persistSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// removeSessionTokens deletes the provider tokens currently bound to the
// session and clears the references.
func (s *Store) removeSessionTokens(ctx context.Context, sess *Session) error {
	if sess.MCPToken != "" {
		if err := s.backend.Delete(ctx, accessKey(sess.MCPToken)); err != nil {
			return err
		}
		sess.MCPToken = ""
	}
	if sess.OAuthRefreshToken != "" {
		if err := s.backend.Delete(ctx, refreshKey(sess.OAuthRefreshToken)); err != nil {
			return err
		}
		sess.OAuthRefreshToken = ""
	}
	return nil
}

// randomToken generates an opaque URL-safe token from n random bytes.
func randomToken(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		log.Printf("Warning: crypto/rand failed, falling back to uuid: %v", err)
		return uuid.NewString()
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
