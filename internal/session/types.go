// Package session implements the multi-user session store behind the
// OAuth provider: Strava sessions, pending authorization requests,
// authorization codes, and the provider-issued access/refresh tokens.
// All state lives in a store.Backend under namespaced keys, so the same
// code runs against memory, Redis, or Firestore.
package session

import (
	"encoding/json"
	"time"
)

// Default scopes requested from Strava when none are configured.
var DefaultScopes = []string{
	"profile:read_all",
	"activity:read_all",
	"activity:read",
	"profile:write",
}

// DefaultClients are the OAuth clients pre-registered on startup.
var DefaultClients = map[string][]string{
	"chatgpt": {"https://mcp.openai.com/v1/oauth/callback"},
}

const (
	// SessionTTL is the idle lifetime of a session. Reads slide it forward.
	SessionTTL = 12 * time.Hour

	// AuthorizationCodeTTL bounds both pending authorization requests and
	// issued authorization codes.
	AuthorizationCodeTTL = 5 * time.Minute

	// DurableTTL caps how long durable backends keep session material.
	DurableTTL = 10 * 24 * time.Hour
)

// Session holds one user's Strava credentials plus the provider-side
// token references that point back at it.
type Session struct {
	ID           string    `json:"session_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"` // Strava access token expiry

	Scopes           []string  `json:"scopes"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	SessionExpiresAt time.Time `json:"session_expires_at"`

	Athlete     json.RawMessage `json:"athlete,omitempty"`
	AthleteID   int64           `json:"athlete_id,omitempty"`
	AthleteName string          `json:"athlete_name,omitempty"`

	// Provider-issued tokens currently bound to this session.
	MCPToken          string `json:"mcp_token,omitempty"`
	OAuthRefreshToken string `json:"oauth_refresh_token,omitempty"`

	ClientID string `json:"client_id,omitempty"`
	Resource string `json:"resource,omitempty"`
}

// PublicInfo returns a redacted view safe for introspection responses
// and logs. No token material is included.
func (s *Session) PublicInfo() map[string]any {
	return map[string]any{
		"session_id":         s.ID,
		"athlete_id":         s.AthleteID,
		"athlete_name":       s.AthleteName,
		"scopes":             s.Scopes,
		"client_id":          s.ClientID,
		"created_at":         s.CreatedAt.Format(time.RFC3339),
		"updated_at":         s.UpdatedAt.Format(time.RFC3339),
		"session_expires_at": s.SessionExpiresAt.Format(time.RFC3339),
	}
}

// UpstreamTokens is the result of a Strava code exchange or refresh.
type UpstreamTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time

	Athlete     json.RawMessage
	AthleteID   int64
	AthleteName string
}

// Client is a registered OAuth client allowed to use this server.
type Client struct {
	ID                      string    `json:"client_id"`
	RedirectURIs            []string  `json:"redirect_uris"`
	TokenEndpointAuthMethod string    `json:"token_endpoint_auth_method,omitempty"`
	GrantTypes              []string  `json:"grant_types,omitempty"`
	ResponseTypes           []string  `json:"response_types,omitempty"`
	Scope                   string    `json:"scope,omitempty"`
	CreatedAt               time.Time `json:"created_at"`
}

// AllowsRedirect reports whether uri is one of the client's registered
// redirect URIs.
func (c *Client) AllowsRedirect(uri string) bool {
	for _, registered := range c.RedirectURIs {
		if registered == uri {
			return true
		}
	}
	return false
}

// AuthorizationRequest carries the parameters of an /oauth/authorize call.
type AuthorizationRequest struct {
	ClientID      string
	RedirectURI   string
	CodeChallenge string
	Scopes        []string
	Resource      string
	ClientState   string
}

// PendingAuthorization tracks an authorization flow between the redirect
// to Strava and the callback. Keyed by the upstream state parameter.
type PendingAuthorization struct {
	State         string    `json:"state"`
	CreatedAt     time.Time `json:"created_at"`
	ClientID      string    `json:"client_id"`
	RedirectURI   string    `json:"redirect_uri"`
	CodeChallenge string    `json:"code_challenge"`
	Scopes        []string  `json:"scopes,omitempty"`
	Resource      string    `json:"resource,omitempty"`
	ClientState   string    `json:"client_state,omitempty"`
}

// AuthorizationCode is a single-use code issued to the client after a
// successful Strava exchange.
type AuthorizationCode struct {
	Code          string    `json:"code"`
	ClientID      string    `json:"client_id"`
	RedirectURI   string    `json:"redirect_uri"`
	CodeChallenge string    `json:"code_challenge"`
	Scopes        []string  `json:"scopes"`
	Resource      string    `json:"resource,omitempty"`
	SessionID     string    `json:"session_id"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// AccessToken is provider-issued access token metadata.
type AccessToken struct {
	Token     string    `json:"token"`
	ClientID  string    `json:"client_id"`
	Scopes    []string  `json:"scopes"`
	ExpiresAt time.Time `json:"expires_at"`
	Resource  string    `json:"resource,omitempty"`
	SessionID string    `json:"session_id"`
}

// RefreshToken is provider-issued refresh token metadata.
type RefreshToken struct {
	Token     string   `json:"token"`
	ClientID  string   `json:"client_id"`
	Scopes    []string `json:"scopes"`
	SessionID string   `json:"session_id"`
}

// TokenGrant is the token endpoint response body.
type TokenGrant struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope,omitempty"`
}
