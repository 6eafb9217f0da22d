package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func TestAuthorizationURL(t *testing.T) {
	u := NewUpstreamService("12345", "secret", "https://mcp.example.com", []string{"activity:read", "profile:read_all"})

	parsed, err := url.Parse(u.AuthorizationURL("state-abc"))
	if err != nil {
		t.Fatalf("failed to parse authorization URL: %v", err)
	}
	if got := parsed.Host; got != "www.strava.com" {
		t.Errorf("got host %q, want www.strava.com", got)
	}

	query := parsed.Query()
	checks := map[string]string{
		"client_id":       "12345",
		"response_type":   "code",
		"redirect_uri":    "https://mcp.example.com/oauth/strava/callback",
		"state":           "state-abc",
		"scope":           "activity:read,profile:read_all",
		"approval_prompt": "auto",
	}
	for param, want := range checks {
		if got := query.Get(param); got != want {
			t.Errorf("param %s: got %q, want %q", param, got, want)
		}
	}
}

// fakeStravaTokenServer serves Strava-shaped token responses.
func fakeStravaTokenServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("token endpoint got method %s, want POST", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestExchangeParsesAthlete(t *testing.T) {
	server := fakeStravaTokenServer(t, http.StatusOK, `{
		"access_token": "strava-access",
		"refresh_token": "strava-refresh",
		"expires_in": 21600,
		"token_type": "Bearer",
		"athlete": {"id": 4711, "firstname": "Jo", "lastname": "Rider"}
	}`)

	u := NewUpstreamService("12345", "secret", "https://mcp.example.com", nil).
		WithEndpoint(oauth2.Endpoint{AuthURL: server.URL + "/authorize", TokenURL: server.URL + "/token"})

	tokens, err := u.Exchange(context.Background(), "strava-code")
	if err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
	if tokens.AccessToken != "strava-access" {
		t.Errorf("got access token %q, want %q", tokens.AccessToken, "strava-access")
	}
	if tokens.RefreshToken != "strava-refresh" {
		t.Errorf("got refresh token %q, want %q", tokens.RefreshToken, "strava-refresh")
	}
	if tokens.AthleteID != 4711 {
		t.Errorf("got athlete ID %d, want 4711", tokens.AthleteID)
	}
	if tokens.AthleteName != "Jo Rider" {
		t.Errorf("got athlete name %q, want %q", tokens.AthleteName, "Jo Rider")
	}
	if len(tokens.Athlete) == 0 {
		t.Error("athlete payload not captured")
	}
	if tokens.ExpiresAt.IsZero() {
		t.Error("token expiry not set")
	}
}

func TestExchangeUpstreamError(t *testing.T) {
	server := fakeStravaTokenServer(t, http.StatusBadRequest, `{"message": "Bad Request", "errors": []}`)

	u := NewUpstreamService("12345", "secret", "https://mcp.example.com", nil).
		WithEndpoint(oauth2.Endpoint{AuthURL: server.URL + "/authorize", TokenURL: server.URL + "/token"})

	_, err := u.Exchange(context.Background(), "bad-code")
	if err == nil {
		t.Fatal("Exchange succeeded, want error")
	}

	status, body, ok := upstreamStatus(err)
	if !ok {
		t.Fatalf("error not classified as upstream: %v", err)
	}
	if status != http.StatusBadRequest {
		t.Errorf("got status %d, want %d", status, http.StatusBadRequest)
	}
	if !strings.Contains(body, "Bad Request") {
		t.Errorf("body %q does not carry the upstream message", body)
	}
}

func TestUpstreamStatusTransportError(t *testing.T) {
	if _, _, ok := upstreamStatus(errors.New("connection refused")); ok {
		t.Error("transport error classified as upstream response")
	}
}

func TestRefreshRequiresToken(t *testing.T) {
	u := NewUpstreamService("12345", "secret", "https://mcp.example.com", nil)
	if _, err := u.Refresh(context.Background(), ""); err == nil {
		t.Error("Refresh with empty token succeeded, want error")
	}
}
