package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"strava-mcp/internal/session"
	"strava-mcp/pkg/auth"
)

// UpstreamService talks to Strava's OAuth endpoints: it builds the
// authorization redirect, exchanges callback codes, and refreshes
// expired session tokens.
type UpstreamService struct {
	config *oauth2.Config
}

// NewUpstreamService creates the Strava OAuth client. baseURL is this
// server's public base URL; the callback lands on
// {baseURL}/oauth/strava/callback.
func NewUpstreamService(clientID, clientSecret, baseURL string, scopes []string) *UpstreamService {
	if len(scopes) == 0 {
		scopes = session.DefaultScopes
	}
	return &UpstreamService{
		config: auth.NewConfig(clientID, clientSecret, baseURL+"/oauth/strava/callback", scopes),
	}
}

// WithEndpoint overrides the OAuth endpoint. Tests point this at a fake
// Strava server.
func (u *UpstreamService) WithEndpoint(endpoint oauth2.Endpoint) *UpstreamService {
	u.config.Endpoint = endpoint
	return u
}

// AuthorizationURL returns the Strava authorization URL for the given
// upstream state.
func (u *UpstreamService) AuthorizationURL(state string) string {
	return u.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("approval_prompt", "auto"))
}

// Exchange trades an authorization code for Strava tokens. Strava
// includes the athlete object in the token response, which is carried
// along for session bootstrapping.
func (u *UpstreamService) Exchange(ctx context.Context, code string) (*session.UpstreamTokens, error) {
	tok, err := u.config.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	return upstreamTokens(tok), nil
}

// Refresh obtains a fresh Strava token pair for the session.
func (u *UpstreamService) Refresh(ctx context.Context, refreshToken string) (*session.UpstreamTokens, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("session has no Strava refresh token")
	}
	source := u.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := source.Token()
	if err != nil {
		return nil, err
	}
	return upstreamTokens(tok), nil
}

// upstreamTokens converts an oauth2 token, pulling the athlete payload
// out of the extra response fields.
func upstreamTokens(tok *oauth2.Token) *session.UpstreamTokens {
	tokens := &session.UpstreamTokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if tokens.ExpiresAt.IsZero() {
		tokens.ExpiresAt = time.Now().Add(6 * time.Hour)
	}

	athlete, ok := tok.Extra("athlete").(map[string]any)
	if !ok {
		return tokens
	}
	if raw, err := json.Marshal(athlete); err == nil {
		tokens.Athlete = raw
	}
	if id, ok := athlete["id"].(float64); ok {
		tokens.AthleteID = int64(id)
	}
	first, _ := athlete["firstname"].(string)
	last, _ := athlete["lastname"].(string)
	switch {
	case first != "" && last != "":
		tokens.AthleteName = first + " " + last
	case first != "":
		tokens.AthleteName = first
	case last != "":
		tokens.AthleteName = last
	}
	return tokens
}

// upstreamStatus extracts the HTTP status and response body when err
// came back from Strava itself, as opposed to a transport failure.
func upstreamStatus(err error) (int, string, bool) {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		return status, string(retrieveErr.Body), true
	}
	return 0, "", false
}
