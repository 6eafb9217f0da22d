// Package auth provides OAuth2 authentication against the Strava API.
// It serves both server modes: per-request session credentials injected
// via context by the HTTP middleware, and a single-athlete credential
// set loaded from the environment for stdio use.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
)

// Endpoint is Strava's OAuth2 endpoint.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://www.strava.com/oauth/authorize",
	TokenURL: "https://www.strava.com/oauth/token",
}

// Credentials supplies a Strava access token and knows how to refresh it.
type Credentials interface {
	AccessToken() string
	Refresh(ctx context.Context) error
}

// NewConfig builds an oauth2.Config for Strava. Strava expects the scope
// parameter as a single comma-separated value, so the scopes are joined
// into one entry.
func NewConfig(clientID, clientSecret, redirectURL string, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{strings.Join(scopes, ",")},
		Endpoint:     Endpoint,
	}
}

// contextKey is a type for context keys used in this package.
type contextKey string

const credentialsKey contextKey = "strava_credentials"

// WithCredentials returns a new context with the credentials stored.
// This is used by the MCP server to pass per-session credentials to the
// tool handlers.
func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey, creds)
}

// GetCredentialsFromContext retrieves the credentials from context, if present.
func GetCredentialsFromContext(ctx context.Context) (Credentials, bool) {
	creds, ok := ctx.Value(credentialsKey).(Credentials)
	return creds, ok
}

// Environment variable names for single-athlete credentials.
const (
	EnvAccessToken  = "STRAVA_ACCESS_TOKEN"
	EnvRefreshToken = "STRAVA_REFRESH_TOKEN"
	EnvTokenExpiry  = "STRAVA_TOKEN_EXPIRY"
)

// EnvCredentials holds a single athlete's tokens loaded from the
// environment. Refreshed tokens are written back to the .env file so the
// next invocation starts from the rotated pair.
type EnvCredentials struct {
	config  *oauth2.Config
	envPath string

	mu      sync.Mutex
	access  string
	refresh string
	expiry  time.Time
}

// NewEnvCredentials creates credentials from an already-loaded token
// pair. envPath may be empty to disable persistence.
func NewEnvCredentials(config *oauth2.Config, accessToken, refreshToken string, expiry time.Time, envPath string) *EnvCredentials {
	return &EnvCredentials{
		config:  config,
		envPath: envPath,
		access:  accessToken,
		refresh: refreshToken,
		expiry:  expiry,
	}
}

// AccessToken returns the current access token.
func (c *EnvCredentials) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.access
}

// Refresh exchanges the refresh token for a new token pair and persists
// it to the .env file.
func (c *EnvCredentials) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refresh == "" {
		return fmt.Errorf("no refresh token available, run the auth command first")
	}

	source := c.config.TokenSource(ctx, &oauth2.Token{RefreshToken: c.refresh})
	tok, err := source.Token()
	if err != nil {
		return fmt.Errorf("unable to refresh Strava token: %w", err)
	}

	c.access = tok.AccessToken
	if tok.RefreshToken != "" {
		c.refresh = tok.RefreshToken
	}
	c.expiry = tok.Expiry

	if c.envPath != "" {
		if err := persistTokens(c.envPath, c.access, c.refresh, c.expiry); err != nil {
			return fmt.Errorf("unable to save refreshed tokens: %w", err)
		}
	}
	return nil
}

// Expiry returns when the current access token expires.
func (c *EnvCredentials) Expiry() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiry
}

// persistTokens writes the token pair into the .env file, preserving any
// other entries already there.
func persistTokens(envPath, accessToken, refreshToken string, expiry time.Time) error {
	env, err := godotenv.Read(envPath)
	if err != nil {
		env = make(map[string]string)
	}
	env[EnvAccessToken] = accessToken
	env[EnvRefreshToken] = refreshToken
	env[EnvTokenExpiry] = strconv.FormatInt(expiry.Unix(), 10)
	return godotenv.Write(env, envPath)
}

// Setup runs the interactive browser authorization flow for a single
// athlete and persists the resulting tokens to envPath. Returns the
// token pair on success.
func Setup(ctx context.Context, clientID, clientSecret string, scopes []string, envPath string) (*oauth2.Token, error) {
	config := NewConfig(clientID, clientSecret, "http://localhost:8080/oauth2callback", scopes)

	codeChan := make(chan string)
	errChan := make(chan error)

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2callback", func(w http.ResponseWriter, r *http.Request) {
		if errParam := r.URL.Query().Get("error"); errParam != "" {
			errChan <- fmt.Errorf("authorization denied: %s", errParam)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			errChan <- fmt.Errorf("no code in callback")
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `
			<html>
			<body>
				<h1>Authentication successful!</h1>
				<p>You can close this window and return to the terminal.</p>
			</body>
			</html>
		`)

		codeChan <- code
	})

	server := &http.Server{Addr: ":8080", Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait a moment for server to start
	time.Sleep(100 * time.Millisecond)

	authURL := config.AuthCodeURL("state-token",
		oauth2.SetAuthURLParam("approval_prompt", "auto"))
	fmt.Printf("Opening browser for Strava authorization...\n")
	fmt.Printf("If browser doesn't open, visit:\n%v\n\n", authURL)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", authURL)
	case "linux":
		cmd = exec.Command("xdg-open", authURL)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", authURL)
	}
	if cmd != nil {
		_ = cmd.Start()
	}

	var code string
	select {
	case code = <-codeChan:
		// Success
	case err := <-errChan:
		return nil, err
	case <-time.After(3 * time.Minute):
		return nil, fmt.Errorf("authentication timeout after 3 minutes")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)

	tok, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("unable to exchange authorization code: %w", err)
	}

	if envPath != "" {
		if err := persistTokens(envPath, tok.AccessToken, tok.RefreshToken, tok.Expiry); err != nil {
			return nil, fmt.Errorf("unable to save tokens: %w", err)
		}
	}

	fmt.Println("\nAuthentication successful!")
	return tok, nil
}
