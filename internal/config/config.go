// Package config loads the application configuration from the
// environment, with an optional Secret Manager fallback for the Strava
// client credentials in hosted deployments.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvClientID     = "STRAVA_CLIENT_ID"
	EnvClientSecret = "STRAVA_CLIENT_SECRET"

	EnvSecretProject = "STRAVA_SECRET_PROJECT"
	EnvSecretName    = "STRAVA_SECRET_NAME"
)

// Placeholder values shipped in .env templates that must be replaced.
var placeholders = map[string]bool{
	"":                        true,
	"your_client_id_here":     true,
	"your_client_secret_here": true,
}

// AppConfig is the resolved application configuration.
type AppConfig struct {
	ClientID     string
	ClientSecret string

	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time

	MeasurementPreference string
	RouteExportPath       string
	Scopes                []string

	BaseURL string
	Host    string
	Port    int

	SessionBackend      string
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	FirestoreProject    string
	FirestoreCollection string

	SessionTTL time.Duration
	CodeTTL    time.Duration

	Clients map[string][]string

	EnvPath string
}

// stravaSecret is the Secret Manager payload layout.
type stravaSecret struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Load reads configuration from the environment. envPath, when
// non-empty, is loaded first via godotenv so a local .env file works
// the same as real environment variables.
func Load(ctx context.Context, envPath string) (*AppConfig, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err == nil {
			log.Printf("Loaded environment from %s", envPath)
		}
	}

	cfg := &AppConfig{
		ClientID:              os.Getenv(EnvClientID),
		ClientSecret:          os.Getenv(EnvClientSecret),
		AccessToken:           os.Getenv("STRAVA_ACCESS_TOKEN"),
		RefreshToken:          os.Getenv("STRAVA_REFRESH_TOKEN"),
		MeasurementPreference: os.Getenv("STRAVA_MEASUREMENT_PREFERENCE"),
		RouteExportPath:       os.Getenv("ROUTE_EXPORT_PATH"),
		BaseURL:               strings.TrimRight(os.Getenv("BASE_URL"), "/"),
		Host:                  os.Getenv("HOST"),
		Port:                  intEnv("PORT", 8080),
		SessionBackend:        os.Getenv("STRAVA_SESSION_BACKEND"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               intEnv("REDIS_DB", 0),
		FirestoreProject:      os.Getenv("FIRESTORE_PROJECT"),
		FirestoreCollection:   os.Getenv("FIRESTORE_COLLECTION"),
		SessionTTL:            durationEnv("SESSION_TTL", 0),
		CodeTTL:               durationEnv("AUTHORIZATION_CODE_TTL", 0),
		EnvPath:               envPath,
	}

	if expiry := os.Getenv("STRAVA_TOKEN_EXPIRY"); expiry != "" {
		if unix, err := strconv.ParseInt(expiry, 10, 64); err == nil {
			cfg.TokenExpiry = time.Unix(unix, 0)
		}
	}
	if cfg.MeasurementPreference == "" {
		cfg.MeasurementPreference = "meters"
	}
	if cfg.FirestoreCollection == "" {
		cfg.FirestoreCollection = "strava-mcp-sessions"
	}
	cfg.Scopes = ParseScopes(os.Getenv("STRAVA_OAUTH_SCOPES"))
	cfg.Clients = ParseClients(os.Getenv("MCP_OAUTH_CLIENTS"))

	// Hosted deployments keep the client credentials in Secret Manager
	// instead of the environment.
	if placeholders[cfg.ClientID] || placeholders[cfg.ClientSecret] {
		project := os.Getenv(EnvSecretProject)
		name := os.Getenv(EnvSecretName)
		if project != "" && name != "" {
			if err := cfg.loadFromSecretManager(ctx, project, name); err != nil {
				log.Printf("Failed to load credentials from Secret Manager: %v", err)
			} else {
				log.Printf("Strava credentials loaded from Secret Manager: %s/%s", project, name)
			}
		}
	}

	return cfg, nil
}

// Validate checks that the Strava client credentials are usable.
func (c *AppConfig) Validate() error {
	if placeholders[c.ClientID] {
		return fmt.Errorf("%s is not set: create an API application at https://www.strava.com/settings/api", EnvClientID)
	}
	if placeholders[c.ClientSecret] {
		return fmt.Errorf("%s is not set: create an API application at https://www.strava.com/settings/api", EnvClientSecret)
	}
	return nil
}

// Address returns the host:port the HTTP server listens on.
func (c *AppConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ResolvedBaseURL returns the configured public base URL, falling back
// to the listen address.
func (c *AppConfig) ResolvedBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Port)
}

func (c *AppConfig) loadFromSecretManager(ctx context.Context, project, secretName string) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	defer client.Close()

	secretPath := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", project, secretName)
	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretPath,
	})
	if err != nil {
		return fmt.Errorf("failed to access secret %s: %w", secretPath, err)
	}

	var secret stravaSecret
	if err := json.Unmarshal(result.Payload.Data, &secret); err != nil {
		return fmt.Errorf("failed to parse secret payload: %w", err)
	}
	if secret.ClientID != "" {
		c.ClientID = secret.ClientID
	}
	if secret.ClientSecret != "" {
		c.ClientSecret = secret.ClientSecret
	}
	return nil
}

// ParseScopes parses a comma-separated scope list. Empty input returns
// nil so the caller's defaults apply.
func ParseScopes(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var scopes []string
	for _, scope := range strings.Split(value, ",") {
		if scope = strings.TrimSpace(scope); scope != "" {
			scopes = append(scopes, scope)
		}
	}
	return scopes
}

// ParseClients parses OAuth client registrations of the form
// "id=uri1,uri2;id2=uri3". Empty input returns nil.
func ParseClients(value string) map[string][]string {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	clients := make(map[string][]string)
	for _, entry := range strings.Split(value, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, uris, ok := strings.Cut(entry, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			log.Printf("Warning: ignoring malformed client entry %q", entry)
			continue
		}
		for _, uri := range strings.Split(uris, ",") {
			if uri = strings.TrimSpace(uri); uri != "" {
				clients[id] = append(clients[id], uri)
			}
		}
	}
	if len(clients) == 0 {
		return nil
	}
	return clients
}

func intEnv(name string, fallback int) int {
	value := os.Getenv(name)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid %s value %q, using %d", name, value, fallback)
		return fallback
	}
	return n
}

func durationEnv(name string, fallback time.Duration) time.Duration {
	value := os.Getenv(name)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: invalid %s value %q, using %v", name, value, fallback)
		return fallback
	}
	return d
}
