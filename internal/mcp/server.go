// Package mcp provides the MCP (Model Context Protocol) server for
// strava-mcp, exposing Strava activity, segment, route and training
// analysis tools behind the OAuth session broker.
package mcp

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"strava-mcp/internal/oauth"
	"strava-mcp/internal/session"
	"strava-mcp/internal/strava"
	"strava-mcp/pkg/auth"
)

// Config holds the MCP server configuration.
type Config struct {
	Host                  string
	Port                  int
	BaseURL               string // Public base URL advertised in OAuth metadata
	MeasurementPreference string // "meters" or "feet"
	RouteExportPath       string // Directory for exported route files (optional)
}

// Server wraps the MCP server, the OAuth provider and the HTTP server.
type Server struct {
	config     *Config
	mcpServer  *mcp.Server
	httpServer *http.Server
	sessions   *session.Store
	upstream   *oauth.UpstreamService
	provider   *oauth.Provider

	// creds carries the single-user credentials in stdio mode, where no
	// OAuth session exists.
	creds auth.Credentials

	// apiBaseURL overrides the Strava API base URL in tests.
	apiBaseURL string
}

// NewServer creates an HTTP MCP server backed by the session store and
// the upstream Strava OAuth service.
func NewServer(cfg *Config, sessions *session.Store, upstream *oauth.UpstreamService, provider *oauth.Provider) *Server {
	return &Server{
		config:    cfg,
		mcpServer: newMCPServer(),
		sessions:  sessions,
		upstream:  upstream,
		provider:  provider,
	}
}

// NewStdioServer creates a single-user MCP server that talks to Strava
// with the given credentials over stdio, without any OAuth front.
func NewStdioServer(cfg *Config, creds auth.Credentials) *Server {
	return &Server{
		config:    cfg,
		mcpServer: newMCPServer(),
		creds:     creds,
	}
}

func newMCPServer() *mcp.Server {
	return mcp.NewServer(&mcp.Implementation{
		Name:    "strava-mcp",
		Version: "1.0.0",
	}, nil)
}

// client returns a Strava API client for the current request. HTTP
// requests carry per-session credentials in the context; stdio mode
// falls back to the server-wide credentials.
func (s *Server) client(ctx context.Context) (*strava.Client, error) {
	creds, ok := auth.GetCredentialsFromContext(ctx)
	if !ok {
		creds = s.creds
	}
	if creds == nil {
		return nil, fmt.Errorf("no Strava credentials available for this request")
	}

	c := strava.NewClient(creds)
	if s.apiBaseURL != "" {
		c = c.WithBaseURL(s.apiBaseURL)
	}
	return c, nil
}

// unit resolves the measurement unit for a tool call, preferring the
// per-call override over the server configuration.
func (s *Server) unit(override string) strava.Unit {
	switch strings.ToLower(override) {
	case "feet", "imperial":
		return strava.UnitFeet
	case "meters", "metric":
		return strava.UnitMeters
	}
	if s.config.MeasurementPreference == "feet" {
		return strava.UnitFeet
	}
	return strava.UnitMeters
}

// extractBearerToken extracts the access token from the Authorization
// header. Expected format: "Bearer <token>"
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return ""
	}

	return strings.TrimPrefix(authHeader, bearerPrefix)
}

// authMiddleware wraps an HTTP handler with session token authentication.
// Valid tokens get self-refreshing Strava credentials injected into the
// request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := extractBearerToken(r)
		if token == "" {
			s.unauthorized(w, "missing access token")
			return
		}

		sess, err := s.sessions.GetSessionByToken(ctx, token)
		if err != nil {
			log.Printf("Session lookup error: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if sess == nil {
			s.unauthorized(w, "invalid or expired access token")
			return
		}

		sc := oauth.NewSessionContext(s.sessions, s.upstream, sess)
		if err := sc.EnsureActive(ctx); err != nil {
			log.Printf("Failed to refresh Strava tokens for session %s: %v", sess.ID, err)
			s.unauthorized(w, "session credentials expired")
			return
		}

		ctx = auth.WithCredentials(ctx, sc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// unauthorized writes a 401 with the resource metadata challenge so MCP
// clients can discover the OAuth endpoints.
func (s *Server) unauthorized(w http.ResponseWriter, reason string) {
	metadata := s.config.BaseURL + "/.well-known/oauth-protected-resource"
	w.Header().Set("WWW-Authenticate", fmt.Sprintf("Bearer resource_metadata=%q", metadata))
	http.Error(w, "Unauthorized: "+reason, http.StatusUnauthorized)
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	if err := s.sessions.RegisterDefaultClients(ctx); err != nil {
		return fmt.Errorf("failed to register default OAuth clients: %w", err)
	}

	s.RegisterTools()

	// The OAuth provider endpoints stay unauthenticated; only the MCP
	// endpoint requires a session token.
	mux := http.NewServeMux()
	s.provider.SetupRoutes(mux)

	mcpHandler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.mcpServer
	}, &mcp.StreamableHTTPOptions{
		Stateless: false, // Enable session tracking
	})
	mux.Handle("/mcp", s.authMiddleware(mcpHandler))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on %s (base URL %s)", addr, s.config.BaseURL)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Printf("Received signal %v, shutting down...", sig)
	case <-ctx.Done():
		log.Println("Context cancelled, shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	log.Println("MCP server stopped")
	return nil
}

// RunStdio serves the MCP tools over stdin/stdout using the server-wide
// credentials.
func (s *Server) RunStdio(ctx context.Context) error {
	if s.creds == nil {
		return fmt.Errorf("stdio mode requires Strava credentials: run the auth command first")
	}
	s.RegisterTools()
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
