package oauth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"strava-mcp/internal/session"
)

// Provider serves the OAuth2 front of the server. MCP clients authorize
// against it; behind each authorization sits a Strava login brokered by
// the UpstreamService.
type Provider struct {
	baseURL  string
	sessions *session.Store
	upstream *UpstreamService
}

// NewProvider creates the OAuth provider.
func NewProvider(baseURL string, sessions *session.Store, upstream *UpstreamService) *Provider {
	return &Provider{
		baseURL:  strings.TrimRight(baseURL, "/"),
		sessions: sessions,
		upstream: upstream,
	}
}

// SetupRoutes registers all OAuth2 endpoints.
func (p *Provider) SetupRoutes(mux *http.ServeMux) {
	// Well-known endpoints
	mux.HandleFunc("/.well-known/oauth-protected-resource", p.HandleProtectedResourceMetadata)
	mux.HandleFunc("/.well-known/oauth-authorization-server", p.HandleAuthorizationServerMetadata)

	// OAuth endpoints
	mux.HandleFunc("/oauth/register", p.HandleClientRegistration)
	mux.HandleFunc("/oauth/authorize", p.HandleAuthorize)
	mux.HandleFunc("/oauth/token", p.HandleToken)
	mux.HandleFunc("/oauth/revoke", p.HandleRevoke)

	// Strava leg of the flow
	mux.HandleFunc("/oauth/strava/start", p.HandleManualInstructions)
	mux.HandleFunc("/oauth/strava/callback", p.HandleStravaCallback)

	// Session introspection
	mux.HandleFunc("/oauth/sessions/current", p.HandleCurrentSession)
}

// HandleProtectedResourceMetadata serves RFC 9728 protected resource metadata.
// GET /.well-known/oauth-protected-resource
func (p *Provider) HandleProtectedResourceMetadata(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	metadata := ProtectedResourceMetadata{
		Resource:               p.baseURL,
		AuthorizationServers:   []string{p.baseURL},
		BearerMethodsSupported: []string{"header"},
		ScopesSupported:        p.sessions.Scopes(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(metadata)
}

// HandleAuthorizationServerMetadata serves RFC 8414 authorization server metadata.
// GET /.well-known/oauth-authorization-server
func (p *Provider) HandleAuthorizationServerMetadata(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	metadata := AuthorizationServerMetadata{
		Issuer:                            p.baseURL,
		AuthorizationEndpoint:             p.baseURL + "/oauth/authorize",
		TokenEndpoint:                     p.baseURL + "/oauth/token",
		RegistrationEndpoint:              p.baseURL + "/oauth/register",
		RevocationEndpoint:                p.baseURL + "/oauth/revoke",
		ScopesSupported:                   p.sessions.Scopes(),
		ResponseTypesSupported:            []string{"code"},
		GrantTypesSupported:               []string{"authorization_code", "refresh_token"},
		CodeChallengeMethodsSupported:     []string{"S256"},
		TokenEndpointAuthMethodsSupported: []string{"none"},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(metadata)
}

// HandleClientRegistration implements RFC 7591 Dynamic Client Registration.
// POST /oauth/register
func (p *Provider) HandleClientRegistration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ClientRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOAuthError(w, "invalid_request", "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if len(req.RedirectURIs) == 0 {
		writeOAuthError(w, "invalid_request", "redirect_uris is required", http.StatusBadRequest)
		return
	}

	scope := req.Scope
	if scope == "" {
		scope = strings.Join(p.sessions.Scopes(), " ")
	}
	client := &session.Client{
		ID:                      generateSecureToken(16),
		RedirectURIs:            req.RedirectURIs,
		TokenEndpointAuthMethod: "none",
		GrantTypes:              []string{"authorization_code", "refresh_token"},
		ResponseTypes:           []string{"code"},
		Scope:                   scope,
		CreatedAt:               time.Now().UTC(),
	}
	if err := p.sessions.RegisterClient(r.Context(), client); err != nil {
		log.Printf("Failed to register OAuth client: %v", err)
		writeOAuthError(w, "server_error", "Failed to store client", http.StatusInternalServerError)
		return
	}

	log.Printf("Registered new OAuth client: %s (name: %s)", client.ID, req.ClientName)

	resp := ClientRegistrationResponse{
		ClientID:                client.ID,
		ClientIDIssuedAt:        client.CreatedAt.Unix(),
		ClientSecretExpiresAt:   0, // Never expires
		RedirectURIs:            client.RedirectURIs,
		GrantTypes:              client.GrantTypes,
		ResponseTypes:           client.ResponseTypes,
		Scope:                   client.Scope,
		TokenEndpointAuthMethod: client.TokenEndpointAuthMethod,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// HandleAuthorize handles the authorization request from the MCP client
// and redirects the user to Strava.
// GET /oauth/authorize?client_id=xxx&redirect_uri=xxx&response_type=code&state=xxx&code_challenge=xxx&code_challenge_method=S256
func (p *Provider) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	clientID := query.Get("client_id")
	redirectURI := query.Get("redirect_uri")
	responseType := query.Get("response_type")
	clientState := query.Get("state")
	codeChallenge := query.Get("code_challenge")
	codeChallengeMethod := query.Get("code_challenge_method")

	if clientID == "" {
		writeOAuthError(w, "invalid_request", "client_id is required", http.StatusBadRequest)
		return
	}
	if redirectURI == "" {
		writeOAuthError(w, "invalid_request", "redirect_uri is required", http.StatusBadRequest)
		return
	}
	if responseType != "code" {
		writeOAuthError(w, "unsupported_response_type", "Only 'code' response type is supported", http.StatusBadRequest)
		return
	}
	if codeChallengeMethod != "" && codeChallengeMethod != "S256" {
		writeOAuthError(w, "invalid_request", "Only the S256 code challenge method is supported", http.StatusBadRequest)
		return
	}

	client, err := p.sessions.GetClient(ctx, clientID)
	if err != nil {
		log.Printf("Failed to look up client %s: %v", clientID, err)
		writeOAuthError(w, "server_error", "Client lookup failed", http.StatusInternalServerError)
		return
	}
	if client == nil {
		writeOAuthError(w, "invalid_client", "Unknown client_id", http.StatusBadRequest)
		return
	}
	if !client.AllowsRedirect(redirectURI) {
		writeOAuthError(w, "invalid_request", "redirect_uri is not registered for this client", http.StatusBadRequest)
		return
	}

	pending, err := p.sessions.CreateAuthorizationRequest(ctx, session.AuthorizationRequest{
		ClientID:      clientID,
		RedirectURI:   redirectURI,
		CodeChallenge: codeChallenge,
		Scopes:        splitScopes(query.Get("scope")),
		Resource:      query.Get("resource"),
		ClientState:   clientState,
	})
	if err != nil {
		log.Printf("Failed to store pending authorization: %v", err)
		writeOAuthError(w, "server_error", "Failed to start authorization", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, p.upstream.AuthorizationURL(pending.State), http.StatusFound)
}

// HandleManualInstructions serves a static page explaining how to
// connect an MCP client, for users who land on the server directly.
// GET /oauth/strava/start
func (p *Provider) HandleManualInstructions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>Strava MCP OAuth</title>
  </head>
  <body>
    <h1>Connect Strava to your MCP client</h1>
    <p>This MCP server supports the standard OAuth flow used by ChatGPT and other MCP clients. To initiate the connection:</p>
    <ol>
      <li>Open ChatGPT Desktop (or another MCP client) and add a Streaming HTTP server.</li>
      <li>Use <code>%s/mcp</code> as the server URL.</li>
      <li>The client will automatically open the authorization window and guide you through Strava login.</li>
    </ol>
    <p>If you need to run the flow manually, supply a <code>client_id</code> and <code>redirect_uri</code> when calling the standard OAuth <code>/authorize</code> endpoint.</p>
  </body>
</html>
`, htmlEscape(p.baseURL))
}

// HandleStravaCallback completes the Strava leg: it consumes the pending
// authorization, exchanges the Strava code, creates the session, and
// sends the user back to the MCP client with an authorization code.
// GET /oauth/strava/callback?code=xxx&state=xxx
func (p *Provider) HandleStravaCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	if errParam := query.Get("error"); errParam != "" {
		http.Error(w, fmt.Sprintf("Strava authorization failed: %s", errParam), http.StatusBadRequest)
		return
	}

	state := query.Get("state")
	if state == "" {
		http.Error(w, "Missing OAuth state.", http.StatusBadRequest)
		return
	}

	pending, err := p.sessions.PopAuthorizationRequest(ctx, state)
	if err != nil {
		log.Printf("Failed to load pending authorization: %v", err)
		http.Error(w, "Failed to load authorization state", http.StatusInternalServerError)
		return
	}
	if pending == nil {
		http.Error(w, "OAuth session expired or invalid state.", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code.", http.StatusBadRequest)
		return
	}

	tokens, err := p.upstream.Exchange(ctx, code)
	if err != nil {
		if status, body, ok := upstreamStatus(err); ok {
			if status == 0 {
				status = http.StatusBadGateway
			}
			http.Error(w, fmt.Sprintf("Failed to exchange authorization code: %s", body), status)
			return
		}
		http.Error(w, fmt.Sprintf("Network error while contacting Strava: %v", err), http.StatusBadGateway)
		return
	}

	sess, err := p.sessions.CreateSession(ctx, tokens)
	if err != nil {
		log.Printf("Failed to create session: %v", err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	log.Printf("Created session %s for athlete %d (%s)", sess.ID, sess.AthleteID, sess.AthleteName)

	authCode, err := p.sessions.StoreAuthorizationCode(ctx, sess, pending)
	if err != nil {
		log.Printf("Failed to store authorization code: %v", err)
		http.Error(w, "Failed to issue authorization code", http.StatusInternalServerError)
		return
	}

	redirect, err := url.Parse(pending.RedirectURI)
	if err != nil {
		http.Error(w, "Invalid redirect URI", http.StatusBadRequest)
		return
	}
	params := redirect.Query()
	params.Set("code", authCode.Code)
	if pending.ClientState != "" {
		params.Set("state", pending.ClientState)
	}
	redirect.RawQuery = params.Encode()

	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

// HandleToken handles token requests from the MCP client.
// POST /oauth/token
func (p *Provider) HandleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, "invalid_request", "Invalid form data", http.StatusBadRequest)
		return
	}

	grantType := r.FormValue("grant_type")
	clientID := r.FormValue("client_id")

	switch grantType {
	case "authorization_code":
		p.handleAuthorizationCodeGrant(ctx, w, clientID, r.FormValue("code"), r.FormValue("code_verifier"), r.FormValue("redirect_uri"))
	case "refresh_token":
		p.handleRefreshTokenGrant(ctx, w, r.FormValue("refresh_token"), r.FormValue("scope"))
	default:
		writeOAuthError(w, "unsupported_grant_type", "Only authorization_code and refresh_token are supported", http.StatusBadRequest)
	}
}

func (p *Provider) handleAuthorizationCodeGrant(ctx context.Context, w http.ResponseWriter, clientID, code, codeVerifier, redirectURI string) {
	if code == "" {
		writeOAuthError(w, "invalid_request", "code is required", http.StatusBadRequest)
		return
	}

	record, sess, err := p.sessions.ConsumeAuthorizationCode(ctx, code)
	if err != nil {
		log.Printf("Failed to consume authorization code: %v", err)
		writeOAuthError(w, "server_error", "Failed to load authorization code", http.StatusInternalServerError)
		return
	}
	if record == nil {
		writeOAuthError(w, "invalid_grant", "authorization code has expired or is invalid", http.StatusBadRequest)
		return
	}

	if record.ClientID != "" && clientID != "" && record.ClientID != clientID {
		writeOAuthError(w, "invalid_client", "client_id mismatch", http.StatusUnauthorized)
		return
	}
	if record.RedirectURI != "" && redirectURI != "" && record.RedirectURI != redirectURI {
		writeOAuthError(w, "invalid_grant", "redirect_uri mismatch", http.StatusBadRequest)
		return
	}

	if record.CodeChallenge != "" {
		if codeVerifier == "" {
			writeOAuthError(w, "invalid_request", "code_verifier is required", http.StatusBadRequest)
			return
		}
		if !validatePKCE(codeVerifier, record.CodeChallenge) {
			writeOAuthError(w, "invalid_grant", "Invalid code_verifier", http.StatusBadRequest)
			return
		}
	}

	issueTo := record.ClientID
	if issueTo == "" {
		issueTo = clientID
	}
	grant, err := p.sessions.IssueTokens(ctx, sess, issueTo, record.Scopes, record.Resource)
	if err != nil {
		log.Printf("Failed to issue tokens: %v", err)
		writeOAuthError(w, "server_error", "Failed to issue tokens", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(grant)
}

func (p *Provider) handleRefreshTokenGrant(ctx context.Context, w http.ResponseWriter, refreshToken, scope string) {
	if refreshToken == "" {
		writeOAuthError(w, "invalid_request", "refresh_token is required", http.StatusBadRequest)
		return
	}

	grant, _, err := p.sessions.ExchangeRefreshToken(ctx, refreshToken, splitScopes(scope))
	if err != nil {
		log.Printf("Failed to exchange refresh token: %v", err)
		writeOAuthError(w, "server_error", "Failed to exchange refresh token", http.StatusInternalServerError)
		return
	}
	if grant == nil {
		writeOAuthError(w, "invalid_grant", "refresh token is invalid or expired", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(grant)
}

// HandleRevoke implements RFC 7009 token revocation. Revocation of an
// unknown token still returns 200.
// POST /oauth/revoke
func (p *Provider) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, "invalid_request", "Invalid form data", http.StatusBadRequest)
		return
	}

	token := r.FormValue("token")
	if token == "" {
		writeOAuthError(w, "invalid_request", "token is required", http.StatusBadRequest)
		return
	}

	hint := r.FormValue("token_type_hint")
	var err error
	switch hint {
	case "refresh_token":
		err = p.sessions.RevokeRefreshToken(ctx, token)
	case "access_token":
		err = p.sessions.RevokeAccessToken(ctx, token)
	default:
		if err = p.sessions.RevokeAccessToken(ctx, token); err == nil {
			err = p.sessions.RevokeRefreshToken(ctx, token)
		}
	}
	if err != nil {
		log.Printf("Failed to revoke token: %v", err)
		writeOAuthError(w, "server_error", "Failed to revoke token", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// HandleCurrentSession reports the session behind the presented bearer
// token.
// GET /oauth/sessions/current
func (p *Provider) HandleCurrentSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token := bearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("access_token")
	}
	if token == "" {
		writeDetail(w, "Missing access token.", http.StatusUnauthorized)
		return
	}

	sess, err := p.sessions.GetSessionByToken(ctx, token)
	if err != nil {
		log.Printf("Failed to load session: %v", err)
		http.Error(w, "Failed to load session", http.StatusInternalServerError)
		return
	}
	if sess == nil {
		writeDetail(w, "Session not found or expired.", http.StatusNotFound)
		return
	}

	resp := SessionIntrospection{
		Session: sess.PublicInfo(),
		Token:   token,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func htmlEscape(s string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return replacer.Replace(s)
}

// bearerToken extracts the bearer token from the Authorization header.
func bearerToken(r *http.Request) string {
	const bearerPrefix = "Bearer "
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// splitScopes parses a space-separated scope parameter.
func splitScopes(scope string) []string {
	if scope == "" {
		return nil
	}
	return strings.Fields(scope)
}

// generateSecureToken generates a cryptographically secure random token.
func generateSecureToken(length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp-based token (should never happen)
		return fmt.Sprintf("token_%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}

// validatePKCE validates the S256 code_verifier against the stored
// code_challenge.
func validatePKCE(verifier, challenge string) bool {
	hash := sha256.Sum256([]byte(verifier))
	computed := base64.RawURLEncoding.EncodeToString(hash[:])
	return computed == challenge
}

// writeOAuthError writes a standard OAuth2 error response.
func writeOAuthError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	resp := OAuthError{
		Error:            errorCode,
		ErrorDescription: description,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// writeDetail writes a {"detail": ...} JSON error body.
func writeDetail(w http.ResponseWriter, detail string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
