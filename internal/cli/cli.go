// Package cli provides the command-line interface for strava-mcp.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"strava-mcp/internal/config"
	"strava-mcp/internal/mcp"
	"strava-mcp/internal/oauth"
	"strava-mcp/internal/session"
	"strava-mcp/internal/store"
	"strava-mcp/internal/strava"
	"strava-mcp/pkg/auth"
)

// Version information
const Version = "1.0.0"

// RootCmd is the root command for the CLI.
var RootCmd = &cobra.Command{
	Use:   "strava-mcp",
	Short: "Strava MCP Server - Strava tools for AI assistants",
	Long:  "MCP server exposing Strava activities, segments, routes and training analysis, with a multi-user OAuth session broker in front of the Strava API",
}

// Serve command flags
var (
	serveStdio   bool
	serveHost    string
	servePort    int
	serveBaseURL string
	serveEnv     string
)

// Auth command flags
var (
	authEnv string
)

// Athlete command flags
var (
	athleteEnv string
)

// Command definitions
var (
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("strava-mcp version %s\n", Version)
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long: `Run the MCP server.

By default the server listens on HTTP and acts as an OAuth provider:
MCP clients authorize through the server, which brokers the Strava
OAuth flow and keeps one session per user. Sessions live in the
configured backend (memory, Redis, or Firestore).

With --stdio the server speaks MCP over stdin/stdout for a single
athlete, using the tokens saved by 'strava-mcp auth'.

Configuration comes from the environment (or a .env file):
  STRAVA_CLIENT_ID, STRAVA_CLIENT_SECRET   Strava API application
  BASE_URL                                 Public URL of this server
  STRAVA_SESSION_BACKEND                   memory (default), redis, firestore
  STRAVA_MEASUREMENT_PREFERENCE            meters (default) or feet`,
		Example: `  # HTTP mode on the default port
  strava-mcp serve

  # HTTP mode behind a public URL
  strava-mcp serve --base-url https://mcp.example.com

  # Single-user stdio mode for a local MCP client
  strava-mcp serve --stdio`,
		RunE: runServe,
	}

	authCmd = &cobra.Command{
		Use:   "auth",
		Short: "Authorize with Strava for stdio mode",
		Long: `Run the one-time Strava authorization for single-user stdio mode.

Opens the Strava consent page in a browser, receives the callback on
localhost:8080, and saves the resulting tokens to the .env file so
'strava-mcp serve --stdio' can use them.

HTTP mode does not need this: each user authorizes through the
server's own OAuth endpoints.`,
		Example: `  # Authorize and save tokens to .env
  strava-mcp auth

  # Save tokens to a different file
  strava-mcp auth --env /etc/strava-mcp/.env`,
		RunE: runAuth,
	}

	athleteCmd = &cobra.Command{
		Use:   "athlete",
		Short: "Show the authorized athlete",
		Long: `Fetch and display the profile of the athlete whose tokens are in
the .env file. Useful to verify that 'strava-mcp auth' worked.`,
		RunE: runAthlete,
	}
)

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx, serveEnv)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if cmd.Flags().Changed("base-url") {
		cfg.BaseURL = strings.TrimRight(serveBaseURL, "/")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = session.DefaultScopes
	}

	serverCfg := &mcp.Config{
		Host:                  cfg.Host,
		Port:                  cfg.Port,
		BaseURL:               cfg.ResolvedBaseURL(),
		MeasurementPreference: cfg.MeasurementPreference,
		RouteExportPath:       cfg.RouteExportPath,
	}

	if serveStdio {
		if cfg.AccessToken == "" || cfg.RefreshToken == "" {
			return fmt.Errorf("no saved Strava tokens: run 'strava-mcp auth' first")
		}
		creds := auth.NewEnvCredentials(
			auth.NewConfig(cfg.ClientID, cfg.ClientSecret, "", scopes),
			cfg.AccessToken, cfg.RefreshToken, cfg.TokenExpiry, cfg.EnvPath)
		return mcp.NewStdioServer(serverCfg, creds).RunStdio(ctx)
	}

	backend, err := store.New(ctx, store.Config{
		Backend:             cfg.SessionBackend,
		RedisAddr:           cfg.RedisAddr,
		RedisPassword:       cfg.RedisPassword,
		RedisDB:             cfg.RedisDB,
		FirestoreProject:    cfg.FirestoreProject,
		FirestoreCollection: cfg.FirestoreCollection,
		DefaultTTL:          session.DurableTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create session backend: %w", err)
	}
	defer backend.Close()

	sessions := session.NewStore(backend, session.Options{
		SessionTTL: cfg.SessionTTL,
		CodeTTL:    cfg.CodeTTL,
		Scopes:     scopes,
		Clients:    cfg.Clients,
	})
	upstream := oauth.NewUpstreamService(cfg.ClientID, cfg.ClientSecret, serverCfg.BaseURL, scopes)
	provider := oauth.NewProvider(serverCfg.BaseURL, sessions, upstream)

	return mcp.NewServer(serverCfg, sessions, upstream, provider).Run(ctx)
}

func runAuth(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx, authEnv)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = session.DefaultScopes
	}

	token, err := auth.Setup(ctx, cfg.ClientID, cfg.ClientSecret, scopes, authEnv)
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	green := color.New(color.FgGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Println(green("Strava authorization successful!"))
	fmt.Println()
	fmt.Printf("  %s: %s\n", cyan("Tokens saved to"), authEnv)
	fmt.Printf("  %s: %s\n", cyan("Access token expires"), token.Expiry.Format("2006-01-02 15:04:05"))
	fmt.Println()
	fmt.Println("Run 'strava-mcp serve --stdio' to start the server.")

	return nil
}

func runAthlete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx, athleteEnv)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.AccessToken == "" || cfg.RefreshToken == "" {
		return fmt.Errorf("no saved Strava tokens: run 'strava-mcp auth' first")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = session.DefaultScopes
	}
	creds := auth.NewEnvCredentials(
		auth.NewConfig(cfg.ClientID, cfg.ClientSecret, "", scopes),
		cfg.AccessToken, cfg.RefreshToken, cfg.TokenExpiry, cfg.EnvPath)

	athlete, err := strava.NewClient(creds).GetAthlete(ctx)
	if err != nil {
		return err
	}

	unit := strava.UnitMeters
	if cfg.MeasurementPreference == "feet" {
		unit = strava.UnitFeet
	}
	displayAthlete(athlete, unit)
	return nil
}

// displayAthlete prints the athlete profile with the gear summary table.
func displayAthlete(athlete *strava.Athlete, unit strava.Unit) {
	green := color.New(color.FgGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Println(green("Authorized athlete"))
	fmt.Println(strings.Repeat("─", 40))
	fmt.Println()

	name := strings.TrimSpace(athlete.Firstname + " " + athlete.Lastname)
	fmt.Printf("  %s: %s\n", cyan("Name"), name)
	fmt.Printf("  %s: %d\n", cyan("ID"), athlete.ID)
	if athlete.Username != "" {
		fmt.Printf("  %s: %s\n", cyan("Username"), athlete.Username)
	}
	if location := joinNonEmpty(athlete.City, athlete.State, athlete.Country); location != "" {
		fmt.Printf("  %s: %s\n", cyan("Location"), location)
	}
	if athlete.FTP > 0 {
		fmt.Printf("  %s: %d W\n", cyan("FTP"), athlete.FTP)
	}
	if athlete.Premium || athlete.Summit {
		fmt.Printf("  %s: yes\n", cyan("Subscription"))
	}

	gear := append(append([]strava.SummaryGear{}, athlete.Bikes...), athlete.Shoes...)
	if len(gear) == 0 {
		return
	}

	fmt.Println()
	fmt.Printf("  %s:\n", cyan("Gear"))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	for _, g := range gear {
		marker := ""
		if g.Primary {
			marker = "(primary)"
		}
		fmt.Fprintf(w, "    %s\t%s\t%s\n", g.Name, strava.FormatDistance(g.Distance, unit), marker)
	}
}

// joinNonEmpty joins the non-empty parts with commas.
func joinNonEmpty(parts ...string) string {
	var present []string
	for _, part := range parts {
		if part != "" {
			present = append(present, part)
		}
	}
	return strings.Join(present, ", ")
}

// Init initializes the CLI commands and flags.
func Init() {
	// Add version flag to root command
	RootCmd.Version = Version
	RootCmd.SetVersionTemplate("strava-mcp version {{.Version}}\n")

	// Setup serve command flags
	serveCmd.Flags().BoolVar(&serveStdio, "stdio", false, "Serve MCP over stdin/stdout for a single athlete")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind (overrides HOST)")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on (overrides PORT)")
	serveCmd.Flags().StringVar(&serveBaseURL, "base-url", "", "Public base URL (overrides BASE_URL)")
	serveCmd.Flags().StringVar(&serveEnv, "env", ".env", "Path to the .env file")

	// Setup auth command flags
	authCmd.Flags().StringVar(&authEnv, "env", ".env", "Path to the .env file for saving tokens")

	// Setup athlete command flags
	athleteCmd.Flags().StringVar(&athleteEnv, "env", ".env", "Path to the .env file")

	// Register commands
	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(authCmd)
	RootCmd.AddCommand(athleteCmd)
}
