package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterTools registers all Strava tools with the MCP server.
func (s *Server) RegisterTools() {
	// Register ping tool for connectivity testing
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "ping",
		Description: "Test connectivity with the MCP server",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input struct{}) (
		*mcp.CallToolResult,
		struct {
			Message string `json:"message"`
			Time    string `json:"time"`
		},
		error,
	) {
		return nil, struct {
			Message string `json:"message"`
			Time    string `json:"time"`
		}{
			Message: "pong",
			Time:    time.Now().Format(time.RFC3339),
		}, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_athlete_profile",
		Description: "Get the authenticated athlete's profile, optionally with lifetime stats and training zones",
	}, s.handleGetAthleteProfile)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "query_activities",
		Description: "Query activities by time range with filters, or fetch one activity with optional streams, laps and zones",
	}, s.handleQueryActivities)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_activity_social",
		Description: "Get comments and kudos for an activity",
	}, s.handleGetActivitySocial)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "query_segments",
		Description: "Get a segment by ID, list starred segments, or explore segments within map bounds",
	}, s.handleQuerySegments)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "star_segment",
		Description: "Star or unstar a segment",
	}, s.handleStarSegment)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_segment_leaderboard",
		Description: "Get the leaderboard for a segment with optional filters",
	}, s.handleGetSegmentLeaderboard)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "query_routes",
		Description: "List the athlete's routes or get a single route by ID",
	}, s.handleQueryRoutes)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "export_route",
		Description: "Export a route to GPX or TCX format",
	}, s.handleExportRoute)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "analyze_training",
		Description: "Analyze training load over a period: totals, per-type breakdown, weekly trends and insights",
	}, s.handleAnalyzeTraining)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "compare_activities",
		Description: "Compare two or more activities side by side",
	}, s.handleCompareActivities)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "find_similar_activities",
		Description: "Find past activities similar to a reference activity by type and distance",
	}, s.handleFindSimilarActivities)
}
