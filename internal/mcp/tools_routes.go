package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"strava-mcp/internal/strava"
)

// routeTypes maps the numeric route type to its name.
var routeTypes = map[int]string{
	1: "Ride",
	2: "Run",
}

// QueryRoutesInput is the input schema for the query_routes tool.
type QueryRoutesInput struct {
	RouteID int64  `json:"route_id,omitempty" jsonschema:"description=Fetch one route by ID instead of listing"`
	Page    int    `json:"page,omitempty" jsonschema:"description=Page number. Default: 1"`
	PerPage int    `json:"per_page,omitempty" jsonschema:"description=Routes per page. Default: 30"`
	Unit    string `json:"unit,omitempty" jsonschema:"description=Measurement unit: meters or feet"`
}

// RouteOutput is one route row.
type RouteOutput struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type,omitempty"`
	Distance      string `json:"distance"`
	ElevationGain string `json:"elevation_gain"`
	EstimatedTime string `json:"estimated_time,omitempty"`
	Description   string `json:"description,omitempty"`
	Private       bool   `json:"private,omitempty"`
	Starred       bool   `json:"starred,omitempty"`
}

// QueryRoutesOutput is the output schema for the query_routes tool.
type QueryRoutesOutput struct {
	Route  *RouteOutput  `json:"route,omitempty" jsonschema:"description=Set in single-route mode"`
	Routes []RouteOutput `json:"routes,omitempty"`
	Count  int           `json:"count"`
}

// handleQueryRoutes implements the query_routes MCP tool.
func (s *Server) handleQueryRoutes(ctx context.Context, req *mcp.CallToolRequest, input QueryRoutesInput) (
	*mcp.CallToolResult,
	QueryRoutesOutput,
	error,
) {
	c, err := s.client(ctx)
	if err != nil {
		return nil, QueryRoutesOutput{}, err
	}
	unit := s.unit(input.Unit)

	if input.RouteID != 0 {
		route, err := c.GetRoute(ctx, input.RouteID)
		if err != nil {
			return nil, QueryRoutesOutput{}, fmt.Errorf("failed to get route %d: %w", input.RouteID, err)
		}
		output := routeOutput(*route, unit)
		return nil, QueryRoutesOutput{Route: &output, Count: 1}, nil
	}

	routes, err := c.ListAthleteRoutes(ctx, 0, input.Page, input.PerPage)
	if err != nil {
		return nil, QueryRoutesOutput{}, fmt.Errorf("failed to list routes: %w", err)
	}
	output := QueryRoutesOutput{Count: len(routes)}
	for _, route := range routes {
		output.Routes = append(output.Routes, routeOutput(route, unit))
	}
	return nil, output, nil
}

func routeOutput(route strava.Route, unit strava.Unit) RouteOutput {
	output := RouteOutput{
		ID:            route.ID,
		Name:          route.Name,
		Type:          routeTypes[route.Type],
		Distance:      strava.FormatDistance(route.Distance, unit),
		ElevationGain: strava.FormatElevation(route.ElevationGain, unit),
		Description:   route.Description,
		Private:       route.Private,
		Starred:       route.Starred,
	}
	if route.EstimatedMovingTime > 0 {
		output.EstimatedTime = strava.FormatDuration(route.EstimatedMovingTime)
	}
	return output
}

// ExportRouteInput is the input schema for the export_route tool.
type ExportRouteInput struct {
	RouteID int64  `json:"route_id" jsonschema:"required,description=Route ID"`
	Format  string `json:"format,omitempty" jsonschema:"description=Export format: gpx or tcx. Default: gpx"`
}

// ExportRouteOutput is the output schema for the export_route tool.
type ExportRouteOutput struct {
	RouteID   int64  `json:"route_id"`
	Format    string `json:"format"`
	Filename  string `json:"filename"`
	SizeBytes int    `json:"size_bytes"`
	Content   string `json:"content" jsonschema:"description=Raw GPX or TCX XML data"`
	SavedTo   string `json:"saved_to,omitempty" jsonschema:"description=Path of the exported file when a route export directory is configured"`
}

// handleExportRoute implements the export_route MCP tool.
func (s *Server) handleExportRoute(ctx context.Context, req *mcp.CallToolRequest, input ExportRouteInput) (
	*mcp.CallToolResult,
	ExportRouteOutput,
	error,
) {
	if input.RouteID == 0 {
		return nil, ExportRouteOutput{}, fmt.Errorf("route_id is required")
	}
	format := input.Format
	if format == "" {
		format = "gpx"
	}
	if format != "gpx" && format != "tcx" {
		return nil, ExportRouteOutput{}, fmt.Errorf("invalid format %q, must be 'gpx' or 'tcx'", format)
	}

	c, err := s.client(ctx)
	if err != nil {
		return nil, ExportRouteOutput{}, err
	}

	var content string
	if format == "gpx" {
		content, err = c.ExportRouteGPX(ctx, input.RouteID)
	} else {
		content, err = c.ExportRouteTCX(ctx, input.RouteID)
	}
	if err != nil {
		return nil, ExportRouteOutput{}, fmt.Errorf("failed to export route %d: %w", input.RouteID, err)
	}

	output := ExportRouteOutput{
		RouteID:   input.RouteID,
		Format:    format,
		Filename:  fmt.Sprintf("route_%d.%s", input.RouteID, format),
		SizeBytes: len(content),
		Content:   content,
	}

	if s.config.RouteExportPath != "" {
		if err := os.MkdirAll(s.config.RouteExportPath, 0o755); err != nil {
			return nil, ExportRouteOutput{}, fmt.Errorf("failed to create export directory: %w", err)
		}
		path := filepath.Join(s.config.RouteExportPath, output.Filename)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, ExportRouteOutput{}, fmt.Errorf("failed to write export file: %w", err)
		}
		output.SavedTo = path
	}

	return nil, output, nil
}
