package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"strava-mcp/internal/strava"
)

// QuerySegmentsInput is the input schema for the query_segments tool.
// Exactly one mode applies: segment_id fetches a single segment, bounds
// explores an area, otherwise the athlete's starred segments are listed.
type QuerySegmentsInput struct {
	SegmentID    int64     `json:"segment_id,omitempty" jsonschema:"description=Fetch one segment by ID"`
	Bounds       []float64 `json:"bounds,omitempty" jsonschema:"description=Explore segments within [south_lat west_lng north_lat east_lng]"`
	ActivityType string    `json:"activity_type,omitempty" jsonschema:"description=Explore filter: running or riding"`
	MinCategory  int       `json:"min_category,omitempty" jsonschema:"description=Explore filter: minimum climb category (0-5)"`
	MaxCategory  int       `json:"max_category,omitempty" jsonschema:"description=Explore filter: maximum climb category (0-5)"`
	Page         int       `json:"page,omitempty" jsonschema:"description=Page number for starred segments. Default: 1"`
	PerPage      int       `json:"per_page,omitempty" jsonschema:"description=Starred segments per page. Default: 30"`
	Unit         string    `json:"unit,omitempty" jsonschema:"description=Measurement unit: meters or feet"`
}

// SegmentOutput is one segment row.
type SegmentOutput struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	ActivityType  string `json:"activity_type,omitempty"`
	Distance      string `json:"distance"`
	AverageGrade  string `json:"average_grade,omitempty"`
	ClimbCategory int    `json:"climb_category,omitempty"`
	Location      string `json:"location,omitempty"`
	Starred       bool   `json:"starred,omitempty"`
}

// SegmentDetailOutput is the full detail for single-segment mode.
type SegmentDetailOutput struct {
	SegmentOutput
	ElevationGain string `json:"elevation_gain,omitempty"`
	EffortCount   int    `json:"effort_count,omitempty"`
	AthleteCount  int    `json:"athlete_count,omitempty"`
	StarCount     int    `json:"star_count,omitempty"`
	PRTime        string `json:"pr_time,omitempty" jsonschema:"description=The athlete's personal record on this segment"`
	PRDate        string `json:"pr_date,omitempty"`
}

// QuerySegmentsOutput is the output schema for the query_segments tool.
type QuerySegmentsOutput struct {
	Mode     string               `json:"mode" jsonschema:"description=single starred or explore"`
	Segment  *SegmentDetailOutput `json:"segment,omitempty"`
	Segments []SegmentOutput      `json:"segments,omitempty"`
	Count    int                  `json:"count"`
}

// handleQuerySegments implements the query_segments MCP tool.
func (s *Server) handleQuerySegments(ctx context.Context, req *mcp.CallToolRequest, input QuerySegmentsInput) (
	*mcp.CallToolResult,
	QuerySegmentsOutput,
	error,
) {
	c, err := s.client(ctx)
	if err != nil {
		return nil, QuerySegmentsOutput{}, err
	}
	unit := s.unit(input.Unit)

	if input.SegmentID != 0 {
		segment, err := c.GetSegment(ctx, input.SegmentID)
		if err != nil {
			return nil, QuerySegmentsOutput{}, fmt.Errorf("failed to get segment %d: %w", input.SegmentID, err)
		}
		return nil, QuerySegmentsOutput{
			Mode:    "single",
			Segment: segmentDetailOutput(segment, unit),
			Count:   1,
		}, nil
	}

	if len(input.Bounds) > 0 {
		if len(input.Bounds) != 4 {
			return nil, QuerySegmentsOutput{}, fmt.Errorf("bounds must contain exactly 4 values [south_lat west_lng north_lat east_lng], got %d", len(input.Bounds))
		}
		var bounds [4]float64
		copy(bounds[:], input.Bounds)
		explored, err := c.ExploreSegments(ctx, bounds, strava.ExploreSegmentsOptions{
			ActivityType: input.ActivityType,
			MinCat:       input.MinCategory,
			MaxCat:       input.MaxCategory,
		})
		if err != nil {
			return nil, QuerySegmentsOutput{}, fmt.Errorf("failed to explore segments: %w", err)
		}
		output := QuerySegmentsOutput{Mode: "explore"}
		for _, segment := range explored.Segments {
			output.Segments = append(output.Segments, SegmentOutput{
				ID:            segment.ID,
				Name:          segment.Name,
				Distance:      strava.FormatDistance(segment.Distance, unit),
				AverageGrade:  fmt.Sprintf("%.1f%%", segment.AvgGrade),
				ClimbCategory: segment.ClimbCategory,
				Starred:       segment.Starred,
			})
		}
		output.Count = len(output.Segments)
		return nil, output, nil
	}

	starred, err := c.ListStarredSegments(ctx, input.Page, input.PerPage)
	if err != nil {
		return nil, QuerySegmentsOutput{}, fmt.Errorf("failed to list starred segments: %w", err)
	}
	output := QuerySegmentsOutput{Mode: "starred"}
	for _, segment := range starred {
		output.Segments = append(output.Segments, segmentOutput(segment, unit))
	}
	output.Count = len(output.Segments)
	return nil, output, nil
}

func segmentOutput(segment strava.SummarySegment, unit strava.Unit) SegmentOutput {
	return SegmentOutput{
		ID:            segment.ID,
		Name:          segment.Name,
		ActivityType:  segment.ActivityType,
		Distance:      strava.FormatDistance(segment.Distance, unit),
		AverageGrade:  fmt.Sprintf("%.1f%%", segment.AverageGrade),
		ClimbCategory: segment.ClimbCategory,
		Location:      formatLocation(segment.City, segment.State, segment.Country),
		Starred:       segment.Starred,
	}
}

func segmentDetailOutput(segment *strava.DetailedSegment, unit strava.Unit) *SegmentDetailOutput {
	detail := &SegmentDetailOutput{
		SegmentOutput: segmentOutput(segment.SummarySegment, unit),
		ElevationGain: strava.FormatElevation(segment.TotalElevationGain, unit),
		EffortCount:   segment.EffortCount,
		AthleteCount:  segment.AthleteCount,
		StarCount:     segment.StarCount,
	}
	if stats := segment.AthleteSegmentStats; stats != nil && stats.PRElapsedTime > 0 {
		detail.PRTime = strava.FormatDuration(stats.PRElapsedTime)
		detail.PRDate = stats.PRDate
	}
	return detail
}

// StarSegmentInput is the input schema for the star_segment tool.
type StarSegmentInput struct {
	SegmentID int64 `json:"segment_id" jsonschema:"required,description=Segment ID"`
	Unstar    bool  `json:"unstar,omitempty" jsonschema:"description=Set true to remove the star instead"`
}

// StarSegmentOutput is the output schema for the star_segment tool.
type StarSegmentOutput struct {
	SegmentID int64  `json:"segment_id"`
	Name      string `json:"name"`
	Starred   bool   `json:"starred"`
	Message   string `json:"message"`
}

// handleStarSegment implements the star_segment MCP tool.
func (s *Server) handleStarSegment(ctx context.Context, req *mcp.CallToolRequest, input StarSegmentInput) (
	*mcp.CallToolResult,
	StarSegmentOutput,
	error,
) {
	if input.SegmentID == 0 {
		return nil, StarSegmentOutput{}, fmt.Errorf("segment_id is required")
	}

	c, err := s.client(ctx)
	if err != nil {
		return nil, StarSegmentOutput{}, err
	}

	segment, err := c.StarSegment(ctx, input.SegmentID, !input.Unstar)
	if err != nil {
		return nil, StarSegmentOutput{}, fmt.Errorf("failed to update segment star: %w", err)
	}

	verb := "starred"
	if input.Unstar {
		verb = "unstarred"
	}
	return nil, StarSegmentOutput{
		SegmentID: segment.ID,
		Name:      segment.Name,
		Starred:   segment.Starred,
		Message:   fmt.Sprintf("Segment '%s' %s successfully", segment.Name, verb),
	}, nil
}

// SegmentLeaderboardInput is the input schema for the get_segment_leaderboard tool.
type SegmentLeaderboardInput struct {
	SegmentID   int64  `json:"segment_id" jsonschema:"required,description=Segment ID"`
	Gender      string `json:"gender,omitempty" jsonschema:"description=Filter: M or F"`
	AgeGroup    string `json:"age_group,omitempty" jsonschema:"description=Filter such as 25_34 (requires Strava subscription)"`
	WeightClass string `json:"weight_class,omitempty" jsonschema:"description=Filter such as 65_74 (requires Strava subscription)"`
	Following   bool   `json:"following,omitempty" jsonschema:"description=Only athletes the user follows"`
	ClubID      int64  `json:"club_id,omitempty" jsonschema:"description=Only members of this club"`
	DateRange   string `json:"date_range,omitempty" jsonschema:"description=Filter: this_year this_month this_week or today"`
	Page        int    `json:"page,omitempty" jsonschema:"description=Page number. Default: 1"`
	PerPage     int    `json:"per_page,omitempty" jsonschema:"description=Entries per page. Default: 10"`
}

// LeaderboardEntryOutput is one leaderboard row.
type LeaderboardEntryOutput struct {
	Rank    int    `json:"rank"`
	Athlete string `json:"athlete"`
	Time    string `json:"time"`
	Date    string `json:"date,omitempty"`
}

// SegmentLeaderboardOutput is the output schema for the get_segment_leaderboard tool.
type SegmentLeaderboardOutput struct {
	SegmentID   int64                    `json:"segment_id"`
	EffortCount int                      `json:"effort_count,omitempty"`
	EntryCount  int                      `json:"entry_count,omitempty"`
	KOMType     string                   `json:"kom_type,omitempty"`
	Entries     []LeaderboardEntryOutput `json:"entries"`
}

// handleGetSegmentLeaderboard implements the get_segment_leaderboard MCP tool.
func (s *Server) handleGetSegmentLeaderboard(ctx context.Context, req *mcp.CallToolRequest, input SegmentLeaderboardInput) (
	*mcp.CallToolResult,
	SegmentLeaderboardOutput,
	error,
) {
	if input.SegmentID == 0 {
		return nil, SegmentLeaderboardOutput{}, fmt.Errorf("segment_id is required")
	}

	c, err := s.client(ctx)
	if err != nil {
		return nil, SegmentLeaderboardOutput{}, err
	}

	leaderboard, err := c.GetSegmentLeaderboard(ctx, input.SegmentID, strava.LeaderboardOptions{
		Gender:      input.Gender,
		AgeGroup:    input.AgeGroup,
		WeightClass: input.WeightClass,
		Following:   input.Following,
		ClubID:      input.ClubID,
		DateRange:   input.DateRange,
		Page:        input.Page,
		PerPage:     input.PerPage,
	})
	if err != nil {
		return nil, SegmentLeaderboardOutput{}, fmt.Errorf("failed to get segment leaderboard: %w", err)
	}

	output := SegmentLeaderboardOutput{
		SegmentID:   input.SegmentID,
		EffortCount: leaderboard.EffortCount,
		EntryCount:  leaderboard.EntryCount,
		KOMType:     leaderboard.KOMType,
	}
	for _, entry := range leaderboard.Entries {
		row := LeaderboardEntryOutput{
			Rank:    entry.Rank,
			Athlete: entry.AthleteName,
			Time:    strava.FormatDuration(entry.ElapsedTime),
		}
		if !entry.StartDate.IsZero() {
			row.Date = strava.FormatDate(entry.StartDate)
		}
		output.Entries = append(output.Entries, row)
	}
	return nil, output, nil
}
