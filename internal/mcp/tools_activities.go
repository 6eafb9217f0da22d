package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"strava-mcp/internal/strava"
)

const (
	defaultActivityLimit  = 10
	enrichedActivityLimit = 5
	maxActivityLimit      = 50
)

// QueryActivitiesInput is the input schema for the query_activities tool.
type QueryActivitiesInput struct {
	TimeRange      string `json:"time_range,omitempty" jsonschema:"description=Time range: recent (30 days) Nd ytd this-week this-month or YYYY-MM-DD:YYYY-MM-DD. Default: recent"`
	ActivityType   string `json:"activity_type,omitempty" jsonschema:"description=Filter by type such as Run Ride Swim"`
	ActivityID     int64  `json:"activity_id,omitempty" jsonschema:"description=Fetch one activity by ID instead of querying a range"`
	Distance       string `json:"distance,omitempty" jsonschema:"description=Distance filter: race name (5k 10k marathon) a value like 10km (matches ±10%) or a min:max range"`
	TitleContains  string `json:"title_contains,omitempty" jsonschema:"description=Filter by substring of the activity name"`
	RacesOnly      bool   `json:"races_only,omitempty" jsonschema:"description=Only return activities tagged as races"`
	IncludeStreams string `json:"include_streams,omitempty" jsonschema:"description=Comma-separated stream keys (time distance heartrate watts...) for single-activity mode"`
	IncludeLaps    bool   `json:"include_laps,omitempty" jsonschema:"description=Include laps for single-activity mode"`
	IncludeZones   bool   `json:"include_zones,omitempty" jsonschema:"description=Include zone distributions for single-activity mode"`
	Cursor         int    `json:"cursor,omitempty" jsonschema:"description=Pagination cursor from a previous response"`
	Limit          int    `json:"limit,omitempty" jsonschema:"description=Activities per page (1-50). Default: 10 or 5 with enrichments"`
	Unit           string `json:"unit,omitempty" jsonschema:"description=Measurement unit: meters or feet"`
}

// ActivityOutput is one activity row in query output.
type ActivityOutput struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Date         string `json:"date"`
	Distance     string `json:"distance"`
	MovingTime   string `json:"moving_time"`
	Elevation    string `json:"elevation"`
	AverageSpeed string `json:"average_speed,omitempty"`
	Pace         string `json:"pace,omitempty"`
	AverageHR    string `json:"average_hr,omitempty"`
	Kudos        int    `json:"kudos,omitempty"`
	PRCount      int    `json:"pr_count,omitempty"`
	IsRace       bool   `json:"is_race,omitempty"`
}

// SplitOutput is one split row in activity detail output.
type SplitOutput struct {
	Split      int    `json:"split"`
	Distance   string `json:"distance"`
	MovingTime string `json:"moving_time"`
	Pace       string `json:"pace,omitempty"`
	ElevChange string `json:"elev_change,omitempty"`
}

// LapOutput is one lap row in activity detail output.
type LapOutput struct {
	Index      int    `json:"index"`
	Name       string `json:"name,omitempty"`
	Distance   string `json:"distance"`
	MovingTime string `json:"moving_time"`
	Pace       string `json:"pace,omitempty"`
	AverageHR  string `json:"average_hr,omitempty"`
	Watts      string `json:"watts,omitempty"`
}

// ZoneBucketOutput is one zone bucket with time spent in it.
type ZoneBucketOutput struct {
	Range string `json:"range"`
	Time  string `json:"time"`
}

// ActivityZoneOutput is a per-activity zone distribution.
type ActivityZoneOutput struct {
	Type    string             `json:"type"`
	Buckets []ZoneBucketOutput `json:"buckets"`
}

// ActivityDetailOutput is the full detail for single-activity mode.
type ActivityDetailOutput struct {
	ActivityOutput
	Description string                     `json:"description,omitempty"`
	Calories    float64                    `json:"calories,omitempty"`
	Gear        string                     `json:"gear,omitempty"`
	Device      string                     `json:"device,omitempty"`
	AvgWatts    string                     `json:"average_watts,omitempty"`
	MaxHR       string                     `json:"max_hr,omitempty"`
	ElapsedTime string                     `json:"elapsed_time,omitempty"`
	Splits      []SplitOutput              `json:"splits,omitempty"`
	Laps        []LapOutput                `json:"laps,omitempty"`
	Zones       []ActivityZoneOutput       `json:"zones,omitempty"`
	Streams     map[string]json.RawMessage `json:"streams,omitempty"`
}

// QueryActivitiesOutput is the output schema for the query_activities tool.
type QueryActivitiesOutput struct {
	TimeRange  string                `json:"time_range,omitempty" jsonschema:"description=Human description of the queried range"`
	Activities []ActivityOutput      `json:"activities,omitempty"`
	Activity   *ActivityDetailOutput `json:"activity,omitempty" jsonschema:"description=Set in single-activity mode"`
	Count      int                   `json:"count"`
	NextCursor int                   `json:"next_cursor,omitempty" jsonschema:"description=Pass as cursor to fetch the next page. Absent on the last page"`
}

// handleQueryActivities implements the query_activities MCP tool.
func (s *Server) handleQueryActivities(ctx context.Context, req *mcp.CallToolRequest, input QueryActivitiesInput) (
	*mcp.CallToolResult,
	QueryActivitiesOutput,
	error,
) {
	c, err := s.client(ctx)
	if err != nil {
		return nil, QueryActivitiesOutput{}, err
	}
	unit := s.unit(input.Unit)

	if input.ActivityID != 0 {
		detail, err := s.activityDetail(ctx, c, input, unit)
		if err != nil {
			return nil, QueryActivitiesOutput{}, err
		}
		return nil, QueryActivitiesOutput{Activity: detail, Count: 1}, nil
	}

	timeRange := input.TimeRange
	if timeRange == "" {
		timeRange = "recent"
	}
	start, end, err := strava.ParseTimeRange(timeRange)
	if err != nil {
		return nil, QueryActivitiesOutput{}, err
	}

	enriched := input.IncludeStreams != "" || input.IncludeLaps || input.IncludeZones
	limit := input.Limit
	if limit == 0 {
		limit = defaultActivityLimit
		if enriched {
			limit = enrichedActivityLimit
		}
	}
	if limit < 1 || limit > maxActivityLimit {
		return nil, QueryActivitiesOutput{}, fmt.Errorf("limit must be between 1 and %d, got %d", maxActivityLimit, limit)
	}
	if input.Cursor < 0 {
		return nil, QueryActivitiesOutput{}, fmt.Errorf("cursor must not be negative")
	}

	filter := strava.ActivityFilter{
		ActivityType:  input.ActivityType,
		TitleContains: input.TitleContains,
	}
	if input.Distance != "" {
		min, max, err := strava.ParseDistance(input.Distance)
		if err != nil {
			return nil, QueryActivitiesOutput{}, err
		}
		filter.DistanceMin = min
		filter.DistanceMax = max
	}
	if input.RacesOnly {
		isRace := true
		filter.IsRace = &isRace
	}

	activities, err := c.GetAllActivities(ctx, strava.AllActivitiesOptions{
		After:   start,
		Before:  end,
		PerPage: 100,
	})
	if err != nil {
		return nil, QueryActivitiesOutput{}, fmt.Errorf("failed to list activities: %w", err)
	}
	activities = filter.Apply(activities)

	output := QueryActivitiesOutput{TimeRange: strava.RangeDescription(timeRange)}
	if input.Cursor >= len(activities) {
		return nil, output, nil
	}

	page := activities[input.Cursor:]
	if len(page) > limit {
		page = page[:limit]
		output.NextCursor = input.Cursor + limit
	}
	for _, activity := range page {
		output.Activities = append(output.Activities, activityOutput(activity, unit))
	}
	output.Count = len(output.Activities)
	return nil, output, nil
}

// activityDetail builds the single-activity response with the requested
// enrichments.
func (s *Server) activityDetail(ctx context.Context, c *strava.Client, input QueryActivitiesInput, unit strava.Unit) (*ActivityDetailOutput, error) {
	activity, err := c.GetActivity(ctx, input.ActivityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity %d: %w", input.ActivityID, err)
	}

	detail := &ActivityDetailOutput{
		ActivityOutput: activityOutput(activity.SummaryActivity, unit),
		Description:    activity.Description,
		Calories:       activity.Calories,
		Device:         activity.DeviceName,
		ElapsedTime:    strava.FormatDuration(activity.ElapsedTime),
	}
	if activity.Gear != nil {
		detail.Gear = activity.Gear.Name
	}
	if activity.AverageWatts > 0 {
		detail.AvgWatts = fmt.Sprintf("%.0f W", activity.AverageWatts)
	}
	if activity.MaxHeartrate > 0 {
		detail.MaxHR = fmt.Sprintf("%.0f bpm", activity.MaxHeartrate)
	}

	splits := activity.SplitsMetric
	if unit == strava.UnitFeet && len(activity.SplitsStandard) > 0 {
		splits = activity.SplitsStandard
	}
	for _, split := range splits {
		detail.Splits = append(detail.Splits, SplitOutput{
			Split:      split.Split,
			Distance:   strava.FormatDistance(split.Distance, unit),
			MovingTime: strava.FormatDuration(split.MovingTime),
			Pace:       strava.FormatPace(split.AverageSpeed, unit),
			ElevChange: strava.FormatElevation(split.ElevationDifference, unit),
		})
	}

	if input.IncludeLaps {
		laps := activity.Laps
		if len(laps) == 0 {
			laps, err = c.GetActivityLaps(ctx, input.ActivityID)
			if err != nil {
				return nil, fmt.Errorf("failed to get laps: %w", err)
			}
		}
		for _, lap := range laps {
			row := LapOutput{
				Index:      lap.LapIndex,
				Name:       lap.Name,
				Distance:   strava.FormatDistance(lap.Distance, unit),
				MovingTime: strava.FormatDuration(lap.MovingTime),
				Pace:       strava.FormatPace(lap.AverageSpeed, unit),
			}
			if lap.AverageHeartrate > 0 {
				row.AverageHR = fmt.Sprintf("%.0f bpm", lap.AverageHeartrate)
			}
			if lap.AverageWatts > 0 {
				row.Watts = fmt.Sprintf("%.0f W", lap.AverageWatts)
			}
			detail.Laps = append(detail.Laps, row)
		}
	}

	if input.IncludeZones {
		zones, err := c.GetActivityZones(ctx, input.ActivityID)
		if err != nil {
			return nil, fmt.Errorf("failed to get activity zones: %w", err)
		}
		for _, zone := range zones {
			row := ActivityZoneOutput{Type: zone.Type}
			for _, bucket := range zone.DistributionBuckets {
				label := fmt.Sprintf("%d-%d", bucket.Min, bucket.Max)
				if bucket.Max <= 0 || bucket.Max < bucket.Min {
					label = fmt.Sprintf("%d+", bucket.Min)
				}
				row.Buckets = append(row.Buckets, ZoneBucketOutput{
					Range: label,
					Time:  strava.FormatDuration(bucket.Time),
				})
			}
			detail.Zones = append(detail.Zones, row)
		}
	}

	if input.IncludeStreams != "" {
		var keys []string
		for _, key := range strings.Split(input.IncludeStreams, ",") {
			if key = strings.TrimSpace(key); key != "" {
				keys = append(keys, key)
			}
		}
		streams, err := c.GetActivityStreams(ctx, input.ActivityID, keys)
		if err != nil {
			return nil, fmt.Errorf("failed to get activity streams: %w", err)
		}
		detail.Streams = streams
	}

	return detail, nil
}

func activityOutput(activity strava.SummaryActivity, unit strava.Unit) ActivityOutput {
	output := ActivityOutput{
		ID:         activity.ID,
		Name:       activity.Name,
		Type:       strava.FormatActivityType(activity.Type, activity.SportType),
		Date:       strava.FormatDateTime(activity.StartDateLocal),
		Distance:   strava.FormatDistance(activity.Distance, unit),
		MovingTime: strava.FormatDuration(activity.MovingTime),
		Elevation:  strava.FormatElevation(activity.TotalElevationGain, unit),
		Kudos:      activity.KudosCount,
		PRCount:    activity.PRCount,
	}
	if activity.AverageSpeed > 0 {
		output.AverageSpeed = strava.FormatSpeed(activity.AverageSpeed, unit)
		output.Pace = strava.FormatPace(activity.AverageSpeed, unit)
	}
	if activity.AverageHeartrate > 0 {
		output.AverageHR = fmt.Sprintf("%.0f bpm", activity.AverageHeartrate)
	}
	output.IsRace = strava.IsRace(activity)
	return output
}

// ActivitySocialInput is the input schema for the get_activity_social tool.
type ActivitySocialInput struct {
	ActivityID int64 `json:"activity_id" jsonschema:"required,description=Activity ID"`
	Page       int   `json:"page,omitempty" jsonschema:"description=Page number. Default: 1"`
	PerPage    int   `json:"per_page,omitempty" jsonschema:"description=Results per page. Default: 30"`
}

// CommentOutput is one comment on an activity.
type CommentOutput struct {
	Athlete string `json:"athlete"`
	Text    string `json:"text"`
	Date    string `json:"date,omitempty"`
}

// ActivitySocialOutput is the output schema for the get_activity_social tool.
type ActivitySocialOutput struct {
	ActivityID   int64           `json:"activity_id"`
	ActivityName string          `json:"activity_name"`
	Comments     []CommentOutput `json:"comments"`
	Kudoers      []string        `json:"kudoers"`
	CommentCount int             `json:"comment_count"`
	KudosCount   int             `json:"kudos_count"`
}

// handleGetActivitySocial implements the get_activity_social MCP tool.
func (s *Server) handleGetActivitySocial(ctx context.Context, req *mcp.CallToolRequest, input ActivitySocialInput) (
	*mcp.CallToolResult,
	ActivitySocialOutput,
	error,
) {
	if input.ActivityID == 0 {
		return nil, ActivitySocialOutput{}, fmt.Errorf("activity_id is required")
	}

	c, err := s.client(ctx)
	if err != nil {
		return nil, ActivitySocialOutput{}, err
	}

	activity, err := c.GetActivity(ctx, input.ActivityID)
	if err != nil {
		return nil, ActivitySocialOutput{}, fmt.Errorf("failed to get activity %d: %w", input.ActivityID, err)
	}

	comments, err := c.GetActivityComments(ctx, input.ActivityID, input.Page, input.PerPage)
	if err != nil {
		return nil, ActivitySocialOutput{}, fmt.Errorf("failed to get comments: %w", err)
	}
	kudoers, err := c.GetActivityKudoers(ctx, input.ActivityID, input.Page, input.PerPage)
	if err != nil {
		return nil, ActivitySocialOutput{}, fmt.Errorf("failed to get kudoers: %w", err)
	}

	output := ActivitySocialOutput{
		ActivityID:   activity.ID,
		ActivityName: activity.Name,
		CommentCount: activity.CommentCount,
		KudosCount:   activity.KudosCount,
	}
	for _, comment := range comments {
		row := CommentOutput{Text: comment.Text}
		if comment.Athlete != nil {
			row.Athlete = strings.TrimSpace(comment.Athlete.Firstname + " " + comment.Athlete.Lastname)
		}
		if !comment.CreatedAt.IsZero() {
			row.Date = strava.FormatDateTime(comment.CreatedAt)
		}
		output.Comments = append(output.Comments, row)
	}
	for _, kudoer := range kudoers {
		output.Kudoers = append(output.Kudoers, strings.TrimSpace(kudoer.Firstname+" "+kudoer.Lastname))
	}
	return nil, output, nil
}
