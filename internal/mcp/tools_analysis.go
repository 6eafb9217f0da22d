package mcp

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"strava-mcp/internal/strava"
)

const (
	defaultAnalysisLimit = 200
	maxAnalysisLimit     = 500
)

// AnalyzeTrainingInput is the input schema for the analyze_training tool.
type AnalyzeTrainingInput struct {
	Period        string `json:"period,omitempty" jsonschema:"description=Time range: recent Nd ytd this-week this-month or YYYY-MM-DD:YYYY-MM-DD. Default: 30d"`
	ActivityType  string `json:"activity_type,omitempty" jsonschema:"description=Restrict the analysis to one type such as Run or Ride"`
	MaxActivities int    `json:"max_activities,omitempty" jsonschema:"description=Maximum activities to analyze (1-500). Default: 200"`
	Unit          string `json:"unit,omitempty" jsonschema:"description=Measurement unit: meters or feet"`
}

// PeriodOutput describes the analyzed period.
type PeriodOutput struct {
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Days        int    `json:"days"`
}

// TrainingSummaryOutput aggregates the period totals and averages.
type TrainingSummaryOutput struct {
	TotalActivities   int     `json:"total_activities"`
	TotalDistance     string  `json:"total_distance"`
	TotalTime         string  `json:"total_time"`
	TotalElevation    string  `json:"total_elevation"`
	AverageDistance   string  `json:"average_distance"`
	ActivitiesPerWeek float64 `json:"activities_per_week"`
}

// TypeBreakdownOutput is the per-type share of the period.
type TypeBreakdownOutput struct {
	Type     string  `json:"type"`
	Count    int     `json:"count"`
	Percent  float64 `json:"percent"`
	Distance string  `json:"distance"`
	Time     string  `json:"time"`
}

// WeeklyTrendOutput is one week of the period.
type WeeklyTrendOutput struct {
	WeekStart  string `json:"week_start"`
	Activities int    `json:"activities"`
	Distance   string `json:"distance"`
	Time       string `json:"time"`
}

// AnalyzeTrainingOutput is the output schema for the analyze_training tool.
type AnalyzeTrainingOutput struct {
	Period   PeriodOutput          `json:"period"`
	Summary  TrainingSummaryOutput `json:"summary"`
	ByType   []TypeBreakdownOutput `json:"by_activity_type,omitempty"`
	Weekly   []WeeklyTrendOutput   `json:"weekly_trends,omitempty"`
	Insights []string              `json:"insights,omitempty"`
}

// handleAnalyzeTraining implements the analyze_training MCP tool.
func (s *Server) handleAnalyzeTraining(ctx context.Context, req *mcp.CallToolRequest, input AnalyzeTrainingInput) (
	*mcp.CallToolResult,
	AnalyzeTrainingOutput,
	error,
) {
	period := input.Period
	if period == "" {
		period = "30d"
	}
	maxActivities := input.MaxActivities
	if maxActivities == 0 {
		maxActivities = defaultAnalysisLimit
	}
	if maxActivities < 1 || maxActivities > maxAnalysisLimit {
		return nil, AnalyzeTrainingOutput{}, fmt.Errorf("max_activities must be between 1 and %d, got %d", maxAnalysisLimit, maxActivities)
	}

	start, end, err := strava.ParseTimeRange(period)
	if err != nil {
		return nil, AnalyzeTrainingOutput{}, err
	}

	c, err := s.client(ctx)
	if err != nil {
		return nil, AnalyzeTrainingOutput{}, err
	}
	unit := s.unit(input.Unit)

	activities, err := c.GetAllActivities(ctx, strava.AllActivitiesOptions{
		After:         start,
		Before:        end,
		PerPage:       200,
		MaxActivities: maxActivities,
	})
	if err != nil {
		return nil, AnalyzeTrainingOutput{}, fmt.Errorf("failed to list activities: %w", err)
	}
	if input.ActivityType != "" {
		activities = strava.ActivityFilter{ActivityType: input.ActivityType}.Apply(activities)
	}

	days := int(math.Ceil(end.Sub(start).Hours() / 24))
	if days < 1 {
		days = 1
	}
	output := AnalyzeTrainingOutput{
		Period: PeriodOutput{
			Description: strava.RangeDescription(period),
			StartDate:   strava.FormatDate(start),
			EndDate:     strava.FormatDate(end),
			Days:        days,
		},
	}

	var totalDistance, totalElevation float64
	var totalTime int
	for _, activity := range activities {
		totalDistance += activity.Distance
		totalElevation += activity.TotalElevationGain
		totalTime += activity.MovingTime
	}
	weeks := float64(days) / 7
	output.Summary = TrainingSummaryOutput{
		TotalActivities:   len(activities),
		TotalDistance:     strava.FormatDistance(totalDistance, unit),
		TotalTime:         strava.FormatDuration(totalTime),
		TotalElevation:    strava.FormatElevation(totalElevation, unit),
		AverageDistance:   strava.FormatDistance(averageDistance(totalDistance, len(activities)), unit),
		ActivitiesPerWeek: math.Round(float64(len(activities))/weeks*10) / 10,
	}

	output.ByType = typeBreakdown(activities, unit)
	output.Weekly = weeklyTrends(activities, unit)
	output.Insights = trainingInsights(activities, output.ByType, unit)

	return nil, output, nil
}

func averageDistance(total float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func typeBreakdown(activities []strava.SummaryActivity, unit strava.Unit) []TypeBreakdownOutput {
	if len(activities) == 0 {
		return nil
	}

	type bucket struct {
		count    int
		distance float64
		time     int
	}
	buckets := make(map[string]*bucket)
	for _, activity := range activities {
		b := buckets[activity.Type]
		if b == nil {
			b = &bucket{}
			buckets[activity.Type] = b
		}
		b.count++
		b.distance += activity.Distance
		b.time += activity.MovingTime
	}

	var breakdown []TypeBreakdownOutput
	for activityType, b := range buckets {
		breakdown = append(breakdown, TypeBreakdownOutput{
			Type:     activityType,
			Count:    b.count,
			Percent:  math.Round(float64(b.count)/float64(len(activities))*1000) / 10,
			Distance: strava.FormatDistance(b.distance, unit),
			Time:     strava.FormatDuration(b.time),
		})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Count != breakdown[j].Count {
			return breakdown[i].Count > breakdown[j].Count
		}
		return breakdown[i].Type < breakdown[j].Type
	})
	return breakdown
}

// weekStart returns the Monday midnight preceding t.
func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	day := t.AddDate(0, 0, -offset)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, t.Location())
}

func weeklyTrends(activities []strava.SummaryActivity, unit strava.Unit) []WeeklyTrendOutput {
	type bucket struct {
		activities int
		distance   float64
		time       int
	}
	buckets := make(map[time.Time]*bucket)
	for _, activity := range activities {
		week := weekStart(activity.StartDateLocal)
		b := buckets[week]
		if b == nil {
			b = &bucket{}
			buckets[week] = b
		}
		b.activities++
		b.distance += activity.Distance
		b.time += activity.MovingTime
	}

	weeks := make([]time.Time, 0, len(buckets))
	for week := range buckets {
		weeks = append(weeks, week)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })

	var trends []WeeklyTrendOutput
	for _, week := range weeks {
		b := buckets[week]
		trends = append(trends, WeeklyTrendOutput{
			WeekStart:  strava.FormatDate(week),
			Activities: b.activities,
			Distance:   strava.FormatDistance(b.distance, unit),
			Time:       strava.FormatDuration(b.time),
		})
	}
	return trends
}

func trainingInsights(activities []strava.SummaryActivity, byType []TypeBreakdownOutput, unit strava.Unit) []string {
	if len(activities) == 0 {
		return []string{"No activities found in this period."}
	}

	var insights []string
	if len(byType) > 0 {
		top := byType[0]
		insights = append(insights, fmt.Sprintf("Most frequent activity: %s (%d of %d activities, %.0f%%)",
			top.Type, top.Count, len(activities), top.Percent))
	}

	longest := activities[0]
	for _, activity := range activities[1:] {
		if activity.Distance > longest.Distance {
			longest = activity
		}
	}
	insights = append(insights, fmt.Sprintf("Longest activity: '%s' at %s",
		longest.Name, strava.FormatDistance(longest.Distance, unit)))

	// Activity lists arrive newest first, so the first half is the more
	// recent one.
	if len(activities) >= 4 {
		half := len(activities) / 2
		var recent, earlier float64
		for _, activity := range activities[:half] {
			recent += activity.Distance
		}
		for _, activity := range activities[half:] {
			earlier += activity.Distance
		}
		switch {
		case earlier > 0 && recent > earlier*1.1:
			insights = append(insights, "Training volume is trending up in the recent half of the period.")
		case recent > 0 && earlier > recent*1.1:
			insights = append(insights, "Training volume is trending down in the recent half of the period.")
		}
	}

	races := 0
	for _, activity := range activities {
		if strava.IsRace(activity) {
			races++
		}
	}
	if races > 0 {
		insights = append(insights, fmt.Sprintf("Includes %d race(s).", races))
	}
	return insights
}

// CompareActivitiesInput is the input schema for the compare_activities tool.
type CompareActivitiesInput struct {
	ActivityIDs []int64 `json:"activity_ids" jsonschema:"required,description=Two to ten activity IDs to compare"`
	Unit        string  `json:"unit,omitempty" jsonschema:"description=Measurement unit: meters or feet"`
}

// ActivityComparisonOutput is one activity row in a comparison.
type ActivityComparisonOutput struct {
	ActivityOutput
	AverageWatts string  `json:"average_watts,omitempty"`
	Calories     float64 `json:"calories,omitempty"`
}

// CompareActivitiesOutput is the output schema for the compare_activities tool.
type CompareActivitiesOutput struct {
	Activities []ActivityComparisonOutput `json:"activities"`
	Fastest    string                     `json:"fastest,omitempty" jsonschema:"description=Name of the activity with the highest average speed"`
	Longest    string                     `json:"longest,omitempty" jsonschema:"description=Name of the activity with the greatest distance"`
}

// handleCompareActivities implements the compare_activities MCP tool.
func (s *Server) handleCompareActivities(ctx context.Context, req *mcp.CallToolRequest, input CompareActivitiesInput) (
	*mcp.CallToolResult,
	CompareActivitiesOutput,
	error,
) {
	if len(input.ActivityIDs) < 2 || len(input.ActivityIDs) > 10 {
		return nil, CompareActivitiesOutput{}, fmt.Errorf("activity_ids must contain between 2 and 10 IDs, got %d", len(input.ActivityIDs))
	}

	c, err := s.client(ctx)
	if err != nil {
		return nil, CompareActivitiesOutput{}, err
	}
	unit := s.unit(input.Unit)

	var output CompareActivitiesOutput
	var fastest, longest *strava.DetailedActivity
	for _, id := range input.ActivityIDs {
		activity, err := c.GetActivity(ctx, id)
		if err != nil {
			return nil, CompareActivitiesOutput{}, fmt.Errorf("failed to get activity %d: %w", id, err)
		}

		row := ActivityComparisonOutput{
			ActivityOutput: activityOutput(activity.SummaryActivity, unit),
			Calories:       activity.Calories,
		}
		if activity.AverageWatts > 0 {
			row.AverageWatts = fmt.Sprintf("%.0f W", activity.AverageWatts)
		}
		output.Activities = append(output.Activities, row)

		if fastest == nil || activity.AverageSpeed > fastest.AverageSpeed {
			fastest = activity
		}
		if longest == nil || activity.Distance > longest.Distance {
			longest = activity
		}
	}

	if fastest != nil {
		output.Fastest = fastest.Name
	}
	if longest != nil {
		output.Longest = longest.Name
	}
	return nil, output, nil
}

// FindSimilarInput is the input schema for the find_similar_activities tool.
type FindSimilarInput struct {
	ActivityID int64  `json:"activity_id" jsonschema:"required,description=Reference activity ID"`
	TimeRange  string `json:"time_range,omitempty" jsonschema:"description=Time range to search. Default: 90d"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"description=Maximum matches to return (1-20). Default: 5"`
	Unit       string `json:"unit,omitempty" jsonschema:"description=Measurement unit: meters or feet"`
}

// SimilarActivityOutput is one match in similar-activity output.
type SimilarActivityOutput struct {
	ActivityOutput
	DistanceDiff string `json:"distance_diff" jsonschema:"description=Distance difference from the reference activity"`
}

// FindSimilarOutput is the output schema for the find_similar_activities tool.
type FindSimilarOutput struct {
	Reference ActivityOutput          `json:"reference"`
	Similar   []SimilarActivityOutput `json:"similar"`
	Count     int                     `json:"count"`
}

// handleFindSimilarActivities implements the find_similar_activities MCP tool.
func (s *Server) handleFindSimilarActivities(ctx context.Context, req *mcp.CallToolRequest, input FindSimilarInput) (
	*mcp.CallToolResult,
	FindSimilarOutput,
	error,
) {
	if input.ActivityID == 0 {
		return nil, FindSimilarOutput{}, fmt.Errorf("activity_id is required")
	}
	timeRange := input.TimeRange
	if timeRange == "" {
		timeRange = "90d"
	}
	maxResults := input.MaxResults
	if maxResults == 0 {
		maxResults = 5
	}
	if maxResults < 1 || maxResults > 20 {
		return nil, FindSimilarOutput{}, fmt.Errorf("max_results must be between 1 and 20, got %d", maxResults)
	}

	start, end, err := strava.ParseTimeRange(timeRange)
	if err != nil {
		return nil, FindSimilarOutput{}, err
	}

	c, err := s.client(ctx)
	if err != nil {
		return nil, FindSimilarOutput{}, err
	}
	unit := s.unit(input.Unit)

	reference, err := c.GetActivity(ctx, input.ActivityID)
	if err != nil {
		return nil, FindSimilarOutput{}, fmt.Errorf("failed to get activity %d: %w", input.ActivityID, err)
	}

	activities, err := c.GetAllActivities(ctx, strava.AllActivitiesOptions{
		After:   start,
		Before:  end,
		PerPage: 200,
	})
	if err != nil {
		return nil, FindSimilarOutput{}, fmt.Errorf("failed to list activities: %w", err)
	}

	// Similar means same type with distance within 20% of the reference.
	tolerance := reference.Distance * 0.2
	var matches []strava.SummaryActivity
	for _, activity := range activities {
		if activity.ID == reference.ID || activity.Type != reference.Type {
			continue
		}
		if math.Abs(activity.Distance-reference.Distance) > tolerance {
			continue
		}
		matches = append(matches, activity)
	}
	sort.Slice(matches, func(i, j int) bool {
		return math.Abs(matches[i].Distance-reference.Distance) < math.Abs(matches[j].Distance-reference.Distance)
	})
	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}

	output := FindSimilarOutput{
		Reference: activityOutput(reference.SummaryActivity, unit),
		Count:     len(matches),
	}
	for _, match := range matches {
		diff := match.Distance - reference.Distance
		sign := "+"
		if diff < 0 {
			sign = "-"
		}
		output.Similar = append(output.Similar, SimilarActivityOutput{
			ActivityOutput: activityOutput(match, unit),
			DistanceDiff:   sign + strava.FormatDistance(math.Abs(diff), unit),
		})
	}
	return nil, output, nil
}
