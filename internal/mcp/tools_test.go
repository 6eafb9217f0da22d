package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"strava-mcp/internal/strava"
)

// testActivitySet builds 12 runs and 3 rides spread over the last two
// weeks, newest first.
func testActivitySet() []strava.SummaryActivity {
	var activities []strava.SummaryActivity
	now := time.Now()
	for i := 0; i < 12; i++ {
		activities = append(activities, strava.SummaryActivity{
			ID:             int64(100 + i),
			Name:           fmt.Sprintf("Run %d", i),
			Type:           "Run",
			Distance:       5000 + float64(i)*100,
			MovingTime:     1800,
			StartDate:      now.AddDate(0, 0, -i),
			StartDateLocal: now.AddDate(0, 0, -i),
			AverageSpeed:   3.0,
		})
	}
	for i := 0; i < 3; i++ {
		activities = append(activities, strava.SummaryActivity{
			ID:             int64(200 + i),
			Name:           fmt.Sprintf("Ride %d", i),
			Type:           "Ride",
			Distance:       40000,
			MovingTime:     5400,
			StartDate:      now.AddDate(0, 0, -i*3),
			StartDateLocal: now.AddDate(0, 0, -i*3),
			AverageSpeed:   8.0,
		})
	}
	return activities
}

func fakeStravaAPI(t *testing.T, activities []strava.SummaryActivity) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/athlete/activities":
			page := r.URL.Query().Get("page")
			if page == "" || page == "1" {
				_ = json.NewEncoder(w).Encode(activities)
			} else {
				fmt.Fprint(w, "[]")
			}
		case r.URL.Path == "/activities/42":
			detail := strava.DetailedActivity{
				SummaryActivity: strava.SummaryActivity{
					ID:             42,
					Name:           "Race Day",
					Type:           "Run",
					Distance:       10000,
					MovingTime:     2400,
					StartDateLocal: time.Now(),
					AverageSpeed:   4.16,
					WorkoutType:    1,
				},
				Description: "Local 10k",
				Calories:    650,
				SplitsMetric: []strava.Split{
					{Split: 1, Distance: 1000, MovingTime: 240, AverageSpeed: 4.16},
					{Split: 2, Distance: 1000, MovingTime: 238, AverageSpeed: 4.2},
				},
			}
			_ = json.NewEncoder(w).Encode(detail)
		case r.URL.Path == "/routes/7/export_gpx":
			fmt.Fprint(w, `<?xml version="1.0"?><gpx></gpx>`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newToolsServer(t *testing.T, activities []strava.SummaryActivity) *Server {
	t.Helper()

	api := fakeStravaAPI(t, activities)
	server := NewStdioServer(&Config{}, &staticCredentials{token: "test-token"})
	server.apiBaseURL = api.URL
	return server
}

func TestQueryActivitiesPaginates(t *testing.T) {
	server := newToolsServer(t, testActivitySet())
	ctx := context.Background()

	_, output, err := server.handleQueryActivities(ctx, nil, QueryActivitiesInput{})
	if err != nil {
		t.Fatalf("handleQueryActivities failed: %v", err)
	}
	if output.Count != 10 {
		t.Errorf("got %d activities, want default limit of 10", output.Count)
	}
	if output.NextCursor != 10 {
		t.Errorf("got next cursor %d, want 10", output.NextCursor)
	}

	_, output, err = server.handleQueryActivities(ctx, nil, QueryActivitiesInput{Cursor: output.NextCursor})
	if err != nil {
		t.Fatalf("handleQueryActivities with cursor failed: %v", err)
	}
	if output.Count != 5 {
		t.Errorf("got %d activities on the last page, want 5", output.Count)
	}
	if output.NextCursor != 0 {
		t.Errorf("got next cursor %d on the last page, want none", output.NextCursor)
	}
}

func TestQueryActivitiesFiltersByType(t *testing.T) {
	server := newToolsServer(t, testActivitySet())

	_, output, err := server.handleQueryActivities(context.Background(), nil, QueryActivitiesInput{
		ActivityType: "Ride",
	})
	if err != nil {
		t.Fatalf("handleQueryActivities failed: %v", err)
	}
	if output.Count != 3 {
		t.Fatalf("got %d activities, want 3 rides", output.Count)
	}
	for _, activity := range output.Activities {
		if activity.Type != "Ride" {
			t.Errorf("activity %d has type %s", activity.ID, activity.Type)
		}
	}
}

func TestQueryActivitiesRejectsBadLimit(t *testing.T) {
	server := newToolsServer(t, nil)

	_, _, err := server.handleQueryActivities(context.Background(), nil, QueryActivitiesInput{Limit: 99})
	if err == nil {
		t.Error("limit 99 accepted, want error")
	}
}

func TestQueryActivitiesSingleMode(t *testing.T) {
	server := newToolsServer(t, nil)

	_, output, err := server.handleQueryActivities(context.Background(), nil, QueryActivitiesInput{
		ActivityID: 42,
	})
	if err != nil {
		t.Fatalf("handleQueryActivities failed: %v", err)
	}
	if output.Activity == nil {
		t.Fatal("no activity detail in single-activity mode")
	}
	if output.Activity.Name != "Race Day" {
		t.Errorf("got name %q, want Race Day", output.Activity.Name)
	}
	if !output.Activity.IsRace {
		t.Error("workout type 1 run not detected as race")
	}
	if len(output.Activity.Splits) != 2 {
		t.Errorf("got %d splits, want 2", len(output.Activity.Splits))
	}
}

func TestAnalyzeTrainingAggregates(t *testing.T) {
	server := newToolsServer(t, testActivitySet())

	_, output, err := server.handleAnalyzeTraining(context.Background(), nil, AnalyzeTrainingInput{})
	if err != nil {
		t.Fatalf("handleAnalyzeTraining failed: %v", err)
	}
	if output.Summary.TotalActivities != 15 {
		t.Errorf("got %d total activities, want 15", output.Summary.TotalActivities)
	}
	if output.Period.Days != 30 {
		t.Errorf("got period of %d days, want 30", output.Period.Days)
	}
	if len(output.ByType) != 2 {
		t.Fatalf("got %d type buckets, want 2", len(output.ByType))
	}
	if output.ByType[0].Type != "Run" || output.ByType[0].Count != 12 {
		t.Errorf("got top type %s (%d), want Run (12)", output.ByType[0].Type, output.ByType[0].Count)
	}
	if output.ByType[0].Percent != 80 {
		t.Errorf("got %v%% runs, want 80", output.ByType[0].Percent)
	}
	if len(output.Weekly) == 0 {
		t.Error("no weekly trends")
	}
	if len(output.Insights) == 0 {
		t.Error("no insights")
	}
}

func TestAnalyzeTrainingRejectsBadMax(t *testing.T) {
	server := newToolsServer(t, nil)

	_, _, err := server.handleAnalyzeTraining(context.Background(), nil, AnalyzeTrainingInput{MaxActivities: 1000})
	if err == nil {
		t.Error("max_activities 1000 accepted, want error")
	}
}

func TestCompareActivitiesValidatesCount(t *testing.T) {
	server := newToolsServer(t, nil)

	_, _, err := server.handleCompareActivities(context.Background(), nil, CompareActivitiesInput{
		ActivityIDs: []int64{42},
	})
	if err == nil {
		t.Error("single activity accepted, want error")
	}
}

func TestExportRouteSavesFile(t *testing.T) {
	server := newToolsServer(t, nil)
	server.config.RouteExportPath = t.TempDir()

	_, output, err := server.handleExportRoute(context.Background(), nil, ExportRouteInput{RouteID: 7})
	if err != nil {
		t.Fatalf("handleExportRoute failed: %v", err)
	}
	if output.Filename != "route_7.gpx" {
		t.Errorf("got filename %q, want route_7.gpx", output.Filename)
	}
	if !strings.Contains(output.Content, "<gpx>") {
		t.Errorf("content %q does not look like GPX", output.Content)
	}

	want := filepath.Join(server.config.RouteExportPath, "route_7.gpx")
	if output.SavedTo != want {
		t.Errorf("got saved path %q, want %q", output.SavedTo, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("exported file not written: %v", err)
	}
	if string(data) != output.Content {
		t.Error("exported file does not match returned content")
	}
}

func TestExportRouteRejectsBadFormat(t *testing.T) {
	server := newToolsServer(t, nil)

	_, _, err := server.handleExportRoute(context.Background(), nil, ExportRouteInput{RouteID: 7, Format: "kml"})
	if err == nil {
		t.Error("format kml accepted, want error")
	}
}
