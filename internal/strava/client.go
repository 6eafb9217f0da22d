package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"strava-mcp/pkg/auth"
)

// BaseURL is the Strava v3 API root.
const BaseURL = "https://www.strava.com/api/v3"

const requestTimeout = 30 * time.Second

// APIError is an error returned by the Strava API.
type APIError struct {
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	return e.Message
}

// Client is an authenticated Strava API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	creds      auth.Credentials
}

// NewClient creates a client that signs requests with the given
// credentials.
func NewClient(creds auth.Credentials) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    BaseURL,
		creds:      creds,
	}
}

// WithBaseURL overrides the API root. Tests point this at a fake server.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// do performs one authenticated request. A 401 triggers a token refresh
// and a single retry.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, form url.Values) ([]byte, error) {
	resp, err := c.send(ctx, method, path, params, form)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if err := c.creds.Refresh(ctx); err != nil {
			return nil, &APIError{Message: fmt.Sprintf("Token refresh failed: %v", err), StatusCode: http.StatusUnauthorized}
		}
		resp, err = c.send(ctx, method, path, params, form)
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("Request failed: %v", err)}
	}

	switch resp.StatusCode {
	case http.StatusPaymentRequired:
		return nil, &APIError{
			Message: "This feature requires a Strava subscription. " +
				"Please upgrade your account at https://www.strava.com/settings/subscription",
			StatusCode: http.StatusPaymentRequired,
		}
	case http.StatusNotFound:
		return nil, &APIError{
			Message:    "Resource not found. Please check the ID and try again.",
			StatusCode: http.StatusNotFound,
		}
	case http.StatusTooManyRequests:
		return nil, &APIError{
			Message:    "Rate limit exceeded. Please try again later.",
			StatusCode: http.StatusTooManyRequests,
		}
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{
			Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, body),
			StatusCode: resp.StatusCode,
		}
	}
	return body, nil
}

func (c *Client) send(ctx context.Context, method, path string, params url.Values, form url.Values) (*http.Response, error) {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var body io.Reader
	if len(form) > 0 {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("Request failed: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.creds.AccessToken())
	if len(form) > 0 {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("Request failed: %v", err)}
	}
	return resp, nil
}

// getJSON performs a GET and decodes the JSON response into v.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, v any) error {
	body, err := c.do(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &APIError{Message: fmt.Sprintf("Failed to decode response from %s: %v", path, err)}
	}
	return nil
}

func pageParams(page, perPage int) url.Values {
	params := url.Values{}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		params.Set("per_page", strconv.Itoa(perPage))
	}
	return params
}

// GetRecentActivities returns one page of the athlete's activities.
func (c *Client) GetRecentActivities(ctx context.Context, page, perPage int) ([]SummaryActivity, error) {
	var activities []SummaryActivity
	if err := c.getJSON(ctx, "/athlete/activities", pageParams(page, perPage), &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// AllActivitiesOptions bounds a paged activity fetch.
type AllActivitiesOptions struct {
	Before        time.Time
	After         time.Time
	PerPage       int
	MaxActivities int
	MaxAPICalls   int
}

// GetAllActivities pages through the athlete's activities with optional
// date bounds, capped by MaxAPICalls to stay clear of rate limits.
func (c *Client) GetAllActivities(ctx context.Context, opts AllActivitiesOptions) ([]SummaryActivity, error) {
	if opts.PerPage <= 0 {
		opts.PerPage = 30
	}
	if opts.MaxAPICalls <= 0 {
		opts.MaxAPICalls = 5
	}

	params := url.Values{}
	params.Set("per_page", strconv.Itoa(opts.PerPage))
	if !opts.Before.IsZero() {
		params.Set("before", strconv.FormatInt(opts.Before.Unix(), 10))
	}
	if !opts.After.IsZero() {
		params.Set("after", strconv.FormatInt(opts.After.Unix(), 10))
	}

	var all []SummaryActivity
	for page, calls := 1, 0; calls < opts.MaxAPICalls; page, calls = page+1, calls+1 {
		params.Set("page", strconv.Itoa(page))

		var activities []SummaryActivity
		if err := c.getJSON(ctx, "/athlete/activities", params, &activities); err != nil {
			return nil, err
		}
		if len(activities) == 0 {
			break
		}
		all = append(all, activities...)

		if opts.MaxActivities > 0 && len(all) >= opts.MaxActivities {
			all = all[:opts.MaxActivities]
			break
		}
	}
	return all, nil
}

// GetActivity returns a single activity in full detail.
func (c *Client) GetActivity(ctx context.Context, activityID int64) (*DetailedActivity, error) {
	var activity DetailedActivity
	if err := c.getJSON(ctx, fmt.Sprintf("/activities/%d", activityID), nil, &activity); err != nil {
		return nil, err
	}
	return &activity, nil
}

// defaultStreamKeys covers every stream type Strava records.
var defaultStreamKeys = []string{
	"time", "distance", "latlng", "altitude", "velocity_smooth",
	"heartrate", "cadence", "watts", "temp", "moving", "grade_smooth",
}

// GetActivityStreams returns the activity's time-series streams keyed
// by type.
func (c *Client) GetActivityStreams(ctx context.Context, activityID int64, keys []string) (map[string]json.RawMessage, error) {
	if len(keys) == 0 {
		keys = defaultStreamKeys
	}
	params := url.Values{}
	params.Set("keys", strings.Join(keys, ","))
	params.Set("key_by_type", "true")

	var streams map[string]json.RawMessage
	if err := c.getJSON(ctx, fmt.Sprintf("/activities/%d/streams", activityID), params, &streams); err != nil {
		return nil, err
	}
	return streams, nil
}

// GetActivityLaps returns the laps of an activity.
func (c *Client) GetActivityLaps(ctx context.Context, activityID int64) ([]Lap, error) {
	var laps []Lap
	if err := c.getJSON(ctx, fmt.Sprintf("/activities/%d/laps", activityID), nil, &laps); err != nil {
		return nil, err
	}
	return laps, nil
}

// GetActivityZones returns the zone distributions of an activity.
func (c *Client) GetActivityZones(ctx context.Context, activityID int64) ([]ActivityZone, error) {
	var zones []ActivityZone
	if err := c.getJSON(ctx, fmt.Sprintf("/activities/%d/zones", activityID), nil, &zones); err != nil {
		return nil, err
	}
	return zones, nil
}

// GetActivityComments returns one page of an activity's comments.
func (c *Client) GetActivityComments(ctx context.Context, activityID int64, page, perPage int) ([]Comment, error) {
	var comments []Comment
	if err := c.getJSON(ctx, fmt.Sprintf("/activities/%d/comments", activityID), pageParams(page, perPage), &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// GetActivityKudoers returns one page of athletes who gave kudos.
func (c *Client) GetActivityKudoers(ctx context.Context, activityID int64, page, perPage int) ([]SummaryAthlete, error) {
	var athletes []SummaryAthlete
	if err := c.getJSON(ctx, fmt.Sprintf("/activities/%d/kudos", activityID), pageParams(page, perPage), &athletes); err != nil {
		return nil, err
	}
	return athletes, nil
}

// GetAthlete returns the authenticated athlete's profile.
func (c *Client) GetAthlete(ctx context.Context) (*Athlete, error) {
	var athlete Athlete
	if err := c.getJSON(ctx, "/athlete", nil, &athlete); err != nil {
		return nil, err
	}
	return &athlete, nil
}

// GetAthleteStats returns an athlete's activity totals.
func (c *Client) GetAthleteStats(ctx context.Context, athleteID int64) (*AthleteStats, error) {
	var stats AthleteStats
	if err := c.getJSON(ctx, fmt.Sprintf("/athletes/%d/stats", athleteID), nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetAthleteZones returns the athlete's heart rate and power zones.
func (c *Client) GetAthleteZones(ctx context.Context) (*Zones, error) {
	var zones Zones
	if err := c.getJSON(ctx, "/athlete/zones", nil, &zones); err != nil {
		return nil, err
	}
	return &zones, nil
}

// ListStarredSegments returns one page of the athlete's starred
// segments.
func (c *Client) ListStarredSegments(ctx context.Context, page, perPage int) ([]SummarySegment, error) {
	var segments []SummarySegment
	if err := c.getJSON(ctx, "/segments/starred", pageParams(page, perPage), &segments); err != nil {
		return nil, err
	}
	return segments, nil
}

// ExploreSegmentsOptions filters the segment explorer.
type ExploreSegmentsOptions struct {
	ActivityType string
	MinCat       int
	MaxCat       int
}

// ExploreSegments finds popular segments inside the bounding box
// [swLat, swLng, neLat, neLng].
func (c *Client) ExploreSegments(ctx context.Context, bounds [4]float64, opts ExploreSegmentsOptions) (*ExplorerResponse, error) {
	parts := make([]string, len(bounds))
	for i, b := range bounds {
		parts[i] = strconv.FormatFloat(b, 'f', -1, 64)
	}
	params := url.Values{}
	params.Set("bounds", strings.Join(parts, ","))
	if opts.ActivityType != "" {
		params.Set("activity_type", opts.ActivityType)
	}
	if opts.MinCat > 0 {
		params.Set("min_cat", strconv.Itoa(opts.MinCat))
	}
	if opts.MaxCat > 0 {
		params.Set("max_cat", strconv.Itoa(opts.MaxCat))
	}

	var resp ExplorerResponse
	if err := c.getJSON(ctx, "/segments/explore", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSegment returns a single segment in full detail.
func (c *Client) GetSegment(ctx context.Context, segmentID int64) (*DetailedSegment, error) {
	var segment DetailedSegment
	if err := c.getJSON(ctx, fmt.Sprintf("/segments/%d", segmentID), nil, &segment); err != nil {
		return nil, err
	}
	return &segment, nil
}

// StarSegment stars or unstars a segment for the athlete.
func (c *Client) StarSegment(ctx context.Context, segmentID int64, starred bool) (*DetailedSegment, error) {
	form := url.Values{}
	form.Set("starred", strconv.FormatBool(starred))

	body, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/segments/%d/starred", segmentID), nil, form)
	if err != nil {
		return nil, err
	}
	var segment DetailedSegment
	if err := json.Unmarshal(body, &segment); err != nil {
		return nil, &APIError{Message: fmt.Sprintf("Failed to decode segment response: %v", err)}
	}
	return &segment, nil
}

// GetSegmentEffort returns a single segment effort.
func (c *Client) GetSegmentEffort(ctx context.Context, effortID int64) (*SegmentEffort, error) {
	var effort SegmentEffort
	if err := c.getJSON(ctx, fmt.Sprintf("/segment_efforts/%d", effortID), nil, &effort); err != nil {
		return nil, err
	}
	return &effort, nil
}

// ListSegmentEfforts returns the athlete's efforts on a segment,
// optionally bounded by local date.
func (c *Client) ListSegmentEfforts(ctx context.Context, segmentID int64, startDateLocal, endDateLocal time.Time, page, perPage int) ([]SegmentEffort, error) {
	params := pageParams(page, perPage)
	if !startDateLocal.IsZero() {
		params.Set("start_date_local", startDateLocal.Format(time.RFC3339))
	}
	if !endDateLocal.IsZero() {
		params.Set("end_date_local", endDateLocal.Format(time.RFC3339))
	}

	var efforts []SegmentEffort
	if err := c.getJSON(ctx, fmt.Sprintf("/segments/%d/all_efforts", segmentID), params, &efforts); err != nil {
		return nil, err
	}
	return efforts, nil
}

// LeaderboardOptions filters a segment leaderboard request.
type LeaderboardOptions struct {
	Gender      string
	AgeGroup    string
	WeightClass string
	Following   bool
	ClubID      int64
	DateRange   string
	Page        int
	PerPage     int
}

// GetSegmentLeaderboard returns a page of the segment leaderboard.
func (c *Client) GetSegmentLeaderboard(ctx context.Context, segmentID int64, opts LeaderboardOptions) (*SegmentLeaderboard, error) {
	page, perPage := opts.Page, opts.PerPage
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 30
	}
	params := pageParams(page, perPage)
	if opts.Gender != "" {
		params.Set("gender", opts.Gender)
	}
	if opts.AgeGroup != "" {
		params.Set("age_group", opts.AgeGroup)
	}
	if opts.WeightClass != "" {
		params.Set("weight_class", opts.WeightClass)
	}
	if opts.Following {
		params.Set("following", "true")
	}
	if opts.ClubID > 0 {
		params.Set("club_id", strconv.FormatInt(opts.ClubID, 10))
	}
	if opts.DateRange != "" {
		params.Set("date_range", opts.DateRange)
	}

	var leaderboard SegmentLeaderboard
	if err := c.getJSON(ctx, fmt.Sprintf("/segments/%d/leaderboard", segmentID), params, &leaderboard); err != nil {
		return nil, err
	}
	return &leaderboard, nil
}

// ListAthleteRoutes returns one page of an athlete's routes. athleteID
// zero means the authenticated athlete.
func (c *Client) ListAthleteRoutes(ctx context.Context, athleteID int64, page, perPage int) ([]Route, error) {
	if athleteID == 0 {
		athlete, err := c.GetAthlete(ctx)
		if err != nil {
			return nil, err
		}
		athleteID = athlete.ID
	}

	var routes []Route
	if err := c.getJSON(ctx, fmt.Sprintf("/athletes/%d/routes", athleteID), pageParams(page, perPage), &routes); err != nil {
		return nil, err
	}
	return routes, nil
}

// GetRoute returns a single route.
func (c *Client) GetRoute(ctx context.Context, routeID int64) (*Route, error) {
	var route Route
	if err := c.getJSON(ctx, fmt.Sprintf("/routes/%d", routeID), nil, &route); err != nil {
		return nil, err
	}
	return &route, nil
}

// ExportRouteGPX exports a route as a GPX document.
func (c *Client) ExportRouteGPX(ctx context.Context, routeID int64) (string, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/routes/%d/export_gpx", routeID), nil, nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// ExportRouteTCX exports a route as a TCX document.
func (c *Client) ExportRouteTCX(ctx context.Context, routeID int64) (string, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/routes/%d/export_tcx", routeID), nil, nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
