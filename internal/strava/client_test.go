package strava

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeCredentials is a test double that counts refreshes.
type fakeCredentials struct {
	mu        sync.Mutex
	token     string
	refreshed int
}

func (c *fakeCredentials) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *fakeCredentials) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshed++
	c.token = "refreshed-token"
	return nil
}

func TestGetAthlete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/athlete" {
			t.Errorf("got path %s, want /athlete", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("got Authorization %q, want Bearer test-token", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 4711, "firstname": "Jo", "lastname": "Rider", "ftp": 250}`))
	}))
	defer server.Close()

	client := NewClient(&fakeCredentials{token: "test-token"}).WithBaseURL(server.URL)

	athlete, err := client.GetAthlete(context.Background())
	if err != nil {
		t.Fatalf("GetAthlete failed: %v", err)
	}
	if athlete.ID != 4711 {
		t.Errorf("got athlete ID %d, want 4711", athlete.ID)
	}
	if athlete.FTP != 250 {
		t.Errorf("got FTP %d, want 250", athlete.FTP)
	}
}

func TestRefreshAndRetryOn401(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer refreshed-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 4711}`))
	}))
	defer server.Close()

	creds := &fakeCredentials{token: "stale-token"}
	client := NewClient(creds).WithBaseURL(server.URL)

	athlete, err := client.GetAthlete(context.Background())
	if err != nil {
		t.Fatalf("GetAthlete failed: %v", err)
	}
	if athlete.ID != 4711 {
		t.Errorf("got athlete ID %d, want 4711", athlete.ID)
	}
	if creds.refreshed != 1 {
		t.Errorf("got %d refreshes, want 1", creds.refreshed)
	}
}

func TestCannedErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		wantMessage string
	}{
		{"subscription required", http.StatusPaymentRequired, "requires a Strava subscription"},
		{"not found", http.StatusNotFound, "Resource not found. Please check the ID and try again."},
		{"rate limited", http.StatusTooManyRequests, "Rate limit exceeded. Please try again later."},
		{"server error", http.StatusInternalServerError, "HTTP 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewClient(&fakeCredentials{token: "test-token"}).WithBaseURL(server.URL)
			_, err := client.GetActivity(context.Background(), 99)
			if err == nil {
				t.Fatal("GetActivity succeeded, want error")
			}

			apiErr, ok := err.(*APIError)
			if !ok {
				t.Fatalf("got %T, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("got status %d, want %d", apiErr.StatusCode, tt.status)
			}
			if !strings.Contains(apiErr.Message, tt.wantMessage) {
				t.Errorf("message %q does not contain %q", apiErr.Message, tt.wantMessage)
			}
		})
	}
}

func TestGetAllActivitiesPagination(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "1":
			_, _ = w.Write([]byte(`[{"id": 1, "name": "Morning Run", "distance": 5000}, {"id": 2, "name": "Evening Run", "distance": 8000}]`))
		case "2":
			_, _ = w.Write([]byte(`[{"id": 3, "name": "Long Ride", "distance": 42000}]`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer server.Close()

	client := NewClient(&fakeCredentials{token: "test-token"}).WithBaseURL(server.URL)

	activities, err := client.GetAllActivities(context.Background(), AllActivitiesOptions{PerPage: 2})
	if err != nil {
		t.Fatalf("GetAllActivities failed: %v", err)
	}
	if len(activities) != 3 {
		t.Fatalf("got %d activities, want 3", len(activities))
	}
	if activities[2].Name != "Long Ride" {
		t.Errorf("got last activity %q, want Long Ride", activities[2].Name)
	}
	if requests != 3 {
		t.Errorf("got %d requests, want 3", requests)
	}
}

func TestGetAllActivitiesRespectsMaxAPICalls(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": 1, "name": "Run", "distance": 5000}]`))
	}))
	defer server.Close()

	client := NewClient(&fakeCredentials{token: "test-token"}).WithBaseURL(server.URL)

	activities, err := client.GetAllActivities(context.Background(), AllActivitiesOptions{MaxAPICalls: 2})
	if err != nil {
		t.Fatalf("GetAllActivities failed: %v", err)
	}
	if requests != 2 {
		t.Errorf("got %d requests, want 2", requests)
	}
	if len(activities) != 2 {
		t.Errorf("got %d activities, want 2", len(activities))
	}
}

func TestGetAllActivitiesCapsAtMaxActivities(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": 1, "name": "Run", "distance": 5000}, {"id": 2, "name": "Ride", "distance": 20000}]`))
	}))
	defer server.Close()

	client := NewClient(&fakeCredentials{token: "test-token"}).WithBaseURL(server.URL)

	activities, err := client.GetAllActivities(context.Background(), AllActivitiesOptions{MaxActivities: 3})
	if err != nil {
		t.Fatalf("GetAllActivities failed: %v", err)
	}
	if len(activities) != 3 {
		t.Errorf("got %d activities, want 3", len(activities))
	}
}

func TestStarSegment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("got method %s, want PUT", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if got := r.FormValue("starred"); got != "true" {
			t.Errorf("got starred %q, want true", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 229781, "name": "Hawk Hill", "activity_type": "Ride", "starred": true}`))
	}))
	defer server.Close()

	client := NewClient(&fakeCredentials{token: "test-token"}).WithBaseURL(server.URL)

	segment, err := client.StarSegment(context.Background(), 229781, true)
	if err != nil {
		t.Fatalf("StarSegment failed: %v", err)
	}
	if !segment.Starred {
		t.Error("segment not marked starred")
	}
}

func TestExportRouteGPX(t *testing.T) {
	const gpx = `<?xml version="1.0"?><gpx></gpx>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/routes/42/export_gpx" {
			t.Errorf("got path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(gpx))
	}))
	defer server.Close()

	client := NewClient(&fakeCredentials{token: "test-token"}).WithBaseURL(server.URL)

	got, err := client.ExportRouteGPX(context.Background(), 42)
	if err != nil {
		t.Fatalf("ExportRouteGPX failed: %v", err)
	}
	if got != gpx {
		t.Errorf("got %q, want %q", got, gpx)
	}
}
