package strava

import (
	"testing"
	"time"
)

func TestParseTimeRangePresets(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantDays float64 // approximate span in days
	}{
		{"recent", "recent", 30},
		{"seven days", "7d", 7},
		{"ninety days", "90d", 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := ParseTimeRange(tt.input)
			if err != nil {
				t.Fatalf("ParseTimeRange(%q) failed: %v", tt.input, err)
			}
			days := end.Sub(start).Hours() / 24
			if days < tt.wantDays-1 || days > tt.wantDays+1 {
				t.Errorf("got span of %.1f days, want about %.0f", days, tt.wantDays)
			}
		})
	}
}

func TestParseTimeRangeYTD(t *testing.T) {
	start, end, err := ParseTimeRange("ytd")
	if err != nil {
		t.Fatalf("ParseTimeRange failed: %v", err)
	}
	now := time.Now()
	if start.Year() != now.Year() || start.Month() != time.January || start.Day() != 1 {
		t.Errorf("got start %v, want January 1 of this year", start)
	}
	if end.Before(start) {
		t.Error("end is before start")
	}
}

func TestParseTimeRangeThisWeekStartsMonday(t *testing.T) {
	start, _, err := ParseTimeRange("this-week")
	if err != nil {
		t.Fatalf("ParseTimeRange failed: %v", err)
	}
	if start.Weekday() != time.Monday {
		t.Errorf("got start weekday %v, want Monday", start.Weekday())
	}
	if start.Hour() != 0 || start.Minute() != 0 {
		t.Errorf("got start time %v, want midnight", start)
	}
}

func TestParseTimeRangeCustom(t *testing.T) {
	start, end, err := ParseTimeRange("2024-01-01:2024-01-31")
	if err != nil {
		t.Fatalf("ParseTimeRange failed: %v", err)
	}
	if start.Format("2006-01-02") != "2024-01-01" {
		t.Errorf("got start %v", start)
	}
	if end.Format("2006-01-02") != "2024-01-31" {
		t.Errorf("got end %v", end)
	}
	if end.Hour() != 23 {
		t.Errorf("end not extended to end of day: %v", end)
	}
}

func TestParseTimeRangeInvalid(t *testing.T) {
	tests := []string{
		"",
		"yesterday",
		"0d",
		"400d",
		"2024-01-31:2024-01-01",
		"2024-13-99:2024-01-01",
	}

	for _, input := range tests {
		if _, _, err := ParseTimeRange(input); err == nil {
			t.Errorf("ParseTimeRange(%q) succeeded, want error", input)
		}
	}
}

func TestRangeDescription(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"recent", "Last 30 days"},
		{"7d", "Last 7 days"},
		{"ytd", "Year to date"},
		{"this-week", "This week"},
		{"this-month", "This month"},
		{"2024-01-01:2024-01-31", "2024-01-01 to 2024-01-31"},
		{"garbage", "garbage"},
	}

	for _, tt := range tests {
		if got := RangeDescription(tt.input); got != tt.want {
			t.Errorf("RangeDescription(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
