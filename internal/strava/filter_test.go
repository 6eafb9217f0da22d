package strava

import "testing"

func TestParseDistanceWithUnit(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"10km", 10000},
		{"5mi", 8047},
		{"42195m", 42195},
		{"10000", 10000},
		{"5.5km", 5500},
		{"3.1 mi", 4989},
		{"10KM", 10000},
	}

	for _, tt := range tests {
		got, err := ParseDistanceWithUnit(tt.input)
		if err != nil {
			t.Errorf("ParseDistanceWithUnit(%q) failed: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDistanceWithUnit(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestParseDistanceWithUnitInvalid(t *testing.T) {
	tests := []string{"", "fast", "-5km", "10furlongs"}

	for _, input := range tests {
		if _, err := ParseDistanceWithUnit(input); err == nil {
			t.Errorf("ParseDistanceWithUnit(%q) succeeded, want error", input)
		}
	}
}

func TestParseDistance(t *testing.T) {
	tests := []struct {
		input   string
		wantMin int
		wantMax int
	}{
		{"5k", 4500, 5500},
		{"marathon", 41000, 43000},
		{"ultra", 43000, 0},
		{"10km", 9000, 11000},
		{"5km:10km", 5000, 10000},
		{":10km", 0, 10000},
		{"5mi:", 8047, 0},
		{"10000:15000", 10000, 15000},
	}

	for _, tt := range tests {
		gotMin, gotMax, err := ParseDistance(tt.input)
		if err != nil {
			t.Errorf("ParseDistance(%q) failed: %v", tt.input, err)
			continue
		}
		if gotMin != tt.wantMin || gotMax != tt.wantMax {
			t.Errorf("ParseDistance(%q) = (%d, %d), want (%d, %d)", tt.input, gotMin, gotMax, tt.wantMin, tt.wantMax)
		}
	}
}

func TestParseDistanceInvalid(t *testing.T) {
	tests := []string{"5km:10km:15km", "10km:5km", "fast:slow"}

	for _, input := range tests {
		if _, _, err := ParseDistance(input); err == nil {
			t.Errorf("ParseDistance(%q) succeeded, want error", input)
		}
	}
}

func testActivities() []SummaryActivity {
	return []SummaryActivity{
		{ID: 1, Name: "Morning Run", Type: "Run", Distance: 5000},
		{ID: 2, Name: "Parkrun Race", Type: "Run", Distance: 5100, WorkoutType: 1},
		{ID: 3, Name: "Long Ride", Type: "Ride", Distance: 80000},
		{ID: 4, Name: "Crit Race", Type: "Ride", Distance: 40000, WorkoutType: 11},
		{ID: 5, Name: "Pool Swim", Type: "Swim", Distance: 2000},
	}
}

func TestFilterByType(t *testing.T) {
	got := ActivityFilter{ActivityType: "Run"}.Apply(testActivities())
	if len(got) != 2 {
		t.Fatalf("got %d activities, want 2", len(got))
	}
	for _, a := range got {
		if a.Type != "Run" {
			t.Errorf("activity %d has type %s", a.ID, a.Type)
		}
	}
}

func TestFilterByDistance(t *testing.T) {
	got := ActivityFilter{DistanceMin: 4500, DistanceMax: 5500}.Apply(testActivities())
	if len(got) != 2 {
		t.Fatalf("got %d activities, want 2", len(got))
	}
}

func TestFilterByTitle(t *testing.T) {
	got := ActivityFilter{TitleContains: "race"}.Apply(testActivities())
	if len(got) != 2 {
		t.Fatalf("got %d activities, want 2", len(got))
	}
}

func TestFilterByRace(t *testing.T) {
	isRace := true
	got := ActivityFilter{IsRace: &isRace}.Apply(testActivities())
	if len(got) != 2 {
		t.Fatalf("got %d races, want 2", len(got))
	}
	for _, a := range got {
		if a.WorkoutType != raceWorkoutTypes[a.Type] {
			t.Errorf("activity %d is not a race", a.ID)
		}
	}

	// Non-races include types without race detection, like Swim.
	notRace := false
	got = ActivityFilter{IsRace: &notRace}.Apply(testActivities())
	if len(got) != 3 {
		t.Fatalf("got %d non-races, want 3", len(got))
	}
}

func TestFiltersCombineWithAnd(t *testing.T) {
	isRace := true
	got := ActivityFilter{
		ActivityType: "Run",
		DistanceMin:  4500,
		DistanceMax:  5500,
		IsRace:       &isRace,
	}.Apply(testActivities())
	if len(got) != 1 {
		t.Fatalf("got %d activities, want 1", len(got))
	}
	if got[0].ID != 2 {
		t.Errorf("got activity %d, want 2", got[0].ID)
	}
}
