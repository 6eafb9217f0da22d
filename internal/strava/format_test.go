package strava

import "testing"

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0s"},
		{-5, "0s"},
		{45, "45s"},
		{60, "1m"},
		{3600, "1h"},
		{5025, "1h 23m 45s"},
		{3660, "1h 1m"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		meters float64
		unit   Unit
		want   string
	}{
		{10500, UnitMeters, "10.50 km"},
		{10000, UnitFeet, "6.21 mi"},
		{42500, UnitMeters, "42.50 km"},
	}

	for _, tt := range tests {
		if got := FormatDistance(tt.meters, tt.unit); got != tt.want {
			t.Errorf("FormatDistance(%v, %s) = %q, want %q", tt.meters, tt.unit, got, tt.want)
		}
	}
}

func TestFormatElevation(t *testing.T) {
	if got := FormatElevation(150, UnitMeters); got != "150 m" {
		t.Errorf("got %q, want %q", got, "150 m")
	}
	if got := FormatElevation(150, UnitFeet); got != "492 ft" {
		t.Errorf("got %q, want %q", got, "492 ft")
	}
}

func TestFormatSpeed(t *testing.T) {
	if got := FormatSpeed(7.083, UnitMeters); got != "25.5 km/h" {
		t.Errorf("got %q, want %q", got, "25.5 km/h")
	}
	if got := FormatSpeed(7.083, UnitFeet); got != "15.8 mph" {
		t.Errorf("got %q, want %q", got, "15.8 mph")
	}
}

func TestFormatPace(t *testing.T) {
	tests := []struct {
		speed float64
		unit  Unit
		want  string
	}{
		{0, UnitMeters, "0:00 /km"},
		{0, UnitFeet, "0:00 /mi"},
		{3.7037, UnitMeters, "4:30 /km"},
	}

	for _, tt := range tests {
		if got := FormatPace(tt.speed, tt.unit); got != tt.want {
			t.Errorf("FormatPace(%v, %s) = %q, want %q", tt.speed, tt.unit, got, tt.want)
		}
	}
}

func TestFormatActivityType(t *testing.T) {
	if got := FormatActivityType("Ride", "MountainBikeRide"); got != "Ride (MountainBikeRide)" {
		t.Errorf("got %q", got)
	}
	if got := FormatActivityType("Run", "Run"); got != "Run" {
		t.Errorf("got %q", got)
	}
	if got := FormatActivityType("Run", ""); got != "Run" {
		t.Errorf("got %q", got)
	}
}
