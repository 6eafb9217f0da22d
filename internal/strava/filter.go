package strava

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// raceDistanceRanges maps race names to distance bounds in meters with
// roughly 10% tolerance. A zero max means open-ended.
var raceDistanceRanges = map[string][2]int{
	"5k":            {4500, 5500},
	"10k":           {9000, 11000},
	"15k":           {13500, 16500},
	"half-marathon": {20000, 22000},
	"half marathon": {20000, 22000},
	"half":          {20000, 22000},
	"marathon":      {41000, 43000},
	"ultra":         {43000, 0},
	"50k":           {45000, 55000},
	"100k":          {90000, 110000},
}

// raceWorkoutTypes maps activity types to the workout_type value Strava
// uses to mark races.
var raceWorkoutTypes = map[string]int{
	"Run":  1,
	"Ride": 11,
}

// distanceUnits maps unit suffixes to meters.
var distanceUnits = map[string]float64{
	"km":         1000.0,
	"kilometers": 1000.0,
	"kilometer":  1000.0,
	"mi":         1609.34,
	"miles":      1609.34,
	"mile":       1609.34,
	"m":          1.0,
	"meters":     1.0,
	"meter":      1.0,
}

var distancePattern = regexp.MustCompile(`^(-?[\d.]+)\s*([a-zA-Z]*)$`)

// ParseDistanceWithUnit parses a distance string with an optional unit
// suffix into meters. No suffix means meters.
func ParseDistanceWithUnit(value string) (int, error) {
	match := distancePattern.FindStringSubmatch(strings.TrimSpace(value))
	if match == nil {
		return 0, fmt.Errorf("invalid distance format %q, expected numeric value with optional unit (e.g. '10km', '5mi', '10000')", value)
	}

	distance, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value %q", match[1])
	}
	if distance < 0 {
		return 0, fmt.Errorf("distance cannot be negative: %v", distance)
	}

	unit := strings.ToLower(match[2])
	if unit == "" {
		return int(math.Round(distance)), nil
	}

	factor, ok := distanceUnits[unit]
	if !ok {
		units := make([]string, 0, len(distanceUnits))
		for u := range distanceUnits {
			units = append(units, u)
		}
		sort.Strings(units)
		return 0, fmt.Errorf("unknown unit %q, supported units: %s", match[2], strings.Join(units, ", "))
	}
	return int(math.Round(distance * factor)), nil
}

// ParseDistance parses a distance filter into (min, max) bounds in
// meters. Zero means unbounded on that side.
//
// Accepted forms: race names ("5k", "marathon"), a single value with a
// 10% buffer ("10km"), or an exact range ("5km:10km", ":10km", "5mi:").
func ParseDistance(value string) (int, int, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))

	if bounds, ok := raceDistanceRanges[normalized]; ok {
		return bounds[0], bounds[1], nil
	}

	if strings.Contains(value, ":") {
		parts := strings.Split(value, ":")
		if len(parts) != 2 {
			return 0, 0, fmt.Errorf("invalid range format %q, use 'min:max' (e.g. '10km:15km', '10000:15000')", value)
		}

		var minDist, maxDist int
		var err error
		if s := strings.TrimSpace(parts[0]); s != "" {
			if minDist, err = ParseDistanceWithUnit(s); err != nil {
				return 0, 0, err
			}
		}
		if s := strings.TrimSpace(parts[1]); s != "" {
			if maxDist, err = ParseDistanceWithUnit(s); err != nil {
				return 0, 0, err
			}
		}
		if minDist > 0 && maxDist > 0 && minDist > maxDist {
			return 0, 0, fmt.Errorf("minimum distance (%dm) cannot be greater than maximum (%dm)", minDist, maxDist)
		}
		return minDist, maxDist, nil
	}

	distance, err := ParseDistanceWithUnit(value)
	if err != nil {
		return 0, 0, err
	}
	buffer := distance / 10
	return distance - buffer, distance + buffer, nil
}

// ActivityFilter is a set of client-side activity filters combined with
// AND logic.
type ActivityFilter struct {
	ActivityType  string
	DistanceMin   int
	DistanceMax   int
	TitleContains string
	IsRace        *bool
}

// Apply filters the activities, keeping only those matching every
// specified criterion.
func (f ActivityFilter) Apply(activities []SummaryActivity) []SummaryActivity {
	filtered := make([]SummaryActivity, 0, len(activities))
	for _, activity := range activities {
		if f.ActivityType != "" && activity.Type != f.ActivityType {
			continue
		}
		if f.DistanceMin > 0 && activity.Distance < float64(f.DistanceMin) {
			continue
		}
		if f.DistanceMax > 0 && activity.Distance > float64(f.DistanceMax) {
			continue
		}
		if f.TitleContains != "" &&
			!strings.Contains(strings.ToLower(activity.Name), strings.ToLower(f.TitleContains)) {
			continue
		}
		if f.IsRace != nil && IsRace(activity) != *f.IsRace {
			continue
		}
		filtered = append(filtered, activity)
	}
	return filtered
}

// IsRace reports whether the activity is tagged as a race. Activity
// types without race detection never count as races.
func IsRace(activity SummaryActivity) bool {
	raceWorkout, ok := raceWorkoutTypes[activity.Type]
	return ok && activity.WorkoutType == raceWorkout
}
