package strava

import (
	"fmt"
	"strings"
	"time"
)

// Unit selects the measurement system for formatted output. The values
// mirror Strava's athlete measurement_preference field.
type Unit string

const (
	UnitMeters Unit = "meters"
	UnitFeet   Unit = "feet"
)

// FormatDuration formats a duration in seconds as "1h 23m 45s".
func FormatDuration(seconds int) string {
	if seconds < 0 {
		return "0s"
	}

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	var parts []string
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if secs > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}
	return strings.Join(parts, " ")
}

// FormatDistance formats a distance in meters as km or miles.
func FormatDistance(meters float64, unit Unit) string {
	if unit == UnitFeet {
		return fmt.Sprintf("%.2f mi", meters/1609.344)
	}
	return fmt.Sprintf("%.2f km", meters/1000)
}

// FormatElevation formats an elevation in meters as m or ft.
func FormatElevation(meters float64, unit Unit) string {
	if unit == UnitFeet {
		return fmt.Sprintf("%.0f ft", meters*3.28084)
	}
	return fmt.Sprintf("%.0f m", meters)
}

// FormatSpeed formats a speed in m/s as km/h or mph.
func FormatSpeed(metersPerSecond float64, unit Unit) string {
	if unit == UnitFeet {
		return fmt.Sprintf("%.1f mph", metersPerSecond*2.23694)
	}
	return fmt.Sprintf("%.1f km/h", metersPerSecond*3.6)
}

// FormatPace formats a speed in m/s as min/km or min/mi pace.
func FormatPace(metersPerSecond float64, unit Unit) string {
	if metersPerSecond == 0 {
		if unit == UnitFeet {
			return "0:00 /mi"
		}
		return "0:00 /km"
	}

	if unit == UnitFeet {
		secondsPerMile := 1609.344 / metersPerSecond
		return fmt.Sprintf("%d:%02d /mi", int(secondsPerMile)/60, int(secondsPerMile)%60)
	}
	secondsPerKm := 1000 / metersPerSecond
	return fmt.Sprintf("%d:%02d /km", int(secondsPerKm)/60, int(secondsPerKm)%60)
}

// FormatDateTime formats a time as "2024-01-15 14:30:00".
func FormatDateTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// FormatDate formats a time as "2024-01-15".
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatActivityType combines activity type with the more specific
// sport type when they differ.
func FormatActivityType(activityType, sportType string) string {
	if sportType != "" && sportType != activityType {
		return fmt.Sprintf("%s (%s)", activityType, sportType)
	}
	return activityType
}
