package strava

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var daysPattern = regexp.MustCompile(`^(\d+)d$`)

// ParseTimeRange parses a time range string into start and end times.
//
// Supported formats:
//   - "recent": last 30 days
//   - "7d", "30d", "90d": last N days (up to 365)
//   - "ytd": year to date
//   - "this-week": current week starting Monday
//   - "this-month": current month
//   - "YYYY-MM-DD:YYYY-MM-DD": custom date range
func ParseTimeRange(timeRange string) (time.Time, time.Time, error) {
	now := time.Now()
	timeRange = strings.ToLower(strings.TrimSpace(timeRange))

	switch timeRange {
	case "recent":
		return now.AddDate(0, 0, -30), now, nil
	case "ytd":
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location()), now, nil
	case "this-week":
		daysSinceMonday := int(now.Weekday()) - 1
		if daysSinceMonday < 0 {
			daysSinceMonday = 6 // Sunday
		}
		monday := now.AddDate(0, 0, -daysSinceMonday)
		start := time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, now.Location())
		return start, now, nil
	case "this-month":
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), now, nil
	}

	if match := daysPattern.FindStringSubmatch(timeRange); match != nil {
		days, err := strconv.Atoi(match[1])
		if err != nil || days <= 0 {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid days value: %s, must be positive", match[1])
		}
		if days > 365 {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid days value: %d, maximum is 365 days, use a custom date range for longer periods", days)
		}
		return now.AddDate(0, 0, -days), now, nil
	}

	if strings.Contains(timeRange, ":") {
		parts := strings.SplitN(timeRange, ":", 2)
		start, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(parts[0]), now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid date format in range %q, expected YYYY-MM-DD:YYYY-MM-DD", timeRange)
		}
		end, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(parts[1]), now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid date format in range %q, expected YYYY-MM-DD:YYYY-MM-DD", timeRange)
		}
		if start.After(end) {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid date range: start date %s is after end date %s", parts[0], parts[1])
		}
		// Include the whole final day.
		end = end.Add(24*time.Hour - time.Second)
		return start, end, nil
	}

	return time.Time{}, time.Time{}, fmt.Errorf(
		"invalid time_range format %q, supported formats: 'recent', '7d', '30d', '90d', 'ytd', 'this-week', 'this-month', or 'YYYY-MM-DD:YYYY-MM-DD'",
		timeRange)
}

// RangeDescription returns a human-readable label for a time range
// string.
func RangeDescription(timeRange string) string {
	normalized := strings.ToLower(strings.TrimSpace(timeRange))

	switch normalized {
	case "recent":
		return "Last 30 days"
	case "ytd":
		return "Year to date"
	case "this-week":
		return "This week"
	case "this-month":
		return "This month"
	}

	if match := daysPattern.FindStringSubmatch(normalized); match != nil {
		return fmt.Sprintf("Last %s days", match[1])
	}

	if start, end, err := ParseTimeRange(normalized); err == nil {
		return fmt.Sprintf("%s to %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return timeRange
}
