package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"strava-mcp/internal/strava"
)

// AthleteProfileInput is the input schema for the get_athlete_profile tool.
type AthleteProfileInput struct {
	IncludeStats bool   `json:"include_stats,omitempty" jsonschema:"description=Include recent and lifetime activity totals"`
	IncludeZones bool   `json:"include_zones,omitempty" jsonschema:"description=Include heart rate and power zone configuration"`
	Unit         string `json:"unit,omitempty" jsonschema:"description=Measurement unit: meters or feet. Default: server preference"`
}

// GearOutput is a bike or pair of shoes in profile output.
type GearOutput struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Distance string `json:"distance" jsonschema:"description=Total distance logged on this gear"`
	Primary  bool   `json:"primary,omitempty"`
}

// TotalsOutput is one formatted activity totals bucket.
type TotalsOutput struct {
	Count         int    `json:"count"`
	Distance      string `json:"distance"`
	MovingTime    string `json:"moving_time"`
	ElevationGain string `json:"elevation_gain"`
}

// StatsOutput groups the athlete's totals by period and sport.
type StatsOutput struct {
	RecentRides TotalsOutput `json:"recent_rides" jsonschema:"description=Rides in the last 4 weeks"`
	RecentRuns  TotalsOutput `json:"recent_runs" jsonschema:"description=Runs in the last 4 weeks"`
	RecentSwims TotalsOutput `json:"recent_swims" jsonschema:"description=Swims in the last 4 weeks"`
	YTDRides    TotalsOutput `json:"ytd_rides"`
	YTDRuns     TotalsOutput `json:"ytd_runs"`
	YTDSwims    TotalsOutput `json:"ytd_swims"`
	AllRides    TotalsOutput `json:"all_rides"`
	AllRuns     TotalsOutput `json:"all_runs"`
	AllSwims    TotalsOutput `json:"all_swims"`
}

// ZoneSetOutput is the configured zone ranges for one metric.
type ZoneSetOutput struct {
	Type   string   `json:"type" jsonschema:"description=Zone metric: heart_rate or power"`
	Custom bool     `json:"custom,omitempty"`
	Ranges []string `json:"ranges" jsonschema:"description=Zone boundaries such as 120-150 (open-ended zones end with +)"`
}

// AthleteProfileOutput is the output schema for the get_athlete_profile tool.
type AthleteProfileOutput struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Username    string          `json:"username,omitempty"`
	Location    string          `json:"location,omitempty" jsonschema:"description=City state and country when set"`
	Sex         string          `json:"sex,omitempty"`
	WeightKg    float64         `json:"weight_kg,omitempty"`
	FTP         int             `json:"ftp,omitempty" jsonschema:"description=Functional threshold power in watts"`
	Premium     bool            `json:"premium,omitempty" jsonschema:"description=Whether the athlete has a Strava subscription"`
	Followers   int             `json:"followers,omitempty"`
	Friends     int             `json:"friends,omitempty"`
	MemberFor   string          `json:"member_since,omitempty" jsonschema:"description=Account creation date"`
	Bikes       []GearOutput    `json:"bikes,omitempty"`
	Shoes       []GearOutput    `json:"shoes,omitempty"`
	Stats       *StatsOutput    `json:"stats,omitempty"`
	Zones       []ZoneSetOutput `json:"zones,omitempty"`
	BiggestRide string          `json:"biggest_ride,omitempty" jsonschema:"description=Longest ride distance on record"`
}

// handleGetAthleteProfile implements the get_athlete_profile MCP tool.
func (s *Server) handleGetAthleteProfile(ctx context.Context, req *mcp.CallToolRequest, input AthleteProfileInput) (
	*mcp.CallToolResult,
	AthleteProfileOutput,
	error,
) {
	c, err := s.client(ctx)
	if err != nil {
		return nil, AthleteProfileOutput{}, err
	}
	unit := s.unit(input.Unit)

	athlete, err := c.GetAthlete(ctx)
	if err != nil {
		return nil, AthleteProfileOutput{}, fmt.Errorf("failed to get athlete profile: %w", err)
	}

	output := AthleteProfileOutput{
		ID:        athlete.ID,
		Name:      strings.TrimSpace(athlete.Firstname + " " + athlete.Lastname),
		Username:  athlete.Username,
		Location:  formatLocation(athlete.City, athlete.State, athlete.Country),
		Sex:       athlete.Sex,
		WeightKg:  athlete.Weight,
		FTP:       athlete.FTP,
		Premium:   athlete.Premium || athlete.Summit,
		Followers: athlete.FollowerCount,
		Friends:   athlete.FriendCount,
	}
	if !athlete.CreatedAt.IsZero() {
		output.MemberFor = strava.FormatDate(athlete.CreatedAt)
	}
	for _, gear := range athlete.Bikes {
		output.Bikes = append(output.Bikes, gearOutput(gear, unit))
	}
	for _, gear := range athlete.Shoes {
		output.Shoes = append(output.Shoes, gearOutput(gear, unit))
	}

	if input.IncludeStats {
		stats, err := c.GetAthleteStats(ctx, athlete.ID)
		if err != nil {
			return nil, AthleteProfileOutput{}, fmt.Errorf("failed to get athlete stats: %w", err)
		}
		output.Stats = &StatsOutput{
			RecentRides: totalsOutput(stats.RecentRideTotals, unit),
			RecentRuns:  totalsOutput(stats.RecentRunTotals, unit),
			RecentSwims: totalsOutput(stats.RecentSwimTotals, unit),
			YTDRides:    totalsOutput(stats.YTDRideTotals, unit),
			YTDRuns:     totalsOutput(stats.YTDRunTotals, unit),
			YTDSwims:    totalsOutput(stats.YTDSwimTotals, unit),
			AllRides:    totalsOutput(stats.AllRideTotals, unit),
			AllRuns:     totalsOutput(stats.AllRunTotals, unit),
			AllSwims:    totalsOutput(stats.AllSwimTotals, unit),
		}
		if stats.BiggestRideDistance > 0 {
			output.BiggestRide = strava.FormatDistance(stats.BiggestRideDistance, unit)
		}
	}

	if input.IncludeZones {
		zones, err := c.GetAthleteZones(ctx)
		if err != nil {
			return nil, AthleteProfileOutput{}, fmt.Errorf("failed to get athlete zones: %w", err)
		}
		if zones.HeartRate != nil {
			output.Zones = append(output.Zones, zoneSetOutput("heart_rate", zones.HeartRate))
		}
		if zones.Power != nil {
			output.Zones = append(output.Zones, zoneSetOutput("power", zones.Power))
		}
	}

	return nil, output, nil
}

func gearOutput(gear strava.SummaryGear, unit strava.Unit) GearOutput {
	return GearOutput{
		ID:       gear.ID,
		Name:     gear.Name,
		Distance: strava.FormatDistance(gear.Distance, unit),
		Primary:  gear.Primary,
	}
}

func totalsOutput(totals strava.ActivityStats, unit strava.Unit) TotalsOutput {
	return TotalsOutput{
		Count:         totals.Count,
		Distance:      strava.FormatDistance(totals.Distance, unit),
		MovingTime:    strava.FormatDuration(totals.MovingTime),
		ElevationGain: strava.FormatElevation(totals.ElevationGain, unit),
	}
}

func zoneSetOutput(zoneType string, set *strava.ZoneSet) ZoneSetOutput {
	output := ZoneSetOutput{
		Type:   zoneType,
		Custom: set.CustomZones,
	}
	for _, zone := range set.Zones {
		if zone.Max <= 0 || zone.Max < zone.Min {
			output.Ranges = append(output.Ranges, fmt.Sprintf("%d+", zone.Min))
		} else {
			output.Ranges = append(output.Ranges, fmt.Sprintf("%d-%d", zone.Min, zone.Max))
		}
	}
	return output
}

func formatLocation(parts ...string) string {
	var present []string
	for _, part := range parts {
		if part != "" {
			present = append(present, part)
		}
	}
	return strings.Join(present, ", ")
}
