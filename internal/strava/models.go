// Package strava is the typed client for the Strava v3 API. It takes
// its access tokens from an auth.Credentials, so the same client serves
// both the per-session HTTP mode and the single-athlete stdio mode.
package strava

import "time"

// MetaAthlete is the minimal athlete reference embedded in activities.
type MetaAthlete struct {
	ID            int64 `json:"id"`
	ResourceState int   `json:"resource_state,omitempty"`
}

// SummaryAthlete is the athlete representation used in lists.
type SummaryAthlete struct {
	MetaAthlete
	Firstname     string `json:"firstname,omitempty"`
	Lastname      string `json:"lastname,omitempty"`
	ProfileMedium string `json:"profile_medium,omitempty"`
	Profile       string `json:"profile,omitempty"`
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
	Country       string `json:"country,omitempty"`
	Sex           string `json:"sex,omitempty"`
	Premium       bool   `json:"premium,omitempty"`
	Summit        bool   `json:"summit,omitempty"`
}

// Athlete is the authenticated athlete's full profile.
type Athlete struct {
	SummaryAthlete
	Username              string        `json:"username,omitempty"`
	Bio                   string        `json:"bio,omitempty"`
	Weight                float64       `json:"weight,omitempty"`
	FollowerCount         int           `json:"follower_count,omitempty"`
	FriendCount           int           `json:"friend_count,omitempty"`
	MeasurementPreference string        `json:"measurement_preference,omitempty"`
	FTP                   int           `json:"ftp,omitempty"`
	Clubs                 []SummaryClub `json:"clubs,omitempty"`
	Bikes                 []SummaryGear `json:"bikes,omitempty"`
	Shoes                 []SummaryGear `json:"shoes,omitempty"`
	CreatedAt             time.Time     `json:"created_at,omitempty"`
}

// SummaryClub is a club as it appears on an athlete profile.
type SummaryClub struct {
	ID          int64  `json:"id"`
	Name        string `json:"name,omitempty"`
	SportType   string `json:"sport_type,omitempty"`
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
	MemberCount int    `json:"member_count,omitempty"`
}

// SummaryGear is a bike or pair of shoes on an athlete profile.
type SummaryGear struct {
	ID       string  `json:"id"`
	Primary  bool    `json:"primary,omitempty"`
	Name     string  `json:"name,omitempty"`
	Distance float64 `json:"distance,omitempty"`
}

// ActivityStats is one totals bucket in athlete stats.
type ActivityStats struct {
	Count            int     `json:"count"`
	Distance         float64 `json:"distance"`
	MovingTime       int     `json:"moving_time"`
	ElapsedTime      int     `json:"elapsed_time"`
	ElevationGain    float64 `json:"elevation_gain"`
	AchievementCount int     `json:"achievement_count,omitempty"`
}

// AthleteStats aggregates an athlete's recent, year-to-date, and
// all-time totals.
type AthleteStats struct {
	BiggestRideDistance       float64       `json:"biggest_ride_distance,omitempty"`
	BiggestClimbElevationGain float64       `json:"biggest_climb_elevation_gain,omitempty"`
	RecentRideTotals          ActivityStats `json:"recent_ride_totals"`
	RecentRunTotals           ActivityStats `json:"recent_run_totals"`
	RecentSwimTotals          ActivityStats `json:"recent_swim_totals"`
	YTDRideTotals             ActivityStats `json:"ytd_ride_totals"`
	YTDRunTotals              ActivityStats `json:"ytd_run_totals"`
	YTDSwimTotals             ActivityStats `json:"ytd_swim_totals"`
	AllRideTotals             ActivityStats `json:"all_ride_totals"`
	AllRunTotals              ActivityStats `json:"all_run_totals"`
	AllSwimTotals             ActivityStats `json:"all_swim_totals"`
}

// ZoneRange is one heart rate or power zone boundary.
type ZoneRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// TimedZoneRange is a zone boundary with time spent in it.
type TimedZoneRange struct {
	ZoneRange
	Time int `json:"time,omitempty"`
}

// ZoneSet describes an athlete's configured zones for one metric.
type ZoneSet struct {
	CustomZones bool        `json:"custom_zones,omitempty"`
	Zones       []ZoneRange `json:"zones,omitempty"`
}

// Zones is the athlete's heart rate and power zone configuration.
type Zones struct {
	HeartRate *ZoneSet `json:"heart_rate,omitempty"`
	Power     *ZoneSet `json:"power,omitempty"`
}

// ActivityZone is a per-activity zone distribution.
type ActivityZone struct {
	Score               int              `json:"score,omitempty"`
	DistributionBuckets []TimedZoneRange `json:"distribution_buckets,omitempty"`
	Type                string           `json:"type,omitempty"`
	SensorBased         bool             `json:"sensor_based,omitempty"`
	Points              int              `json:"points,omitempty"`
	CustomZones         bool             `json:"custom_zones,omitempty"`
}

// PolylineMap is the encoded map attached to activities and segments.
type PolylineMap struct {
	ID              string `json:"id"`
	Polyline        string `json:"polyline,omitempty"`
	SummaryPolyline string `json:"summary_polyline,omitempty"`
}

// SummaryActivity is an activity as returned by list endpoints.
type SummaryActivity struct {
	ID                 int64        `json:"id"`
	Name               string       `json:"name"`
	Distance           float64      `json:"distance"`
	MovingTime         int          `json:"moving_time"`
	ElapsedTime        int          `json:"elapsed_time"`
	TotalElevationGain float64      `json:"total_elevation_gain"`
	Type               string       `json:"type"`
	SportType          string       `json:"sport_type,omitempty"`
	Athlete            *MetaAthlete `json:"athlete,omitempty"`
	StartDate          time.Time    `json:"start_date"`
	StartDateLocal     time.Time    `json:"start_date_local"`
	Timezone           string       `json:"timezone,omitempty"`
	AchievementCount   int          `json:"achievement_count,omitempty"`
	KudosCount         int          `json:"kudos_count,omitempty"`
	CommentCount       int          `json:"comment_count,omitempty"`
	AthleteCount       int          `json:"athlete_count,omitempty"`
	Map                *PolylineMap `json:"map,omitempty"`
	Trainer            bool         `json:"trainer,omitempty"`
	Commute            bool         `json:"commute,omitempty"`
	Manual             bool         `json:"manual,omitempty"`
	Private            bool         `json:"private,omitempty"`
	GearID             string       `json:"gear_id,omitempty"`
	AverageSpeed       float64      `json:"average_speed,omitempty"`
	MaxSpeed           float64      `json:"max_speed,omitempty"`
	HasHeartrate       bool         `json:"has_heartrate,omitempty"`
	AverageHeartrate   float64      `json:"average_heartrate,omitempty"`
	MaxHeartrate       float64      `json:"max_heartrate,omitempty"`
	PRCount            int          `json:"pr_count,omitempty"`
	WorkoutType        int          `json:"workout_type,omitempty"`
}

// Split is one metric or standard split of an activity.
type Split struct {
	AverageSpeed        float64 `json:"average_speed,omitempty"`
	Distance            float64 `json:"distance,omitempty"`
	ElapsedTime         int     `json:"elapsed_time,omitempty"`
	ElevationDifference float64 `json:"elevation_difference,omitempty"`
	MovingTime          int     `json:"moving_time,omitempty"`
	Split               int     `json:"split,omitempty"`
}

// DetailedActivity is a single activity with full detail.
type DetailedActivity struct {
	SummaryActivity
	Description          string           `json:"description,omitempty"`
	Calories             float64          `json:"calories,omitempty"`
	DeviceName           string           `json:"device_name,omitempty"`
	SplitsMetric         []Split          `json:"splits_metric,omitempty"`
	SplitsStandard       []Split          `json:"splits_standard,omitempty"`
	Laps                 []Lap            `json:"laps,omitempty"`
	Gear                 *SummaryGear     `json:"gear,omitempty"`
	DeviceWatts          bool             `json:"device_watts,omitempty"`
	HasKudoed            bool             `json:"has_kudoed,omitempty"`
	SegmentEfforts       []SegmentEffort  `json:"segment_efforts,omitempty"`
	BestEfforts          []SegmentEffort  `json:"best_efforts,omitempty"`
	HighlightedKudosers  []SummaryAthlete `json:"highlighted_kudosers,omitempty"`
	AverageWatts         float64          `json:"average_watts,omitempty"`
	WeightedAverageWatts int              `json:"weighted_average_watts,omitempty"`
	Kilojoules           float64          `json:"kilojoules,omitempty"`
	MaxWatts             int              `json:"max_watts,omitempty"`
	ElevHigh             float64          `json:"elev_high,omitempty"`
	ElevLow              float64          `json:"elev_low,omitempty"`
}

// Lap is one lap of an activity.
type Lap struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name,omitempty"`
	ElapsedTime        int       `json:"elapsed_time"`
	MovingTime         int       `json:"moving_time"`
	StartDate          time.Time `json:"start_date"`
	StartDateLocal     time.Time `json:"start_date_local"`
	Distance           float64   `json:"distance"`
	TotalElevationGain float64   `json:"total_elevation_gain,omitempty"`
	AverageSpeed       float64   `json:"average_speed,omitempty"`
	MaxSpeed           float64   `json:"max_speed,omitempty"`
	AverageCadence     float64   `json:"average_cadence,omitempty"`
	AverageWatts       float64   `json:"average_watts,omitempty"`
	AverageHeartrate   float64   `json:"average_heartrate,omitempty"`
	MaxHeartrate       float64   `json:"max_heartrate,omitempty"`
	LapIndex           int       `json:"lap_index,omitempty"`
}

// Comment is a comment left on an activity.
type Comment struct {
	ID         int64           `json:"id"`
	ActivityID int64           `json:"activity_id"`
	Text       string          `json:"text,omitempty"`
	Athlete    *SummaryAthlete `json:"athlete,omitempty"`
	CreatedAt  time.Time       `json:"created_at,omitempty"`
}

// SummarySegment is a segment as returned by list endpoints.
type SummarySegment struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	ActivityType  string    `json:"activity_type"`
	Distance      float64   `json:"distance"`
	AverageGrade  float64   `json:"average_grade"`
	MaximumGrade  float64   `json:"maximum_grade"`
	ElevationHigh float64   `json:"elevation_high"`
	ElevationLow  float64   `json:"elevation_low"`
	StartLatlng   []float64 `json:"start_latlng,omitempty"`
	EndLatlng     []float64 `json:"end_latlng,omitempty"`
	ClimbCategory int       `json:"climb_category"`
	City          string    `json:"city,omitempty"`
	State         string    `json:"state,omitempty"`
	Country       string    `json:"country,omitempty"`
	Private       bool      `json:"private"`
	Hazardous     bool      `json:"hazardous,omitempty"`
	Starred       bool      `json:"starred,omitempty"`
}

// DetailedSegment is a single segment with full detail.
type DetailedSegment struct {
	SummarySegment
	CreatedAt           time.Time            `json:"created_at,omitempty"`
	TotalElevationGain  float64              `json:"total_elevation_gain,omitempty"`
	Map                 *PolylineMap         `json:"map,omitempty"`
	EffortCount         int                  `json:"effort_count,omitempty"`
	AthleteCount        int                  `json:"athlete_count,omitempty"`
	StarCount           int                  `json:"star_count,omitempty"`
	AthleteSegmentStats *AthleteSegmentStats `json:"athlete_segment_stats,omitempty"`
}

// AthleteSegmentStats is the athlete's PR on a segment.
type AthleteSegmentStats struct {
	PRElapsedTime int    `json:"pr_elapsed_time,omitempty"`
	PRDate        string `json:"pr_date,omitempty"`
	EffortCount   int    `json:"effort_count,omitempty"`
}

// SegmentEffort is one attempt at a segment.
type SegmentEffort struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name,omitempty"`
	ElapsedTime      int             `json:"elapsed_time"`
	MovingTime       int             `json:"moving_time"`
	StartDate        time.Time       `json:"start_date"`
	StartDateLocal   time.Time       `json:"start_date_local"`
	Distance         float64         `json:"distance"`
	AverageCadence   float64         `json:"average_cadence,omitempty"`
	AverageWatts     float64         `json:"average_watts,omitempty"`
	AverageHeartrate float64         `json:"average_heartrate,omitempty"`
	MaxHeartrate     float64         `json:"max_heartrate,omitempty"`
	Segment          *SummarySegment `json:"segment,omitempty"`
	KOMRank          int             `json:"kom_rank,omitempty"`
	PRRank           int             `json:"pr_rank,omitempty"`
}

// ExplorerSegment is a segment hit from the explore endpoint.
type ExplorerSegment struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	ClimbCategory     int       `json:"climb_category"`
	ClimbCategoryDesc string    `json:"climb_category_desc,omitempty"`
	AvgGrade          float64   `json:"avg_grade"`
	StartLatlng       []float64 `json:"start_latlng,omitempty"`
	EndLatlng         []float64 `json:"end_latlng,omitempty"`
	ElevDifference    float64   `json:"elev_difference,omitempty"`
	Distance          float64   `json:"distance"`
	Points            string    `json:"points,omitempty"`
	Starred           bool      `json:"starred,omitempty"`
}

// ExplorerResponse wraps the explore endpoint result.
type ExplorerResponse struct {
	Segments []ExplorerSegment `json:"segments"`
}

// LeaderboardEntry is one row of a segment leaderboard.
type LeaderboardEntry struct {
	AthleteName string    `json:"athlete_name,omitempty"`
	ElapsedTime int       `json:"elapsed_time"`
	MovingTime  int       `json:"moving_time,omitempty"`
	StartDate   time.Time `json:"start_date,omitempty"`
	Rank        int       `json:"rank"`
}

// SegmentLeaderboard is a segment leaderboard page.
type SegmentLeaderboard struct {
	EffortCount int                `json:"effort_count,omitempty"`
	EntryCount  int                `json:"entry_count,omitempty"`
	KOMType     string             `json:"kom_type,omitempty"`
	Entries     []LeaderboardEntry `json:"entries"`
}

// Route is an athlete-created route.
type Route struct {
	ID                  int64           `json:"id"`
	Name                string          `json:"name"`
	Description         string          `json:"description,omitempty"`
	Athlete             *SummaryAthlete `json:"athlete,omitempty"`
	Distance            float64         `json:"distance"`
	ElevationGain       float64         `json:"elevation_gain"`
	Map                 *PolylineMap    `json:"map,omitempty"`
	Type                int             `json:"type,omitempty"`
	SubType             int             `json:"sub_type,omitempty"`
	Private             bool            `json:"private,omitempty"`
	Starred             bool            `json:"starred,omitempty"`
	Timestamp           int64           `json:"timestamp,omitempty"`
	EstimatedMovingTime int             `json:"estimated_moving_time,omitempty"`
	CreatedAt           time.Time       `json:"created_at,omitempty"`
	UpdatedAt           time.Time       `json:"updated_at,omitempty"`
}
