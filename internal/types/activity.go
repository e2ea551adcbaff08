package types

import "time"

// DateLayout is the canonical date format used for bucket keys
const DateLayout = "2006-01-02"

// DefaultDeviceType is recorded when no device type is configured
const DefaultDeviceType = "desktop"

// UncategorizedCategory is the fallback category for apps no rule matches
const UncategorizedCategory = "Uncategorized"

// Event is one sampled observation of the focused application
type Event struct {
	ID              int64     `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	DeviceType      string    `json:"deviceType"`
	AppName         string    `json:"appName"`
	WindowTitle     string    `json:"windowTitle"`
	ProcessName     string    `json:"processName"`
	WebsiteURL      string    `json:"websiteUrl,omitempty"`
	DurationSeconds int64     `json:"durationSeconds"`
}

// HourlyBucket aggregates events for one (date, hour, device_type, app_name) key
type HourlyBucket struct {
	Date         string `json:"date"`
	Hour         int    `json:"hour"`
	DeviceType   string `json:"deviceType"`
	AppName      string `json:"appName"`
	Category     string `json:"category"`
	TotalSeconds int64  `json:"totalSeconds"`
	EventCount   int64  `json:"eventCount"`
}

// DailyBucket aggregates hourly buckets for one (date, device_type, app_name) key
type DailyBucket struct {
	Date         string `json:"date"`
	DeviceType   string `json:"deviceType"`
	AppName      string `json:"appName"`
	Category     string `json:"category"`
	TotalSeconds int64  `json:"totalSeconds"`
	EventCount   int64  `json:"eventCount"`
}

// DailyCategoryBucket aggregates daily buckets for one (date, device_type, category) key
type DailyCategoryBucket struct {
	Date         string `json:"date"`
	DeviceType   string `json:"deviceType"`
	Category     string `json:"category"`
	TotalSeconds int64  `json:"totalSeconds"`
}

// CategoryRule maps an application or process literal to a category
type CategoryRule struct {
	Pattern  string `json:"pattern"`
	Category string `json:"category"`
}

// CategoryInfo describes a category and the literals mapped to it
type CategoryInfo struct {
	Name        string   `json:"name"`
	Apps        []string `json:"apps"`
	Color       string   `json:"color,omitempty"`
	Description string   `json:"description,omitempty"`
}

// TimeRange is a half-open [From, To) interval
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// IsZero reports whether the range has no extent
func (r TimeRange) IsZero() bool {
	return !r.To.After(r.From)
}

// Overlaps reports whether two half-open ranges share any instant
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.From.Before(other.To) && other.From.Before(r.To)
}

// RunStatus is the terminal state of an aggregation run
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// AggregationRun records one aggregation pass for diagnostics and scheduling
type AggregationRun struct {
	ID              string    `json:"id"`
	StartedAt       time.Time `json:"startedAt"`
	CompletedAt     time.Time `json:"completedAt"`
	Range           TimeRange `json:"range"`
	Status          RunStatus `json:"status"`
	Error           string    `json:"error,omitempty"`
	EventCount      int64     `json:"eventCount"`
	HourlyRows      int64     `json:"hourlyRows"`
	DailyRows       int64     `json:"dailyRows"`
	CategoryRows    int64     `json:"categoryRows"`
	UnresolvedApps  int64     `json:"unresolvedApps"`
	RuleSnapshotLen int       `json:"ruleSnapshotLen"`
}

// Rollup is the full set of hourly buckets computed by one run for a set of dates
type Rollup struct {
	Dates  []string       `json:"dates"`
	Hourly []HourlyBucket `json:"hourly"`
	Rules  []CategoryRule `json:"rules"`
}

// StoreStats summarizes store contents for diagnostics
type StoreStats struct {
	EventCount         int64     `json:"eventCount"`
	HourlyRows         int64     `json:"hourlyRows"`
	DailyRows          int64     `json:"dailyRows"`
	CategoryRows       int64     `json:"categoryRows"`
	LatestEvent        time.Time `json:"latestEvent"`
	EventsSince        int64     `json:"eventsSince"`
	DistinctApps       int64     `json:"distinctApps"`
	LatestDailyDate    string    `json:"latestDailyDate"`
	UncategorizedApps  []string  `json:"uncategorizedApps"`
	// UncategorizedCount is the full distinct count; UncategorizedApps is capped
	UncategorizedCount int64     `json:"uncategorizedCount"`
}
