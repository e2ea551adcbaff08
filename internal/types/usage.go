package types

// UsageShare is one app or category row with its share of a total
type UsageShare struct {
	AppName      string  `json:"app_name"`
	Category     string  `json:"category"`
	TotalSeconds int64   `json:"total_seconds"`
	Percentage   float64 `json:"percentage"`
}

// DailyUsage is the per-day read shape: category totals plus top apps
type DailyUsage struct {
	Date            string       `json:"date"`
	TotalScreenTime int64        `json:"total_screen_time"`
	Categories      []UsageShare `json:"categories"`
	TopApps         []UsageShare `json:"top_apps"`
}

// WeeklyUsage covers seven consecutive days starting at StartDate
type WeeklyUsage struct {
	StartDate      string       `json:"start_date"`
	EndDate        string       `json:"end_date"`
	DailyBreakdown []DailyUsage `json:"daily_breakdown"`
	WeeklyTotals   []UsageShare `json:"weekly_totals"`
}

// HourSlot is one hour of a day with per-app shares
type HourSlot struct {
	Hour         int          `json:"hour"`
	TotalSeconds int64        `json:"total_seconds"`
	Apps         []UsageShare `json:"apps"`
}

// HourlyUsage always carries 24 slots, empty hours included
type HourlyUsage struct {
	Date       string     `json:"date"`
	HourlyData []HourSlot `json:"hourly_data"`
}

// TopApps lists the most used apps over a day window
type TopApps struct {
	Apps      []UsageShare `json:"apps"`
	TotalApps int          `json:"total_apps"`
}

// CategoryMap is the full category map keyed by category name
type CategoryMap struct {
	Categories map[string]CategoryInfo `json:"categories"`
}

// SummaryPeriod is the window a summary covers
type SummaryPeriod struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Days      int    `json:"days"`
}

// SummaryTotals holds totals and daily averages
type SummaryTotals struct {
	ScreenTimeSeconds   int64   `json:"screen_time_seconds"`
	ScreenTimeHours     float64 `json:"screen_time_hours"`
	AverageDailySeconds int64   `json:"average_daily_seconds"`
	AverageDailyHours   float64 `json:"average_daily_hours"`
}

// ProductiveDay is the day with the most time in the productive category
type ProductiveDay struct {
	Date        string `json:"date,omitempty"`
	WorkSeconds int64  `json:"work_seconds"`
}

// SummaryInsights holds derived insights for a summary window
type SummaryInsights struct {
	UniqueAppsUsed    int64         `json:"unique_apps_used"`
	MostProductiveDay ProductiveDay `json:"most_productive_day"`
}

// SummaryStats is the N-day summary read shape
type SummaryStats struct {
	Period   SummaryPeriod   `json:"period"`
	Totals   SummaryTotals   `json:"totals"`
	Insights SummaryInsights `json:"insights"`
}
