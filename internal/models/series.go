package models

import "time"

// RecurringSeriesMetrics summarises one logical recurring meeting series.
type RecurringSeriesMetrics struct {
	ID                  string        `json:"id"`
	GroupKey            string        `json:"groupKey"`
	Title               string        `json:"title"`
	OrganizerEmail      string        `json:"organizerEmail"`
	FrequencyLabel      Frequency     `json:"frequencyLabel"`
	AverageGapDays      *float64      `json:"averageGapDays"`
	DurationMinutes     float64       `json:"durationMinutes"`
	WeeklyMinutes       float64       `json:"weeklyMinutes"`
	MonthlyMinutes      float64       `json:"monthlyMinutes"`
	PeopleHoursPerMonth float64       `json:"peopleHoursPerMonth"`
	InternalAttendees   int           `json:"internalAttendees"`
	ExternalAttendees   int           `json:"externalAttendees"`
	AcceptanceRate      float64       `json:"acceptanceRate"`
	CancellationRate    float64       `json:"cancellationRate"`
	Flags               []SeriesFlag  `json:"flags"`
	LastOccurrence      *time.Time    `json:"lastOccurrence"`
	NextOccurrence      *time.Time    `json:"nextOccurrence"`
	TotalInstances      int           `json:"totalInstances"`
	IsPlaceholder       bool          `json:"isPlaceholder"`
	SampleEvents        []SeriesEvent `json:"sampleEvents"`
}

// SeriesEvent is a bounded drill-down sample retained per series. It keeps
// the raw provider identifiers so grouping decisions stay inspectable.
type SeriesEvent struct {
	EventID          string    `json:"eventId"`
	RecurringEventID string    `json:"recurringEventId,omitempty"`
	ICalUID          string    `json:"iCalUID,omitempty"`
	Start            time.Time `json:"start"`
	Status           string    `json:"status"`
}

// SeriesFlag tags a governance or health concern on a series.
type SeriesFlag string

const (
	FlagHighPeopleHours SeriesFlag = "high-people-hours"
	FlagExternalNoEnd   SeriesFlag = "external-no-end"
	FlagStale           SeriesFlag = "stale"
)

// Frequency labels the detected cadence of a series.
type Frequency string

const (
	FrequencyDaily     Frequency = "Daily"
	FrequencyWeekly    Frequency = "Weekly"
	FrequencyBiWeekly  Frequency = "Bi-Weekly"
	FrequencyMonthly   Frequency = "Monthly"
	FrequencyIrregular Frequency = "Irregular"
)

// RecurringSummary is the workload roll-up over a series list.
type RecurringSummary struct {
	TotalSeries       int                `json:"totalSeries"`
	WeeklyHours       float64            `json:"weeklyHours"`
	MonthlyHours      float64            `json:"monthlyHours"`
	PercentOfWorkWeek float64            `json:"percentOfWorkWeek"`
	InternalCount     int                `json:"internalCount"`
	ExternalCount     int                `json:"externalCount"`
	PlaceholderCount  int                `json:"placeholderCount"`
	FlaggedCount      int                `json:"flaggedCount"`
	FlagCounts        map[SeriesFlag]int `json:"flagCounts"`
}
