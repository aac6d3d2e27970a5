package models

import "time"

// RelationshipSnapshot captures the 1:1 cadence state for one counterpart.
type RelationshipSnapshot struct {
	PersonEmail    string             `json:"personEmail"`
	PersonName     string             `json:"personName"`
	LastMeetings   []MeetingRef       `json:"lastMeetings"`
	NextMeetings   []MeetingRef       `json:"nextMeetings"`
	AverageGapDays *float64           `json:"averageGapDays"`
	DaysSinceLast  *float64           `json:"daysSinceLast"`
	DaysUntilNext  *float64           `json:"daysUntilNext"`
	IsRecurring    bool               `json:"isRecurring"`
	Status         RelationshipStatus `json:"status"`
}

// MeetingRef points back at one concrete 1:1 occurrence.
type MeetingRef struct {
	EventID string    `json:"eventId"`
	Title   string    `json:"title"`
	Start   time.Time `json:"start"`
}

// RelationshipStatus classifies relationship health.
type RelationshipStatus string

const (
	RelationshipHealthy  RelationshipStatus = "healthy"
	RelationshipOverdue  RelationshipStatus = "overdue"
	RelationshipCritical RelationshipStatus = "critical"
)
