package models

import "time"

// RangeMode selects which occurrence direction an analysis foregrounds.
type RangeMode string

const (
	RangeModeRetro   RangeMode = "retro"
	RangeModeForward RangeMode = "forward"
)

// SeriesSort enumerates the supported series orderings.
type SeriesSort string

const (
	SortByTimeCost   SeriesSort = "timeCost"
	SortByTitle      SeriesSort = "title"
	SortByAcceptance SeriesSort = "acceptance"
	SortByAttendees  SeriesSort = "attendees"
)

// AnalysisRequest bounds one analysis invocation.
type AnalysisRequest struct {
	OwnerEmail              string
	FilterStart             time.Time
	FilterEnd               time.Time
	BaselineWorkWeekHours   float64
	RangeMode               RangeMode
	RelationshipWindowStart time.Time
	RelationshipWindowEnd   time.Time
	IncludePlaceholders     bool
	SortBy                  SeriesSort

	// Now fixes the reference instant for cadence math; zero means wall clock.
	Now time.Time
}

// ReferenceTime resolves the instant "now" for the request.
func (r AnalysisRequest) ReferenceTime() time.Time {
	if r.Now.IsZero() {
		return time.Now().UTC()
	}
	return r.Now
}

// FetchWindow returns the range events must be pulled over: the union of the
// audit window and the relationship window. Cadence math needs 1:1 history
// that can predate the audit window.
func (r AnalysisRequest) FetchWindow() (time.Time, time.Time) {
	start, end := r.FilterStart, r.FilterEnd
	if !r.RelationshipWindowStart.IsZero() && r.RelationshipWindowStart.Before(start) {
		start = r.RelationshipWindowStart
	}
	if r.RelationshipWindowEnd.After(end) {
		end = r.RelationshipWindowEnd
	}
	return start, end
}

// AnalysisResult is the combined engine output, JSON-serialisable as-is.
type AnalysisResult struct {
	Series        []RecurringSeriesMetrics `json:"series"`
	Summary       RecurringSummary         `json:"summary"`
	Relationships []RelationshipSnapshot   `json:"relationships"`
	RangeMode     RangeMode                `json:"rangeMode"`
	GeneratedAt   time.Time                `json:"generatedAt"`
}

// Thresholds are the tunable business constants behind flag and status rules.
type Thresholds struct {
	HighPeopleHoursPerMonth   float64
	StaleCadenceMultiplier    float64
	CriticalCadenceMultiplier float64
	CriticalFixedGapDays      float64
	OverdueFixedGapDays       float64
	ResourceDomains           []string
	MaxSampleEvents           int
}

// DefaultThresholds returns the baseline tuning used when config omits values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighPeopleHoursPerMonth:   50,
		StaleCadenceMultiplier:    2,
		CriticalCadenceMultiplier: 2,
		CriticalFixedGapDays:      60,
		OverdueFixedGapDays:       30,
		ResourceDomains:           []string{"resource.calendar.google.com"},
		MaxSampleEvents:           5,
	}
}

// IsResourceDomain reports whether the domain belongs to a provider-managed
// virtual resource (rooms, equipment) rather than a person.
func (t Thresholds) IsResourceDomain(domain string) bool {
	for _, d := range t.ResourceDomains {
		if d == domain {
			return true
		}
	}
	return false
}
