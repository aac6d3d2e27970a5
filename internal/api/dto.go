package api

import (
	"fmt"
	"time"

	"github.com/ravimadlani/calfix-sub002/internal/models"
	"github.com/ravimadlani/calfix-sub002/internal/repo"
	"github.com/ravimadlani/calfix-sub002/internal/utils"
)

// AnalyzeRequest is the wire form of POST /api/v1/analyze. Events may be
// supplied inline in the provider wire shape; when absent the configured
// event source is queried for the owner's calendar.
type AnalyzeRequest struct {
	OwnerEmail              string          `json:"ownerEmail"`
	FilterStart             string          `json:"filterStart,omitempty"`
	FilterEnd               string          `json:"filterEnd,omitempty"`
	BaselineWorkWeekHours   float64         `json:"baselineWorkWeekHours,omitempty"`
	RangeMode               string          `json:"rangeMode,omitempty"`
	RelationshipWindowStart string          `json:"relationshipWindowStart,omitempty"`
	RelationshipWindowEnd   string          `json:"relationshipWindowEnd,omitempty"`
	IncludePlaceholders     bool            `json:"includePlaceholders,omitempty"`
	SortBy                  string          `json:"sortBy,omitempty"`
	Events                  []repo.EventDTO `json:"events,omitempty"`
}

// ToDomain validates the wire request and converts it into an analysis
// request plus any inline events.
func (r AnalyzeRequest) ToDomain() (models.AnalysisRequest, []models.CalendarEvent, error) {
	var req models.AnalysisRequest

	if r.OwnerEmail == "" {
		return req, nil, fmt.Errorf("ownerEmail is required")
	}
	req.OwnerEmail = r.OwnerEmail
	req.BaselineWorkWeekHours = r.BaselineWorkWeekHours
	req.IncludePlaceholders = r.IncludePlaceholders

	switch models.RangeMode(r.RangeMode) {
	case "", models.RangeModeRetro:
		req.RangeMode = models.RangeModeRetro
	case models.RangeModeForward:
		req.RangeMode = models.RangeModeForward
	default:
		return req, nil, fmt.Errorf("unknown rangeMode %q", r.RangeMode)
	}

	switch models.SeriesSort(r.SortBy) {
	case "", models.SortByTimeCost:
		req.SortBy = models.SortByTimeCost
	case models.SortByTitle, models.SortByAcceptance, models.SortByAttendees:
		req.SortBy = models.SeriesSort(r.SortBy)
	default:
		return req, nil, fmt.Errorf("unknown sortBy %q", r.SortBy)
	}

	var err error
	if req.FilterStart, err = parseOptionalTime(r.FilterStart); err != nil {
		return req, nil, fmt.Errorf("filterStart: %w", err)
	}
	if req.FilterEnd, err = parseOptionalTime(r.FilterEnd); err != nil {
		return req, nil, fmt.Errorf("filterEnd: %w", err)
	}
	if !req.FilterStart.IsZero() && !req.FilterEnd.IsZero() && req.FilterEnd.Before(req.FilterStart) {
		return req, nil, fmt.Errorf("filterEnd precedes filterStart")
	}
	if req.RelationshipWindowStart, err = parseOptionalTime(r.RelationshipWindowStart); err != nil {
		return req, nil, fmt.Errorf("relationshipWindowStart: %w", err)
	}
	if req.RelationshipWindowEnd, err = parseOptionalTime(r.RelationshipWindowEnd); err != nil {
		return req, nil, fmt.Errorf("relationshipWindowEnd: %w", err)
	}

	if len(r.Events) == 0 {
		return req, nil, nil
	}
	events := make([]models.CalendarEvent, 0, len(r.Events))
	for _, dto := range r.Events {
		events = append(events, repo.MapEvent(dto))
	}
	return req, events, nil
}

// parseOptionalTime accepts RFC3339 or YYYY-MM-DD; empty means unset.
func parseOptionalTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := utils.ParseRFC3339(value); err == nil {
		return t, nil
	}
	return utils.ParseDateOnly(value)
}

// HealthResponse is the wire form of GET /api/v1/health.
type HealthResponse struct {
	Status     string `json:"status"`
	LatencyP95 string `json:"latencyP95,omitempty"`
}

// ErrorResponse carries a client-facing failure message.
type ErrorResponse struct {
	Error string `json:"error"`
}
