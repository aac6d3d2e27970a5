package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/ravimadlani/calfix-sub002/internal/models"
)

// Analyzer derives recurring-series metrics, relationship snapshots and the
// workload summary from one user's event set. It holds no mutable state
// between calls, so a single Analyzer is safe for concurrent use.
type Analyzer struct {
	logger     *slog.Logger
	thresholds models.Thresholds
}

// NewAnalyzer constructs an Analyzer with the supplied tuning.
func NewAnalyzer(logger *slog.Logger, thresholds models.Thresholds) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := models.DefaultThresholds()
	if thresholds.HighPeopleHoursPerMonth <= 0 {
		thresholds.HighPeopleHoursPerMonth = defaults.HighPeopleHoursPerMonth
	}
	if thresholds.StaleCadenceMultiplier <= 0 {
		thresholds.StaleCadenceMultiplier = defaults.StaleCadenceMultiplier
	}
	if thresholds.CriticalCadenceMultiplier <= 0 {
		thresholds.CriticalCadenceMultiplier = defaults.CriticalCadenceMultiplier
	}
	if thresholds.CriticalFixedGapDays <= 0 {
		thresholds.CriticalFixedGapDays = defaults.CriticalFixedGapDays
	}
	if thresholds.OverdueFixedGapDays <= 0 {
		thresholds.OverdueFixedGapDays = defaults.OverdueFixedGapDays
	}
	if len(thresholds.ResourceDomains) == 0 {
		thresholds.ResourceDomains = defaults.ResourceDomains
	}
	if thresholds.MaxSampleEvents <= 0 {
		thresholds.MaxSampleEvents = defaults.MaxSampleEvents
	}
	return &Analyzer{logger: logger, thresholds: thresholds}
}

// Analyze runs the full analysis over the supplied events. The input slice
// is never mutated; malformed events are skipped rather than failing the
// call, so the worst outcome is a less complete result.
func (a *Analyzer) Analyze(_ context.Context, req models.AnalysisRequest, events []models.CalendarEvent) (models.AnalysisResult, error) {
	if req.BaselineWorkWeekHours <= 0 {
		req.BaselineWorkWeekHours = 40
	}
	if req.RangeMode == "" {
		req.RangeMode = models.RangeModeRetro
	}
	now := req.ReferenceTime()

	valid := make([]models.CalendarEvent, 0, len(events))
	skipped := 0
	for _, ev := range events {
		if !ev.Valid() {
			skipped++
			continue
		}
		valid = append(valid, ev)
	}
	if skipped > 0 {
		a.logger.Warn("skipped malformed events", slog.Int("count", skipped), slog.Int("total", len(events)))
	}

	groups := groupEvents(valid)

	recurringKeys := make(map[string]bool, len(groups))
	for _, group := range groups {
		if group.isRecurringSeries() {
			recurringKeys[group.Key] = true
		}
	}

	series := make([]models.RecurringSeriesMetrics, 0, len(groups))
	for _, group := range groups {
		if !group.isRecurringSeries() {
			continue
		}
		metrics, ok := a.buildSeriesGuarded(group, req, now)
		if !ok {
			continue
		}
		series = append(series, metrics)
	}

	summary := Summarize(series, req.BaselineWorkWeekHours, req.IncludePlaceholders)

	visible := series
	if !req.IncludePlaceholders {
		visible = make([]models.RecurringSeriesMetrics, 0, len(series))
		for _, s := range series {
			if !s.IsPlaceholder {
				visible = append(visible, s)
			}
		}
	}
	SortSeries(visible, req.SortBy, req.RangeMode)

	relationships := a.analyzeRelationships(req, valid, recurringKeys, now)

	return models.AnalysisResult{
		Series:        visible,
		Summary:       summary,
		Relationships: relationships,
		RangeMode:     req.RangeMode,
		GeneratedAt:   now,
	}, nil
}

// buildSeriesGuarded contains any panic from a single series so one
// malformed group cannot suppress the rest of the output.
func (a *Analyzer) buildSeriesGuarded(group seriesGroup, req models.AnalysisRequest, now time.Time) (metrics models.RecurringSeriesMetrics, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("series computation panicked", slog.String("series", group.Key), slog.Any("panic", r))
			ok = false
		}
	}()
	return a.buildSeries(group, req, now)
}
