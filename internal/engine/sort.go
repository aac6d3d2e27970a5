package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/ravimadlani/calfix-sub002/internal/models"
)

// SortSeries orders a series list in place. Every ordering is stable and
// total: ties fall through to the foregrounded occurrence for the range mode
// and finally to the series ID.
func SortSeries(series []models.RecurringSeriesMetrics, by models.SeriesSort, mode models.RangeMode) {
	less := func(a, b models.RecurringSeriesMetrics) (bool, bool) { return false, true }

	switch by {
	case models.SortByTitle:
		less = func(a, b models.RecurringSeriesMetrics) (bool, bool) {
			at, bt := strings.ToLower(a.Title), strings.ToLower(b.Title)
			return at < bt, at == bt
		}
	case models.SortByAcceptance:
		less = func(a, b models.RecurringSeriesMetrics) (bool, bool) {
			return a.AcceptanceRate < b.AcceptanceRate, a.AcceptanceRate == b.AcceptanceRate
		}
	case models.SortByAttendees:
		less = func(a, b models.RecurringSeriesMetrics) (bool, bool) {
			ac, bc := a.InternalAttendees+a.ExternalAttendees, b.InternalAttendees+b.ExternalAttendees
			return ac > bc, ac == bc
		}
	default: // time cost
		less = func(a, b models.RecurringSeriesMetrics) (bool, bool) {
			return a.WeeklyMinutes > b.WeeklyMinutes, a.WeeklyMinutes == b.WeeklyMinutes
		}
	}

	sort.SliceStable(series, func(i, j int) bool {
		if lt, eq := less(series[i], series[j]); !eq {
			return lt
		}
		if lt, eq := occurrenceLess(series[i], series[j], mode); !eq {
			return lt
		}
		return series[i].ID < series[j].ID
	})
}

// occurrenceLess compares the occurrence the range mode foregrounds: the
// most recent past one for retro audits, the nearest upcoming one forward.
func occurrenceLess(a, b models.RecurringSeriesMetrics, mode models.RangeMode) (bool, bool) {
	var at, bt *time.Time
	if mode == models.RangeModeForward {
		at, bt = a.NextOccurrence, b.NextOccurrence
	} else {
		at, bt = a.LastOccurrence, b.LastOccurrence
	}
	switch {
	case at == nil && bt == nil:
		return false, true
	case at == nil:
		return false, false
	case bt == nil:
		return true, false
	case at.Equal(*bt):
		return false, true
	default:
		return at.After(*bt), false
	}
}
