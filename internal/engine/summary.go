package engine

import "github.com/ravimadlani/calfix-sub002/internal/models"

// Summarize reduces a series list into the workload roll-up. It is a pure,
// order-independent sum: reordering the input never changes the result.
// Placeholder series are counted but contribute hours only when included.
func Summarize(series []models.RecurringSeriesMetrics, baselineWorkWeekHours float64, includePlaceholders bool) models.RecurringSummary {
	if baselineWorkWeekHours <= 0 {
		baselineWorkWeekHours = 40
	}

	summary := models.RecurringSummary{
		FlagCounts: make(map[models.SeriesFlag]int),
	}

	weeklyMinutes, monthlyMinutes := 0.0, 0.0
	for _, s := range series {
		if s.IsPlaceholder {
			summary.PlaceholderCount++
			if !includePlaceholders {
				continue
			}
		}
		summary.TotalSeries++
		weeklyMinutes += s.WeeklyMinutes
		monthlyMinutes += s.MonthlyMinutes

		if s.ExternalAttendees > 0 {
			summary.ExternalCount++
		} else if !s.IsPlaceholder {
			summary.InternalCount++
		}
		if len(s.Flags) > 0 {
			summary.FlaggedCount++
		}
		for _, flag := range s.Flags {
			summary.FlagCounts[flag]++
		}
	}

	summary.WeeklyHours = weeklyMinutes / 60
	summary.MonthlyHours = monthlyMinutes / 60
	summary.PercentOfWorkWeek = summary.WeeklyHours / baselineWorkWeekHours * 100
	return summary
}
