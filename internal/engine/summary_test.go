package engine

import (
	"math"
	"testing"

	"github.com/ravimadlani/calfix-sub002/internal/models"
)

func sampleSeries() []models.RecurringSeriesMetrics {
	return []models.RecurringSeriesMetrics{
		{ID: "a", WeeklyMinutes: 60, MonthlyMinutes: 261, ExternalAttendees: 2, Flags: []models.SeriesFlag{models.FlagExternalNoEnd, models.FlagHighPeopleHours}},
		{ID: "b", WeeklyMinutes: 30, MonthlyMinutes: 130.5, InternalAttendees: 1},
		{ID: "c", WeeklyMinutes: 45, MonthlyMinutes: 195.75, IsPlaceholder: true},
		{ID: "d", WeeklyMinutes: 15, MonthlyMinutes: 65.25, InternalAttendees: 3, Flags: []models.SeriesFlag{models.FlagStale}},
	}
}

func TestSummarizeAdditivity(t *testing.T) {
	series := sampleSeries()
	summary := Summarize(series, 40, false)

	wantMonthly := 0.0
	for _, s := range series {
		if s.IsPlaceholder {
			continue
		}
		wantMonthly += s.MonthlyMinutes / 60
	}
	if math.Abs(summary.MonthlyHours-wantMonthly) > 1e-9 {
		t.Errorf("monthly hours %f != sum %f", summary.MonthlyHours, wantMonthly)
	}

	// Order independence.
	reversed := []models.RecurringSeriesMetrics{series[3], series[2], series[1], series[0]}
	again := Summarize(reversed, 40, false)
	if math.Abs(summary.MonthlyHours-again.MonthlyHours) > 1e-9 || summary.TotalSeries != again.TotalSeries {
		t.Errorf("summary is order dependent")
	}
}

func TestSummarizeCountsAndPercent(t *testing.T) {
	summary := Summarize(sampleSeries(), 40, false)

	if summary.TotalSeries != 3 {
		t.Errorf("expected 3 counted series, got %d", summary.TotalSeries)
	}
	if summary.PlaceholderCount != 1 {
		t.Errorf("expected 1 placeholder, got %d", summary.PlaceholderCount)
	}
	if summary.ExternalCount != 1 || summary.InternalCount != 2 {
		t.Errorf("unexpected internal/external split: %d/%d", summary.InternalCount, summary.ExternalCount)
	}
	if summary.FlaggedCount != 2 {
		t.Errorf("expected 2 flagged series, got %d", summary.FlaggedCount)
	}
	if summary.FlagCounts[models.FlagExternalNoEnd] != 1 || summary.FlagCounts[models.FlagHighPeopleHours] != 1 || summary.FlagCounts[models.FlagStale] != 1 {
		t.Errorf("unexpected flag histogram: %v", summary.FlagCounts)
	}

	// 105 weekly minutes = 1.75h of a 40h week.
	wantPercent := 1.75 / 40 * 100
	if math.Abs(summary.PercentOfWorkWeek-wantPercent) > 1e-9 {
		t.Errorf("expected %f%%, got %f%%", wantPercent, summary.PercentOfWorkWeek)
	}
}

func TestSummarizeIncludesPlaceholdersOnRequest(t *testing.T) {
	summary := Summarize(sampleSeries(), 40, true)
	if summary.TotalSeries != 4 {
		t.Errorf("expected all series counted, got %d", summary.TotalSeries)
	}
	if summary.PlaceholderCount != 1 {
		t.Errorf("placeholder count should be tracked either way, got %d", summary.PlaceholderCount)
	}
}

func TestSortSeriesOrders(t *testing.T) {
	build := func() []models.RecurringSeriesMetrics {
		return []models.RecurringSeriesMetrics{
			{ID: "a", Title: "Planning", WeeklyMinutes: 30, AcceptanceRate: 0.5, InternalAttendees: 4},
			{ID: "b", Title: "All Hands", WeeklyMinutes: 120, AcceptanceRate: 1.0, InternalAttendees: 9, ExternalAttendees: 1},
			{ID: "c", Title: "design review", WeeklyMinutes: 60, AcceptanceRate: 0.25, InternalAttendees: 2},
		}
	}

	cases := []struct {
		by   models.SeriesSort
		want []string
	}{
		{models.SortByTimeCost, []string{"b", "c", "a"}},
		{models.SortByTitle, []string{"b", "c", "a"}}, // case-folded: all hands, design review, planning
		{models.SortByAcceptance, []string{"c", "a", "b"}},
		{models.SortByAttendees, []string{"b", "a", "c"}},
	}

	for _, tc := range cases {
		series := build()
		SortSeries(series, tc.by, models.RangeModeRetro)
		for i, id := range tc.want {
			if series[i].ID != id {
				t.Errorf("%s: position %d expected %s, got %s", tc.by, i, id, series[i].ID)
			}
		}
	}
}

func TestSortSeriesStableAndTotal(t *testing.T) {
	series := sampleSeries()
	SortSeries(series, models.SortByTimeCost, models.RangeModeRetro)
	for i := 1; i < len(series); i++ {
		if series[i-1].WeeklyMinutes < series[i].WeeklyMinutes {
			t.Fatalf("time cost sort not descending at %d", i)
		}
	}

	tied := []models.RecurringSeriesMetrics{{ID: "z", WeeklyMinutes: 30}, {ID: "a", WeeklyMinutes: 30}}
	SortSeries(tied, models.SortByTimeCost, models.RangeModeRetro)
	if tied[0].ID != "a" {
		t.Errorf("ties must break by series id, got %s first", tied[0].ID)
	}
}
