package engine

import (
	"testing"
	"time"

	"github.com/ravimadlani/calfix-sub002/internal/models"
)

func TestClassifyFrequencyBands(t *testing.T) {
	cases := []struct {
		name string
		gaps []float64
		want models.Frequency
	}{
		{"daily", []float64{1, 1, 1, 1}, models.FrequencyDaily},
		{"weekly", []float64{7, 7, 7, 7, 7, 7, 7}, models.FrequencyWeekly},
		{"biweekly", []float64{14, 14, 14}, models.FrequencyBiWeekly},
		{"monthly", []float64{28, 31, 30}, models.FrequencyMonthly},
		{"no gaps", nil, models.FrequencyIrregular},
		{"unstable", []float64{2, 30, 5, 60}, models.FrequencyIrregular},
		{"off-band", []float64{20, 20, 20}, models.FrequencyIrregular},
	}

	for _, tc := range cases {
		if got := classifyFrequency(tc.gaps); got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestConsecutiveGapsWeekly(t *testing.T) {
	first := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	times := make([]time.Time, 0, 8)
	for i := 0; i < 8; i++ {
		times = append(times, first.AddDate(0, 0, 7*i))
	}

	gaps := consecutiveGaps(times)
	if len(gaps) != 7 {
		t.Fatalf("expected 7 gaps, got %d", len(gaps))
	}
	mean := meanFloat(gaps)
	if mean < 6.99 || mean > 7.01 {
		t.Errorf("expected mean gap ~7, got %f", mean)
	}
	if classifyFrequency(gaps) != models.FrequencyWeekly {
		t.Errorf("expected Weekly classification")
	}
}

func TestConsecutiveGapsDropsSameDayDuplicates(t *testing.T) {
	first := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	times := []time.Time{first, first, first.AddDate(0, 0, 7)}
	gaps := consecutiveGaps(times)
	if len(gaps) != 1 {
		t.Fatalf("expected duplicate start dropped, got %d gaps", len(gaps))
	}
}
