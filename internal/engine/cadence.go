package engine

import (
	"math"
	"sort"
	"time"

	"github.com/ravimadlani/calfix-sub002/internal/models"
	"github.com/ravimadlani/calfix-sub002/internal/utils"
)

// consecutiveGaps returns the day distances between consecutive instants.
// Input must be sorted ascending; zero-length gaps (same-day duplicates)
// are dropped so reschedule noise does not collapse the cadence.
func consecutiveGaps(times []time.Time) []float64 {
	if len(times) < 2 {
		return nil
	}
	gaps := make([]float64, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		gap := utils.DaysBetween(times[i-1], times[i])
		if gap <= 0 {
			continue
		}
		gaps = append(gaps, gap)
	}
	return gaps
}

func meanFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func medianFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func meanAbsoluteDeviation(values []float64, center float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += math.Abs(v - center)
	}
	return sum / float64(len(values))
}

// relative gap spread above this forces Irregular even when the median lands
// inside a named band.
const maxStableGapSpread = 0.6

// classifyFrequency maps gap statistics onto a cadence label.
func classifyFrequency(gaps []float64) models.Frequency {
	if len(gaps) == 0 {
		return models.FrequencyIrregular
	}

	median := medianFloat(gaps)
	if median <= 0 {
		return models.FrequencyIrregular
	}
	if len(gaps) >= 2 {
		spread := meanAbsoluteDeviation(gaps, median) / median
		if spread > maxStableGapSpread {
			return models.FrequencyIrregular
		}
	}

	switch {
	case median <= 1.5:
		return models.FrequencyDaily
	case median >= 5 && median <= 9:
		return models.FrequencyWeekly
	case median >= 12 && median <= 16:
		return models.FrequencyBiWeekly
	case median >= 25 && median <= 35:
		return models.FrequencyMonthly
	default:
		return models.FrequencyIrregular
	}
}
