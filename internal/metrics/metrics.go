package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels completed analyses.
	OutcomeSuccess = "success"
	// OutcomeError labels failed analyses (bad input or source failures).
	OutcomeError = "error"
)

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "calfix",
			Name:      "analyses_total",
			Help:      "Total number of calendar analyses handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "calfix",
			Name:      "analysis_seconds",
			Help:      "Analysis latency in seconds.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	eventsProcessedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "calfix",
			Name:      "events_processed_total",
			Help:      "Calendar events consumed across all analyses.",
		},
	)

	seriesDetected = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "calfix",
			Name:      "series_detected",
			Help:      "Recurring series found per analysis.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)
)

// Register attaches calfix collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		analysesTotal,
		analysisDurationSeconds,
		eventsProcessedTotal,
		seriesDetected,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis records one analysis invocation.
func ObserveAnalysis(duration time.Duration, outcome string, events, series int) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	analysesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
	if events > 0 {
		eventsProcessedTotal.Add(float64(events))
	}
	if label == OutcomeSuccess {
		seriesDetected.Observe(float64(series))
	}
}
