package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ravimadlani/calfix-sub002/internal/cache"
	"github.com/ravimadlani/calfix-sub002/internal/engine"
	"github.com/ravimadlani/calfix-sub002/internal/metrics"
	"github.com/ravimadlani/calfix-sub002/internal/models"
	"github.com/ravimadlani/calfix-sub002/internal/repo"
	"github.com/ravimadlani/calfix-sub002/internal/utils"
)

// AnalyticsService is the facade in front of the analysis engine. It pulls
// events from the configured source when none are supplied, memoizes results
// in the cache, and records latency and outcome metrics.
type AnalyticsService struct {
	logger    *slog.Logger
	analyzer  *engine.Analyzer
	events    repo.EventSource
	cache     cache.Provider
	resultTTL time.Duration
	latencies *utils.LatencyTracker
}

// NewAnalyticsService constructs the service facade. events and cacheProvider
// may be nil; a nil cache disables memoization.
func NewAnalyticsService(logger *slog.Logger, analyzer *engine.Analyzer, events repo.EventSource, cacheProvider cache.Provider, resultTTL time.Duration) *AnalyticsService {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	return &AnalyticsService{
		logger:    logger,
		analyzer:  analyzer,
		events:    events,
		cache:     cacheProvider,
		resultTTL: resultTTL,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Analyze runs the engine over the supplied events. Results are cached per
// request shape (owner, windows, mode, sort, placeholder visibility); a hit
// skips the engine entirely.
func (s *AnalyticsService) Analyze(ctx context.Context, req models.AnalysisRequest, events []models.CalendarEvent) (models.AnalysisResult, error) {
	if s.analyzer == nil {
		return models.AnalysisResult{}, utils.NewAppError("services.Analyze", "analyzer not configured", nil)
	}

	key := resultCacheKey(req)
	if cached, err := s.cache.Get(ctx, key); err == nil {
		var result models.AnalysisResult
		if uerr := json.Unmarshal(cached, &result); uerr == nil {
			s.logger.Debug("analysis cache hit", slog.String("owner", req.OwnerEmail))
			return result, nil
		}
		// Unreadable entry; drop it and recompute.
		_ = s.cache.Del(ctx, key)
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("cache lookup failed", slog.Any("error", err))
	}

	start := time.Now()
	result, err := s.analyzer.Analyze(ctx, req, events)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveAnalysis(duration, metrics.OutcomeError, len(events), 0)
		s.logger.Error("analysis failed", slog.String("owner", req.OwnerEmail), slog.Any("error", err))
		return models.AnalysisResult{}, err
	}

	s.latencies.Observe(duration)
	metrics.ObserveAnalysis(duration, metrics.OutcomeSuccess, len(events), len(result.Series))
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		p95 := s.latencies.Percentile(95)
		s.logger.Info("analysis latency", slog.Duration("p95", p95), slog.Int("samples", count))
	}

	s.storeResult(ctx, key, result)
	return result, nil
}

// AnalyzeOwner fetches the owner's events from the configured source and
// analyzes them. Used by the API source-reference path and the refresh job.
func (s *AnalyticsService) AnalyzeOwner(ctx context.Context, req models.AnalysisRequest) (models.AnalysisResult, error) {
	if s.events == nil {
		return models.AnalysisResult{}, utils.NewAppError("services.AnalyzeOwner", "event source not configured", nil)
	}

	fetchStart, fetchEnd := req.FetchWindow()
	events, err := s.events.FetchEvents(ctx, req.OwnerEmail, fetchStart, fetchEnd)
	if err != nil {
		metrics.ObserveAnalysis(0, metrics.OutcomeError, 0, 0)
		return models.AnalysisResult{}, err
	}
	return s.Analyze(ctx, req, events)
}

// InvalidateOwner drops the cached result for one request shape.
func (s *AnalyticsService) InvalidateOwner(ctx context.Context, req models.AnalysisRequest) error {
	return s.cache.Del(ctx, resultCacheKey(req))
}

// LatencyP95 returns the current p95 analysis latency.
func (s *AnalyticsService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

func (s *AnalyticsService) storeResult(ctx context.Context, key string, result models.AnalysisResult) {
	if s.resultTTL <= 0 {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("could not serialise analysis result for cache", slog.Any("error", err))
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.resultTTL); err != nil {
		s.logger.Warn("cache store failed", slog.Any("error", err))
	}
}

// resultCacheKey identifies an analysis by every request field that shapes
// the output: owner, both windows, baseline, range mode, placeholder
// visibility and sort order. The reference instant is deliberately excluded:
// the TTL bounds how stale a memoized result can get.
func resultCacheKey(req models.AnalysisRequest) string {
	return fmt.Sprintf("calfix:analysis:%s:%d:%d:%d:%d:%g:%s:%t:%s",
		req.OwnerEmail,
		req.FilterStart.Unix(), req.FilterEnd.Unix(),
		req.RelationshipWindowStart.Unix(), req.RelationshipWindowEnd.Unix(),
		req.BaselineWorkWeekHours,
		req.RangeMode, req.IncludePlaceholders, req.SortBy)
}
