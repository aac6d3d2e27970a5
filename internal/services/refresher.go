package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ravimadlani/calfix-sub002/internal/cache"
	"github.com/ravimadlani/calfix-sub002/internal/ics"
	"github.com/ravimadlani/calfix-sub002/internal/models"
	"github.com/ravimadlani/calfix-sub002/internal/utils"
)

const (
	refreshLeaseKey = "calfix:refresh:lease"

	// Fetch window around "now" used when warming the cache.
	refreshLookback  = 90 * 24 * time.Hour
	refreshLookahead = 30 * 24 * time.Hour
)

// Refresher periodically re-loads the configured ICS feeds, re-runs the
// analysis for each feed owner, and leaves the results warm in the cache.
// A SetNX lease keeps concurrent replicas from refreshing at the same time.
type Refresher struct {
	logger  *slog.Logger
	service *AnalyticsService
	loader  ICSLoader
	cache   cache.Provider
	spec    string
	lease   time.Duration
	cron    *cron.Cron
}

// ICSLoader is the slice of the ICS loader the refresher needs.
type ICSLoader interface {
	Sources() []ics.Source
	LoadSource(ctx context.Context, src ics.Source, rangeStart, rangeEnd time.Time) ([]models.CalendarEvent, error)
}

// NewRefresher wires a refresh job. spec is a cron expression; an empty spec
// disables the job (Start becomes a no-op).
func NewRefresher(logger *slog.Logger, service *AnalyticsService, loader ICSLoader, cacheProvider cache.Provider, spec string) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	return &Refresher{
		logger:  logger,
		service: service,
		loader:  loader,
		cache:   cacheProvider,
		spec:    spec,
		lease:   5 * time.Minute,
		cron:    cron.New(),
	}
}

// Start schedules the refresh job.
func (r *Refresher) Start() error {
	if r.spec == "" || r.loader == nil {
		return nil
	}
	if _, err := r.cron.AddFunc(r.spec, r.RunOnce); err != nil {
		return utils.NewAppError("refresher.Start", "invalid cron spec "+r.spec, err)
	}
	r.cron.Start()
	r.logger.Info("refresh job scheduled", slog.String("spec", r.spec))
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// RunOnce performs a single refresh pass. Exported so main can warm the
// cache at startup without waiting for the first tick.
func (r *Refresher) RunOnce() {
	ctx := context.Background()

	ok, err := r.cache.SetNX(ctx, refreshLeaseKey, []byte("1"), r.lease)
	if err != nil {
		r.logger.Warn("refresh lease check failed", slog.Any("error", err))
		return
	}
	if !ok {
		r.logger.Debug("refresh lease held elsewhere, skipping")
		return
	}

	now := time.Now().UTC()
	rangeStart := now.Add(-refreshLookback)
	rangeEnd := now.Add(refreshLookahead)

	for _, src := range r.loader.Sources() {
		if src.OwnerEmail == "" {
			r.logger.Warn("ICS source has no owner, skipping", slog.String("source", src.ID))
			continue
		}

		events, err := r.loader.LoadSource(ctx, src, rangeStart, rangeEnd)
		if err != nil {
			r.logger.Warn("refresh load failed",
				slog.String("source", src.ID),
				slog.Any("error", err))
			continue
		}

		req := models.AnalysisRequest{
			OwnerEmail:              src.OwnerEmail,
			FilterStart:             rangeStart,
			FilterEnd:               rangeEnd,
			RelationshipWindowStart: rangeStart,
			RelationshipWindowEnd:   rangeEnd,
			RangeMode:               models.RangeModeRetro,
			SortBy:                  models.SortByTimeCost,
			Now:                     now,
		}
		if err := r.service.InvalidateOwner(ctx, req); err != nil {
			r.logger.Warn("cache invalidation failed", slog.Any("error", err))
		}
		if _, err := r.service.Analyze(ctx, req, events); err != nil {
			r.logger.Warn("refresh analysis failed",
				slog.String("owner", src.OwnerEmail),
				slog.Any("error", err))
			continue
		}
		r.logger.Info("refreshed analysis",
			slog.String("owner", src.OwnerEmail),
			slog.Int("events", len(events)))
	}
}
