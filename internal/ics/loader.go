package ics

import (
	"context"
	"log/slog"
	"time"

	"github.com/ravimadlani/calfix-sub002/internal/models"
	"github.com/ravimadlani/calfix-sub002/internal/utils"
)

// Loader fetches configured ICS feeds and turns them into concrete event
// instances ready for analysis. A broken feed is logged and skipped so one
// unreachable calendar does not take down the rest.
type Loader struct {
	fetcher *Fetcher
	sources []Source
	logger  *slog.Logger
}

func NewLoader(sources []Source, timeout time.Duration, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		fetcher: NewFetcher(timeout),
		sources: sources,
		logger:  logger,
	}
}

// Sources returns the configured feed list.
func (l *Loader) Sources() []Source {
	return l.sources
}

// Load fetches every source and expands recurrences into [rangeStart,
// rangeEnd]. It fails only when no source could be loaded at all.
func (l *Loader) Load(ctx context.Context, rangeStart, rangeEnd time.Time) ([]models.CalendarEvent, error) {
	var (
		out    []models.CalendarEvent
		loaded int
	)

	for _, src := range l.sources {
		events, err := l.loadSource(ctx, src, rangeStart, rangeEnd)
		if err != nil {
			l.logger.Warn("skipping ICS source",
				slog.String("source", src.ID),
				slog.Any("error", err))
			continue
		}
		loaded++
		out = append(out, events...)
	}

	if loaded == 0 && len(l.sources) > 0 {
		return nil, &utils.AppError{Op: "ics.Load", Msg: "all ICS sources failed"}
	}
	return out, nil
}

// LoadSource fetches and expands a single feed.
func (l *Loader) LoadSource(ctx context.Context, src Source, rangeStart, rangeEnd time.Time) ([]models.CalendarEvent, error) {
	return l.loadSource(ctx, src, rangeStart, rangeEnd)
}

func (l *Loader) loadSource(ctx context.Context, src Source, rangeStart, rangeEnd time.Time) ([]models.CalendarEvent, error) {
	body, err := l.fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, &utils.AppError{Op: "ics.fetch", Msg: src.URL, Err: err}
	}

	parsed, skipped, err := Parse(body)
	if err != nil {
		return nil, &utils.AppError{Op: "ics.parse", Msg: src.URL, Err: err}
	}
	if skipped > 0 {
		l.logger.Warn("skipped malformed VEVENTs",
			slog.String("source", src.ID),
			slog.Int("skipped", skipped))
	}

	events := expandAll(parsed, rangeStart, rangeEnd, l.logger)
	l.logger.Debug("loaded ICS source",
		slog.String("source", src.ID),
		slog.Int("events", len(events)))
	return events, nil
}
