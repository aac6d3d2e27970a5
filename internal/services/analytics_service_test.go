package services

import (
	"context"
	"testing"
	"time"

	"github.com/ravimadlani/calfix-sub002/internal/cache"
	"github.com/ravimadlani/calfix-sub002/internal/engine"
	"github.com/ravimadlani/calfix-sub002/internal/ics"
	"github.com/ravimadlani/calfix-sub002/internal/models"
)

type eventSourceStub struct {
	events []models.CalendarEvent
	err    error
	calls  int
	start  time.Time
	end    time.Time
}

func (s *eventSourceStub) FetchEvents(ctx context.Context, calendarID string, start, end time.Time) ([]models.CalendarEvent, error) {
	s.calls++
	s.start, s.end = start, end
	return s.events, s.err
}

func timedMeeting(id string, start time.Time, attendees ...string) models.CalendarEvent {
	ev := models.CalendarEvent{
		ID:      id,
		Summary: "Planning",
		Status:  models.StatusConfirmed,
		Start:   models.EventTime{When: start},
		End:     models.EventTime{When: start.Add(30 * time.Minute)},
	}
	for _, email := range attendees {
		ev.Attendees = append(ev.Attendees, models.Attendee{Email: email, ResponseStatus: models.ResponseAccepted})
	}
	return ev
}

func weeklyFixture(n int) ([]models.CalendarEvent, models.AnalysisRequest) {
	first := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	events := make([]models.CalendarEvent, 0, n)
	for i := 0; i < n; i++ {
		ev := timedMeeting("evt-"+string(rune('a'+i)), first.AddDate(0, 0, 7*i), "owner@acme.io", "sam@acme.io")
		ev.RecurringEventID = "series-1"
		events = append(events, ev)
	}
	req := models.AnalysisRequest{
		OwnerEmail:  "owner@acme.io",
		FilterStart: first.AddDate(0, 0, -7),
		FilterEnd:   first.AddDate(0, 0, 7*n),
		Now:         first.AddDate(0, 0, 7*(n-1)+1),
	}
	return events, req
}

func TestAnalyzeCachesResult(t *testing.T) {
	events, req := weeklyFixture(4)
	analyzer := engine.NewAnalyzer(nil, models.DefaultThresholds())
	svc := NewAnalyticsService(nil, analyzer, nil, cache.NewMemoryProvider(), time.Minute)

	first, err := svc.Analyze(context.Background(), req, events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.Series) != 1 {
		t.Fatalf("expected 1 series, got %d", len(first.Series))
	}

	// Same request with no events must hit the cache instead of the engine.
	second, err := svc.Analyze(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("unexpected error on cached call: %v", err)
	}
	if len(second.Series) != 1 {
		t.Fatalf("expected cached series, got %d", len(second.Series))
	}
	if !second.GeneratedAt.Equal(first.GeneratedAt) {
		t.Errorf("cached result should be byte-stable: %v vs %v", second.GeneratedAt, first.GeneratedAt)
	}
}

func TestInvalidateOwnerForcesRecompute(t *testing.T) {
	events, req := weeklyFixture(4)
	analyzer := engine.NewAnalyzer(nil, models.DefaultThresholds())
	svc := NewAnalyticsService(nil, analyzer, nil, cache.NewMemoryProvider(), time.Minute)

	if _, err := svc.Analyze(context.Background(), req, events); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.InvalidateOwner(context.Background(), req); err != nil {
		t.Fatalf("unexpected invalidation error: %v", err)
	}

	result, err := svc.Analyze(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Series) != 0 {
		t.Fatalf("expected recompute over empty events, got %d series", len(result.Series))
	}
}

func TestAnalyzeOwnerFetchesFromSource(t *testing.T) {
	events, req := weeklyFixture(4)
	source := &eventSourceStub{events: events}
	analyzer := engine.NewAnalyzer(nil, models.DefaultThresholds())
	svc := NewAnalyticsService(nil, analyzer, source, nil, 0)

	result, err := svc.AnalyzeOwner(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected 1 source fetch, got %d", source.calls)
	}
	if len(result.Series) != 1 {
		t.Fatalf("expected 1 series, got %d", len(result.Series))
	}
}

func TestAnalyzeOwnerFetchesUnionOfWindows(t *testing.T) {
	source := &eventSourceStub{}
	analyzer := engine.NewAnalyzer(nil, models.DefaultThresholds())
	svc := NewAnalyticsService(nil, analyzer, source, nil, 0)

	req := models.AnalysisRequest{
		OwnerEmail:              "owner@acme.io",
		FilterStart:             time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		FilterEnd:               time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		RelationshipWindowStart: time.Date(2024, 11, 3, 0, 0, 0, 0, time.UTC),
		RelationshipWindowEnd:   time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC),
		Now:                     time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC),
	}
	if _, err := svc.AnalyzeOwner(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 1:1 history predating the audit window feeds cadence math, so the
	// fetch must span the wider relationship window on both sides.
	if !source.start.Equal(req.RelationshipWindowStart) {
		t.Errorf("fetch start %v does not cover relationship window start %v", source.start, req.RelationshipWindowStart)
	}
	if !source.end.Equal(req.RelationshipWindowEnd) {
		t.Errorf("fetch end %v does not cover relationship window end %v", source.end, req.RelationshipWindowEnd)
	}

	// A relationship window inside the audit window must not shrink the fetch.
	req.RelationshipWindowStart = req.FilterStart.AddDate(0, 0, 7)
	req.RelationshipWindowEnd = req.FilterEnd.AddDate(0, 0, -7)
	if _, err := svc.AnalyzeOwner(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !source.start.Equal(req.FilterStart) || !source.end.Equal(req.FilterEnd) {
		t.Errorf("narrow relationship window shrank the fetch to [%v, %v]", source.start, source.end)
	}
}

func TestAnalyzeCacheKeySeparatesRequestOptions(t *testing.T) {
	first := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	events := make([]models.CalendarEvent, 0, 4)
	for i := 0; i < 4; i++ {
		ev := timedMeeting("hold-"+string(rune('a'+i)), first.AddDate(0, 0, 7*i))
		ev.RecurringEventID = "series-hold"
		events = append(events, ev)
	}
	req := models.AnalysisRequest{
		OwnerEmail:  "owner@acme.io",
		FilterStart: first.AddDate(0, 0, -7),
		FilterEnd:   first.AddDate(0, 0, 28),
		Now:         first.AddDate(0, 0, 22),
	}

	analyzer := engine.NewAnalyzer(nil, models.DefaultThresholds())
	svc := NewAnalyticsService(nil, analyzer, nil, cache.NewMemoryProvider(), time.Minute)

	hidden, err := svc.Analyze(context.Background(), req, events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hidden.Series) != 0 {
		t.Fatalf("attendee-less holds should be hidden by default, got %d series", len(hidden.Series))
	}

	// Flipping placeholder visibility must miss the cached stripped result.
	req.IncludePlaceholders = true
	visible, err := svc.Analyze(context.Background(), req, events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(visible.Series) != 1 {
		t.Fatalf("includePlaceholders=true served a stripped result: %d series", len(visible.Series))
	}

	// Every output-shaping field keys its own entry.
	base := resultCacheKey(req)
	cases := []struct {
		name   string
		mutate func(*models.AnalysisRequest)
	}{
		{"sortBy", func(r *models.AnalysisRequest) { r.SortBy = models.SortByTitle }},
		{"rangeMode", func(r *models.AnalysisRequest) { r.RangeMode = models.RangeModeForward }},
		{"baseline", func(r *models.AnalysisRequest) { r.BaselineWorkWeekHours = 35 }},
		{"placeholders", func(r *models.AnalysisRequest) { r.IncludePlaceholders = false }},
		{"relationshipWindow", func(r *models.AnalysisRequest) { r.RelationshipWindowEnd = r.FilterEnd.AddDate(0, 0, 90) }},
	}
	for _, tc := range cases {
		variant := req
		tc.mutate(&variant)
		if resultCacheKey(variant) == base {
			t.Errorf("%s change must produce a distinct cache key", tc.name)
		}
	}
}

func TestAnalyzeOwnerWithoutSource(t *testing.T) {
	analyzer := engine.NewAnalyzer(nil, models.DefaultThresholds())
	svc := NewAnalyticsService(nil, analyzer, nil, nil, 0)

	if _, err := svc.AnalyzeOwner(context.Background(), models.AnalysisRequest{OwnerEmail: "owner@acme.io"}); err == nil {
		t.Fatal("expected error when no event source is configured")
	}
}

type loaderStub struct {
	sources []ics.Source
	events  []models.CalendarEvent
	err     error
	loads   int
}

func (l *loaderStub) Sources() []ics.Source { return l.sources }

func (l *loaderStub) LoadSource(ctx context.Context, src ics.Source, rangeStart, rangeEnd time.Time) ([]models.CalendarEvent, error) {
	l.loads++
	return l.events, l.err
}

func TestRefresherWarmsCache(t *testing.T) {
	events, _ := weeklyFixture(4)
	analyzer := engine.NewAnalyzer(nil, models.DefaultThresholds())
	mem := cache.NewMemoryProvider()
	svc := NewAnalyticsService(nil, analyzer, nil, mem, time.Minute)

	loader := &loaderStub{
		sources: []ics.Source{{ID: "team", URL: "http://example.test/cal.ics", OwnerEmail: "owner@acme.io"}},
		events:  events,
	}
	refresher := NewRefresher(nil, svc, loader, mem, "@hourly")
	refresher.RunOnce()

	if loader.loads != 1 {
		t.Fatalf("expected 1 source load, got %d", loader.loads)
	}

	// A second immediate run is blocked by the lease.
	refresher.RunOnce()
	if loader.loads != 1 {
		t.Fatalf("expected lease to block the second run, got %d loads", loader.loads)
	}
}

func TestRefresherSkipsOwnerlessSources(t *testing.T) {
	analyzer := engine.NewAnalyzer(nil, models.DefaultThresholds())
	mem := cache.NewMemoryProvider()
	svc := NewAnalyticsService(nil, analyzer, nil, mem, time.Minute)

	loader := &loaderStub{sources: []ics.Source{{ID: "anon", URL: "http://example.test/cal.ics"}}}
	refresher := NewRefresher(nil, svc, loader, mem, "@hourly")
	refresher.RunOnce()

	if loader.loads != 0 {
		t.Fatalf("expected ownerless source to be skipped, got %d loads", loader.loads)
	}
}
