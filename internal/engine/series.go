package engine

import (
	"log/slog"
	"strings"
	"time"

	"github.com/ravimadlani/calfix-sub002/internal/models"
	"github.com/ravimadlani/calfix-sub002/internal/utils"
)

const (
	daysPerWeek  = 7.0
	daysPerMonth = 30.44
)

// buildSeries computes the metrics for one resolved series group. The second
// return is false when the group has no instance inside the filter window and
// should not be reported.
func (a *Analyzer) buildSeries(group seriesGroup, req models.AnalysisRequest, now time.Time) (models.RecurringSeriesMetrics, bool) {
	windowed := make([]models.CalendarEvent, 0, len(group.Events))
	for _, ev := range group.Events {
		if inWindow(ev.Start.When, req.FilterStart, req.FilterEnd) {
			windowed = append(windowed, ev)
		}
	}
	if len(windowed) == 0 {
		return models.RecurringSeriesMetrics{}, false
	}

	active := activeInstances(group.Events)
	starts := make([]time.Time, 0, len(active))
	for _, ev := range active {
		starts = append(starts, ev.Start.When)
	}
	gaps := consecutiveGaps(starts)

	var averageGap *float64
	if len(gaps) > 0 {
		mean := meanFloat(gaps)
		averageGap = &mean
	}

	representative := windowed[0]
	for _, ev := range windowed {
		if !ev.IsCancelled() {
			representative = ev
			break
		}
	}
	duration := utils.DurationMinutes(representative.Start.When, representative.End.When)

	weekly, monthly := 0.0, 0.0
	if averageGap != nil && *averageGap > 0 {
		weekly = duration * daysPerWeek / *averageGap
		monthly = duration * daysPerMonth / *averageGap
	}

	roster := attendeeRoster(group.Events)
	internal, external := a.classifyAttendees(roster, req.OwnerEmail)
	attendeeCount := internal + external

	cancelled := 0
	for _, ev := range windowed {
		if ev.IsCancelled() {
			cancelled++
		}
	}

	metrics := models.RecurringSeriesMetrics{
		ID:                  group.Key,
		GroupKey:            group.Key,
		Title:               strings.TrimSpace(representative.Summary),
		OrganizerEmail:      representative.Organizer.Email,
		FrequencyLabel:      classifyFrequency(gaps),
		AverageGapDays:      averageGap,
		DurationMinutes:     duration,
		WeeklyMinutes:       weekly,
		MonthlyMinutes:      monthly,
		PeopleHoursPerMonth: monthly / 60 * float64(attendeeCount),
		InternalAttendees:   internal,
		ExternalAttendees:   external,
		AcceptanceRate:      acceptanceRate(roster, representative.Organizer.Email),
		CancellationRate:    float64(cancelled) / float64(len(windowed)),
		LastOccurrence:      lastOccurrence(active, now),
		NextOccurrence:      nextOccurrence(active, now),
		TotalInstances:      len(windowed),
		IsPlaceholder:       isPlaceholder(group.Events),
		SampleEvents:        sampleEvents(windowed, a.thresholds.MaxSampleEvents),
	}
	metrics.Flags = a.seriesFlags(group, metrics, now)
	return metrics, true
}

// seriesFlags evaluates the diagnostic flag predicates. A panic inside one
// predicate is contained so a single malformed series cannot blank the rest
// of the dashboard.
func (a *Analyzer) seriesFlags(group seriesGroup, m models.RecurringSeriesMetrics, now time.Time) (flags []models.SeriesFlag) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("flag evaluation panicked", slog.String("series", group.Key), slog.Any("panic", r))
		}
	}()

	flags = []models.SeriesFlag{}
	if m.PeopleHoursPerMonth > a.thresholds.HighPeopleHoursPerMonth {
		flags = append(flags, models.FlagHighPeopleHours)
	}
	if m.ExternalAttendees > 0 && group.isRecurringSeries() && openEnded(group.Events) {
		flags = append(flags, models.FlagExternalNoEnd)
	}
	if m.AverageGapDays != nil && m.LastOccurrence != nil && m.NextOccurrence == nil {
		silent := utils.DaysBetween(*m.LastOccurrence, now)
		if silent > a.thresholds.StaleCadenceMultiplier*(*m.AverageGapDays) {
			flags = append(flags, models.FlagStale)
		}
	}
	return flags
}

// activeInstances returns the non-cancelled events, preserving order.
func activeInstances(events []models.CalendarEvent) []models.CalendarEvent {
	active := make([]models.CalendarEvent, 0, len(events))
	for _, ev := range events {
		if !ev.IsCancelled() {
			active = append(active, ev)
		}
	}
	return active
}

// attendeeRoster merges attendee lists across instances. Later instances win
// so the roster reflects the most recent response churn.
func attendeeRoster(events []models.CalendarEvent) map[string]models.Attendee {
	roster := make(map[string]models.Attendee)
	for _, ev := range events {
		for _, att := range ev.Attendees {
			email := strings.ToLower(strings.TrimSpace(att.Email))
			if email == "" {
				continue
			}
			roster[email] = att
		}
	}
	return roster
}

// classifyAttendees splits a roster into internal/external counts. The owner
// and provider resource entries are excluded; without an owner email the
// internal/external split degrades to all-internal.
func (a *Analyzer) classifyAttendees(roster map[string]models.Attendee, ownerEmail string) (internal, external int) {
	owner := strings.ToLower(strings.TrimSpace(ownerEmail))
	ownerDomain := models.EmailDomain(owner)
	for email := range roster {
		if email == owner {
			continue
		}
		domain := models.EmailDomain(email)
		if a.thresholds.IsResourceDomain(domain) {
			continue
		}
		if ownerDomain != "" && domain != ownerDomain {
			external++
		} else {
			internal++
		}
	}
	return internal, external
}

func acceptanceRate(roster map[string]models.Attendee, organizerEmail string) float64 {
	organizer := strings.ToLower(strings.TrimSpace(organizerEmail))
	accepted, total := 0, 0
	for email, att := range roster {
		if att.Organizer || email == organizer {
			continue
		}
		total++
		if att.ResponseStatus == models.ResponseAccepted {
			accepted++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(accepted) / float64(total)
}

func lastOccurrence(events []models.CalendarEvent, now time.Time) *time.Time {
	var last *time.Time
	for _, ev := range events {
		start := ev.Start.When
		if start.After(now) {
			continue
		}
		if last == nil || start.After(*last) {
			t := start
			last = &t
		}
	}
	return last
}

func nextOccurrence(events []models.CalendarEvent, now time.Time) *time.Time {
	var next *time.Time
	for _, ev := range events {
		start := ev.Start.When
		if !start.After(now) {
			continue
		}
		if next == nil || start.Before(*next) {
			t := start
			next = &t
		}
	}
	return next
}

func isPlaceholder(events []models.CalendarEvent) bool {
	for _, ev := range events {
		if len(ev.Attendees) > 0 {
			return false
		}
	}
	return true
}

// openEnded reports whether no instance carries a bounded recurrence end.
func openEnded(events []models.CalendarEvent) bool {
	for _, ev := range events {
		if ev.RecurrenceEnd != nil {
			return false
		}
	}
	return true
}

func sampleEvents(events []models.CalendarEvent, limit int) []models.SeriesEvent {
	if limit <= 0 {
		limit = 5
	}
	samples := make([]models.SeriesEvent, 0, limit)
	for _, ev := range events {
		if len(samples) == limit {
			break
		}
		samples = append(samples, models.SeriesEvent{
			EventID:          ev.ID,
			RecurringEventID: ev.RecurringEventID,
			ICalUID:          ev.ICalUID,
			Start:            ev.Start.When,
			Status:           string(ev.Status),
		})
	}
	return samples
}

func inWindow(t, start, end time.Time) bool {
	if !start.IsZero() && t.Before(start) {
		return false
	}
	if !end.IsZero() && t.After(end) {
		return false
	}
	return true
}
