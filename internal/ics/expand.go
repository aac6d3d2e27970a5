package ics

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/ravimadlani/calfix-sub002/internal/models"
)

// Cap per series so a malformed RRULE cannot blow up a fetch.
const maxOccurrencesPerSeries = 2000

// expandAll turns parsed VEVENTs into concrete calendar events within
// [rangeStart, rangeEnd]. Non-recurring entries pass through when they
// intersect the window; RRULE entries are expanded per occurrence with
// EXDATE exceptions removed.
func expandAll(events []parsedEvent, rangeStart, rangeEnd time.Time, logger *slog.Logger) []models.CalendarEvent {
	if logger == nil {
		logger = slog.Default()
	}

	out := make([]models.CalendarEvent, 0, len(events))
	for _, ev := range events {
		if ev.RawRRule == "" {
			if overlaps(ev.Start, ev.End, rangeStart, rangeEnd) {
				out = append(out, singleInstance(ev))
			}
			continue
		}

		instances, err := expandRecurring(ev, rangeStart, rangeEnd)
		if err != nil {
			logger.Warn("skipping unparseable recurrence rule",
				slog.String("uid", ev.UID),
				slog.String("rrule", ev.RawRRule),
				slog.Any("error", err))
			continue
		}
		out = append(out, instances...)
	}
	return out
}

func singleInstance(ev parsedEvent) models.CalendarEvent {
	return models.CalendarEvent{
		ID:            ev.UID,
		ICalUID:       ev.UID,
		Summary:       ev.Summary,
		Start:         models.EventTime{When: ev.Start, AllDay: ev.AllDay, TimeZone: ev.TimeZone},
		End:           models.EventTime{When: ev.End, AllDay: ev.AllDay, TimeZone: ev.TimeZone},
		Status:        ev.Status,
		Organizer:     ev.Organizer,
		Attendees:     ev.Attendees,
		Created:       ev.Created,
		Updated:       ev.Updated,
		HasRecurrence: false,
	}
}

func expandRecurring(ev parsedEvent, rangeStart, rangeEnd time.Time) ([]models.CalendarEvent, error) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		return nil, err
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Between works in the rule's own location.
	occTimes := set.Between(rangeStart.In(ev.Start.Location()), rangeEnd.In(ev.Start.Location()), true)
	if len(occTimes) > maxOccurrencesPerSeries {
		occTimes = occTimes[:maxOccurrencesPerSeries]
	}

	seriesEnd := recurrenceEnd(r)
	duration := ev.End.Sub(ev.Start)

	out := make([]models.CalendarEvent, 0, len(occTimes))
	for _, occStart := range occTimes {
		var occEnd time.Time
		if ev.AllDay {
			occStart = time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			occEnd = occStart.Add(24 * time.Hour)
		} else {
			occEnd = occStart.Add(duration)
		}

		out = append(out, models.CalendarEvent{
			ID:               instanceID(ev.UID, occStart),
			RecurringEventID: ev.UID,
			ICalUID:          ev.UID,
			Summary:          ev.Summary,
			Start:            models.EventTime{When: occStart, AllDay: ev.AllDay, TimeZone: ev.TimeZone},
			End:              models.EventTime{When: occEnd, AllDay: ev.AllDay, TimeZone: ev.TimeZone},
			Status:           ev.Status,
			Organizer:        ev.Organizer,
			Attendees:        ev.Attendees,
			Created:          ev.Created,
			Updated:          ev.Updated,
			HasRecurrence:    true,
			RecurrenceEnd:    seriesEnd,
		})
	}
	return out, nil
}

// recurrenceEnd reports when a rule stops producing occurrences, or nil for
// an open-ended rule. COUNT-bounded rules are materialised to find the last
// occurrence; that is safe because COUNT makes All terminate.
func recurrenceEnd(r *rrule.RRule) *time.Time {
	if until := r.OrigOptions.Until; !until.IsZero() {
		u := until
		return &u
	}
	if r.OrigOptions.Count > 0 {
		all := r.All()
		if len(all) == 0 {
			return nil
		}
		last := all[len(all)-1]
		return &last
	}
	return nil
}

func instanceID(uid string, start time.Time) string {
	return fmt.Sprintf("%s_%s", uid, start.UTC().Format("20060102T150405Z"))
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
