package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ravimadlani/calfix-sub002/internal/models"
	"github.com/ravimadlani/calfix-sub002/internal/utils"
)

// keySource records which identity strategy produced a series key.
type keySource int

const (
	keyFromRecurringEventID keySource = iota
	keyFromICalUID
	keyFromComposite
)

// seriesGroup is one resolved series identity and its member events.
type seriesGroup struct {
	Key    string
	Source keySource
	Events []models.CalendarEvent
}

// keyExtractor tries to derive a series identity from one event. The bool is
// false when this strategy has nothing to offer for the event.
type keyExtractor func(models.CalendarEvent) (string, keySource, bool)

// keyExtractors is the priority-ordered identity resolution chain. Providers
// stamp recurrence identifiers inconsistently, so the first strategy that
// yields a key wins; later strategies never override an earlier one.
var keyExtractors = []keyExtractor{
	func(ev models.CalendarEvent) (string, keySource, bool) {
		if ev.RecurringEventID == "" {
			return "", 0, false
		}
		return "rec:" + ev.RecurringEventID, keyFromRecurringEventID, true
	},
	func(ev models.CalendarEvent) (string, keySource, bool) {
		if ev.ICalUID == "" {
			return "", 0, false
		}
		return "uid:" + ev.ICalUID, keyFromICalUID, true
	},
	func(ev models.CalendarEvent) (string, keySource, bool) {
		return compositeKey(ev), keyFromComposite, true
	},
}

// compositeKey fingerprints an event by what a human would recognise as "the
// same meeting": title, organiser, weekday and rounded local time-of-day.
func compositeKey(ev models.CalendarEvent) string {
	title := strings.ToLower(strings.TrimSpace(ev.Summary))
	organizer := strings.ToLower(strings.TrimSpace(ev.Organizer.Email))
	start := utils.RoundToQuarterHour(ev.Start.When)
	return fmt.Sprintf("cmp:%s|%s|%s|%02d:%02d", title, organizer, start.Weekday(), start.Hour(), start.Minute())
}

// groupKey resolves the series identity for one event.
func groupKey(ev models.CalendarEvent) (string, keySource) {
	for _, extract := range keyExtractors {
		if key, source, ok := extract(ev); ok {
			return key, source
		}
	}
	// Unreachable: the composite extractor always produces a key.
	return "evt:" + ev.ID, keyFromComposite
}

// groupEvents partitions events into series. The result is deterministic for
// a fixed event set regardless of input order: groups are sorted by key and
// members by start time, then event ID.
func groupEvents(events []models.CalendarEvent) []seriesGroup {
	byKey := make(map[string]*seriesGroup, len(events))
	for _, ev := range events {
		key, source := groupKey(ev)
		group, ok := byKey[key]
		if !ok {
			group = &seriesGroup{Key: key, Source: source}
			byKey[key] = group
		}
		if source < group.Source {
			group.Source = source
		}
		group.Events = append(group.Events, ev)
	}

	groups := make([]seriesGroup, 0, len(byKey))
	for _, group := range byKey {
		sort.SliceStable(group.Events, func(i, j int) bool {
			a, b := group.Events[i], group.Events[j]
			if !a.Start.When.Equal(b.Start.When) {
				return a.Start.When.Before(b.Start.When)
			}
			return a.ID < b.ID
		})
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}

// isRecurringSeries reports whether a group represents a genuine recurring
// meeting rather than a one-off. Provider recurrence metadata qualifies a
// group even when only a single instance fell inside the fetch window.
func (g seriesGroup) isRecurringSeries() bool {
	if len(g.Events) >= 2 {
		return true
	}
	if g.Source == keyFromRecurringEventID {
		return true
	}
	for _, ev := range g.Events {
		if ev.HasRecurrence {
			return true
		}
	}
	return false
}
