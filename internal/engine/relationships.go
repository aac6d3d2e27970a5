package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/ravimadlani/calfix-sub002/internal/models"
	"github.com/ravimadlani/calfix-sub002/internal/utils"
)

// personMeetings accumulates the 1:1 occurrences observed for one counterpart.
type personMeetings struct {
	email    string
	name     string
	meetings []relMeeting
}

type relMeeting struct {
	ref       models.MeetingRef
	groupKey  string
	recurring bool
}

// analyzeRelationships builds one snapshot per counterpart seen in a true
// 1:1 inside the relationship window. It runs over the same raw events as
// the series grouper but is an independent analysis, not a pipeline stage.
func (a *Analyzer) analyzeRelationships(req models.AnalysisRequest, events []models.CalendarEvent, recurringKeys map[string]bool, now time.Time) []models.RelationshipSnapshot {
	people := make(map[string]*personMeetings)

	for _, ev := range events {
		if ev.IsCancelled() {
			continue
		}
		if !inWindow(ev.Start.When, req.RelationshipWindowStart, req.RelationshipWindowEnd) {
			continue
		}
		counterpart, ok := a.counterpartOf(ev, req.OwnerEmail)
		if !ok {
			continue
		}

		email := strings.ToLower(strings.TrimSpace(counterpart.Email))
		person, exists := people[email]
		if !exists {
			person = &personMeetings{email: email}
			people[email] = person
		}
		if person.name == "" && counterpart.DisplayName != "" {
			person.name = counterpart.DisplayName
		}

		key, _ := groupKey(ev)
		person.meetings = append(person.meetings, relMeeting{
			ref:       models.MeetingRef{EventID: ev.ID, Title: strings.TrimSpace(ev.Summary), Start: ev.Start.When},
			groupKey:  key,
			recurring: recurringKeys[key],
		})
	}

	snapshots := make([]models.RelationshipSnapshot, 0, len(people))
	for _, person := range people {
		snapshots = append(snapshots, a.buildSnapshot(person, now))
	}

	sort.SliceStable(snapshots, func(i, j int) bool {
		left, right := snapshots[i], snapshots[j]
		if left.Status != right.Status {
			return statusRank(left.Status) < statusRank(right.Status)
		}
		return left.PersonEmail < right.PersonEmail
	})
	return snapshots
}

// counterpartOf resolves the other party of a true 1:1, or reports false for
// events with 0, self-only, or 3+ human participants. Owner identity comes
// from the configured email, falling back to the provider's self marker.
func (a *Analyzer) counterpartOf(ev models.CalendarEvent, ownerEmail string) (models.Attendee, bool) {
	owner := strings.ToLower(strings.TrimSpace(ownerEmail))

	participants := make([]models.Attendee, 0, len(ev.Attendees))
	for _, att := range ev.Attendees {
		email := strings.ToLower(strings.TrimSpace(att.Email))
		if email == "" || a.thresholds.IsResourceDomain(models.EmailDomain(email)) {
			continue
		}
		participants = append(participants, att)
	}

	isOwner := func(att models.Attendee) bool {
		if owner != "" {
			return strings.EqualFold(strings.TrimSpace(att.Email), owner)
		}
		return att.Self
	}

	switch len(participants) {
	case 2:
		if isOwner(participants[0]) && !isOwner(participants[1]) {
			return participants[1], true
		}
		if isOwner(participants[1]) && !isOwner(participants[0]) {
			return participants[0], true
		}
	case 1:
		// One invitee plus the owner organising counts as a 1:1.
		if isOwner(participants[0]) {
			return models.Attendee{}, false
		}
		if owner != "" && strings.EqualFold(ev.Organizer.Email, owner) {
			return participants[0], true
		}
	}
	return models.Attendee{}, false
}

func (a *Analyzer) buildSnapshot(person *personMeetings, now time.Time) models.RelationshipSnapshot {
	past := make([]relMeeting, 0, len(person.meetings))
	future := make([]relMeeting, 0, len(person.meetings))
	recurring := false
	for _, m := range person.meetings {
		if m.recurring {
			recurring = true
		}
		if m.ref.Start.After(now) {
			future = append(future, m)
		} else {
			past = append(past, m)
		}
	}

	sort.SliceStable(past, func(i, j int) bool { return past[i].ref.Start.After(past[j].ref.Start) })
	sort.SliceStable(future, func(i, j int) bool { return future[i].ref.Start.Before(future[j].ref.Start) })

	snapshot := models.RelationshipSnapshot{
		PersonEmail:  person.email,
		PersonName:   person.name,
		LastMeetings: meetingRefs(past),
		NextMeetings: meetingRefs(future),
		IsRecurring:  recurring,
	}

	// Cadence from past meetings, oldest to newest.
	starts := make([]time.Time, len(past))
	for i, m := range past {
		starts[len(past)-1-i] = m.ref.Start
	}
	if gaps := consecutiveGaps(starts); len(gaps) > 0 {
		mean := meanFloat(gaps)
		snapshot.AverageGapDays = &mean
	}

	if len(past) > 0 {
		since := utils.DaysBetween(past[0].ref.Start, now)
		snapshot.DaysSinceLast = &since
	}
	if len(future) > 0 {
		until := utils.DaysBetween(now, future[0].ref.Start)
		snapshot.DaysUntilNext = &until
	}

	snapshot.Status = a.classifyRelationship(snapshot.AverageGapDays, snapshot.DaysSinceLast, len(future) > 0)
	return snapshot
}

// classifyRelationship applies the health rules in order; the first match
// wins. It is total over every null combination of cadence and history.
func (a *Analyzer) classifyRelationship(averageGap, daysSinceLast *float64, hasFuture bool) models.RelationshipStatus {
	if daysSinceLast == nil {
		// Only future meetings booked: nothing has lapsed yet.
		return models.RelationshipHealthy
	}

	since := *daysSinceLast
	if !hasFuture {
		if averageGap != nil && since > a.thresholds.CriticalCadenceMultiplier*(*averageGap) {
			return models.RelationshipCritical
		}
		if averageGap == nil && since > a.thresholds.CriticalFixedGapDays {
			return models.RelationshipCritical
		}
	}
	if averageGap != nil && since > *averageGap {
		return models.RelationshipOverdue
	}
	if averageGap == nil && since > a.thresholds.OverdueFixedGapDays {
		return models.RelationshipOverdue
	}
	return models.RelationshipHealthy
}

func meetingRefs(meetings []relMeeting) []models.MeetingRef {
	refs := make([]models.MeetingRef, len(meetings))
	for i, m := range meetings {
		refs[i] = m.ref
	}
	return refs
}

func statusRank(status models.RelationshipStatus) int {
	switch status {
	case models.RelationshipCritical:
		return 0
	case models.RelationshipOverdue:
		return 1
	default:
		return 2
	}
}
