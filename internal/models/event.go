package models

import (
	"strings"
	"time"
)

// CalendarEvent is a single event as supplied by a calendar provider. The
// engine consumes it read-only; providers stamp identifiers inconsistently,
// so RecurringEventID and ICalUID are both optional.
type CalendarEvent struct {
	ID               string
	RecurringEventID string
	ICalUID          string
	Summary          string
	Start            EventTime
	End              EventTime
	Status           EventStatus
	Organizer        Organizer
	Attendees        []Attendee
	Created          time.Time
	Updated          time.Time

	// HasRecurrence marks events expanded from a recurrence rule.
	// RecurrenceEnd is the bounded end of that rule, nil when open-ended.
	HasRecurrence bool
	RecurrenceEnd *time.Time
}

// EventTime normalises the provider's date-only vs. timed split into one
// instant. All-day values carry midnight in the event's zone with AllDay set.
type EventTime struct {
	When     time.Time
	AllDay   bool
	TimeZone string
}

// IsZero reports whether the value carries no instant at all.
func (t EventTime) IsZero() bool {
	return t.When.IsZero()
}

// Organizer identifies the event organiser.
type Organizer struct {
	Email string
}

// Attendee captures one invited participant.
type Attendee struct {
	Email          string
	DisplayName    string
	ResponseStatus ResponseStatus
	Organizer      bool
	Self           bool
}

// EventStatus enumerates provider event states.
type EventStatus string

const (
	StatusConfirmed EventStatus = "confirmed"
	StatusCancelled EventStatus = "cancelled"
	StatusTentative EventStatus = "tentative"
)

// ResponseStatus enumerates attendee RSVP states.
type ResponseStatus string

const (
	ResponseNeedsAction ResponseStatus = "needsAction"
	ResponseDeclined    ResponseStatus = "declined"
	ResponseTentative   ResponseStatus = "tentative"
	ResponseAccepted    ResponseStatus = "accepted"
)

// IsCancelled reports whether the event was cancelled by the provider.
func (e CalendarEvent) IsCancelled() bool {
	return e.Status == StatusCancelled
}

// Valid reports whether the event carries a usable start/end pair. Events
// failing this check are skipped rather than aborting an analysis.
func (e CalendarEvent) Valid() bool {
	if e.Start.IsZero() || e.End.IsZero() {
		return false
	}
	return !e.End.When.Before(e.Start.When)
}

// EmailDomain extracts the lower-cased domain portion of an address.
// Returns "" when the address has no domain.
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
