package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ravimadlani/calfix-sub002/internal/models"
)

func fixtureCalendar(lines ...string) []byte {
	all := append([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//calfix//test//EN",
	}, lines...)
	all = append(all, "END:VCALENDAR")
	return []byte(strings.Join(all, "\r\n") + "\r\n")
}

func weeklyVEvent() []string {
	return []string{
		"BEGIN:VEVENT",
		"UID:standup@example.com",
		"SUMMARY:Team Standup",
		"DTSTART:20250106T100000Z",
		"DTEND:20250106T103000Z",
		"RRULE:FREQ=WEEKLY;COUNT=4",
		"EXDATE:20250120T100000Z",
		"STATUS:CONFIRMED",
		"ORGANIZER:mailto:lead@acme.io",
		"ATTENDEE;PARTSTAT=ACCEPTED;CN=Lead:mailto:lead@acme.io",
		"ATTENDEE;PARTSTAT=DECLINED;CN=Dana:mailto:dana@acme.io",
		"END:VEVENT",
	}
}

func TestParseRecurringEvent(t *testing.T) {
	events, skipped, err := Parse(fixtureCalendar(weeklyVEvent()...))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if skipped != 0 {
		t.Fatalf("expected no skipped events, got %d", skipped)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 parsed event, got %d", len(events))
	}

	ev := events[0]
	if ev.UID != "standup@example.com" {
		t.Errorf("unexpected UID %q", ev.UID)
	}
	if ev.Summary != "Team Standup" {
		t.Errorf("unexpected summary %q", ev.Summary)
	}
	if ev.RawRRule == "" {
		t.Error("expected RRULE to be captured")
	}
	if len(ev.ExDates) != 1 {
		t.Fatalf("expected 1 EXDATE, got %d", len(ev.ExDates))
	}
	if ev.Organizer.Email != "lead@acme.io" {
		t.Errorf("unexpected organizer %q", ev.Organizer.Email)
	}
	if len(ev.Attendees) != 2 {
		t.Fatalf("expected 2 attendees, got %d", len(ev.Attendees))
	}
	if ev.Attendees[0].ResponseStatus != models.ResponseAccepted || !ev.Attendees[0].Organizer {
		t.Errorf("unexpected first attendee: %+v", ev.Attendees[0])
	}
	if ev.Attendees[1].ResponseStatus != models.ResponseDeclined || ev.Attendees[1].DisplayName != "Dana" {
		t.Errorf("unexpected second attendee: %+v", ev.Attendees[1])
	}
	if ev.Status != models.StatusConfirmed {
		t.Errorf("unexpected status %q", ev.Status)
	}
}

func TestParseSkipsEventWithoutUID(t *testing.T) {
	body := fixtureCalendar(
		"BEGIN:VEVENT",
		"SUMMARY:No identity",
		"DTSTART:20250106T100000Z",
		"DTEND:20250106T110000Z",
		"END:VEVENT",
	)
	events, skipped, err := Parse(body)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if skipped != 1 || len(events) != 0 {
		t.Fatalf("expected the UID-less event to be skipped, got events=%d skipped=%d", len(events), skipped)
	}
}

func TestExpandRecurringHonoursCountAndExdate(t *testing.T) {
	events, _, err := Parse(fixtureCalendar(weeklyVEvent()...))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	rangeStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)
	out := expandAll(events, rangeStart, rangeEnd, nil)

	// COUNT=4 is Jan 6, 13, 20, 27; the EXDATE removes Jan 20.
	if len(out) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(out))
	}
	for _, inst := range out {
		if inst.RecurringEventID != "standup@example.com" {
			t.Errorf("instance not stamped with series ID: %+v", inst)
		}
		if !inst.HasRecurrence {
			t.Error("instance should carry the recurrence marker")
		}
		if inst.RecurrenceEnd == nil {
			t.Error("COUNT-bounded series should report a recurrence end")
		}
		if inst.Start.When.Equal(time.Date(2025, 1, 20, 10, 0, 0, 0, time.UTC)) {
			t.Error("EXDATE occurrence should have been removed")
		}
		if got := inst.End.When.Sub(inst.Start.When); got != 30*time.Minute {
			t.Errorf("expected 30m duration, got %v", got)
		}
	}
	if out[0].ID == out[1].ID {
		t.Errorf("instance IDs must be unique, got %q twice", out[0].ID)
	}

	wantEnd := time.Date(2025, 1, 27, 10, 0, 0, 0, time.UTC)
	if !out[0].RecurrenceEnd.Equal(wantEnd) {
		t.Errorf("expected recurrence end %v, got %v", wantEnd, out[0].RecurrenceEnd)
	}
}

func TestExpandOpenEndedSeriesHasNoRecurrenceEnd(t *testing.T) {
	body := fixtureCalendar(
		"BEGIN:VEVENT",
		"UID:sync@example.com",
		"SUMMARY:Vendor Sync",
		"DTSTART:20250107T150000Z",
		"DTEND:20250107T160000Z",
		"RRULE:FREQ=WEEKLY",
		"END:VEVENT",
	)
	events, _, err := Parse(body)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	rangeStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	out := expandAll(events, rangeStart, rangeEnd, nil)

	if len(out) != 4 {
		t.Fatalf("expected 4 January occurrences, got %d", len(out))
	}
	for _, inst := range out {
		if inst.RecurrenceEnd != nil {
			t.Errorf("open-ended series must not report a recurrence end, got %v", inst.RecurrenceEnd)
		}
	}
}

func TestExpandSingleEventWindowing(t *testing.T) {
	body := fixtureCalendar(
		"BEGIN:VEVENT",
		"UID:offsite@example.com",
		"SUMMARY:Offsite",
		"DTSTART:20250310T090000Z",
		"DTEND:20250310T170000Z",
		"END:VEVENT",
	)
	events, _, err := Parse(body)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	inWindow := expandAll(events,
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), nil)
	if len(inWindow) != 1 {
		t.Fatalf("expected the event inside the window, got %d", len(inWindow))
	}
	if inWindow[0].HasRecurrence || inWindow[0].RecurringEventID != "" {
		t.Errorf("single event must not carry recurrence markers: %+v", inWindow[0])
	}

	outOfWindow := expandAll(events,
		time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC), nil)
	if len(outOfWindow) != 0 {
		t.Fatalf("expected no events outside the window, got %d", len(outOfWindow))
	}
}

func TestParseAllDayEvent(t *testing.T) {
	body := fixtureCalendar(
		"BEGIN:VEVENT",
		"UID:holiday@example.com",
		"SUMMARY:Company Holiday",
		"DTSTART;VALUE=DATE:20250110",
		"DTEND;VALUE=DATE:20250111",
		"END:VEVENT",
	)
	events, skipped, err := Parse(body)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if skipped != 0 || len(events) != 1 {
		t.Fatalf("expected 1 parsed event, got events=%d skipped=%d", len(events), skipped)
	}
	if !events[0].AllDay {
		t.Error("expected all-day marker on date-only DTSTART")
	}
}

func TestLoaderLoadsFromHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write(fixtureCalendar(weeklyVEvent()...))
	}))
	defer srv.Close()

	loader := NewLoader([]Source{{ID: "team", URL: srv.URL, OwnerEmail: "lead@acme.io"}}, 5*time.Second, nil)
	events, err := loader.Load(context.Background(),
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 expanded events, got %d", len(events))
	}
}

func TestLoaderFailsWhenAllSourcesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	loader := NewLoader([]Source{{ID: "broken", URL: srv.URL}}, 5*time.Second, nil)
	if _, err := loader.Load(context.Background(), time.Time{}, time.Now()); err == nil {
		t.Fatal("expected an error when every source fails")
	}
}
