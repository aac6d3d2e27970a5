// Command mock-provider serves a small fixture calendar in the provider
// wire shape so calfix-engine can be exercised locally without real
// provider credentials.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

type eventTime struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
}

type attendee struct {
	Email          string `json:"email"`
	ResponseStatus string `json:"responseStatus,omitempty"`
	Organizer      bool   `json:"organizer,omitempty"`
	Self           bool   `json:"self,omitempty"`
}

type event struct {
	ID               string     `json:"id"`
	Status           string     `json:"status"`
	Summary          string     `json:"summary"`
	Start            eventTime  `json:"start"`
	End              eventTime  `json:"end"`
	Organizer        *attendee  `json:"organizer,omitempty"`
	Attendees        []attendee `json:"attendees,omitempty"`
	Recurrence       []string   `json:"recurrence,omitempty"`
	RecurringEventID string     `json:"recurringEventId,omitempty"`
	ICalUID          string     `json:"iCalUID,omitempty"`
}

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, map[string]any{
			"items": fixtureEvents(r.URL.Query().Get("calendarId")),
		})
	})

	addr := ":8081"
	log.Printf("mock provider listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("mock provider exited: %v", err)
	}
}

// fixtureEvents returns a weekly 1:1 series plus a stray all-day event so a
// local analysis yields one recurring series and one relationship.
func fixtureEvents(owner string) []event {
	if owner == "" {
		owner = "owner@acme.io"
	}
	first := mondayBefore(time.Now().UTC()).Add(-6 * 7 * 24 * time.Hour)

	events := make([]event, 0, 9)
	for i := 0; i < 8; i++ {
		start := first.Add(time.Duration(i) * 7 * 24 * time.Hour).Add(10 * time.Hour)
		events = append(events, event{
			ID:               "oneonone_" + start.Format("20060102"),
			Status:           "confirmed",
			Summary:          "Weekly 1:1",
			Start:            eventTime{DateTime: start.Format(time.RFC3339)},
			End:              eventTime{DateTime: start.Add(30 * time.Minute).Format(time.RFC3339)},
			Organizer:        &attendee{Email: owner},
			RecurringEventID: "oneonone",
			ICalUID:          "oneonone@mock",
			Attendees: []attendee{
				{Email: owner, ResponseStatus: "accepted", Organizer: true, Self: true},
				{Email: "sam@acme.io", ResponseStatus: "accepted"},
			},
		})
	}
	events = append(events, event{
		ID:      "offsite",
		Status:  "confirmed",
		Summary: "Team Offsite",
		Start:   eventTime{Date: first.Format("2006-01-02")},
		End:     eventTime{Date: first.Add(24 * time.Hour).Format("2006-01-02")},
	})
	return events
}

func mondayBefore(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	for day.Weekday() != time.Monday {
		day = day.Add(-24 * time.Hour)
	}
	return day
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}
