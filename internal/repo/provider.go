package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/ravimadlani/calfix-sub002/internal/models"
	"github.com/ravimadlani/calfix-sub002/internal/utils"
)

// EventSource supplies raw calendar events for an analysis window.
type EventSource interface {
	FetchEvents(ctx context.Context, calendarID string, start, end time.Time) ([]models.CalendarEvent, error)
}

// ProviderClient talks to a calendar provider API that returns events in
// the Google Calendar wire shape (start.date / start.dateTime, attendee
// responseStatus, recurringEventId, iCalUID).
type ProviderClient struct {
	baseURL    string
	eventsPath string
	apiKey     string
	httpClient *http.Client
}

// NewProviderClient constructs a client targeting the configured provider.
func NewProviderClient(baseURL, eventsPath, apiKey string, timeout time.Duration) *ProviderClient {
	return &ProviderClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		eventsPath: eventsPath,
		apiKey:     apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// EventTimeDTO is the provider wire form of an event boundary: date for
// all-day entries, dateTime otherwise.
type EventTimeDTO struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type AttendeeDTO struct {
	Email          string `json:"email"`
	DisplayName    string `json:"displayName,omitempty"`
	ResponseStatus string `json:"responseStatus,omitempty"`
	Organizer      bool   `json:"organizer,omitempty"`
	Self           bool   `json:"self,omitempty"`
}

// EventDTO mirrors the provider's event resource.
type EventDTO struct {
	ID               string        `json:"id"`
	Status           string        `json:"status"`
	Summary          string        `json:"summary"`
	Created          string        `json:"created,omitempty"`
	Updated          string        `json:"updated,omitempty"`
	Start            EventTimeDTO  `json:"start"`
	End              EventTimeDTO  `json:"end"`
	Organizer        *AttendeeDTO  `json:"organizer,omitempty"`
	Attendees        []AttendeeDTO `json:"attendees,omitempty"`
	Recurrence       []string      `json:"recurrence,omitempty"`
	RecurringEventID string        `json:"recurringEventId,omitempty"`
	ICalUID          string        `json:"iCalUID,omitempty"`
}

type eventListDTO struct {
	Items         []EventDTO `json:"items"`
	NextPageToken string     `json:"nextPageToken,omitempty"`
}

// FetchEvents retrieves every event in [start, end] for the calendar,
// following pagination until the provider stops returning a page token.
func (c *ProviderClient) FetchEvents(ctx context.Context, calendarID string, start, end time.Time) ([]models.CalendarEvent, error) {
	if c == nil {
		return nil, fmt.Errorf("provider client not initialised")
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("provider base URL not configured")
	}

	var (
		out       []models.CalendarEvent
		pageToken string
	)
	for {
		page, err := c.fetchPage(ctx, calendarID, start, end, pageToken)
		if err != nil {
			return nil, &utils.AppError{Op: "repo.FetchEvents", Msg: calendarID, Err: err}
		}
		for _, item := range page.Items {
			out = append(out, MapEvent(item))
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *ProviderClient) fetchPage(ctx context.Context, calendarID string, start, end time.Time, pageToken string) (*eventListDTO, error) {
	endpoint := c.eventsURL()
	if endpoint == "" {
		return nil, fmt.Errorf("empty endpoint")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("calendarId", calendarID)
	q.Set("timeMin", start.Format(time.RFC3339))
	q.Set("timeMax", end.Format(time.RFC3339))
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}
	req.URL.RawQuery = q.Encode()
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned %s", resp.Status)
	}

	var page eventListDTO
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &page, nil
}

func (c *ProviderClient) eventsURL() string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(c.eventsPath, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

// MapEvent converts one wire event into the domain representation.
func MapEvent(dto EventDTO) models.CalendarEvent {
	ev := models.CalendarEvent{
		ID:               dto.ID,
		RecurringEventID: dto.RecurringEventID,
		ICalUID:          dto.ICalUID,
		Summary:          dto.Summary,
		Start:            mapEventTime(dto.Start),
		End:              mapEventTime(dto.End),
		Status:           models.EventStatus(dto.Status),
		HasRecurrence:    len(dto.Recurrence) > 0,
		RecurrenceEnd:    recurrenceUntil(dto.Recurrence),
	}
	if t, err := utils.ParseRFC3339(dto.Created); err == nil {
		ev.Created = t
	}
	if t, err := utils.ParseRFC3339(dto.Updated); err == nil {
		ev.Updated = t
	}
	if dto.Organizer != nil {
		ev.Organizer = models.Organizer{Email: dto.Organizer.Email}
	}
	for _, att := range dto.Attendees {
		ev.Attendees = append(ev.Attendees, models.Attendee{
			Email:          att.Email,
			DisplayName:    att.DisplayName,
			ResponseStatus: models.ResponseStatus(att.ResponseStatus),
			Organizer:      att.Organizer,
			Self:           att.Self,
		})
	}
	return ev
}

func mapEventTime(dto EventTimeDTO) models.EventTime {
	if dto.Date != "" {
		when, err := utils.ParseDateOnly(dto.Date)
		if err != nil {
			return models.EventTime{}
		}
		return models.EventTime{When: when, AllDay: true, TimeZone: dto.TimeZone}
	}
	if dto.DateTime == "" {
		return models.EventTime{}
	}
	when, err := utils.ParseRFC3339(dto.DateTime)
	if err != nil {
		return models.EventTime{}
	}
	return models.EventTime{When: when, TimeZone: dto.TimeZone}
}

// recurrenceUntil picks the UNTIL bound out of RRULE lines, if any. COUNT
// bounds are left to the provider's own expansion and not resolved here.
func recurrenceUntil(rules []string) *time.Time {
	for _, rule := range rules {
		rule = strings.TrimPrefix(rule, "RRULE:")
		for _, part := range strings.Split(rule, ";") {
			if !strings.HasPrefix(strings.ToUpper(part), "UNTIL=") {
				continue
			}
			raw := part[len("UNTIL="):]
			for _, layout := range []string{"20060102T150405Z", "20060102"} {
				if t, err := time.Parse(layout, raw); err == nil {
					return &t
				}
			}
		}
	}
	return nil
}
