package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/ravimadlani/calfix-sub002/internal/models"
)

// parsedEvent is the normalised representation of one VEVENT before
// recurrence expansion.
type parsedEvent struct {
	UID       string
	Summary   string
	Start     time.Time
	End       time.Time
	AllDay    bool
	TimeZone  string
	Status    models.EventStatus
	Organizer models.Organizer
	Attendees []models.Attendee
	Created   time.Time
	Updated   time.Time

	RawRRule string
	ExDates  []time.Time
}

// Parse reads a single ICS payload into parsed events. Individual broken
// VEVENTs are skipped so one bad entry does not lose the whole feed; the
// count of skipped entries is returned for logging.
func Parse(body []byte) ([]parsedEvent, int, error) {
	if len(body) == 0 {
		return nil, 0, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}

	events := make([]parsedEvent, 0, len(cal.Events()))
	skipped := 0
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(ve)
		if perr != nil {
			skipped++
			continue
		}
		events = append(events, ev)
	}
	return events, skipped, nil
}

func parseVEvent(ve *ical.VEvent) (parsedEvent, error) {
	var out parsedEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		// Date-only DTSTART values need the all-day accessor.
		start, err = ve.GetAllDayStartAt()
		if err != nil {
			return out, err
		}
	}
	end, err := ve.GetEndAt()
	if err != nil {
		if end, err = ve.GetAllDayEndAt(); err != nil {
			// DTEND is optional; fall back to the start instant.
			end = start
		}
	}
	out.Start = start
	out.End = end

	if dtStart := ve.GetProperty(ical.ComponentPropertyDtStart); dtStart != nil {
		out.AllDay = isDateOnly(dtStart)
		if tzs, ok := dtStart.ICalParameters["TZID"]; ok && len(tzs) > 0 {
			out.TimeZone = tzs[0]
		}
	}

	out.Status = parseStatus(ve)
	out.Organizer = parseOrganizer(ve)
	out.Attendees = parseAttendees(ve, out.Organizer.Email)

	if p := ve.GetProperty("CREATED"); p != nil {
		if t, err := parseICSTime(p.Value); err == nil {
			out.Created = t
		}
	}
	if p := ve.GetProperty("LAST-MODIFIED"); p != nil {
		if t, err := parseICSTime(p.Value); err == nil {
			out.Updated = t
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	return out, nil
}

func isDateOnly(prop *ical.IANAProperty) bool {
	if vs, ok := prop.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(prop.Value, "T")
}

func parseStatus(ve *ical.VEvent) models.EventStatus {
	p := ve.GetProperty(ical.ComponentPropertyStatus)
	if p == nil {
		return models.StatusConfirmed
	}
	switch strings.ToUpper(p.Value) {
	case "CANCELLED":
		return models.StatusCancelled
	case "TENTATIVE":
		return models.StatusTentative
	default:
		return models.StatusConfirmed
	}
}

func parseOrganizer(ve *ical.VEvent) models.Organizer {
	p := ve.GetProperty(ical.ComponentPropertyOrganizer)
	if p == nil {
		return models.Organizer{}
	}
	return models.Organizer{Email: stripMailto(p.Value)}
}

func parseAttendees(ve *ical.VEvent, organizerEmail string) []models.Attendee {
	props := ve.GetProperties(ical.ComponentPropertyAttendee)
	if len(props) == 0 {
		return nil
	}
	attendees := make([]models.Attendee, 0, len(props))
	for _, p := range props {
		email := stripMailto(p.Value)
		if email == "" {
			continue
		}
		att := models.Attendee{
			Email:          email,
			ResponseStatus: partstatToResponse(firstParam(p, "PARTSTAT")),
			Organizer:      strings.EqualFold(email, organizerEmail),
		}
		att.DisplayName = firstParam(p, "CN")
		attendees = append(attendees, att)
	}
	return attendees
}

func firstParam(p *ical.IANAProperty, name string) string {
	if vs, ok := p.ICalParameters[name]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func partstatToResponse(partstat string) models.ResponseStatus {
	switch strings.ToUpper(partstat) {
	case "ACCEPTED":
		return models.ResponseAccepted
	case "DECLINED":
		return models.ResponseDeclined
	case "TENTATIVE":
		return models.ResponseTentative
	default:
		return models.ResponseNeedsAction
	}
}

func stripMailto(value string) string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(strings.ToLower(value), "mailto:") {
		value = value[len("mailto:"):]
	}
	return strings.TrimSpace(value)
}

// parseICSTime parses basic ICS DATE / DATE-TIME / UTC forms.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, time.Local)
	}
	return time.ParseInLocation("20060102", v, time.UTC)
}
