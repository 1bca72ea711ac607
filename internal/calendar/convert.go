package calendar

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	calapi "google.golang.org/api/calendar/v3"

	"github.com/joshsymonds/gworkspace/internal/apierr"
	"github.com/joshsymonds/gworkspace/internal/logsafe"
	"github.com/joshsymonds/gworkspace/internal/validate"
)

const dateLayout = "2006-01-02"

// parseEventTime reads either a dateTime or an all-day date. Dates are
// midnight in the local zone.
func parseEventTime(dt *calapi.EventDateTime) (time.Time, bool, bool) {
	if dt == nil {
		return time.Time{}, false, false
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		return t, false, err == nil
	}
	if dt.Date != "" {
		t, err := time.ParseInLocation(dateLayout, dt.Date, time.Local)
		return t, true, err == nil
	}
	return time.Time{}, false, false
}

// fromAPIEvent maps a provider event. Bad attendees are dropped and unknown
// statuses fall back to confirmed.
func fromAPIEvent(ev *calapi.Event, logger *slog.Logger) Event {
	out := Event{
		ID:               ev.Id,
		Summary:          strings.TrimSpace(ev.Summary),
		Description:      strings.TrimSpace(ev.Description),
		Location:         strings.TrimSpace(ev.Location),
		HTMLLink:         ev.HtmlLink,
		Recurrence:       ev.Recurrence,
		RecurringEventID: ev.RecurringEventId,
		Status:           ev.Status,
	}
	if ev.Creator != nil {
		out.Creator = ev.Creator.Email
	}
	if ev.Organizer != nil {
		out.Organizer = ev.Organizer.Email
	}

	start, allDay, ok := parseEventTime(ev.Start)
	if ok {
		out.Start, out.AllDay = start, allDay
	} else if ev.Start != nil {
		logger.Warn("unparsable event start", "event_id", logsafe.ID(ev.Id))
	}
	if end, _, ok := parseEventTime(ev.End); ok {
		out.End = end
	} else if ev.End != nil {
		logger.Warn("unparsable event end", "event_id", logsafe.ID(ev.Id))
	}

	if !slices.Contains(eventStatuses, out.Status) {
		out.Status = StatusConfirmed
	}

	for _, a := range ev.Attendees {
		if a == nil || !validate.IsEmail(a.Email) {
			logger.Warn("skipping invalid attendee", "event_id", logsafe.ID(ev.Id))
			continue
		}
		status := a.ResponseStatus
		if !slices.Contains(responseStatuses, status) {
			status = ""
		}
		out.Attendees = append(out.Attendees, Attendee{Email: a.Email, DisplayName: a.DisplayName, ResponseStatus: status})
	}
	return out
}

func eventTimeToAPI(t time.Time, allDay bool) *calapi.EventDateTime {
	if allDay {
		return &calapi.EventDateTime{Date: t.Format(dateLayout)}
	}
	return &calapi.EventDateTime{DateTime: t.Format(time.RFC3339)}
}

// eventToAPI builds a request body. Start and end are required; read-only
// fields such as the id and html link are never sent.
func eventToAPI(e Event) (*calapi.Event, error) {
	if e.Start.IsZero() || e.End.IsZero() {
		return nil, apierr.Invalidf("event must have both start and end times")
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	out := &calapi.Event{
		Summary:     e.Summary,
		Description: e.Description,
		Location:    e.Location,
		Start:       eventTimeToAPI(e.Start, e.AllDay),
		End:         eventTimeToAPI(e.End, e.AllDay),
		Recurrence:  e.Recurrence,
		Status:      e.Status,
	}
	for _, a := range e.Attendees {
		out.Attendees = append(out.Attendees, &calapi.EventAttendee{
			Email:          a.Email,
			DisplayName:    a.DisplayName,
			ResponseStatus: a.ResponseStatus,
		})
	}
	return out, nil
}

func fromAPICalendar(c *calapi.CalendarListEntry) Calendar {
	return Calendar{
		ID:          c.Id,
		Summary:     c.Summary,
		Description: c.Description,
		TimeZone:    c.TimeZone,
		AccessRole:  c.AccessRole,
		Primary:     c.Primary,
	}
}
