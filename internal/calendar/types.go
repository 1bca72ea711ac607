package calendar

import (
	"slices"
	"strings"
	"time"

	"github.com/joshsymonds/gworkspace/internal/apierr"
	"github.com/joshsymonds/gworkspace/internal/validate"
)

const (
	MaxResultsLimit      = 2500
	DefaultMaxResults    = 100
	MaxQueryLength       = 500
	MaxSummaryLength     = 1024
	MaxDescriptionLength = 8192
	MaxLocationLength    = 1024

	DefaultCalendarID = "primary"
	// DefaultSummary is used when an event is created without one.
	DefaultSummary = "New Event"
)

// Event statuses.
const (
	StatusConfirmed = "confirmed"
	StatusTentative = "tentative"
	StatusCancelled = "cancelled"
)

// Attendee response statuses.
const (
	ResponseNeedsAction = "needsAction"
	ResponseDeclined    = "declined"
	ResponseTentative   = "tentative"
	ResponseAccepted    = "accepted"
)

var (
	eventStatuses    = []string{StatusConfirmed, StatusTentative, StatusCancelled}
	responseStatuses = []string{ResponseNeedsAction, ResponseDeclined, ResponseTentative, ResponseAccepted}
)

type Attendee struct {
	Email          string `json:"email"`
	DisplayName    string `json:"display_name,omitempty"`
	ResponseStatus string `json:"response_status,omitempty"`
}

func NewAttendee(email, displayName, responseStatus string) (Attendee, error) {
	if err := validate.Email("attendee", email); err != nil {
		return Attendee{}, err
	}
	if responseStatus != "" {
		if err := validate.OneOf("response status", responseStatus, responseStatuses...); err != nil {
			return Attendee{}, err
		}
	}
	return Attendee{Email: email, DisplayName: displayName, ResponseStatus: responseStatus}, nil
}

func (a Attendee) String() string {
	if a.DisplayName == "" {
		return a.Email
	}
	return a.DisplayName + " <" + a.Email + ">"
}

// Event is a calendar event. AllDay events carry midnight-to-midnight
// bounds in the local zone and are sent to the API as dates.
type Event struct {
	ID               string     `json:"event_id,omitempty"`
	Summary          string     `json:"summary,omitempty"`
	Description      string     `json:"description,omitempty"`
	Location         string     `json:"location,omitempty"`
	Start            time.Time  `json:"start,omitzero"`
	End              time.Time  `json:"end,omitzero"`
	AllDay           bool       `json:"all_day,omitempty"`
	HTMLLink         string     `json:"html_link,omitempty"`
	Attendees        []Attendee `json:"attendees,omitempty"`
	Recurrence       []string   `json:"recurrence,omitempty"`
	RecurringEventID string     `json:"recurring_event_id,omitempty"`
	Creator          string     `json:"creator,omitempty"`
	Organizer        string     `json:"organizer,omitempty"`
	Status           string     `json:"status,omitempty"`
}

// NewEvent validates e. An empty status becomes confirmed.
func NewEvent(e Event) (*Event, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	if e.Status == "" {
		e.Status = StatusConfirmed
	}
	return &e, nil
}

func (e *Event) validate() error {
	if err := validateRange(e.Start, e.End); err != nil {
		return err
	}
	if err := validate.MaxLen("summary", e.Summary, MaxSummaryLength); err != nil {
		return err
	}
	if err := validate.MaxLen("description", e.Description, MaxDescriptionLength); err != nil {
		return err
	}
	if err := validate.MaxLen("location", e.Location, MaxLocationLength); err != nil {
		return err
	}
	if e.Status != "" {
		if err := validate.OneOf("status", e.Status, eventStatuses...); err != nil {
			return err
		}
	}
	for _, a := range e.Attendees {
		if _, err := NewAttendee(a.Email, a.DisplayName, a.ResponseStatus); err != nil {
			return err
		}
	}
	return nil
}

func validateRange(start, end time.Time) error {
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		return apierr.Invalidf("event start time must be before end time")
	}
	return nil
}

// Duration is the event length in whole minutes, or 0 when either bound is
// missing.
func (e *Event) Duration() int {
	if e.Start.IsZero() || e.End.IsZero() {
		return 0
	}
	return int(e.End.Sub(e.Start) / time.Minute)
}

func isMidnight(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}

// IsAllDay reports date-only events, and timed events spanning whole days
// from midnight to midnight.
func (e *Event) IsAllDay() bool {
	if e.AllDay {
		return true
	}
	if e.Start.IsZero() || e.End.IsZero() {
		return false
	}
	return isMidnight(e.Start) && isMidnight(e.End) && e.End.Sub(e.Start) >= 24*time.Hour
}

func (e *Event) IsToday(now time.Time) bool {
	if e.Start.IsZero() {
		return false
	}
	y1, m1, d1 := e.Start.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func (e *Event) IsPast(now time.Time) bool {
	return !e.End.IsZero() && e.End.Before(now)
}

func (e *Event) IsUpcoming(now time.Time) bool {
	return !e.Start.IsZero() && e.Start.After(now)
}

func (e *Event) IsHappeningNow(now time.Time) bool {
	if e.Start.IsZero() || e.End.IsZero() {
		return false
	}
	return !now.Before(e.Start) && !now.After(e.End)
}

// ConflictsWith reports whether the two events overlap. Touching bounds do
// not overlap.
func (e *Event) ConflictsWith(other *Event) bool {
	if e.Start.IsZero() || e.End.IsZero() || other.Start.IsZero() || other.End.IsZero() {
		return false
	}
	return e.Start.Before(other.End) && e.End.After(other.Start)
}

func (e *Event) AttendeeEmails() []string {
	out := make([]string, 0, len(e.Attendees))
	for _, a := range e.Attendees {
		if a.Email != "" {
			out = append(out, a.Email)
		}
	}
	return out
}

func (e *Event) HasAttendee(email string) bool {
	return slices.ContainsFunc(e.Attendees, func(a Attendee) bool {
		return strings.EqualFold(a.Email, email)
	})
}

func (e *Event) IsRecurring() bool {
	return len(e.Recurrence) > 0 || e.RecurringEventID != ""
}

// Calendar is an entry of the user's calendar list.
type Calendar struct {
	ID          string `json:"calendar_id"`
	Summary     string `json:"summary,omitempty"`
	Description string `json:"description,omitempty"`
	TimeZone    string `json:"time_zone,omitempty"`
	AccessRole  string `json:"access_role,omitempty"`
	Primary     bool   `json:"primary,omitempty"`
}

// ListOptions parameterizes events.list. Zero times leave that bound open.
type ListOptions struct {
	CalendarID string
	MaxResults int
	Start      time.Time
	End        time.Time
	Query      string
}

// ListParams is the events.list request as sent on the wire.
type ListParams struct {
	MaxResults   int
	TimeMin      string
	TimeMax      string
	Query        string
	SingleEvents bool
	OrderBy      string
}

func (o ListOptions) params() (string, ListParams, error) {
	calendarID := calendarOrDefault(o.CalendarID)
	limit := o.MaxResults
	if limit == 0 {
		limit = DefaultMaxResults
	}
	if err := validate.Limit(limit, MaxResultsLimit); err != nil {
		return "", ListParams{}, err
	}
	if err := validate.MaxLen("query", o.Query, MaxQueryLength); err != nil {
		return "", ListParams{}, err
	}
	if !o.Start.IsZero() && !o.End.IsZero() && !o.Start.Before(o.End) {
		return "", ListParams{}, apierr.Invalidf("start date must be before end date")
	}
	p := ListParams{MaxResults: limit, Query: o.Query, SingleEvents: true, OrderBy: "startTime"}
	if !o.Start.IsZero() {
		p.TimeMin = o.Start.Format(time.RFC3339)
	}
	if !o.End.IsZero() {
		p.TimeMax = o.End.Format(time.RFC3339)
	}
	return calendarID, p, nil
}

func calendarOrDefault(id string) string {
	if strings.TrimSpace(id) == "" {
		return DefaultCalendarID
	}
	return id
}
