package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joshsymonds/gworkspace/internal/apierr"
	"github.com/joshsymonds/gworkspace/internal/daterange"
	"github.com/joshsymonds/gworkspace/internal/fanout"
	"github.com/joshsymonds/gworkspace/internal/validate"
)

// QueryBuilder accumulates an events.list request. Chain methods record the
// first invalid argument; Err and the terminal methods return it.
//
// ByAttendee, WithLocation and WithoutLocation cannot be expressed
// server-side. They filter the single page the provider returns, so a
// query may yield fewer than Limit events even when more exist.
type QueryBuilder struct {
	svc *Service
	now func() time.Time
	err error

	limit       int
	start, end  time.Time
	search      string
	calendarID  string
	attendee    string
	hasLocation *bool
}

func newQueryBuilder(s *Service) *QueryBuilder {
	now := time.Now
	if s != nil && s.Clock != nil {
		now = s.Clock
	}
	return &QueryBuilder{svc: s, now: now, limit: DefaultMaxResults, calendarID: DefaultCalendarID}
}

func (b *QueryBuilder) fail(err error) *QueryBuilder {
	if b.err == nil {
		b.err = err
	}
	return b
}

func (b *QueryBuilder) Err() error { return b.err }

func (b *QueryBuilder) Limit(n int) *QueryBuilder {
	if err := validate.Limit(n, MaxResultsLimit); err != nil {
		return b.fail(err)
	}
	b.limit = n
	return b
}

func (b *QueryBuilder) FromDate(t time.Time) *QueryBuilder {
	b.start = t
	return b
}

func (b *QueryBuilder) ToDate(t time.Time) *QueryBuilder {
	b.end = t
	return b
}

func (b *QueryBuilder) InDateRange(start, end time.Time) *QueryBuilder {
	if !start.Before(end) {
		return b.fail(apierr.Invalidf("start date must be before end date"))
	}
	b.start, b.end = start, end
	return b
}

// Search sets the provider's free-text q parameter.
func (b *QueryBuilder) Search(text string) *QueryBuilder {
	if strings.TrimSpace(text) == "" {
		return b.fail(apierr.Invalidf("search text must not be empty"))
	}
	if err := validate.MaxLen("query", text, MaxQueryLength); err != nil {
		return b.fail(err)
	}
	b.search = text
	return b
}

func (b *QueryBuilder) InCalendar(id string) *QueryBuilder {
	if strings.TrimSpace(id) == "" {
		return b.fail(apierr.Invalidf("calendar id must not be empty"))
	}
	b.calendarID = id
	return b
}

func (b *QueryBuilder) ByAttendee(email string) *QueryBuilder {
	if err := validate.Email("attendee", email); err != nil {
		return b.fail(err)
	}
	b.attendee = email
	return b
}

func (b *QueryBuilder) WithLocation() *QueryBuilder {
	v := true
	b.hasLocation = &v
	return b
}

func (b *QueryBuilder) WithoutLocation() *QueryBuilder {
	v := false
	b.hasLocation = &v
	return b
}

func (b *QueryBuilder) Today() *QueryBuilder {
	now := b.now()
	return b.InDateRange(daterange.StartOfDay(now), daterange.EndOfDay(now))
}

func (b *QueryBuilder) Tomorrow() *QueryBuilder {
	t := b.now().AddDate(0, 0, 1)
	return b.InDateRange(daterange.StartOfDay(t), daterange.EndOfDay(t))
}

// ThisWeek covers Monday through Sunday of the current week.
func (b *QueryBuilder) ThisWeek() *QueryBuilder {
	now := b.now()
	return b.InDateRange(daterange.StartOfWeek(now), daterange.EndOfWeek(now))
}

func (b *QueryBuilder) NextWeek() *QueryBuilder {
	t := b.now().AddDate(0, 0, 7)
	return b.InDateRange(daterange.StartOfWeek(t), daterange.EndOfWeek(t))
}

func (b *QueryBuilder) ThisMonth() *QueryBuilder {
	now := b.now()
	return b.InDateRange(daterange.StartOfMonth(now), daterange.EndOfMonth(now))
}

// NextDays covers the start of today through the end of the nth day ahead.
func (b *QueryBuilder) NextDays(n int) *QueryBuilder {
	if err := validate.Positive("days", n); err != nil {
		return b.fail(err)
	}
	now := b.now()
	return b.InDateRange(daterange.StartOfDay(now), daterange.EndOfDay(now.AddDate(0, 0, n)))
}

// LastDays covers the start of the nth day back through the end of today.
func (b *QueryBuilder) LastDays(n int) *QueryBuilder {
	if err := validate.Positive("days", n); err != nil {
		return b.fail(err)
	}
	now := b.now()
	return b.InDateRange(daterange.StartOfDay(now.AddDate(0, 0, -n)), daterange.EndOfDay(now))
}

// Options is the list request this builder describes.
func (b *QueryBuilder) Options() (ListOptions, error) {
	if b.err != nil {
		return ListOptions{}, b.err
	}
	return ListOptions{
		CalendarID: b.calendarID,
		MaxResults: b.limit,
		Start:      b.start,
		End:        b.end,
		Query:      b.search,
	}, nil
}

func (b *QueryBuilder) postFilter(events []Event) []Event {
	if b.attendee == "" && b.hasLocation == nil {
		return events
	}
	out := events[:0:0]
	for _, e := range events {
		if b.attendee != "" && !e.HasAttendee(b.attendee) {
			continue
		}
		if b.hasLocation != nil && (e.Location != "") != *b.hasLocation {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (b *QueryBuilder) Execute(ctx context.Context) ([]Event, error) {
	opts, err := b.Options()
	if err != nil {
		return nil, err
	}
	events, err := b.svc.ListEvents(ctx, opts)
	if err != nil {
		return nil, err
	}
	filtered := b.postFilter(events)
	b.svc.Logger.Debug("event query", "returned", len(filtered), "fetched", len(events))
	return filtered, nil
}

// Count is the number of matching events, up to MaxResultsLimit.
func (b *QueryBuilder) Count(ctx context.Context) (int, error) {
	saved := b.limit
	b.limit = MaxResultsLimit
	defer func() { b.limit = saved }()
	events, err := b.Execute(ctx)
	return len(events), err
}

// First returns the first match, or nil when nothing matches.
func (b *QueryBuilder) First(ctx context.Context) (*Event, error) {
	saved := b.limit
	b.limit = 1
	defer func() { b.limit = saved }()
	events, err := b.Execute(ctx)
	if err != nil || len(events) == 0 {
		return nil, err
	}
	return &events[0], nil
}

func (b *QueryBuilder) Exists(ctx context.Context) (bool, error) {
	e, err := b.First(ctx)
	return e != nil, err
}

func (b *QueryBuilder) clone() *QueryBuilder {
	c := *b
	return &c
}

// ExecuteAcross runs this query against each calendar concurrently. Any
// failing calendar fails the call.
func (b *QueryBuilder) ExecuteAcross(ctx context.Context, calendarIDs []string) (map[string][]Event, error) {
	if b.err != nil {
		return nil, b.err
	}
	opts := fanout.Options{OnError: fanout.Raise, Logger: b.svc.Logger, Label: "calendars"}
	return fanout.Keyed(ctx, calendarIDs, opts, func(ctx context.Context, id string) ([]Event, error) {
		return b.clone().InCalendar(id).Execute(ctx)
	})
}

func (b *QueryBuilder) String() string {
	return fmt.Sprintf("calendar.QueryBuilder{calendar=%q query=%q limit=%d}", b.calendarID, b.search, b.limit)
}
