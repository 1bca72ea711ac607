package runtime

import (
	"context"

	calapi "google.golang.org/api/calendar/v3"

	"github.com/joshsymonds/gworkspace/internal/calendar"
)

type calendarClient struct{ svc *calapi.Service }

func NewCalendarClient(svc *calapi.Service) calendar.Client { return &calendarClient{svc} }

func (c *calendarClient) ListEvents(ctx context.Context, calendarID string, p calendar.ListParams) ([]*calapi.Event, error) {
	call := c.svc.Events.List(calendarID).
		MaxResults(int64(p.MaxResults)).
		SingleEvents(p.SingleEvents)
	if p.OrderBy != "" && p.SingleEvents {
		call = call.OrderBy(p.OrderBy)
	}
	if p.TimeMin != "" {
		call = call.TimeMin(p.TimeMin)
	}
	if p.TimeMax != "" {
		call = call.TimeMax(p.TimeMax)
	}
	if p.Query != "" {
		call = call.Q(p.Query)
	}
	res, err := call.Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (c *calendarClient) GetEvent(ctx context.Context, calendarID, eventID string) (*calapi.Event, error) {
	return c.svc.Events.Get(calendarID, eventID).Context(ctx).Do()
}

func (c *calendarClient) InsertEvent(ctx context.Context, calendarID string, ev *calapi.Event) (*calapi.Event, error) {
	return c.svc.Events.Insert(calendarID, ev).Context(ctx).Do()
}

func (c *calendarClient) UpdateEvent(ctx context.Context, calendarID, eventID string, ev *calapi.Event) (*calapi.Event, error) {
	return c.svc.Events.Update(calendarID, eventID, ev).Context(ctx).Do()
}

func (c *calendarClient) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	return c.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
}

func (c *calendarClient) ListCalendars(ctx context.Context) ([]*calapi.CalendarListEntry, error) {
	var out []*calapi.CalendarListEntry
	err := c.svc.CalendarList.List().Pages(ctx, func(page *calapi.CalendarList) error {
		out = append(out, page.Items...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

var _ calendar.Client = (*calendarClient)(nil)
