package calendar

import (
	"context"

	calapi "google.golang.org/api/calendar/v3"
)

// Client is the narrow Calendar surface the service needs.
type Client interface {
	ListEvents(ctx context.Context, calendarID string, p ListParams) ([]*calapi.Event, error)
	GetEvent(ctx context.Context, calendarID, eventID string) (*calapi.Event, error)
	InsertEvent(ctx context.Context, calendarID string, ev *calapi.Event) (*calapi.Event, error)
	UpdateEvent(ctx context.Context, calendarID, eventID string, ev *calapi.Event) (*calapi.Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
	ListCalendars(ctx context.Context) ([]*calapi.CalendarListEntry, error)
}
