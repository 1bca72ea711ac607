package calendar

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	calapi "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type listCall struct {
	calendarID string
	params     ListParams
}

type fakeClient struct {
	mu        sync.Mutex
	lists     []listCall
	items     map[string][]*calapi.Event // by calendar id
	listErr   map[string]error
	events    map[string]*calapi.Event // by event id
	inserted  []*calapi.Event
	insertErr error
	updated   []string
	deleted   []string
	calendars []*calapi.CalendarListEntry
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		items:   map[string][]*calapi.Event{},
		listErr: map[string]error{},
		events:  map[string]*calapi.Event{},
	}
}

var errBoom = errors.New("boom")

func statusErr(code int) error { return &googleapi.Error{Code: code, Message: http.StatusText(code)} }

func (f *fakeClient) ListEvents(_ context.Context, calendarID string, p ListParams) ([]*calapi.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, listCall{calendarID, p})
	if err := f.listErr[calendarID]; err != nil {
		return nil, err
	}
	items := f.items[calendarID]
	if len(items) > p.MaxResults {
		items = items[:p.MaxResults]
	}
	return items, nil
}

func (f *fakeClient) GetEvent(_ context.Context, _, eventID string) (*calapi.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[eventID]
	if !ok {
		return nil, statusErr(http.StatusNotFound)
	}
	return ev, nil
}

func (f *fakeClient) InsertEvent(_ context.Context, _ string, ev *calapi.Event) (*calapi.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.inserted = append(f.inserted, ev)
	out := *ev
	out.Id = "ev-" + strconv.Itoa(len(f.inserted))
	out.HtmlLink = "https://calendar.example.com/" + out.Id
	return &out, nil
}

func (f *fakeClient) UpdateEvent(_ context.Context, _, eventID string, ev *calapi.Event) (*calapi.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[eventID]; !ok {
		return nil, statusErr(http.StatusNotFound)
	}
	f.updated = append(f.updated, eventID)
	out := *ev
	out.Id = eventID
	f.events[eventID] = &out
	return &out, nil
}

func (f *fakeClient) DeleteEvent(_ context.Context, _, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[eventID]; !ok {
		return statusErr(http.StatusNotFound)
	}
	delete(f.events, eventID)
	f.deleted = append(f.deleted, eventID)
	return nil
}

func (f *fakeClient) ListCalendars(context.Context) ([]*calapi.CalendarListEntry, error) {
	return f.calendars, nil
}

var _ Client = (*fakeClient)(nil)

func apiEvent(id, summary, start, end string) *calapi.Event {
	return &calapi.Event{
		Id:      id,
		Summary: summary,
		Start:   &calapi.EventDateTime{DateTime: start},
		End:     &calapi.EventDateTime{DateTime: end},
		Status:  StatusConfirmed,
	}
}
