package calendar

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	calapi "google.golang.org/api/calendar/v3"

	"github.com/joshsymonds/gworkspace/internal/apierr"
	"github.com/joshsymonds/gworkspace/internal/fanout"
)

func TestListEvents(t *testing.T) {
	f := newFakeClient()
	f.items[DefaultCalendarID] = []*calapi.Event{
		apiEvent("e1", "one", "2026-10-15T09:00:00Z", "2026-10-15T10:00:00Z"),
		apiEvent("e2", "two", "2026-10-15T11:00:00Z", "2026-10-15T12:00:00Z"),
	}
	s := NewService(f, nil, slogDiscard())

	events, err := s.ListEvents(context.Background(), ListOptions{Query: "x"})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "one", events[0].Summary)
	assert.Equal(t, "x", f.lists[0].params.Query)

	f.listErr[DefaultCalendarID] = statusErr(http.StatusForbidden)
	_, err = s.ListEvents(context.Background(), ListOptions{})
	assert.ErrorIs(t, err, apierr.ErrCalendar)
	assert.ErrorIs(t, err, apierr.ErrPermission)
}

func TestCreateEventDefaults(t *testing.T) {
	f := newFakeClient()
	s := NewService(f, nil, slogDiscard())
	start := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	ev, err := s.CreateEvent(context.Background(), "", Event{Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, "ev-1", ev.ID)
	assert.Equal(t, DefaultSummary, ev.Summary)
	assert.Equal(t, DefaultSummary, f.inserted[0].Summary)

	_, err = s.CreateEvent(context.Background(), "", Event{Start: start, End: start})
	assert.ErrorIs(t, err, apierr.ErrInvalid)
	assert.Len(t, f.inserted, 1)
}

func TestCreateEventConflict(t *testing.T) {
	f := newFakeClient()
	f.insertErr = statusErr(http.StatusConflict)
	s := NewService(f, nil, slogDiscard())
	start := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	_, err := s.CreateEvent(context.Background(), "", Event{Start: start, End: start.Add(time.Hour)})
	assert.ErrorIs(t, err, apierr.ErrConflict)
	assert.ErrorIs(t, err, apierr.ErrCalendar)
}

func TestGetUpdateDeleteEvent(t *testing.T) {
	f := newFakeClient()
	f.events["e1"] = apiEvent("e1", "old", "2026-10-15T09:00:00Z", "2026-10-15T10:00:00Z")
	s := NewService(f, nil, slogDiscard())
	ctx := context.Background()

	ev, err := s.GetEvent(ctx, "", "e1")
	require.NoError(t, err)
	ev.Summary = "new"
	updated, err := s.UpdateEvent(ctx, "", ev)
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Summary)
	assert.Equal(t, []string{"e1"}, f.updated)

	require.NoError(t, s.DeleteEvent(ctx, ev, ""))
	err = s.DeleteEvent(ctx, ev, "")
	assert.ErrorIs(t, err, apierr.ErrNotFound)

	_, err = s.GetEvent(ctx, "", "e1")
	assert.True(t, apierr.IsNotFound(err))

	_, err = s.UpdateEvent(ctx, "", &Event{})
	assert.ErrorIs(t, err, apierr.ErrInvalid)
}

func TestBatchGetEventsSkipsMissing(t *testing.T) {
	f := newFakeClient()
	f.events["e1"] = apiEvent("e1", "one", "2026-10-15T09:00:00Z", "2026-10-15T10:00:00Z")
	f.events["e3"] = apiEvent("e3", "three", "2026-10-15T09:00:00Z", "2026-10-15T10:00:00Z")
	s := NewService(f, nil, slogDiscard())

	events, err := s.BatchGetEvents(context.Background(), "", []string{"e1", "e2", "e3"}, fanout.Options{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "one", events[0].Summary)
	assert.Equal(t, "three", events[1].Summary)

	_, err = s.BatchGetEvents(context.Background(), "", []string{"e1", "e2"}, fanout.Options{OnError: fanout.Raise})
	assert.ErrorIs(t, err, apierr.ErrNotFound)
}

func TestBatchCreateEventsRaisesByDefault(t *testing.T) {
	f := newFakeClient()
	s := NewService(f, nil, slogDiscard())
	start := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	events := []Event{
		{Summary: "a", Start: start, End: start.Add(time.Hour)},
		{Summary: "bad", Start: start, End: start},
		{Summary: "c", Start: start, End: start.Add(time.Hour)},
	}

	_, err := s.BatchCreateEvents(context.Background(), "", events, fanout.Options{Concurrency: 1})
	assert.ErrorIs(t, err, apierr.ErrInvalid)
	assert.Len(t, f.inserted, 1, "sequential batch stops at the first failure")

	created, err := s.BatchCreateEvents(context.Background(), "", events, fanout.Options{OnError: fanout.Skip})
	require.NoError(t, err)
	assert.Len(t, created, 2)
}

func TestBatchUpdateEvents(t *testing.T) {
	f := newFakeClient()
	f.events["e1"] = apiEvent("e1", "one", "2026-10-15T09:00:00Z", "2026-10-15T10:00:00Z")
	s := NewService(f, nil, slogDiscard())
	start := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	_, err := s.BatchUpdateEvents(context.Background(), "", []Event{
		{ID: "e1", Summary: "renamed", Start: start, End: start.Add(time.Hour)},
		{ID: "missing", Start: start, End: start.Add(time.Hour)},
	}, fanout.Options{})
	assert.ErrorIs(t, err, apierr.ErrNotFound)
	assert.Equal(t, []string{"e1"}, f.updated)
}

func TestListCalendars(t *testing.T) {
	f := newFakeClient()
	f.calendars = []*calapi.CalendarListEntry{{Id: "primary", Summary: "Me", Primary: true, TimeZone: "UTC"}}
	cals, err := NewService(f, nil, slogDiscard()).ListCalendars(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Calendar{{ID: "primary", Summary: "Me", Primary: true, TimeZone: "UTC"}}, cals)
}
