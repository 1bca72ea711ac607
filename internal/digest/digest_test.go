package digest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	calapi "google.golang.org/api/calendar/v3"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	tasksapi "google.golang.org/api/tasks/v1"

	"github.com/joshsymonds/gworkspace/internal/apierr"
	"github.com/joshsymonds/gworkspace/internal/calendar"
	"github.com/joshsymonds/gworkspace/internal/gmail"
	"github.com/joshsymonds/gworkspace/internal/tasks"
)

// Thursday 2026-10-15 14:30 UTC.
var fixedNow = time.Date(2026, 10, 15, 14, 30, 0, 0, time.UTC)

type fakeGmail struct {
	gmail.Client

	msgs    map[string]*gmailapi.Message
	ids     []string
	listErr error

	mu      sync.Mutex
	queries []string
}

func (f *fakeGmail) ListMessages(_ context.Context, opts gmail.ListOptions) ([]string, string, error) {
	f.mu.Lock()
	f.queries = append(f.queries, opts.Query)
	f.mu.Unlock()
	return f.ids, "", f.listErr
}

func (f *fakeGmail) GetMessage(_ context.Context, id string) (*gmailapi.Message, error) {
	m, ok := f.msgs[id]
	if !ok {
		return nil, &googleapi.Error{Code: http.StatusNotFound}
	}
	return m, nil
}

func (f *fakeGmail) add(id, from, subject, listID string, unread bool) {
	headers := []*gmailapi.MessagePartHeader{{Name: "From", Value: from}, {Name: "Subject", Value: subject}}
	if listID != "" {
		headers = append(headers, &gmailapi.MessagePartHeader{Name: "List-Id", Value: listID})
	}
	labels := []string{gmail.LabelInbox}
	if unread {
		labels = append(labels, gmail.LabelUnread)
	}
	f.msgs[id] = &gmailapi.Message{Id: id, LabelIds: labels, Payload: &gmailapi.MessagePart{MimeType: "text/plain", Headers: headers}}
	f.ids = append(f.ids, id)
}

type fakeCalendar struct {
	calendar.Client

	events map[string][]*calapi.Event
}

func (f *fakeCalendar) ListEvents(_ context.Context, calendarID string, _ calendar.ListParams) ([]*calapi.Event, error) {
	return f.events[calendarID], nil
}

type fakeTasks struct {
	tasks.Client

	items map[string][]*tasksapi.Task
	errs  map[string]error

	mu     sync.Mutex
	params []tasks.ListParams
}

func (f *fakeTasks) ListTasks(_ context.Context, listID string, p tasks.ListParams) ([]*tasksapi.Task, error) {
	f.mu.Lock()
	f.params = append(f.params, p)
	f.mu.Unlock()
	if err := f.errs[listID]; err != nil {
		return nil, err
	}
	return f.items[listID], nil
}

func timed(id, summary, start, end string) *calapi.Event {
	return &calapi.Event{
		Id:      id,
		Summary: summary,
		Start:   &calapi.EventDateTime{DateTime: start},
		End:     &calapi.EventDateTime{DateTime: end},
	}
}

func newTestDigest(g *fakeGmail, c *fakeCalendar, tk *fakeTasks) *Service {
	clock := func() time.Time { return fixedNow }
	s := NewService(nil, nil, nil, slogDiscard())
	s.Clock = clock
	if g != nil {
		s.Gmail = gmail.NewService(g, nil, slogDiscard())
		s.Gmail.Clock = clock
	}
	if c != nil {
		s.Calendar = calendar.NewService(c, nil, slogDiscard())
		s.Calendar.Clock = clock
	}
	if tk != nil {
		s.Tasks = tasks.NewService(tk, nil, slogDiscard())
		s.Tasks.Clock = clock
	}
	return s
}

func TestRunBuildsAllSections(t *testing.T) {
	g := &fakeGmail{msgs: map[string]*gmailapi.Message{}}
	g.add("m1", "News <news@list.example.com>", "Weekly roundup", `"Example News" <news.example.com>`, true)
	g.add("m2", "news@list.example.com", "Breaking", `<news.example.com>`, false)
	g.add("m3", "Alice <alice@corp.test>", "Lunch?", "", true)

	c := &fakeCalendar{events: map[string][]*calapi.Event{
		calendar.DefaultCalendarID: {
			timed("e1", "Standup", "2026-10-15T09:00:00Z", "2026-10-15T09:30:00Z"),
			timed("e3", "Review", "2026-10-15T15:00:00Z", "2026-10-15T16:00:00Z"),
		},
		"team": {timed("e2", "Planning", "2026-10-15T09:15:00Z", "2026-10-15T10:00:00Z")},
	}}

	tk := &fakeTasks{items: map[string][]*tasksapi.Task{
		tasks.DefaultTaskListID: {{Id: "t2", Title: "renew passport", Status: tasks.StatusNeedsAction, Due: "2026-10-10T00:00:00.000Z"}},
		"work":                  {{Id: "t1", Title: "file expenses", Status: tasks.StatusNeedsAction, Due: "2026-10-01T00:00:00.000Z"}},
	}}

	s := newTestDigest(g, c, tk)
	rep, err := s.Run(context.Background(), Options{
		Calendars: []string{calendar.DefaultCalendarID, "team"},
		TaskLists: []string{tasks.DefaultTaskListID, "work"},
	})
	require.NoError(t, err)

	assert.Equal(t, fixedNow, rep.GeneratedAt)
	assert.Equal(t, DefaultWindow, rep.Window)
	assert.Equal(t, 3, rep.Total)
	assert.Equal(t, 2, rep.Unread)
	assert.Equal(t, []SenderStat{
		{Domain: "list.example.com", Count: 2, Unread: 1, PreviewSubject: "Weekly roundup"},
		{Domain: "corp.test", Count: 1, Unread: 1, PreviewSubject: "Lunch?"},
	}, rep.TopSenders)
	assert.Equal(t, []ListStat{{ListID: "news.example.com", Count: 2, PreviewSubject: "Weekly roundup"}}, rep.TopLists)
	require.Len(t, rep.Suggestions, 3)
	assert.Contains(t, rep.Suggestions[0], `list: "news.example.com"`)

	require.Len(t, g.queries, 1)
	assert.Equal(t, "in:inbox after:2026/10/14", g.queries[0])

	var summaries []string
	for _, e := range rep.Events {
		summaries = append(summaries, e.Summary)
	}
	assert.Equal(t, []string{"Standup", "Planning", "Review"}, summaries)
	require.Len(t, rep.Conflicts, 1)
	assert.Equal(t, "Standup", rep.Conflicts[0].First)
	assert.Equal(t, "Planning", rep.Conflicts[0].Second)

	require.Len(t, rep.Overdue, 2)
	assert.Equal(t, "file expenses", rep.Overdue[0].Title)
	assert.Equal(t, "work", rep.Overdue[0].TaskListID)
	assert.Equal(t, "renew passport", rep.Overdue[1].Title)
	for _, p := range tk.params {
		assert.Equal(t, "2026-10-15T00:00:00Z", p.DueMax)
		require.NotNil(t, p.ShowCompleted)
		assert.False(t, *p.ShowCompleted)
	}
}

func TestRunSkipsFailingTaskList(t *testing.T) {
	tk := &fakeTasks{
		items: map[string][]*tasksapi.Task{"work": {{Id: "t1", Title: "late", Due: "2026-10-01T00:00:00.000Z"}}},
		errs:  map[string]error{"gone": &googleapi.Error{Code: http.StatusNotFound}},
	}
	s := newTestDigest(nil, nil, tk)

	rep, err := s.Run(context.Background(), Options{TaskLists: []string{"gone", "work"}})
	require.NoError(t, err)
	require.Len(t, rep.Overdue, 1)
	assert.Equal(t, "late", rep.Overdue[0].Title)
	assert.Zero(t, rep.Total)
	assert.Empty(t, rep.Events)
}

func TestRunMailFailureFailsDigest(t *testing.T) {
	g := &fakeGmail{msgs: map[string]*gmailapi.Message{}, listErr: &googleapi.Error{Code: http.StatusUnauthorized}}
	s := newTestDigest(g, nil, nil)

	_, err := s.Run(context.Background(), Options{})
	assert.ErrorIs(t, err, apierr.ErrGmail)
	assert.ErrorIs(t, err, apierr.ErrUnauthorized)
}

func TestRunRejectsBadOptions(t *testing.T) {
	s := newTestDigest(&fakeGmail{msgs: map[string]*gmailapi.Message{}}, nil, nil)

	_, err := s.Run(context.Background(), Options{Window: -time.Hour})
	assert.ErrorIs(t, err, apierr.ErrInvalid)

	_, err = s.Run(context.Background(), Options{MaxMessages: gmail.MaxResultsLimit + 1})
	assert.ErrorIs(t, err, apierr.ErrInvalid)
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
