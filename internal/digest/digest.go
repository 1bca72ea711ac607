// Package digest summarizes a day across Gmail, Calendar and Tasks: who is
// filling the inbox, what is on the calendar today and which tasks are late.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joshsymonds/gworkspace/internal/apierr"
	"github.com/joshsymonds/gworkspace/internal/calendar"
	"github.com/joshsymonds/gworkspace/internal/fanout"
	"github.com/joshsymonds/gworkspace/internal/gmail"
	"github.com/joshsymonds/gworkspace/internal/tasks"
)

const (
	DefaultWindow   = 24 * time.Hour
	DefaultTopN     = 10
	DefaultMessages = 200
)

type Options struct {
	Window      time.Duration
	TopN        int
	MaxMessages int
	Calendars   []string
	TaskLists   []string
}

func (o Options) withDefaults() (Options, error) {
	if o.Window < 0 {
		return o, apierr.Invalidf("window must be positive, got %s", o.Window)
	}
	if o.Window == 0 {
		o.Window = DefaultWindow
	}
	if o.TopN <= 0 {
		o.TopN = DefaultTopN
	}
	if o.MaxMessages == 0 {
		o.MaxMessages = DefaultMessages
	}
	if len(o.Calendars) == 0 {
		o.Calendars = []string{calendar.DefaultCalendarID}
	}
	if len(o.TaskLists) == 0 {
		o.TaskLists = []string{tasks.DefaultTaskListID}
	}
	return o, nil
}

// Service builds digests. Any nil API service leaves its section empty.
type Service struct {
	Gmail    *gmail.Service
	Calendar *calendar.Service
	Tasks    *tasks.Service
	Logger   *slog.Logger
	Clock    func() time.Time
}

func NewService(g *gmail.Service, c *calendar.Service, t *tasks.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Service{Gmail: g, Calendar: c, Tasks: t, Logger: logger, Clock: time.Now}
}

type Report struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Window      time.Duration    `json:"window"`
	Total       int              `json:"total"`
	Unread      int              `json:"unread"`
	TopSenders  []SenderStat     `json:"top_senders"`
	TopLists    []ListStat       `json:"top_lists"`
	Suggestions []string         `json:"suggestions,omitempty"`
	Events      []calendar.Event `json:"events"`
	Conflicts   []Conflict       `json:"conflicts,omitempty"`
	Overdue     []tasks.Task     `json:"overdue"`
}

// SenderStat ranks noisy sender domains.
type SenderStat struct {
	Domain         string `json:"domain"`
	Count          int    `json:"count"`
	Unread         int    `json:"unread"`
	PreviewSubject string `json:"preview_subject"`
}

// ListStat ranks noisy List-Id sources.
type ListStat struct {
	ListID         string `json:"list_id"`
	Count          int    `json:"count"`
	PreviewSubject string `json:"preview_subject"`
}

// Conflict is a pair of overlapping events.
type Conflict struct {
	First  string    `json:"first"`
	Second string    `json:"second"`
	Start  time.Time `json:"start"`
}

// Run gathers the three sections concurrently. The first section to fail
// cancels the others.
func (s *Service) Run(ctx context.Context, opts Options) (Report, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return Report{}, err
	}
	rep := Report{GeneratedAt: s.Clock(), Window: opts.Window}
	s.Logger.InfoContext(ctx, "building digest", slog.Duration("window", opts.Window))

	g, ctx := errgroup.WithContext(ctx)
	if s.Gmail != nil {
		g.Go(func() error { return s.mail(ctx, opts, &rep) })
	}
	if s.Calendar != nil {
		g.Go(func() error { return s.events(ctx, opts, &rep) })
	}
	if s.Tasks != nil {
		g.Go(func() error { return s.overdue(ctx, opts, &rep) })
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	return rep, nil
}

func (s *Service) mail(ctx context.Context, opts Options, rep *Report) error {
	msgs, err := s.Gmail.Query().
		InFolder("inbox").
		LastDays(daysFromDuration(opts.Window)).
		Limit(opts.MaxMessages).
		Execute(ctx)
	if err != nil {
		return fmt.Errorf("recent mail: %w", err)
	}
	rep.Total = len(msgs)
	for _, m := range msgs {
		if !m.IsRead {
			rep.Unread++
		}
	}
	rep.TopSenders, rep.TopLists = buildRankings(msgs, opts.TopN)
	rep.Suggestions = buildArchiveRules(rep.TopLists, rep.TopSenders)
	return nil
}

func (s *Service) events(ctx context.Context, opts Options, rep *Report) error {
	byCal, err := s.Calendar.Query().Today().ExecuteAcross(ctx, opts.Calendars)
	if err != nil {
		return fmt.Errorf("today's events: %w", err)
	}
	var all []calendar.Event
	for _, id := range opts.Calendars {
		all = append(all, byCal[id]...)
	}
	slices.SortStableFunc(all, func(a, b calendar.Event) int { return a.Start.Compare(b.Start) })
	rep.Events = all
	rep.Conflicts = findConflicts(all)
	return nil
}

func (s *Service) overdue(ctx context.Context, opts Options, rep *Report) error {
	byList, err := s.Tasks.Query().Overdue().ExecuteAcross(ctx, opts.TaskLists, fanout.Skip)
	if err != nil {
		return fmt.Errorf("overdue tasks: %w", err)
	}
	var all []tasks.Task
	for _, id := range opts.TaskLists {
		all = append(all, byList[id]...)
	}
	slices.SortStableFunc(all, func(a, b tasks.Task) int { return a.Due.Compare(b.Due) })
	rep.Overdue = all
	return nil
}
