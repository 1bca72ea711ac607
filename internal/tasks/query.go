package tasks

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

// QueryBuilder accumulates a tasks.list request. The date helpers work on
// the local calendar date of the service clock and send midnight UTC of that
// date, which is how the provider stores due dates.
type QueryBuilder struct {
	svc *Service
	now func() time.Time
	err error

	limit                      int
	completedMin, completedMax time.Time
	dueMin, dueMax             time.Time
	showCompleted, showHidden  *bool
	taskListID                 string
}

func newQueryBuilder(s *Service) *QueryBuilder {
	now := time.Now
	if s != nil && s.Clock != nil {
		now = s.Clock
	}
	return &QueryBuilder{svc: s, now: now, limit: DefaultMaxResults, taskListID: DefaultTaskListID}
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

func (b *QueryBuilder) CompletedAfter(t time.Time) *QueryBuilder {
	b.completedMin = t
	return b
}

func (b *QueryBuilder) CompletedBefore(t time.Time) *QueryBuilder {
	b.completedMax = t
	return b
}

func (b *QueryBuilder) CompletedInRange(start, end time.Time) *QueryBuilder {
	if !start.Before(end) {
		return b.fail(apierr.Invalidf("start date must be before end date"))
	}
	b.completedMin, b.completedMax = start, end
	return b
}

func (b *QueryBuilder) DueAfter(t time.Time) *QueryBuilder {
	b.dueMin = t
	return b
}

func (b *QueryBuilder) DueBefore(t time.Time) *QueryBuilder {
	b.dueMax = t
	return b
}

func (b *QueryBuilder) DueInRange(start, end time.Time) *QueryBuilder {
	if !start.Before(end) {
		return b.fail(apierr.Invalidf("start date must be before end date"))
	}
	b.dueMin, b.dueMax = start, end
	return b
}

func (b *QueryBuilder) ShowCompleted(show bool) *QueryBuilder {
	b.showCompleted = &show
	return b
}

func (b *QueryBuilder) ShowHidden(show bool) *QueryBuilder {
	b.showHidden = &show
	return b
}

func (b *QueryBuilder) InTaskList(id string) *QueryBuilder {
	if strings.TrimSpace(id) == "" {
		return b.fail(apierr.Invalidf("task list id must not be empty"))
	}
	b.taskListID = id
	return b
}

func (b *QueryBuilder) today() time.Time {
	return daterange.UTCDate(b.now())
}

// lastInstant is the final instant of the day before t.
func lastInstant(t time.Time) time.Time {
	return t.Add(-time.Nanosecond)
}

func (b *QueryBuilder) DueToday() *QueryBuilder {
	d := b.today()
	return b.DueInRange(d, d.AddDate(0, 0, 1))
}

func (b *QueryBuilder) DueTomorrow() *QueryBuilder {
	d := b.today().AddDate(0, 0, 1)
	return b.DueInRange(d, d.AddDate(0, 0, 1))
}

func (b *QueryBuilder) weekOf(offsetDays int) (time.Time, time.Time) {
	now := b.now().AddDate(0, 0, offsetDays)
	monday := daterange.UTCDate(daterange.StartOfWeek(now))
	return monday, lastInstant(monday.AddDate(0, 0, 7))
}

// DueThisWeek covers Monday 00:00 through the end of Sunday.
func (b *QueryBuilder) DueThisWeek() *QueryBuilder {
	return b.DueInRange(b.weekOf(0))
}

func (b *QueryBuilder) DueNextWeek() *QueryBuilder {
	return b.DueInRange(b.weekOf(7))
}

// DueNextDays covers today through the end of the nth day ahead.
func (b *QueryBuilder) DueNextDays(n int) *QueryBuilder {
	if err := validate.Positive("days", n); err != nil {
		return b.fail(err)
	}
	d := b.today()
	return b.DueInRange(d, d.AddDate(0, 0, n+1))
}

// Overdue selects open tasks due before today.
func (b *QueryBuilder) Overdue() *QueryBuilder {
	b.dueMax = b.today()
	return b.ShowCompleted(false)
}

func (b *QueryBuilder) CompletedToday() *QueryBuilder {
	d := b.today()
	return b.CompletedInRange(d, d.AddDate(0, 0, 1))
}

func (b *QueryBuilder) CompletedThisWeek() *QueryBuilder {
	return b.CompletedInRange(b.weekOf(0))
}

// CompletedLastDays covers the start of the nth day back through the end of
// today.
func (b *QueryBuilder) CompletedLastDays(n int) *QueryBuilder {
	if err := validate.Positive("days", n); err != nil {
		return b.fail(err)
	}
	d := b.today()
	return b.CompletedInRange(d.AddDate(0, 0, -n), lastInstant(d.AddDate(0, 0, 1)))
}

// Options is the list request this builder describes.
func (b *QueryBuilder) Options() (ListOptions, error) {
	if b.err != nil {
		return ListOptions{}, b.err
	}
	return ListOptions{
		TaskListID:    b.taskListID,
		MaxResults:    b.limit,
		CompletedMin:  b.completedMin,
		CompletedMax:  b.completedMax,
		DueMin:        b.dueMin,
		DueMax:        b.dueMax,
		ShowCompleted: b.showCompleted,
		ShowHidden:    b.showHidden,
	}, nil
}

func (b *QueryBuilder) Execute(ctx context.Context) ([]Task, error) {
	opts, err := b.Options()
	if err != nil {
		return nil, err
	}
	return b.svc.ListTasks(ctx, opts)
}

// Count is the number of matching tasks, up to MaxResultsLimit.
func (b *QueryBuilder) Count(ctx context.Context) (int, error) {
	saved := b.limit
	b.limit = MaxResultsLimit
	defer func() { b.limit = saved }()
	tasks, err := b.Execute(ctx)
	return len(tasks), err
}

// First returns the first match, or nil when nothing matches.
func (b *QueryBuilder) First(ctx context.Context) (*Task, error) {
	saved := b.limit
	b.limit = 1
	defer func() { b.limit = saved }()
	tasks, err := b.Execute(ctx)
	if err != nil || len(tasks) == 0 {
		return nil, err
	}
	return &tasks[0], nil
}

func (b *QueryBuilder) Exists(ctx context.Context) (bool, error) {
	t, err := b.First(ctx)
	return t != nil, err
}

func (b *QueryBuilder) clone() *QueryBuilder {
	c := *b
	return &c
}

// ExecuteAcross runs this query against each task list concurrently. Under
// fanout.Skip a failing list maps to an empty slice.
func (b *QueryBuilder) ExecuteAcross(ctx context.Context, taskListIDs []string, policy fanout.Policy) (map[string][]Task, error) {
	if b.err != nil {
		return nil, b.err
	}
	opts := fanout.Options{OnError: policy, Logger: b.svc.Logger, Label: "task lists"}
	out, err := fanout.Keyed(ctx, taskListIDs, opts.WithDefault(fanout.Skip), func(ctx context.Context, id string) ([]Task, error) {
		return b.clone().InTaskList(id).Execute(ctx)
	})
	if err != nil {
		return nil, err
	}
	for id, tasks := range out {
		if tasks == nil {
			out[id] = []Task{}
		}
	}
	return out, nil
}

func (b *QueryBuilder) String() string {
	return fmt.Sprintf("tasks.QueryBuilder{list=%q limit=%d}", b.taskListID, b.limit)
}
