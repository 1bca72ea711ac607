package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	tasksapi "google.golang.org/api/tasks/v1"

	"github.com/joshsymonds/gworkspace/internal/apierr"
	"github.com/joshsymonds/gworkspace/internal/fanout"
	"github.com/joshsymonds/gworkspace/internal/logsafe"
	"github.com/joshsymonds/gworkspace/internal/rate"
)

// Service wraps a Tasks Client.
type Service struct {
	Client  Client
	Limiter rate.Limiter
	Logger  *slog.Logger
	Clock   func() time.Time
}

func NewService(client Client, limiter rate.Limiter, logger *slog.Logger) *Service {
	if limiter == nil {
		limiter = rate.Unlimited{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Service{Client: client, Limiter: limiter, Logger: logger, Clock: time.Now}
}

// Query starts a fluent task search.
func (s *Service) Query() *QueryBuilder {
	return newQueryBuilder(s)
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}

func (s *Service) wait(ctx context.Context) error {
	if err := s.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("tasks: %w", err)
	}
	return nil
}

func wrap(op string, err error) error {
	return apierr.FromGoogle(apierr.Tasks, op, err)
}

func requireTask(t *Task) error {
	if t == nil || strings.TrimSpace(t.ID) == "" {
		return apierr.Invalidf("task id is required")
	}
	return nil
}

func (s *Service) ListTasks(ctx context.Context, opts ListOptions) ([]Task, error) {
	listID, params, err := opts.params()
	if err != nil {
		return nil, err
	}
	s.Logger.Info("listing tasks",
		"task_list_id", logsafe.ID(listID),
		"max_results", params.MaxResults,
		"due_min", params.DueMin,
		"due_max", params.DueMax)
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.ListTasks(ctx, listID, params)
	if err != nil {
		return nil, wrap("list tasks", err)
	}
	out := make([]Task, 0, len(raw))
	for _, t := range raw {
		out = append(out, fromAPITask(t, listID, s.Logger))
	}
	return out, nil
}

func (s *Service) GetTask(ctx context.Context, taskListID, taskID string) (*Task, error) {
	if strings.TrimSpace(taskID) == "" {
		return nil, apierr.Invalidf("task id is required")
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	listID := listOrDefault(taskListID)
	raw, err := s.Client.GetTask(ctx, listID, taskID)
	if err != nil {
		return nil, wrap("get task", err)
	}
	t := fromAPITask(raw, listID, s.Logger)
	return &t, nil
}

// CreateTask inserts t. A non-empty t.Parent creates it as a subtask.
func (s *Service) CreateTask(ctx context.Context, taskListID string, t Task) (*Task, error) {
	body, err := taskToAPI(t)
	if err != nil {
		return nil, err
	}
	// ids are assigned by the server
	body.Id = ""
	listID := listOrDefault(taskListID)
	s.Logger.Info("creating task", "task_list_id", logsafe.ID(listID), "title", logsafe.Subject(t.Title))
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.InsertTask(ctx, listID, body, t.Parent)
	if err != nil {
		return nil, wrap("create task", err)
	}
	created := fromAPITask(raw, listID, s.Logger)
	s.Logger.Info("created task", "task_id", logsafe.ID(created.ID))
	return &created, nil
}

func (s *Service) UpdateTask(ctx context.Context, taskListID string, t *Task) (*Task, error) {
	return s.update(ctx, taskListID, t, "update task")
}

func (s *Service) update(ctx context.Context, taskListID string, t *Task, op string) (*Task, error) {
	if err := requireTask(t); err != nil {
		return nil, err
	}
	body, err := taskToAPI(*t)
	if err != nil {
		return nil, err
	}
	if t.Completed.IsZero() {
		body.NullFields = append(body.NullFields, "Completed")
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	listID := listOrDefault(taskListID)
	raw, err := s.Client.UpdateTask(ctx, listID, t.ID, body)
	if err != nil {
		return nil, wrap(op, err)
	}
	updated := fromAPITask(raw, listID, s.Logger)
	return &updated, nil
}

func (s *Service) DeleteTask(ctx context.Context, taskListID string, t *Task) error {
	if err := requireTask(t); err != nil {
		return err
	}
	if err := s.wait(ctx); err != nil {
		return err
	}
	if err := s.Client.DeleteTask(ctx, listOrDefault(taskListID), t.ID); err != nil {
		return wrap("delete task", err)
	}
	s.Logger.Info("deleted task", "task_id", logsafe.ID(t.ID))
	return nil
}

// MoveTask repositions t under parent after previous. Empty parent moves it
// to the top level; empty previous makes it the first sibling.
func (s *Service) MoveTask(ctx context.Context, taskListID string, t *Task, parent, previous string) (*Task, error) {
	if err := requireTask(t); err != nil {
		return nil, err
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	listID := listOrDefault(taskListID)
	raw, err := s.Client.MoveTask(ctx, listID, t.ID, parent, previous)
	if err != nil {
		return nil, wrap("move task", err)
	}
	moved := fromAPITask(raw, listID, s.Logger)
	return &moved, nil
}

// MarkCompleted stamps t as completed now. t is updated only after the
// provider accepts the change.
func (s *Service) MarkCompleted(ctx context.Context, taskListID string, t *Task) (*Task, error) {
	if err := requireTask(t); err != nil {
		return nil, err
	}
	next := *t
	next.Status = StatusCompleted
	next.Completed = s.now().UTC().Truncate(time.Second)
	updated, err := s.update(ctx, taskListID, &next, "mark task completed")
	if err != nil {
		return nil, err
	}
	*t = *updated
	return updated, nil
}

// MarkIncomplete reopens t and clears its completion time.
func (s *Service) MarkIncomplete(ctx context.Context, taskListID string, t *Task) (*Task, error) {
	if err := requireTask(t); err != nil {
		return nil, err
	}
	next := *t
	next.Status = StatusNeedsAction
	next.Completed = time.Time{}
	updated, err := s.update(ctx, taskListID, &next, "mark task incomplete")
	if err != nil {
		return nil, err
	}
	*t = *updated
	return updated, nil
}

func (s *Service) ListTaskLists(ctx context.Context) ([]TaskList, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.ListTaskLists(ctx)
	if err != nil {
		return nil, wrap("list task lists", err)
	}
	out := make([]TaskList, 0, len(raw))
	for _, l := range raw {
		out = append(out, fromAPITaskList(l))
	}
	return out, nil
}

func (s *Service) GetTaskList(ctx context.Context, taskListID string) (*TaskList, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.GetTaskList(ctx, listOrDefault(taskListID))
	if err != nil {
		return nil, wrap("get task list", err)
	}
	l := fromAPITaskList(raw)
	return &l, nil
}

func (s *Service) CreateTaskList(ctx context.Context, title string) (*TaskList, error) {
	if err := validateListTitle(title); err != nil {
		return nil, err
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.InsertTaskList(ctx, &tasksapi.TaskList{Title: title})
	if err != nil {
		return nil, wrap("create task list", err)
	}
	l := fromAPITaskList(raw)
	s.Logger.Info("created task list", "task_list_id", logsafe.ID(l.ID))
	return &l, nil
}

// UpdateTaskList renames l. l is updated only after the provider accepts it.
func (s *Service) UpdateTaskList(ctx context.Context, l *TaskList, title string) (*TaskList, error) {
	if l == nil || strings.TrimSpace(l.ID) == "" {
		return nil, apierr.Invalidf("task list id is required")
	}
	if err := validateListTitle(title); err != nil {
		return nil, err
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.UpdateTaskList(ctx, l.ID, &tasksapi.TaskList{Id: l.ID, Title: title})
	if err != nil {
		return nil, wrap("update task list", err)
	}
	*l = fromAPITaskList(raw)
	return l, nil
}

// DeleteTaskList removes l and every task in it. The provider refuses to
// delete the default list with a 400.
func (s *Service) DeleteTaskList(ctx context.Context, l *TaskList) error {
	if l == nil || strings.TrimSpace(l.ID) == "" {
		return apierr.Invalidf("task list id is required")
	}
	if err := s.wait(ctx); err != nil {
		return err
	}
	if err := s.Client.DeleteTaskList(ctx, l.ID); err != nil {
		werr := wrap("delete task list", err)
		if errors.Is(werr, apierr.ErrInvalidQuery) {
			return &apierr.Error{
				Family: apierr.Tasks,
				Kind:   apierr.ErrInvalidQuery,
				Op:     "delete task list",
				Code:   http.StatusBadRequest,
				Err:    fmt.Errorf("cannot delete default list %s: %w", l.ID, err),
			}
		}
		return werr
	}
	s.Logger.Info("deleted task list", "task_list_id", logsafe.ID(l.ID))
	return nil
}

func (s *Service) batchOptions(opts fanout.Options, def fanout.Policy, label string) fanout.Options {
	opts = opts.WithDefault(def)
	if opts.Logger == nil {
		opts.Logger = s.Logger
	}
	if opts.Label == "" {
		opts.Label = label
	}
	return opts
}

// BatchGetTasks fetches ids concurrently, skipping failures by default.
func (s *Service) BatchGetTasks(ctx context.Context, taskListID string, ids []string, opts fanout.Options) ([]Task, error) {
	return fanout.Map(ctx, ids, s.batchOptions(opts, fanout.Skip, "get tasks"), func(ctx context.Context, id string) (Task, error) {
		t, err := s.GetTask(ctx, taskListID, id)
		if err != nil {
			return Task{}, err
		}
		return *t, nil
	})
}

// BatchCreateTasks creates each task, failing on the first error by default.
func (s *Service) BatchCreateTasks(ctx context.Context, taskListID string, tasks []Task, opts fanout.Options) ([]Task, error) {
	return fanout.Map(ctx, tasks, s.batchOptions(opts, fanout.Raise, "create tasks"), func(ctx context.Context, t Task) (Task, error) {
		created, err := s.CreateTask(ctx, taskListID, t)
		if err != nil {
			return Task{}, err
		}
		return *created, nil
	})
}

// IsNotFound reports whether err is a Tasks 404.
func IsNotFound(err error) bool {
	return errors.Is(err, apierr.ErrTasks) && errors.Is(err, apierr.ErrNotFound)
}
