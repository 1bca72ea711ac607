package tasks

import (
	"strings"
	"time"

	"github.com/joshsymonds/gworkspace/internal/apierr"
	"github.com/joshsymonds/gworkspace/internal/daterange"
	"github.com/joshsymonds/gworkspace/internal/validate"
)

const (
	MaxResultsLimit   = 100
	DefaultMaxResults = 100
	MaxTitleLength    = 1024
	MaxNotesLength    = 8192

	DefaultTaskListID = "@default"
)

const (
	StatusNeedsAction = "needsAction"
	StatusCompleted   = "completed"
)

var statuses = []string{StatusNeedsAction, StatusCompleted}

// Task is a single Google Task. Due is a date: the provider keeps only the
// day, stored here as midnight UTC.
type Task struct {
	ID         string    `json:"task_id,omitempty"`
	Title      string    `json:"title"`
	Notes      string    `json:"notes,omitempty"`
	Status     string    `json:"status"`
	Due        time.Time `json:"due,omitzero"`
	Completed  time.Time `json:"completed,omitzero"`
	Updated    time.Time `json:"updated,omitzero"`
	Parent     string    `json:"parent,omitempty"`
	Position   string    `json:"position,omitempty"`
	TaskListID string    `json:"task_list_id,omitempty"`
}

// NewTask validates t. An empty status becomes needsAction.
func NewTask(t Task) (*Task, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	if t.Status == "" {
		t.Status = StatusNeedsAction
	}
	return &t, nil
}

func (t *Task) validate() error {
	if err := validate.MaxLen("title", t.Title, MaxTitleLength); err != nil {
		return err
	}
	if err := validate.MaxLen("notes", t.Notes, MaxNotesLength); err != nil {
		return err
	}
	if t.Status != "" {
		if err := validate.OneOf("status", t.Status, statuses...); err != nil {
			return err
		}
	}
	return nil
}

func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// IsOverdue reports an open task whose due date is before today.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.Due.IsZero() || t.IsCompleted() {
		return false
	}
	return t.Due.Before(daterange.UTCDate(now))
}

type TaskList struct {
	ID      string    `json:"task_list_id,omitempty"`
	Title   string    `json:"title"`
	Updated time.Time `json:"updated,omitzero"`
}

func NewTaskList(title string) (*TaskList, error) {
	if err := validateListTitle(title); err != nil {
		return nil, err
	}
	return &TaskList{Title: title}, nil
}

func validateListTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return apierr.Invalidf("task list title is required")
	}
	return validate.MaxLen("title", title, MaxTitleLength)
}

// ListOptions parameterizes tasks.list. Zero times leave that bound open and
// nil flags use the provider default.
type ListOptions struct {
	TaskListID    string
	MaxResults    int
	CompletedMin  time.Time
	CompletedMax  time.Time
	DueMin        time.Time
	DueMax        time.Time
	ShowCompleted *bool
	ShowHidden    *bool
}

// ListParams is the tasks.list request as sent on the wire.
type ListParams struct {
	MaxResults    int
	CompletedMin  string
	CompletedMax  string
	DueMin        string
	DueMax        string
	ShowCompleted *bool
	ShowHidden    *bool
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func (o ListOptions) params() (string, ListParams, error) {
	limit := o.MaxResults
	if limit == 0 {
		limit = DefaultMaxResults
	}
	if err := validate.Limit(limit, MaxResultsLimit); err != nil {
		return "", ListParams{}, err
	}
	if !o.DueMin.IsZero() && !o.DueMax.IsZero() && !o.DueMin.Before(o.DueMax) {
		return "", ListParams{}, apierr.Invalidf("due start must be before due end")
	}
	if !o.CompletedMin.IsZero() && !o.CompletedMax.IsZero() && !o.CompletedMin.Before(o.CompletedMax) {
		return "", ListParams{}, apierr.Invalidf("completed start must be before completed end")
	}
	return listOrDefault(o.TaskListID), ListParams{
		MaxResults:    limit,
		CompletedMin:  formatBound(o.CompletedMin),
		CompletedMax:  formatBound(o.CompletedMax),
		DueMin:        formatBound(o.DueMin),
		DueMax:        formatBound(o.DueMax),
		ShowCompleted: o.ShowCompleted,
		ShowHidden:    o.ShowHidden,
	}, nil
}

func listOrDefault(id string) string {
	if strings.TrimSpace(id) == "" {
		return DefaultTaskListID
	}
	return id
}
