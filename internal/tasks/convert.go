package tasks

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	tasksapi "google.golang.org/api/tasks/v1"

	"github.com/joshsymonds/gworkspace/internal/apierr"
	"github.com/joshsymonds/gworkspace/internal/daterange"
	"github.com/joshsymonds/gworkspace/internal/logsafe"
)

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func fromAPITask(raw *tasksapi.Task, taskListID string, logger *slog.Logger) Task {
	t := Task{
		ID:         raw.Id,
		Title:      strings.TrimSpace(raw.Title),
		Notes:      strings.TrimSpace(raw.Notes),
		Status:     raw.Status,
		Parent:     raw.Parent,
		Position:   raw.Position,
		TaskListID: taskListID,
	}
	if !slices.Contains(statuses, t.Status) {
		if t.Status != "" {
			logger.Warn("unknown task status", "task_id", logsafe.ID(raw.Id), "status", t.Status)
		}
		t.Status = StatusNeedsAction
	}
	if due, ok := parseTimestamp(raw.Due); ok {
		if !due.IsZero() {
			t.Due = daterange.UTCDate(due)
		}
	} else {
		logger.Warn("unparsable task due date", "task_id", logsafe.ID(raw.Id), "due", raw.Due)
	}
	if raw.Completed != nil {
		if c, ok := parseTimestamp(*raw.Completed); ok {
			t.Completed = c
		} else {
			logger.Warn("unparsable task completion time", "task_id", logsafe.ID(raw.Id))
		}
	}
	if u, ok := parseTimestamp(raw.Updated); ok {
		t.Updated = u
	}
	return t
}

// taskToAPI builds a request body carrying t.ID. Parent and position are
// read-only on the resource and travel as insert/move parameters instead.
func taskToAPI(t Task) (*tasksapi.Task, error) {
	if strings.TrimSpace(t.Title) == "" {
		return nil, apierr.Invalidf("task title is required")
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	body := &tasksapi.Task{
		Id:     t.ID,
		Title:  t.Title,
		Notes:  t.Notes,
		Status: t.Status,
	}
	if body.Status == "" {
		body.Status = StatusNeedsAction
	}
	if !t.Due.IsZero() {
		body.Due = daterange.UTCDate(t.Due).Format(time.RFC3339)
	}
	if !t.Completed.IsZero() {
		c := t.Completed.UTC().Format(time.RFC3339)
		body.Completed = &c
	}
	return body, nil
}

func fromAPITaskList(raw *tasksapi.TaskList) TaskList {
	l := TaskList{ID: raw.Id, Title: strings.TrimSpace(raw.Title)}
	if u, ok := parseTimestamp(raw.Updated); ok {
		l.Updated = u
	}
	return l
}
