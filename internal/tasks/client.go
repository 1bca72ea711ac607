package tasks

import (
	"context"

	tasksapi "google.golang.org/api/tasks/v1"
)

// Client is the subset of the Tasks API the service needs.
type Client interface {
	ListTasks(ctx context.Context, taskListID string, p ListParams) ([]*tasksapi.Task, error)
	GetTask(ctx context.Context, taskListID, taskID string) (*tasksapi.Task, error)
	// InsertTask creates t under parent, or at the top level when parent is empty.
	InsertTask(ctx context.Context, taskListID string, t *tasksapi.Task, parent string) (*tasksapi.Task, error)
	UpdateTask(ctx context.Context, taskListID, taskID string, t *tasksapi.Task) (*tasksapi.Task, error)
	DeleteTask(ctx context.Context, taskListID, taskID string) error
	MoveTask(ctx context.Context, taskListID, taskID, parent, previous string) (*tasksapi.Task, error)

	ListTaskLists(ctx context.Context) ([]*tasksapi.TaskList, error)
	GetTaskList(ctx context.Context, taskListID string) (*tasksapi.TaskList, error)
	InsertTaskList(ctx context.Context, l *tasksapi.TaskList) (*tasksapi.TaskList, error)
	UpdateTaskList(ctx context.Context, taskListID string, l *tasksapi.TaskList) (*tasksapi.TaskList, error)
	DeleteTaskList(ctx context.Context, taskListID string) error
}
