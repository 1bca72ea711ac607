package runtime

import (
	"context"

	tasksapi "google.golang.org/api/tasks/v1"

	"github.com/joshsymonds/gworkspace/internal/tasks"
)

type tasksClient struct{ svc *tasksapi.Service }

func NewTasksClient(svc *tasksapi.Service) tasks.Client { return &tasksClient{svc} }

func (c *tasksClient) ListTasks(ctx context.Context, taskListID string, p tasks.ListParams) ([]*tasksapi.Task, error) {
	call := c.svc.Tasks.List(taskListID).MaxResults(int64(p.MaxResults))
	if p.CompletedMin != "" {
		call = call.CompletedMin(p.CompletedMin)
	}
	if p.CompletedMax != "" {
		call = call.CompletedMax(p.CompletedMax)
	}
	if p.DueMin != "" {
		call = call.DueMin(p.DueMin)
	}
	if p.DueMax != "" {
		call = call.DueMax(p.DueMax)
	}
	if p.ShowCompleted != nil {
		call = call.ShowCompleted(*p.ShowCompleted)
	}
	if p.ShowHidden != nil {
		call = call.ShowHidden(*p.ShowHidden)
	}
	res, err := call.Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (c *tasksClient) GetTask(ctx context.Context, taskListID, taskID string) (*tasksapi.Task, error) {
	return c.svc.Tasks.Get(taskListID, taskID).Context(ctx).Do()
}

func (c *tasksClient) InsertTask(ctx context.Context, taskListID string, t *tasksapi.Task, parent string) (*tasksapi.Task, error) {
	call := c.svc.Tasks.Insert(taskListID, t)
	if parent != "" {
		call = call.Parent(parent)
	}
	return call.Context(ctx).Do()
}

func (c *tasksClient) UpdateTask(ctx context.Context, taskListID, taskID string, t *tasksapi.Task) (*tasksapi.Task, error) {
	return c.svc.Tasks.Update(taskListID, taskID, t).Context(ctx).Do()
}

func (c *tasksClient) DeleteTask(ctx context.Context, taskListID, taskID string) error {
	return c.svc.Tasks.Delete(taskListID, taskID).Context(ctx).Do()
}

func (c *tasksClient) MoveTask(ctx context.Context, taskListID, taskID, parent, previous string) (*tasksapi.Task, error) {
	call := c.svc.Tasks.Move(taskListID, taskID)
	if parent != "" {
		call = call.Parent(parent)
	}
	if previous != "" {
		call = call.Previous(previous)
	}
	return call.Context(ctx).Do()
}

func (c *tasksClient) ListTaskLists(ctx context.Context) ([]*tasksapi.TaskList, error) {
	var out []*tasksapi.TaskList
	err := c.svc.Tasklists.List().Pages(ctx, func(page *tasksapi.TaskLists) error {
		out = append(out, page.Items...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *tasksClient) GetTaskList(ctx context.Context, taskListID string) (*tasksapi.TaskList, error) {
	return c.svc.Tasklists.Get(taskListID).Context(ctx).Do()
}

func (c *tasksClient) InsertTaskList(ctx context.Context, l *tasksapi.TaskList) (*tasksapi.TaskList, error) {
	return c.svc.Tasklists.Insert(l).Context(ctx).Do()
}

func (c *tasksClient) UpdateTaskList(ctx context.Context, taskListID string, l *tasksapi.TaskList) (*tasksapi.TaskList, error) {
	return c.svc.Tasklists.Update(taskListID, l).Context(ctx).Do()
}

func (c *tasksClient) DeleteTaskList(ctx context.Context, taskListID string) error {
	return c.svc.Tasklists.Delete(taskListID).Context(ctx).Do()
}

var _ tasks.Client = (*tasksClient)(nil)
