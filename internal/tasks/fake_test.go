package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"google.golang.org/api/googleapi"
	tasksapi "google.golang.org/api/tasks/v1"
)

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type listCall struct {
	taskListID string
	params     ListParams
}

type insertCall struct {
	taskListID string
	body       *tasksapi.Task
	parent     string
}

type moveCall struct {
	taskID, parent, previous string
}

type fakeClient struct {
	mu        sync.Mutex
	lists     []listCall
	items     map[string][]*tasksapi.Task // by task list id
	listErr   map[string]error
	tasks     map[string]*tasksapi.Task // by task id
	inserted  []insertCall
	updated   []*tasksapi.Task
	deleted   []string
	moves     []moveCall
	taskLists map[string]*tasksapi.TaskList
	deleteErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		items:     map[string][]*tasksapi.Task{},
		listErr:   map[string]error{},
		tasks:     map[string]*tasksapi.Task{},
		taskLists: map[string]*tasksapi.TaskList{},
	}
}

var errBoom = errors.New("boom")

func statusErr(code int) error { return &googleapi.Error{Code: code, Message: http.StatusText(code)} }

func (f *fakeClient) ListTasks(_ context.Context, taskListID string, p ListParams) ([]*tasksapi.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, listCall{taskListID, p})
	if err := f.listErr[taskListID]; err != nil {
		return nil, err
	}
	items := f.items[taskListID]
	if len(items) > p.MaxResults {
		items = items[:p.MaxResults]
	}
	return items, nil
}

func (f *fakeClient) GetTask(_ context.Context, _, taskID string) (*tasksapi.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok {
		return nil, statusErr(http.StatusNotFound)
	}
	return t, nil
}

func (f *fakeClient) InsertTask(_ context.Context, taskListID string, t *tasksapi.Task, parent string) (*tasksapi.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, insertCall{taskListID, t, parent})
	out := *t
	out.Id = "task-" + strconv.Itoa(len(f.inserted))
	out.Parent = parent
	f.tasks[out.Id] = &out
	return &out, nil
}

func (f *fakeClient) UpdateTask(_ context.Context, _, taskID string, t *tasksapi.Task) (*tasksapi.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[taskID]; !ok {
		return nil, statusErr(http.StatusNotFound)
	}
	f.updated = append(f.updated, t)
	out := *t
	out.Id = taskID
	f.tasks[taskID] = &out
	return &out, nil
}

func (f *fakeClient) DeleteTask(_ context.Context, _, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[taskID]; !ok {
		return statusErr(http.StatusNotFound)
	}
	delete(f.tasks, taskID)
	f.deleted = append(f.deleted, taskID)
	return nil
}

func (f *fakeClient) MoveTask(_ context.Context, _, taskID, parent, previous string) (*tasksapi.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok {
		return nil, statusErr(http.StatusNotFound)
	}
	f.moves = append(f.moves, moveCall{taskID, parent, previous})
	out := *t
	out.Parent = parent
	return &out, nil
}

func (f *fakeClient) ListTaskLists(context.Context) ([]*tasksapi.TaskList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*tasksapi.TaskList, 0, len(f.taskLists))
	for _, l := range f.taskLists {
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeClient) GetTaskList(_ context.Context, id string) (*tasksapi.TaskList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.taskLists[id]
	if !ok {
		return nil, statusErr(http.StatusNotFound)
	}
	return l, nil
}

func (f *fakeClient) InsertTaskList(_ context.Context, l *tasksapi.TaskList) (*tasksapi.TaskList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := *l
	out.Id = "list-" + strconv.Itoa(len(f.taskLists)+1)
	f.taskLists[out.Id] = &out
	return &out, nil
}

func (f *fakeClient) UpdateTaskList(_ context.Context, id string, l *tasksapi.TaskList) (*tasksapi.TaskList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.taskLists[id]; !ok {
		return nil, statusErr(http.StatusNotFound)
	}
	out := *l
	out.Id = id
	f.taskLists[id] = &out
	return &out, nil
}

func (f *fakeClient) DeleteTaskList(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.taskLists[id]; !ok {
		return statusErr(http.StatusNotFound)
	}
	delete(f.taskLists, id)
	return nil
}

var _ Client = (*fakeClient)(nil)

func apiTask(id, title, status, due string) *tasksapi.Task {
	return &tasksapi.Task{Id: id, Title: title, Status: status, Due: due}
}
