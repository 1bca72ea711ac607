package tasks

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tasksapi "google.golang.org/api/tasks/v1"

	"github.com/joshsymonds/gworkspace/internal/apierr"
	"github.com/joshsymonds/gworkspace/internal/fanout"
)

func TestListTasks(t *testing.T) {
	f := newFakeClient()
	f.items["work"] = []*tasksapi.Task{
		apiTask("t1", "one", StatusNeedsAction, ""),
		apiTask("t2", "two", StatusCompleted, ""),
	}
	s := NewService(f, nil, slogDiscard())

	tasks, err := s.ListTasks(context.Background(), ListOptions{TaskListID: "work"})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "work", tasks[0].TaskListID)

	f.listErr[DefaultTaskListID] = statusErr(http.StatusUnauthorized)
	_, err = s.ListTasks(context.Background(), ListOptions{})
	assert.ErrorIs(t, err, apierr.ErrTasks)
	assert.ErrorIs(t, err, apierr.ErrUnauthorized)
}

func TestCreateTask(t *testing.T) {
	f := newFakeClient()
	s := NewService(f, nil, slogDiscard())

	created, err := s.CreateTask(context.Background(), "", Task{Title: "child", Parent: "p1"})
	require.NoError(t, err)
	assert.Equal(t, "task-1", created.ID)
	assert.Equal(t, "p1", created.Parent)
	require.Len(t, f.inserted, 1)
	assert.Equal(t, DefaultTaskListID, f.inserted[0].taskListID)
	assert.Equal(t, "p1", f.inserted[0].parent)

	_, err = s.CreateTask(context.Background(), "", Task{ID: "stale", Title: "copy"})
	require.NoError(t, err)
	require.Len(t, f.inserted, 2)
	assert.Empty(t, f.inserted[1].body.Id)

	_, err = s.CreateTask(context.Background(), "", Task{})
	assert.ErrorIs(t, err, apierr.ErrInvalid)
	assert.Len(t, f.inserted, 2)
}

func TestGetUpdateDeleteTask(t *testing.T) {
	f := newFakeClient()
	f.tasks["t1"] = apiTask("t1", "old", StatusNeedsAction, "")
	s := NewService(f, nil, slogDiscard())
	ctx := context.Background()

	task, err := s.GetTask(ctx, "", "t1")
	require.NoError(t, err)
	task.Title = "new"
	updated, err := s.UpdateTask(ctx, "", task)
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Title)
	require.Len(t, f.updated, 1)
	assert.Equal(t, "t1", f.updated[0].Id)

	require.NoError(t, s.DeleteTask(ctx, "", task))
	assert.Equal(t, []string{"t1"}, f.deleted)

	_, err = s.GetTask(ctx, "", "t1")
	assert.True(t, IsNotFound(err))

	_, err = s.GetTask(ctx, "", " ")
	assert.ErrorIs(t, err, apierr.ErrInvalid)
	assert.ErrorIs(t, s.DeleteTask(ctx, "", &Task{}), apierr.ErrInvalid)
}

func TestMoveTask(t *testing.T) {
	f := newFakeClient()
	f.tasks["t1"] = apiTask("t1", "x", StatusNeedsAction, "")
	s := NewService(f, nil, slogDiscard())

	moved, err := s.MoveTask(context.Background(), "", &Task{ID: "t1"}, "p1", "t0")
	require.NoError(t, err)
	assert.Equal(t, "p1", moved.Parent)
	assert.Equal(t, []moveCall{{"t1", "p1", "t0"}}, f.moves)

	_, err = s.MoveTask(context.Background(), "", &Task{ID: "nope"}, "", "")
	assert.ErrorIs(t, err, apierr.ErrNotFound)
}

func TestMarkCompletedAndIncomplete(t *testing.T) {
	f := newFakeClient()
	f.tasks["t1"] = apiTask("t1", "Water plants", StatusNeedsAction, "")
	s := NewService(f, nil, slogDiscard())
	s.Clock = func() time.Time { return time.Date(2026, 10, 15, 14, 30, 0, 500, time.UTC) }
	ctx := context.Background()
	task := &Task{ID: "t1", Title: "Water plants", Status: StatusNeedsAction}

	_, err := s.MarkCompleted(ctx, "", task)
	require.NoError(t, err)
	assert.True(t, task.IsCompleted())
	assert.Equal(t, time.Date(2026, 10, 15, 14, 30, 0, 0, time.UTC), task.Completed)
	require.NotNil(t, f.updated[0].Completed)
	assert.Equal(t, "2026-10-15T14:30:00Z", *f.updated[0].Completed)
	assert.Empty(t, f.updated[0].NullFields)

	_, err = s.MarkIncomplete(ctx, "", task)
	require.NoError(t, err)
	assert.Equal(t, StatusNeedsAction, task.Status)
	assert.True(t, task.Completed.IsZero())
	assert.Nil(t, f.updated[1].Completed)
	assert.Equal(t, []string{"Completed"}, f.updated[1].NullFields)

	missing := &Task{ID: "gone", Title: "x", Status: StatusNeedsAction}
	_, err = s.MarkCompleted(ctx, "", missing)
	assert.ErrorIs(t, err, apierr.ErrNotFound)
	assert.Equal(t, StatusNeedsAction, missing.Status, "record untouched on failure")
}

func TestTaskLists(t *testing.T) {
	f := newFakeClient()
	s := NewService(f, nil, slogDiscard())
	ctx := context.Background()

	l, err := s.CreateTaskList(ctx, "Errands")
	require.NoError(t, err)
	assert.Equal(t, "list-1", l.ID)

	_, err = s.UpdateTaskList(ctx, l, "Chores")
	require.NoError(t, err)
	assert.Equal(t, "Chores", l.Title)

	got, err := s.GetTaskList(ctx, "list-1")
	require.NoError(t, err)
	assert.Equal(t, "Chores", got.Title)

	lists, err := s.ListTaskLists(ctx)
	require.NoError(t, err)
	assert.Len(t, lists, 1)

	require.NoError(t, s.DeleteTaskList(ctx, l))
	_, err = s.GetTaskList(ctx, "list-1")
	assert.ErrorIs(t, err, apierr.ErrNotFound)

	_, err = s.CreateTaskList(ctx, "")
	assert.ErrorIs(t, err, apierr.ErrInvalid)
	_, err = s.UpdateTaskList(ctx, &TaskList{}, "x")
	assert.ErrorIs(t, err, apierr.ErrInvalid)
}

func TestDeleteDefaultTaskList(t *testing.T) {
	f := newFakeClient()
	f.deleteErr = statusErr(http.StatusBadRequest)
	s := NewService(f, nil, slogDiscard())

	err := s.DeleteTaskList(context.Background(), &TaskList{ID: "MTIzNDU"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apierr.ErrTasks)
	assert.ErrorIs(t, err, apierr.ErrInvalidQuery)
	assert.Contains(t, err.Error(), "cannot delete default list")

	f.deleteErr = statusErr(http.StatusForbidden)
	err = s.DeleteTaskList(context.Background(), &TaskList{ID: "x"})
	assert.ErrorIs(t, err, apierr.ErrPermission)
	assert.NotContains(t, err.Error(), "default list")
}

func TestBatchGetTasksSkipsMissing(t *testing.T) {
	f := newFakeClient()
	f.tasks["t1"] = apiTask("t1", "one", StatusNeedsAction, "")
	f.tasks["t3"] = apiTask("t3", "three", StatusNeedsAction, "")
	s := NewService(f, nil, slogDiscard())

	tasks, err := s.BatchGetTasks(context.Background(), "", []string{"t1", "t2", "t3"}, fanout.Options{})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "one", tasks[0].Title)
	assert.Equal(t, "three", tasks[1].Title)

	_, err = s.BatchGetTasks(context.Background(), "", []string{"t2"}, fanout.Options{OnError: fanout.Raise})
	assert.True(t, IsNotFound(err))
}

func TestBatchCreateTasksRaisesByDefault(t *testing.T) {
	f := newFakeClient()
	s := NewService(f, nil, slogDiscard())
	batch := []Task{{Title: "a"}, {Title: ""}, {Title: "c"}}

	_, err := s.BatchCreateTasks(context.Background(), "", batch, fanout.Options{Concurrency: 1})
	assert.ErrorIs(t, err, apierr.ErrInvalid)
	assert.Len(t, f.inserted, 1)

	created, err := s.BatchCreateTasks(context.Background(), "", batch, fanout.Options{OnError: fanout.Skip})
	require.NoError(t, err)
	assert.Len(t, created, 2)
}
