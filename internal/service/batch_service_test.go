package service_test

import (
	"context"
	"testing"

	"todoTracker/internal/models/task"
	"todoTracker/internal/repository/inmemory"
	"todoTracker/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBatchFixture(t *testing.T) (*service.TaskService, *service.BatchExecutor) {
	t.Helper()
	storage := inmemory.New()
	return service.NewTaskService(storage), service.NewBatchExecutor(storage)
}

func eventTypes(t *testing.T, svc *service.TaskService, owner, id int64) []task.EventType {
	t.Helper()
	page, err := svc.ListEvents(context.Background(), owner, id, 100, 0)
	require.NoError(t, err)
	types := make([]task.EventType, 0, len(page.Events))
	for _, ev := range page.Events {
		types = append(types, ev.Type)
	}
	return types
}

// TestBatchExecutor_PartialEligibility тестирует пропуск чужих и отсутствующих задач
func TestBatchExecutor_PartialEligibility(t *testing.T) {
	ctx := context.Background()
	svc, batch := newBatchFixture(t)

	mine := mustCreate(t, svc, alice, "Mine")
	theirs := mustCreate(t, svc, bob, "Theirs")

	res, err := batch.Complete(ctx, alice, []int64{mine.ID, theirs.ID, 9999})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 3, res.TotalRequested)
	assert.Equal(t, []int64{mine.ID}, res.IDs)

	completed, err := svc.Get(ctx, alice, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)
	assert.Equal(t, 2, completed.Version)

	untouched, err := svc.Get(ctx, bob, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusPending, untouched.Status)
	assert.Equal(t, 1, untouched.Version)
	assert.Equal(t, []task.EventType{task.EventCreated}, eventTypes(t, svc, bob, theirs.ID))
}

// TestBatchExecutor_DeleteRestore тестирует критерии пригодности удаления и восстановления
func TestBatchExecutor_DeleteRestore(t *testing.T) {
	ctx := context.Background()
	svc, batch := newBatchFixture(t)

	a := mustCreate(t, svc, alice, "A")
	b := mustCreate(t, svc, alice, "B")

	res, err := batch.Restore(ctx, alice, []int64{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Updated, "неудалённые задачи не восстанавливаются")

	res, err = batch.Delete(ctx, alice, []int64{a.ID, a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 3, res.TotalRequested)

	res, err = batch.Delete(ctx, alice, []int64{a.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Updated, "удалённая задача повторно не удаляется")

	res, err = batch.Complete(ctx, alice, []int64{a.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Updated)

	res, err = batch.Restore(ctx, alice, []int64{a.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	restored, err := svc.Get(ctx, alice, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, restored.Version)
	assert.Equal(t, []task.EventType{task.EventRestored, task.EventDeleted, task.EventCreated}, eventTypes(t, svc, alice, a.ID))
}

// TestBatchExecutor_Update тестирует пакетную смену статуса и приоритета
func TestBatchExecutor_Update(t *testing.T) {
	ctx := context.Background()
	svc, batch := newBatchFixture(t)

	a := mustCreate(t, svc, alice, "A")
	b := mustCreate(t, svc, alice, "B")

	res, err := batch.Update(ctx, alice, []int64{a.ID, b.ID}, ptr(task.StatusCompleted), ptr(task.PriorityHigh))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, []string{"status", "priority"}, res.FieldsUpdated)

	for _, id := range []int64{a.ID, b.ID} {
		got, err := svc.Get(ctx, alice, id)
		require.NoError(t, err)
		assert.Equal(t, task.StatusCompleted, got.Status)
		assert.Equal(t, task.PriorityHigh, got.Priority)
		assert.NotNil(t, got.CompletedAt)
		assert.Equal(t, 2, got.Version)

		page, err := svc.ListEvents(ctx, alice, id, 1, 0)
		require.NoError(t, err)
		ev := page.Events[0]
		assert.Equal(t, task.EventUpdated, ev.Type)
		assert.Equal(t, "completed", ev.Payload["status"])
		assert.Equal(t, "high", ev.Payload["priority"])
	}
}

// TestBatchExecutor_Validation тестирует проверку запроса до обращения к хранилищу
func TestBatchExecutor_Validation(t *testing.T) {
	ctx := context.Background()
	_, batch := newBatchFixture(t)

	tooMany := make([]int64, task.MaxBatchSize+1)
	for i := range tooMany {
		tooMany[i] = int64(i + 1)
	}

	tests := []struct {
		name string
		run  func() error
	}{
		{"error - empty ids", func() error { _, err := batch.Complete(ctx, alice, nil); return err }},
		{"error - too many ids", func() error { _, err := batch.Delete(ctx, alice, tooMany); return err }},
		{"error - non positive id", func() error { _, err := batch.Restore(ctx, alice, []int64{1, 0}); return err }},
		{"error - update without fields", func() error { _, err := batch.Update(ctx, alice, []int64{1}, nil, nil); return err }},
		{"error - update bad status", func() error {
			_, err := batch.Update(ctx, alice, []int64{1}, ptr(task.Status("archived")), nil)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertCode(t, tt.run(), service.CodeValidation)
		})
	}

	exactly := tooMany[:task.MaxBatchSize]
	res, err := batch.Complete(ctx, alice, exactly)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, task.MaxBatchSize, res.TotalRequested)
}
