package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"todoTracker/internal/models/category"
	"todoTracker/internal/models/task"
	"todoTracker/internal/repository/inmemory"
	"todoTracker/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEventRepository - мок журнала событий
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Append(ctx context.Context, ev task.NewEvent) (*task.Event, error) {
	args := m.Called(ctx, ev)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Event), args.Error(1)
}

func (m *MockEventRepository) ListForTask(ctx context.Context, taskID int64, limit, offset int) ([]*task.Event, int, error) {
	args := m.Called(ctx, taskID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*task.Event), args.Int(1), args.Error(2)
}

var _ service.EventRepository = (*MockEventRepository)(nil)

// eventsOverride подменяет журнал внутри настоящей единицы работы
type eventsOverride struct {
	service.UnitOfWork
	events service.EventRepository
}

func (u *eventsOverride) Events() service.EventRepository {
	return u.events
}

type brokenJournalStorage struct {
	*inmemory.Storage
	events service.EventRepository
}

func (s *brokenJournalStorage) InTx(ctx context.Context, fn func(ctx context.Context, uow service.UnitOfWork) error) error {
	return s.Storage.InTx(ctx, func(ctx context.Context, uow service.UnitOfWork) error {
		return fn(ctx, &eventsOverride{UnitOfWork: uow, events: s.events})
	})
}

const (
	alice int64 = 1
	bob   int64 = 2
)

func ptr[T any](v T) *T {
	return &v
}

func newTaskService(t *testing.T) (*service.TaskService, *inmemory.Storage) {
	t.Helper()
	storage := inmemory.New()
	return service.NewTaskService(storage), storage
}

func mustCreate(t *testing.T, svc *service.TaskService, owner int64, title string) *task.Task {
	t.Helper()
	created, err := svc.Create(context.Background(), owner, task.NewTask{Title: title})
	require.NoError(t, err)
	return created
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var busErr *service.BusinessError
	require.True(t, errors.As(err, &busErr), "ожидалась BusinessError, получено %v", err)
	assert.Equal(t, code, busErr.Code)
}

// TestTaskService_Create тестирует создание задачи и событие created
func TestTaskService_Create(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTaskService(t)

	created, err := svc.Create(ctx, alice, task.NewTask{
		Title:    "  Buy milk  ",
		Deadline: ptr(time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)),
	})
	require.NoError(t, err)

	assert.Equal(t, "Buy milk", created.Title)
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, task.PriorityMedium, created.Priority)
	assert.Equal(t, task.StatusPending, created.Status)
	assert.Nil(t, created.CompletedAt)
	assert.Nil(t, created.DeletedAt)
	require.NotNil(t, created.Deadline)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), *created.Deadline)

	page, err := svc.ListEvents(ctx, alice, created.ID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	ev := page.Events[0]
	assert.Equal(t, task.EventCreated, ev.Type)
	assert.Equal(t, map[string]any{
		"id":       created.ID,
		"title":    "Buy milk",
		"priority": "medium",
		"status":   "pending",
	}, ev.NewState)
}

// TestTaskService_Create_Validation тестирует отказ на неверных полях
func TestTaskService_Create_Validation(t *testing.T) {
	long := make([]rune, task.MaxTitleLength+1)
	for i := range long {
		long[i] = 'a'
	}
	longDesc := string(make([]byte, task.MaxDescriptionLength+1))

	tests := []struct {
		name  string
		input task.NewTask
		field string
	}{
		{name: "error - empty title", input: task.NewTask{Title: "   "}, field: "title"},
		{name: "error - long title", input: task.NewTask{Title: string(long)}, field: "title"},
		{name: "error - long description", input: task.NewTask{Title: "ok", Description: &longDesc}, field: "description"},
		{name: "error - bad priority", input: task.NewTask{Title: "ok", Priority: "urgent"}, field: "priority"},
		{name: "error - bad status", input: task.NewTask{Title: "ok", Status: "done"}, field: "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTaskService(t)
			_, err := svc.Create(context.Background(), alice, tt.input)
			assertCode(t, err, service.CodeValidation)

			var busErr *service.BusinessError
			require.ErrorAs(t, err, &busErr)
			assert.Equal(t, tt.field, busErr.Details["field"])
		})
	}
}

// TestTaskService_BuyMilkScenario тестирует сквозной сценарий создания, правки, удаления и восстановления
func TestTaskService_BuyMilkScenario(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTaskService(t)

	created, err := svc.Create(ctx, alice, task.NewTask{Title: "Buy milk", Priority: task.PriorityMedium, Status: task.StatusPending})
	require.NoError(t, err)
	assert.Equal(t, 1, created.Version)

	updated, err := svc.Update(ctx, alice, created.ID, task.Changes{Title: task.Some("Buy milk and bread")}, ptr(1))
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)

	events, err := svc.ListEvents(ctx, alice, created.ID, 10, 0)
	require.NoError(t, err)
	updEvent := events.Events[0]
	assert.Equal(t, task.EventUpdated, updEvent.Type)
	assert.Equal(t, "Buy milk", updEvent.OldState["title"])
	assert.Equal(t, "Buy milk and bread", updEvent.NewState["title"])

	deleted, err := svc.Delete(ctx, alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted.Version)
	assert.NotNil(t, deleted.DeletedAt)

	_, err = svc.Get(ctx, alice, created.ID)
	assertCode(t, err, service.CodeNotFound)

	restored, err := svc.Restore(ctx, alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, restored.Version)
	assert.Nil(t, restored.DeletedAt)
}

// TestTaskService_VersionMonotonicity тестирует рост версии на единицу и полноту журнала
func TestTaskService_VersionMonotonicity(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTaskService(t)
	created := mustCreate(t, svc, alice, "Write report")

	steps := []struct {
		name string
		run  func() (*task.Task, error)
		want task.EventType
	}{
		{"update", func() (*task.Task, error) {
			return svc.Update(ctx, alice, created.ID, task.Changes{Priority: task.Some(task.PriorityHigh)}, nil)
		}, task.EventUpdated},
		{"complete", func() (*task.Task, error) { return svc.Complete(ctx, alice, created.ID) }, task.EventCompleted},
		{"complete again", func() (*task.Task, error) { return svc.Complete(ctx, alice, created.ID) }, task.EventCompleted},
		{"delete", func() (*task.Task, error) { return svc.Delete(ctx, alice, created.ID) }, task.EventDeleted},
		{"restore", func() (*task.Task, error) { return svc.Restore(ctx, alice, created.ID) }, task.EventRestored},
		{"empty update", func() (*task.Task, error) {
			return svc.Update(ctx, alice, created.ID, task.Changes{}, nil)
		}, task.EventUpdated},
	}

	for i, step := range steps {
		got, err := step.run()
		require.NoError(t, err, step.name)
		assert.Equal(t, 1+i+1, got.Version, step.name)
	}

	page, err := svc.ListEvents(ctx, alice, created.ID, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, 1+len(steps), page.Total)

	// от новых к старым
	for i, step := range steps {
		assert.Equal(t, step.want, page.Events[len(steps)-1-i].Type, step.name)
	}
	assert.Equal(t, task.EventCreated, page.Events[len(page.Events)-1].Type)
}

// TestTaskService_OptimisticLock тестирует проверку ожидаемой версии
func TestTaskService_OptimisticLock(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTaskService(t)
	created := mustCreate(t, svc, alice, "Plan trip")

	_, err := svc.Update(ctx, alice, created.ID, task.Changes{Title: task.Some("Plan vacation")}, ptr(1))
	require.NoError(t, err)

	t.Run("error - stale version", func(t *testing.T) {
		_, err := svc.Update(ctx, alice, created.ID, task.Changes{Title: task.Some("Stale write")}, ptr(1))
		assertCode(t, err, service.CodeVersionConflict)

		current, err := svc.Get(ctx, alice, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Plan vacation", current.Title)
		assert.Equal(t, 2, current.Version)

		page, err := svc.ListEvents(ctx, alice, created.ID, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)
	})

	t.Run("success - current version", func(t *testing.T) {
		updated, err := svc.Update(ctx, alice, created.ID, task.Changes{Title: task.Some("Plan holiday")}, ptr(2))
		require.NoError(t, err)
		assert.Equal(t, 3, updated.Version)
		assert.Equal(t, "Plan holiday", updated.Title)
	})
}

// TestTaskService_PartialUpdate тестирует различие "не передано" и "очистить"
func TestTaskService_PartialUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTaskService(t)

	created, err := svc.Create(ctx, alice, task.NewTask{
		Title:          "Water plants",
		Description:    ptr("balcony"),
		Deadline:       ptr(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)),
		RecurrenceRule: ptr("FREQ=WEEKLY"),
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, alice, created.ID, task.Changes{
		Description: task.Some[*string](nil),
		Priority:    task.Some(task.PriorityLow),
	}, nil)
	require.NoError(t, err)

	assert.Nil(t, updated.Description)
	assert.Equal(t, task.PriorityLow, updated.Priority)
	assert.Equal(t, "Water plants", updated.Title)
	require.NotNil(t, updated.Deadline)
	require.NotNil(t, updated.RecurrenceRule)
	assert.Equal(t, "FREQ=WEEKLY", *updated.RecurrenceRule)
}

// TestTaskService_CompletedAt тестирует проставление completed_at через update
func TestTaskService_CompletedAt(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTaskService(t)
	created := mustCreate(t, svc, alice, "Pay rent")

	inProgress, err := svc.Update(ctx, alice, created.ID, task.Changes{Status: task.Some(task.StatusInProgress)}, nil)
	require.NoError(t, err)
	assert.Nil(t, inProgress.CompletedAt)

	done, err := svc.Update(ctx, alice, created.ID, task.Changes{Status: task.Some(task.StatusCompleted)}, nil)
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	stamp := *done.CompletedAt

	renamed, err := svc.Update(ctx, alice, created.ID, task.Changes{Title: task.Some("Pay rent (March)")}, nil)
	require.NoError(t, err)
	require.NotNil(t, renamed.CompletedAt)
	assert.Equal(t, stamp, *renamed.CompletedAt)

	reopened, err := svc.Update(ctx, alice, created.ID, task.Changes{Status: task.Some(task.StatusPending)}, nil)
	require.NoError(t, err)
	assert.NotNil(t, reopened.CompletedAt, "completed_at не очищается автоматически")

	completed, err := svc.Complete(ctx, alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	assert.False(t, completed.CompletedAt.Before(stamp))
}

// TestTaskService_SoftDeleteRestore тестирует видимость удалённой задачи
func TestTaskService_SoftDeleteRestore(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTaskService(t)
	original := mustCreate(t, svc, alice, "Call mom")

	_, err := svc.Restore(ctx, alice, original.ID)
	assertCode(t, err, service.CodeNotFound)

	_, err = svc.Delete(ctx, alice, original.ID)
	require.NoError(t, err)

	_, err = svc.Update(ctx, alice, original.ID, task.Changes{Title: task.Some("x")}, nil)
	assertCode(t, err, service.CodeNotFound)
	_, err = svc.Complete(ctx, alice, original.ID)
	assertCode(t, err, service.CodeNotFound)
	_, err = svc.Delete(ctx, alice, original.ID)
	assertCode(t, err, service.CodeNotFound)

	page, err := svc.List(ctx, alice, task.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)

	withDeleted, err := svc.List(ctx, alice, task.Filter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Equal(t, 1, withDeleted.Total)

	restored, err := svc.Restore(ctx, alice, original.ID)
	require.NoError(t, err)

	assert.Equal(t, original.Version+2, restored.Version)
	assert.Nil(t, restored.DeletedAt)
	assert.Equal(t, original.Title, restored.Title)
	assert.Equal(t, original.Status, restored.Status)
	assert.Equal(t, original.Priority, restored.Priority)
	assert.Equal(t, original.CreatedAt, restored.CreatedAt)
}

// TestTaskService_OwnershipIsolation тестирует, что чужая задача выглядит несуществующей
func TestTaskService_OwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTaskService(t)
	owned := mustCreate(t, svc, alice, "Alice's secret")
	deleted := mustCreate(t, svc, alice, "Alice's deleted")
	_, err := svc.Delete(ctx, alice, deleted.ID)
	require.NoError(t, err)

	ops := map[string]func() error{
		"get": func() error { _, err := svc.Get(ctx, bob, owned.ID); return err },
		"update": func() error {
			_, err := svc.Update(ctx, bob, owned.ID, task.Changes{Title: task.Some("pwned")}, nil)
			return err
		},
		"delete":      func() error { _, err := svc.Delete(ctx, bob, owned.ID); return err },
		"complete":    func() error { _, err := svc.Complete(ctx, bob, owned.ID); return err },
		"restore":     func() error { _, err := svc.Restore(ctx, bob, deleted.ID); return err },
		"list events": func() error { _, err := svc.ListEvents(ctx, bob, owned.ID, 10, 0); return err },
		"list deleted events": func() error {
			_, err := svc.ListEvents(ctx, bob, deleted.ID, 10, 0)
			return err
		},
	}

	for name, op := range ops {
		t.Run("error - "+name, func(t *testing.T) {
			assertCode(t, op(), service.CodeNotFound)
		})
	}

	current, err := svc.Get(ctx, alice, owned.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, current.Version)

	bobsPage, err := svc.List(ctx, bob, task.Filter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Equal(t, 0, bobsPage.Total)
}

// TestTaskService_EventAppendFailure тестирует откат мутации при сбое журнала
func TestTaskService_EventAppendFailure(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()
	healthy := service.NewTaskService(storage)
	created := mustCreate(t, healthy, alice, "Atomic task")

	events := new(MockEventRepository)
	events.On("Append", mock.Anything, mock.Anything).Return(nil, errors.New("disk full"))
	broken := service.NewTaskService(&brokenJournalStorage{Storage: storage, events: events})

	tests := []struct {
		name string
		run  func() error
	}{
		{"update", func() error {
			_, err := broken.Update(ctx, alice, created.ID, task.Changes{Title: task.Some("lost")}, ptr(1))
			return err
		}},
		{"complete", func() error { _, err := broken.Complete(ctx, alice, created.ID); return err }},
		{"delete", func() error { _, err := broken.Delete(ctx, alice, created.ID); return err }},
		{"create", func() error { _, err := broken.Create(ctx, alice, task.NewTask{Title: "ghost"}); return err }},
	}

	for _, tt := range tests {
		t.Run("error - "+tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "disk full")
		})
	}

	current, err := healthy.Get(ctx, alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, current.Version)
	assert.Equal(t, "Atomic task", current.Title)
	assert.Equal(t, task.StatusPending, current.Status)

	page, err := healthy.List(ctx, alice, task.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	evs, err := healthy.ListEvents(ctx, alice, created.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, evs.Total)

	events.AssertNumberOfCalls(t, "Append", len(tests))
}

// TestTaskService_ListEvents тестирует пагинацию журнала
func TestTaskService_ListEvents(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTaskService(t)
	created := mustCreate(t, svc, alice, "Paginate me")
	for i := 0; i < 4; i++ {
		_, err := svc.Complete(ctx, alice, created.ID)
		require.NoError(t, err)
	}

	first, err := svc.ListEvents(ctx, alice, created.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, first.Total)
	require.Len(t, first.Events, 2)
	assert.Greater(t, first.Events[0].ID, first.Events[1].ID)

	last, err := svc.ListEvents(ctx, alice, created.ID, 2, 4)
	require.NoError(t, err)
	require.Len(t, last.Events, 1)
	assert.Equal(t, task.EventCreated, last.Events[0].Type)

	beyond, err := svc.ListEvents(ctx, alice, created.ID, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, beyond.Events)
	assert.Equal(t, 5, beyond.Total)
}

// TestTaskService_List тестирует фильтры списка
func TestTaskService_List(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()
	svc := service.NewTaskService(storage)
	categories := service.NewCategoryService(storage)

	home, err := categories.Create(ctx, alice, "Home", nil)
	require.NoError(t, err)

	groceries, err := svc.Create(ctx, alice, task.NewTask{Title: "Groceries", Description: ptr("Milk and EGGS"), Priority: task.PriorityHigh,
		Deadline: ptr(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC))})
	require.NoError(t, err)
	_, err = svc.Create(ctx, alice, task.NewTask{Title: "Taxes", Status: task.StatusInProgress,
		Deadline: ptr(time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC))})
	require.NoError(t, err)
	_, err = svc.Create(ctx, alice, task.NewTask{Title: "Read book", Priority: task.PriorityLow})
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob, task.NewTask{Title: "Bob groceries"})
	require.NoError(t, err)

	_, err = svc.AddCategory(ctx, alice, groceries.ID, home.ID)
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter task.Filter
		want   []string
	}{
		{name: "success - all newest first", filter: task.Filter{}, want: []string{"Read book", "Taxes", "Groceries"}},
		{name: "success - status", filter: task.Filter{Status: ptr(task.StatusInProgress)}, want: []string{"Taxes"}},
		{name: "success - priority", filter: task.Filter{Priority: ptr(task.PriorityHigh)}, want: []string{"Groceries"}},
		{name: "success - search in description", filter: task.Filter{Search: "eggs"}, want: []string{"Groceries"}},
		{name: "success - category", filter: task.Filter{CategoryID: &home.ID}, want: []string{"Groceries"}},
		{name: "success - category list", filter: task.Filter{CategoryIDs: []int64{home.ID, 999}}, want: []string{"Groceries"}},
		{name: "success - deadline range", filter: task.Filter{
			DeadlineFrom: ptr(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)),
			DeadlineTo:   ptr(time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)),
		}, want: []string{"Taxes"}},
		{name: "success - limit and offset", filter: task.Filter{Limit: 1, Offset: 1}, want: []string{"Taxes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.List(ctx, alice, tt.filter)
			require.NoError(t, err)

			titles := make([]string, 0, len(page.Tasks))
			for _, tk := range page.Tasks {
				titles = append(titles, tk.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}

	_, err = svc.List(ctx, alice, task.Filter{Status: ptr(task.Status("archived"))})
	assertCode(t, err, service.CodeValidation)
}

// TestTaskService_Categories тестирует привязку категорий
func TestTaskService_Categories(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()
	svc := service.NewTaskService(storage)
	categories := service.NewCategoryService(storage)

	tk := mustCreate(t, svc, alice, "Fix sink")
	home, err := categories.Create(ctx, alice, "Home", nil)
	require.NoError(t, err)
	urgent, err := categories.Create(ctx, alice, "Urgent", ptr("#ff0000"))
	require.NoError(t, err)
	bobs, err := categories.Create(ctx, bob, "Bob's", nil)
	require.NoError(t, err)

	countEvents := func(eventType task.EventType) int {
		page, err := svc.ListEvents(ctx, alice, tk.ID, 100, 0)
		require.NoError(t, err)
		n := 0
		for _, ev := range page.Events {
			if ev.Type == eventType {
				n++
			}
		}
		return n
	}

	t.Run("success - add is idempotent", func(t *testing.T) {
		first, err := svc.AddCategory(ctx, alice, tk.ID, home.ID)
		require.NoError(t, err)
		second, err := svc.AddCategory(ctx, alice, tk.ID, home.ID)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, countEvents(task.EventCategoryAdded))
	})

	t.Run("error - foreign category", func(t *testing.T) {
		_, err := svc.AddCategory(ctx, alice, tk.ID, bobs.ID)
		assertCode(t, err, service.CodeNotFound)
	})

	t.Run("error - foreign task", func(t *testing.T) {
		_, err := svc.AddCategory(ctx, bob, tk.ID, bobs.ID)
		assertCode(t, err, service.CodeNotFound)
	})

	t.Run("success - remove missing link returns false", func(t *testing.T) {
		removed, err := svc.RemoveCategory(ctx, alice, tk.ID, urgent.ID)
		require.NoError(t, err)
		assert.False(t, removed)
		assert.Equal(t, 0, countEvents(task.EventCategoryRemoved))
	})

	t.Run("success - remove link", func(t *testing.T) {
		removed, err := svc.RemoveCategory(ctx, alice, tk.ID, home.ID)
		require.NoError(t, err)
		assert.True(t, removed)

		page, err := svc.ListEvents(ctx, alice, tk.ID, 1, 0)
		require.NoError(t, err)
		assert.Equal(t, task.EventCategoryRemoved, page.Events[0].Type)
		assert.Equal(t, map[string]any{"category_id": home.ID}, page.Events[0].Payload)
	})

	t.Run("success - sync", func(t *testing.T) {
		_, err := svc.AddCategory(ctx, alice, tk.ID, home.ID)
		require.NoError(t, err)

		ids, err := svc.SyncCategories(ctx, alice, tk.ID, []int64{urgent.ID, urgent.ID})
		require.NoError(t, err)
		assert.Equal(t, []int64{urgent.ID}, ids)

		linked, err := svc.TaskCategories(ctx, alice, tk.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{urgent.ID}, linked)

		_, err = svc.SyncCategories(ctx, alice, tk.ID, []int64{bobs.ID})
		assertCode(t, err, service.CodeNotFound)

		linked, err = svc.TaskCategories(ctx, alice, tk.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{urgent.ID}, linked)
	})

	current, err := svc.Get(ctx, alice, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, current.Version, "связи категорий не меняют версию задачи")
}

// TestCategoryService тестирует CRUD категорий
func TestCategoryService(t *testing.T) {
	ctx := context.Background()
	svc := service.NewCategoryService(inmemory.New())

	work, err := svc.Create(ctx, alice, " Work ", nil)
	require.NoError(t, err)
	assert.Equal(t, "Work", work.Name)

	_, err = svc.Create(ctx, alice, "Work", nil)
	assertCode(t, err, service.CodeCategoryExists)

	_, err = svc.Create(ctx, bob, "Work", nil)
	require.NoError(t, err, "имена уникальны в пределах пользователя")

	_, err = svc.Create(ctx, alice, "", nil)
	assertCode(t, err, service.CodeValidation)

	renamed, err := svc.Update(ctx, alice, work.ID, "Office", ptr("#00ff00"))
	require.NoError(t, err)
	assert.Equal(t, "Office", renamed.Name)

	_, err = svc.Update(ctx, bob, work.ID, "Hijack", nil)
	assertCode(t, err, service.CodeNotFound)

	owns, err := svc.OwnsCategory(ctx, alice, work.ID)
	require.NoError(t, err)
	assert.True(t, owns)
	owns, err = svc.OwnsCategory(ctx, bob, work.ID)
	require.NoError(t, err)
	assert.False(t, owns)

	list, err := svc.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.IsType(t, &category.Category{}, list[0])

	require.NoError(t, svc.Delete(ctx, alice, work.ID))
	_, err = svc.Get(ctx, alice, work.ID)
	assertCode(t, err, service.CodeNotFound)
}
