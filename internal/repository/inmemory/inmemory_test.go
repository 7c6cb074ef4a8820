package inmemory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"todoTracker/internal/models/category"
	"todoTracker/internal/models/idempotency"
	"todoTracker/internal/models/task"
	repo "todoTracker/internal/repository"
	"todoTracker/internal/repository/inmemory"
	"todoTracker/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newStorage() *inmemory.Storage {
	return inmemory.New(inmemory.WithClock(func() time.Time { return testNow }))
}

func createTask(t *testing.T, s *inmemory.Storage, userID int64, title string) *task.Task {
	t.Helper()
	var created *task.Task
	err := s.InTx(context.Background(), func(ctx context.Context, uow service.UnitOfWork) error {
		var err error
		created, err = uow.Tasks().Create(ctx, userID, task.NewTask{Title: title})
		return err
	})
	require.NoError(t, err)
	return created
}

// TestStorage_HealthCheck тестирует проверку здоровья
func TestStorage_HealthCheck(t *testing.T) {
	s := newStorage()
	assert.NoError(t, s.HealthCheck(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.HealthCheck(ctx), context.Canceled)
}

// TestTaskRepo_CreateDefaults тестирует значения по умолчанию при создании
func TestTaskRepo_CreateDefaults(t *testing.T) {
	s := newStorage()
	created := createTask(t, s, 1, "купить хлеб")

	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, task.PriorityMedium, created.Priority)
	assert.Equal(t, task.StatusPending, created.Status)
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, testNow, created.CreatedAt)
	assert.Nil(t, created.CompletedAt)
	assert.Nil(t, created.DeletedAt)
}

// TestStorage_InTxRollback тестирует, что ошибка внутри единицы работы ничего не публикует
func TestStorage_InTxRollback(t *testing.T) {
	s := newStorage()
	boom := errors.New("boom")

	err := s.InTx(context.Background(), func(ctx context.Context, uow service.UnitOfWork) error {
		if _, err := uow.Tasks().Create(ctx, 1, task.NewTask{Title: "черновик"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = s.InTx(context.Background(), func(ctx context.Context, uow service.UnitOfWork) error {
		list, total, err := uow.Tasks().List(ctx, 1, task.Filter{})
		require.NoError(t, err)
		assert.Empty(t, list)
		assert.Equal(t, 0, total)
		return nil
	})
	require.NoError(t, err)
}

// TestTaskRepo_Isolation тестирует, что чужая задача не видна
func TestTaskRepo_Isolation(t *testing.T) {
	s := newStorage()
	created := createTask(t, s, 1, "своя")

	err := s.InTx(context.Background(), func(ctx context.Context, uow service.UnitOfWork) error {
		_, err := uow.Tasks().Fetch(ctx, 2, created.ID)
		assert.ErrorIs(t, err, repo.ErrNotFound)

		_, err = uow.Tasks().SoftDelete(ctx, 2, created.ID)
		assert.ErrorIs(t, err, repo.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

// TestTaskRepo_ApplyUpdate тестирует оптимистичную блокировку
func TestTaskRepo_ApplyUpdate(t *testing.T) {
	tests := []struct {
		name     string
		version  *int
		wantErr  error
		wantVers int
	}{
		{name: "success - без версии", version: nil, wantVers: 2},
		{name: "success - версия совпала", version: ptr(1), wantVers: 2},
		{name: "error - устаревшая версия", version: ptr(5), wantErr: repo.ErrVersionConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStorage()
			created := createTask(t, s, 1, "старое")

			err := s.InTx(context.Background(), func(ctx context.Context, uow service.UnitOfWork) error {
				updated, err := uow.Tasks().ApplyUpdate(ctx, 1, created.ID, tt.version, task.Changes{
					Title: task.Some("новое"),
				})
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
					return nil
				}
				require.NoError(t, err)
				assert.Equal(t, "новое", updated.Title)
				assert.Equal(t, tt.wantVers, updated.Version)
				return nil
			})
			require.NoError(t, err)
		})
	}
}

// TestTaskRepo_Transitions тестирует удаление, восстановление и завершение
func TestTaskRepo_Transitions(t *testing.T) {
	s := newStorage()
	created := createTask(t, s, 1, "задача")

	err := s.InTx(context.Background(), func(ctx context.Context, uow service.UnitOfWork) error {
		tasks := uow.Tasks()

		deleted, err := tasks.SoftDelete(ctx, 1, created.ID)
		require.NoError(t, err)
		assert.True(t, deleted.IsDeleted())
		assert.Equal(t, 2, deleted.Version)

		_, err = tasks.Fetch(ctx, 1, created.ID)
		assert.ErrorIs(t, err, repo.ErrNotFound)
		_, err = tasks.Complete(ctx, 1, created.ID)
		assert.ErrorIs(t, err, repo.ErrNotFound)

		restored, err := tasks.Restore(ctx, 1, created.ID)
		require.NoError(t, err)
		assert.False(t, restored.IsDeleted())

		_, err = tasks.Restore(ctx, 1, created.ID)
		assert.ErrorIs(t, err, repo.ErrNotFound)

		completed, err := tasks.Complete(ctx, 1, created.ID)
		require.NoError(t, err)
		assert.Equal(t, task.StatusCompleted, completed.Status)
		require.NotNil(t, completed.CompletedAt)
		assert.Equal(t, testNow, *completed.CompletedAt)
		assert.Equal(t, 4, completed.Version)
		return nil
	})
	require.NoError(t, err)
}

// TestTaskRepo_BatchApply тестирует пропуск неподходящих и повторных id
func TestTaskRepo_BatchApply(t *testing.T) {
	s := newStorage()
	a := createTask(t, s, 1, "a")
	b := createTask(t, s, 1, "b")
	foreign := createTask(t, s, 2, "чужая")

	err := s.InTx(context.Background(), func(ctx context.Context, uow service.UnitOfWork) error {
		_, err := uow.Tasks().SoftDelete(ctx, 1, b.ID)
		return err
	})
	require.NoError(t, err)

	err = s.InTx(context.Background(), func(ctx context.Context, uow service.UnitOfWork) error {
		ids := []int64{a.ID, b.ID, foreign.ID, 999, a.ID}

		modified, err := uow.Tasks().BatchApply(ctx, 1, ids, task.BatchOp{Action: task.BatchDelete})
		require.NoError(t, err)
		assert.Equal(t, []int64{a.ID}, modified)

		modified, err = uow.Tasks().BatchApply(ctx, 1, ids, task.BatchOp{Action: task.BatchRestore})
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{a.ID, b.ID}, modified)

		high := task.PriorityHigh
		done := task.StatusCompleted
		modified, err = uow.Tasks().BatchApply(ctx, 1, ids, task.BatchOp{Action: task.BatchUpdate, Status: &done, Priority: &high})
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{a.ID, b.ID}, modified)

		got, err := uow.Tasks().Fetch(ctx, 1, a.ID)
		require.NoError(t, err)
		assert.Equal(t, task.PriorityHigh, got.Priority)
		assert.NotNil(t, got.CompletedAt)

		untouched, err := uow.Tasks().Fetch(ctx, 2, foreign.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, untouched.Version)
		return nil
	})
	require.NoError(t, err)
}

// TestTaskRepo_ListFilters тестирует фильтры, поиск и пагинацию
func TestTaskRepo_ListFilters(t *testing.T) {
	s := newStorage()
	groceries := createTask(t, s, 1, "Купить молоко")
	createTask(t, s, 1, "Позвонить маме")
	createTask(t, s, 1, "Купить хлеб")
	createTask(t, s, 2, "Купить чужое")

	var cat *category.Category
	err := s.InTx(context.Background(), func(ctx context.Context, uow service.UnitOfWork) error {
		var err error
		cat, err = uow.Categories().Create(ctx, &category.Category{UserID: 1, Name: "дом"})
		if err != nil {
			return err
		}
		_, err = uow.Categories().AddLink(ctx, groceries.ID, cat.ID)
		return err
	})
	require.NoError(t, err)

	tests := []struct {
		name      string
		filter    task.Filter
		wantTotal int
		wantLen   int
	}{
		{name: "success - все свои", filter: task.Filter{}, wantTotal: 3, wantLen: 3},
		{name: "success - поиск без учёта регистра", filter: task.Filter{Search: "купить"}, wantTotal: 2, wantLen: 2},
		{name: "success - по категории", filter: task.Filter{CategoryID: &cat.ID}, wantTotal: 1, wantLen: 1},
		{name: "success - пагинация", filter: task.Filter{Limit: 2, Offset: 2}, wantTotal: 3, wantLen: 1},
		{name: "success - смещение за пределами", filter: task.Filter{Offset: 10}, wantTotal: 3, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.InTx(context.Background(), func(ctx context.Context, uow service.UnitOfWork) error {
				list, total, err := uow.Tasks().List(ctx, 1, tt.filter)
				require.NoError(t, err)
				assert.Equal(t, tt.wantTotal, total)
				assert.Len(t, list, tt.wantLen)
				return nil
			})
			require.NoError(t, err)
		})
	}
}

// TestCategoryRepo_Duplicate тестирует уникальность имени в пределах пользователя
func TestCategoryRepo_Duplicate(t *testing.T) {
	s := newStorage()
	err := s.InTx(context.Background(), func(ctx context.Context, uow service.UnitOfWork) error {
		_, err := uow.Categories().Create(ctx, &category.Category{UserID: 1, Name: "работа"})
		require.NoError(t, err)

		_, err = uow.Categories().Create(ctx, &category.Category{UserID: 1, Name: "работа"})
		assert.ErrorIs(t, err, repo.ErrDuplicate)

		_, err = uow.Categories().Create(ctx, &category.Category{UserID: 2, Name: "работа"})
		assert.NoError(t, err)
		return nil
	})
	require.NoError(t, err)
}

// TestIdempotencyRepo тестирует первую запись, истечение и пакетную очистку
func TestIdempotencyRepo(t *testing.T) {
	s := newStorage()
	ctx := context.Background()

	err := s.InTx(ctx, func(ctx context.Context, uow service.UnitOfWork) error {
		idem := uow.Idempotency()

		first, err := idem.Insert(ctx, &idempotency.Record{
			UserID: 1, Key: "k1", RequestHash: "h1", ResponseBody: []byte(`{"a":1}`),
			StatusCode: 201, ExpiresAt: testNow.Add(time.Hour),
		})
		require.NoError(t, err)

		second, err := idem.Insert(ctx, &idempotency.Record{
			UserID: 1, Key: "k1", RequestHash: "h2", ResponseBody: []byte(`{"a":2}`),
			StatusCode: 200, ExpiresAt: testNow.Add(time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "h1", second.RequestHash)

		_, err = idem.Lookup(ctx, 2, "k1", testNow)
		assert.ErrorIs(t, err, repo.ErrNotFound)

		_, err = idem.Lookup(ctx, 1, "k1", testNow.Add(time.Hour))
		assert.ErrorIs(t, err, repo.ErrNotFound)

		for _, key := range []string{"old1", "old2", "old3"} {
			_, err := idem.Insert(ctx, &idempotency.Record{UserID: 2, Key: key, ExpiresAt: testNow.Add(-time.Minute)})
			require.NoError(t, err)
		}

		n, err := idem.DeleteExpired(ctx, testNow, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = idem.DeleteExpired(ctx, testNow, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = idem.Lookup(ctx, 1, "k1", testNow)
		assert.NoError(t, err)
		return nil
	})
	require.NoError(t, err)
}

// TestEventRepo_Order тестирует порядок событий от новых к старым
func TestEventRepo_Order(t *testing.T) {
	s := newStorage()
	err := s.InTx(context.Background(), func(ctx context.Context, uow service.UnitOfWork) error {
		for _, typ := range []task.EventType{task.EventCreated, task.EventUpdated, task.EventCompleted} {
			_, err := uow.Events().Append(ctx, task.NewEvent{TaskID: 7, UserID: 1, Type: typ})
			require.NoError(t, err)
		}
		_, err := uow.Events().Append(ctx, task.NewEvent{TaskID: 8, UserID: 1, Type: task.EventCreated})
		require.NoError(t, err)

		events, total, err := uow.Events().ListForTask(ctx, 7, 2, 0)
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, events, 2)
		assert.Equal(t, task.EventCompleted, events[0].Type)
		assert.Equal(t, task.EventUpdated, events[1].Type)
		return nil
	})
	require.NoError(t, err)
}

// TestStorage_ConcurrentCreate тестирует сериализацию единиц работы
func TestStorage_ConcurrentCreate(t *testing.T) {
	s := inmemory.New()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.InTx(context.Background(), func(ctx context.Context, uow service.UnitOfWork) error {
				_, err := uow.Tasks().Create(ctx, 1, task.NewTask{Title: "параллельно"})
				return err
			})
		}()
	}
	wg.Wait()

	err := s.InTx(context.Background(), func(ctx context.Context, uow service.UnitOfWork) error {
		_, total, err := uow.Tasks().List(ctx, 1, task.Filter{})
		require.NoError(t, err)
		assert.Equal(t, 50, total)
		return nil
	})
	require.NoError(t, err)
}

func ptr[T any](v T) *T {
	return &v
}
