package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"todoTracker/internal/logger"
	"todoTracker/internal/models/category"
	"todoTracker/internal/models/task"
	repo "todoTracker/internal/repository"

	"go.uber.org/zap"
)

// здесь происходит проверка ошибок бизнес-логики.
// Каждая мутация и её событие в журнале выполняются в одной единице работы.

type TaskService struct {
	storage Storage
	now     func() time.Time
}

func NewTaskService(storage Storage) *TaskService {
	return &TaskService{
		storage: storage,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	return s.storage.HealthCheck(ctx)
}

// mapTaskErr переводит ошибки репозитория в бизнес-ошибки
func mapTaskErr(err error, id int64, expectedVersion *int) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return NewNotFound(ResourceTask, id)
	case errors.Is(err, repo.ErrVersionConflict):
		expected := 0
		if expectedVersion != nil {
			expected = *expectedVersion
		}
		return NewVersionConflict(id, expected)
	default:
		return err
	}
}

func (s *TaskService) Create(ctx context.Context, userID int64, nt task.NewTask) (*task.Task, error) {
	nt, err := validateNewTask(nt)
	if err != nil {
		return nil, err
	}

	var created *task.Task
	err = s.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		t, err := uow.Tasks().Create(ctx, userID, nt)
		if err != nil {
			return fmt.Errorf("создание задачи: %w", err)
		}
		if _, err := uow.Events().Append(ctx, task.NewEvent{
			TaskID:   t.ID,
			UserID:   userID,
			Type:     task.EventCreated,
			NewState: t.CreatedSnapshot(),
		}); err != nil {
			return fmt.Errorf("запись события created: %w", err)
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Service: Задача создана", zap.Int64("task_id", created.ID), zap.Int64("user_id", userID))
	return created, nil
}

func (s *TaskService) Get(ctx context.Context, userID, id int64) (*task.Task, error) {
	var found *task.Task
	err := s.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		t, err := uow.Tasks().Fetch(ctx, userID, id)
		if err != nil {
			return mapTaskErr(err, id, nil)
		}
		found = t
		return nil
	})
	return found, err
}

func (s *TaskService) List(ctx context.Context, userID int64, filter task.Filter) (*task.Page, error) {
	filter.Normalize()
	if filter.Status != nil {
		if err := validateStatus(*filter.Status); err != nil {
			return nil, err
		}
	}
	if filter.Priority != nil {
		if err := validatePriority(*filter.Priority); err != nil {
			return nil, err
		}
	}

	page := &task.Page{}
	err := s.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		tasks, total, err := uow.Tasks().List(ctx, userID, filter)
		if err != nil {
			return fmt.Errorf("список задач: %w", err)
		}
		page.Tasks, page.Total = tasks, total
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// Update применяет только переданные поля. expectedVersion nil отключает проверку версии.
func (s *TaskService) Update(ctx context.Context, userID, id int64, changes task.Changes, expectedVersion *int) (*task.Task, error) {
	changes, err := validateChanges(changes)
	if err != nil {
		return nil, err
	}

	var updated *task.Task
	err = s.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		cur, err := uow.Tasks().FetchForUpdate(ctx, userID, id)
		if err != nil {
			return mapTaskErr(err, id, expectedVersion)
		}
		oldState := cur.Snapshot()

		if changes.Status.Set && changes.Status.Value == task.StatusCompleted && cur.Status != task.StatusCompleted {
			now := s.now()
			changes.CompletedAt = task.Some(&now)
		}

		t, err := uow.Tasks().ApplyUpdate(ctx, userID, id, expectedVersion, changes)
		if err != nil {
			if errors.Is(err, repo.ErrVersionConflict) {
				logger.Warn("Service: Конфликт версий при обновлении",
					zap.Int64("task_id", id),
					zap.Int("current_version", cur.Version))
			}
			return mapTaskErr(err, id, expectedVersion)
		}

		ev := task.NewEvent{
			TaskID:   id,
			UserID:   userID,
			Type:     task.EventUpdated,
			OldState: oldState,
			NewState: t.Snapshot(),
		}
		if fields := changes.Fields(); len(fields) > 0 {
			ev.Payload = map[string]any{"fields": fields}
		}
		if _, err := uow.Events().Append(ctx, ev); err != nil {
			return fmt.Errorf("запись события updated: %w", err)
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// transition - общий путь delete/restore/complete: операция хранилища и одно событие
func (s *TaskService) transition(
	ctx context.Context,
	userID, id int64,
	eventType task.EventType,
	op func(ctx context.Context, tasks TaskRepository) (*task.Task, error),
) (*task.Task, error) {
	var result *task.Task
	err := s.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		t, err := op(ctx, uow.Tasks())
		if err != nil {
			return mapTaskErr(err, id, nil)
		}
		if _, err := uow.Events().Append(ctx, task.NewEvent{
			TaskID: id,
			UserID: userID,
			Type:   eventType,
		}); err != nil {
			return fmt.Errorf("запись события %s: %w", eventType, err)
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Service: Переход состояния задачи",
		zap.Int64("task_id", id),
		zap.String("event", string(eventType)),
		zap.Int("version", result.Version))
	return result, nil
}

func (s *TaskService) Delete(ctx context.Context, userID, id int64) (*task.Task, error) {
	return s.transition(ctx, userID, id, task.EventDeleted, func(ctx context.Context, tasks TaskRepository) (*task.Task, error) {
		return tasks.SoftDelete(ctx, userID, id)
	})
}

func (s *TaskService) Restore(ctx context.Context, userID, id int64) (*task.Task, error) {
	return s.transition(ctx, userID, id, task.EventRestored, func(ctx context.Context, tasks TaskRepository) (*task.Task, error) {
		return tasks.Restore(ctx, userID, id)
	})
}

func (s *TaskService) Complete(ctx context.Context, userID, id int64) (*task.Task, error) {
	return s.transition(ctx, userID, id, task.EventCompleted, func(ctx context.Context, tasks TaskRepository) (*task.Task, error) {
		return tasks.Complete(ctx, userID, id)
	})
}

// ownedAnyState находит задачу владельца, в том числе удалённую
func ownedAnyState(ctx context.Context, tasks TaskRepository, userID, id int64) (*task.Task, error) {
	t, err := tasks.Fetch(ctx, userID, id)
	if errors.Is(err, repo.ErrNotFound) {
		t, err = tasks.FetchDeleted(ctx, userID, id)
	}
	return t, err
}

func (s *TaskService) ListEvents(ctx context.Context, userID, taskID int64, limit, offset int) (*task.EventPage, error) {
	if limit <= 0 {
		limit = task.DefaultEventsLimit
	}
	limit = min(limit, task.MaxEventsLimit)
	offset = max(offset, 0)

	page := &task.EventPage{}
	err := s.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		if _, err := ownedAnyState(ctx, uow.Tasks(), userID, taskID); err != nil {
			return mapTaskErr(err, taskID, nil)
		}
		events, total, err := uow.Events().ListForTask(ctx, taskID, limit, offset)
		if err != nil {
			return fmt.Errorf("журнал задачи: %w", err)
		}
		page.Events, page.Total = events, total
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// ownsCategory - проверка владельца категории, общая для задач и категорий
func ownsCategory(ctx context.Context, uow UnitOfWork, userID, categoryID int64) (bool, error) {
	_, err := uow.Categories().Get(ctx, userID, categoryID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repo.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("проверка категории: %w", err)
	}
}

// checkLinkOwnership - две независимые проверки владельца: задачи и категории
func checkLinkOwnership(ctx context.Context, uow UnitOfWork, userID, taskID, categoryID int64) error {
	if _, err := uow.Tasks().Fetch(ctx, userID, taskID); err != nil {
		return mapTaskErr(err, taskID, nil)
	}
	owns, err := ownsCategory(ctx, uow, userID, categoryID)
	if err != nil {
		return err
	}
	if !owns {
		return NewNotFound(ResourceCategory, categoryID)
	}
	return nil
}

func categoryEvent(taskID, userID, categoryID int64, eventType task.EventType) task.NewEvent {
	return task.NewEvent{
		TaskID:  taskID,
		UserID:  userID,
		Type:    eventType,
		Payload: map[string]any{"category_id": categoryID},
	}
}

// AddCategory идемпотентна: существующая связь возвращается без нового события
func (s *TaskService) AddCategory(ctx context.Context, userID, taskID, categoryID int64) (*category.Link, error) {
	if err := validateID("category_id", categoryID); err != nil {
		return nil, err
	}

	var link *category.Link
	err := s.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		if err := checkLinkOwnership(ctx, uow, userID, taskID, categoryID); err != nil {
			return err
		}

		existing, err := uow.Categories().GetLink(ctx, taskID, categoryID)
		if err == nil {
			link = existing
			return nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("поиск связи: %w", err)
		}

		link, err = uow.Categories().AddLink(ctx, taskID, categoryID)
		if err != nil {
			return fmt.Errorf("добавление связи: %w", err)
		}
		if _, err := uow.Events().Append(ctx, categoryEvent(taskID, userID, categoryID, task.EventCategoryAdded)); err != nil {
			return fmt.Errorf("запись события category_added: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

// RemoveCategory возвращает false, если связи не было
func (s *TaskService) RemoveCategory(ctx context.Context, userID, taskID, categoryID int64) (bool, error) {
	var removed bool
	err := s.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		if err := checkLinkOwnership(ctx, uow, userID, taskID, categoryID); err != nil {
			return err
		}

		var err error
		removed, err = uow.Categories().RemoveLink(ctx, taskID, categoryID)
		if err != nil {
			return fmt.Errorf("удаление связи: %w", err)
		}
		if !removed {
			return nil
		}
		if _, err := uow.Events().Append(ctx, categoryEvent(taskID, userID, categoryID, task.EventCategoryRemoved)); err != nil {
			return fmt.Errorf("запись события category_removed: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// SyncCategories заменяет набор категорий задачи, по событию на каждое отличие
func (s *TaskService) SyncCategories(ctx context.Context, userID, taskID int64, categoryIDs []int64) ([]int64, error) {
	want := slices.Clone(categoryIDs)
	slices.Sort(want)
	want = slices.Compact(want)
	for _, id := range want {
		if err := validateID("category_ids", id); err != nil {
			return nil, err
		}
	}

	err := s.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		if _, err := uow.Tasks().Fetch(ctx, userID, taskID); err != nil {
			return mapTaskErr(err, taskID, nil)
		}
		for _, cid := range want {
			owns, err := ownsCategory(ctx, uow, userID, cid)
			if err != nil {
				return err
			}
			if !owns {
				return NewNotFound(ResourceCategory, cid)
			}
		}

		have, err := uow.Categories().ListTaskCategoryIDs(ctx, taskID)
		if err != nil {
			return fmt.Errorf("категории задачи: %w", err)
		}

		for _, cid := range have {
			if slices.Contains(want, cid) {
				continue
			}
			if _, err := uow.Categories().RemoveLink(ctx, taskID, cid); err != nil {
				return fmt.Errorf("удаление связи: %w", err)
			}
			if _, err := uow.Events().Append(ctx, categoryEvent(taskID, userID, cid, task.EventCategoryRemoved)); err != nil {
				return fmt.Errorf("запись события category_removed: %w", err)
			}
		}
		for _, cid := range want {
			if slices.Contains(have, cid) {
				continue
			}
			if _, err := uow.Categories().AddLink(ctx, taskID, cid); err != nil {
				return fmt.Errorf("добавление связи: %w", err)
			}
			if _, err := uow.Events().Append(ctx, categoryEvent(taskID, userID, cid, task.EventCategoryAdded)); err != nil {
				return fmt.Errorf("запись события category_added: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if want == nil {
		want = []int64{}
	}
	return want, nil
}

func (s *TaskService) TaskCategories(ctx context.Context, userID, taskID int64) ([]int64, error) {
	var ids []int64
	err := s.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		if _, err := ownedAnyState(ctx, uow.Tasks(), userID, taskID); err != nil {
			return mapTaskErr(err, taskID, nil)
		}
		var err error
		ids, err = uow.Categories().ListTaskCategoryIDs(ctx, taskID)
		return err
	})
	return ids, err
}
