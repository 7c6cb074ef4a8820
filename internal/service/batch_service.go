package service

import (
	"context"
	"fmt"

	"todoTracker/internal/logger"
	"todoTracker/internal/models/task"

	"go.uber.org/zap"
)

// BatchExecutor применяет одно преобразование к набору задач владельца.
// Чужие, отсутствующие и неподходящие id молча пропускаются.
type BatchExecutor struct {
	storage Storage
}

func NewBatchExecutor(storage Storage) *BatchExecutor {
	return &BatchExecutor{storage: storage}
}

func (b *BatchExecutor) Complete(ctx context.Context, userID int64, ids []int64) (*task.BatchResult, error) {
	return b.run(ctx, userID, ids, task.BatchOp{Action: task.BatchComplete})
}

func (b *BatchExecutor) Delete(ctx context.Context, userID int64, ids []int64) (*task.BatchResult, error) {
	return b.run(ctx, userID, ids, task.BatchOp{Action: task.BatchDelete})
}

func (b *BatchExecutor) Restore(ctx context.Context, userID int64, ids []int64) (*task.BatchResult, error) {
	return b.run(ctx, userID, ids, task.BatchOp{Action: task.BatchRestore})
}

// Update меняет status и/или priority, хотя бы одно поле обязательно
func (b *BatchExecutor) Update(ctx context.Context, userID int64, ids []int64, status *task.Status, priority *task.Priority) (*task.BatchResult, error) {
	if status == nil && priority == nil {
		return nil, NewValidationError("fields", "нужно указать status или priority")
	}
	if status != nil {
		if err := validateStatus(*status); err != nil {
			return nil, err
		}
	}
	if priority != nil {
		if err := validatePriority(*priority); err != nil {
			return nil, err
		}
	}
	return b.run(ctx, userID, ids, task.BatchOp{Action: task.BatchUpdate, Status: status, Priority: priority})
}

func uniqueIDs(ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, NewValidationError("task_ids", "список не может быть пустым")
	}
	if len(ids) > task.MaxBatchSize {
		return nil, NewValidationError("task_ids", fmt.Sprintf("не больше %d id за запрос", task.MaxBatchSize))
	}

	seen := make(map[int64]struct{}, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if err := validateID("task_ids", id); err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique, nil
}

func (b *BatchExecutor) run(ctx context.Context, userID int64, ids []int64, op task.BatchOp) (*task.BatchResult, error) {
	unique, err := uniqueIDs(ids)
	if err != nil {
		return nil, err
	}

	var modified []int64
	err = b.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		var err error
		modified, err = uow.Tasks().BatchApply(ctx, userID, unique, op)
		if err != nil {
			return fmt.Errorf("пакетная операция %s: %w", op.Action, err)
		}

		eventType := op.EventType()
		for _, id := range modified {
			if _, err := uow.Events().Append(ctx, task.NewEvent{
				TaskID:  id,
				UserID:  userID,
				Type:    eventType,
				Payload: op.Payload(),
			}); err != nil {
				return fmt.Errorf("запись события %s: %w", eventType, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Service: Пакетная операция выполнена",
		zap.String("action", string(op.Action)),
		zap.Int64("user_id", userID),
		zap.Int("requested", len(ids)),
		zap.Int("updated", len(modified)))

	return &task.BatchResult{
		Updated:        len(modified),
		TotalRequested: len(ids),
		FieldsUpdated:  op.Fields(),
		IDs:            modified,
	}, nil
}
