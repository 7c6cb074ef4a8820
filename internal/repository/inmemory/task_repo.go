package inmemory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"todoTracker/internal/models/task"
	repo "todoTracker/internal/repository"
)

type taskRepo struct {
	uow *unitOfWork
}

func (r *taskRepo) Create(ctx context.Context, userID int64, nt task.NewTask) (*task.Task, error) {
	st := r.uow.st
	now := r.uow.now()

	st.taskSeq++
	t := &task.Task{
		ID:             st.taskSeq,
		UserID:         userID,
		Title:          nt.Title,
		Description:    nt.Description,
		Priority:       cmp.Or(nt.Priority, task.PriorityMedium),
		Deadline:       nt.Deadline,
		Status:         cmp.Or(nt.Status, task.StatusPending),
		RecurrenceRule: nt.RecurrenceRule,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if t.Status == task.StatusCompleted {
		t.CompletedAt = &now
	}
	t = t.Clone()
	st.tasks[t.ID] = t
	return t.Clone(), nil
}

// owned возвращает хранимую задачу владельца в нужном состоянии удаления
func (r *taskRepo) owned(userID, id int64, deleted bool) (*task.Task, error) {
	t, ok := r.uow.st.tasks[id]
	if !ok || t.UserID != userID || t.IsDeleted() != deleted {
		return nil, repo.ErrNotFound
	}
	return t, nil
}

func (r *taskRepo) Fetch(ctx context.Context, userID, id int64) (*task.Task, error) {
	t, err := r.owned(userID, id, false)
	if err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

func (r *taskRepo) FetchDeleted(ctx context.Context, userID, id int64) (*task.Task, error) {
	t, err := r.owned(userID, id, true)
	if err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

// FetchForUpdate: единица работы и так держит эксклюзивную блокировку
func (r *taskRepo) FetchForUpdate(ctx context.Context, userID, id int64) (*task.Task, error) {
	return r.Fetch(ctx, userID, id)
}

// mutate копирует хранимую задачу, применяет fn, увеличивает версию и сохраняет копию
func (r *taskRepo) mutate(userID, id int64, deleted bool, fn func(t *task.Task)) (*task.Task, error) {
	cur, err := r.owned(userID, id, deleted)
	if err != nil {
		return nil, err
	}
	next := cur.Clone()
	fn(next)
	next.Version++
	next.UpdatedAt = r.uow.now()
	r.uow.st.tasks[id] = next
	return next.Clone(), nil
}

func (r *taskRepo) ApplyUpdate(ctx context.Context, userID, id int64, expectedVersion *int, changes task.Changes) (*task.Task, error) {
	cur, err := r.owned(userID, id, false)
	if err != nil {
		return nil, err
	}
	if expectedVersion != nil && *expectedVersion != cur.Version {
		return nil, repo.ErrVersionConflict
	}
	return r.mutate(userID, id, false, changes.Apply)
}

func (r *taskRepo) SoftDelete(ctx context.Context, userID, id int64) (*task.Task, error) {
	now := r.uow.now()
	return r.mutate(userID, id, false, func(t *task.Task) {
		t.DeletedAt = &now
	})
}

func (r *taskRepo) Restore(ctx context.Context, userID, id int64) (*task.Task, error) {
	return r.mutate(userID, id, true, func(t *task.Task) {
		t.DeletedAt = nil
	})
}

func (r *taskRepo) Complete(ctx context.Context, userID, id int64) (*task.Task, error) {
	now := r.uow.now()
	return r.mutate(userID, id, false, func(t *task.Task) {
		t.Status = task.StatusCompleted
		t.CompletedAt = &now
	})
}

func (r *taskRepo) BatchApply(ctx context.Context, userID int64, ids []int64, op task.BatchOp) ([]int64, error) {
	now := r.uow.now()
	wantDeleted := op.Action == task.BatchRestore

	var transform func(t *task.Task)
	switch op.Action {
	case task.BatchComplete:
		transform = func(t *task.Task) {
			t.Status = task.StatusCompleted
			t.CompletedAt = &now
		}
	case task.BatchDelete:
		transform = func(t *task.Task) {
			t.DeletedAt = &now
		}
	case task.BatchRestore:
		transform = func(t *task.Task) {
			t.DeletedAt = nil
		}
	default:
		transform = func(t *task.Task) {
			if op.Status != nil {
				if *op.Status == task.StatusCompleted && t.Status != task.StatusCompleted {
					t.CompletedAt = &now
				}
				t.Status = *op.Status
			}
			if op.Priority != nil {
				t.Priority = *op.Priority
			}
		}
	}

	seen := make(map[int64]struct{}, len(ids))
	modified := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if _, err := r.mutate(userID, id, wantDeleted, transform); err != nil {
			// чужие, отсутствующие и неподходящие пропускаем
			continue
		}
		modified = append(modified, id)
	}
	return modified, nil
}

func (r *taskRepo) List(ctx context.Context, userID int64, filter task.Filter) ([]*task.Task, int, error) {
	filter.Normalize()
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	var matched []*task.Task
	for _, t := range r.uow.st.tasks {
		if t.UserID != userID || (t.IsDeleted() && !filter.IncludeDeleted) {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && t.Priority != *filter.Priority {
			continue
		}
		if filter.CategoryID != nil && !r.linked(t.ID, []int64{*filter.CategoryID}) {
			continue
		}
		if len(filter.CategoryIDs) > 0 && !r.linked(t.ID, filter.CategoryIDs) {
			continue
		}
		if filter.DeadlineFrom != nil && (t.Deadline == nil || t.Deadline.Before(*filter.DeadlineFrom)) {
			continue
		}
		if filter.DeadlineTo != nil && (t.Deadline == nil || t.Deadline.After(*filter.DeadlineTo)) {
			continue
		}
		if search != "" && !matchesSearch(t, search) {
			continue
		}
		matched = append(matched, t)
	}

	slices.SortFunc(matched, func(a, b *task.Task) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	total := len(matched)
	if filter.Offset >= total {
		return []*task.Task{}, total, nil
	}
	end := min(filter.Offset+filter.Limit, total)

	res := make([]*task.Task, 0, end-filter.Offset)
	for _, t := range matched[filter.Offset:end] {
		res = append(res, t.Clone())
	}
	return res, total, nil
}

func (r *taskRepo) linked(taskID int64, categoryIDs []int64) bool {
	for _, cid := range categoryIDs {
		if _, ok := r.uow.st.links[linkKey{taskID: taskID, categoryID: cid}]; ok {
			return true
		}
	}
	return false
}

func matchesSearch(t *task.Task, search string) bool {
	if strings.Contains(strings.ToLower(t.Title), search) {
		return true
	}
	return t.Description != nil && strings.Contains(strings.ToLower(*t.Description), search)
}
