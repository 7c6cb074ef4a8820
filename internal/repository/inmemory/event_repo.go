package inmemory

import (
	"cmp"
	"context"
	"slices"

	"todoTracker/internal/models/task"
)

type eventRepo struct {
	uow *unitOfWork
}

func (r *eventRepo) Append(ctx context.Context, ev task.NewEvent) (*task.Event, error) {
	st := r.uow.st
	st.eventSeq++
	stored := &task.Event{
		ID:        st.eventSeq,
		TaskID:    ev.TaskID,
		UserID:    ev.UserID,
		Type:      ev.Type,
		OldState:  ev.OldState,
		NewState:  ev.NewState,
		Payload:   ev.Payload,
		CreatedAt: r.uow.now(),
	}
	st.events = append(st.events, stored)
	cp := *stored
	return &cp, nil
}

// ListForTask отдаёт события от новых к старым и общее количество
func (r *eventRepo) ListForTask(ctx context.Context, taskID int64, limit, offset int) ([]*task.Event, int, error) {
	var matched []*task.Event
	for _, ev := range r.uow.st.events {
		if ev.TaskID == taskID {
			matched = append(matched, ev)
		}
	}
	slices.SortFunc(matched, func(a, b *task.Event) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	total := len(matched)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []*task.Event{}, total, nil
	}
	end := total
	if limit > 0 {
		end = min(offset+limit, total)
	}

	res := make([]*task.Event, 0, end-offset)
	for _, ev := range matched[offset:end] {
		cp := *ev
		res = append(res, &cp)
	}
	return res, total, nil
}
