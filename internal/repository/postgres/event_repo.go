package postgres

import (
	"context"
	"fmt"
	"time"

	"todoTracker/internal/logger"
	"todoTracker/internal/models/task"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type eventRepo struct {
	tx pgx.Tx
}

func (r *eventRepo) Append(ctx context.Context, ev task.NewEvent) (*task.Event, error) {
	start := time.Now()
	defer observe(start, "append_event")

	query := `INSERT INTO task_events (task_id, user_id, event_type, old_state, new_state, payload)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id, created_at`

	stored := &task.Event{
		TaskID:   ev.TaskID,
		UserID:   ev.UserID,
		Type:     ev.Type,
		OldState: ev.OldState,
		NewState: ev.NewState,
		Payload:  ev.Payload,
	}
	err := r.tx.QueryRow(ctx, query,
		ev.TaskID, ev.UserID, ev.Type, ev.OldState, ev.NewState, ev.Payload,
	).Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		logger.Error("Repository: Не удалось записать событие", err,
			zap.Int64("task_id", ev.TaskID),
			zap.String("event_type", string(ev.Type)))
		return nil, fmt.Errorf("запись события: %w", err)
	}
	return stored, nil
}

func (r *eventRepo) ListForTask(ctx context.Context, taskID int64, limit, offset int) ([]*task.Event, int, error) {
	start := time.Now()
	defer observe(start, "list_events")

	var total int
	if err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM task_events WHERE task_id = $1`, taskID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("подсчёт событий: %w", err)
	}

	query := `SELECT id, task_id, user_id, event_type, old_state, new_state, payload, created_at
				FROM task_events
				WHERE task_id = $1
				ORDER BY created_at DESC, id DESC
				LIMIT $2 OFFSET $3`

	rows, err := r.tx.Query(ctx, query, taskID, limit, max(offset, 0))
	if err != nil {
		logger.Error("Repository: Не удалось получить события", err)
		return nil, 0, fmt.Errorf("получение событий: %w", err)
	}
	defer rows.Close()

	events := []*task.Event{}
	for rows.Next() {
		ev := &task.Event{}
		if err := rows.Scan(&ev.ID, &ev.TaskID, &ev.UserID, &ev.Type,
			&ev.OldState, &ev.NewState, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("сканирование события: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("итерация по строкам: %w", err)
	}
	return events, total, nil
}
