package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"todoTracker/internal/logger"
	"todoTracker/internal/models/task"
	repo "todoTracker/internal/repository"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const taskColumns = `id, user_id, title, description, priority, deadline, status, recurrence_rule,
	completed_at, deleted_at, version, created_at, updated_at`

type taskRepo struct {
	tx pgx.Tx
}

func scanTask(row pgx.Row) (*task.Task, error) {
	t := &task.Task{}
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.Description,
		&t.Priority,
		&t.Deadline,
		&t.Status,
		&t.RecurrenceRule,
		&t.CompletedAt,
		&t.DeletedAt,
		&t.Version,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *taskRepo) Create(ctx context.Context, userID int64, nt task.NewTask) (*task.Task, error) {
	start := time.Now()
	defer observe(start, "create_task")

	query := `INSERT INTO tasks
				(user_id, title, description, priority, deadline, status, recurrence_rule, completed_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, CASE WHEN $6::text = 'completed' THEN NOW() END)
				RETURNING ` + taskColumns

	t, err := scanTask(r.tx.QueryRow(ctx, query,
		userID,
		nt.Title,
		nt.Description,
		nt.Priority,
		nt.Deadline,
		nt.Status,
		nt.RecurrenceRule,
	))
	if err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("добавление задачи: %w", err)
	}
	return t, nil
}

func (r *taskRepo) fetch(ctx context.Context, userID, id int64, deleted, lock bool) (*task.Task, error) {
	start := time.Now()
	defer observe(start, "fetch_task")

	var b strings.Builder
	b.WriteString(`SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND user_id = $2`)
	if deleted {
		b.WriteString(` AND deleted_at IS NOT NULL`)
	} else {
		b.WriteString(` AND deleted_at IS NULL`)
	}
	if lock {
		b.WriteString(` FOR UPDATE`)
	}

	t, err := scanTask(r.tx.QueryRow(ctx, b.String(), id, userID))
	if err != nil {
		return nil, notFound(err, "получение задачи")
	}
	return t, nil
}

func (r *taskRepo) Fetch(ctx context.Context, userID, id int64) (*task.Task, error) {
	return r.fetch(ctx, userID, id, false, false)
}

func (r *taskRepo) FetchDeleted(ctx context.Context, userID, id int64) (*task.Task, error) {
	return r.fetch(ctx, userID, id, true, false)
}

func (r *taskRepo) FetchForUpdate(ctx context.Context, userID, id int64) (*task.Task, error) {
	return r.fetch(ctx, userID, id, false, true)
}

// setClauses собирает SET из переданных полей, нумерация параметров с argN
func setClauses(changes task.Changes, argN int) ([]string, []any) {
	var sets []string
	var args []any
	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argN))
		args = append(args, value)
		argN++
	}

	if changes.Title.Set {
		add("title", changes.Title.Value)
	}
	if changes.Description.Set {
		add("description", changes.Description.Value)
	}
	if changes.Priority.Set {
		add("priority", changes.Priority.Value)
	}
	if changes.Deadline.Set {
		add("deadline", changes.Deadline.Value)
	}
	if changes.Status.Set {
		add("status", changes.Status.Value)
	}
	if changes.RecurrenceRule.Set {
		add("recurrence_rule", changes.RecurrenceRule.Value)
	}
	if changes.CompletedAt.Set {
		add("completed_at", changes.CompletedAt.Value)
	}
	return sets, args
}

func (r *taskRepo) ApplyUpdate(ctx context.Context, userID, id int64, expectedVersion *int, changes task.Changes) (*task.Task, error) {
	start := time.Now()
	defer observe(start, "update_task")

	cur, err := r.FetchForUpdate(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if expectedVersion != nil && *expectedVersion != cur.Version {
		logger.Warn("Repository: Конфликт версий при обновлении задачи",
			zap.Int64("task_id", id),
			zap.Int("expected_version", *expectedVersion),
			zap.Int("actual_version", cur.Version))
		return nil, repo.ErrVersionConflict
	}

	sets, args := setClauses(changes, 3)
	sets = append(sets, "version = version + 1", "updated_at = NOW()")
	query := `UPDATE tasks SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 AND user_id = $2 RETURNING ` + taskColumns

	t, err := scanTask(r.tx.QueryRow(ctx, query, append([]any{id, userID}, args...)...))
	if err != nil {
		return nil, notFound(err, "обновление задачи")
	}
	return t, nil
}

// transition выполняет условный UPDATE одной задачи, не подходящая задача - ErrNotFound
func (r *taskRepo) transition(ctx context.Context, userID, id int64, set, condition, operation string) (*task.Task, error) {
	start := time.Now()
	defer observe(start, operation)

	query := `UPDATE tasks SET ` + set + `, version = version + 1, updated_at = NOW()
				WHERE id = $1 AND user_id = $2 AND ` + condition + `
				RETURNING ` + taskColumns

	t, err := scanTask(r.tx.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, notFound(err, operation)
	}
	return t, nil
}

func (r *taskRepo) SoftDelete(ctx context.Context, userID, id int64) (*task.Task, error) {
	return r.transition(ctx, userID, id, "deleted_at = NOW()", "deleted_at IS NULL", "мягкое удаление")
}

func (r *taskRepo) Restore(ctx context.Context, userID, id int64) (*task.Task, error) {
	return r.transition(ctx, userID, id, "deleted_at = NULL", "deleted_at IS NOT NULL", "восстановление задачи")
}

func (r *taskRepo) Complete(ctx context.Context, userID, id int64) (*task.Task, error) {
	return r.transition(ctx, userID, id, "status = 'completed', completed_at = NOW()", "deleted_at IS NULL", "завершение задачи")
}

func (r *taskRepo) BatchApply(ctx context.Context, userID int64, ids []int64, op task.BatchOp) ([]int64, error) {
	start := time.Now()
	defer observe(start, "batch_"+string(op.Action))

	args := []any{ids, userID}
	var set, condition string
	switch op.Action {
	case task.BatchComplete:
		set, condition = "status = 'completed', completed_at = NOW()", "deleted_at IS NULL"
	case task.BatchDelete:
		set, condition = "deleted_at = NOW()", "deleted_at IS NULL"
	case task.BatchRestore:
		set, condition = "deleted_at = NULL", "deleted_at IS NOT NULL"
	case task.BatchUpdate:
		var sets []string
		if op.Status != nil {
			args = append(args, *op.Status)
			n := len(args)
			sets = append(sets,
				fmt.Sprintf("completed_at = CASE WHEN $%d::text = 'completed' AND status <> 'completed' THEN NOW() ELSE completed_at END", n),
				fmt.Sprintf("status = $%d", n))
		}
		if op.Priority != nil {
			args = append(args, *op.Priority)
			sets = append(sets, fmt.Sprintf("priority = $%d", len(args)))
		}
		if len(sets) == 0 {
			return []int64{}, nil
		}
		set, condition = strings.Join(sets, ", "), "deleted_at IS NULL"
	default:
		return nil, fmt.Errorf("неизвестное пакетное действие %q", op.Action)
	}

	query := `UPDATE tasks SET ` + set + `, version = version + 1, updated_at = NOW()
				WHERE id = ANY($1) AND user_id = $2 AND ` + condition + `
				RETURNING id`

	rows, err := r.tx.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Ошибка пакетной операции", err,
			zap.String("action", string(op.Action)),
			zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("пакетная операция: %w", err)
	}

	modified, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("пакетная операция: %w", err)
	}
	return modified, nil
}

// listWhere строит WHERE для списка задач и его аргументы
func listWhere(userID int64, filter task.Filter) (string, []any) {
	conds := []string{"user_id = $1"}
	args := []any{userID}
	add := func(format string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}

	if !filter.IncludeDeleted {
		conds = append(conds, "deleted_at IS NULL")
	}
	if filter.Status != nil {
		add("status = $%d", *filter.Status)
	}
	if filter.Priority != nil {
		add("priority = $%d", *filter.Priority)
	}
	if filter.CategoryID != nil {
		add("EXISTS (SELECT 1 FROM task_categories tc WHERE tc.task_id = tasks.id AND tc.category_id = $%d)", *filter.CategoryID)
	}
	if len(filter.CategoryIDs) > 0 {
		add("EXISTS (SELECT 1 FROM task_categories tc WHERE tc.task_id = tasks.id AND tc.category_id = ANY($%d))", filter.CategoryIDs)
	}
	if filter.DeadlineFrom != nil {
		add("deadline >= $%d", *filter.DeadlineFrom)
	}
	if filter.DeadlineTo != nil {
		add("deadline <= $%d", *filter.DeadlineTo)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		add("(strpos(lower(title), lower($%[1]d)) > 0 OR strpos(lower(coalesce(description, '')), lower($%[1]d)) > 0)", search)
	}
	return strings.Join(conds, " AND "), args
}

func (r *taskRepo) List(ctx context.Context, userID int64, filter task.Filter) ([]*task.Task, int, error) {
	start := time.Now()
	defer observe(start, "list_tasks")

	filter.Normalize()
	where, args := listWhere(userID, filter)

	var total int
	if err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE `+where, args...).Scan(&total); err != nil {
		logger.Error("Repository: Не удалось посчитать задачи", err)
		return nil, 0, fmt.Errorf("подсчёт задач: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE %s
				ORDER BY created_at DESC, id DESC
				LIMIT $%d OFFSET $%d`, taskColumns, where, len(args)+1, len(args)+2)

	rows, err := r.tx.Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, 0, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("сканирование задачи: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, 0, fmt.Errorf("итерация по строкам: %w", err)
	}
	return tasks, total, nil
}
