package postgres

import (
	"context"
	"fmt"
	"time"

	"todoTracker/internal/models/category"
	repo "todoTracker/internal/repository"

	"github.com/jackc/pgx/v5"
)

type categoryRepo struct {
	tx pgx.Tx
}

func scanCategory(row pgx.Row) (*category.Category, error) {
	c := &category.Category{}
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &c.CreatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *categoryRepo) Create(ctx context.Context, c *category.Category) (*category.Category, error) {
	start := time.Now()
	defer observe(start, "create_category")

	query := `INSERT INTO categories (user_id, name, color)
				VALUES ($1, $2, $3)
				RETURNING id, user_id, name, color, created_at`

	created, err := scanCategory(r.tx.QueryRow(ctx, query, c.UserID, c.Name, c.Color))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repo.ErrDuplicate
		}
		return nil, fmt.Errorf("создание категории: %w", err)
	}
	return created, nil
}

func (r *categoryRepo) Get(ctx context.Context, userID, id int64) (*category.Category, error) {
	query := `SELECT id, user_id, name, color, created_at FROM categories WHERE id = $1 AND user_id = $2`
	c, err := scanCategory(r.tx.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, notFound(err, "получение категории")
	}
	return c, nil
}

func (r *categoryRepo) List(ctx context.Context, userID int64) ([]*category.Category, error) {
	start := time.Now()
	defer observe(start, "list_categories")

	rows, err := r.tx.Query(ctx,
		`SELECT id, user_id, name, color, created_at FROM categories WHERE user_id = $1 ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("получение категорий: %w", err)
	}
	defer rows.Close()

	categories := []*category.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("сканирование категории: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return categories, nil
}

func (r *categoryRepo) Update(ctx context.Context, c *category.Category) (*category.Category, error) {
	query := `UPDATE categories SET name = $1, color = $2
				WHERE id = $3 AND user_id = $4
				RETURNING id, user_id, name, color, created_at`

	updated, err := scanCategory(r.tx.QueryRow(ctx, query, c.Name, c.Color, c.ID, c.UserID))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repo.ErrDuplicate
		}
		return nil, notFound(err, "обновление категории")
	}
	return updated, nil
}

func (r *categoryRepo) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM categories WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("удаление категории: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *categoryRepo) GetLink(ctx context.Context, taskID, categoryID int64) (*category.Link, error) {
	link := &category.Link{}
	err := r.tx.QueryRow(ctx,
		`SELECT task_id, category_id, created_at FROM task_categories WHERE task_id = $1 AND category_id = $2`,
		taskID, categoryID,
	).Scan(&link.TaskID, &link.CategoryID, &link.CreatedAt)
	if err != nil {
		return nil, notFound(err, "получение связи")
	}
	return link, nil
}

func (r *categoryRepo) AddLink(ctx context.Context, taskID, categoryID int64) (*category.Link, error) {
	link := &category.Link{}
	err := r.tx.QueryRow(ctx,
		`INSERT INTO task_categories (task_id, category_id) VALUES ($1, $2)
			RETURNING task_id, category_id, created_at`,
		taskID, categoryID,
	).Scan(&link.TaskID, &link.CategoryID, &link.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repo.ErrDuplicate
		}
		return nil, fmt.Errorf("привязка категории: %w", err)
	}
	return link, nil
}

func (r *categoryRepo) RemoveLink(ctx context.Context, taskID, categoryID int64) (bool, error) {
	tag, err := r.tx.Exec(ctx, `DELETE FROM task_categories WHERE task_id = $1 AND category_id = $2`, taskID, categoryID)
	if err != nil {
		return false, fmt.Errorf("отвязка категории: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *categoryRepo) ListTaskCategoryIDs(ctx context.Context, taskID int64) ([]int64, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT category_id FROM task_categories WHERE task_id = $1 ORDER BY category_id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("категории задачи: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("категории задачи: %w", err)
	}
	return ids, nil
}
