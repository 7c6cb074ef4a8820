package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"todoTracker/internal/logger"
	"todoTracker/internal/models/idempotency"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const recordColumns = `id, user_id, idempotency_key, request_hash, response_body, status_code, expires_at, created_at`

type idempotencyRepo struct {
	tx pgx.Tx
}

func scanRecord(row pgx.Row) (*idempotency.Record, error) {
	rec := &idempotency.Record{}
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Key, &rec.RequestHash,
		&rec.ResponseBody, &rec.StatusCode, &rec.ExpiresAt, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *idempotencyRepo) Lookup(ctx context.Context, userID int64, key string, now time.Time) (*idempotency.Record, error) {
	start := time.Now()
	defer observe(start, "idempotency_lookup")

	query := `SELECT ` + recordColumns + ` FROM idempotency_keys
				WHERE user_id = $1 AND idempotency_key = $2 AND expires_at > $3`

	rec, err := scanRecord(r.tx.QueryRow(ctx, query, userID, key, now))
	if err != nil {
		return nil, notFound(err, "поиск ключа идемпотентности")
	}
	return rec, nil
}

func (r *idempotencyRepo) PurgeExpired(ctx context.Context, userID int64, now time.Time) (int64, error) {
	start := time.Now()
	defer observe(start, "idempotency_purge")

	tag, err := r.tx.Exec(ctx, `DELETE FROM idempotency_keys WHERE user_id = $1 AND expires_at <= $2`, userID, now)
	if err != nil {
		return 0, fmt.Errorf("очистка истёкших ключей: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Insert не перезаписывает существующий ключ: при конфликте возвращается сохранённая запись
func (r *idempotencyRepo) Insert(ctx context.Context, rec *idempotency.Record) (*idempotency.Record, error) {
	start := time.Now()
	defer observe(start, "idempotency_insert")

	query := `INSERT INTO idempotency_keys
				(user_id, idempotency_key, request_hash, response_body, status_code, expires_at)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (user_id, idempotency_key) DO NOTHING
				RETURNING ` + recordColumns

	stored, err := scanRecord(r.tx.QueryRow(ctx, query,
		rec.UserID, rec.Key, rec.RequestHash, rec.ResponseBody, rec.StatusCode, rec.ExpiresAt))
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		logger.Error("Repository: Не удалось сохранить ключ идемпотентности", err,
			zap.Int64("user_id", rec.UserID))
		return nil, fmt.Errorf("сохранение ключа идемпотентности: %w", err)
	}

	existing, err := scanRecord(r.tx.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM idempotency_keys WHERE user_id = $1 AND idempotency_key = $2`,
		rec.UserID, rec.Key))
	if err != nil {
		return nil, notFound(err, "чтение существующего ключа")
	}
	return existing, nil
}

func (r *idempotencyRepo) DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	start := time.Now()
	defer observe(start, "idempotency_sweep")

	query := `DELETE FROM idempotency_keys
				WHERE id IN (
					SELECT id FROM idempotency_keys
					WHERE expires_at <= $1
					ORDER BY expires_at
					LIMIT $2
				)`

	tag, err := r.tx.Exec(ctx, query, now, limit)
	if err != nil {
		logger.Error("Repository: Не удалось удалить истёкшие ключи", err)
		return 0, fmt.Errorf("удаление истёкших ключей: %w", err)
	}
	return tag.RowsAffected(), nil
}
