package postgres

import (
	"context"
	"fmt"
	"time"

	"todoTracker/internal/models/user"
	repo "todoTracker/internal/repository"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, email, hashed_password, is_active, created_at, updated_at`

type userRepo struct {
	tx pgx.Tx
}

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepo) Create(ctx context.Context, u *user.User) (*user.User, error) {
	start := time.Now()
	defer observe(start, "create_user")

	query := `INSERT INTO users (username, email, hashed_password, is_active)
				VALUES ($1, $2, $3, $4)
				RETURNING ` + userColumns

	created, err := scanUser(r.tx.QueryRow(ctx, query, u.Username, u.Email, u.PasswordHash, u.IsActive))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repo.ErrDuplicate
		}
		return nil, fmt.Errorf("создание пользователя: %w", err)
	}
	return created, nil
}

func (r *userRepo) getBy(ctx context.Context, column string, value any) (*user.User, error) {
	u, err := scanUser(r.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value))
	if err != nil {
		return nil, notFound(err, "получение пользователя")
	}
	return u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.getBy(ctx, "username", username)
}

type tokenRepo struct {
	tx pgx.Tx
}

func (r *tokenRepo) Create(ctx context.Context, t *user.RefreshToken) (*user.RefreshToken, error) {
	created := &user.RefreshToken{}
	err := r.tx.QueryRow(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
			VALUES ($1, $2, $3)
			RETURNING id, user_id, token_hash, expires_at, revoked_at, created_at`,
		t.UserID, t.TokenHash, t.ExpiresAt,
	).Scan(&created.ID, &created.UserID, &created.TokenHash, &created.ExpiresAt, &created.RevokedAt, &created.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repo.ErrDuplicate
		}
		return nil, fmt.Errorf("сохранение refresh токена: %w", err)
	}
	return created, nil
}

func (r *tokenRepo) GetByHash(ctx context.Context, hash string) (*user.RefreshToken, error) {
	t := &user.RefreshToken{}
	err := r.tx.QueryRow(ctx,
		`SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
			FROM refresh_tokens WHERE token_hash = $1 FOR UPDATE`,
		hash,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.RevokedAt, &t.CreatedAt)
	if err != nil {
		return nil, notFound(err, "получение refresh токена")
	}
	return t, nil
}

func (r *tokenRepo) Revoke(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE refresh_tokens SET revoked_at = COALESCE(revoked_at, $1) WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("отзыв refresh токена: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *tokenRepo) RevokeAllForUser(ctx context.Context, userID int64, at time.Time) error {
	if _, err := r.tx.Exec(ctx,
		`UPDATE refresh_tokens SET revoked_at = $1 WHERE user_id = $2 AND revoked_at IS NULL`, at, userID); err != nil {
		return fmt.Errorf("отзыв refresh токенов: %w", err)
	}
	return nil
}
