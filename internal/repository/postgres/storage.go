package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"todoTracker/internal/config"
	"todoTracker/internal/logger"
	repo "todoTracker/internal/repository"
	"todoTracker/internal/service"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const slowQuery = 100 * time.Millisecond

// uniqueViolation - код ошибки PostgreSQL при нарушении уникальности
const uniqueViolation = "23505"

type Storage struct {
	pool *pgxpool.Pool
}

var _ service.Storage = (*Storage)(nil)

func New(ctx context.Context, cfg config.DatabaseConfig) (*Storage, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		poolConfig.MinConns = cfg.MinConnections
	}
	if cfg.IdleTimeout > 0 {
		poolConfig.MaxConnIdleTime = cfg.IdleTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL",
		zap.Int32("max_conns", poolConfig.MaxConns))
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

// InTx открывает транзакцию на время fn. Rollback после Commit ничего не делает.
func (s *Storage) InTx(ctx context.Context, fn func(ctx context.Context, uow service.UnitOfWork) error) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		logger.Error("Repository: Не удалось начать транзакцию", err)
		return fmt.Errorf("начало транзакции: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logger.Warn("Repository: Ошибка отката транзакции", zap.Error(rbErr))
		}
	}()

	if err := fn(ctx, &unitOfWork{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		logger.Error("Repository: Не удалось зафиксировать транзакцию", err)
		return fmt.Errorf("фиксация транзакции: %w", err)
	}
	return nil
}

type unitOfWork struct {
	tx pgx.Tx
}

func (u *unitOfWork) Tasks() service.TaskRepository {
	return &taskRepo{tx: u.tx}
}

func (u *unitOfWork) Events() service.EventRepository {
	return &eventRepo{tx: u.tx}
}

func (u *unitOfWork) Idempotency() service.IdempotencyRepository {
	return &idempotencyRepo{tx: u.tx}
}

func (u *unitOfWork) Categories() service.CategoryRepository {
	return &categoryRepo{tx: u.tx}
}

func (u *unitOfWork) Users() service.UserRepository {
	return &userRepo{tx: u.tx}
}

func (u *unitOfWork) Tokens() service.TokenRepository {
	return &tokenRepo{tx: u.tx}
}

func observe(start time.Time, operation string) {
	if time.Since(start) > slowQuery {
		logger.Warn("Repository: Медленная операция",
			zap.String("operation", operation),
			zap.Duration("ms", time.Since(start)))
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// notFound переводит pgx.ErrNoRows в repo.ErrNotFound, остальное оборачивает
func notFound(err error, operation string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repo.ErrNotFound
	}
	logger.Error("Repository: Ошибка запроса", err, zap.String("operation", operation))
	return fmt.Errorf("%s: %w", operation, err)
}
