package service

import (
	"context"
	"time"

	"todoTracker/internal/models/category"
	"todoTracker/internal/models/idempotency"
	"todoTracker/internal/models/task"
	"todoTracker/internal/models/user"
)

// Storage - хранилище с единицей работы на каждый вызов InTx.
// fn вернул nil - коммит, ошибка или паника - откат.
type Storage interface {
	InTx(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
	HealthCheck(ctx context.Context) error
}

// UnitOfWork выдаёт репозитории, привязанные к одной транзакции
type UnitOfWork interface {
	Tasks() TaskRepository
	Events() EventRepository
	Idempotency() IdempotencyRepository
	Categories() CategoryRepository
	Users() UserRepository
	Tokens() TokenRepository
}

// TaskRepository видит только задачи владельца userID.
// Чужая или отсутствующая задача - repository.ErrNotFound.
type TaskRepository interface {
	Create(ctx context.Context, userID int64, nt task.NewTask) (*task.Task, error)
	Fetch(ctx context.Context, userID, id int64) (*task.Task, error)
	FetchDeleted(ctx context.Context, userID, id int64) (*task.Task, error)
	// FetchForUpdate блокирует строку до конца транзакции
	FetchForUpdate(ctx context.Context, userID, id int64) (*task.Task, error)
	ApplyUpdate(ctx context.Context, userID, id int64, expectedVersion *int, changes task.Changes) (*task.Task, error)
	SoftDelete(ctx context.Context, userID, id int64) (*task.Task, error)
	Restore(ctx context.Context, userID, id int64) (*task.Task, error)
	Complete(ctx context.Context, userID, id int64) (*task.Task, error)
	// BatchApply возвращает id фактически изменённых задач
	BatchApply(ctx context.Context, userID int64, ids []int64, op task.BatchOp) ([]int64, error)
	List(ctx context.Context, userID int64, filter task.Filter) ([]*task.Task, int, error)
}

// EventRepository - журнал только на добавление
type EventRepository interface {
	Append(ctx context.Context, ev task.NewEvent) (*task.Event, error)
	ListForTask(ctx context.Context, taskID int64, limit, offset int) ([]*task.Event, int, error)
}

type IdempotencyRepository interface {
	// Lookup находит только неистёкшую запись
	Lookup(ctx context.Context, userID int64, key string, now time.Time) (*idempotency.Record, error)
	PurgeExpired(ctx context.Context, userID int64, now time.Time) (int64, error)
	// Insert при существующей записи с тем же ключом возвращает её
	Insert(ctx context.Context, rec *idempotency.Record) (*idempotency.Record, error)
	// DeleteExpired чистит истёкшие записи всех пользователей, не больше limit за раз
	DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, c *category.Category) (*category.Category, error)
	Get(ctx context.Context, userID, id int64) (*category.Category, error)
	List(ctx context.Context, userID int64) ([]*category.Category, error)
	Update(ctx context.Context, c *category.Category) (*category.Category, error)
	Delete(ctx context.Context, userID, id int64) error
	GetLink(ctx context.Context, taskID, categoryID int64) (*category.Link, error)
	AddLink(ctx context.Context, taskID, categoryID int64) (*category.Link, error)
	RemoveLink(ctx context.Context, taskID, categoryID int64) (bool, error)
	ListTaskCategoryIDs(ctx context.Context, taskID int64) ([]int64, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *user.User) (*user.User, error)
	GetByID(ctx context.Context, id int64) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
}

type TokenRepository interface {
	Create(ctx context.Context, t *user.RefreshToken) (*user.RefreshToken, error)
	GetByHash(ctx context.Context, hash string) (*user.RefreshToken, error)
	Revoke(ctx context.Context, id int64, at time.Time) error
	RevokeAllForUser(ctx context.Context, userID int64, at time.Time) error
}
