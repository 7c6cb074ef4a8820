package handlers

import (
	"context"
	"time"

	"todoTracker/internal/models/category"
	"todoTracker/internal/models/idempotency"
	"todoTracker/internal/models/task"
	"todoTracker/internal/models/user"
	"todoTracker/internal/service"
)

type TaskService interface {
	HealthCheck(ctx context.Context) error
	Create(ctx context.Context, userID int64, nt task.NewTask) (*task.Task, error)
	Get(ctx context.Context, userID, id int64) (*task.Task, error)
	List(ctx context.Context, userID int64, filter task.Filter) (*task.Page, error)
	Update(ctx context.Context, userID, id int64, changes task.Changes, expectedVersion *int) (*task.Task, error)
	Delete(ctx context.Context, userID, id int64) (*task.Task, error)
	Restore(ctx context.Context, userID, id int64) (*task.Task, error)
	Complete(ctx context.Context, userID, id int64) (*task.Task, error)
	ListEvents(ctx context.Context, userID, taskID int64, limit, offset int) (*task.EventPage, error)
	AddCategory(ctx context.Context, userID, taskID, categoryID int64) (*category.Link, error)
	RemoveCategory(ctx context.Context, userID, taskID, categoryID int64) (bool, error)
	SyncCategories(ctx context.Context, userID, taskID int64, categoryIDs []int64) ([]int64, error)
	TaskCategories(ctx context.Context, userID, taskID int64) ([]int64, error)
}

type BatchService interface {
	Complete(ctx context.Context, userID int64, ids []int64) (*task.BatchResult, error)
	Delete(ctx context.Context, userID int64, ids []int64) (*task.BatchResult, error)
	Restore(ctx context.Context, userID int64, ids []int64) (*task.BatchResult, error)
	Update(ctx context.Context, userID int64, ids []int64, status *task.Status, priority *task.Priority) (*task.BatchResult, error)
}

type CategoryService interface {
	Create(ctx context.Context, userID int64, name string, color *string) (*category.Category, error)
	List(ctx context.Context, userID int64) ([]*category.Category, error)
	Get(ctx context.Context, userID, id int64) (*category.Category, error)
	Update(ctx context.Context, userID, id int64, name string, color *string) (*category.Category, error)
	Delete(ctx context.Context, userID, id int64) error
}

type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*user.User, error)
	Login(ctx context.Context, email, password string) (*service.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, error)
	Logout(ctx context.Context, userID int64) error
	Me(ctx context.Context, userID int64) (*user.User, error)
}

type IdempotencyStore interface {
	Lookup(ctx context.Context, userID int64, key string) (*idempotency.CachedResponse, bool, error)
	Store(ctx context.Context, userID int64, key, requestHash string, body []byte, statusCode int, ttl time.Duration) (*idempotency.Record, error)
}

var (
	_ TaskService      = (*service.TaskService)(nil)
	_ BatchService     = (*service.BatchExecutor)(nil)
	_ CategoryService  = (*service.CategoryService)(nil)
	_ AuthService      = (*service.AuthService)(nil)
	_ IdempotencyStore = (*service.IdempotencyService)(nil)
)
