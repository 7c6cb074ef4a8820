package inmemory

import (
	"context"
	"maps"
	"sync"
	"time"

	"todoTracker/internal/logger"
	"todoTracker/internal/models/category"
	"todoTracker/internal/models/idempotency"
	"todoTracker/internal/models/task"
	"todoTracker/internal/models/user"
	"todoTracker/internal/service"
)

type idemKey struct {
	userID int64
	key    string
}

type linkKey struct {
	taskID     int64
	categoryID int64
}

// state - снимок всех таблиц. Хранимые объекты не изменяются на месте,
// мутация кладёт в карту новую копию, поэтому clone достаточно копировать карты.
type state struct {
	tasks      map[int64]*task.Task
	events     []*task.Event
	idem       map[idemKey]*idempotency.Record
	categories map[int64]*category.Category
	links      map[linkKey]*category.Link
	users      map[int64]*user.User
	tokens     map[int64]*user.RefreshToken

	taskSeq, eventSeq, idemSeq, categorySeq, userSeq, tokenSeq int64
}

func newState() *state {
	return &state{
		tasks:      make(map[int64]*task.Task),
		idem:       make(map[idemKey]*idempotency.Record),
		categories: make(map[int64]*category.Category),
		links:      make(map[linkKey]*category.Link),
		users:      make(map[int64]*user.User),
		tokens:     make(map[int64]*user.RefreshToken),
	}
}

func (s *state) clone() *state {
	c := *s
	c.tasks = maps.Clone(s.tasks)
	c.events = append(make([]*task.Event, 0, len(s.events)+1), s.events...)
	c.idem = maps.Clone(s.idem)
	c.categories = maps.Clone(s.categories)
	c.links = maps.Clone(s.links)
	c.users = maps.Clone(s.users)
	c.tokens = maps.Clone(s.tokens)
	return &c
}

// Storage хранит данные в памяти процесса.
// InTx сериализует все единицы работы, вложенный InTx приведёт к взаимной блокировке.
type Storage struct {
	mtx   sync.Mutex
	st    *state
	clock func() time.Time
}

type Option func(*Storage)

// WithClock подменяет источник времени для created_at/updated_at/deleted_at
func WithClock(clock func() time.Time) Option {
	return func(s *Storage) {
		s.clock = clock
	}
}

func New(opts ...Option) *Storage {
	s := &Storage{
		st:    newState(),
		clock: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	logger.Info("Repository: Создано хранилище в памяти")
	return s
}

var _ service.Storage = (*Storage)(nil)

func (s *Storage) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

// InTx выполняет fn над копией состояния и публикует её только при успехе
func (s *Storage) InTx(ctx context.Context, fn func(ctx context.Context, uow service.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	work := s.st.clone()
	if err := fn(ctx, &unitOfWork{st: work, now: s.clock}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Storage) Close() {
	logger.Info("Repository: Хранилище в памяти закрыто")
}

type unitOfWork struct {
	st  *state
	now func() time.Time
}

func (u *unitOfWork) Tasks() service.TaskRepository {
	return &taskRepo{uow: u}
}

func (u *unitOfWork) Events() service.EventRepository {
	return &eventRepo{uow: u}
}

func (u *unitOfWork) Idempotency() service.IdempotencyRepository {
	return &idempotencyRepo{uow: u}
}

func (u *unitOfWork) Categories() service.CategoryRepository {
	return &categoryRepo{uow: u}
}

func (u *unitOfWork) Users() service.UserRepository {
	return &userRepo{uow: u}
}

func (u *unitOfWork) Tokens() service.TokenRepository {
	return &tokenRepo{uow: u}
}
