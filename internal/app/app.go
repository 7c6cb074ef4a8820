package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"todoTracker/internal/auth"
	"todoTracker/internal/config"
	"todoTracker/internal/handlers"
	"todoTracker/internal/logger"
	"todoTracker/internal/middleware"
	"todoTracker/internal/repository/inmemory"
	"todoTracker/internal/repository/postgres"
	"todoTracker/internal/service"
	"todoTracker/internal/worker"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const limiterCleanupInterval = time.Minute

// storage - хранилище вместе с освобождением ресурсов
type storage interface {
	service.Storage
	Close()
}

type App struct {
	config    *config.Config
	server    *http.Server
	addr      string
	storage   storage
	redis     *redis.Client
	sweeper   *worker.IdempotencySweeper
	memLimits []*middleware.MemoryLimiter

	cancel    context.CancelFunc
	group     *errgroup.Group
	shutdowns []func() // функции для graceful shutdown, выполняются в обратном порядке
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development, a.config.Logging.Level); err != nil {
		return fmt.Errorf("инициализация логгера: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	if err := a.initStorage(ctx); err != nil {
		return err
	}
	if err := a.initRedis(ctx); err != nil {
		return err
	}

	tokens := auth.NewJWTManager(auth.JWTConfig{
		SecretKey:            a.config.Auth.JWTSecret,
		AccessTokenDuration:  a.config.Auth.AccessTokenTTL,
		RefreshTokenDuration: a.config.Auth.RefreshTokenTTL,
		Issuer:               a.config.Auth.Issuer,
	})
	hasher := auth.NewPasswordHasher(a.config.Auth.BcryptCost)

	taskService := service.NewTaskService(a.storage)
	batchService := service.NewBatchExecutor(a.storage)
	categoryService := service.NewCategoryService(a.storage)
	authService := service.NewAuthService(a.storage, tokens, hasher)
	idemService := service.NewIdempotencyService(a.storage, a.config.Idempotency.TTL)

	rl := a.config.RateLimit
	router := handlers.NewRouter(handlers.RouterConfig{
		Tasks:          handlers.NewTaskHandler(taskService),
		Batch:          handlers.NewBatchHandler(batchService),
		Categories:     handlers.NewCategoryHandler(categoryService),
		Auth:           handlers.NewAuthHandler(authService),
		Health:         a.storage,
		Tokens:         tokens,
		Idempotency:    idemService,
		IdempotencyTTL: a.config.Idempotency.TTL,
		Limiters: handlers.Limiters{
			General: a.newLimiter("general", rl.RPM),
			Login:   a.newLimiter("login", rl.LoginRPM),
			Refresh: a.newLimiter("refresh", rl.RefreshRPM),
			Batch:   a.newLimiter("batch", rl.BatchRPM),
		},
		AllowedOrigins: a.config.CORS.AllowedOrigins,
		RequestTimeout: a.config.Server.RequestTimeout,
	})

	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	a.sweeper = worker.NewIdempotencySweeper(idemService, &a.config.Idempotency.SweepInterval, &a.config.Idempotency.SweepBatch)

	logger.Info("Приложение инициализировано",
		zap.String("repository", a.config.Repository.Type),
		zap.String("rate_limit", a.config.RateLimit.Backend),
	)
	return nil
}

func (a *App) initStorage(ctx context.Context) error {
	switch a.config.Repository.Type {
	case config.RepositoryPostgres:
		if a.config.Database.MigrateOnStart {
			if err := postgres.MigrateUp(a.config.Database.URL); err != nil {
				return fmt.Errorf("миграции: %w", err)
			}
		}
		pg, err := postgres.New(ctx, a.config.Database)
		if err != nil {
			return fmt.Errorf("подключение к postgres: %w", err)
		}
		a.storage = pg
	default:
		a.storage = inmemory.New()
	}

	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Закрытие хранилища...")
		a.storage.Close()
	})
	return nil
}

func (a *App) initRedis(ctx context.Context) error {
	if a.config.RateLimit.Backend != config.RateLimitRedis {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     a.config.Redis.Addr,
		Password: a.config.Redis.Password,
		DB:       a.config.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("подключение к redis %s: %w", a.config.Redis.Addr, err)
	}

	a.redis = client
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Закрытие соединения с redis...")
		if err := client.Close(); err != nil {
			logger.Error("Ошибка закрытия redis", err)
		}
	})
	return nil
}

// newLimiter строит лимитер на rpm запросов в минуту. rpm <= 0 отключает лимит.
func (a *App) newLimiter(name string, rpm int) middleware.Limiter {
	if rpm <= 0 {
		return nil
	}
	if a.redis != nil {
		return middleware.NewRedisLimiter(a.redis, "ratelimit:"+name+":", rpm, time.Minute)
	}
	l := middleware.NewMemoryLimiter(rpm, time.Minute)
	a.memLimits = append(a.memLimits, l)
	return l
}

// Start занимает порт и запускает сервер, чистильщик идемпотентности и очистку лимитеров.
// Ошибка привязки к адресу возвращается сразу.
func (a *App) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("не могу слушать %s: %w", a.server.Addr, err)
	}

	a.addr = ln.Addr().String()

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	g, gctx := errgroup.WithContext(runCtx)
	a.group = g

	g.Go(func() error {
		logger.Info("Сервер запущен", zap.String("addr", a.addr))
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Сервер остановился с ошибкой", err)
			return err
		}
		return nil
	})

	g.Go(func() error {
		a.sweeper.Start(gctx)
		return nil
	})

	if len(a.memLimits) > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(limiterCleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					for _, l := range a.memLimits {
						l.Cleanup()
					}
				}
			}
		})
	}
	return nil
}

// Addr - фактический адрес сервера после Start
func (a *App) Addr() string {
	return a.addr
}

// Stop останавливает сервер, дожидается фоновых задач и освобождает ресурсы
func (a *App) Stop(ctx context.Context) error {
	logger.Info("Остановка приложения...")

	var stopErr error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			logger.Error("Ошибка остановки сервера", err)
			stopErr = err
		}
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.group != nil {
		if err := a.group.Wait(); err != nil && stopErr == nil {
			stopErr = err
		}
	}

	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	return stopErr
}
