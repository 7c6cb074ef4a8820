package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"todoTracker/internal/logger"

	"go.uber.org/zap"
)

type LimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (*LimitResult, error)
}

// KeyFunc выбирает ключ лимита для запроса
type KeyFunc func(r *http.Request) string

func KeyByIP(r *http.Request) string {
	return "ip:" + getIp(r)
}

// KeyByUser использует пользователя из контекста, без него - адрес клиента
func KeyByUser(r *http.Request) string {
	if id, ok := UserIDFromContext(r.Context()); ok {
		return "user:" + strconv.FormatInt(id, 10)
	}
	return KeyByIP(r)
}

type clientInfo struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter - фиксированное окно в памяти процесса
type MemoryLimiter struct {
	mtx     sync.Mutex
	clients map[string]*clientInfo
	limit   int
	window  time.Duration
	now     func() time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		clients: make(map[string]*clientInfo),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (*LimitResult, error) {
	now := l.now()

	l.mtx.Lock()
	defer l.mtx.Unlock()

	info, exists := l.clients[key]
	switch {
	case !exists:
		info = &clientInfo{resetAt: now.Add(l.window)}
		l.clients[key] = info
	case now.After(info.resetAt):
		info.count = 0
		info.resetAt = now.Add(l.window)
	}

	if info.count >= l.limit {
		return &LimitResult{
			Allowed:    false,
			Limit:      l.limit,
			ResetAt:    info.resetAt,
			RetryAfter: info.resetAt.Sub(now),
		}, nil
	}

	info.count++
	return &LimitResult{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: max(l.limit-info.count, 0),
		ResetAt:   info.resetAt,
	}, nil
}

// Cleanup удаляет истёкшие окна
func (l *MemoryLimiter) Cleanup() {
	now := l.now()
	l.mtx.Lock()
	defer l.mtx.Unlock()
	for key, info := range l.clients {
		if now.After(info.resetAt) {
			delete(l.clients, key)
		}
	}
}

// RateLimit отвечает 429 при превышении. Ошибка лимитера не блокирует запрос.
func RateLimit(limiter Limiter, keyFn KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Allow(r.Context(), keyFn(r))
			if err != nil {
				logger.Warn("HTTP: Лимитер недоступен, запрос пропущен",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeJSONError(w, r, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
					"Слишком много запросов. Попробуйте позже.",
					map[string]any{"retry_after": retryAfter})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
