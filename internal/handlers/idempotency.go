package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"todoTracker/internal/logger"
	"todoTracker/internal/middleware"
	"todoTracker/internal/models/idempotency"
	"todoTracker/internal/service"

	"go.uber.org/zap"
)

const replayedHeader = "Idempotent-Replayed"

// captureWriter пишет ответ клиенту и одновременно запоминает статус и тело
type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (cw *captureWriter) WriteHeader(code int) {
	if cw.status == 0 {
		cw.status = code
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.status == 0 {
		cw.status = http.StatusOK
	}
	cw.body.Write(b)
	return cw.ResponseWriter.Write(b)
}

// Idempotency повторяет сохранённый ответ для уже виденного Idempotency-Key.
// Без заголовка запрос проходит как обычно.
func Idempotency(store IdempotencyStore, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(idempotency.HeaderKey)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			requestId := middleware.GetRequestID(r.Context())

			if !service.ValidateKeyFormat(key) {
				logger.Warn("HTTP: Неверный ключ идемпотентности",
					zap.String("request_id", requestId),
					zap.Int("key_length", len(key)))
				responseWithError(w, http.StatusBadRequest, service.CodeValidation,
					"Idempotency-Key должен быть непустым и не длиннее 255 символов")
				return
			}

			userID, ok := currentUser(w, r)
			if !ok {
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
			if err != nil {
				responseWithError(w, http.StatusBadRequest, codeBadRequest, "не удалось прочитать тело запроса")
				return
			}
			r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))
			requestHash := service.ComputeRequestHash(body)

			cached, found, err := store.Lookup(r.Context(), userID, key)
			if err != nil {
				handleServiceError(w, r, err, "idempotency_lookup")
				return
			}
			if found {
				if cached.RequestHash != requestHash {
					logger.Warn("HTTP: Ключ идемпотентности повторно использован с другим телом",
						zap.String("request_id", requestId),
						zap.Int64("user_id", userID),
						zap.String("key", key))
				}

				logger.Info("HTTP_OUT: Повтор сохранённого ответа",
					zap.String("request_id", requestId),
					zap.Int("http_status", cached.StatusCode))

				w.Header().Set("Content-Type", "application/json")
				w.Header().Set(replayedHeader, "true")
				w.WriteHeader(cached.StatusCode)
				_, _ = w.Write(cached.Body)
				return
			}

			cw := &captureWriter{ResponseWriter: w}
			next.ServeHTTP(cw, r)

			if cw.status < 200 || cw.status >= 300 {
				return
			}

			// клиент мог отключиться, ответ всё равно нужно сохранить
			storeCtx := context.WithoutCancel(r.Context())
			if _, err := store.Store(storeCtx, userID, key, requestHash, cw.body.Bytes(), cw.status, ttl); err != nil {
				logger.Error("HTTP: Не удалось сохранить ответ по ключу идемпотентности", err,
					zap.String("request_id", requestId),
					zap.Int64("user_id", userID))
			}
		})
	}
}
