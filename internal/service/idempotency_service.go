package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"todoTracker/internal/logger"
	"todoTracker/internal/models/idempotency"
	repo "todoTracker/internal/repository"

	"go.uber.org/zap"
)

type IdempotencyService struct {
	storage Storage
	ttl     time.Duration
	now     func() time.Time
}

type IdempotencyOption func(*IdempotencyService)

func WithIdempotencyClock(clock func() time.Time) IdempotencyOption {
	return func(s *IdempotencyService) {
		s.now = clock
	}
}

func NewIdempotencyService(storage Storage, ttl time.Duration, opts ...IdempotencyOption) *IdempotencyService {
	if ttl <= 0 {
		ttl = idempotency.DefaultTTL
	}
	s := &IdempotencyService{
		storage: storage,
		ttl:     ttl,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateKeyFormat отклоняет пустые ключи и ключи длиннее 255 символов
func ValidateKeyFormat(key string) bool {
	return key != "" && utf8.RuneCountInString(key) <= idempotency.MaxKeyLength
}

// ComputeRequestHash - sha256 канонического JSON (ключи объектов отсортированы).
// Тело, не являющееся JSON, хешируется как есть.
func ComputeRequestHash(body []byte) string {
	canonical := body
	if len(bytes.TrimSpace(body)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err == nil {
			if out, err := json.Marshal(v); err == nil {
				canonical = out
			}
		}
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// Lookup возвращает закешированный ответ только для неистёкшей записи
func (s *IdempotencyService) Lookup(ctx context.Context, userID int64, key string) (*idempotency.CachedResponse, bool, error) {
	var cached *idempotency.CachedResponse
	err := s.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		rec, err := uow.Idempotency().Lookup(ctx, userID, key, s.now())
		if err != nil {
			return err
		}
		cached = &idempotency.CachedResponse{
			StatusCode:  rec.StatusCode,
			Body:        rec.ResponseBody,
			RequestHash: rec.RequestHash,
		}
		return nil
	})
	if errors.Is(err, repo.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("поиск ключа идемпотентности: %w", err)
	}
	return cached, true, nil
}

// Store сначала удаляет истёкшие записи пользователя, потом сохраняет ответ.
// ttl <= 0 означает ttl сервиса.
func (s *IdempotencyService) Store(ctx context.Context, userID int64, key, requestHash string, body []byte, statusCode int, ttl time.Duration) (*idempotency.Record, error) {
	if !ValidateKeyFormat(key) {
		return nil, NewValidationError(idempotency.HeaderKey, "ключ пустой или длиннее 255 символов")
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	var stored *idempotency.Record
	err := s.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		now := s.now()
		purged, err := uow.Idempotency().PurgeExpired(ctx, userID, now)
		if err != nil {
			return fmt.Errorf("очистка истёкших ключей: %w", err)
		}
		if purged > 0 {
			logger.Debug("Service: Удалены истёкшие ключи идемпотентности",
				zap.Int64("user_id", userID), zap.Int64("count", purged))
		}

		stored, err = uow.Idempotency().Insert(ctx, &idempotency.Record{
			UserID:       userID,
			Key:          key,
			RequestHash:  requestHash,
			ResponseBody: body,
			StatusCode:   statusCode,
			ExpiresAt:    now.Add(ttl),
		})
		if err != nil {
			return fmt.Errorf("сохранение ключа идемпотентности: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// PurgeAllExpired удаляет истёкшие записи всех пользователей, не больше limit
func (s *IdempotencyService) PurgeAllExpired(ctx context.Context, limit int) (int64, error) {
	var deleted int64
	err := s.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		var err error
		deleted, err = uow.Idempotency().DeleteExpired(ctx, s.now(), limit)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("очистка ключей идемпотентности: %w", err)
	}
	return deleted, nil
}
