package worker

import (
	"context"
	"time"

	"todoTracker/internal/logger"

	"go.uber.org/zap"
)

const (
	defaultSweepInterval = 10 * time.Minute
	defaultSweepBatch    = 500
)

// ExpiredPurger удаляет истёкшие ключи идемпотентности, не больше limit за вызов
type ExpiredPurger interface {
	PurgeAllExpired(ctx context.Context, limit int) (int64, error)
}

type IdempotencySweeper struct {
	purger    ExpiredPurger
	interval  time.Duration
	batchSize int
}

func NewIdempotencySweeper(purger ExpiredPurger, interval *time.Duration, batchSize *int) *IdempotencySweeper {
	intervalToSet := defaultSweepInterval
	if interval != nil && *interval > 0 {
		intervalToSet = *interval
	}

	batchToSet := defaultSweepBatch
	if batchSize != nil && *batchSize > 0 {
		batchToSet = *batchSize
	}

	return &IdempotencySweeper{
		purger:    purger,
		interval:  intervalToSet,
		batchSize: batchToSet,
	}
}

func (w *IdempotencySweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Info("Worker: Очистка ключей идемпотентности запущена",
		zap.Duration("interval", w.interval),
		zap.Int("batch", w.batchSize))

	for {
		select {
		case <-ticker.C:
			w.Check(ctx)
		case <-ctx.Done():
			logger.Info("Worker: Очистка ключей идемпотентности останавливается")
			return
		}
	}
}

// Check удаляет истёкшие записи пачками, пока пачка заполняется целиком
func (w *IdempotencySweeper) Check(ctx context.Context) int64 {
	start := time.Now()
	var total int64

	for ctx.Err() == nil {
		deleted, err := w.purger.PurgeAllExpired(ctx, w.batchSize)
		if err != nil {
			logger.Warn("Worker: Ошибка очистки ключей идемпотентности", zap.Error(err))
			break
		}
		total += deleted
		if deleted < int64(w.batchSize) {
			break
		}
	}

	logger.Info("Worker: Завершение очистки ключей идемпотентности",
		zap.Duration("ms", time.Since(start)),
		zap.Int64("deleted", total))
	return total
}
