package jobs

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cbw-coffee/api/internal/platform/idempotency"
)

// IdempotencyJanitor periodically purges expired idempotency records.
type IdempotencyJanitor struct {
	store     idempotency.Store
	interval  time.Duration
	batchSize int
	timeout   time.Duration
	clock     func() time.Time
	logger    *zap.Logger
}

// NewIdempotencyJanitor validates its inputs. A nil logger is replaced with a no-op logger.
func NewIdempotencyJanitor(store idempotency.Store, interval time.Duration, batchSize int, logger *zap.Logger) (*IdempotencyJanitor, error) {
	if store == nil {
		return nil, errors.New("idempotency janitor: store is required")
	}
	if interval <= 0 {
		return nil, errors.New("idempotency janitor: interval must be positive")
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdempotencyJanitor{
		store:     store,
		interval:  interval,
		batchSize: batchSize,
		timeout:   time.Minute,
		clock:     time.Now,
		logger:    logger,
	}, nil
}

// Run purges on every tick until ctx is cancelled.
func (j *IdempotencyJanitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			j.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce performs a single purge pass and returns the number of removed records.
func (j *IdempotencyJanitor) RunOnce(ctx context.Context) int {
	runCtx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	removed, err := j.store.PurgeExpired(runCtx, j.clock().UTC(), j.batchSize)
	if err != nil {
		j.logger.Error("idempotency cleanup error", zap.Error(err))
		return 0
	}
	if removed > 0 {
		j.logger.Info("idempotency cleanup removed records", zap.Int("count", removed))
	}
	return removed
}
