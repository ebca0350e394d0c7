package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/cbw-coffee/api/internal/platform/firestore"
	"github.com/cbw-coffee/api/internal/repositories"
)

const countersCollection = "counters"

// CounterRepository implements repositories.CounterRepository backed by Firestore transactions.
type CounterRepository struct {
	provider *pfirestore.Provider
	counters *pfirestore.BaseRepository[counterDocument]
	clock    func() time.Time
}

// NewCounterRepository constructs a Firestore-backed counter repository.
func NewCounterRepository(provider *pfirestore.Provider) (*CounterRepository, error) {
	if provider == nil {
		return nil, errors.New("counter repository requires firestore provider")
	}
	return &CounterRepository{
		provider: provider,
		counters: pfirestore.NewBaseRepository[counterDocument](provider, countersCollection),
		clock:    time.Now,
	}, nil
}

// Next atomically increments the counter identified by counterID and returns the new value.
func (r *CounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	id := strings.TrimSpace(counterID)
	if id == "" {
		return 0, repositories.NewCounterError(id, repositories.CounterErrorInvalidInput, "counter id is required", nil)
	}
	if step < 0 {
		return 0, repositories.NewCounterError(id, repositories.CounterErrorInvalidInput, fmt.Sprintf("step must be positive, got %d", step), nil)
	}

	var nextValue int64
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.counters.DocumentRef(ctx, id)
		if err != nil {
			return err
		}
		doc, exists, err := readCounter(tx, ref, id)
		if err != nil {
			return err
		}
		nextValue, err = advanceCounter(&doc, id, step, r.clock().UTC())
		if err != nil {
			return err
		}
		if !exists {
			return tx.Create(ref, doc)
		}
		return tx.Set(ref, doc)
	})
	if err != nil {
		var counterErr *repositories.CounterError
		if errors.As(err, &counterErr) {
			return 0, counterErr
		}
		return 0, pfirestore.WrapError("counters.next", err)
	}
	return nextValue, nil
}

// Current returns the last issued value.
func (r *CounterRepository) Current(ctx context.Context, counterID string) (int64, error) {
	doc, err := r.counters.Get(ctx, strings.TrimSpace(counterID))
	if err != nil {
		return 0, err
	}
	return doc.Data.CurrentValue, nil
}

// Configure updates optional counter settings. The initial value only applies to new counters.
func (r *CounterRepository) Configure(ctx context.Context, counterID string, cfg repositories.CounterConfig) error {
	id := strings.TrimSpace(counterID)
	if id == "" {
		return repositories.NewCounterError(id, repositories.CounterErrorInvalidInput, "counter id is required", nil)
	}

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.counters.DocumentRef(ctx, id)
		if err != nil {
			return err
		}
		doc, exists, err := readCounter(tx, ref, id)
		if err != nil {
			return err
		}
		if cfg.Step > 0 {
			doc.Step = cfg.Step
		}
		if cfg.MaxValue != nil {
			maxValue := *cfg.MaxValue
			doc.MaxValue = &maxValue
		}
		if cfg.InitialValue != nil && !exists {
			doc.CurrentValue = *cfg.InitialValue
		}
		doc.UpdatedAt = r.clock().UTC()
		return tx.Set(ref, doc)
	})
	return pfirestore.WrapError("counters.configure", err)
}
