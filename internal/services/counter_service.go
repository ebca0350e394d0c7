package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cbw-coffee/api/internal/repositories"
)

const (
	orderCounterScope = "orders"
	// MaxOrderSequence is the largest sequence representable in the six digit suffix.
	MaxOrderSequence int64 = 999_999
)

// CounterServiceDeps bundles collaborators required to construct a counter service instance.
type CounterServiceDeps struct {
	Repository   repositories.CounterRepository
	NumberPrefix string
	Clock        func() time.Time
}

type counterService struct {
	repo       repositories.CounterRepository
	prefix     string
	clock      func() time.Time
	configMu   sync.Mutex
	configured map[string]struct{}
}

// NewCounterService constructs a service that hands out yearly order numbers.
func NewCounterService(deps CounterServiceDeps) (CounterService, error) {
	if deps.Repository == nil {
		return nil, errors.New("counter service: repository is required")
	}
	prefix := strings.ToUpper(strings.TrimSpace(deps.NumberPrefix))
	if prefix == "" {
		return nil, errors.New("counter service: number prefix is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &counterService{
		repo:   deps.Repository,
		prefix: prefix,
		clock: func() time.Time {
			return clock().UTC()
		},
		configured: make(map[string]struct{}),
	}, nil
}

func (s *counterService) NextOrderNumber(ctx context.Context) (string, error) {
	year := s.clock().Year()
	counterID := OrderCounterID(year)

	if err := s.ensureConfiguration(ctx, counterID); err != nil {
		return "", mapCounterError(err)
	}
	seq, err := s.repo.Next(ctx, counterID, 1)
	if err != nil {
		return "", mapCounterError(err)
	}
	return FormatOrderNumber(s.prefix, year, seq)
}

func (s *counterService) PeekOrderNumber(ctx context.Context) (string, error) {
	year := s.clock().Year()
	current, err := s.repo.Current(ctx, OrderCounterID(year))
	if err != nil {
		var repoErr repositories.RepositoryError
		if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
			return "", mapCounterError(err)
		}
		current = 0
	}
	return FormatOrderNumber(s.prefix, year, current+1)
}

// ensureConfiguration caps the yearly counter once per process so the repository itself refuses
// to run past the six digit range.
func (s *counterService) ensureConfiguration(ctx context.Context, counterID string) error {
	s.configMu.Lock()
	defer s.configMu.Unlock()

	if _, ok := s.configured[counterID]; ok {
		return nil
	}
	maxValue := MaxOrderSequence
	if err := s.repo.Configure(ctx, counterID, repositories.CounterConfig{Step: 1, MaxValue: &maxValue}); err != nil {
		return err
	}
	s.configured[counterID] = struct{}{}
	return nil
}

// OrderCounterID names the counter document backing order numbers for a year.
func OrderCounterID(year int) string {
	return fmt.Sprintf("%s:%04d", orderCounterScope, year)
}

// FormatOrderNumber renders PREFIX-YYYY-NNNNNN.
func FormatOrderNumber(prefix string, year int, seq int64) (string, error) {
	if seq < 1 {
		return "", fmt.Errorf("%w: sequence must be positive", ErrCounterInvalidInput)
	}
	if seq > MaxOrderSequence {
		return "", fmt.Errorf("%w: sequence %d exceeds %d for %04d", ErrCounterExhausted, seq, MaxOrderSequence, year)
	}
	return fmt.Sprintf("%s-%04d-%06d", prefix, year, seq), nil
}

func mapCounterError(err error) error {
	var counterErr *repositories.CounterError
	if errors.As(err, &counterErr) {
		switch counterErr.Code {
		case repositories.CounterErrorInvalidInput:
			return fmt.Errorf("%w: %s", ErrCounterInvalidInput, counterErr.Message)
		case repositories.CounterErrorExhausted:
			return fmt.Errorf("%w: %s", ErrCounterExhausted, counterErr.Message)
		}
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && (repoErr.IsUnavailable() || repoErr.IsConflict()) {
		return fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
	}
	return err
}
