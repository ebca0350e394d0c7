package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in process. Used by tests and single-instance dev servers.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Reserve(_ context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (State, Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if ok && !rec.expired(now) {
		if rec.Fingerprint != fingerprint {
			return 0, Record{}, ErrFingerprintMismatch
		}
		if rec.Completed {
			return StateCompleted, rec, nil
		}
		return StateInFlight, rec, nil
	}
	rec = Record{Fingerprint: fingerprint, CreatedAt: now, ExpiresAt: now.Add(ttl)}
	s.records[key] = rec
	return StateNew, rec, nil
}

func (s *MemoryStore) Complete(_ context.Context, key string, resp Response, now time.Time, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.records[key]
	rec.Completed = true
	rec.Status = resp.Status
	rec.Header = replayable(resp.Header)
	rec.Body = append([]byte(nil), resp.Body...)
	rec.ExpiresAt = now.Add(ttl)
	s.records[key] = rec
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) PurgeExpired(_ context.Context, now time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, rec := range s.records {
		if limit > 0 && removed >= limit {
			break
		}
		if rec.expired(now) {
			delete(s.records, key)
			removed++
		}
	}
	return removed, nil
}
