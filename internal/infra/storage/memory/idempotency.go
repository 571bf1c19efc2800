package memory

import (
	"context"
	"sync"
	"time"

	"chakastays/internal/app/middleware"
)

// IdempotencyStore keeps command results for ttl after they were saved.
// A zero ttl keeps them for the life of the process.
type IdempotencyStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	records map[string]middleware.IdempotencyRecord
}

func NewIdempotencyStore(ttl time.Duration, now func() time.Time) *IdempotencyStore {
	if now == nil {
		now = time.Now
	}
	return &IdempotencyStore{ttl: ttl, now: now, records: map[string]middleware.IdempotencyRecord{}}
}

func (s *IdempotencyStore) Get(_ context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if s.stale(rec) {
		delete(s.records, key)
		return middleware.IdempotencyRecord{}, false, nil
	}
	return rec, true, nil
}

// Save stamps rec with the store's own clock, so expiry never depends on the
// caller's notion of time. It also sweeps stale records.
func (s *IdempotencyStore) Save(_ context.Context, rec middleware.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, old := range s.records {
		if s.stale(old) {
			delete(s.records, key)
		}
	}
	rec.OccurredAt = s.now().UTC()
	rec.Payload = append([]byte(nil), rec.Payload...)
	s.records[rec.Key] = rec
	return nil
}

func (s *IdempotencyStore) stale(rec middleware.IdempotencyRecord) bool {
	return s.ttl > 0 && !s.now().Before(rec.OccurredAt.Add(s.ttl))
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
