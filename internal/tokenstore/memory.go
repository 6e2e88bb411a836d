package tokenstore

import (
	"context"
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"beltche-mcp/pkg/logging"
)

// MemoryStore keeps records in process memory. Records are lost on restart.
//
// When the store is full, writing a new handle first evicts the handle that
// was inserted earliest. Reads do not refresh an entry's position.
type MemoryStore struct {
	mu         sync.Mutex
	records    *orderedmap.OrderedMap[string, Record]
	maxSize    int
	defaultTTL time.Duration
	now        func() time.Time
}

// Stats is a point-in-time view of the store's occupancy.
type Stats struct {
	Size    int `json:"size"`
	MaxSize int `json:"maxSize"`
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now, used in tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates an empty store holding at most maxSize records.
// Records written without an expiry expire after defaultTTL.
func NewMemoryStore(maxSize int, defaultTTL time.Duration, opts ...MemoryOption) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 1
	}
	s := &MemoryStore{
		records:    orderedmap.New[string, Record](),
		maxSize:    maxSize,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, handle string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records.Get(handle)
	if !ok {
		return nil, nil
	}
	if rec.ExpiredAt(s.now()) {
		s.records.Delete(handle)
		logging.Debug("TokenStore", "Purged expired token for %s", logging.MaskHandle(handle))
		return nil, nil
	}
	return &rec, nil
}

func (s *MemoryStore) Set(_ context.Context, handle string, rec *Record) error {
	stored := *rec
	if !stored.HasExpiry() {
		stored.ExpiresAt = s.now().Add(s.defaultTTL)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records.Get(handle); !exists && s.records.Len() >= s.maxSize {
		if oldest := s.records.Oldest(); oldest != nil {
			s.records.Delete(oldest.Key)
			logging.Warn("TokenStore", "Token store full (%d), evicted oldest entry %s", s.maxSize, logging.MaskHandle(oldest.Key))
		}
	}

	s.records.Set(handle, stored)
	logging.Debug("TokenStore", "Stored token for %s", logging.MaskHandle(handle))
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records.Delete(handle)
	logging.Debug("TokenStore", "Deleted token for %s", logging.MaskHandle(handle))
	return nil
}

func (s *MemoryStore) Has(ctx context.Context, handle string) (bool, error) {
	rec, err := s.Get(ctx, handle)
	return rec != nil, err
}

func (s *MemoryStore) ClearExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cleared := 0
	for pair := s.records.Oldest(); pair != nil; {
		next := pair.Next()
		if pair.Value.ExpiredAt(now) {
			s.records.Delete(pair.Key)
			cleared++
		}
		pair = next
	}

	if cleared > 0 {
		logging.Info("TokenStore", "Cleared %d expired tokens", cleared)
	}
	return cleared, nil
}

// Stats reports the current and maximum number of records.
func (s *MemoryStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Size: s.records.Len(), MaxSize: s.maxSize}
}

// Close is a no-op; it exists to satisfy Store.
func (s *MemoryStore) Close() error {
	return nil
}
