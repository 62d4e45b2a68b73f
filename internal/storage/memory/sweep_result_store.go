package memory

import (
	"context"
	"sort"
	"sync"

	"index-signal-lab/internal/domain"
	"index-signal-lab/internal/storage"
)

// SweepResultStore is an in-memory implementation of storage.SweepResultStore.
type SweepResultStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.SweepResult
}

// NewSweepResultStore creates a new in-memory sweep result store.
func NewSweepResultStore() *SweepResultStore {
	return &SweepResultStore{
		data: make(map[string][]*domain.SweepResult),
	}
}

// ReplaceSweep replaces every result of symbol.
func (s *SweepResultStore) ReplaceSweep(_ context.Context, symbol string, results []*domain.SweepResult) error {
	if err := storage.ValidateSweep(symbol, results); err != nil {
		return err
	}

	copied := make([]*domain.SweepResult, len(results))
	for i, r := range results {
		resultCopy := *r
		resultCopy.Symbol = symbol
		copied[i] = &resultCopy
	}
	sort.SliceStable(copied, func(i, j int) bool {
		return storage.SweepLess(copied[i], copied[j])
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[symbol] = copied
	return nil
}

// GetSweep retrieves results of symbol, best first.
func (s *SweepResultStore) GetSweep(_ context.Context, symbol string) ([]*domain.SweepResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := s.data[symbol]
	out := make([]*domain.SweepResult, len(results))
	for i, r := range results {
		resultCopy := *r
		out[i] = &resultCopy
	}
	return out, nil
}

var _ storage.SweepResultStore = (*SweepResultStore)(nil)
