package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"index-signal-lab/internal/domain"
	"index-signal-lab/internal/storage"
)

// LedgerStore is an in-memory implementation of storage.LedgerStore.
type LedgerStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.TradeLeg
}

// NewLedgerStore creates a new in-memory ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		data: make(map[string][]*domain.TradeLeg),
	}
}

// ReplaceLedger replaces every leg of symbol.
func (s *LedgerStore) ReplaceLedger(_ context.Context, symbol string, legs []*domain.TradeLeg) error {
	if symbol == "" {
		return fmt.Errorf("%w: empty symbol", storage.ErrInvalidInput)
	}

	copied := make([]*domain.TradeLeg, len(legs))
	seen := make(map[int]struct{}, len(legs))
	for i, l := range legs {
		if l == nil {
			return fmt.Errorf("%w: nil leg at %d", storage.ErrInvalidInput, i)
		}
		if _, dup := seen[l.Seq]; dup {
			return fmt.Errorf("%w: seq %d", storage.ErrDuplicateKey, l.Seq)
		}
		seen[l.Seq] = struct{}{}
		copied[i] = l.Clone()
	}
	sort.Slice(copied, func(i, j int) bool {
		return copied[i].Seq < copied[j].Seq
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[symbol] = copied
	return nil
}

// GetLedger retrieves the legs of symbol ordered by seq ASC.
func (s *LedgerStore) GetLedger(_ context.Context, symbol string) ([]*domain.TradeLeg, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	legs := s.data[symbol]
	result := make([]*domain.TradeLeg, len(legs))
	for i, l := range legs {
		result[i] = l.Clone()
	}
	return result, nil
}

var _ storage.LedgerStore = (*LedgerStore)(nil)
