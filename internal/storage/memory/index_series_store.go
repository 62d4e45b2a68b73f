package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"index-signal-lab/internal/domain"
	"index-signal-lab/internal/storage"
)

// IndexSeriesStore is an in-memory implementation of storage.IndexSeriesStore.
type IndexSeriesStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.IndexRow // keyed by symbol, sorted by date
}

// NewIndexSeriesStore creates a new in-memory index series store.
func NewIndexSeriesStore() *IndexSeriesStore {
	return &IndexSeriesStore{
		data: make(map[string][]*domain.IndexRow),
	}
}

// ReplaceSeries replaces every row of symbol. An empty slice removes the symbol.
func (s *IndexSeriesStore) ReplaceSeries(_ context.Context, symbol string, rows []*domain.IndexRow) error {
	if err := storage.ValidateRows(symbol, rows); err != nil {
		return err
	}

	copied := make([]*domain.IndexRow, len(rows))
	for i, r := range rows {
		rowCopy := *r
		rowCopy.Symbol = symbol
		rowCopy.Date = domain.Day(r.Date)
		copied[i] = &rowCopy
	}
	sort.Slice(copied, func(i, j int) bool {
		return copied[i].Date.Before(copied[j].Date)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(copied) == 0 {
		delete(s.data, symbol)
		return nil
	}
	s.data[symbol] = copied
	return nil
}

// GetSeries retrieves all rows of symbol, ordered by date ASC.
func (s *IndexSeriesStore) GetSeries(_ context.Context, symbol string) ([]*domain.IndexRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.data[symbol]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyRows(rows, time.Time{}, time.Time{}), nil
}

// GetByDateRange retrieves rows of symbol within [start, end] (inclusive).
func (s *IndexSeriesStore) GetByDateRange(_ context.Context, symbol string, start, end time.Time) ([]*domain.IndexRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return copyRows(s.data[symbol], domain.Day(start), domain.Day(end)), nil
}

// ListSymbols returns every stored symbol, sorted.
func (s *IndexSeriesStore) ListSymbols(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make([]string, 0, len(s.data))
	for symbol := range s.data {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// copyRows copies rows within [start, end]. Zero bounds are open.
func copyRows(rows []*domain.IndexRow, start, end time.Time) []*domain.IndexRow {
	result := make([]*domain.IndexRow, 0, len(rows))
	for _, r := range rows {
		if !start.IsZero() && r.Date.Before(start) {
			continue
		}
		if !end.IsZero() && r.Date.After(end) {
			continue
		}
		rowCopy := *r
		result = append(result, &rowCopy)
	}
	return result
}

var _ storage.IndexSeriesStore = (*IndexSeriesStore)(nil)
