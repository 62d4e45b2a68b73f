// Package marketdata provides daily bar sources: the Yahoo chart API, CSV exports and fixed in-memory series.
package marketdata

import (
	"context"
	"errors"
	"time"

	"index-signal-lab/internal/domain"
	"index-signal-lab/internal/normalization"
)

// ErrNoData is returned when a source has no bars for the requested symbol.
var ErrNoData = errors.New("no data")

// Source fetches daily bars in ascending date order with Change populated.
// A zero end means "up to the latest available bar".
type Source interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error)
}

// StaticSource serves fixed bars per symbol.
type StaticSource struct {
	bars map[string][]domain.PriceBar
}

// NewStaticSource creates a source over the given bars, keyed by symbol.
func NewStaticSource(bars map[string][]domain.PriceBar) *StaticSource {
	s := &StaticSource{bars: make(map[string][]domain.PriceBar, len(bars))}
	for symbol, series := range bars {
		s.bars[symbol] = normalization.NormalizeBars(series)
	}
	return s
}

// Fetch returns the symbol's bars within [start, end].
func (s *StaticSource) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	series, ok := s.bars[symbol]
	if !ok {
		return nil, ErrNoData
	}
	bars := normalization.FilterRange(series, start, end)
	normalization.ComputeChanges(bars)
	return bars, nil
}

var _ Source = (*StaticSource)(nil)
