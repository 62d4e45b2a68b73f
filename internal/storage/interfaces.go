package storage

import (
	"context"
	"fmt"
	"time"

	"index-signal-lab/internal/domain"
)

// IndexSeriesStore provides access to index_data storage.
type IndexSeriesStore interface {
	// ReplaceSeries replaces every row of symbol with rows.
	// Returns ErrDuplicateKey if two rows share a date.
	ReplaceSeries(ctx context.Context, symbol string, rows []*domain.IndexRow) error

	// GetSeries retrieves all rows of symbol, ordered by date ASC.
	// Returns ErrNotFound if the symbol has no rows.
	GetSeries(ctx context.Context, symbol string) ([]*domain.IndexRow, error)

	// GetByDateRange retrieves rows of symbol within [start, end] (inclusive).
	GetByDateRange(ctx context.Context, symbol string, start, end time.Time) ([]*domain.IndexRow, error)

	// ListSymbols returns every stored symbol, sorted.
	ListSymbols(ctx context.Context) ([]string, error)
}

// LedgerStore provides access to returns_data storage.
type LedgerStore interface {
	// ReplaceLedger replaces every leg of symbol with legs.
	ReplaceLedger(ctx context.Context, symbol string, legs []*domain.TradeLeg) error

	// GetLedger retrieves the legs of symbol ordered by seq ASC.
	// An unknown symbol yields an empty ledger.
	GetLedger(ctx context.Context, symbol string) ([]*domain.TradeLeg, error)
}

// SweepResultStore provides access to sweep_results storage.
type SweepResultStore interface {
	// ReplaceSweep replaces every result of symbol with results.
	// Returns ErrDuplicateKey if two results share a parameter combination.
	ReplaceSweep(ctx context.Context, symbol string, results []*domain.SweepResult) error

	// GetSweep retrieves results of symbol ordered by final cumulative profit DESC,
	// then in grid order.
	GetSweep(ctx context.Context, symbol string) ([]*domain.SweepResult, error)
}

// ValidateRows checks rows before a replace and stamps the symbol.
func ValidateRows(symbol string, rows []*domain.IndexRow) error {
	if symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidInput)
	}
	seen := make(map[time.Time]struct{}, len(rows))
	for i, r := range rows {
		if r == nil {
			return fmt.Errorf("%w: nil row at %d", ErrInvalidInput, i)
		}
		if r.Symbol != "" && r.Symbol != symbol {
			return fmt.Errorf("%w: row %d has symbol %q, want %q", ErrInvalidInput, i, r.Symbol, symbol)
		}
		day := domain.Day(r.Date)
		if _, dup := seen[day]; dup {
			return fmt.Errorf("%w: date %s", ErrDuplicateKey, day.Format(domain.DateLayout))
		}
		seen[day] = struct{}{}
	}
	return nil
}

// ValidateSweep checks sweep results before a replace.
func ValidateSweep(symbol string, results []*domain.SweepResult) error {
	if symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(results))
	for i, r := range results {
		if r == nil {
			return fmt.Errorf("%w: nil result at %d", ErrInvalidInput, i)
		}
		if r.StrategyID == "" {
			return fmt.Errorf("%w: result %d has no strategy id", ErrInvalidInput, i)
		}
		if _, dup := seen[r.StrategyID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, r.StrategyID)
		}
		seen[r.StrategyID] = struct{}{}
	}
	return nil
}

// SweepLess orders sweep results by final cumulative profit DESC, then in grid order.
func SweepLess(a, b *domain.SweepResult) bool {
	if a.Summary.FinalCumulativeProfit != b.Summary.FinalCumulativeProfit {
		return a.Summary.FinalCumulativeProfit > b.Summary.FinalCumulativeProfit
	}
	if a.Period != b.Period {
		return a.Period < b.Period
	}
	if a.BuyThreshold != b.BuyThreshold {
		return a.BuyThreshold < b.BuyThreshold
	}
	return a.SellThreshold > b.SellThreshold
}
