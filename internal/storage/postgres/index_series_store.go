package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"index-signal-lab/internal/domain"
	"index-signal-lab/internal/storage"
)

// IndexSeriesStore implements storage.IndexSeriesStore over the index_data table.
type IndexSeriesStore struct {
	pool *Pool
}

// NewIndexSeriesStore creates a new IndexSeriesStore.
func NewIndexSeriesStore(pool *Pool) *IndexSeriesStore {
	return &IndexSeriesStore{pool: pool}
}

var _ storage.IndexSeriesStore = (*IndexSeriesStore)(nil)

var indexColumns = []string{
	"symbol", "date", "open", "high", "low", "close", "volume", "change",
	"buy_signal", "sell_signal", "pending_buy", "pending_sell",
}

const selectIndexRows = `
	SELECT symbol, date, open, high, low, close, volume, change,
		buy_signal, sell_signal, pending_buy, pending_sell
	FROM index_data
`

// ReplaceSeries deletes the symbol's rows and copies rows in within one transaction.
func (s *IndexSeriesStore) ReplaceSeries(ctx context.Context, symbol string, rows []*domain.IndexRow) error {
	if err := storage.ValidateRows(symbol, rows); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM index_data WHERE symbol = $1`, symbol); err != nil {
		return fmt.Errorf("delete index rows: %w", err)
	}

	if len(rows) > 0 {
		_, err = tx.CopyFrom(ctx, pgx.Identifier{"index_data"}, indexColumns,
			pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
				r := rows[i]
				return []any{
					symbol, domain.Day(r.Date), r.Open, r.High, r.Low, r.Close, r.Volume, r.Change,
					r.BuySignal, r.SellSignal, r.PendingBuy, r.PendingSell,
				}, nil
			}))
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("copy index rows: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetSeries retrieves all rows of symbol, ordered by date ASC.
func (s *IndexSeriesStore) GetSeries(ctx context.Context, symbol string) ([]*domain.IndexRow, error) {
	rows, err := s.pool.Query(ctx, selectIndexRows+`WHERE symbol = $1 ORDER BY date ASC`, symbol)
	if err != nil {
		return nil, fmt.Errorf("get index series: %w", err)
	}
	defer rows.Close()

	result, err := scanIndexRows(rows)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, storage.ErrNotFound
	}
	return result, nil
}

// GetByDateRange retrieves rows of symbol within [start, end] (inclusive).
func (s *IndexSeriesStore) GetByDateRange(ctx context.Context, symbol string, start, end time.Time) ([]*domain.IndexRow, error) {
	rows, err := s.pool.Query(ctx,
		selectIndexRows+`WHERE symbol = $1 AND date >= $2 AND date <= $3 ORDER BY date ASC`,
		symbol, domain.Day(start), domain.Day(end))
	if err != nil {
		return nil, fmt.Errorf("get index rows by date range: %w", err)
	}
	defer rows.Close()

	return scanIndexRows(rows)
}

// ListSymbols returns every stored symbol, sorted.
func (s *IndexSeriesStore) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT symbol FROM index_data ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	defer rows.Close()

	symbols, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan symbols: %w", err)
	}
	return symbols, nil
}

func scanIndexRows(rows pgx.Rows) ([]*domain.IndexRow, error) {
	result := make([]*domain.IndexRow, 0)
	for rows.Next() {
		var r domain.IndexRow
		err := rows.Scan(
			&r.Symbol, &r.Date, &r.Open, &r.High, &r.Low, &r.Close, &r.Volume, &r.Change,
			&r.BuySignal, &r.SellSignal, &r.PendingBuy, &r.PendingSell,
		)
		if err != nil {
			return nil, fmt.Errorf("scan index row: %w", err)
		}
		r.Date = domain.Day(r.Date)
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate index rows: %w", err)
	}
	return result, nil
}
