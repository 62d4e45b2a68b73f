package clickhouse

import (
	"context"
	"fmt"
	"time"

	"index-signal-lab/internal/domain"
	"index-signal-lab/internal/storage"
)

// IndexSeriesStore implements storage.IndexSeriesStore over a ReplacingMergeTree index_data table.
type IndexSeriesStore struct {
	conn *Conn
}

// NewIndexSeriesStore creates a new IndexSeriesStore.
func NewIndexSeriesStore(conn *Conn) *IndexSeriesStore {
	return &IndexSeriesStore{conn: conn}
}

var _ storage.IndexSeriesStore = (*IndexSeriesStore)(nil)

const selectIndexRows = `
	SELECT symbol, date, open, high, low, close, volume, change,
		buy_signal, sell_signal, pending_buy, pending_sell
	FROM index_data FINAL
`

// ReplaceSeries removes the symbol's rows with a lightweight delete and inserts rows in one batch.
func (s *IndexSeriesStore) ReplaceSeries(ctx context.Context, symbol string, rows []*domain.IndexRow) error {
	if err := storage.ValidateRows(symbol, rows); err != nil {
		return err
	}

	if err := s.conn.Exec(ctx, `DELETE FROM index_data WHERE symbol = ?`, symbol); err != nil {
		return fmt.Errorf("delete index rows: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO index_data (
			symbol, date, open, high, low, close, volume, change,
			buy_signal, sell_signal, pending_buy, pending_sell
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		err := batch.Append(
			symbol, domain.Day(r.Date), r.Open, r.High, r.Low, r.Close, r.Volume, r.Change,
			r.BuySignal, r.SellSignal, r.PendingBuy, r.PendingSell,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetSeries retrieves all rows of symbol, ordered by date ASC.
func (s *IndexSeriesStore) GetSeries(ctx context.Context, symbol string) ([]*domain.IndexRow, error) {
	rows, err := s.conn.Query(ctx, selectIndexRows+`WHERE symbol = ? ORDER BY date ASC`, symbol)
	if err != nil {
		return nil, fmt.Errorf("query index series: %w", err)
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
	rows, err := s.conn.Query(ctx,
		selectIndexRows+`WHERE symbol = ? AND date >= ? AND date <= ? ORDER BY date ASC`,
		symbol, domain.Day(start), domain.Day(end))
	if err != nil {
		return nil, fmt.Errorf("query index rows by date range: %w", err)
	}
	defer rows.Close()

	return scanIndexRows(rows)
}

// ListSymbols returns every stored symbol, sorted.
func (s *IndexSeriesStore) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT symbol FROM index_data FINAL ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	symbols := make([]string, 0)
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate symbols: %w", err)
	}
	return symbols, nil
}

func scanIndexRows(rows chRows) ([]*domain.IndexRow, error) {
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
