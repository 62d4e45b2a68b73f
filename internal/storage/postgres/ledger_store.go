package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"index-signal-lab/internal/domain"
	"index-signal-lab/internal/storage"
)

// LedgerStore implements storage.LedgerStore over the returns_data table.
type LedgerStore struct {
	pool *Pool
}

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(pool *Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

var _ storage.LedgerStore = (*LedgerStore)(nil)

// ReplaceLedger deletes the symbol's legs and inserts legs within one transaction.
func (s *LedgerStore) ReplaceLedger(ctx context.Context, symbol string, legs []*domain.TradeLeg) error {
	if symbol == "" {
		return fmt.Errorf("%w: empty symbol", storage.ErrInvalidInput)
	}
	for i, l := range legs {
		if l == nil {
			return fmt.Errorf("%w: nil leg at %d", storage.ErrInvalidInput, i)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM returns_data WHERE symbol = $1`, symbol); err != nil {
		return fmt.Errorf("delete ledger: %w", err)
	}

	batch := &pgx.Batch{}
	for _, l := range legs {
		batch.Queue(`
			INSERT INTO returns_data (
				symbol, seq, date, open_side, buy_price, sell_price, closed_at, profit, cumulative_profit
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			symbol, l.Seq, domain.Day(l.Date), string(l.OpenSide),
			l.BuyPrice, l.SellPrice, l.ClosedAt, l.Profit, l.CumulativeProfit,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert ledger: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetLedger retrieves the legs of symbol ordered by seq ASC.
func (s *LedgerStore) GetLedger(ctx context.Context, symbol string) ([]*domain.TradeLeg, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT seq, date, open_side, buy_price, sell_price, closed_at, profit, cumulative_profit
		FROM returns_data
		WHERE symbol = $1
		ORDER BY seq ASC
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("get ledger: %w", err)
	}
	defer rows.Close()

	return scanLegs(rows)
}

func scanLegs(rows pgx.Rows) ([]*domain.TradeLeg, error) {
	legs := make([]*domain.TradeLeg, 0)
	for rows.Next() {
		var (
			l    domain.TradeLeg
			side string
		)
		err := rows.Scan(&l.Seq, &l.Date, &side, &l.BuyPrice, &l.SellPrice, &l.ClosedAt, &l.Profit, &l.CumulativeProfit)
		if err != nil {
			return nil, fmt.Errorf("scan leg: %w", err)
		}
		l.OpenSide = domain.Side(side)
		l.Date = domain.Day(l.Date)
		if l.ClosedAt != nil {
			closed := domain.Day(*l.ClosedAt)
			l.ClosedAt = &closed
		}
		legs = append(legs, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate legs: %w", err)
	}
	return legs, nil
}
