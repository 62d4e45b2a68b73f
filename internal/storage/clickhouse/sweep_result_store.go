package clickhouse

import (
	"context"
	"fmt"

	"index-signal-lab/internal/domain"
	"index-signal-lab/internal/storage"
)

// SweepResultStore implements storage.SweepResultStore using ClickHouse.
type SweepResultStore struct {
	conn *Conn
}

// NewSweepResultStore creates a new SweepResultStore.
func NewSweepResultStore(conn *Conn) *SweepResultStore {
	return &SweepResultStore{conn: conn}
}

var _ storage.SweepResultStore = (*SweepResultStore)(nil)

const sweepColumns = `
	symbol, strategy_id, period, buy_threshold, sell_threshold,
	buy_signals, sell_signals,
	total_legs, closed_legs, wins, losses, win_rate,
	final_cumulative_profit, profit_mean, profit_stddev,
	long_profit, short_profit, max_drawdown, max_consecutive_losses
`

// ReplaceSweep removes the symbol's results and inserts results in one batch.
func (s *SweepResultStore) ReplaceSweep(ctx context.Context, symbol string, results []*domain.SweepResult) error {
	if err := storage.ValidateSweep(symbol, results); err != nil {
		return err
	}

	if err := s.conn.Exec(ctx, `DELETE FROM sweep_results WHERE symbol = ?`, symbol); err != nil {
		return fmt.Errorf("delete sweep results: %w", err)
	}
	if len(results) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO sweep_results (`+sweepColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range results {
		sum := r.Summary
		err := batch.Append(
			symbol, r.StrategyID, uint32(r.Period), r.BuyThreshold, r.SellThreshold,
			uint32(r.BuySignals), uint32(r.SellSignals),
			uint32(sum.TotalLegs), uint32(sum.ClosedLegs), uint32(sum.Wins), uint32(sum.Losses), sum.WinRate,
			sum.FinalCumulativeProfit, sum.ProfitMean, sum.ProfitStddev,
			sum.LongProfit, sum.ShortProfit, sum.MaxDrawdown, uint32(sum.MaxConsecutiveLosses),
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

// GetSweep retrieves results of symbol, best first.
func (s *SweepResultStore) GetSweep(ctx context.Context, symbol string) ([]*domain.SweepResult, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT `+sweepColumns+`
		FROM sweep_results FINAL
		WHERE symbol = ?
		ORDER BY final_cumulative_profit DESC, period ASC, buy_threshold ASC, sell_threshold DESC
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("query sweep results: %w", err)
	}
	defer rows.Close()

	return scanSweepResults(rows)
}

func scanSweepResults(rows chRows) ([]*domain.SweepResult, error) {
	results := make([]*domain.SweepResult, 0)
	for rows.Next() {
		var (
			r                                           domain.SweepResult
			period, buys, sells                         uint32
			totalLegs, closedLegs, wins, losses, streak uint32
		)
		err := rows.Scan(
			&r.Symbol, &r.StrategyID, &period, &r.BuyThreshold, &r.SellThreshold,
			&buys, &sells,
			&totalLegs, &closedLegs, &wins, &losses, &r.Summary.WinRate,
			&r.Summary.FinalCumulativeProfit, &r.Summary.ProfitMean, &r.Summary.ProfitStddev,
			&r.Summary.LongProfit, &r.Summary.ShortProfit, &r.Summary.MaxDrawdown, &streak,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sweep result: %w", err)
		}
		r.Period = int(period)
		r.BuySignals = int(buys)
		r.SellSignals = int(sells)
		r.Summary.TotalLegs = int(totalLegs)
		r.Summary.ClosedLegs = int(closedLegs)
		r.Summary.OpenLegs = r.Summary.TotalLegs - r.Summary.ClosedLegs
		r.Summary.Wins = int(wins)
		r.Summary.Losses = int(losses)
		r.Summary.MaxConsecutiveLosses = int(streak)
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sweep results: %w", err)
	}
	return results, nil
}
