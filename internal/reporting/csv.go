package reporting

import (
	"fmt"
	"strings"

	"index-signal-lab/internal/domain"
)

// RenderLedgerCSV renders legs as CSV. Missing prices and profits are empty cells.
func RenderLedgerCSV(legs []*domain.TradeLeg) string {
	var sb strings.Builder

	sb.WriteString("seq,date,open_side,buy_price,sell_price,closed_at,profit,cumulative_profit\n")

	for _, l := range legs {
		closedAt := ""
		if l.ClosedAt != nil {
			closedAt = l.ClosedAt.Format(domain.DateLayout)
		}
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%s,%s,%s,%s,%s\n",
			l.Seq,
			l.Date.Format(domain.DateLayout),
			l.OpenSide,
			optional(l.BuyPrice),
			optional(l.SellPrice),
			closedAt,
			optional(l.Profit),
			optional(l.CumulativeProfit),
		))
	}

	return sb.String()
}

// RenderSweepCSV renders sweep results as CSV, one row per parameter combination.
func RenderSweepCSV(results []*domain.SweepResult) string {
	var sb strings.Builder

	sb.WriteString("strategy_id,period,buy_threshold,sell_threshold,buy_signals,sell_signals,")
	sb.WriteString("closed_legs,wins,losses,win_rate,final_cumulative_profit,profit_mean,profit_stddev,")
	sb.WriteString("max_drawdown,max_consecutive_losses\n")

	for _, r := range results {
		s := r.Summary
		sb.WriteString(fmt.Sprintf("%s,%d,%g,%g,%d,%d,%d,%d,%d,%.6f,%s,%.6f,%.6f,%.6f,%d\n",
			r.StrategyID,
			r.Period,
			r.BuyThreshold,
			r.SellThreshold,
			r.BuySignals,
			r.SellSignals,
			s.ClosedLegs,
			s.Wins,
			s.Losses,
			s.WinRate,
			money(s.FinalCumulativeProfit),
			s.ProfitMean,
			s.ProfitStddev,
			s.MaxDrawdown,
			s.MaxConsecutiveLosses,
		))
	}

	return sb.String()
}

func optional(v *float64) string {
	if v == nil {
		return ""
	}
	return money(*v)
}
