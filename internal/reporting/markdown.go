package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"index-signal-lab/internal/domain"
)

// RenderMarkdown renders a run report as Markdown.
func RenderMarkdown(r *RunReport) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Signal Run Report: %s\n\n", r.Symbol))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", r.RunID))
	}
	if r.StrategyID != "" {
		sb.WriteString(fmt.Sprintf("Strategy: `%s`\n\n", r.StrategyID))
	}

	sb.WriteString("## Data\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Bars | %d |\n", r.Bars))
	sb.WriteString(fmt.Sprintf("| First Date | %s |\n", formatDate(r.FirstDate)))
	sb.WriteString(fmt.Sprintf("| Last Date | %s |\n", formatDate(r.LastDate)))
	sb.WriteString(fmt.Sprintf("| Buy Signals | %d |\n", r.BuySignals))
	sb.WriteString(fmt.Sprintf("| Sell Signals | %d |\n", r.SellSignals))
	if r.PendingBuy > 0 || r.PendingSell > 0 {
		sb.WriteString(fmt.Sprintf("| Pending Buy Bars | %d |\n", r.PendingBuy))
		sb.WriteString(fmt.Sprintf("| Pending Sell Bars | %d |\n", r.PendingSell))
	}
	sb.WriteString("\n")

	s := r.Summary
	sb.WriteString("## Ledger Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Legs | %d (%d closed, %d open) |\n", s.TotalLegs, s.ClosedLegs, s.OpenLegs))
	sb.WriteString(fmt.Sprintf("| Wins / Losses | %d / %d |\n", s.Wins, s.Losses))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.4f |\n", s.WinRate))
	sb.WriteString(fmt.Sprintf("| Final Cumulative Profit | %s |\n", money(s.FinalCumulativeProfit)))
	sb.WriteString(fmt.Sprintf("| Long / Short Profit | %s / %s |\n", money(s.LongProfit), money(s.ShortProfit)))
	sb.WriteString(fmt.Sprintf("| Mean / Median Profit | %s / %s |\n", money(s.ProfitMean), money(s.ProfitMedian)))
	sb.WriteString(fmt.Sprintf("| Profit Stddev | %s |\n", money(s.ProfitStddev)))
	sb.WriteString(fmt.Sprintf("| Best / Worst Leg | %s / %s |\n", money(s.BestProfit), money(s.WorstProfit)))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %s |\n", money(s.MaxDrawdown)))
	sb.WriteString(fmt.Sprintf("| Max Consecutive Losses | %d |\n", s.MaxConsecutiveLosses))
	if o := r.Open; o != nil && o.EntryPrice() != nil {
		sb.WriteString(fmt.Sprintf("| Open Position | %s @ %s since %s |\n", o.OpenSide, money(*o.EntryPrice()), formatDate(o.Date)))
	}
	sb.WriteString("\n")

	sb.WriteString("## Ledger\n\n")
	if len(r.Legs) > 0 {
		sb.WriteString("| # | Opened | Side | Buy | Sell | Closed | Profit | Cumulative |\n")
		sb.WriteString("|---|--------|------|-----|------|--------|--------|------------|\n")
		for _, l := range r.Legs {
			closed := ""
			if l.ClosedAt != nil {
				closed = formatDate(*l.ClosedAt)
			}
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s | %s | %s |\n",
				l.Seq, formatDate(l.Date), l.OpenSide,
				optional(l.BuyPrice), optional(l.SellPrice), closed,
				optional(l.Profit), optional(l.CumulativeProfit)))
		}
	} else {
		sb.WriteString("No trades.\n")
	}
	sb.WriteString("\n")

	if len(r.Errors) > 0 {
		sb.WriteString("## Errors\n\n")
		for _, e := range r.Errors {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderSweepMarkdown renders the top results of a sweep. top <= 0 renders all.
func RenderSweepMarkdown(r *SweepReport, top int) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Parameter Sweep: %s\n\n", r.Symbol))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Combinations: %d\n\n", len(r.Results)))

	results := r.Results
	if top > 0 && len(results) > top {
		results = results[:top]
	}

	if len(results) == 0 {
		sb.WriteString("No results.\n")
		return sb.String()
	}

	sb.WriteString("| Rank | Period | Buy | Sell | Signals (B/S) | Closed | WinRate | Final Profit | MaxDD | MaxLoss |\n")
	sb.WriteString("|------|--------|-----|------|---------------|--------|---------|--------------|-------|---------|\n")
	for i, res := range results {
		s := res.Summary
		sb.WriteString(fmt.Sprintf("| %d | %d | %g | %g | %d/%d | %d | %.4f | %s | %s | %d |\n",
			i+1, res.Period, res.BuyThreshold, res.SellThreshold,
			res.BuySignals, res.SellSignals, s.ClosedLegs, s.WinRate,
			money(s.FinalCumulativeProfit), money(s.MaxDrawdown), s.MaxConsecutiveLosses))
	}
	sb.WriteString("\n")

	return sb.String()
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(domain.DateLayout)
}
