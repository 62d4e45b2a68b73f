// Package reporting renders run and sweep results as Markdown and CSV.
package reporting

import (
	"time"

	"index-signal-lab/internal/domain"
)

// RunReport describes one symbol's signals and ledger.
type RunReport struct {
	GeneratedAt time.Time
	RunID       string
	Symbol      string
	StrategyID  string

	// Data
	Bars      int
	FirstDate time.Time
	LastDate  time.Time

	// Signals
	BuySignals  int
	SellSignals int
	PendingBuy  int
	PendingSell int

	Summary domain.LedgerSummary
	Legs    []*domain.TradeLeg // in seq order
	Open    *domain.TradeLeg   // nil when no leg awaits its exit

	// Errors collected by a run that still produced a ledger.
	Errors []string
}

// SweepReport ranks parameter combinations by final cumulative profit.
type SweepReport struct {
	GeneratedAt time.Time
	Symbol      string
	Results     []*domain.SweepResult // best first
}
