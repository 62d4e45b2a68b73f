package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"index-signal-lab/internal/domain"
	"index-signal-lab/internal/ledger"
	"index-signal-lab/internal/metrics"
	"index-signal-lab/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	indexStore  storage.IndexSeriesStore
	ledgerStore storage.LedgerStore
	sweepStore  storage.SweepResultStore
	now         func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. sweepStore may be nil when
// sweep reports are not needed.
func NewGenerator(
	indexStore storage.IndexSeriesStore,
	ledgerStore storage.LedgerStore,
	sweepStore storage.SweepResultStore,
) *Generator {
	return &Generator{
		indexStore:  indexStore,
		ledgerStore: ledgerStore,
		sweepStore:  sweepStore,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds a run report from the stored series and ledger of symbol.
func (g *Generator) Generate(ctx context.Context, symbol, strategyID string) (*RunReport, error) {
	rows, err := g.indexStore.GetSeries(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("load series: %w", err)
	}
	legs, err := g.ledgerStore.GetLedger(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	r := NewRunReport(symbol, strategyID, domain.EventsFromRows(rows), legs)
	r.GeneratedAt = g.now()
	return r, nil
}

// GenerateSweep builds a sweep report from stored results of symbol.
func (g *Generator) GenerateSweep(ctx context.Context, symbol string) (*SweepReport, error) {
	if g.sweepStore == nil {
		return nil, fmt.Errorf("sweep store not configured")
	}
	results, err := g.sweepStore.GetSweep(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("load sweep: %w", err)
	}
	r := NewSweepReport(symbol, results)
	r.GeneratedAt = g.now()
	return r, nil
}

// NewRunReport summarizes an in-memory run. GeneratedAt is left for the caller.
func NewRunReport(symbol, strategyID string, events []domain.SignalEvent, legs []*domain.TradeLeg) *RunReport {
	r := &RunReport{
		Symbol:     symbol,
		StrategyID: strategyID,
		Bars:       len(events),
		Summary:    metrics.Compute(legs),
		Legs:       legs,
		Open:       ledger.OpenLeg(legs),
	}
	if len(events) > 0 {
		r.FirstDate = events[0].Date
		r.LastDate = events[len(events)-1].Date
	}
	for _, e := range events {
		if e.Buy {
			r.BuySignals++
		}
		if e.Sell {
			r.SellSignals++
		}
		if e.PendingBuy {
			r.PendingBuy++
		}
		if e.PendingSell {
			r.PendingSell++
		}
	}
	return r
}

// NewSweepReport orders results best first. GeneratedAt is left for the caller.
func NewSweepReport(symbol string, results []*domain.SweepResult) *SweepReport {
	sorted := make([]*domain.SweepResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return storage.SweepLess(sorted[i], sorted[j])
	})
	return &SweepReport{Symbol: symbol, Results: sorted}
}
