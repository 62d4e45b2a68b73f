package memory

import (
	"context"
	"errors"
	"testing"

	"index-signal-lab/internal/domain"
	"index-signal-lab/internal/storage"
	"index-signal-lab/internal/strategy"
)

func sweepResult(period int, buy, sell, final float64) *domain.SweepResult {
	return &domain.SweepResult{
		StrategyID:    strategy.NewThresholdStrategy(period, buy, sell).ID(),
		Period:        period,
		BuyThreshold:  buy,
		SellThreshold: sell,
		Summary:       domain.LedgerSummary{FinalCumulativeProfit: final},
	}
}

func TestSweepResultStore_OrdersBestFirst(t *testing.T) {
	store := NewSweepResultStore()
	ctx := context.Background()

	results := []*domain.SweepResult{
		sweepResult(9, 130, -145, 12),
		sweepResult(5, 100, -100, 40),
		sweepResult(6, 100, -100, 12),
	}
	if err := store.ReplaceSweep(ctx, "KS200", results); err != nil {
		t.Fatalf("ReplaceSweep failed: %v", err)
	}

	got, err := store.GetSweep(ctx, "KS200")
	if err != nil {
		t.Fatalf("GetSweep failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	wantPeriods := []int{5, 6, 9}
	for i, r := range got {
		if r.Period != wantPeriods[i] {
			t.Errorf("position %d: expected period %d, got %d", i, wantPeriods[i], r.Period)
		}
		if r.Symbol != "KS200" {
			t.Errorf("position %d: expected symbol stamped, got %q", i, r.Symbol)
		}
	}
}

func TestSweepResultStore_Duplicate(t *testing.T) {
	store := NewSweepResultStore()

	err := store.ReplaceSweep(context.Background(), "KS200", []*domain.SweepResult{
		sweepResult(9, 130, -145, 1),
		sweepResult(9, 130, -145, 2),
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}
