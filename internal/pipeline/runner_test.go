package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"index-signal-lab/internal/domain"
	"index-signal-lab/internal/marketdata"
	"index-signal-lab/internal/storage"
	"index-signal-lab/internal/storage/memory"
	"index-signal-lab/internal/strategy"
)

var fixedNow = time.Date(2024, 3, 8, 15, 30, 0, 0, time.UTC)

func day(i int) time.Time {
	return time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func fixtureBars(closes ...float64) []domain.PriceBar {
	bars := make([]domain.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = domain.PriceBar{Date: day(i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return bars
}

// Reversal(4) over these closes buys at 100 on day 2 and sells at 110 on day 4.
var reversalCloses = []float64{100, 90, 100, 120, 110}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *recordingNotifier) Send(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return n.err
}

type recordingArchive struct {
	bars []domain.PriceBar
}

func (a *recordingArchive) WriteBars(_ context.Context, _ string, bars []domain.PriceBar) error {
	a.bars = append(a.bars, bars...)
	return nil
}

type failingLedgerStore struct {
	*memory.LedgerStore
}

func (failingLedgerStore) ReplaceLedger(context.Context, string, []*domain.TradeLeg) error {
	return errors.New("connection refused")
}

type testEnv struct {
	runner      *Runner
	indexStore  *memory.IndexSeriesStore
	ledgerStore *memory.LedgerStore
	notifier    *recordingNotifier
}

func newTestEnv(t *testing.T, mutate func(*Options)) *testEnv {
	t.Helper()
	env := &testEnv{
		indexStore:  memory.NewIndexSeriesStore(),
		ledgerStore: memory.NewLedgerStore(),
		notifier:    &recordingNotifier{},
	}
	opts := Options{
		IndexStore:  env.indexStore,
		LedgerStore: env.ledgerStore,
		SweepStore:  memory.NewSweepResultStore(),
		Source: marketdata.NewStaticSource(map[string][]domain.PriceBar{
			"KS200": fixtureBars(reversalCloses...),
		}),
		Notifier: env.notifier,
		Clock:    func() time.Time { return fixedNow },
		NewRunID: func() string { return "run-1" },
	}
	if mutate != nil {
		mutate(&opts)
	}
	env.runner = New(opts)
	return env
}

func TestRun_FetchSignalsLedgerNotify(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	result, err := env.runner.Run(ctx, RunRequest{
		Symbol:   "KS200",
		Strategy: domain.ReversalConfig(4),
		Fetch:    true,
		Notify:   true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.RunID != "run-1" || result.StrategyID != "REVERSAL_4" {
		t.Errorf("unexpected ids: %s %s", result.RunID, result.StrategyID)
	}
	if len(result.InputHash) != 64 {
		t.Errorf("expected input hash, got %q", result.InputHash)
	}
	if result.Bars != 5 || result.BuySignals != 1 || result.SellSignals != 1 {
		t.Errorf("unexpected counts: bars=%d buys=%d sells=%d", result.Bars, result.BuySignals, result.SellSignals)
	}
	if result.TodayBuys != 0 || result.TodaySells != 1 {
		t.Errorf("expected today's signals 0/1, got %d/%d", result.TodayBuys, result.TodaySells)
	}
	if len(result.Legs) != 2 || result.Summary.FinalCumulativeProfit != 10 {
		t.Errorf("expected 2 legs and final profit 10, got %d legs %f", len(result.Legs), result.Summary.FinalCumulativeProfit)
	}
	if len(result.Errors) != 0 {
		t.Errorf("expected no errors, got %v", result.Errors)
	}

	if !result.Notified || len(env.notifier.messages) != 1 {
		t.Fatalf("expected one alert, got %d", len(env.notifier.messages))
	}
	msg := env.notifier.messages[0]
	for _, want := range []string{"<b>CCI Signal Alert</b>", "REVERSAL_4", "Sell signals today: 1", "Cumulative profit: 10.00"} {
		if !strings.Contains(msg, want) {
			t.Errorf("alert missing %q:\n%s", want, msg)
		}
	}

	rows, err := env.indexStore.GetSeries(ctx, "KS200")
	if err != nil {
		t.Fatalf("GetSeries failed: %v", err)
	}
	if len(rows) != 5 || !rows[2].BuySignal || !rows[4].SellSignal {
		t.Errorf("expected stored signal columns, got %+v", rows)
	}

	legs, err := env.ledgerStore.GetLedger(ctx, "KS200")
	if err != nil {
		t.Fatalf("GetLedger failed: %v", err)
	}
	if len(legs) != 2 || *legs[0].Profit != 10 {
		t.Errorf("unexpected stored ledger: %d legs", len(legs))
	}
}

func TestRun_NotifyFailureKeepsLedger(t *testing.T) {
	env := newTestEnv(t, nil)
	env.notifier.err = errors.New("telegram returned 400")

	result, err := env.runner.Run(context.Background(), RunRequest{
		Symbol:   "KS200",
		Strategy: domain.ReversalConfig(4),
		Fetch:    true,
		Notify:   true,
	})
	if err != nil {
		t.Fatalf("Run should not fail on notify error: %v", err)
	}
	if result.Notified {
		t.Error("expected Notified=false")
	}
	if len(result.Errors) != 1 || !strings.HasPrefix(result.Errors[0], "notify:") {
		t.Errorf("expected notify error collected, got %v", result.Errors)
	}
	if len(result.Legs) != 2 {
		t.Errorf("expected ledger despite notify failure, got %d legs", len(result.Legs))
	}
}

func TestRun_LedgerPersistFailure(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.LedgerStore = failingLedgerStore{memory.NewLedgerStore()}
	})

	result, err := env.runner.Run(context.Background(), RunRequest{
		Symbol:   "KS200",
		Strategy: domain.ReversalConfig(4),
		Fetch:    true,
	})
	if err != nil {
		t.Fatalf("Run should not fail on persistence error: %v", err)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "persist ledger") {
		t.Errorf("expected persist ledger error, got %v", result.Errors)
	}
	if result.Summary.FinalCumulativeProfit != 10 {
		t.Errorf("expected computed ledger, got final %f", result.Summary.FinalCumulativeProfit)
	}
}

func TestRun_StoredSeriesWithRange(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	if _, err := env.runner.Fetch(ctx, "KS200", time.Time{}, time.Time{}); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	// From day 1 the buy setup on day 2 is lost; only the sell on day 4 fires.
	result, err := env.runner.Run(ctx, RunRequest{
		Symbol:   "KS200",
		Start:    day(1),
		Strategy: domain.ReversalConfig(4),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Bars != 4 || result.BuySignals != 0 || result.SellSignals != 1 {
		t.Errorf("unexpected counts: bars=%d buys=%d sells=%d", result.Bars, result.BuySignals, result.SellSignals)
	}
	if len(result.Legs) != 1 || !result.Legs[0].IsOpen() {
		t.Errorf("expected one open sell leg, got %d", len(result.Legs))
	}

	rows, err := env.indexStore.GetSeries(ctx, "KS200")
	if err != nil {
		t.Fatalf("GetSeries failed: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected the full series kept, got %d rows", len(rows))
	}
	if rows[2].BuySignal || !rows[4].SellSignal {
		t.Errorf("expected signal columns from the ranged run, got buy=%v sell=%v", rows[2].BuySignal, rows[4].SellSignal)
	}
}

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown symbol", func(t *testing.T) {
		env := newTestEnv(t, nil)
		_, err := env.runner.Run(ctx, RunRequest{Symbol: "KS11", Strategy: domain.ReversalConfig(4)})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("invalid strategy", func(t *testing.T) {
		env := newTestEnv(t, nil)
		_, err := env.runner.Run(ctx, RunRequest{Symbol: "KS200", Strategy: domain.StrategyConfig{StrategyType: "MOMENTUM"}})
		if !errors.Is(err, ErrInvalidRequest) || !errors.Is(err, strategy.ErrUnknownStrategyType) {
			t.Errorf("expected ErrInvalidRequest wrapping ErrUnknownStrategyType, got %v", err)
		}
	})

	t.Run("no source", func(t *testing.T) {
		env := newTestEnv(t, func(o *Options) { o.Source = nil })
		_, err := env.runner.Run(ctx, RunRequest{Symbol: "KS200", Strategy: domain.ReversalConfig(4), Fetch: true})
		if !errors.Is(err, ErrNoSource) {
			t.Errorf("expected ErrNoSource, got %v", err)
		}
	})

	t.Run("source has no data", func(t *testing.T) {
		env := newTestEnv(t, nil)
		_, err := env.runner.Run(ctx, RunRequest{Symbol: "SPX", Strategy: domain.ReversalConfig(4), Fetch: true})
		if !errors.Is(err, marketdata.ErrNoData) {
			t.Errorf("expected ErrNoData, got %v", err)
		}
	})
}

func TestRun_ChartExport(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, func(o *Options) { o.ChartDir = dir })

	result, err := env.runner.Run(context.Background(), RunRequest{
		Symbol:   "KS200",
		Strategy: domain.ThresholdConfig(3, 100, -100),
		Fetch:    true,
		Chart:    true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := filepath.Join(dir, "cci_3_buy_100_sell_-100.csv")
	if result.ChartPath != want {
		t.Errorf("expected chart path %s, got %s", want, result.ChartPath)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("chart file not written: %v", err)
	}
}

func TestFetch_ArchivesBars(t *testing.T) {
	archive := &recordingArchive{}
	env := newTestEnv(t, func(o *Options) { o.Archive = archive })

	res, err := env.runner.Fetch(context.Background(), "KS200", day(1), day(3))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.Bars != 3 || !res.First.Equal(day(1)) || !res.Last.Equal(day(3)) {
		t.Errorf("unexpected fetch result: %+v", res)
	}
	if len(archive.bars) != 3 {
		t.Errorf("expected 3 archived bars, got %d", len(archive.bars))
	}

	rows, err := env.indexStore.GetSeries(context.Background(), "KS200")
	if err != nil {
		t.Fatalf("GetSeries failed: %v", err)
	}
	if rows[0].Change != 0 || rows[0].BuySignal {
		t.Errorf("expected signal-free first row with zero change, got %+v", rows[0])
	}
}

func TestGenerateSignalsThenBuildLedger(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, func(o *Options) { o.ChartDir = dir })
	ctx := context.Background()

	if _, err := env.runner.Fetch(ctx, "KS200", time.Time{}, time.Time{}); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	sig, err := env.runner.GenerateSignals(ctx, "KS200", domain.ReversalConfig(4))
	if err != nil {
		t.Fatalf("GenerateSignals failed: %v", err)
	}
	if sig.BuySignals != 1 || sig.SellSignals != 1 || sig.Bars != 5 {
		t.Errorf("unexpected signals result: %+v", sig)
	}

	res, err := env.runner.BuildLedger(ctx, "KS200", "reversal_4")
	if err != nil {
		t.Fatalf("BuildLedger failed: %v", err)
	}
	if len(res.Legs) != 2 || res.Summary.FinalCumulativeProfit != 10 {
		t.Errorf("unexpected ledger: %d legs final %f", len(res.Legs), res.Summary.FinalCumulativeProfit)
	}
	if res.TodaySells != 1 {
		t.Errorf("expected one sell today, got %d", res.TodaySells)
	}
	if res.ChartPath != filepath.Join(dir, "reversal_4.csv") {
		t.Errorf("unexpected chart path %s", res.ChartPath)
	}

	stored, err := env.ledgerStore.GetLedger(ctx, "KS200")
	if err != nil || len(stored) != 2 {
		t.Errorf("expected stored ledger, got %d legs err %v", len(stored), err)
	}
}
