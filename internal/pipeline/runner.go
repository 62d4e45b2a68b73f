// Package pipeline drives fetch → signals → ledger → notify for one symbol and
// runs threshold parameter sweeps.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"index-signal-lab/internal/chart"
	"index-signal-lab/internal/domain"
	"index-signal-lab/internal/idhash"
	"index-signal-lab/internal/ledger"
	"index-signal-lab/internal/marketdata"
	"index-signal-lab/internal/metrics"
	"index-signal-lab/internal/normalization"
	"index-signal-lab/internal/notify"
	"index-signal-lab/internal/observability"
	"index-signal-lab/internal/storage"
	"index-signal-lab/internal/strategy"
)

// Pipeline errors
var (
	ErrNoSource       = errors.New("no market data source configured")
	ErrInvalidRequest = errors.New("invalid request")
)

// BarArchiver receives a copy of every fetched series.
type BarArchiver interface {
	WriteBars(ctx context.Context, symbol string, bars []domain.PriceBar) error
}

// Options for creating Runner.
type Options struct {
	// Required stores
	IndexStore  storage.IndexSeriesStore
	LedgerStore storage.LedgerStore

	// Optional collaborators
	SweepStore storage.SweepResultStore // sweep results are not persisted when nil
	Source     marketdata.Source
	SourceName string // metrics label for Source
	Archive    BarArchiver
	Notifier   notify.Notifier
	Metrics    *observability.Metrics
	Logger     *zap.Logger

	// Chart export; disabled when ChartDir is empty
	ChartDir    string
	ChartFormat chart.Format

	Clock    func() time.Time
	NewRunID func() string
}

// Runner executes pipeline phases against the configured stores.
type Runner struct {
	indexStore  storage.IndexSeriesStore
	ledgerStore storage.LedgerStore
	sweepStore  storage.SweepResultStore
	source      marketdata.Source
	sourceName  string
	archive     BarArchiver
	notifier    notify.Notifier
	metrics     *observability.Metrics
	logger      *zap.Logger
	chartDir    string
	chartFormat chart.Format
	now         func() time.Time
	newRunID    func() string
}

// New creates a new Runner.
func New(opts Options) *Runner {
	r := &Runner{
		indexStore:  opts.IndexStore,
		ledgerStore: opts.LedgerStore,
		sweepStore:  opts.SweepStore,
		source:      opts.Source,
		sourceName:  opts.SourceName,
		archive:     opts.Archive,
		notifier:    opts.Notifier,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		chartDir:    opts.ChartDir,
		chartFormat: opts.ChartFormat,
		now:         opts.Clock,
		newRunID:    opts.NewRunID,
	}
	if r.sourceName == "" {
		r.sourceName = "source"
	}
	if r.notifier == nil {
		r.notifier = notify.NopNotifier{}
	}
	if r.metrics == nil {
		r.metrics = observability.NewMetrics("", prometheus.NewRegistry())
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.chartFormat == "" {
		r.chartFormat = chart.FormatCSV
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newRunID == nil {
		r.newRunID = uuid.NewString
	}
	return r
}

// RunRequest describes one pipeline run.
type RunRequest struct {
	Symbol   string
	Start    time.Time // zero means from the first stored bar
	End      time.Time // zero means through the last bar
	Strategy domain.StrategyConfig

	Fetch  bool // pull bars from the source and replace the stored series first
	Notify bool
	Chart  bool
}

// RunResult contains results from a pipeline run. Errors lists failures that
// did not prevent the ledger from being computed.
type RunResult struct {
	RunID      string
	Symbol     string
	StrategyID string
	InputHash  string
	StartedAt  time.Time
	FinishedAt time.Time

	Bars        int
	Events      []domain.SignalEvent
	BuySignals  int
	SellSignals int
	TodayBuys   int
	TodaySells  int

	Legs    []*domain.TradeLeg
	Summary domain.LedgerSummary

	ChartPath string
	Notified  bool
	Errors    []string
}

// Run executes the full pipeline.
// Phases:
//  1. Load bars (fetch and store, or read the stored series)
//  2. Generate signals and write them back to the series
//  3. Build and persist the ledger
//  4. Export the chart series and send the alert
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	started := r.now()
	result := &RunResult{
		RunID:     r.newRunID(),
		Symbol:    req.Symbol,
		StartedAt: started,
	}
	log := r.logger.With(zap.String("run_id", result.RunID), zap.String("symbol", req.Symbol))

	err := r.run(ctx, req, result, log)
	result.FinishedAt = r.now()
	r.metrics.RecordRun(observability.PhaseRun, result.FinishedAt.Sub(started), err)
	if err != nil {
		log.Error("run failed", zap.Error(err))
		return nil, err
	}

	log.Info("run completed",
		zap.String("strategy", result.StrategyID),
		zap.String("input", idhash.ShortHash(result.InputHash)),
		zap.Int("bars", result.Bars),
		zap.Int("legs", len(result.Legs)),
		zap.Float64("final_cumulative_profit", result.Summary.FinalCumulativeProfit),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func (r *Runner) run(ctx context.Context, req RunRequest, result *RunResult, log *zap.Logger) error {
	if req.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidRequest)
	}
	strat, err := strategy.FromConfig(req.Strategy)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	result.StrategyID = strat.ID()

	// Phase 1: bars
	var rows []*domain.IndexRow
	var bars []domain.PriceBar
	if req.Fetch {
		bars, err = r.fetchBars(ctx, req.Symbol, req.Start, req.End)
		if err != nil {
			return err
		}
		rows = domain.NewIndexRows(req.Symbol, bars)
		if err := r.archiveBars(ctx, req.Symbol, bars); err != nil {
			r.addError(result, log, "archive bars", err)
		}
	} else {
		rows, err = r.loadSeries(ctx, req.Symbol)
		if err != nil {
			return err
		}
		bars = domain.BarsFromRows(rowsInRange(rows, req.Start, req.End))
	}
	result.Bars = len(bars)
	result.InputHash = idhash.ComputeInputHash(req.Symbol, result.StrategyID, bars)
	log.Debug("bars loaded", zap.Int("bars", len(bars)), zap.Bool("fetched", req.Fetch))

	// Phase 2: signals
	events, err := strat.Generate(ctx, bars)
	if err != nil {
		return fmt.Errorf("generate signals: %w", err)
	}
	result.Events = events
	result.BuySignals, result.SellSignals = countRealized(events)
	r.metrics.RecordSignals(result.BuySignals, result.SellSignals)

	domain.ApplySignals(rows, events)
	if err := r.replaceSeries(ctx, req.Symbol, rows); err != nil {
		r.addError(result, log, "persist signals", err)
	}

	// Phase 3: ledger
	result.Legs = ledger.Build(events)
	result.Summary = metrics.Compute(result.Legs)
	result.TodayBuys, result.TodaySells = ledger.CountSignalsOn(events, domain.Day(result.StartedAt))
	r.metrics.RecordLedger(req.Symbol, len(result.Legs), result.Summary.FinalCumulativeProfit)

	if err := r.replaceLedger(ctx, req.Symbol, result.Legs); err != nil {
		r.addError(result, log, "persist ledger", err)
	}

	// Phase 4: side effects
	if req.Chart && r.chartDir != "" {
		path, err := chart.WriteFile(r.chartDir, ChartName(req.Strategy, result.StrategyID), r.chartFormat,
			chart.Build(events, result.Legs))
		if err != nil {
			r.addError(result, log, "export chart", err)
		} else {
			result.ChartPath = path
		}
	}

	if req.Notify {
		msg := notify.FormatAlert(notify.Alert{
			Symbol:           req.Symbol,
			StrategyID:       result.StrategyID,
			At:               result.StartedAt,
			Buys:             result.TodayBuys,
			Sells:            result.TodaySells,
			CumulativeProfit: result.Summary.FinalCumulativeProfit,
		})
		err := r.notifier.Send(ctx, msg)
		r.metrics.RecordNotification(err)
		if err != nil {
			r.addError(result, log, "notify", err)
		} else {
			result.Notified = true
			log.Info("alert sent")
		}
	}

	return nil
}

// FetchResult summarizes a fetch.
type FetchResult struct {
	Bars   int
	First  time.Time
	Last   time.Time
	Errors []string
}

// Fetch pulls bars from the source and replaces the stored series with
// signal-free rows.
func (r *Runner) Fetch(ctx context.Context, symbol string, start, end time.Time) (*FetchResult, error) {
	log := r.logger.With(zap.String("symbol", symbol))

	bars, err := r.fetchBars(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if err := r.replaceSeries(ctx, symbol, domain.NewIndexRows(symbol, bars)); err != nil {
		return nil, fmt.Errorf("store series: %w", err)
	}

	res := &FetchResult{Bars: len(bars)}
	if len(bars) > 0 {
		res.First = bars[0].Date
		res.Last = bars[len(bars)-1].Date
	}
	if err := r.archiveBars(ctx, symbol, bars); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("archive bars: %v", err))
		log.Warn("archive bars failed", zap.Error(err))
	}

	log.Info("series stored", zap.Int("bars", len(bars)))
	return res, nil
}

// SignalsResult summarizes a signal pass.
type SignalsResult struct {
	StrategyID  string
	Bars        int
	BuySignals  int
	SellSignals int
}

// GenerateSignals reads the stored series, runs the strategy over it and
// writes the signal columns back.
func (r *Runner) GenerateSignals(ctx context.Context, symbol string, cfg domain.StrategyConfig) (*SignalsResult, error) {
	strat, err := strategy.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	rows, err := r.loadSeries(ctx, symbol)
	if err != nil {
		return nil, err
	}

	events, err := strat.Generate(ctx, domain.BarsFromRows(rows))
	if err != nil {
		return nil, fmt.Errorf("generate signals: %w", err)
	}
	domain.ApplySignals(rows, events)
	if err := r.replaceSeries(ctx, symbol, rows); err != nil {
		return nil, fmt.Errorf("store signals: %w", err)
	}

	res := &SignalsResult{StrategyID: strat.ID(), Bars: len(rows)}
	res.BuySignals, res.SellSignals = countRealized(events)
	r.metrics.RecordSignals(res.BuySignals, res.SellSignals)

	r.logger.Info("signals stored",
		zap.String("symbol", symbol),
		zap.String("strategy", res.StrategyID),
		zap.Int("buys", res.BuySignals),
		zap.Int("sells", res.SellSignals),
	)
	return res, nil
}

// LedgerResult summarizes a ledger pass.
type LedgerResult struct {
	Events     []domain.SignalEvent
	Legs       []*domain.TradeLeg
	Summary    domain.LedgerSummary
	TodayBuys  int
	TodaySells int
	ChartPath  string
}

// BuildLedger reads stored signals, builds the ledger and replaces the stored
// ledger. The chart series is exported when a chart directory is configured.
func (r *Runner) BuildLedger(ctx context.Context, symbol string, chartName string) (*LedgerResult, error) {
	rows, err := r.loadSeries(ctx, symbol)
	if err != nil {
		return nil, err
	}

	events := domain.EventsFromRows(rows)
	legs := ledger.Build(events)
	if err := r.replaceLedger(ctx, symbol, legs); err != nil {
		return nil, fmt.Errorf("store ledger: %w", err)
	}

	res := &LedgerResult{
		Events:  events,
		Legs:    legs,
		Summary: metrics.Compute(legs),
	}
	res.TodayBuys, res.TodaySells = ledger.CountSignalsOn(events, domain.Day(r.now()))
	r.metrics.RecordLedger(symbol, len(legs), res.Summary.FinalCumulativeProfit)

	if r.chartDir != "" && chartName != "" {
		path, err := chart.WriteFile(r.chartDir, chartName, r.chartFormat, chart.Build(events, legs))
		if err != nil {
			return nil, fmt.Errorf("export chart: %w", err)
		}
		res.ChartPath = path
	}

	r.logger.Info("ledger stored",
		zap.String("symbol", symbol),
		zap.Int("legs", len(legs)),
		zap.Float64("final_cumulative_profit", res.Summary.FinalCumulativeProfit),
	)
	return res, nil
}

func (r *Runner) fetchBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error) {
	if r.source == nil {
		return nil, ErrNoSource
	}

	started := time.Now()
	bars, err := r.source.Fetch(ctx, symbol, start, end)
	r.metrics.RecordFetch(r.sourceName, len(bars), time.Since(started), err)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	if err := normalization.ValidateOrder(bars); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	return bars, nil
}

func (r *Runner) archiveBars(ctx context.Context, symbol string, bars []domain.PriceBar) error {
	if r.archive == nil {
		return nil
	}
	return r.timed("archive", "write_bars", func() error {
		return r.archive.WriteBars(ctx, symbol, bars)
	})
}

func (r *Runner) loadSeries(ctx context.Context, symbol string) ([]*domain.IndexRow, error) {
	var rows []*domain.IndexRow
	err := r.timed("index", "get_series", func() error {
		var err error
		rows, err = r.indexStore.GetSeries(ctx, symbol)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load series %s: %w", symbol, err)
	}
	if err := normalization.ValidateRowOrder(rows); err != nil {
		return nil, fmt.Errorf("load series %s: %w", symbol, err)
	}
	return rows, nil
}

func (r *Runner) replaceSeries(ctx context.Context, symbol string, rows []*domain.IndexRow) error {
	return r.timed("index", "replace_series", func() error {
		return r.indexStore.ReplaceSeries(ctx, symbol, rows)
	})
}

func (r *Runner) replaceLedger(ctx context.Context, symbol string, legs []*domain.TradeLeg) error {
	return r.timed("ledger", "replace_ledger", func() error {
		return r.ledgerStore.ReplaceLedger(ctx, symbol, legs)
	})
}

func (r *Runner) timed(store, operation string, fn func() error) error {
	started := time.Now()
	err := fn()
	r.metrics.RecordDBQuery(store, operation, time.Since(started), err)
	return err
}

func (r *Runner) addError(result *RunResult, log *zap.Logger, step string, err error) {
	result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", step, err))
	log.Warn(step+" failed", zap.Error(err))
}

// rowsInRange keeps rows within [start, end]. Zero bounds are open.
func rowsInRange(rows []*domain.IndexRow, start, end time.Time) []*domain.IndexRow {
	if start.IsZero() && end.IsZero() {
		return rows
	}
	out := make([]*domain.IndexRow, 0, len(rows))
	for _, row := range rows {
		if !start.IsZero() && row.Date.Before(start) {
			continue
		}
		if !end.IsZero() && row.Date.After(end) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func countRealized(events []domain.SignalEvent) (buys, sells int) {
	for _, e := range events {
		if e.Buy {
			buys++
		}
		if e.Sell {
			sells++
		}
	}
	return buys, sells
}

// ChartName names the chart file of a single run.
func ChartName(cfg domain.StrategyConfig, strategyID string) string {
	if cfg.StrategyType == domain.StrategyTypeThreshold {
		return chart.FileName(*cfg.Period, *cfg.BuyThreshold, *cfg.SellThreshold)
	}
	return strings.ToLower(strategyID)
}
