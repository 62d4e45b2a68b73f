package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"index-signal-lab/internal/chart"
	"index-signal-lab/internal/domain"
	"index-signal-lab/internal/indicator"
	"index-signal-lab/internal/ledger"
	"index-signal-lab/internal/metrics"
	"index-signal-lab/internal/observability"
	"index-signal-lab/internal/storage"
	"index-signal-lab/internal/strategy"
)

// DefaultWorkers bounds sweep parallelism when the request leaves it unset.
const DefaultWorkers = 4

// SweepRequest describes a threshold parameter sweep over the stored series.
type SweepRequest struct {
	Symbol  string
	Start   time.Time
	End     time.Time
	Grid    Grid
	Workers int
	Charts  bool // write one chart file per combination into the chart directory
}

// SweepOutcome holds sweep results ordered best first.
type SweepOutcome struct {
	RunID     string
	Symbol    string
	Bars      int
	StartedAt time.Time
	Duration  time.Duration
	Results   []*domain.SweepResult
	Errors    []string
}

// Sweep evaluates every grid combination on a bounded worker pool. The
// oscillator is computed once per period and shared by its threshold pairs.
func (r *Runner) Sweep(ctx context.Context, req SweepRequest) (*SweepOutcome, error) {
	started := r.now()
	out := &SweepOutcome{RunID: r.newRunID(), Symbol: req.Symbol, StartedAt: started}
	log := r.logger.With(zap.String("run_id", out.RunID), zap.String("symbol", req.Symbol))

	err := r.sweep(ctx, req, out, log)
	out.Duration = r.now().Sub(started)
	r.metrics.RecordRun(observability.PhaseSweep, out.Duration, err)
	if err != nil {
		log.Error("sweep failed", zap.Error(err))
		return nil, err
	}

	fields := []zap.Field{
		zap.Int("combinations", len(out.Results)),
		zap.Duration("duration", out.Duration),
		zap.Int("errors", len(out.Errors)),
	}
	if len(out.Results) > 0 {
		fields = append(fields,
			zap.String("best", out.Results[0].StrategyID),
			zap.Float64("best_profit", out.Results[0].Summary.FinalCumulativeProfit))
	}
	log.Info("sweep completed", fields...)
	return out, nil
}

func (r *Runner) sweep(ctx context.Context, req SweepRequest, out *SweepOutcome, log *zap.Logger) error {
	if req.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidRequest)
	}
	if req.Grid.Size() == 0 {
		return fmt.Errorf("%w: empty grid", ErrInvalidRequest)
	}
	for _, p := range req.Grid.Periods {
		if p < 2 {
			return fmt.Errorf("%w: %w", ErrInvalidRequest, indicator.ErrInvalidPeriod)
		}
	}
	workers := req.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	rows, err := r.loadSeries(ctx, req.Symbol)
	if err != nil {
		return err
	}
	bars := domain.BarsFromRows(rowsInRange(rows, req.Start, req.End))
	out.Bars = len(bars)

	samples, err := r.oscillators(ctx, bars, req.Grid.Periods, workers)
	if err != nil {
		return err
	}

	combos := req.Grid.Combos()
	results := make([]*domain.SweepResult, len(combos))
	var (
		mu      sync.Mutex
		errList []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range combos {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s := strategy.NewThresholdStrategy(c.Period, c.BuyThreshold, c.SellThreshold)
			events := s.Apply(bars, samples[c.Period])
			legs := ledger.Build(events)
			buys, sells := countRealized(events)

			results[i] = &domain.SweepResult{
				Symbol:        req.Symbol,
				StrategyID:    s.ID(),
				Period:        c.Period,
				BuyThreshold:  c.BuyThreshold,
				SellThreshold: c.SellThreshold,
				BuySignals:    buys,
				SellSignals:   sells,
				Summary:       metrics.Compute(legs),
			}

			if req.Charts && r.chartDir != "" {
				name := chart.FileName(c.Period, c.BuyThreshold, c.SellThreshold)
				if _, err := chart.WriteFile(r.chartDir, name, r.chartFormat, chart.Build(events, legs)); err != nil {
					mu.Lock()
					errList = append(errList, fmt.Sprintf("export chart %s: %v", name, err))
					mu.Unlock()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return storage.SweepLess(results[i], results[j])
	})
	out.Results = results
	out.Errors = append(out.Errors, errList...)
	r.metrics.SweepCombos.Add(float64(len(results)))

	if r.sweepStore != nil {
		err := r.timed("sweep", "replace_sweep", func() error {
			return r.sweepStore.ReplaceSweep(ctx, req.Symbol, results)
		})
		if err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("persist sweep: %v", err))
			log.Warn("persist sweep failed", zap.Error(err))
		}
	}

	return nil
}

// oscillators computes one sample series per distinct period.
func (r *Runner) oscillators(ctx context.Context, bars []domain.PriceBar, periods []int, workers int) (map[int][]domain.OscillatorSample, error) {
	byPeriod := make(map[int][]domain.OscillatorSample, len(periods))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range periods {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			samples, err := indicator.CCI(bars, p)
			if err != nil {
				return fmt.Errorf("oscillator period %d: %w", p, err)
			}
			mu.Lock()
			byPeriod[p] = samples
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return byPeriod, nil
}
