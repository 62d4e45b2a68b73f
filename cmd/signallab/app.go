package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"index-signal-lab/internal/chart"
	"index-signal-lab/internal/config"
	"index-signal-lab/internal/marketdata"
	"index-signal-lab/internal/notify"
	"index-signal-lab/internal/observability"
	"index-signal-lab/internal/pipeline"
	"index-signal-lab/internal/storage"
	chstore "index-signal-lab/internal/storage/clickhouse"
	"index-signal-lab/internal/storage/influx"
	"index-signal-lab/internal/storage/memory"
	pgstore "index-signal-lab/internal/storage/postgres"
)

// app carries the state shared by every subcommand.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *observability.Metrics
}

// stores holds the selected storage implementations.
type stores struct {
	index   storage.IndexSeriesStore
	ledger  storage.LedgerStore
	sweep   storage.SweepResultStore
	archive *influx.BarArchive // nil unless InfluxDB is configured
	backend string
}

// openStores picks Postgres for series and ledger when a DSN is set, ClickHouse
// for sweep results (and series when Postgres is absent), and memory otherwise.
func (a *app) openStores(ctx context.Context) (*stores, func(), error) {
	s := &stores{
		index:   memory.NewIndexSeriesStore(),
		ledger:  memory.NewLedgerStore(),
		sweep:   memory.NewSweepResultStore(),
		backend: "memory",
	}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if dsn := a.cfg.Storage.ClickhouseDSN; dsn != "" {
		conn, err := chstore.NewConn(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		s.index = chstore.NewIndexSeriesStore(conn)
		s.sweep = chstore.NewSweepResultStore(conn)
		s.backend = "clickhouse"
	}

	if dsn := a.cfg.Storage.PostgresDSN; dsn != "" {
		pool, err := pgstore.NewPool(ctx, dsn)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		s.index = pgstore.NewIndexSeriesStore(pool)
		s.ledger = pgstore.NewLedgerStore(pool)
		s.backend = "postgres"
	}

	if ic := a.cfg.Influx; ic.URL != "" {
		archive, err := influx.NewBarArchive(ctx, ic.URL, ic.Token, ic.Org, ic.Bucket, a.logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to influxdb: %w", err)
		}
		closers = append(closers, archive.Close)
		s.archive = archive
	}

	if s.backend == "memory" {
		a.logger.Warn("no database configured, using in-memory stores; data does not outlive this process")
	}
	return s, cleanup, nil
}

// newSource builds the configured market data source.
func (a *app) newSource(s *stores) (marketdata.Source, string, error) {
	src := a.cfg.Source
	switch src.Kind {
	case "csv":
		return marketdata.NewCSVSource(src.CSVPath, src.CSVEncoding), "csv", nil
	case "influx":
		if s.archive == nil {
			return nil, "", errors.New("source kind influx requires influx.url")
		}
		return s.archive, "influx", nil
	default:
		opts := []marketdata.YahooOption{marketdata.WithLogger(a.logger)}
		if src.YahooBaseURL != "" {
			opts = append(opts, marketdata.WithBaseURL(src.YahooBaseURL))
		}
		return marketdata.NewYahooSource(opts...), "yahoo", nil
	}
}

func (a *app) newNotifier() notify.Notifier {
	t := a.cfg.Telegram
	if !t.Enabled() {
		return notify.NopNotifier{}
	}
	opts := []notify.TelegramOption{notify.WithLogger(a.logger)}
	if t.APIURL != "" {
		opts = append(opts, notify.WithAPIURL(t.APIURL))
	}
	return notify.NewTelegramNotifier(t.BotToken, t.ChatID, opts...)
}

// newRunner wires a pipeline runner over s.
func (a *app) newRunner(s *stores) (*pipeline.Runner, error) {
	source, sourceName, err := a.newSource(s)
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{
		IndexStore:  s.index,
		LedgerStore: s.ledger,
		SweepStore:  s.sweep,
		Source:      source,
		SourceName:  sourceName,
		Notifier:    a.newNotifier(),
		Metrics:     a.metrics,
		Logger:      a.logger,
		ChartDir:    a.cfg.Chart.Dir,
		ChartFormat: chart.Format(a.cfg.Chart.Format),
	}
	// Archiving a series read back from the archive would be a no-op.
	if s.archive != nil && a.cfg.Source.Archive && sourceName != "influx" {
		opts.Archive = s.archive
	}
	return pipeline.New(opts), nil
}

func (a *app) sweepGrid() (pipeline.Grid, error) {
	sw := a.cfg.Sweep
	return pipeline.NewGrid(sw.PeriodFrom, sw.PeriodTo, sw.PeriodStep,
		sw.BuyFrom, sw.BuyTo, sw.BuyStep,
		sw.SellFrom, sw.SellTo, sw.SellStep)
}

func newMetrics() *observability.Metrics {
	return observability.NewMetrics("", prometheus.DefaultRegisterer)
}
