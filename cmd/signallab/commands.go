package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"index-signal-lab/internal/api"
	"index-signal-lab/internal/domain"
	"index-signal-lab/internal/notify"
	"index-signal-lab/internal/pipeline"
	"index-signal-lab/internal/reporting"
	"index-signal-lab/internal/storage/migrations"
	pgstore "index-signal-lab/internal/storage/postgres"
	"index-signal-lab/internal/strategy"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply Postgres and ClickHouse schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			applied := 0

			if dsn := a.cfg.Storage.PostgresDSN; dsn != "" {
				pool, err := pgstore.NewPool(ctx, dsn)
				if err != nil {
					return fmt.Errorf("connect to postgres: %w", err)
				}
				defer pool.Close()
				if err := migrations.RunPostgresMigrations(ctx, pool, a.logger); err != nil {
					return err
				}
				applied++
			}

			if dsn := a.cfg.Storage.ClickhouseDSN; dsn != "" {
				conn, err := migrations.RunClickhouseMigrations(ctx, dsn, a.logger)
				if err != nil {
					return err
				}
				conn.Close()
				applied++
			}

			if applied == 0 {
				return errors.New("no database configured: set POSTGRES_DSN and/or CLICKHOUSE_DSN")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied to %d database(s)\n", applied)
			return nil
		},
	}
}

func newFetchCmd(a *app, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch daily bars and replace the stored series",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, cleanup, err := a.openStores(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			runner, err := a.newRunner(s)
			if err != nil {
				return err
			}
			start, end, err := a.cfg.Range()
			if err != nil {
				return err
			}

			res, err := runner.Fetch(ctx, a.cfg.Symbol, start, end)
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				return printJSON(cmd, res)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: stored %d bars", a.cfg.Symbol, res.Bars)
			if res.Bars > 0 {
				fmt.Fprintf(out, " (%s .. %s)", res.First.Format(domain.DateLayout), res.Last.Format(domain.DateLayout))
			}
			fmt.Fprintln(out)
			printErrors(cmd, res.Errors)
			return nil
		},
	}
}

func newSignalsCmd(a *app, flags *rootFlags) *cobra.Command {
	var strategyType string

	cmd := &cobra.Command{
		Use:   "signals",
		Short: "Compute signals over the stored series and write them back",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strategyType != "" {
				a.cfg.Strategy.Type = strategyType
				if err := a.cfg.Validate(); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			s, cleanup, err := a.openStores(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			runner, err := a.newRunner(s)
			if err != nil {
				return err
			}
			res, err := runner.GenerateSignals(ctx, a.cfg.Symbol, a.cfg.DomainStrategy())
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				return printJSON(cmd, res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d bars, %d buy / %d sell signals\n",
				a.cfg.Symbol, res.StrategyID, res.Bars, res.BuySignals, res.SellSignals)
			return nil
		},
	}
	cmd.Flags().StringVar(&strategyType, "strategy", "", "Signal machine (threshold, reversal)")
	return cmd
}

func newLedgerCmd(a *app, flags *rootFlags) *cobra.Command {
	var chartName string

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Build the profit ledger from stored signals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, cleanup, err := a.openStores(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			runner, err := a.newRunner(s)
			if err != nil {
				return err
			}
			if chartName == "" && a.cfg.Chart.Dir != "" {
				if chartName, err = defaultChartName(a.cfg.DomainStrategy()); err != nil {
					return err
				}
			}
			res, err := runner.BuildLedger(ctx, a.cfg.Symbol, chartName)
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				return printJSON(cmd, map[string]any{
					"legs":        len(res.Legs),
					"today_buys":  res.TodayBuys,
					"today_sells": res.TodaySells,
					"summary":     res.Summary,
					"chart_path":  res.ChartPath,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Buy signals today: %d\n", res.TodayBuys)
			fmt.Fprintf(out, "Sell signals today: %d\n", res.TodaySells)
			fmt.Fprintf(out, "Legs: %d (%d closed)\n", res.Summary.TotalLegs, res.Summary.ClosedLegs)
			fmt.Fprintf(out, "Final cumulative profit: %s\n", notify.FormatProfit(res.Summary.FinalCumulativeProfit))
			if res.ChartPath != "" {
				fmt.Fprintf(out, "Chart: %s\n", res.ChartPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&chartName, "chart-name", "", "Chart file base name (default derived from the strategy)")
	return cmd
}

func newRunCmd(a *app, flags *rootFlags) *cobra.Command {
	var (
		noFetch   bool
		noNotify  bool
		withChart bool
		reportDir string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, compute signals and ledger, then send the alert",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, cleanup, err := a.openStores(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			runner, err := a.newRunner(s)
			if err != nil {
				return err
			}
			start, end, err := a.cfg.Range()
			if err != nil {
				return err
			}

			result, err := runner.Run(ctx, pipelineRunRequest(a, start, end, !noFetch, !noNotify, withChart))
			if err != nil {
				return err
			}

			if reportDir != "" {
				report := reporting.NewRunReport(result.Symbol, result.StrategyID, result.Events, result.Legs)
				report.GeneratedAt = result.FinishedAt
				report.RunID = result.RunID
				report.Errors = result.Errors
				path, err := writeReport(reportDir, "run_"+strings.ToLower(result.StrategyID), reporting.RenderMarkdown(report), reporting.RenderLedgerCSV(result.Legs))
				if err != nil {
					return err
				}
				a.metrics.ReportsGenerated.Inc()
				a.logger.Info("report written", zap.String("path", path))
			}

			if flags.jsonOutput {
				return printJSON(cmd, map[string]any{
					"run_id":      result.RunID,
					"symbol":      result.Symbol,
					"strategy_id": result.StrategyID,
					"input_hash":  result.InputHash,
					"bars":        result.Bars,
					"today_buys":  result.TodayBuys,
					"today_sells": result.TodaySells,
					"summary":     result.Summary,
					"notified":    result.Notified,
					"chart_path":  result.ChartPath,
					"errors":      result.Errors,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s: %s %s over %d bars\n", result.RunID, result.Symbol, result.StrategyID, result.Bars)
			fmt.Fprintf(out, "Buy signals today: %d\n", result.TodayBuys)
			fmt.Fprintf(out, "Sell signals today: %d\n", result.TodaySells)
			fmt.Fprintf(out, "Final cumulative profit: %s\n", notify.FormatProfit(result.Summary.FinalCumulativeProfit))
			printErrors(cmd, result.Errors)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noFetch, "no-fetch", false, "Use the stored series instead of fetching")
	cmd.Flags().BoolVar(&noNotify, "no-notify", false, "Skip the Telegram alert")
	cmd.Flags().BoolVar(&withChart, "chart", false, "Export the chart series to chart.dir")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "Write Markdown and CSV run reports to this directory")
	return cmd
}

func newSweepCmd(a *app, flags *rootFlags) *cobra.Command {
	var (
		charts    bool
		reportDir string
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Evaluate the threshold parameter grid over the stored series",
		RunE: func(cmd *cobra.Command, _ []string) error {
			grid, err := a.sweepGrid()
			if err != nil {
				return err
			}
			start, end, err := a.cfg.Range()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, cleanup, err := a.openStores(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			runner, err := a.newRunner(s)
			if err != nil {
				return err
			}
			out, err := runner.Sweep(ctx, pipelineSweepRequest(a, grid, start, end, charts))
			if err != nil {
				return err
			}

			report := reporting.NewSweepReport(out.Symbol, out.Results)
			report.GeneratedAt = out.StartedAt.Add(out.Duration)
			if reportDir != "" {
				path, err := writeReport(reportDir, "sweep_"+strings.ToLower(out.Symbol),
					reporting.RenderSweepMarkdown(report, a.cfg.Sweep.Top), reporting.RenderSweepCSV(report.Results))
				if err != nil {
					return err
				}
				a.metrics.ReportsGenerated.Inc()
				a.logger.Info("report written", zap.String("path", path))
			}

			if flags.jsonOutput {
				top := report.Results
				if n := a.cfg.Sweep.Top; n > 0 && len(top) > n {
					top = top[:n]
				}
				return printJSON(cmd, map[string]any{
					"run_id":       out.RunID,
					"combinations": len(out.Results),
					"top":          top,
					"errors":       out.Errors,
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), reporting.RenderSweepMarkdown(report, a.cfg.Sweep.Top))
			printErrors(cmd, out.Errors)
			return nil
		},
	}
	cmd.Flags().BoolVar(&charts, "charts", false, "Write one chart file per combination to chart.dir")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "Write Markdown and CSV sweep reports to this directory")
	return cmd
}

func newReportCmd(a *app) *cobra.Command {
	var (
		sweep  bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the stored ledger or sweep as Markdown or CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, cleanup, err := a.openStores(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			gen := reporting.NewGenerator(s.index, s.ledger, s.sweep)
			out := cmd.OutOrStdout()

			if sweep {
				r, err := gen.GenerateSweep(ctx, a.cfg.Symbol)
				if err != nil {
					return err
				}
				if format == "csv" {
					fmt.Fprint(out, reporting.RenderSweepCSV(r.Results))
				} else {
					fmt.Fprint(out, reporting.RenderSweepMarkdown(r, a.cfg.Sweep.Top))
				}
				return nil
			}

			strat, err := strategy.FromConfig(a.cfg.DomainStrategy())
			if err != nil {
				return err
			}
			r, err := gen.Generate(ctx, a.cfg.Symbol, strat.ID())
			if err != nil {
				return err
			}
			if format == "csv" {
				fmt.Fprint(out, reporting.RenderLedgerCSV(r.Legs))
			} else {
				fmt.Fprint(out, reporting.RenderMarkdown(r))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&sweep, "sweep", false, "Report stored sweep results instead of the ledger")
	cmd.Flags().StringVar(&format, "format", "markdown", "Output format (markdown, csv)")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored series, ledgers and on-demand runs over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, cleanup, err := a.openStores(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			runner, err := a.newRunner(s)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			srv := api.NewServer(api.Options{
				IndexStore:  s.index,
				LedgerStore: s.ledger,
				SweepStore:  s.sweep,
				Runner:      runner,
				Metrics:     a.metrics,
				Logger:      a.logger,
			}).NewHTTPServer(addr)

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("http server listening", zap.String("addr", addr), zap.String("backend", s.backend))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := contextWithTimeout(10 * time.Second)
			defer cancel()
			a.logger.Info("shutting down http server")
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default server.addr)")
	return cmd
}

func defaultChartName(cfg domain.StrategyConfig) (string, error) {
	strat, err := strategy.FromConfig(cfg)
	if err != nil {
		return "", err
	}
	return pipeline.ChartName(cfg, strat.ID()), nil
}

// writeReport writes name.md and name.csv into dir and returns the Markdown path.
func writeReport(dir, name, markdown, csv string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	mdPath := filepath.Join(dir, name+".md")
	if err := os.WriteFile(mdPath, []byte(markdown), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".csv"), []byte(csv), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return mdPath, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printErrors(cmd *cobra.Command, errs []string) {
	for _, e := range errs {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", e)
	}
}
