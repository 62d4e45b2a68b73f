package main

import (
	"github.com/spf13/cobra"

	"index-signal-lab/internal/config"
	"index-signal-lab/internal/logging"
)

type rootFlags struct {
	configPath string
	logLevel   string
	symbol     string
	jsonOutput bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	a := &app{}

	root := &cobra.Command{
		Use:           "signallab",
		Short:         "CCI and reversal signal lab for daily index series",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			if flags.symbol != "" {
				cfg.Symbol = flags.symbol
			}
			if flags.logLevel != "" {
				cfg.Log.Level = flags.logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger
			a.metrics = newMetrics()
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "YAML config file")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	pf.StringVarP(&flags.symbol, "symbol", "s", "", "Index symbol override")
	pf.BoolVar(&flags.jsonOutput, "json", false, "Print results as JSON")

	root.AddCommand(
		newMigrateCmd(a),
		newFetchCmd(a, flags),
		newSignalsCmd(a, flags),
		newLedgerCmd(a, flags),
		newRunCmd(a, flags),
		newSweepCmd(a, flags),
		newReportCmd(a),
		newServeCmd(a),
	)
	return root
}
