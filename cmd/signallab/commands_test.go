package main

import (
	"os"
	"path/filepath"
	"testing"

	"index-signal-lab/internal/domain"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	want := []string{"migrate", "fetch", "signals", "ledger", "run", "sweep", "report", "serve"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("expected subcommand %q, got %v (err %v)", name, cmd, err)
		}
	}
	for _, flag := range []string{"config", "log-level", "symbol", "json"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("expected persistent flag --%s", flag)
		}
	}
}

func TestWriteReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")

	path, err := writeReport(dir, "run_threshold", "# report\n", "seq\n")
	if err != nil {
		t.Fatalf("writeReport: %v", err)
	}
	if path != filepath.Join(dir, "run_threshold.md") {
		t.Errorf("unexpected path %s", path)
	}
	md, err := os.ReadFile(path)
	if err != nil || string(md) != "# report\n" {
		t.Errorf("unexpected markdown %q (err %v)", md, err)
	}
	csv, err := os.ReadFile(filepath.Join(dir, "run_threshold.csv"))
	if err != nil || string(csv) != "seq\n" {
		t.Errorf("unexpected csv %q (err %v)", csv, err)
	}
}

func TestDefaultChartName(t *testing.T) {
	name, err := defaultChartName(domain.ThresholdConfig(domain.DefaultPeriod, domain.DefaultBuyThreshold, domain.DefaultSellThreshold))
	if err != nil {
		t.Fatalf("defaultChartName: %v", err)
	}
	if name != "cci_9_buy_130_sell_-145" {
		t.Errorf("unexpected chart name %q", name)
	}

	if _, err := defaultChartName(domain.StrategyConfig{StrategyType: "BOGUS"}); err == nil {
		t.Error("expected error for unknown strategy type")
	}
}
