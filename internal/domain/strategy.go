package domain

// StrategyConfig represents signal strategy parameters.
type StrategyConfig struct {
	StrategyType string // "THRESHOLD" | "REVERSAL"

	// THRESHOLD parameters
	Period        *int
	BuyThreshold  *float64
	SellThreshold *float64

	// REVERSAL parameters
	PriceDiffThreshold *float64
}

// Strategy type constants
const (
	StrategyTypeThreshold = "THRESHOLD"
	StrategyTypeReversal  = "REVERSAL"
)

// Default parameters used by the alert job.
const (
	DefaultSymbol             = "KS200"
	DefaultStartDate          = "2010-01-02"
	DefaultPeriod             = 9
	DefaultBuyThreshold       = 130.0
	DefaultSellThreshold      = -145.0
	DefaultPriceDiffThreshold = 4.0
)

// ThresholdConfig returns a THRESHOLD config with the given parameters.
func ThresholdConfig(period int, buy, sell float64) StrategyConfig {
	return StrategyConfig{
		StrategyType:  StrategyTypeThreshold,
		Period:        &period,
		BuyThreshold:  &buy,
		SellThreshold: &sell,
	}
}

// ReversalConfig returns a REVERSAL config with the given threshold.
func ReversalConfig(priceDiff float64) StrategyConfig {
	return StrategyConfig{
		StrategyType:       StrategyTypeReversal,
		PriceDiffThreshold: &priceDiff,
	}
}

// SweepResult is the outcome of one parameter combination in a sweep.
type SweepResult struct {
	Symbol        string
	StrategyID    string
	Period        int
	BuyThreshold  float64
	SellThreshold float64
	BuySignals    int
	SellSignals   int
	Summary       LedgerSummary
}
