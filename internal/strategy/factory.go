package strategy

import (
	"errors"

	"index-signal-lab/internal/domain"
)

// Factory errors
var (
	ErrUnknownStrategyType       = errors.New("unknown strategy type")
	ErrMissingPeriod             = errors.New("THRESHOLD requires Period")
	ErrInvalidPeriod             = errors.New("THRESHOLD requires Period >= 2")
	ErrMissingBuyThreshold       = errors.New("THRESHOLD requires BuyThreshold")
	ErrMissingSellThreshold      = errors.New("THRESHOLD requires SellThreshold")
	ErrMissingPriceDiffThreshold = errors.New("REVERSAL requires PriceDiffThreshold")
	ErrNegativePriceDiff         = errors.New("REVERSAL requires PriceDiffThreshold >= 0")
)

// FromConfig creates a Strategy from domain.StrategyConfig.
// Validates required parameters per strategy type.
func FromConfig(cfg domain.StrategyConfig) (Strategy, error) {
	switch cfg.StrategyType {
	case domain.StrategyTypeThreshold:
		return fromThresholdConfig(cfg)
	case domain.StrategyTypeReversal:
		return fromReversalConfig(cfg)
	default:
		return nil, ErrUnknownStrategyType
	}
}

// fromThresholdConfig creates ThresholdStrategy from config.
func fromThresholdConfig(cfg domain.StrategyConfig) (*ThresholdStrategy, error) {
	if cfg.Period == nil {
		return nil, ErrMissingPeriod
	}
	if *cfg.Period < 2 {
		return nil, ErrInvalidPeriod
	}
	if cfg.BuyThreshold == nil {
		return nil, ErrMissingBuyThreshold
	}
	if cfg.SellThreshold == nil {
		return nil, ErrMissingSellThreshold
	}

	return NewThresholdStrategy(*cfg.Period, *cfg.BuyThreshold, *cfg.SellThreshold), nil
}

// fromReversalConfig creates ReversalStrategy from config.
func fromReversalConfig(cfg domain.StrategyConfig) (*ReversalStrategy, error) {
	if cfg.PriceDiffThreshold == nil {
		return nil, ErrMissingPriceDiffThreshold
	}
	if *cfg.PriceDiffThreshold < 0 {
		return nil, ErrNegativePriceDiff
	}

	return NewReversalStrategy(*cfg.PriceDiffThreshold), nil
}
