package strategy

import (
	"context"
	"fmt"
	"strconv"

	"index-signal-lab/internal/domain"
	"index-signal-lab/internal/indicator"
	"index-signal-lab/internal/normalization"
)

// ThresholdStrategy trades CCI excursions beyond fixed bounds.
//
// From NONE it enters on the first crossing. Once positioned, a reading beyond
// EITHER bound flips the position: a long is closed by a reading above
// BuyThreshold as well as below SellThreshold, and the same holds for a short.
type ThresholdStrategy struct {
	Period        int
	BuyThreshold  float64
	SellThreshold float64
}

// NewThresholdStrategy creates a new threshold strategy.
func NewThresholdStrategy(period int, buyThreshold, sellThreshold float64) *ThresholdStrategy {
	return &ThresholdStrategy{
		Period:        period,
		BuyThreshold:  buyThreshold,
		SellThreshold: sellThreshold,
	}
}

// ID returns strategy identifier.
func (s *ThresholdStrategy) ID() string {
	return fmt.Sprintf("%s_%d_%s_%s", domain.StrategyTypeThreshold, s.Period,
		strconv.FormatFloat(s.BuyThreshold, 'f', -1, 64),
		strconv.FormatFloat(s.SellThreshold, 'f', -1, 64))
}

// Generate computes the oscillator and runs the state machine over it.
func (s *ThresholdStrategy) Generate(ctx context.Context, bars []domain.PriceBar) ([]domain.SignalEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := normalization.ValidateOrder(bars); err != nil {
		return nil, err
	}

	samples, err := indicator.CCI(bars, s.Period)
	if err != nil {
		return nil, err
	}

	return s.Apply(bars, samples), nil
}

// Apply runs the state machine over precomputed oscillator samples aligned with bars.
// Useful when several threshold pairs share one period.
func (s *ThresholdStrategy) Apply(bars []domain.PriceBar, samples []domain.OscillatorSample) []domain.SignalEvent {
	events := blankEvents(bars)

	position := domain.PositionNone
	for i := range events {
		if i >= len(samples) || !samples[i].Defined() {
			continue
		}
		var buy, sell bool
		position, buy, sell = s.step(position, samples[i].Value)
		events[i].Buy = buy
		events[i].Sell = sell
	}

	return events
}

// step evaluates one defined oscillator reading against the current position.
func (s *ThresholdStrategy) step(position domain.Position, value float64) (next domain.Position, buy, sell bool) {
	extreme := value < s.SellThreshold || value > s.BuyThreshold

	switch position {
	case domain.PositionLong:
		if extreme {
			return domain.PositionShort, false, true
		}
	case domain.PositionShort:
		if extreme {
			return domain.PositionLong, true, false
		}
	default:
		if value > s.BuyThreshold {
			return domain.PositionLong, true, false
		}
		if value < s.SellThreshold {
			return domain.PositionShort, false, true
		}
	}

	return position, false, false
}
