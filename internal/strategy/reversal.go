package strategy

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"index-signal-lab/internal/domain"
	"index-signal-lab/internal/normalization"
)

// ReversalStrategy trades local troughs and peaks in the close series.
//
// A trough (p2 > p1 < t) buys and a peak (p2 < p1 > t) sells when the last move
// is at least PriceDiffThreshold. While positioned, a flat bar below threshold
// after a move in the held direction sets a one-bar pending flag; the next bar
// confirms it with a same-side signal if price continues by at least the threshold.
type ReversalStrategy struct {
	PriceDiffThreshold float64
}

// NewReversalStrategy creates a new reversal strategy.
func NewReversalStrategy(priceDiffThreshold float64) *ReversalStrategy {
	return &ReversalStrategy{PriceDiffThreshold: priceDiffThreshold}
}

// ID returns strategy identifier.
func (s *ReversalStrategy) ID() string {
	return fmt.Sprintf("%s_%s", domain.StrategyTypeReversal,
		strconv.FormatFloat(s.PriceDiffThreshold, 'f', -1, 64))
}

// reversalState is carried from one bar to the next.
type reversalState struct {
	position    domain.Position
	pendingBuy  bool // set by the previous bar
	pendingSell bool // set by the previous bar
}

// reversalDecision is the outcome for a single bar.
type reversalDecision struct {
	buy         bool
	sell        bool
	pendingBuy  bool
	pendingSell bool
	confirmed   bool // signal resolves the previous bar's pending flag
}

// Generate runs the state machine over closes, starting at the third bar.
func (s *ReversalStrategy) Generate(ctx context.Context, bars []domain.PriceBar) ([]domain.SignalEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := normalization.ValidateOrder(bars); err != nil {
		return nil, err
	}

	events := blankEvents(bars)
	state := reversalState{position: domain.PositionNone}

	for i := 2; i < len(bars); i++ {
		var d reversalDecision
		state, d = s.step(state, bars[i-2].Close, bars[i-1].Close, bars[i].Close)

		events[i].Buy = d.buy
		events[i].Sell = d.sell
		events[i].PendingBuy = d.pendingBuy
		events[i].PendingSell = d.pendingSell

		// A confirmed signal consumes the flag on the bar that raised it.
		if d.confirmed {
			if d.buy {
				events[i-1].PendingBuy = false
			}
			if d.sell {
				events[i-1].PendingSell = false
			}
		}
	}

	return events, nil
}

// step applies the rules for one bar. Triggers take precedence over pending resolution.
func (s *ReversalStrategy) step(state reversalState, p2, p1, t float64) (reversalState, reversalDecision) {
	strong := math.Abs(t-p1) >= s.PriceDiffThreshold

	if state.position != domain.PositionLong && p2 > p1 && p1 < t && strong {
		return reversalState{position: domain.PositionLong}, reversalDecision{buy: true}
	}
	if state.position != domain.PositionShort && p2 < p1 && p1 > t && strong {
		return reversalState{position: domain.PositionShort}, reversalDecision{sell: true}
	}

	var d reversalDecision
	switch state.position {
	case domain.PositionLong:
		if state.pendingBuy && t > p1 && strong {
			d.buy = true
			d.confirmed = true
		} else if p2 > p1 && p1 == t && !strong {
			d.pendingBuy = true
		}
	case domain.PositionShort:
		if state.pendingSell && t < p1 && strong {
			d.sell = true
			d.confirmed = true
		} else if p2 < p1 && p1 == t && !strong {
			d.pendingSell = true
		}
	}

	return reversalState{
		position:    state.position,
		pendingBuy:  d.pendingBuy,
		pendingSell: d.pendingSell,
	}, d
}
