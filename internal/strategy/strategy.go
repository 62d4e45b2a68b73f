package strategy

import (
	"context"

	"index-signal-lab/internal/domain"
)

// Strategy turns an ordered daily series into one signal event per bar.
type Strategy interface {
	// Generate runs the signal machine over bars.
	// Bars must be strictly increasing by date.
	// Returns exactly len(bars) events; re-running on the same input yields the same output.
	Generate(ctx context.Context, bars []domain.PriceBar) ([]domain.SignalEvent, error)

	// ID returns strategy identifier (includes parameters).
	ID() string
}

// blankEvents returns one event per bar with no flags set.
func blankEvents(bars []domain.PriceBar) []domain.SignalEvent {
	events := make([]domain.SignalEvent, len(bars))
	for i, b := range bars {
		events[i] = domain.SignalEvent{Date: b.Date, Close: b.Close}
	}
	return events
}
