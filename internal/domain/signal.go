package domain

import (
	"math"
	"time"
)

// Position is the side a signal machine believes is active.
type Position string

// Position values
const (
	PositionNone  Position = "NONE"
	PositionLong  Position = "LONG"
	PositionShort Position = "SHORT"
)

// IsValid returns true if the position is a known value.
func (p Position) IsValid() bool {
	switch p {
	case PositionNone, PositionLong, PositionShort:
		return true
	}
	return false
}

// OscillatorSample is the oscillator reading for one bar.
// Value is NaN until the lookback window is full or when the window has no variance.
type OscillatorSample struct {
	Date         time.Time
	TypicalPrice float64
	Value        float64
}

// Defined reports whether the sample carries a usable reading.
func (s OscillatorSample) Defined() bool {
	return !math.IsNaN(s.Value) && !math.IsInf(s.Value, 0)
}

// SignalEvent annotates one bar with the machine's decision.
// Buy and Sell are never both set.
type SignalEvent struct {
	Date        time.Time
	Close       float64
	Buy         bool
	Sell        bool
	PendingBuy  bool // reversal machine only
	PendingSell bool // reversal machine only
}

// Realized reports whether the event carries a buy or sell.
func (e SignalEvent) Realized() bool {
	return e.Buy || e.Sell
}
