package domain

import "time"

// Side identifies which fill opened a trade leg.
type Side string

// Side values
const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeLeg is one row of the profit ledger.
// A leg is opened by one signal and closed by the next opposite one.
// Profit is always SellPrice - BuyPrice regardless of OpenSide.
type TradeLeg struct {
	Seq              int        // creation order, 0-based
	Date             time.Time  // date the leg was opened
	OpenSide         Side       // fill that opened the leg
	BuyPrice         *float64   // nullable until filled
	SellPrice        *float64   // nullable until filled
	ClosedAt         *time.Time // date of the closing fill
	Profit           *float64   // nullable until closed
	CumulativeProfit *float64   // running realized sum, nullable until closed
}

// IsOpen reports whether the leg still misses one side.
func (l *TradeLeg) IsOpen() bool {
	return l.BuyPrice == nil || l.SellPrice == nil
}

// EntryPrice returns the price of the opening fill.
func (l *TradeLeg) EntryPrice() *float64 {
	if l.OpenSide == SideSell {
		return l.SellPrice
	}
	return l.BuyPrice
}

// ExitPrice returns the price of the closing fill, nil while open.
func (l *TradeLeg) ExitPrice() *float64 {
	if l.IsOpen() {
		return nil
	}
	if l.OpenSide == SideSell {
		return l.BuyPrice
	}
	return l.SellPrice
}

// Clone returns a deep copy of the leg.
func (l *TradeLeg) Clone() *TradeLeg {
	c := *l
	c.BuyPrice = cloneFloat(l.BuyPrice)
	c.SellPrice = cloneFloat(l.SellPrice)
	c.Profit = cloneFloat(l.Profit)
	c.CumulativeProfit = cloneFloat(l.CumulativeProfit)
	if l.ClosedAt != nil {
		t := *l.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// LedgerSummary holds statistics derived from a ledger.
type LedgerSummary struct {
	TotalLegs  int
	ClosedLegs int
	OpenLegs   int
	Wins       int // closed legs with profit > 0
	Losses     int // closed legs with profit <= 0
	WinRate    float64

	FinalCumulativeProfit float64
	ProfitMean            float64
	ProfitMedian          float64
	ProfitStddev          float64
	BestProfit            float64
	WorstProfit           float64

	// Split by the side that opened the leg.
	LongProfit  float64
	ShortProfit float64

	MaxDrawdown          float64 // worst peak-to-trough of cumulative profit
	MaxConsecutiveLosses int
}
