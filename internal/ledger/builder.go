// Package ledger converts a signal stream into a profit ledger of trade legs.
package ledger

import (
	"time"

	"index-signal-lab/internal/domain"
)

// Build walks events in order and returns every leg created, open or closed.
//
// A buy closes the current leg when it holds a sell and no buy, then opens a new
// buy leg. A sell closes the current leg when it holds a buy and no sell, then
// opens a new sell leg. Otherwise the signal only opens a new leg. Profit is
// always SellPrice - BuyPrice, in fill order, regardless of which side opened.
func Build(events []domain.SignalEvent) []*domain.TradeLeg {
	var st state
	for _, e := range events {
		st = st.apply(e)
	}
	return st.legs
}

// state is the accumulator threaded through Build.
type state struct {
	legs       []*domain.TradeLeg
	cumulative float64
}

func (s state) current() *domain.TradeLeg {
	if len(s.legs) == 0 {
		return nil
	}
	return s.legs[len(s.legs)-1]
}

func (s state) apply(e domain.SignalEvent) state {
	price := e.Close
	switch {
	case e.Buy:
		if cur := s.current(); cur != nil && cur.SellPrice != nil && cur.BuyPrice == nil {
			cur.BuyPrice = &price
			s = s.realize(cur, e.Date)
		}
		s.legs = append(s.legs, s.newLeg(e.Date, domain.SideBuy, price))
	case e.Sell:
		if cur := s.current(); cur != nil && cur.BuyPrice != nil && cur.SellPrice == nil {
			cur.SellPrice = &price
			s = s.realize(cur, e.Date)
		}
		s.legs = append(s.legs, s.newLeg(e.Date, domain.SideSell, price))
	}
	return s
}

// realize books the profit of a leg that now holds both prices.
func (s state) realize(leg *domain.TradeLeg, date time.Time) state {
	profit := *leg.SellPrice - *leg.BuyPrice
	s.cumulative += profit
	cumulative := s.cumulative
	closedAt := date

	leg.Profit = &profit
	leg.CumulativeProfit = &cumulative
	leg.ClosedAt = &closedAt
	return s
}

func (s state) newLeg(date time.Time, side domain.Side, price float64) *domain.TradeLeg {
	leg := &domain.TradeLeg{
		Seq:      len(s.legs),
		Date:     date,
		OpenSide: side,
	}
	p := price
	if side == domain.SideBuy {
		leg.BuyPrice = &p
	} else {
		leg.SellPrice = &p
	}
	return leg
}

// CountSignalsOn returns the number of buy and sell events dated on day.
func CountSignalsOn(events []domain.SignalEvent, day time.Time) (buys, sells int) {
	day = domain.Day(day)
	for _, e := range events {
		if !domain.Day(e.Date).Equal(day) {
			continue
		}
		if e.Buy {
			buys++
		}
		if e.Sell {
			sells++
		}
	}
	return buys, sells
}

// FinalCumulativeProfit returns the cumulative profit of the last closed leg, or 0.
func FinalCumulativeProfit(legs []*domain.TradeLeg) float64 {
	for i := len(legs) - 1; i >= 0; i-- {
		if legs[i].CumulativeProfit != nil {
			return *legs[i].CumulativeProfit
		}
	}
	return 0
}

// OpenLeg returns the most recent leg still missing a side, or nil.
func OpenLeg(legs []*domain.TradeLeg) *domain.TradeLeg {
	if len(legs) == 0 {
		return nil
	}
	if last := legs[len(legs)-1]; last.IsOpen() {
		return last
	}
	return nil
}
