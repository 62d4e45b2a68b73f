// Package chart aligns a signal stream with its ledger for plotting and exports the result.
package chart

import (
	"fmt"
	"strconv"
	"time"

	"index-signal-lab/internal/domain"
)

// Series holds one row per bar: close, buy/sell markers and the realized
// cumulative profit carried forward between fills.
type Series struct {
	Dates            []time.Time
	Close            []float64
	Buy              []bool
	Sell             []bool
	CumulativeProfit []float64
}

// Len returns the number of rows.
func (s *Series) Len() int { return len(s.Dates) }

// Build aligns events with legs. Cumulative profit starts at 0 and steps on the
// date each leg closes.
func Build(events []domain.SignalEvent, legs []*domain.TradeLeg) *Series {
	closedOn := make(map[time.Time]float64, len(legs))
	for _, l := range legs {
		if l.ClosedAt != nil && l.CumulativeProfit != nil {
			closedOn[domain.Day(*l.ClosedAt)] = *l.CumulativeProfit
		}
	}

	n := len(events)
	s := &Series{
		Dates:            make([]time.Time, n),
		Close:            make([]float64, n),
		Buy:              make([]bool, n),
		Sell:             make([]bool, n),
		CumulativeProfit: make([]float64, n),
	}

	cumulative := 0.0
	for i, e := range events {
		if v, ok := closedOn[domain.Day(e.Date)]; ok {
			cumulative = v
		}
		s.Dates[i] = e.Date
		s.Close[i] = e.Close
		s.Buy[i] = e.Buy
		s.Sell[i] = e.Sell
		s.CumulativeProfit[i] = cumulative
	}
	return s
}

// FileName returns the base file name for a threshold parameter combination.
func FileName(period int, buy, sell float64) string {
	return fmt.Sprintf("cci_%d_buy_%s_sell_%s", period, formatParam(buy), formatParam(sell))
}

func formatParam(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
