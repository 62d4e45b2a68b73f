// Package normalization turns raw source bars into a clean daily series.
package normalization

import (
	"time"

	"index-signal-lab/internal/domain"
)

// NormalizeBars produces an ordered daily series from raw source bars.
//
// Dates are truncated to midnight UTC and sorted ASC. Bars sharing a date are
// collapsed, keeping the LAST one seen. Bars with a non-positive close are dropped.
// Change is recomputed from consecutive closes.
func NormalizeBars(raw []domain.PriceBar) []domain.PriceBar {
	bars := make([]domain.PriceBar, 0, len(raw))
	for _, b := range raw {
		if b.Close <= 0 {
			continue
		}
		b.Date = domain.Day(b.Date)
		bars = append(bars, b)
	}
	SortBars(bars)

	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}

	ComputeChanges(out)
	return out
}

// ComputeChanges sets Change to the fractional close-to-close move.
// The first bar gets 0.
func ComputeChanges(bars []domain.PriceBar) {
	for i := range bars {
		if i == 0 || bars[i-1].Close == 0 {
			bars[i].Change = 0
			continue
		}
		bars[i].Change = bars[i].Close/bars[i-1].Close - 1
	}
}

// FilterRange keeps bars within [start, end] inclusive. A zero end means no upper bound.
func FilterRange(bars []domain.PriceBar, start, end time.Time) []domain.PriceBar {
	out := make([]domain.PriceBar, 0, len(bars))
	for _, b := range bars {
		if !start.IsZero() && b.Date.Before(start) {
			continue
		}
		if !end.IsZero() && b.Date.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out
}
