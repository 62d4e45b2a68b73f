// Package metrics derives summary statistics from a trade ledger.
package metrics

import (
	"math"
	"sort"

	"index-signal-lab/internal/domain"
)

// Compute summarizes legs. Legs are taken in Seq order; open legs only count
// toward TotalLegs and OpenLegs.
func Compute(legs []*domain.TradeLeg) domain.LedgerSummary {
	summary := domain.LedgerSummary{TotalLegs: len(legs)}
	if len(legs) == 0 {
		return summary
	}

	ordered := make([]*domain.TradeLeg, len(legs))
	copy(ordered, legs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Seq < ordered[j].Seq
	})

	profits := make([]float64, 0, len(ordered))
	for _, l := range ordered {
		if l.Profit == nil {
			summary.OpenLegs++
			continue
		}
		p := *l.Profit
		profits = append(profits, p)
		if p > 0 {
			summary.Wins++
		} else {
			summary.Losses++
		}
		if l.OpenSide == domain.SideSell {
			summary.ShortProfit += p
		} else {
			summary.LongProfit += p
		}
		if l.CumulativeProfit != nil {
			summary.FinalCumulativeProfit = *l.CumulativeProfit
		}
	}

	n := len(profits)
	summary.ClosedLegs = n
	if n == 0 {
		return summary
	}

	sorted := make([]float64, n)
	copy(sorted, profits)
	sort.Float64s(sorted)

	mean := computeMean(profits)
	summary.WinRate = computeWinRate(summary.Wins, n)
	summary.ProfitMean = mean
	summary.ProfitMedian = computePercentile(sorted, 0.50)
	summary.ProfitStddev = computeStddev(profits, mean)
	summary.WorstProfit = sorted[0]
	summary.BestProfit = sorted[n-1]
	summary.MaxDrawdown = computeMaxDrawdown(profits)
	summary.MaxConsecutiveLosses = computeMaxConsecutiveLosses(profits)

	return summary
}

func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation. sorted must be ascending.
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeMaxDrawdown returns the worst peak-to-trough drop of the running sum.
// Profits must be in ledger order.
func computeMaxDrawdown(profits []float64) float64 {
	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0

	for _, p := range profits {
		cumulative += p
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

// computeMaxConsecutiveLosses finds the longest streak of profit <= 0.
func computeMaxConsecutiveLosses(profits []float64) int {
	maxStreak := 0
	streak := 0
	for _, p := range profits {
		if p <= 0 {
			streak++
			if streak > maxStreak {
				maxStreak = streak
			}
		} else {
			streak = 0
		}
	}
	return maxStreak
}
