// Package indicator computes oscillators over daily price series.
package indicator

import (
	"errors"
	"math"

	"index-signal-lab/internal/domain"
)

// cciScale is Lambert's constant.
const cciScale = 0.015

// ErrInvalidPeriod is returned when the lookback window is shorter than 2 bars.
var ErrInvalidPeriod = errors.New("oscillator period must be >= 2")

// CCI computes the commodity channel index over bars.
//
// One sample is returned per bar. The first period-1 samples, and any sample whose
// window has zero standard deviation, carry NaN. Standard deviation uses the
// sample formula (n-1 denominator).
func CCI(bars []domain.PriceBar, period int) ([]domain.OscillatorSample, error) {
	if period < 2 {
		return nil, ErrInvalidPeriod
	}

	samples := make([]domain.OscillatorSample, len(bars))
	typical := make([]float64, len(bars))
	for i, b := range bars {
		typical[i] = b.TypicalPrice()
		samples[i] = domain.OscillatorSample{
			Date:         b.Date,
			TypicalPrice: typical[i],
			Value:        math.NaN(),
		}
	}

	for i := period - 1; i < len(bars); i++ {
		window := typical[i-period+1 : i+1]
		mean := Mean(window)
		stddev := SampleStddev(window, mean)
		if stddev == 0 {
			continue
		}
		samples[i].Value = (typical[i] - mean) / (cciScale * stddev)
	}

	return samples, nil
}

// Mean calculates the arithmetic mean.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleStddev calculates sample standard deviation (n-1 denominator).
func SampleStddev(values []float64, mean float64) float64 {
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
