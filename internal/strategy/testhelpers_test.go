package strategy

import (
	"time"

	"index-signal-lab/internal/domain"
)

var testStart = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// makeBars creates daily bars whose typical price equals the close.
func makeBars(closes []float64) []domain.PriceBar {
	bars := make([]domain.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = domain.PriceBar{
			Date:  testStart.AddDate(0, 0, i),
			Open:  c,
			High:  c + 1,
			Low:   c - 1,
			Close: c,
		}
	}
	return bars
}

// makeSamples creates oscillator samples with the given values.
func makeSamples(values []float64) []domain.OscillatorSample {
	samples := make([]domain.OscillatorSample, len(values))
	for i, v := range values {
		samples[i] = domain.OscillatorSample{Date: testStart.AddDate(0, 0, i), Value: v}
	}
	return samples
}

// signalIndexes returns the bar indexes carrying buy and sell events.
func signalIndexes(events []domain.SignalEvent) (buys, sells []int) {
	for i, e := range events {
		if e.Buy {
			buys = append(buys, i)
		}
		if e.Sell {
			sells = append(sells, i)
		}
	}
	return buys, sells
}
