package pipeline

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidGrid is returned when a sweep range is empty or its step moves away from its end.
var ErrInvalidGrid = errors.New("invalid sweep grid")

// Combo is one threshold parameter combination.
type Combo struct {
	Period        int
	BuyThreshold  float64
	SellThreshold float64
}

// Grid is the cartesian product of periods and threshold pairs.
type Grid struct {
	Periods        []int
	BuyThresholds  []float64
	SellThresholds []float64
}

// NewGrid expands inclusive ranges into a grid.
func NewGrid(periodFrom, periodTo, periodStep int, buyFrom, buyTo, buyStep, sellFrom, sellTo, sellStep float64) (Grid, error) {
	periods, err := intRange(periodFrom, periodTo, periodStep)
	if err != nil {
		return Grid{}, fmt.Errorf("period: %w", err)
	}
	buys, err := floatRange(buyFrom, buyTo, buyStep)
	if err != nil {
		return Grid{}, fmt.Errorf("buy threshold: %w", err)
	}
	sells, err := floatRange(sellFrom, sellTo, sellStep)
	if err != nil {
		return Grid{}, fmt.Errorf("sell threshold: %w", err)
	}
	return Grid{Periods: periods, BuyThresholds: buys, SellThresholds: sells}, nil
}

// Size returns the number of combinations.
func (g Grid) Size() int {
	return len(g.Periods) * len(g.BuyThresholds) * len(g.SellThresholds)
}

// Combos lists every combination in grid order: period, then buy, then sell.
func (g Grid) Combos() []Combo {
	combos := make([]Combo, 0, g.Size())
	for _, p := range g.Periods {
		for _, b := range g.BuyThresholds {
			for _, s := range g.SellThresholds {
				combos = append(combos, Combo{Period: p, BuyThreshold: b, SellThreshold: s})
			}
		}
	}
	return combos
}

func intRange(from, to, step int) ([]int, error) {
	if step <= 0 || to < from {
		return nil, fmt.Errorf("%w: %d..%d step %d", ErrInvalidGrid, from, to, step)
	}
	var out []int
	for v := from; v <= to; v += step {
		out = append(out, v)
	}
	return out, nil
}

// floatRange steps by index so values do not accumulate rounding error.
func floatRange(from, to, step float64) ([]float64, error) {
	if step == 0 || (to-from)*step < 0 {
		return nil, fmt.Errorf("%w: %g..%g step %g", ErrInvalidGrid, from, to, step)
	}
	n := int(math.Floor((to-from)/step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = from + float64(i)*step
	}
	return out, nil
}
