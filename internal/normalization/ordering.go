package normalization

import (
	"errors"
	"fmt"
	"sort"

	"index-signal-lab/internal/domain"
)

// ErrUnorderedSeries is returned when bar dates are not strictly increasing.
var ErrUnorderedSeries = errors.New("bar dates must be strictly increasing")

// SortBars orders bars by date ASC.
func SortBars(bars []domain.PriceBar) {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
}

// ValidateOrder checks that dates are strictly increasing with no duplicates.
func ValidateOrder(bars []domain.PriceBar) error {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Date.After(bars[i-1].Date) {
			return fmt.Errorf("%w: bar %d (%s) follows %s", ErrUnorderedSeries, i,
				bars[i].Date.Format(domain.DateLayout), bars[i-1].Date.Format(domain.DateLayout))
		}
	}
	return nil
}

// ValidateRowOrder applies ValidateOrder to stored index rows.
func ValidateRowOrder(rows []*domain.IndexRow) error {
	return ValidateOrder(domain.BarsFromRows(rows))
}
