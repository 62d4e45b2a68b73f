package chart

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"index-signal-lab/internal/domain"
)

// WriteCSV writes the series with a date,close,buy,sell,cumulative_profit header.
func WriteCSV(w io.Writer, s *Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "close", "buy", "sell", "cumulative_profit"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < s.Len(); i++ {
		err := cw.Write([]string{
			s.Dates[i].Format(domain.DateLayout),
			strconv.FormatFloat(s.Close[i], 'f', -1, 64),
			strconv.FormatBool(s.Buy[i]),
			strconv.FormatBool(s.Sell[i]),
			strconv.FormatFloat(s.CumulativeProfit[i], 'f', -1, 64),
		})
		if err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
