package domain

import "time"

// DateLayout is the calendar date format used for trading days.
const DateLayout = "2006-01-02"

// PriceBar represents one trading day of an index series.
// Produced by a market-data source and never mutated afterwards.
type PriceBar struct {
	Date   time.Time // trading day, midnight UTC
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
	Change float64 // close-to-close fractional change, 0 for the first bar
}

// TypicalPrice returns (high + low + close) / 3.
func (b PriceBar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a trading day.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// IndexRow is one row of the index_data table: a bar plus its signal columns.
type IndexRow struct {
	Symbol      string
	Date        time.Time
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      int64
	Change      float64
	BuySignal   bool
	SellSignal  bool
	PendingBuy  bool
	PendingSell bool
}

// Bar returns the price portion of the row.
func (r *IndexRow) Bar() PriceBar {
	return PriceBar{
		Date:   r.Date,
		Open:   r.Open,
		High:   r.High,
		Low:    r.Low,
		Close:  r.Close,
		Volume: r.Volume,
		Change: r.Change,
	}
}

// NewIndexRows builds rows with cleared signal columns.
func NewIndexRows(symbol string, bars []PriceBar) []*IndexRow {
	rows := make([]*IndexRow, len(bars))
	for i, b := range bars {
		rows[i] = &IndexRow{
			Symbol: symbol,
			Date:   b.Date,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
			Change: b.Change,
		}
	}
	return rows
}

// BarsFromRows extracts the price series from stored rows.
func BarsFromRows(rows []*IndexRow) []PriceBar {
	bars := make([]PriceBar, len(rows))
	for i, r := range rows {
		bars[i] = r.Bar()
	}
	return bars
}

// ApplySignals copies signal flags onto rows with matching dates.
// Rows without a matching event get cleared flags.
func ApplySignals(rows []*IndexRow, events []SignalEvent) {
	byDate := make(map[time.Time]SignalEvent, len(events))
	for _, e := range events {
		byDate[e.Date] = e
	}
	for _, r := range rows {
		e := byDate[r.Date]
		r.BuySignal = e.Buy
		r.SellSignal = e.Sell
		r.PendingBuy = e.PendingBuy
		r.PendingSell = e.PendingSell
	}
}

// EventsFromRows rebuilds the signal stream stored in index rows.
func EventsFromRows(rows []*IndexRow) []SignalEvent {
	events := make([]SignalEvent, len(rows))
	for i, r := range rows {
		events[i] = SignalEvent{
			Date:        r.Date,
			Close:       r.Close,
			Buy:         r.BuySignal,
			Sell:        r.SellSignal,
			PendingBuy:  r.PendingBuy,
			PendingSell: r.PendingSell,
		}
	}
	return events
}
