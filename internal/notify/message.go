package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AlertTitle heads every alert message.
const AlertTitle = "CCI Signal Alert"

// Alert is the content of a run notification.
type Alert struct {
	Symbol           string
	StrategyID       string
	At               time.Time
	Buys             int // buy signals dated At
	Sells            int // sell signals dated At
	CumulativeProfit float64
}

// FormatAlert renders an alert in Telegram's HTML parse mode.
func FormatAlert(a Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", AlertTitle)
	fmt.Fprintf(&b, "Date: %s\n", a.At.Format("2006-01-02 15:04:05"))
	if a.Symbol != "" {
		fmt.Fprintf(&b, "Symbol: %s", html.EscapeString(a.Symbol))
		if a.StrategyID != "" {
			fmt.Fprintf(&b, " (%s)", html.EscapeString(a.StrategyID))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Buy signals today: %d\n", a.Buys)
	fmt.Fprintf(&b, "Sell signals today: %d\n", a.Sells)
	fmt.Fprintf(&b, "Cumulative profit: %s\n", FormatProfit(a.CumulativeProfit))
	return b.String()
}

// FormatProfit renders a profit value with two decimals.
func FormatProfit(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
