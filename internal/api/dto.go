package api

import (
	"time"

	"index-signal-lab/internal/domain"
	"index-signal-lab/internal/pipeline"
)

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse wraps every non-2xx body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RowResponse is one index_data row.
type RowResponse struct {
	Date        string  `json:"date"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      int64   `json:"volume"`
	Change      float64 `json:"change"`
	BuySignal   bool    `json:"buy_signal"`
	SellSignal  bool    `json:"sell_signal"`
	PendingBuy  bool    `json:"pending_buy,omitempty"`
	PendingSell bool    `json:"pending_sell,omitempty"`
}

// LegResponse is one ledger leg. Unfilled values are null.
type LegResponse struct {
	Seq              int      `json:"seq"`
	Date             string   `json:"date"`
	OpenSide         string   `json:"open_side"`
	BuyPrice         *float64 `json:"buy_price"`
	SellPrice        *float64 `json:"sell_price"`
	ClosedAt         *string  `json:"closed_at"`
	Profit           *float64 `json:"profit"`
	CumulativeProfit *float64 `json:"cumulative_profit"`
}

// SummaryResponse mirrors domain.LedgerSummary.
type SummaryResponse struct {
	TotalLegs             int     `json:"total_legs"`
	ClosedLegs            int     `json:"closed_legs"`
	OpenLegs              int     `json:"open_legs"`
	Wins                  int     `json:"wins"`
	Losses                int     `json:"losses"`
	WinRate               float64 `json:"win_rate"`
	FinalCumulativeProfit float64 `json:"final_cumulative_profit"`
	ProfitMean            float64 `json:"profit_mean"`
	ProfitMedian          float64 `json:"profit_median"`
	ProfitStddev          float64 `json:"profit_stddev"`
	BestProfit            float64 `json:"best_profit"`
	WorstProfit           float64 `json:"worst_profit"`
	LongProfit            float64 `json:"long_profit"`
	ShortProfit           float64 `json:"short_profit"`
	MaxDrawdown           float64 `json:"max_drawdown"`
	MaxConsecutiveLosses  int     `json:"max_consecutive_losses"`
}

// LedgerResponse is returned by /v1/series/:symbol/ledger.
type LedgerResponse struct {
	Symbol  string          `json:"symbol"`
	Legs    []LegResponse   `json:"legs"`
	Summary SummaryResponse `json:"summary"`
}

// SweepRowResponse is one parameter combination.
type SweepRowResponse struct {
	StrategyID    string          `json:"strategy_id"`
	Period        int             `json:"period"`
	BuyThreshold  float64         `json:"buy_threshold"`
	SellThreshold float64         `json:"sell_threshold"`
	BuySignals    int             `json:"buy_signals"`
	SellSignals   int             `json:"sell_signals"`
	Summary       SummaryResponse `json:"summary"`
}

// StrategyRequest selects and parameterizes a signal machine. Missing
// parameters are reported by the strategy factory.
type StrategyRequest struct {
	Type               string   `json:"type" validate:"required,oneof=threshold reversal"`
	Period             *int     `json:"period"`
	BuyThreshold       *float64 `json:"buy_threshold"`
	SellThreshold      *float64 `json:"sell_threshold"`
	PriceDiffThreshold *float64 `json:"price_diff_threshold"`
}

// RunRequest is the body of POST /v1/runs.
type RunRequest struct {
	Symbol   string          `json:"symbol" validate:"required"`
	From     string          `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To       string          `json:"to" validate:"omitempty,datetime=2006-01-02"`
	Strategy StrategyRequest `json:"strategy"`
	Notify   bool            `json:"notify"`
}

// RunResponse is returned by POST /v1/runs.
type RunResponse struct {
	RunID       string          `json:"run_id"`
	Symbol      string          `json:"symbol"`
	StrategyID  string          `json:"strategy_id"`
	InputHash   string          `json:"input_hash"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Bars        int             `json:"bars"`
	BuySignals  int             `json:"buy_signals"`
	SellSignals int             `json:"sell_signals"`
	TodayBuys   int             `json:"today_buys"`
	TodaySells  int             `json:"today_sells"`
	Legs        []LegResponse   `json:"legs"`
	Summary     SummaryResponse `json:"summary"`
	Notified    bool            `json:"notified"`
	Errors      []string        `json:"errors"`
}

func (r StrategyRequest) toDomain() domain.StrategyConfig {
	if r.Type == "reversal" {
		return domain.StrategyConfig{
			StrategyType:       domain.StrategyTypeReversal,
			PriceDiffThreshold: r.PriceDiffThreshold,
		}
	}
	return domain.StrategyConfig{
		StrategyType:  domain.StrategyTypeThreshold,
		Period:        r.Period,
		BuyThreshold:  r.BuyThreshold,
		SellThreshold: r.SellThreshold,
	}
}

func toRows(rows []*domain.IndexRow) []RowResponse {
	out := make([]RowResponse, len(rows))
	for i, r := range rows {
		out[i] = RowResponse{
			Date:        r.Date.Format(domain.DateLayout),
			Open:        r.Open,
			High:        r.High,
			Low:         r.Low,
			Close:       r.Close,
			Volume:      r.Volume,
			Change:      r.Change,
			BuySignal:   r.BuySignal,
			SellSignal:  r.SellSignal,
			PendingBuy:  r.PendingBuy,
			PendingSell: r.PendingSell,
		}
	}
	return out
}

func toLegs(legs []*domain.TradeLeg) []LegResponse {
	out := make([]LegResponse, len(legs))
	for i, l := range legs {
		out[i] = LegResponse{
			Seq:              l.Seq,
			Date:             l.Date.Format(domain.DateLayout),
			OpenSide:         string(l.OpenSide),
			BuyPrice:         l.BuyPrice,
			SellPrice:        l.SellPrice,
			Profit:           l.Profit,
			CumulativeProfit: l.CumulativeProfit,
		}
		if l.ClosedAt != nil {
			s := l.ClosedAt.Format(domain.DateLayout)
			out[i].ClosedAt = &s
		}
	}
	return out
}

func toSummary(s domain.LedgerSummary) SummaryResponse {
	return SummaryResponse{
		TotalLegs:             s.TotalLegs,
		ClosedLegs:            s.ClosedLegs,
		OpenLegs:              s.OpenLegs,
		Wins:                  s.Wins,
		Losses:                s.Losses,
		WinRate:               s.WinRate,
		FinalCumulativeProfit: s.FinalCumulativeProfit,
		ProfitMean:            s.ProfitMean,
		ProfitMedian:          s.ProfitMedian,
		ProfitStddev:          s.ProfitStddev,
		BestProfit:            s.BestProfit,
		WorstProfit:           s.WorstProfit,
		LongProfit:            s.LongProfit,
		ShortProfit:           s.ShortProfit,
		MaxDrawdown:           s.MaxDrawdown,
		MaxConsecutiveLosses:  s.MaxConsecutiveLosses,
	}
}

func toSweepRows(results []*domain.SweepResult) []SweepRowResponse {
	out := make([]SweepRowResponse, len(results))
	for i, r := range results {
		out[i] = SweepRowResponse{
			StrategyID:    r.StrategyID,
			Period:        r.Period,
			BuyThreshold:  r.BuyThreshold,
			SellThreshold: r.SellThreshold,
			BuySignals:    r.BuySignals,
			SellSignals:   r.SellSignals,
			Summary:       toSummary(r.Summary),
		}
	}
	return out
}

func toRunResponse(r *pipeline.RunResult) RunResponse {
	errs := r.Errors
	if errs == nil {
		errs = []string{}
	}
	return RunResponse{
		RunID:       r.RunID,
		Symbol:      r.Symbol,
		StrategyID:  r.StrategyID,
		InputHash:   r.InputHash,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		Bars:        r.Bars,
		BuySignals:  r.BuySignals,
		SellSignals: r.SellSignals,
		TodayBuys:   r.TodayBuys,
		TodaySells:  r.TodaySells,
		Legs:        toLegs(r.Legs),
		Summary:     toSummary(r.Summary),
		Notified:    r.Notified,
		Errors:      errs,
	}
}
