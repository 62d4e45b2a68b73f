package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"index-signal-lab/internal/domain"
	"index-signal-lab/internal/normalization"
)

// Default configuration values.
const (
	DefaultYahooBaseURL = "https://query1.finance.yahoo.com"
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryDelay   = 1 * time.Second
	DefaultMaxDelay     = 10 * time.Second
	DefaultBackoffMult  = 2.0

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

// ErrChartAPI is returned when the chart API reports an error payload. It is not retried.
var ErrChartAPI = errors.New("chart api error")

// YahooSource fetches daily bars from the Yahoo v8 chart API.
type YahooSource struct {
	baseURL     string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	aliases     map[string]string
	now         func() time.Time
	logger      *zap.Logger
}

// YahooOption configures YahooSource.
type YahooOption func(*YahooSource)

// WithBaseURL overrides the API host.
func WithBaseURL(u string) YahooOption {
	return func(s *YahooSource) {
		s.baseURL = u
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) YahooOption {
	return func(s *YahooSource) {
		s.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) YahooOption {
	return func(s *YahooSource) {
		s.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) YahooOption {
	return func(s *YahooSource) {
		s.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) YahooOption {
	return func(s *YahooSource) {
		s.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) YahooOption {
	return func(s *YahooSource) {
		s.client = client
	}
}

// WithAlias maps a stored symbol to the ticker the API knows it by.
func WithAlias(symbol, ticker string) YahooOption {
	return func(s *YahooSource) {
		s.aliases[symbol] = ticker
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) YahooOption {
	return func(s *YahooSource) {
		s.logger = logger
	}
}

// NewYahooSource creates a chart API source. KS200 is aliased to ^KS200 by default.
func NewYahooSource(opts ...YahooOption) *YahooSource {
	s := &YahooSource{
		baseURL:     DefaultYahooBaseURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		aliases:     map[string]string{domain.DefaultSymbol: "^KS200"},
		now:         time.Now,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		Currency  string `json:"currency"`
		GmtOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// Fetch downloads daily bars of symbol within [start, end].
func (s *YahooSource) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error) {
	ticker := symbol
	if alias, ok := s.aliases[symbol]; ok {
		ticker = alias
	}
	if end.IsZero() {
		end = s.now()
	}

	q := url.Values{}
	q.Set("period1", fmt.Sprintf("%d", domain.Day(start).Unix()))
	q.Set("period2", fmt.Sprintf("%d", domain.Day(end).AddDate(0, 0, 1).Unix()))
	q.Set("interval", "1d")
	q.Set("events", "history")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", s.baseURL, url.PathEscape(ticker), q.Encode())

	var resp chartResponse
	if err := s.get(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ticker, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("fetch %s: %w: %s: %s", ticker, ErrChartAPI, resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("fetch %s: %w", ticker, ErrNoData)
	}

	bars := convertChart(resp.Chart.Result[0])
	s.logger.Debug("fetched chart",
		zap.String("symbol", symbol),
		zap.String("ticker", ticker),
		zap.Int("bars", len(bars)),
	)
	bars = normalization.FilterRange(bars, start, end)
	normalization.ComputeChanges(bars)
	return bars, nil
}

// convertChart turns the column-oriented payload into bars, skipping rows with any null price.
func convertChart(r chartResult) []domain.PriceBar {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]
	offset := time.Duration(r.Meta.GmtOffset) * time.Second

	bars := make([]domain.PriceBar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(q.Open) || i >= len(q.High) || i >= len(q.Low) || i >= len(q.Close) {
			break
		}
		if q.Open[i] == nil || q.High[i] == nil || q.Low[i] == nil || q.Close[i] == nil {
			continue
		}
		bar := domain.PriceBar{
			Date:  time.Unix(ts, 0).UTC().Add(offset),
			Open:  *q.Open[i],
			High:  *q.High[i],
			Low:   *q.Low[i],
			Close: *q.Close[i],
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}
		bars = append(bars, bar)
	}
	return normalization.NormalizeBars(bars)
}

// get performs a GET with retries and exponential backoff on transport errors, 429 and 5xx.
func (s *YahooSource) get(ctx context.Context, endpoint string, out any) error {
	delay := s.retryDelay
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Warn("retrying chart request", zap.Int("attempt", attempt), zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * s.backoffMult)
			if delay > s.maxDelay {
				delay = s.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
			continue
		}

		// 4xx responses still carry a chart.error payload worth decoding.
		if err := json.Unmarshal(body, out); err != nil {
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
			}
			return fmt.Errorf("unmarshal response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

var _ Source = (*YahooSource)(nil)
