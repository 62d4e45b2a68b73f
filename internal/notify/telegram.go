package notify

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
)

// DefaultTelegramURL is the Bot API host.
const DefaultTelegramURL = "https://api.telegram.org"

// ErrSendFailed is returned when the Bot API rejects a message.
var ErrSendFailed = errors.New("telegram send failed")

// TelegramNotifier posts messages through the Bot API sendMessage method.
// Each Send makes exactly one request.
type TelegramNotifier struct {
	apiURL string
	token  string
	chatID string
	client *http.Client
	logger *zap.Logger
}

// TelegramOption configures TelegramNotifier.
type TelegramOption func(*TelegramNotifier)

// WithAPIURL overrides the Bot API host.
func WithAPIURL(u string) TelegramOption {
	return func(n *TelegramNotifier) {
		n.apiURL = u
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) TelegramOption {
	return func(n *TelegramNotifier) {
		n.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) TelegramOption {
	return func(n *TelegramNotifier) {
		n.logger = logger
	}
}

// NewTelegramNotifier creates a notifier for one bot and chat.
func NewTelegramNotifier(token, chatID string, opts ...TelegramOption) *TelegramNotifier {
	n := &TelegramNotifier{
		apiURL: DefaultTelegramURL,
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type sendResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send delivers text with parse_mode=HTML.
func (n *TelegramNotifier) Send(ctx context.Context, text string) error {
	q := url.Values{}
	q.Set("chat_id", n.chatID)
	q.Set("text", text)
	q.Set("parse_mode", "HTML")
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage?%s", n.apiURL, n.token, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		// The URL carries the token; keep it out of the error.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s", ErrSendFailed, resp.StatusCode, string(body))
	}

	var parsed sendResponse
	if err := json.Unmarshal(body, &parsed); err == nil && !parsed.OK {
		return fmt.Errorf("%w: %s", ErrSendFailed, parsed.Description)
	}

	n.logger.Debug("telegram message sent", zap.String("chat_id", n.chatID))
	return nil
}

var _ Notifier = (*TelegramNotifier)(nil)
