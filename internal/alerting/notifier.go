package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Notifier 定义本地通知投递接口。Delivery is fire-and-forget from the
// guardian's perspective; errors are logged, never shown to the user.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
	// DismissAll asks the delivery channel to clear anything still
	// showing, invoked when monitoring stops.
	DismissAll(ctx context.Context) error
}

// PushNotifier delivers alerts through an HTTP push gateway that can
// surface notifications even when the hosting app is backgrounded.
type PushNotifier struct {
	baseURL string
	token   string
	client  *http.Client
	logger  zerolog.Logger
}

// NewPushNotifier 构造推送网关客户端。
func NewPushNotifier(baseURL, token string, timeout time.Duration, logger zerolog.Logger) *PushNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &PushNotifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "push_notifier").Logger(),
	}
}

// Notify posts the title/body to the gateway's push endpoint.
func (n *PushNotifier) Notify(ctx context.Context, title, body string) error {
	payload := map[string]string{
		"title":    title,
		"body":     body,
		"priority": "high",
	}
	if err := n.post(ctx, "/push", payload); err != nil {
		return err
	}

	n.logger.Info().Str("title", title).Msg("通知已投递")
	return nil
}

// DismissAll clears outstanding notifications at the gateway.
func (n *PushNotifier) DismissAll(ctx context.Context) error {
	return n.post(ctx, "/clear", map[string]string{})
}

func (n *PushNotifier) post(ctx context.Context, path string, payload map[string]string) error {
	if n.baseURL == "" {
		return fmt.Errorf("push gateway url not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send push request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway 响应码异常: %d", resp.StatusCode)
	}
	return nil
}

var _ Notifier = (*PushNotifier)(nil)
