package phrasing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// RemoteOptions parameterise the phrasing service client.
type RemoteOptions struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Remote calls an HTTP phrasing service that turns a risk summary into
// natural alert copy. 远端失败时由调用方回退到本地模板。
type Remote struct {
	opts    RemoteOptions
	client  *http.Client
	baseURL string
	logger  zerolog.Logger
}

// NewRemote constructs the phrasing client.
func NewRemote(opts RemoteOptions, logger zerolog.Logger) *Remote {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 6 * time.Second
	}

	return &Remote{
		opts:    opts,
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		logger:  logger.With().Str("component", "phrasing").Logger(),
	}
}

// PhraseAlert requests the full in-app message.
func (r *Remote) PhraseAlert(ctx context.Context, s Summary) (string, error) {
	return r.phrase(ctx, "/v1/alert-message", s)
}

// PhraseNotification requests the short notification title.
func (r *Remote) PhraseNotification(ctx context.Context, s Summary) (string, error) {
	return r.phrase(ctx, "/v1/notification-title", s)
}

func (r *Remote) phrase(ctx context.Context, path string, s Summary) (string, error) {
	if r.baseURL == "" {
		return "", errors.New("phrasing base url not configured")
	}

	body, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal phrasing payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create phrasing request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if r.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.opts.APIKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send phrasing request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read phrasing response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("phrasing service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("decode phrasing response: %w", err)
	}
	if strings.TrimSpace(parsed.Text) == "" {
		return "", errors.New("phrasing service returned empty text")
	}

	return parsed.Text, nil
}

var _ Phraser = (*Remote)(nil)
