package notify

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds a single delivery.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of a failed response ends up in the error.
const maxErrorBody = 512

// WebhookConfig holds the incoming-webhook settings.
type WebhookConfig struct {
	URL      string
	Username string
	Channel  string
	IconURL  string
	Timeout  time.Duration
}

// Enabled reports whether a webhook URL is configured.
func (c WebhookConfig) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

func (c WebhookConfig) sender() Sender {
	return Sender{Username: c.Username, Channel: c.Channel, IconURL: c.IconURL}
}

func (c WebhookConfig) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// WebhookClient posts payloads to an incoming webhook.
type WebhookClient struct {
	cfg  WebhookConfig
	http *http.Client
}

// NewWebhookClient creates a client whose TLS connections verify against the
// system certificate pool.
func NewWebhookClient(cfg WebhookConfig) (*WebhookClient, error) {
	pool, err := x509.SystemCertPool()
	if err != nil {
		return nil, fmt.Errorf("loading system cert pool: %w", err)
	}
	return &WebhookClient{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
				TLSClientConfig: &tls.Config{
					RootCAs:    pool,
					MinVersion: tls.VersionTLS12,
				},
			},
		},
	}, nil
}

// NewWebhookClientWithHTTP uses the given http.Client as is.
func NewWebhookClientWithHTTP(cfg WebhookConfig, client *http.Client) *WebhookClient {
	return &WebhookClient{cfg: cfg, http: client}
}

// Post sends payload as the "payload" form field, the encoding incoming
// webhooks accept alongside raw JSON.
func (c *WebhookClient) Post(ctx context.Context, payload Payload) error {
	if !c.cfg.Enabled() {
		return ErrDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.timeout())
	defer cancel()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}
	form := url.Values{"payload": {string(data)}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting to webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
