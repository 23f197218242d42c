package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"newsletter/cmd/domain"
)

const defaultTimeout = 10 * time.Second

// ClientConfig configures the HTTP provider client.
type ClientConfig struct {
	BaseURL   string
	From      domain.SubscriberEmail
	APIKey    string
	SecretKey string
	Timeout   time.Duration

	// HTTPClient overrides the default client; its Timeout is left untouched.
	HTTPClient *http.Client
}

// Client sends email through the provider's REST API.
type Client struct {
	endpoint  string
	from      domain.SubscriberEmail
	apiKey    string
	secretKey string
	http      *http.Client
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("email: empty base url")
	}
	if cfg.From.IsZero() {
		return nil, fmt.Errorf("email: empty sender address")
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		endpoint:  base + "/send",
		from:      cfg.From,
		apiKey:    cfg.APIKey,
		secretKey: cfg.SecretKey,
		http:      hc,
	}, nil
}

type sendRequest struct {
	FromEmail string `json:"FromEmail"`
	To        string `json:"To"`
	Subject   string `json:"Subject"`
	HTMLPart  string `json:"Html-part"`
	TextPart  string `json:"Text-part"`
}

// Send posts msg to the provider. Any non-2xx status is an error.
func (c *Client) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(sendRequest{
		FromEmail: c.from.String(),
		To:        msg.To.String(),
		Subject:   msg.Subject,
		HTMLPart:  msg.HTML,
		TextPart:  msg.Text,
	})
	if err != nil {
		return fmt.Errorf("email: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("email: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.apiKey, c.secretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("email: send: %w", err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

// StatusError reports a non-2xx provider response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("email: provider returned status %d", e.StatusCode)
}
