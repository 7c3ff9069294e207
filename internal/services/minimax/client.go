package minimax

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dubber/internal/services/retry"
)

const (
	defaultBaseURL = "https://api.minimax.io/v1"
	defaultModel   = "speech-2.5-hd-preview"
	defaultTimeout = 120 * time.Second
	serviceName    = "minimax"
)

// Config captures the MiniMax account settings.
type Config struct {
	APIKey         string
	GroupID        string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client talks to the MiniMax API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New constructs a client, filling defaults for unset fields.
func New(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.GroupID = strings.TrimSpace(cfg.GroupID)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultModel
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != ""
}

// APIError is a MiniMax-level failure reported through base_resp.
type APIError struct {
	Op      string
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("minimax %s: status %d: %s", e.Op, e.Code, e.Message)
}

type baseResp struct {
	StatusCode int    `json:"status_code"`
	StatusMsg  string `json:"status_msg"`
}

func (b *baseResp) err(op string) error {
	if b == nil || b.StatusCode == 0 {
		return nil
	}
	msg := strings.TrimSpace(b.StatusMsg)
	if msg == "" {
		msg = "unknown error"
	}
	return &APIError{Op: op, Code: b.StatusCode, Message: msg}
}

func (c *Client) postJSON(ctx context.Context, path, op string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("minimax %s: encode body: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("minimax %s: new request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, op)
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("minimax %s: api key not configured", op)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("minimax %s: %w", op, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("minimax %s: read body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, retry.NewStatusError(serviceName, resp, body)
	}
	return body, nil
}
