package openai

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dubber/internal/services/retry"
)

const (
	defaultBaseURL         = "https://api.openai.com/v1"
	defaultTimeout         = 120 * time.Second
	defaultTranscribeModel = "whisper-1"
	defaultSpeechModel     = "tts-1"
	serviceName            = "openai"
)

// Config captures the connection settings for the audio endpoints.
type Config struct {
	APIKey             string
	BaseURL            string
	TranscriptionModel string
	SpeechModel        string
	TimeoutSeconds     int
}

// Client talks to the OpenAI audio API.
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
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.TranscriptionModel) == "" {
		cfg.TranscriptionModel = defaultTranscribeModel
	}
	if strings.TrimSpace(cfg.SpeechModel) == "" {
		cfg.SpeechModel = defaultSpeechModel
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

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("openai %s: api key required", op)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai %s: %w", op, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai %s: read body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, retry.NewStatusError(serviceName, resp, body)
	}
	return body, nil
}
