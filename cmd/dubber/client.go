package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dubber/internal/config"
	"dubber/internal/jobs"
)

// serviceClient reads status from a running dubber over its HTTP API.
type serviceClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newServiceClient(cfg *config.Config) *serviceClient {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if strings.HasPrefix(bind, ":") {
		bind = "127.0.0.1" + bind
	}
	if strings.HasPrefix(bind, "0.0.0.0:") {
		bind = "127.0.0.1:" + strings.TrimPrefix(bind, "0.0.0.0:")
	}
	return &serviceClient{
		baseURL: "http://" + bind,
		token:   cfg.Paths.APIToken,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

type healthResponse struct {
	Status         string `json:"status"`
	CloningEnabled bool   `json:"cloning_enabled"`
}

type jobsResponse struct {
	Jobs  []*jobs.Record `json:"jobs"`
	Error string         `json:"error"`
}

func (c *serviceClient) Health(ctx context.Context) (healthResponse, error) {
	var out healthResponse
	err := c.get(ctx, "/health", &out)
	return out, err
}

func (c *serviceClient) Jobs(ctx context.Context, states ...string) ([]*jobs.Record, error) {
	query := url.Values{}
	for _, state := range states {
		if trimmed := strings.TrimSpace(state); trimmed != "" {
			query.Add("state", trimmed)
		}
	}
	path := "/dubbing/jobs"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var out jobsResponse
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

func (c *serviceClient) get(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("connect to dubber at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var failure struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &failure) == nil && failure.Error != "" {
			return fmt.Errorf("dubber %s: %s", path, failure.Error)
		}
		return fmt.Errorf("dubber %s: http %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.Join(fmt.Errorf("decode %s response", path), err)
	}
	return nil
}
