// Package retry drives remote calls through a bounded attempt budget with
// exponential backoff. It classifies which failures are worth repeating:
// request timeouts, rate limiting, 5xx responses, network timeouts, and
// anything tagged services.ErrTransient. Context cancellation never retries.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dubber/internal/services"
)

const (
	defaultBaseDelay = 500 * time.Millisecond
	defaultMaxDelay  = 10 * time.Second
)

// Policy bounds how often and how patiently an operation is repeated.
type Policy struct {
	// MaxAttempts counts the first call. Two means one retry.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Sleeper replaces the timer wait, for tests.
	Sleeper func(time.Duration)
	// OnRetry is invoked before each repeated attempt.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// StatusError is returned by remote clients for non-2xx responses.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	service := e.Service
	if service == "" {
		service = "remote"
	}
	body := strings.TrimSpace(e.Body)
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("%s request: http %d: %s", service, e.StatusCode, body)
}

// NewStatusError builds a StatusError from a response, honouring Retry-After.
func NewStatusError(service string, resp *http.Response, body []byte) *StatusError {
	retryAfter, _ := ParseRetryAfter(resp.Header.Get("Retry-After"))
	return &StatusError{
		Service:    service,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
		RetryAfter: retryAfter,
	}
}

// Do runs op until it succeeds, returns a non-retryable error, or the attempt
// budget is spent. The final error is returned unchanged so callers can
// classify it with errors.Is/As.
func Do(ctx context.Context, policy Policy, op func(context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if attempt == attempts || ctx.Err() != nil {
			return err
		}
		hint, ok := Retryable(err)
		if !ok {
			return err
		}
		delay := policy.backoff(attempt)
		if hint > 0 {
			delay = policy.capDelay(hint)
		}
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, delay, err)
		}
		if sleepErr := policy.sleep(ctx, delay); sleepErr != nil {
			return err
		}
	}
	return err
}

// Retryable reports whether err is worth another attempt and, when the
// server asked for one, how long to wait.
func Retryable(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) {
		return 0, false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			return statusErr.RetryAfter, true
		default:
			return 0, false
		}
	}
	if errors.Is(err, services.ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return 0, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return 0, true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return 0, true
	}
	return 0, false
}

func (p Policy) backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base < 0 {
		return 0
	}
	if base == 0 {
		base = defaultBaseDelay
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.maxDelay() {
			break
		}
	}
	return p.capDelay(delay)
}

func (p Policy) maxDelay() time.Duration {
	if p.MaxDelay > 0 {
		return p.MaxDelay
	}
	return defaultMaxDelay
}

func (p Policy) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if limit := p.maxDelay(); delay > limit {
		return limit
	}
	return delay
}

func (p Policy) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if p.Sleeper != nil {
		p.Sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ParseRetryAfter understands both delta-seconds and HTTP-date values.
func ParseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
