package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jonboulle/clockwork"

	"github.com/AnotherRiz/BitX-Sessions/internal/metrics"
)

var (
	// ErrInvalidCode means the relay does not know the code. Counts toward
	// the lockout.
	ErrInvalidCode = errors.New("transfer code not found or expired")
	// ErrRateLimited means the relay throttled us. Does not count toward
	// the lockout.
	ErrRateLimited = errors.New("transfer service rate limit exceeded")
	// ErrLockedOut means too many invalid codes were tried recently.
	ErrLockedOut = errors.New("too many invalid transfer codes, try again later")
)

const (
	maxInvalidAttempts = 5
	lockoutWindow      = 10 * time.Minute
)

type sendResponse struct {
	Code string `json:"code"`
}

type receiveResponse struct {
	Payload json.RawMessage `json:"payload"`
}

// Client talks to the transfer relay over HTTP.
type Client struct {
	http  *resty.Client
	clock clockwork.Clock

	mu       sync.Mutex
	failures []time.Time
}

// NewClient creates a relay client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, clock clockwork.Clock) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:  httpClient,
		clock: clock,
	}
}

// Send uploads an export payload and returns the code the relay minted
// for it.
func (c *Client) Send(ctx context.Context, payload []byte) (string, error) {
	var out sendResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(json.RawMessage(payload)).
		SetResult(&out).
		Post("/transfers")
	if err != nil {
		metrics.TransferRequestsTotal.WithLabelValues("send", "error").Inc()
		return "", fmt.Errorf("transfer send failed: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		metrics.TransferRequestsTotal.WithLabelValues("send", "rate_limited").Inc()
		return "", ErrRateLimited
	case resp.IsError():
		metrics.TransferRequestsTotal.WithLabelValues("send", "error").Inc()
		return "", fmt.Errorf("transfer send failed: relay returned %d", resp.StatusCode())
	}

	if out.Code == "" {
		metrics.TransferRequestsTotal.WithLabelValues("send", "error").Inc()
		return "", fmt.Errorf("transfer send failed: relay returned no code")
	}
	metrics.TransferRequestsTotal.WithLabelValues("send", "success").Inc()
	return out.Code, nil
}

// Receive redeems a code for the export payload it references. An unknown
// code counts toward the lockout window; after too many, Receive fails
// fast with ErrLockedOut until the window drains.
func (c *Client) Receive(ctx context.Context, code string) ([]byte, error) {
	if c.lockedOut() {
		metrics.TransferRequestsTotal.WithLabelValues("receive", "locked_out").Inc()
		return nil, ErrLockedOut
	}

	var out receiveResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/transfers/" + code)
	if err != nil {
		metrics.TransferRequestsTotal.WithLabelValues("receive", "error").Inc()
		return nil, fmt.Errorf("transfer receive failed: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		c.recordFailure()
		metrics.TransferRequestsTotal.WithLabelValues("receive", "invalid_code").Inc()
		return nil, ErrInvalidCode
	case resp.StatusCode() == http.StatusTooManyRequests:
		metrics.TransferRequestsTotal.WithLabelValues("receive", "rate_limited").Inc()
		return nil, ErrRateLimited
	case resp.IsError():
		metrics.TransferRequestsTotal.WithLabelValues("receive", "error").Inc()
		return nil, fmt.Errorf("transfer receive failed: relay returned %d", resp.StatusCode())
	}

	if len(out.Payload) == 0 {
		metrics.TransferRequestsTotal.WithLabelValues("receive", "error").Inc()
		return nil, fmt.Errorf("transfer receive failed: relay returned no payload")
	}
	metrics.TransferRequestsTotal.WithLabelValues("receive", "success").Inc()
	return out.Payload, nil
}

// lockedOut drops failures older than the window and reports whether the
// remainder exceeds the attempt budget.
func (c *Client) lockedOut() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.clock.Now().Add(-lockoutWindow)
	recent := c.failures[:0]
	for _, ts := range c.failures {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	c.failures = recent
	return len(c.failures) >= maxInvalidAttempts
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures = append(c.failures, c.clock.Now())
	if len(c.failures) == maxInvalidAttempts {
		metrics.TransferLockoutsTotal.Inc()
	}
}
