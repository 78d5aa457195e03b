package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/ridgeline-intel/prospector/internal/core/domain"
)

// ClientConfig holds retry and circuit breaker settings for upstream
// calls.
type ClientConfig struct {
	EnableCircuitBreaker bool
	MaxFailures          uint32
	CircuitTimeout       time.Duration

	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultClientConfig returns sane defaults for flaky public APIs.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		EnableCircuitBreaker: true,
		MaxFailures:          5,
		CircuitTimeout:       30 * time.Second,
		MaxRetries:           3,
		InitialInterval:      500 * time.Millisecond,
		MaxInterval:          5 * time.Second,
	}
}

// Client wraps an HTTP client with exponential-backoff retry and one
// circuit breaker per source. Retries cover transport errors, 429 and
// 5xx; any other response is returned to the caller untouched so the
// probe can apply its own status semantics (a 404 on an org lookup is
// a skip, not a failure). Safe for concurrent use across scans.
type Client struct {
	http *http.Client
	cfg  ClientConfig

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewClient(httpClient *http.Client, cfg ClientConfig) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		http:     httpClient,
		cfg:      cfg,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Do executes the request on behalf of sourceID. The returned error is
// non-nil only for transport-level problems (including an open
// breaker); HTTP error statuses that survive the retry budget come
// back as a normal response.
func (c *Client) Do(sourceID string, req *http.Request) (*http.Response, error) {
	if !c.cfg.EnableCircuitBreaker {
		return c.doWithRetry(sourceID, req)
	}

	result, err := c.breaker(sourceID).Execute(func() (interface{}, error) {
		return c.doWithRetry(sourceID, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			RecordProbeError(sourceID, string(domain.FailUpstream5xx))
			return nil, fmt.Errorf("circuit breaker open for %s: %w", sourceID, err)
		}
		return nil, err
	}
	return result.(*http.Response), nil
}

func (c *Client) breaker(sourceID string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	br, ok := c.breakers[sourceID]
	if !ok {
		br = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        sourceID,
			MaxRequests: 1,
			Timeout:     c.cfg.CircuitTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= c.cfg.MaxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Printf("⚡ circuit breaker %q changed from %s to %s", name, from, to)
			},
		})
		c.breakers[sourceID] = br
	}
	return br
}

func (c *Client) doWithRetry(sourceID string, req *http.Request) (*http.Response, error) {
	if c.cfg.MaxRetries == 0 {
		return c.http.Do(req)
	}

	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = c.cfg.InitialInterval
	expBackoff.MaxInterval = c.cfg.MaxInterval
	expBackoff.Multiplier = 2.0
	expBackoff.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(c.cfg.MaxRetries)), req.Context())

	var resp *http.Response
	operation := func() error {
		if bodyBytes != nil {
			req.Body = io.NopCloser(strings.NewReader(string(bodyBytes)))
		}

		var err error
		resp, err = c.http.Do(req)
		if err != nil {
			if retryableTransportError(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		if retryableStatus(resp.StatusCode) {
			resp.Body.Close()
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
		}
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		// Out of retry budget. If the last attempt produced a
		// retryable status the probe still gets to classify it, so
		// replay once without retrying.
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}
		if bodyBytes != nil {
			req.Body = io.NopCloser(strings.NewReader(string(bodyBytes)))
		}
		return c.http.Do(req)
	}
	return resp, nil
}

func retryableTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "EOF")
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// ClassifyError maps a transport-level error to a failure kind.
func ClassifyError(err error) domain.FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.FailTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.FailTimeout
	}
	return domain.FailUpstream5xx
}

// ClassifyStatus maps an HTTP error status to a failure kind.
func ClassifyStatus(status int) domain.FailureKind {
	switch {
	case status == http.StatusTooManyRequests:
		return domain.FailRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.FailAuthInvalid
	case status >= 500:
		return domain.FailUpstream5xx
	default:
		return domain.FailMalformed
	}
}
