package httputil

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"net/http"
	"time"
)

type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// RetriableStatus lists response codes worth another attempt.
	// Empty means any 5xx or 429.
	RetriableStatus []int
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialDelay:    500 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		Multiplier:      2.0,
		RetriableStatus: []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = 500 * time.Millisecond
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.Multiplier == 0 {
		c.Multiplier = 2.0
	}
	return c
}

// IsRetriableStatus reports whether code should be retried under this config.
func (c RetryConfig) IsRetriableStatus(code int) bool {
	if len(c.RetriableStatus) == 0 {
		return code == http.StatusTooManyRequests || (code >= 500 && code < 600)
	}
	for _, s := range c.RetriableStatus {
		if s == code {
			return true
		}
	}
	return false
}

// Backoff yields jittered exponential delays.
type Backoff struct {
	next   time.Duration
	config RetryConfig
}

func NewBackoff(config RetryConfig) *Backoff {
	config = config.withDefaults()
	return &Backoff{next: config.InitialDelay, config: config}
}

func (b *Backoff) Next() time.Duration {
	d := applyJitter(b.next)
	b.next = min(time.Duration(float64(b.next)*b.config.Multiplier), b.config.MaxDelay)
	return d
}

// Sleep waits for the next delay or until ctx is done.
func (b *Backoff) Sleep(ctx context.Context) error {
	t := time.NewTimer(b.Next())
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsRetriableError reports transport failures worth another attempt: timeouts,
// connection errors and DNS failures. Context cancellation is not retriable.
func IsRetriableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

// RetryClient retries idempotent requests on transport errors and retriable statuses.
type RetryClient struct {
	client *http.Client
	config RetryConfig
}

func NewRetryClient(client *http.Client, config RetryConfig) *RetryClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &RetryClient{client: client, config: config.withDefaults()}
}

func (c *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error
	backoff := NewBackoff(c.config)

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if req.GetBody != nil {
				body, bodyErr := req.GetBody()
				if bodyErr != nil {
					return nil, bodyErr
				}
				req.Body = body
			}
			if sleepErr := backoff.Sleep(req.Context()); sleepErr != nil {
				return nil, sleepErr
			}
		}

		resp, err = c.client.Do(req)
		if !c.shouldRetry(resp, err) {
			return resp, err
		}
		if resp != nil && attempt < c.config.MaxRetries {
			_ = resp.Body.Close()
		}
	}

	return resp, err
}

func (c *RetryClient) shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return IsRetriableError(err)
	}
	return c.config.IsRetriableStatus(resp.StatusCode)
}

func applyJitter(delay time.Duration) time.Duration {
	jitterFactor := 0.9 + rand.Float64()*0.2
	return time.Duration(float64(delay) * jitterFactor)
}
