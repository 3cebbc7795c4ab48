package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourusername/arb-scanner/internal/logger"
)

// Circuit breaker states
const (
	CircuitClosed   = "closed"
	CircuitOpen     = "open"
	CircuitHalfOpen = "half_open"
)

// HTTPClientConfig holds configuration for HTTP clients
type HTTPClientConfig struct {
	Timeout                time.Duration
	MaxRetries             int
	RetryWaitMin           time.Duration
	RetryWaitMax           time.Duration
	RateLimit              float64 // requests per second
	CircuitBreakerMax      int     // max consecutive failures before circuit break
	CircuitBreakerCooldown time.Duration
}

// DefaultHTTPClientConfig returns recommended defaults
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:                10 * time.Second,
		MaxRetries:             2,
		RetryWaitMin:           100 * time.Millisecond,
		RetryWaitMax:           2 * time.Second,
		RateLimit:              10.0,
		CircuitBreakerMax:      5,
		CircuitBreakerCooldown: 30 * time.Second,
	}
}

// RateLimitedHTTPClient wraps retryablehttp.Client with rate limiting and a
// circuit breaker. After the cooldown the breaker half-opens and lets a
// single trial request through; others are rejected until it finishes.
type RateLimitedHTTPClient struct {
	client            *retryablehttp.Client
	limiter           *rate.Limiter
	circuitBreakerMax int
	cooldown          time.Duration
	log               *logger.CollectorLogger
	now               func() time.Time

	mu                sync.Mutex
	consecutiveErrors int
	isOpen            bool
	trialInFlight     bool
	openedAt          time.Time
	lastError         error
}

// NewRateLimitedHTTPClient creates a new rate-limited HTTP client
func NewRateLimitedHTTPClient(cfg HTTPClientConfig, log *logger.CollectorLogger) *RateLimitedHTTPClient {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = logger.NewCollectorLogger(discard, "http")
	}
	if cfg.CircuitBreakerMax <= 0 {
		cfg.CircuitBreakerMax = DefaultHTTPClientConfig().CircuitBreakerMax
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultHTTPClientConfig().RateLimit
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.CheckRetry = customRetryPolicy()
	// Hand the final response back so callers can classify the status code
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = retryLogger{entry: log.Entry}

	return &RateLimitedHTTPClient{
		client:            retryClient,
		limiter:           rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		circuitBreakerMax: cfg.CircuitBreakerMax,
		cooldown:          cfg.CircuitBreakerCooldown,
		log:               log,
		now:               time.Now,
	}
}

// Do executes an HTTP request with rate limiting and circuit breaker
func (c *RateLimitedHTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	trial, err := c.allow()
	if err != nil {
		return nil, err
	}
	if trial {
		defer c.endTrial()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	retryReq, err := retryablehttp.FromRequest(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to wrap request: %w", err)
	}

	resp, err := c.client.Do(retryReq)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		// Shutdown is not an upstream failure
		if !errors.Is(ctx.Err(), context.Canceled) {
			c.recordFailure(err)
		}
		return nil, err
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.recordFailure(fmt.Errorf("server returned status %d", resp.StatusCode))
	} else {
		c.recordSuccess()
	}

	return resp, nil
}

// Get executes a GET request
func (c *RateLimitedHTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return c.Do(ctx, req)
}

// State returns the circuit breaker state
func (c *RateLimitedHTTPClient) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case !c.isOpen:
		return CircuitClosed
	case c.now().Sub(c.openedAt) >= c.cooldown:
		return CircuitHalfOpen
	default:
		return CircuitOpen
	}
}

// Close closes any resources held by the client
func (c *RateLimitedHTTPClient) Close() error {
	c.client.HTTPClient.CloseIdleConnections()
	return nil
}

// allow reports whether a request may proceed and whether it is the
// half-open trial request.
func (c *RateLimitedHTTPClient) allow() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isOpen {
		return false, nil
	}
	if c.now().Sub(c.openedAt) >= c.cooldown && !c.trialInFlight {
		c.trialInFlight = true
		return true, nil
	}
	return false, fmt.Errorf("%w: %v", ErrCircuitOpen, c.lastError)
}

func (c *RateLimitedHTTPClient) endTrial() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trialInFlight = false
}

func (c *RateLimitedHTTPClient) recordFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveErrors++
	c.lastError = err
	if c.consecutiveErrors >= c.circuitBreakerMax {
		wasOpen := c.isOpen
		c.isOpen = true
		c.openedAt = c.now()
		if !wasOpen {
			c.log.LogCircuitBreakerEvent(CircuitOpen, c.consecutiveErrors, c.cooldown)
		}
	}
}

func (c *RateLimitedHTTPClient) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isOpen {
		c.log.LogCircuitBreakerEvent(CircuitClosed, c.consecutiveErrors, c.cooldown)
	}
	c.consecutiveErrors = 0
	c.isOpen = false
	c.lastError = nil
}

// customRetryPolicy defines which HTTP responses should trigger a retry
func customRetryPolicy() retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		if err != nil {
			// Retry on network errors
			return true, err
		}

		// Retry on rate limit (429) and server errors
		switch resp.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true, nil
		}

		return false, nil
	}
}

// retryLogger routes retryablehttp's chatter to debug level
type retryLogger struct {
	entry *logrus.Entry
}

func (l retryLogger) Printf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}
