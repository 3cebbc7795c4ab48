package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/yourusername/arb-scanner/internal/models"
)

// Collector produces the current normalized quotes of one platform
type Collector interface {
	// Name returns the platform name stamped on every quote
	Name() string

	// Collect fetches current quotes. It never panics on bad upstream data;
	// failures are reported through the Result.
	Collect(ctx context.Context) Result
}

// Result is the outcome of one collection pass over a platform
type Result struct {
	Source   string
	Quotes   []models.Quote
	Failures []MarketFailure // per-market failures, the rest of the quotes are usable
	Err      error           // set when the whole platform failed
	Duration time.Duration
}

// Failed reports whether the platform produced nothing usable
func (r Result) Failed() bool {
	return r.Err != nil
}

// MarketFailure records a market whose detail request failed
type MarketFailure struct {
	MarketID string
	Err      error
}

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string // Data source name
	Code    string // Error code (e.g., "rate_limit_exceeded")
	Message string // Error message
	Err     error  // Underlying error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

// Unwrap exposes the underlying error to errors.Is and errors.As
func (e DataSourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
	ErrCodeTimeout              = "timeout"
	ErrCodeCircuitOpen          = "circuit_open"
	ErrCodeUnknown              = "unknown"
)

// Error constructors
var (
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNotFound             = errors.New("data not found")
	ErrInvalidData          = errors.New("invalid data format")
	ErrNetworkError         = errors.New("network error")
	ErrServerError          = errors.New("server error")
	ErrCircuitOpen          = errors.New("circuit breaker open")
)

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ErrorCode extracts the error code from err, or ErrCodeUnknown
func ErrorCode(err error) string {
	var dsErr DataSourceError
	if errors.As(err, &dsErr) {
		return dsErr.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrCodeTimeout
	}
	return ErrCodeUnknown
}
