// Package retry applies one bounded exponential-backoff policy to every
// outbound call that may fail transiently.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Config holds retry configuration.
type Config struct {
	// MaxAttempts counts the first call, so 1 disables retries.
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     10 * time.Second,
		MaxElapsedTime:  2 * time.Minute,
	}
}

// Classifier reports whether err is worth another attempt.
type Classifier func(error) bool

// StatusError carries an HTTP status code that the caller treats as an error.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Do runs fn until it succeeds, classify rejects the error, attempts run
// out or ctx is done. A nil classifier uses IsTransient.
func Do[T any](ctx context.Context, cfg Config, classify Classifier, fn func(context.Context) (T, error)) (T, error) {
	if classify == nil {
		classify = IsTransient
	}

	attempt := 0
	operation := func() (T, error) {
		attempt++
		res, err := fn(ctx)
		if err != nil && !classify(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	bo.MaxInterval = cfg.MaxInterval

	opts := []backoff.RetryOption{
		backoff.WithBackOff(bo),
		backoff.WithNotify(func(err error, wait time.Duration) {
			slog.Debug("Retrying after transient error", "attempt", attempt, "wait", wait, "error", err)
		}),
	}
	if cfg.MaxAttempts > 0 {
		opts = append(opts, backoff.WithMaxTries(uint(cfg.MaxAttempts)))
	}
	if cfg.MaxElapsedTime > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(cfg.MaxElapsedTime))
	}

	return backoff.Retry(ctx, operation, opts...)
}

// IsTransient accepts network failures and retryable HTTP statuses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return IsRetryableStatus(statusErr.StatusCode)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

func IsRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
