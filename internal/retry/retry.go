package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/ryosukesatoh/daily-brief/internal/config"
)

// Config holds retry configuration. MaxRetries of zero means a single attempt.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// FromConfig converts the file configuration.
func FromConfig(cfg config.RetryConfig) Config {
	return Config{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.BaseDelay}
}

// Retryable is implemented by errors that know whether a repeat could succeed.
type Retryable interface {
	Retryable() bool
}

// WithBackoff executes a function with exponential backoff retry logic.
// The last error is returned wrapped so callers can still match it.
func WithBackoff(ctx context.Context, config Config, operation func(context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := operation(ctx)
		if err == nil {
			return nil
		}

		if !isRetryableError(err) {
			return err
		}

		if attempt >= config.MaxRetries {
			if config.MaxRetries == 0 {
				return err
			}
			return fmt.Errorf("operation failed after %d attempts: %w", attempt+1, err)
		}

		// Exponential backoff with jitter
		delay := config.BaseDelay * time.Duration(1<<attempt)
		if config.BaseDelay > 0 {
			delay += rand.N(config.BaseDelay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var r Retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

// HTTPStatusRetryable checks if an HTTP status code is retryable
func HTTPStatusRetryable(statusCode int) bool {
	// Retry on server errors (5xx) and rate limiting (429)
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}
