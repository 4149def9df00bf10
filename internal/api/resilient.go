package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/langhelper/internal/domain"
)

// ErrRateLimited is returned when generation is called faster than allowed
var ErrRateLimited = errors.New("generation rate limit exceeded")

// ResilienceConfig controls the fortify patterns around backend calls.
// Reads of history and public exercises are retried; generation goes through
// a circuit breaker, a bulkhead and a rate limiter but is never retried.
type ResilienceConfig struct {
	// EnableRetry retries idempotent reads on 429/5xx and network errors
	EnableRetry bool

	// EnableCircuitBreaker stops calling generation after repeated failures
	EnableCircuitBreaker bool

	// EnableBulkhead bounds concurrent generation requests
	EnableBulkhead bool

	// EnableRateLimit bounds generation requests per second
	EnableRateLimit bool

	// MaxAttempts for retried reads (default: 3)
	MaxAttempts int

	// InitialDelay before the first retry (default: 500ms)
	InitialDelay time.Duration

	// MaxConcurrent generation requests (default: 2)
	MaxConcurrent int

	// RatePerSecond for generation (default: 1)
	RatePerSecond int
}

// DefaultResilienceConfig enables every pattern
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		EnableRetry:          true,
		EnableCircuitBreaker: true,
		EnableBulkhead:       true,
		EnableRateLimit:      true,
		MaxAttempts:          3,
		InitialDelay:         500 * time.Millisecond,
		MaxConcurrent:        2,
		RatePerSecond:        1,
	}
}

type resilience struct {
	retrier        retry.Retry[struct{}]
	circuitBreaker circuitbreaker.CircuitBreaker[struct{}]
	bulkhead       bulkhead.Bulkhead[struct{}]
	rateLimit      ratelimit.RateLimiter
	logger         *slog.Logger
}

func newResilience(cfg ResilienceConfig, logger *slog.Logger) *resilience {
	r := &resilience{logger: logger}

	if cfg.EnableRetry {
		attempts := cfg.MaxAttempts
		if attempts <= 0 {
			attempts = 3
		}
		delay := cfg.InitialDelay
		if delay <= 0 {
			delay = 500 * time.Millisecond
		}
		r.retrier = retry.New[struct{}](retry.Config{
			MaxAttempts:   attempts,
			InitialDelay:  delay,
			MaxDelay:      10 * time.Second,
			Multiplier:    2.0,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
			IsRetryable:   isRetryable,
		})
	}

	if cfg.EnableCircuitBreaker {
		r.circuitBreaker = circuitbreaker.New[struct{}](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    30 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				logger.Warn("generation circuit breaker state change",
					"from", from.String(),
					"to", to.String())
			},
		})
	}

	if cfg.EnableBulkhead {
		maxConcurrent := cfg.MaxConcurrent
		if maxConcurrent <= 0 {
			maxConcurrent = 2
		}
		r.bulkhead = bulkhead.New[struct{}](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
			MaxQueue:      maxConcurrent * 2,
			QueueTimeout:  DefaultGenerationTimeout,
		})
	}

	if cfg.EnableRateLimit {
		rate := cfg.RatePerSecond
		if rate <= 0 {
			rate = 1
		}
		r.rateLimit = ratelimit.New(&ratelimit.Config{
			Rate:     rate,
			Burst:    rate * 3,
			Interval: time.Second,
		})
	}

	return r
}

// read runs an idempotent request, retrying when enabled
func (r *resilience) read(ctx context.Context, op func(ctx context.Context) error) error {
	wrapped := func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}
	if r.retrier == nil {
		_, err := wrapped(ctx)
		return err
	}
	_, err := r.retrier.Do(ctx, wrapped)
	return err
}

// generate runs a generation request through the limiter, bulkhead and
// circuit breaker. It is never retried.
func (r *resilience) generate(ctx context.Context, op func(ctx context.Context) error) error {
	if r.rateLimit != nil && !r.rateLimit.Allow(ctx, "generation") {
		return ErrRateLimited
	}

	operation := func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}

	if r.bulkhead != nil {
		inner := operation
		operation = func(ctx context.Context) (struct{}, error) {
			return r.bulkhead.Execute(ctx, inner)
		}
	}

	if r.circuitBreaker != nil {
		_, err := r.circuitBreaker.Execute(ctx, operation)
		return err
	}

	_, err := operation(ctx)
	return err
}

// Close releases the rate limiter
func (r *resilience) Close() error {
	if r.rateLimit != nil {
		if err := r.rateLimit.Close(); err != nil {
			return fmt.Errorf("close rate limiter: %w", err)
		}
	}
	return nil
}

// isRetryable accepts 429/5xx responses and network failures. Auth, parse
// and cancellation errors are final.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, domain.ErrAuthExpired) || errors.Is(err, domain.ErrParse) {
		return false
	}

	switch StatusCode(err) {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	case 0:
		return errors.Is(err, domain.ErrTransport)
	}
	return false
}
