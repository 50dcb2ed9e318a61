// Package resilience wraps outbound model calls with rate limiting,
// bounded retries and a circuit breaker. Callers only ever see
// domain.ErrServiceUnavailable; the underlying cause is logged.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"paperqa/config"
	"paperqa/internal/domain"
	"paperqa/internal/telemetry"
)

type Guard struct {
	service     string
	maxAttempts int
	backoffBase time.Duration
	timeout     time.Duration
	breaker     *gobreaker.CircuitBreaker
	limiter     *rate.Limiter
	logger      *zap.Logger
	metrics     *telemetry.Metrics
}

func NewGuard(service string, cfg config.ResilienceConfig, logger *zap.Logger, metrics *telemetry.Metrics) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("service", service))

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	g := &Guard{
		service:     service,
		maxAttempts: attempts,
		backoffBase: cfg.BackoffBase,
		timeout:     cfg.Timeout,
		logger:      logger,
		metrics:     metrics,
	}

	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    service,
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !Retryable(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return g
}

// Do runs fn until it succeeds, fails permanently or runs out of attempts.
// Cancellation of ctx is returned as is.
func (g *Guard) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if attempt > 1 {
			g.metrics.ExternalCall(g.service, telemetry.ResultRetry)
			if err := sleep(ctx, RetryDelay(g.backoffBase, attempt-1)); err != nil {
				return err
			}
		}

		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		_, err := g.breaker.Execute(func() (interface{}, error) {
			return nil, g.attempt(ctx, fn)
		})
		if err == nil {
			g.metrics.ExternalCall(g.service, telemetry.ResultOK)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, domain.ErrInvariantViolation) {
			g.metrics.ExternalCall(g.service, telemetry.ResultError)
			g.logger.Error("external call returned invalid data", zap.String("op", op), zap.Error(err))
			return err
		}

		lastErr = err
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) || !Retryable(err) {
			break
		}
		g.logger.Warn("external call failed",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", g.maxAttempts),
			zap.Error(err))
	}

	g.metrics.ExternalCall(g.service, telemetry.ResultUnavailable)
	g.logger.Error("external call gave up", zap.String("op", op), zap.Error(lastErr))
	return fmt.Errorf("%w: %s is unavailable", domain.ErrServiceUnavailable, g.service)
}

func (g *Guard) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if g.timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return fn(ctx)
}

// RetryDelay is base * 2^(retry-1) for the retry-th retry.
func RetryDelay(base time.Duration, retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	return base << (retry - 1)
}

// Retryable reports whether err is transient: network failures, timeouts,
// HTTP 429 and 5xx. Client errors such as bad credentials are not retried.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
