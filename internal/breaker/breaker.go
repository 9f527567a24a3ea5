package breaker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spigell/marketsync/internal/upstream"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type Config struct {
	Enabled      bool          `mapstructure:"enabled"`
	MinRequests  uint32        `mapstructure:"min-requests"`
	FailureRatio float64       `mapstructure:"failure-ratio"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Interval     time.Duration `mapstructure:"interval"`
}

// Breaker guards calls to one upstream. A nil Breaker runs calls directly.
type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// New returns nil when the breaker is disabled.
func New[T any](name string, cfg *Config, logger *zap.Logger) *Breaker[T] {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	minRequests := cfg.MinRequests
	if minRequests == 0 {
		minRequests = 5
	}
	ratio := cfg.FailureRatio
	if ratio <= 0 {
		ratio = 0.6
	}

	settings := gobreaker.Settings{
		Name:     name,
		Interval: cfg.Interval,
		Timeout:  cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && failureRatio >= ratio
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	if b == nil || b.cb == nil {
		return fn()
	}

	out, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return out, fmt.Errorf("%s: %w", b.cb.Name(), ErrOpen)
	}
	return out, err
}

func (b *Breaker[T]) State() string {
	if b == nil || b.cb == nil {
		return "disabled"
	}
	return b.cb.State().String()
}

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

// countsAsSuccess keeps rate limits, client errors and caller cancellations
// from tripping the breaker.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}

	if errors.Is(err, context.Canceled) {
		return true
	}

	var rl *upstream.RateLimitError
	if errors.As(err, &rl) {
		return true
	}

	var upErr *upstream.Error
	if errors.As(err, &upErr) {
		return upErr.StatusCode >= http.StatusBadRequest && upErr.StatusCode < http.StatusInternalServerError
	}

	return false
}
