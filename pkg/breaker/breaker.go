// Package breaker builds the circuit breakers used for outbound HTTP calls.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/d60-Lab/travel-tales/pkg/logger"
	"github.com/d60-Lab/travel-tales/pkg/metrics"
)

// ErrCallerGone marks a call cut short by the caller's own context.
var ErrCallerGone = errors.New("caller context done")

type Options struct {
	MaxRequests  uint32        // half-open probes
	Interval     time.Duration // closed-state count reset
	Timeout      time.Duration // open -> half-open
	MinRequests  uint32
	FailureRatio float64
}

func DefaultOptions() Options {
	return Options{
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	}
}

// New returns a breaker that trips on a failure ratio once MinRequests have
// been seen, logging transitions and exporting the state gauge.
func New[T any](name string, o Options) *gobreaker.CircuitBreaker[T] {
	metrics.SetBreakerState(name, 0)
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: o.MaxRequests,
		Interval:    o.Interval,
		Timeout:     o.Timeout,
		IsSuccessful: callerSuccess,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < o.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= o.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			metrics.SetBreakerState(name, stateValue(to))
		},
	})
}

// callerSuccess keeps caller cancellations out of the failure counts; the
// upstream was never judged.
func callerSuccess(err error) bool {
	return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrCallerGone)
}

// CallerErr tags err with ErrCallerGone when ctx ended before the call did,
// so a caller deadline does not count as an upstream failure.
func CallerErr(ctx context.Context, err error) error {
	if err == nil || ctx.Err() == nil {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCallerGone, err)
}

// Rejected reports whether err came from the breaker rather than the call.
func Rejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func stateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
