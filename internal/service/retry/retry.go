// Package retry runs backend calls with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ai-speech-translation-service/internal/observability/logging"
	"ai-speech-translation-service/internal/observability/metrics"
)

// ErrExhausted wraps the last error once every attempt has failed.
var ErrExhausted = errors.New("retries exhausted")

// Policy bounds how often and how patiently a call is retried.
type Policy struct {
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
	Multiplier  float64

	Metrics *metrics.Metrics
	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns three attempts starting at 250ms.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Initial:     250 * time.Millisecond,
		Max:         5 * time.Second,
		Multiplier:  2,
	}
}

// Do calls fn until it succeeds, returns a non-retryable error, or
// MaxAttempts is reached. backend labels logs and metrics.
func (p Policy) Do(ctx context.Context, backend string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 2
	}
	bo := gax.Backoff{Initial: p.Initial, Max: p.Max, Multiplier: mult}
	sleep := p.sleep
	if sleep == nil {
		sleep = gax.Sleep
	}
	m := p.Metrics
	if m == nil {
		m = metrics.DefaultMetrics
	}
	logger := logging.WithComponent("retry")

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		pause := bo.Pause()
		m.RecordBackendRetry(backend)
		logEvent(logger, backend, attempt, pause, err)

		if serr := sleep(ctx, pause); serr != nil {
			return fmt.Errorf("%s: %w (last error: %v)", backend, serr, err)
		}
	}
	return fmt.Errorf("%s: %w after %d attempts: %w", backend, ErrExhausted, attempts, err)
}

func logEvent(logger zerolog.Logger, backend string, attempt int, pause time.Duration, err error) {
	logger.Warn().
		Err(err).
		Str("backend", backend).
		Int("attempt", attempt).
		Dur("backoff", pause).
		Msg("Backend call failed, retrying")
}

// Retryable reports whether err is a transient backend failure.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}

	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Internal:
			return true
		}
	}
	return false
}
