// Package session turns the shared capture buffer into bounded recognition
// windows. Each Session feeds one streaming recognition request and ends
// when its window expires or the capture sentinel is reached.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-speech-translation-service/internal/observability/logging"
	"ai-speech-translation-service/internal/observability/metrics"
	"ai-speech-translation-service/internal/service/capture"
)

// DefaultLimit keeps each stream under the backend's 60s cap.
const DefaultLimit = 55 * time.Second

// EndReason records why a session stopped delivering audio.
type EndReason int

const (
	// EndNone - still delivering.
	EndNone EndReason = iota
	// EndExpired - the window ran out. The caller should open another.
	EndExpired
	// EndClosed - the capture sentinel was reached.
	EndClosed
	// EndCancelled - the context was cancelled.
	EndCancelled
)

func (r EndReason) String() string {
	switch r {
	case EndNone:
		return "none"
	case EndExpired:
		return "expired"
	case EndClosed:
		return "closed"
	case EndCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Window is a wall-clock deadline measured from its start.
type Window struct {
	start time.Time
	limit time.Duration
	now   func() time.Time
}

// NewWindow starts a window at now().
func NewWindow(limit time.Duration, now func() time.Time) Window {
	if now == nil {
		now = time.Now
	}
	return Window{start: now(), limit: limit, now: now}
}

// Elapsed returns the time since the window started.
func (w Window) Elapsed() time.Duration {
	return w.now().Sub(w.start)
}

// Expired reports whether strictly more than limit has elapsed.
func (w Window) Expired() bool {
	return w.Elapsed() > w.limit
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithMetrics overrides the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// Session yields coalesced audio units from a capture buffer until its
// window expires or the buffer's sentinel is reached. It is consumed by a
// single goroutine; EndReason may be read from any.
type Session struct {
	id      string
	buf     *capture.Buffer
	window  Window
	now     func() time.Time
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu      sync.Mutex
	reason  EndReason
	chunks  int
	bytes   int
	units   int
	// pending is set when the sentinel turns up mid-drain. The round already
	// coalesced is still delivered rather than dropped with the sentinel;
	// the next call ends the sequence.
	pending bool
}

// Open starts a new window over buf. The buffer is shared across sessions,
// so audio not consumed by a previous session is delivered by this one.
func Open(buf *capture.Buffer, limit time.Duration, opts ...Option) *Session {
	s := &Session{
		id:      uuid.NewString(),
		buf:     buf,
		now:     time.Now,
		metrics: metrics.DefaultMetrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	s.window = NewWindow(limit, s.now)
	s.logger = logging.WithSession("session", s.id)
	s.metrics.RecordSessionStart()

	s.logger.Debug().Dur("limit", limit).Msg("Session opened")
	return s
}

// ID returns the session's unique id.
func (s *Session) ID() string {
	return s.id
}

// Next returns the next unit of audio: one chunk obtained by a blocking read,
// followed by every chunk already waiting. It reports false once the session
// has ended; EndReason says why.
func (s *Session) Next(ctx context.Context) ([]byte, bool) {
	s.mu.Lock()
	if s.reason != EndNone {
		s.mu.Unlock()
		return nil, false
	}
	pending := s.pending
	s.mu.Unlock()

	if pending {
		s.end(EndClosed)
		return nil, false
	}
	if s.window.Expired() {
		s.end(EndExpired)
		return nil, false
	}

	first, err := s.buf.Get(ctx)
	switch {
	case err == nil:
	case errors.Is(err, capture.ErrClosed):
		s.end(EndClosed)
		return nil, false
	default:
		s.end(EndCancelled)
		return nil, false
	}

	data := append([]byte(nil), first...)
	n := 1
	for {
		chunk, err := s.buf.TryGet()
		if errors.Is(err, capture.ErrEmpty) {
			break
		}
		if errors.Is(err, capture.ErrClosed) {
			s.mu.Lock()
			s.pending = true
			s.mu.Unlock()
			break
		}
		data = append(data, chunk...)
		n++
	}

	s.mu.Lock()
	s.chunks += n
	s.bytes += len(data)
	s.units++
	s.mu.Unlock()
	s.metrics.RecordDelivery(s.buf.Len())

	return data, true
}

// EndReason returns why the session ended, or EndNone while it is live.
func (s *Session) EndReason() EndReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Expired is shorthand for EndReason() == EndExpired.
func (s *Session) Expired() bool {
	return s.EndReason() == EndExpired
}

// Elapsed returns the time since the session opened.
func (s *Session) Elapsed() time.Duration {
	return s.window.Elapsed()
}

func (s *Session) end(reason EndReason) {
	s.mu.Lock()
	if s.reason != EndNone {
		s.mu.Unlock()
		return
	}
	s.reason = reason
	chunks, bytes, units := s.chunks, s.bytes, s.units
	s.mu.Unlock()

	elapsed := s.window.Elapsed()
	s.metrics.RecordSessionEnd(reason.String(), elapsed.Seconds())
	s.logger.Info().
		Str("reason", reason.String()).
		Dur("elapsed", elapsed).
		Int("chunks", chunks).
		Int("bytes", bytes).
		Int("units", units).
		Msg("Session ended")
}
