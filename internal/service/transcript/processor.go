// Package transcript consumes recognition responses: it renders interim
// results in place on the display, detects the spoken exit command, and
// hands every other final result to the translation pipeline.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"ai-speech-translation-service/internal/models"
	"ai-speech-translation-service/internal/observability/logging"
	"ai-speech-translation-service/internal/observability/metrics"
	"ai-speech-translation-service/internal/service/stt"
	"ai-speech-translation-service/internal/service/utterance"
)

var exitCommand = regexp.MustCompile(`(?i)\b(exit|quit)\b`)

// IsExitCommand reports whether text contains "exit" or "quit" as a whole word.
func IsExitCommand(text string) bool {
	return exitCommand.MatchString(text)
}

// Outcome is how a call to Process ended.
type Outcome int

const (
	// OutcomeStreamEnded - the response stream was exhausted.
	OutcomeStreamEnded Outcome = iota
	// OutcomeExit - the exit command was heard.
	OutcomeExit
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStreamEnded:
		return "stream_ended"
	case OutcomeExit:
		return "exit"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", o)
	}
}

// Dispatcher receives each finalized, non-exit transcript. Dispatch is
// called synchronously from the recognition loop.
type Dispatcher interface {
	Dispatch(ctx context.Context, text string) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, text string) error

func (f DispatcherFunc) Dispatch(ctx context.Context, text string) error {
	return f(ctx, text)
}

// TranscriptPublisher fans transcript events out; implemented by events.Publisher.
type TranscriptPublisher interface {
	PublishTranscript(ctx context.Context, ev models.TranscriptEvent) error
}

// Option configures a Processor.
type Option func(*Processor)

// WithPublisher emits a transcript event for every interim and final result.
func WithPublisher(p TranscriptPublisher) Option {
	return func(pr *Processor) { pr.publisher = p }
}

// WithMetrics overrides the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(pr *Processor) { pr.metrics = m }
}

// WithLanguage sets the language code stamped on transcript events.
func WithLanguage(code string) Option {
	return func(pr *Processor) { pr.language = code }
}

// WithExitHook registers fn to run once when the exit command is heard.
func WithExitHook(fn func()) Option {
	return func(pr *Processor) { pr.onExit = fn }
}

// Processor renders transcripts and dispatches finals. One Processor serves
// every session of a run; Process is called once per session.
type Processor struct {
	display    io.Writer
	dispatcher Dispatcher
	publisher  TranscriptPublisher
	metrics    *metrics.Metrics
	language   string
	onExit     func()
	lifecycle  *utterance.Lifecycle
	logger     zerolog.Logger

	mu        sync.Mutex
	sessionID string
	prevLen   int
}

// NewProcessor creates a processor writing to display and dispatching
// finals to dispatcher.
func NewProcessor(display io.Writer, dispatcher Dispatcher, opts ...Option) *Processor {
	p := &Processor{
		display:    display,
		dispatcher: dispatcher,
		metrics:    metrics.DefaultMetrics,
		lifecycle:  utterance.NewLifecycle(),
		logger:     logging.WithComponent("transcript"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetSession tags subsequent transcript events with sessionID.
func (p *Processor) SetSession(sessionID string) {
	p.mu.Lock()
	p.sessionID = sessionID
	p.mu.Unlock()
}

// State returns the lifecycle state.
func (p *Processor) State() utterance.State {
	return p.lifecycle.State()
}

// Process reads responses until the stream ends or the exit command is
// heard. A Dispatch error stops processing and is returned; so is any
// stream error other than io.EOF.
func (p *Processor) Process(ctx context.Context, stream stt.Stream) (Outcome, error) {
	if p.lifecycle.State().IsTerminal() {
		return OutcomeExit, nil
	}

	p.mu.Lock()
	p.prevLen = 0
	p.mu.Unlock()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return OutcomeStreamEnded, nil
		}
		if err != nil {
			return OutcomeStreamEnded, err
		}

		if len(resp.Results) == 0 {
			continue
		}
		// The first result is the one being refined; later results belong
		// to audio not yet stable.
		result := resp.Results[0]
		if len(result.Alternatives) == 0 {
			continue
		}
		alt := result.Alternatives[0]

		if !result.IsFinal {
			if err := p.lifecycle.AcceptInterim(); err != nil {
				return OutcomeExit, nil
			}
			p.interim(ctx, alt)
			continue
		}

		if err := p.lifecycle.AcceptFinal(); err != nil {
			return OutcomeExit, nil
		}
		p.final(ctx, alt)

		if IsExitCommand(alt.Transcript) {
			p.lifecycle.Terminate()
			p.logger.Info().Str("transcript", alt.Transcript).Msg("Exit command heard")
			if p.onExit != nil {
				p.onExit()
			}
			return OutcomeExit, nil
		}

		if err := p.dispatcher.Dispatch(ctx, alt.Transcript); err != nil {
			return OutcomeStreamEnded, fmt.Errorf("dispatch utterance: %w", err)
		}
	}
}

func (p *Processor) interim(ctx context.Context, alt stt.Alternative) {
	p.mu.Lock()
	pad := padding(p.prevLen, alt.Transcript)
	p.prevLen = utf8.RuneCountInString(alt.Transcript)
	p.mu.Unlock()

	fmt.Fprint(p.display, alt.Transcript+pad+"\r")
	p.metrics.RecordPartialTranscript()
	p.publish(ctx, alt, false)
}

func (p *Processor) final(ctx context.Context, alt stt.Alternative) {
	p.mu.Lock()
	pad := padding(p.prevLen, alt.Transcript)
	p.prevLen = 0
	p.mu.Unlock()

	fmt.Fprint(p.display, alt.Transcript+pad+"\n")
	p.metrics.RecordFinalTranscript()
	p.publish(ctx, alt, true)

	p.logger.Debug().
		Str("transcript", alt.Transcript).
		Float32("confidence", alt.Confidence).
		Msg("Final transcript")
}

// padding blanks out what is left of a longer previous line.
func padding(prevLen int, current string) string {
	n := prevLen - utf8.RuneCountInString(current)
	if n <= 0 {
		return ""
	}
	return strings.Repeat(" ", n)
}

func (p *Processor) publish(ctx context.Context, alt stt.Alternative, final bool) {
	if p.publisher == nil {
		return
	}
	eventType := models.EventTranscriptPartial
	if final {
		eventType = models.EventTranscriptFinal
	}
	p.mu.Lock()
	sessionID := p.sessionID
	p.mu.Unlock()

	ev := models.TranscriptEvent{
		EventType:    eventType,
		SessionID:    sessionID,
		LanguageCode: p.language,
		Text:         alt.Transcript,
		IsFinal:      final,
		Confidence:   float64(alt.Confidence),
		Timestamp:    time.Now().UnixMilli(),
	}
	if err := p.publisher.PublishTranscript(ctx, ev); err != nil {
		p.logger.Warn().Err(err).Str("eventType", eventType).Msg("Failed to publish transcript event")
	}
}
