// Package mock provides a scripted recognizer for running without cloud
// credentials. Every audio unit received advances the current utterance by
// one interim result; once its partials are used up the final is emitted
// and the script moves to the next utterance.
package mock

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-speech-translation-service/internal/observability/logging"
	"ai-speech-translation-service/internal/service/stt"
)

// SimulatedUtterance represents a mock utterance with progressive transcripts.
type SimulatedUtterance struct {
	Partials   []string // Progressive partial transcripts
	Final      string   // Final transcript text
	Confidence float32  // Confidence score for final
}

// DefaultUtterances provides sample utterances for simulation. The last one
// ends the translation loop.
var DefaultUtterances = []SimulatedUtterance{
	{
		Partials:   []string{"Good", "Good morning", "Good morning how"},
		Final:      "Good morning how are you",
		Confidence: 0.94,
	},
	{
		Partials:   []string{"Where", "Where is the", "Where is the train"},
		Final:      "Where is the train station",
		Confidence: 0.91,
	},
	{
		Partials:   []string{"Fish", "Fish &", "Fish & chips"},
		Final:      "Fish & chips please",
		Confidence: 0.89,
	},
	{
		Partials:   []string{"Thank you"},
		Final:      "Thank you very much",
		Confidence: 0.98,
	},
	{
		Partials:   []string{"Okay"},
		Final:      "Okay quit",
		Confidence: 0.97,
	},
}

// Recognizer implements stt.Recognizer with scripted responses. The script
// position carries over from one stream to the next.
type Recognizer struct {
	script []SimulatedUtterance
	delay  time.Duration
	logger zerolog.Logger

	mu        sync.Mutex
	utterance int // index into script, cycles
	partial   int // next partial of the current utterance
	streams   int
	closed    bool
}

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithScript replaces DefaultUtterances.
func WithScript(script []SimulatedUtterance) Option {
	return func(r *Recognizer) { r.script = script }
}

// WithDelay simulates backend processing time per response.
func WithDelay(d time.Duration) Option {
	return func(r *Recognizer) { r.delay = d }
}

// New creates a new mock recognizer.
func New(opts ...Option) *Recognizer {
	r := &Recognizer{
		script: DefaultUtterances,
		logger: logging.WithComponent("stt-mock"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Streams returns how many streams have been opened.
func (r *Recognizer) Streams() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.streams
}

// StreamingRecognize starts consuming audio from src on a goroutine.
func (r *Recognizer) StreamingRecognize(ctx context.Context, cfg stt.Config, src stt.AudioSource) (stt.Stream, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, errors.New("mock recognizer closed")
	}
	r.streams++
	r.mu.Unlock()

	r.logger.Debug().Str("languageCode", cfg.LanguageCode).Msg("Mock stream opened")

	ctx, cancel := context.WithCancel(ctx)
	s := &stream{
		responses: make(chan *stt.Response),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go r.run(ctx, s, src)
	return s, nil
}

func (r *Recognizer) run(ctx context.Context, s *stream, src stt.AudioSource) {
	defer close(s.done)
	defer close(s.responses)

	for {
		if _, ok := src.Next(ctx); !ok {
			break
		}
		if !r.emit(ctx, s, r.step()) {
			return
		}
	}

	// Audio ended mid-utterance: finalize what was heard so far.
	if resp := r.flush(); resp != nil {
		r.emit(ctx, s, resp)
	}
}

// step advances the script by one audio unit.
func (r *Recognizer) step() *stt.Response {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.script) == 0 {
		return &stt.Response{}
	}
	utt := r.script[r.utterance%len(r.script)]
	if r.partial < len(utt.Partials) {
		text := utt.Partials[r.partial]
		r.partial++
		return response(text, 0, false)
	}
	r.utterance++
	r.partial = 0
	return response(utt.Final, utt.Confidence, true)
}

func (r *Recognizer) flush() *stt.Response {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.script) == 0 || r.partial == 0 {
		return nil
	}
	utt := r.script[r.utterance%len(r.script)]
	r.utterance++
	r.partial = 0
	return response(utt.Final, utt.Confidence, true)
}

func (r *Recognizer) emit(ctx context.Context, s *stream, resp *stt.Response) bool {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return false
		}
	}
	select {
	case s.responses <- resp:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close stops new streams from opening.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

func response(text string, confidence float32, final bool) *stt.Response {
	stability := float32(0.5)
	if final {
		stability = 0
	}
	return &stt.Response{Results: []stt.Result{{
		IsFinal:   final,
		Stability: stability,
		Alternatives: []stt.Alternative{{
			Transcript: text,
			Confidence: confidence,
		}},
	}}}
}

type stream struct {
	responses chan *stt.Response
	cancel    context.CancelFunc
	done      chan struct{}
}

func (s *stream) Recv() (*stt.Response, error) {
	resp, ok := <-s.responses
	if !ok {
		return nil, io.EOF
	}
	return resp, nil
}

func (s *stream) Close() error {
	s.cancel()
	<-s.done
	return nil
}
