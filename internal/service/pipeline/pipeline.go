// Package pipeline turns one finalized utterance into a played clip:
// translate, synthesize, store, then queue for playback.
package pipeline

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/rs/zerolog"

	"ai-speech-translation-service/internal/models"
	"ai-speech-translation-service/internal/observability/logging"
	"ai-speech-translation-service/internal/observability/metrics"
	"ai-speech-translation-service/internal/service/retry"
	"ai-speech-translation-service/internal/service/translate"
	"ai-speech-translation-service/internal/service/tts"
	"ai-speech-translation-service/internal/service/utterance"
)

// ClipStore persists synthesized audio; implemented by clips.Store.
type ClipStore interface {
	Save(index int, audio []byte) (string, error)
}

// Queue plays stored clips in order; implemented by playback.Player.
type Queue interface {
	Enqueue(ctx context.Context, index int, path string) (<-chan error, error)
	Pending() int
}

// UtterancePublisher fans utterance events out; implemented by events.Publisher.
type UtterancePublisher interface {
	PublishUtterance(ctx context.Context, key string, ev models.UtteranceEvent) error
}

// Config holds per-run pipeline settings.
type Config struct {
	TranslateLanguage   string
	VoiceLanguage       string
	Gender              tts.Gender
	SynchronousPlayback bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRetry overrides the backend retry policy.
func WithRetry(p retry.Policy) Option {
	return func(pl *Pipeline) { pl.retry = p }
}

// WithPublisher emits an utterance event for every produced clip.
func WithPublisher(p UtterancePublisher) Option {
	return func(pl *Pipeline) { pl.publisher = p }
}

// WithMetrics overrides the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(pl *Pipeline) { pl.metrics = m }
}

// Pipeline implements transcript.Dispatcher.
type Pipeline struct {
	translator  translate.Translator
	synthesizer tts.Synthesizer
	store       ClipStore
	queue       Queue
	counter     *utterance.Counter
	cfg         Config
	retry       retry.Policy
	publisher   UtterancePublisher
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// New creates a pipeline. counter must be the one the queue advances.
func New(translator translate.Translator, synthesizer tts.Synthesizer, store ClipStore, queue Queue, counter *utterance.Counter, cfg Config, opts ...Option) *Pipeline {
	if cfg.Gender == "" {
		cfg.Gender = tts.GenderFemale
	}
	p := &Pipeline{
		translator:  translator,
		synthesizer: synthesizer,
		store:       store,
		queue:       queue,
		counter:     counter,
		cfg:         cfg,
		retry:       retry.DefaultPolicy(),
		metrics:     metrics.DefaultMetrics,
		logger:      logging.WithComponent("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.retry.Metrics == nil {
		p.retry.Metrics = p.metrics
	}
	return p
}

// Dispatch translates and speaks text. With synchronous playback it returns
// after the clip has finished playing.
func (p *Pipeline) Dispatch(ctx context.Context, text string) error {
	translated, err := p.translate(ctx, text)
	if err != nil {
		return err
	}

	var audio []byte
	err = p.retry.Do(ctx, "texttospeech", func(ctx context.Context) error {
		var err error
		audio, err = p.synthesizer.Synthesize(ctx, translated, p.cfg.VoiceLanguage, p.cfg.Gender)
		return err
	})
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	index := p.counter.Produced()
	path, err := p.store.Save(index, audio)
	if err != nil {
		return err
	}
	p.counter.Produce()

	logger := logging.WithUtterance("pipeline", index)
	logger.Info().
		Str("source", text).
		Str("translated", translated).
		Str("path", path).
		Msg("Utterance produced")

	done, err := p.queue.Enqueue(ctx, index, path)
	if err != nil {
		return fmt.Errorf("queue clip %d: %w", index, err)
	}
	p.metrics.RecordUtteranceProduced(p.queue.Pending())
	p.publish(ctx, index, text, translated, path)

	if !p.cfg.SynchronousPlayback {
		return nil
	}
	select {
	case err := <-done:
		// A clip that fails to play does not stop the loop.
		if err != nil {
			logger.Warn().Err(err).Msg("Clip did not play")
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// translate returns text in the target language with HTML character
// references decoded.
func (p *Pipeline) translate(ctx context.Context, text string) (string, error) {
	var out string
	err := p.retry.Do(ctx, "translate", func(ctx context.Context) error {
		var err error
		out, err = p.translator.Translate(ctx, text, p.cfg.TranslateLanguage)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	return html.UnescapeString(out), nil
}

func (p *Pipeline) publish(ctx context.Context, index int, source, translated, path string) {
	if p.publisher == nil {
		return
	}
	ev := models.UtteranceEvent{
		EventType:      models.EventUtteranceProduced,
		UtteranceIndex: index,
		SourceText:     source,
		TranslatedText: translated,
		TargetLanguage: p.cfg.TranslateLanguage,
		VoiceLanguage:  p.cfg.VoiceLanguage,
		ClipPath:       path,
		Timestamp:      time.Now().UnixMilli(),
	}
	if err := p.publisher.PublishUtterance(ctx, fmt.Sprintf("utterance-%d", index), ev); err != nil {
		p.logger.Warn().Err(err).Int("utterance", index).Msg("Failed to publish utterance event")
	}
}
