package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ai-speech-translation-service/internal/config"
	"ai-speech-translation-service/internal/events"
	apphttp "ai-speech-translation-service/internal/http"
	"ai-speech-translation-service/internal/models"
	"ai-speech-translation-service/internal/observability"
	"ai-speech-translation-service/internal/observability/logging"
	"ai-speech-translation-service/internal/observability/metrics"
	"ai-speech-translation-service/internal/service/capture"
	"ai-speech-translation-service/internal/service/clips"
	"ai-speech-translation-service/internal/service/pipeline"
	"ai-speech-translation-service/internal/service/playback"
	"ai-speech-translation-service/internal/service/retry"
	"ai-speech-translation-service/internal/service/session"
	"ai-speech-translation-service/internal/service/stt"
	"ai-speech-translation-service/internal/service/transcript"
	"ai-speech-translation-service/internal/service/translate"
	"ai-speech-translation-service/internal/service/tts"
	"ai-speech-translation-service/internal/service/utterance"
)

// Components are the collaborators the translation loop runs on.
type Components struct {
	Buffer      *capture.Buffer
	Source      capture.Source
	Recognizer  stt.Recognizer
	Translator  translate.Translator
	Synthesizer tts.Synthesizer
	Speaker     playback.Speaker
	Fs          afero.Fs
	Publisher   *events.Publisher // optional
	Display     io.Writer         // defaults to stdout
	Metrics     *metrics.Metrics  // defaults to metrics.DefaultMetrics
	Gatherer    prometheus.Gatherer
}

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration

	comps     Components
	counter   *utterance.Counter
	player    *playback.Player
	pipeline  *pipeline.Pipeline
	processor *transcript.Processor
	server    *observability.Server
	sttConfig stt.Config

	mu        sync.RWMutex
	sessionID string
	sessions  int
	ready     bool
}

// New wires the translation loop from cfg and comps.
func New(cfg *config.Configuration, comps Components) (*Application, error) {
	if comps.Metrics == nil {
		comps.Metrics = metrics.DefaultMetrics
	}
	if comps.Gatherer == nil {
		comps.Gatherer = prometheus.DefaultGatherer
	}
	if comps.Display == nil {
		comps.Display = os.Stdout
	}

	gender, err := tts.ParseGender(cfg.Synthesis.Gender)
	if err != nil {
		return nil, err
	}
	store, err := clips.NewStore(comps.Fs, cfg.Synthesis.OutputDir)
	if err != nil {
		return nil, err
	}

	a := &Application{
		Cfg:     cfg,
		comps:   comps,
		counter: utterance.NewCounter(),
		Logger:  logging.WithComponent("application"),
		sttConfig: stt.Config{
			LanguageCode:          cfg.Languages.From,
			SampleRateHz:          int32(cfg.Audio.SampleRateHz),
			AudioEncoding:         cfg.STT.AudioEncoding,
			MaxAlternatives:       int32(cfg.STT.MaxAlternatives),
			EnableWordTimeOffsets: cfg.STT.WordTimeOffsets,
			InterimResults:        cfg.STT.InterimResults,
		},
	}

	a.player = playback.NewPlayer(comps.Speaker, store, a.counter, cfg.Synthesis.QueueSize, comps.Metrics)

	pipelineOpts := []pipeline.Option{
		pipeline.WithMetrics(comps.Metrics),
		pipeline.WithRetry(retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Initial:     cfg.Retry.InitialBackoff,
			Max:         cfg.Retry.MaxBackoff,
			Multiplier:  2,
			Metrics:     comps.Metrics,
		}),
	}
	processorOpts := []transcript.Option{
		transcript.WithMetrics(comps.Metrics),
		transcript.WithLanguage(cfg.Languages.From),
		transcript.WithExitHook(func() {
			if err := comps.Source.Close(); err != nil {
				a.Logger.Warn().Err(err).Msg("Failed to stop capture")
			}
		}),
	}
	if comps.Publisher != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithPublisher(comps.Publisher))
		processorOpts = append(processorOpts, transcript.WithPublisher(comps.Publisher))
	}

	a.pipeline = pipeline.New(comps.Translator, comps.Synthesizer, store, a.player, a.counter, pipeline.Config{
		TranslateLanguage:   cfg.Languages.Translate,
		VoiceLanguage:       cfg.Languages.To,
		Gender:              gender,
		SynchronousPlayback: cfg.Synthesis.SynchronousPlayback,
	}, pipelineOpts...)
	a.processor = transcript.NewProcessor(comps.Display, a.pipeline, processorOpts...)

	a.Logger.Info().
		Str("languageFrom", cfg.Languages.From).
		Str("translateLanguage", cfg.Languages.Translate).
		Str("languageTo", cfg.Languages.To).
		Msg("Speech translation application created")
	return a, nil
}

// Start performs any startup work required before the loop runs.
func (a *Application) Start() error {
	a.StartupTime = time.Now().UTC()

	if addr := a.Cfg.Observability.MetricsAddr; addr != "" {
		a.server = observability.NewServer(addr, apphttp.NewRouter(a, a.comps.Gatherer))
		a.server.Start()
	}

	a.Logger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Speech translation service starting")
	return nil
}

// Run captures audio and loops over recognition sessions until the exit
// command is heard, capture ends, or ctx is cancelled. Those all return nil.
// Device failures and unrecoverable backend errors are returned.
func (a *Application) Run(ctx context.Context) error {
	if err := a.comps.Source.Start(); err != nil {
		return fmt.Errorf("start audio capture: %w", err)
	}
	a.setReady(true)
	defer a.setReady(false)

	fmt.Fprintln(a.comps.Display, "Say 'Quit' or 'Exit' to terminate the program.")

	failures := 0
	for {
		sess := session.Open(a.comps.Buffer, a.Cfg.Audio.SessionLimit, session.WithMetrics(a.comps.Metrics))
		a.beginSession(sess.ID())

		outcome, err := a.runSession(ctx, sess)
		if outcome == transcript.OutcomeExit {
			a.Logger.Info().Msg("Exit command received")
			return nil
		}
		if ctx.Err() != nil {
			a.Logger.Info().Msg("Stopping on cancellation")
			return nil
		}

		if err != nil {
			switch {
			case isMaxDuration(err):
				a.Logger.Info().Str("sessionId", sess.ID()).Msg("Stream reached maximum duration, restarting")
				failures = 0
				continue
			case retry.Retryable(err) && failures < a.Cfg.STT.MaxRestarts:
				failures++
				a.Logger.Warn().Err(err).Int("failures", failures).Msg("Recognition failed, restarting session")
				continue
			default:
				return err
			}
		}
		failures = 0

		switch sess.EndReason() {
		case session.EndClosed:
			if err := a.comps.Buffer.Err(); err != nil {
				return fmt.Errorf("audio capture: %w", err)
			}
			a.Logger.Info().Msg("Audio capture ended")
			return nil
		default:
			// Expired, or the backend ended the stream first and closing it
			// cancelled the session's pending read. ctx is still live here.
			a.Logger.Debug().
				Str("sessionId", sess.ID()).
				Str("reason", sess.EndReason().String()).
				Dur("elapsed", sess.Elapsed()).
				Msg("Restarting recognition session")
		}
	}
}

func (a *Application) runSession(ctx context.Context, sess *session.Session) (transcript.Outcome, error) {
	stream, err := a.comps.Recognizer.StreamingRecognize(ctx, a.sttConfig, sess)
	if err != nil {
		return transcript.OutcomeStreamEnded, fmt.Errorf("start recognition: %w", err)
	}
	defer stream.Close()

	a.processor.SetSession(sess.ID())
	return a.processor.Process(ctx, stream)
}

// isMaxDuration reports the backend's stream duration limit error.
func isMaxDuration(err error) bool {
	return status.Code(err) == codes.OutOfRange
}

func (a *Application) beginSession(id string) {
	a.mu.Lock()
	a.sessionID = id
	a.sessions++
	a.mu.Unlock()
}

func (a *Application) setReady(ready bool) {
	a.mu.Lock()
	a.ready = ready
	a.mu.Unlock()
}

// Ready reports whether audio is being captured.
func (a *Application) Ready() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ready
}

// Status returns a snapshot of the loop.
func (a *Application) Status() models.Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return models.Status{
		StartupTime:       a.StartupTime.Unix(),
		SessionID:         a.sessionID,
		SessionsStarted:   a.sessions,
		State:             a.processor.State().String(),
		UtterancesQueued:  a.counter.Produced(),
		UtterancesPlayed:  a.counter.Played(),
		CaptureQueueDepth: a.comps.Buffer.Len(),
	}
}

// Shutdown releases capture, waits for queued clips, and closes clients.
func (a *Application) Shutdown(ctx context.Context) {
	a.Logger.Info().Msg("Speech translation service shutting down")

	if err := a.comps.Source.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to stop capture")
	}
	if err := a.player.Close(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Playback queue not drained")
	}

	closers := []struct {
		name string
		c    io.Closer
	}{
		{"recognizer", a.comps.Recognizer},
		{"translator", a.comps.Translator},
		{"synthesizer", a.comps.Synthesizer},
	}
	if a.comps.Publisher != nil {
		closers = append(closers, struct {
			name string
			c    io.Closer
		}{"publisher", a.comps.Publisher})
	}
	for _, c := range closers {
		if err := c.c.Close(); err != nil {
			a.Logger.Warn().Err(err).Str("client", c.name).Msg("Failed to close client")
		}
	}

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop observability server")
		}
	}

	a.Logger.Info().
		Int("produced", a.counter.Produced()).
		Int("played", a.counter.Played()).
		Msg("Shutdown complete")
}
