package app

import (
	"context"

	"github.com/spf13/afero"
	"google.golang.org/api/option"

	"ai-speech-translation-service/internal/config"
	"ai-speech-translation-service/internal/events"
	"ai-speech-translation-service/internal/observability/metrics"
	"ai-speech-translation-service/internal/service/capture"
	"ai-speech-translation-service/internal/service/playback"
	"ai-speech-translation-service/internal/service/stt"
	sttgoogle "ai-speech-translation-service/internal/service/stt/google"
	sttmock "ai-speech-translation-service/internal/service/stt/mock"
	translategoogle "ai-speech-translation-service/internal/service/translate/google"
	ttsgoogle "ai-speech-translation-service/internal/service/tts/google"
)

// NewComponents builds the production collaborators: the microphone (or a
// WAV file), Google clients, the default output device and the local disk.
func NewComponents(ctx context.Context, cfg *config.Configuration) (Components, error) {
	m := metrics.DefaultMetrics
	fs := afero.NewOsFs()
	buf := capture.NewBuffer()

	var source capture.Source
	if cfg.Audio.InputFile != "" {
		source = capture.NewWAVFile(fs, cfg.Audio.InputFile, buf, cfg.Audio.SampleRateHz, cfg.Audio.ChunkDuration, true, m)
	} else {
		source = capture.NewMicrophone(buf, cfg.Audio.SampleRateHz, cfg.Audio.FramesPerChunk(), m)
	}

	var opts []option.ClientOption
	if cfg.Google.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Google.CredentialsFile))
	}

	var recognizer stt.Recognizer
	switch cfg.STT.Provider {
	case "mock":
		recognizer = sttmock.New()
	default:
		r, err := sttgoogle.New(ctx, m, opts...)
		if err != nil {
			return Components{}, err
		}
		recognizer = r
	}

	translator, err := translategoogle.New(ctx, m, opts...)
	if err != nil {
		recognizer.Close()
		return Components{}, err
	}
	synthesizer, err := ttsgoogle.New(ctx, m, opts...)
	if err != nil {
		recognizer.Close()
		translator.Close()
		return Components{}, err
	}

	publisher := events.New(&events.Config{
		Enabled:      cfg.Kafka.Enabled,
		Brokers:      cfg.Kafka.Brokers,
		TopicPartial: cfg.Kafka.TopicPartial,
		TopicFinal:   cfg.Kafka.TopicFinal,
		Principal:    cfg.Kafka.Principal,
	})

	return Components{
		Buffer:      buf,
		Source:      source,
		Recognizer:  recognizer,
		Translator:  translator,
		Synthesizer: synthesizer,
		Speaker:     playback.NewBeepSpeaker(int(playback.DefaultSampleRate)),
		Fs:          fs,
		Publisher:   publisher,
		Metrics:     m,
	}, nil
}
