// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Configuration is the full runtime configuration. Languages come from the
// command line; everything else comes from environment variables.
type Configuration struct {
	Service       ServiceConfig
	Languages     Languages
	Audio         AudioConfig
	STT           STTConfig
	Synthesis     SynthesisConfig
	Retry         RetryConfig
	Kafka         KafkaConfig
	Google        GoogleConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Principal string
}

// Languages holds the three language codes supplied on the command line.
type Languages struct {
	From      string // recognition language, e.g. en-US
	Translate string // translation target, e.g. fr
	To        string // synthesis voice language, e.g. fr-FR
}

type AudioConfig struct {
	SampleRateHz  int
	ChunkDuration time.Duration
	SessionLimit  time.Duration
	InputFile     string // replay a WAV file instead of the microphone
}

type STTConfig struct {
	Provider        string // google, mock
	AudioEncoding   string
	InterimResults  bool
	WordTimeOffsets bool
	MaxAlternatives int
	MaxRestarts     int // consecutive failed restarts before giving up
}

type SynthesisConfig struct {
	Gender              string
	OutputDir           string
	SynchronousPlayback bool
	QueueSize           int
}

type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	TopicPartial string
	TopicFinal   string
	Principal    string
}

type GoogleConfig struct {
	CredentialsFile string
}

type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// Load reads the configuration from the environment, falling back to
// defaults for unset or unparsable values.
func Load() *Configuration {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-speech-translation")

	return &Configuration{
		Service: ServiceConfig{
			Principal: principal,
		},
		Audio: AudioConfig{
			SampleRateHz:  envOrDefaultInt("AUDIO_SAMPLE_RATE_HZ", 16000),
			ChunkDuration: envOrDefaultDuration("AUDIO_CHUNK_DURATION", 100*time.Millisecond),
			SessionLimit:  envOrDefaultDuration("STT_SESSION_LIMIT", 55*time.Second),
			InputFile:     os.Getenv("AUDIO_INPUT_FILE"),
		},
		STT: STTConfig{
			Provider:        envOrDefault("STT_PROVIDER", "google"),
			AudioEncoding:   envOrDefault("STT_AUDIO_ENCODING", "LINEAR16"),
			InterimResults:  envOrDefaultBool("STT_INTERIM_RESULTS", true),
			WordTimeOffsets: envOrDefaultBool("STT_WORD_TIME_OFFSETS", true),
			MaxAlternatives: envOrDefaultInt("STT_MAX_ALTERNATIVES", 1),
			MaxRestarts:     envOrDefaultInt("STT_MAX_RESTARTS", 5),
		},
		Synthesis: SynthesisConfig{
			Gender:              envOrDefault("SYNTH_GENDER", "FEMALE"),
			OutputDir:           envOrDefault("SYNTH_OUTPUT_DIR", "."),
			SynchronousPlayback: envOrDefaultBool("SYNTH_SYNCHRONOUS_PLAYBACK", true),
			QueueSize:           envOrDefaultInt("PLAYBACK_QUEUE_SIZE", 32),
		},
		Retry: RetryConfig{
			MaxAttempts:    envOrDefaultInt("RETRY_MAX_ATTEMPTS", 3),
			InitialBackoff: envOrDefaultDuration("RETRY_INITIAL_BACKOFF", 250*time.Millisecond),
			MaxBackoff:     envOrDefaultDuration("RETRY_MAX_BACKOFF", 5*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled:      envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:      envOrDefaultList("KAFKA_BROKERS", nil),
			TopicPartial: envOrDefault("KAFKA_TOPIC_PARTIAL", "translation.transcript.partial"),
			TopicFinal:   envOrDefault("KAFKA_TOPIC_FINAL", "translation.utterance.final"),
			Principal:    envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Google: GoogleConfig{
			CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsAddr: os.Getenv("METRICS_ADDR"),
		},
	}
}

var ErrMissingLanguage = errors.New("missing language code")

// Validate checks that every language code is present and well formed.
func (l Languages) Validate() error {
	for _, f := range []struct{ name, value string }{
		{"languageFrom", l.From},
		{"translateLanguage", l.Translate},
		{"languageTo", l.To},
	} {
		if f.value == "" {
			return fmt.Errorf("%w: %s", ErrMissingLanguage, f.name)
		}
		if _, err := language.Parse(f.value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", f.name, f.value, err)
		}
	}
	return nil
}

// Validate checks the parts of the configuration the pipeline cannot run without.
func (c *Configuration) Validate() error {
	if err := c.Languages.Validate(); err != nil {
		return err
	}
	if c.Audio.SampleRateHz <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.Audio.SampleRateHz)
	}
	if c.Audio.ChunkDuration <= 0 {
		return fmt.Errorf("chunk duration must be positive, got %v", c.Audio.ChunkDuration)
	}
	if c.Audio.SessionLimit <= 0 {
		return fmt.Errorf("session limit must be positive, got %v", c.Audio.SessionLimit)
	}
	switch c.STT.Provider {
	case "google", "mock":
	default:
		return fmt.Errorf("unknown STT provider %q", c.STT.Provider)
	}
	return nil
}

// FramesPerChunk is the number of samples in one capture chunk.
func (a AudioConfig) FramesPerChunk() int {
	return int(int64(a.SampleRateHz) * int64(a.ChunkDuration) / int64(time.Second))
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
