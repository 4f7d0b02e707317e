// Package stt defines the streaming Speech-to-Text client used by the
// recognition loop, independent of the provider behind it.
package stt

import (
	"context"
	"time"
)

// Config is sent once at the start of every streaming request.
type Config struct {
	LanguageCode          string // BCP-47, e.g. "en-US"
	SampleRateHz          int32
	AudioEncoding         string // LINEAR16, FLAC, MULAW, ...
	MaxAlternatives       int32
	EnableWordTimeOffsets bool
	InterimResults        bool
}

// DefaultConfig returns the configuration used for live microphone audio.
func DefaultConfig() Config {
	return Config{
		LanguageCode:          "en-US",
		SampleRateHz:          16000,
		AudioEncoding:         "LINEAR16",
		MaxAlternatives:       1,
		EnableWordTimeOffsets: true,
		InterimResults:        true,
	}
}

// Word is a recognized word with its offsets from the start of the stream.
type Word struct {
	Word  string
	Start time.Duration
	End   time.Duration
}

// Alternative is one recognition hypothesis.
type Alternative struct {
	Transcript string
	Confidence float32
	Words      []Word
}

// Result is one recognition result. Alternatives are ordered by likelihood.
type Result struct {
	Alternatives []Alternative
	IsFinal      bool
	Stability    float32
	ResultEnd    time.Duration
}

// Response is one message from the recognition stream.
type Response struct {
	Results []Result
}

// AudioSource yields audio units for one stream. It reports false when the
// stream should be half-closed.
type AudioSource interface {
	Next(ctx context.Context) ([]byte, bool)
}

// Stream is an open recognition stream. Recv returns io.EOF once the backend
// has delivered every response.
type Stream interface {
	Recv() (*Response, error)
	Close() error
}

// Recognizer opens streaming recognition requests.
type Recognizer interface {
	// StreamingRecognize sends cfg, then every unit from audio until it is
	// exhausted, and returns the response stream.
	StreamingRecognize(ctx context.Context, cfg Config, audio AudioSource) (Stream, error)

	// Close releases the underlying client.
	Close() error
}
