package capture

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"

	"ai-speech-translation-service/internal/observability/logging"
	"ai-speech-translation-service/internal/observability/metrics"
)

// Source fills a Buffer from some audio input. Close must enqueue the
// buffer's terminal sentinel.
type Source interface {
	Start() error
	Close() error
}

// Microphone captures 16-bit mono PCM from the default input device.
type Microphone struct {
	buf            *Buffer
	sampleRate     int
	framesPerChunk int
	metrics        *metrics.Metrics
	logger         zerolog.Logger

	mu     sync.Mutex
	stream *portaudio.Stream
	closed bool
}

// NewMicrophone creates a microphone source delivering framesPerChunk
// samples per callback into buf.
func NewMicrophone(buf *Buffer, sampleRate, framesPerChunk int, m *metrics.Metrics) *Microphone {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Microphone{
		buf:            buf,
		sampleRate:     sampleRate,
		framesPerChunk: framesPerChunk,
		metrics:        m,
		logger:         logging.WithComponent("microphone"),
	}
}

// Start opens the default input device and begins asynchronous delivery.
// Any failure here is fatal to the caller.
func (m *Microphone) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), m.framesPerChunk, m.fill)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("start input stream: %w", err)
	}
	m.stream = stream

	m.logger.Info().
		Int("sampleRateHz", m.sampleRate).
		Int("framesPerChunk", m.framesPerChunk).
		Msg("Microphone capture started")
	return nil
}

// fill runs on the portaudio callback thread: copy and enqueue, nothing else.
func (m *Microphone) fill(in []int16) {
	chunk := PCM16Bytes(in)
	if m.buf.Put(chunk) {
		m.metrics.RecordChunkCaptured(len(chunk))
	}
}

// Close stops delivery, releases the device and enqueues the sentinel.
func (m *Microphone) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	var firstErr error
	if m.stream != nil {
		if err := m.stream.Stop(); err != nil {
			firstErr = fmt.Errorf("stop input stream: %w", err)
		}
		if err := m.stream.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close input stream: %w", err)
		}
		if err := portaudio.Terminate(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("terminate portaudio: %w", err)
		}
	}
	m.buf.CloseWithError(firstErr)

	m.logger.Info().Msg("Microphone capture stopped")
	return firstErr
}

// PCM16Bytes encodes samples as little-endian 16-bit PCM.
func PCM16Bytes(samples []int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}
