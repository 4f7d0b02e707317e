package capture

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-audio/wav"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"ai-speech-translation-service/internal/observability/logging"
	"ai-speech-translation-service/internal/observability/metrics"
)

var ErrUnsupportedWAV = errors.New("unsupported WAV file")

// WAVHeader is the subset of the format chunk we check.
type WAVHeader struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	BitsPerSample uint16
}

// ReadWAVHeader decodes the RIFF format chunk of r and checks for 16-bit mono
// PCM. Chunks ahead of the data chunk (LIST/INFO and the like) are skipped;
// the returned reader yields the PCM payload only.
func ReadWAVHeader(r io.ReadSeeker) (WAVHeader, io.Reader, error) {
	d := wav.NewDecoder(r)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return WAVHeader{}, nil, fmt.Errorf("%w: %v", ErrUnsupportedWAV, err)
	}
	h := WAVHeader{
		AudioFormat:   d.WavAudioFormat,
		NumChannels:   d.NumChans,
		SampleRate:    d.SampleRate,
		BitsPerSample: d.BitDepth,
	}
	if h.AudioFormat != 1 { // PCM
		return h, nil, fmt.Errorf("%w: format %d is not PCM", ErrUnsupportedWAV, h.AudioFormat)
	}
	if h.NumChannels != 1 || h.BitsPerSample != 16 {
		return h, nil, fmt.Errorf("%w: need 16-bit mono, got %d-bit %d channels", ErrUnsupportedWAV, h.BitsPerSample, h.NumChannels)
	}
	if err := d.FwdToPCM(); err != nil {
		return h, nil, fmt.Errorf("%w: no data chunk: %v", ErrUnsupportedWAV, err)
	}
	return h, io.LimitReader(d.PCMChunk.R, int64(d.PCMSize)), nil
}

// WAVFile replays a 16-bit mono WAV file into a Buffer in chunk-sized
// pieces, standing in for the microphone.
type WAVFile struct {
	fs         afero.Fs
	path       string
	buf        *Buffer
	sampleRate int
	chunk      time.Duration
	realtime   bool
	metrics    *metrics.Metrics
	logger     zerolog.Logger

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewWAVFile creates a replay source. With realtime set, chunks are paced at
// the rate they would arrive from a device.
func NewWAVFile(fs afero.Fs, path string, buf *Buffer, sampleRate int, chunk time.Duration, realtime bool, m *metrics.Metrics) *WAVFile {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &WAVFile{
		fs:         fs,
		path:       path,
		buf:        buf,
		sampleRate: sampleRate,
		chunk:      chunk,
		realtime:   realtime,
		metrics:    m,
		logger:     logging.WithComponent("wavfile"),
		stop:       make(chan struct{}),
	}
}

// Start opens and validates the file, then streams it on a goroutine.
func (w *WAVFile) Start() error {
	f, err := w.fs.Open(w.path)
	if err != nil {
		return fmt.Errorf("open audio file: %w", err)
	}

	h, pcm, err := ReadWAVHeader(f)
	if err != nil {
		f.Close()
		return err
	}
	if int(h.SampleRate) != w.sampleRate {
		f.Close()
		return fmt.Errorf("%w: sample rate %d Hz, expected %d Hz", ErrUnsupportedWAV, h.SampleRate, w.sampleRate)
	}

	w.logger.Info().
		Str("path", w.path).
		Uint32("sampleRateHz", h.SampleRate).
		Bool("realtime", w.realtime).
		Msg("Replaying WAV file")

	w.wg.Add(1)
	go w.run(f, pcm)
	return nil
}

func (w *WAVFile) run(f afero.File, pcm io.Reader) {
	defer w.wg.Done()
	defer f.Close()

	chunkBytes := 2 * int(int64(w.sampleRate)*int64(w.chunk)/int64(time.Second))
	var ticker *time.Ticker
	if w.realtime {
		ticker = time.NewTicker(w.chunk)
		defer ticker.Stop()
	}

	for {
		if ticker != nil {
			select {
			case <-ticker.C:
			case <-w.stop:
				w.buf.Close()
				return
			}
		} else {
			select {
			case <-w.stop:
				w.buf.Close()
				return
			default:
			}
		}

		data := make([]byte, chunkBytes)
		n, err := io.ReadFull(pcm, data)
		if n > 0 && w.buf.Put(data[:n]) {
			w.metrics.RecordChunkCaptured(n)
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			w.logger.Info().Str("path", w.path).Msg("End of WAV file")
			w.buf.Close()
			return
		default:
			w.buf.CloseWithError(fmt.Errorf("read audio: %w", err))
			return
		}
	}
}

// Close stops replay and enqueues the sentinel.
func (w *WAVFile) Close() error {
	w.closeOnce.Do(func() {
		close(w.stop)
	})
	w.wg.Wait()
	w.buf.Close()
	return nil
}
