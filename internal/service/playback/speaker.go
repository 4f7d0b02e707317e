// Package playback plays synthesized clips one at a time, in the order
// they were produced.
package playback

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// Speaker plays one MP3 clip and returns its duration once playback has
// finished. It takes ownership of r.
type Speaker interface {
	Play(ctx context.Context, r io.ReadCloser) (time.Duration, error)
}

// DefaultSampleRate matches the MP3 output of the synthesis backend.
const DefaultSampleRate = beep.SampleRate(24000)

// BeepSpeaker plays MP3 clips on the default output device.
type BeepSpeaker struct {
	sampleRate beep.SampleRate

	once    sync.Once
	initErr error
}

// NewBeepSpeaker creates a speaker. The device is opened on first use at
// sampleRate; clips at other rates are resampled.
func NewBeepSpeaker(sampleRate int) *BeepSpeaker {
	sr := beep.SampleRate(sampleRate)
	if sr <= 0 {
		sr = DefaultSampleRate
	}
	return &BeepSpeaker{sampleRate: sr}
}

// Play decodes r and blocks until the clip has played out or ctx is done.
func (s *BeepSpeaker) Play(ctx context.Context, r io.ReadCloser) (time.Duration, error) {
	streamer, format, err := mp3.Decode(r)
	if err != nil {
		r.Close()
		return 0, fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()

	length := format.SampleRate.D(streamer.Len())

	s.once.Do(func() {
		s.initErr = speaker.Init(s.sampleRate, s.sampleRate.N(time.Second/10))
	})
	if s.initErr != nil {
		return length, fmt.Errorf("open output device: %w", s.initErr)
	}

	var src beep.Streamer = streamer
	if format.SampleRate != s.sampleRate {
		src = beep.Resample(4, format.SampleRate, s.sampleRate, streamer)
	}

	start := time.Now()
	done := make(chan struct{})
	speaker.Play(beep.Seq(src, beep.Callback(func() { close(done) })))

	select {
	case <-done:
	case <-ctx.Done():
		speaker.Clear()
		return length, ctx.Err()
	}

	// The device buffer may still hold the tail of the clip.
	if rest := length - time.Since(start); rest > 0 {
		select {
		case <-time.After(rest):
		case <-ctx.Done():
			return length, ctx.Err()
		}
	}
	return length, nil
}
