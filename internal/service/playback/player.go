package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"ai-speech-translation-service/internal/observability/logging"
	"ai-speech-translation-service/internal/observability/metrics"
	"ai-speech-translation-service/internal/service/utterance"
)

// ErrPlayerClosed is returned by Enqueue after Close.
var ErrPlayerClosed = errors.New("player closed")

// Opener opens a stored clip by index.
type Opener interface {
	Open(index int) (io.ReadCloser, error)
}

// Clip is a stored clip waiting to be played.
type Clip struct {
	Index int
	Path  string

	done chan error
}

// Player owns the playback queue and its single worker. Clips play in
// enqueue order and never overlap. After each clip the played counter is
// advanced for that clip's index.
type Player struct {
	speaker Speaker
	opener  Opener
	counter *utterance.Counter
	metrics *metrics.Metrics
	logger  zerolog.Logger

	queue  chan *Clip
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPlayer starts the playback worker. queueSize bounds how many clips may
// wait; Enqueue blocks beyond that.
func NewPlayer(sp Speaker, opener Opener, counter *utterance.Counter, queueSize int, m *metrics.Metrics) *Player {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Player{
		speaker: sp,
		opener:  opener,
		counter: counter,
		metrics: m,
		logger:  logging.WithComponent("player"),
		queue:   make(chan *Clip, queueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Enqueue queues clip for playback. The returned channel receives the
// playback result once the clip has finished.
func (p *Player) Enqueue(ctx context.Context, index int, path string) (<-chan error, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrPlayerClosed
	}

	clip := &Clip{Index: index, Path: path, done: make(chan error, 1)}
	select {
	case p.queue <- clip:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return clip.done, nil
}

// Pending returns the number of clips waiting behind the one playing.
func (p *Player) Pending() int {
	return len(p.queue)
}

func (p *Player) run() {
	defer p.wg.Done()
	for clip := range p.queue {
		err := p.play(clip)
		if !p.counter.AdvancePlayed(clip.Index) {
			p.logger.Warn().
				Int("utterance", clip.Index).
				Int("played", p.counter.Played()).
				Msg("Clip finished out of order, played counter not advanced")
		}
		clip.done <- err
	}
}

func (p *Player) play(clip *Clip) error {
	logger := logging.WithUtterance("player", clip.Index)

	rc, err := p.opener.Open(clip.Index)
	if err != nil {
		logger.Error().Err(err).Str("path", clip.Path).Msg("Failed to open clip")
		return err
	}

	length, err := p.speaker.Play(p.ctx, rc)
	p.metrics.RecordUtterancePlayed(length.Seconds(), len(p.queue))
	if err != nil {
		logger.Error().Err(err).Str("path", clip.Path).Msg("Playback failed")
		return fmt.Errorf("play clip %d: %w", clip.Index, err)
	}

	logger.Info().
		Str("path", clip.Path).
		Dur("duration", length).
		Msg("Clip played")
	return nil
}

// Close stops accepting clips and waits for the queued ones to play. If ctx
// ends first, the clip in progress is interrupted and the rest are failed.
func (p *Player) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-drained
		return ctx.Err()
	}
}
