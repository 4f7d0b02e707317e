// Package capture owns the audio input side: the chunk buffer shared with the
// recognition loop and the sources that fill it (microphone, WAV replay).
package capture

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrClosed is returned once the terminal sentinel has been reached.
	ErrClosed = errors.New("capture buffer closed")
	// ErrEmpty is returned by TryGet when no chunk is immediately available.
	ErrEmpty = errors.New("capture buffer empty")
)

// Buffer is an unbounded FIFO of PCM chunks with a terminal sentinel.
//
// It has a single producer (the device callback) and a single consumer (the
// session loop). Put never blocks. Chunks are delivered in capture order;
// once Close has been called no further chunks are accepted, and the
// consumer sees ErrClosed after draining what was enqueued before it.
type Buffer struct {
	mu     sync.Mutex
	items  [][]byte
	closed bool
	err    error
	notify chan struct{}
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{notify: make(chan struct{}, 1)}
}

// Put enqueues a chunk. It reports false if the sentinel was already enqueued
// and the chunk was discarded.
func (b *Buffer) Put(chunk []byte) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	b.items = append(b.items, chunk)
	b.mu.Unlock()

	b.signal()
	return true
}

// Close enqueues the terminal sentinel. Idempotent.
func (b *Buffer) Close() {
	b.CloseWithError(nil)
}

// CloseWithError enqueues the terminal sentinel and records why the source
// stopped. Only the first call has any effect.
func (b *Buffer) CloseWithError(err error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.err = err
	b.mu.Unlock()

	b.signal()
}

// Err returns the error the buffer was closed with, if any.
func (b *Buffer) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Closed reports whether the sentinel has been enqueued.
func (b *Buffer) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Len returns the number of chunks waiting.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// TryGet removes the oldest chunk without blocking. It returns ErrEmpty when
// nothing is waiting and ErrClosed once the sentinel is at the head.
func (b *Buffer) TryGet() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) > 0 {
		chunk := b.items[0]
		b.items[0] = nil
		b.items = b.items[1:]
		return chunk, nil
	}
	if b.closed {
		return nil, ErrClosed
	}
	return nil, ErrEmpty
}

// Get blocks until a chunk is available, the sentinel is reached, or ctx is done.
func (b *Buffer) Get(ctx context.Context) ([]byte, error) {
	for {
		chunk, err := b.TryGet()
		if !errors.Is(err, ErrEmpty) {
			return chunk, err
		}
		select {
		case <-b.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (b *Buffer) signal() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}
