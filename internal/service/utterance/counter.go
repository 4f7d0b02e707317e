package utterance

import "sync/atomic"

// Counter holds the produced and played utterance counts.
//
// Produced is the index the next synthesized clip will take. Played only
// advances for the clip whose index equals the current played value, so
// played never exceeds produced and clips are acknowledged in order.
type Counter struct {
	produced atomic.Int64
	played   atomic.Int64
}

// NewCounter creates a counter at zero.
func NewCounter() *Counter {
	return &Counter{}
}

// Produced returns the number of clips produced so far.
func (c *Counter) Produced() int {
	return int(c.produced.Load())
}

// Played returns the number of clips that finished playing.
func (c *Counter) Played() int {
	return int(c.played.Load())
}

// Produce claims the next clip index.
func (c *Counter) Produce() int {
	return int(c.produced.Add(1) - 1)
}

// AdvancePlayed marks clip index as played. It reports false, leaving the
// counter unchanged, unless index is the next clip due and has been produced.
func (c *Counter) AdvancePlayed(index int) bool {
	if int64(index) >= c.produced.Load() {
		return false
	}
	return c.played.CompareAndSwap(int64(index), int64(index)+1)
}

// Pending returns how many produced clips have not finished playing.
func (c *Counter) Pending() int {
	return c.Produced() - c.Played()
}
