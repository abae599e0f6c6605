package oracle

import (
	"errors"
	"sync"

	"github.com/maxmedina05/flight-surety-udacity-project/model"
)

// ErrFeedFull is returned when the consumer is too slow to take a request.
var ErrFeedFull = errors.New("oracle feed is full")

// ErrFeedClosed is returned for requests published after Close.
var ErrFeedClosed = errors.New("oracle feed is closed")

// Feed is an in-process surety.Notifier backed by a buffered channel. Publish
// never blocks, so it can be called while the engine holds a request lock.
type Feed struct {
	mu     sync.RWMutex
	ch     chan model.FlightStatusRequested
	closed bool
}

// NewFeed returns a feed buffering up to size requests.
func NewFeed(size int) *Feed {
	return &Feed{ch: make(chan model.FlightStatusRequested, size)}
}

func (f *Feed) FlightStatusRequested(ev model.FlightStatusRequested) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return ErrFeedClosed
	}
	select {
	case f.ch <- ev:
		return nil
	default:
		return ErrFeedFull
	}
}

// Events is the channel consumed by Service.Run. It is closed by Close.
func (f *Feed) Events() <-chan model.FlightStatusRequested {
	return f.ch
}

// Close stops the feed. Buffered requests are still delivered.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
}
