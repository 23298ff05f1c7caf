package events

import (
	"context"
	"errors"
	"sync"
)

// ErrCancelled is returned by Emit once the consumer has cancelled the
// channel or the emission context has been cancelled.
var ErrCancelled = errors.New("events: channel cancelled")

// Channel is a single-producer, single-consumer ordered stream of Events.
// The engine is the sole producer and calls Emit/Finish; the transport is
// the sole consumer and ranges over Events and may call Cancel
// to stop early.
type Channel struct {
	events     chan Event
	cancelled  chan struct{}
	once       sync.Once
	cancelOnce sync.Once
}

// NewChannel creates a Channel with the given buffer size.
func NewChannel(buffer int) *Channel {
	return &Channel{
		events:    make(chan Event, buffer),
		cancelled: make(chan struct{}),
	}
}

// Emit delivers e to the consumer, atomically: it is never partially
// observed. Returns ErrCancelled if the consumer has cancelled or ctx is
// done before e could be delivered.
func (c *Channel) Emit(ctx context.Context, e Event) error {
	select {
	case <-c.cancelled:
		return ErrCancelled
	case <-ctx.Done():
		return ErrCancelled
	default:
	}

	select {
	case c.events <- e:
		return nil
	case <-c.cancelled:
		return ErrCancelled
	case <-ctx.Done():
		return ErrCancelled
	}
}

// Finish closes the event stream. Called by the producer once the final
// Done (or a fatal Error followed by Done) has been emitted.
func (c *Channel) Finish() {
	c.once.Do(func() {
		close(c.events)
	})
}

// Events returns the receive-only channel for the consumer to range over.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Cancel signals the producer to stop at its next emission point. Safe to
// call multiple times or concurrently with Finish.
func (c *Channel) Cancel() {
	c.cancelOnce.Do(func() {
		close(c.cancelled)
	})
}

// Cancelled reports whether Cancel has been called.
func (c *Channel) Cancelled() bool {
	select {
	case <-c.cancelled:
		return true
	default:
		return false
	}
}
