package audit

import (
	"context"
	"time"

	"github.com/mateforge/mateauth/internal/queue"
)

// Config controls dispatcher buffering.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher stamps events and forwards them to a sink off the request path.
type Dispatcher struct {
	dropIfFull bool
	q          *queue.Queue[Event]
}

// NewDispatcher returns nil when cfg is disabled; a nil *Dispatcher accepts
// and discards events.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	return &Dispatcher{
		dropIfFull: cfg.DropIfFull,
		q: queue.New(cfg.BufferSize, func(event Event) {
			sink.Emit(context.Background(), event)
		}),
	}
}

// Emit fills in a missing ID and timestamp, then queues event. With
// DropIfFull a full buffer drops the event; otherwise Emit waits for room
// until ctx ends.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.ID == "" {
		event.ID = NewID(event.Timestamp)
	}

	if d.dropIfFull {
		d.q.TryPush(event)
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.q.Push(ctx, event)
}

// Close stops accepting events and drains what is already queued.
func (d *Dispatcher) Close() {
	if d != nil {
		d.q.Close()
	}
}

// Dropped reports events discarded because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.q.Dropped()
}
