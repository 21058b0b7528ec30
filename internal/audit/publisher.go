package audit

import (
	"context"
	"time"
)

// Publisher accepts events from domain services. Implementations must be
// non-blocking: audit is best-effort and never slows a claim or a vote.
type Publisher interface {
	Publish(event Event)
}

// ChannelPublisher pushes events into a buffered channel drained by a Worker.
// When the buffer is full the event is dropped; the store of truth for
// assembly state is never the audit trail.
type ChannelPublisher struct {
	inbox chan Event
}

func NewChannelPublisher(buffer int) *ChannelPublisher {
	return &ChannelPublisher{inbox: make(chan Event, buffer)}
}

func (p *ChannelPublisher) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
	}
}

// Inbox exposes the drain side for the Worker.
func (p *ChannelPublisher) Inbox() <-chan Event { return p.inbox }

// NopPublisher drops everything; useful in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

var _ Publisher = (*ChannelPublisher)(nil)
var _ Publisher = NopPublisher{}

// Sink persists or forwards drained events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}
