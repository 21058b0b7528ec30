package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asamblea/internal/platform/logger"
)

func TestWorkerDrainsInbox(t *testing.T) {
	pub := NewChannelPublisher(16)
	store := NewInMemoryStore()
	worker := NewWorker(pub.Inbox(), store, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = worker.Run(ctx)
		close(done)
	}()

	pub.Publish(Event{Action: ActionClaimCommitted, AssemblyID: "a1", Document: "123"})
	pub.Publish(Event{Action: ActionVotesRecorded, AssemblyID: "a1"})

	require.Eventually(t, func() bool {
		return len(store.List()) == 2
	}, time.Second, 10*time.Millisecond)

	events := store.List()
	assert.Equal(t, ActionClaimCommitted, events[0].Action)
	assert.False(t, events[0].Timestamp.IsZero(), "publisher stamps events")

	cancel()
	<-done
}

func TestPublishNeverBlocksOnFullBuffer(t *testing.T) {
	pub := NewChannelPublisher(1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			pub.Publish(Event{Action: ActionVotesRecorded})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked with a full buffer")
	}
}
