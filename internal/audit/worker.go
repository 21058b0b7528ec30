package audit

import (
	"context"
	"log/slog"
)

// Worker drains the publisher inbox and hands events to a sink. Sink errors
// are logged and dropped: audit failures must never surface into domain
// operations.
type Worker struct {
	inbox <-chan Event
	sink  Sink
	log   *slog.Logger
}

func NewWorker(inbox <-chan Event, sink Sink, log *slog.Logger) *Worker {
	return &Worker{inbox: inbox, sink: sink, log: log}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Append(ctx, event); err != nil {
				w.log.Warn("append audit event", "err", err, "action", event.Action)
			}
		}
	}
}
