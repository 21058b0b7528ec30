package service

import (
	"context"
	"time"

	dErrors "asamblea/pkg/domain-errors"
)

// AutoStarter fires the passive create→started transition once an assembly's
// scheduled time has passed. Each tick re-checks every assembly, so a missed
// or duplicated tick is harmless: Start is guarded and a lost race just means
// someone else already started it.
type AutoStarter struct {
	service  *Service
	interval time.Duration
	now      func() time.Time
}

func NewAutoStarter(service *Service, interval time.Duration) *AutoStarter {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &AutoStarter{service: service, interval: interval, now: time.Now}
}

// Run ticks until the context is canceled.
func (w *AutoStarter) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick starts every assembly that is due. Exported so tests and operators can
// force a pass without waiting for the ticker.
func (w *AutoStarter) Tick(ctx context.Context) {
	assemblies, err := w.service.assemblies.List(ctx)
	if err != nil {
		w.service.log.Error("autostart list assemblies", "error", err)
		return
	}
	now := w.now()
	for _, a := range assemblies {
		if !a.DueToStart(now) {
			continue
		}
		err := w.service.Start(ctx, a.ID)
		switch {
		case err == nil:
			w.service.metrics.IncAutoStarts()
			w.service.log.Info("assembly auto-started", "assembly", a.ID)
		case dErrors.HasCode(err, dErrors.CodeIllegalTransition):
			// Someone beat this tick to it.
		default:
			w.service.log.Error("autostart assembly", "assembly", a.ID, "error", err)
		}
	}
}
