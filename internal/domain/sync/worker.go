package sync

import (
	"context"
	"errors"
	"time"

	"golang.org/x/exp/slog"
)

const defaultInterval = 30 * time.Second

// Worker is the single goroutine that drains the outbox on a ticker and on Trigger.
type Worker struct {
	engine   *Engine
	interval time.Duration
	log      *slog.Logger
}

func NewWorker(engine *Engine, interval time.Duration, log *slog.Logger) *Worker {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Worker{
		engine:   engine,
		interval: interval,
		log:      log.With("component", "sync_worker"),
	}
}

// Run blocks until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("sync worker started", "interval", w.interval)
	w.drain(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("sync worker stopped")
			return
		case <-ticker.C:
			w.drain(ctx)
		case <-w.engine.triggers:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	res, err := w.engine.Drain(ctx)
	switch {
	case errors.Is(err, ErrAlreadyRunning):
		w.log.Debug("drain skipped, another run in progress")
	case err != nil:
		w.log.Error("drain failed", "error", err)
	case res.Failed > 0:
		w.log.Warn("drain left entries pending", "failed", res.Failed, "skipped", res.Skipped)
	}
}
