package sched

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-sender-admin/internal/infra/metrics"
)

// Sweeper is the periodic half of the error tracker.
type Sweeper interface {
	Enabled() bool
	TargetChat() int64
	Sweep(ctx context.Context) (resolved, resent int)
}

// ErrorSweepWorker drives Sweeper.Sweep on a fixed interval. A failing pass
// is logged and followed by a longer backoff before the next one.
type ErrorSweepWorker struct {
	interval time.Duration
	backoff  time.Duration
	sweeper  Sweeper
	log      *zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewErrorSweepWorker(interval, backoff time.Duration, sweeper Sweeper, logger *zerolog.Logger) *ErrorSweepWorker {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if backoff <= 0 {
		backoff = 30 * time.Second
	}
	compLog := logger.With().Str("component", "ErrorSweepWorker").Logger()
	return &ErrorSweepWorker{
		interval: interval,
		backoff:  backoff,
		sweeper:  sweeper,
		log:      &compLog,
	}
}

// Start runs the worker in the background. Calling it again while running
// has no effect.
func (w *ErrorSweepWorker) Start(parent context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	w.cancel = cancel
	w.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		_ = w.Run(ctx)
	}(w.done)
}

// Stop cancels the loop and waits for it to exit. Safe to call more than once.
func (w *ErrorSweepWorker) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Run blocks until ctx is done. It returns immediately when tracking is disabled.
func (w *ErrorSweepWorker) Run(ctx context.Context) error {
	if !w.sweeper.Enabled() {
		w.log.Info().Msg("error notifications disabled, sweep worker not started")
		return nil
	}
	if w.sweeper.TargetChat() == 0 {
		w.log.Error().Msg("error notifications enabled without a target chat, sweep worker not started")
		return nil
	}
	w.log.Info().Int64("chat_id", w.sweeper.TargetChat()).Dur("interval", w.interval).Dur("backoff", w.backoff).Msg("Starting error sweep worker")

	timer := time.NewTimer(w.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping error sweep worker")
			return ctx.Err()
		case <-timer.C:
			wait := w.interval
			if err := w.runSweep(ctx); err != nil {
				metrics.IncBackgroundTask("error")
				w.log.Error().Err(err).Dur("backoff", w.backoff).Msg("error sweep failed")
				wait = w.backoff
			}
			timer.Reset(wait)
		}
	}
}

func (w *ErrorSweepWorker) runSweep(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep panic: %v", r)
		}
	}()
	resolved, resent := w.sweeper.Sweep(ctx)
	if resolved > 0 || resent > 0 {
		w.log.Debug().Int("resolved", resolved).Int("resent", resent).Msg("error sweep pass")
	}
	metrics.IncBackgroundTask("success")
	return nil
}
