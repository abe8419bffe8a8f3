package sched

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSweeper struct {
	enabled bool
	noChat  bool
	calls   atomic.Int32
	panicOn int32
}

func (f *fakeSweeper) Enabled() bool { return f.enabled }

func (f *fakeSweeper) TargetChat() int64 {
	if f.noChat {
		return 0
	}
	return -100
}

func (f *fakeSweeper) Sweep(context.Context) (int, int) {
	n := f.calls.Add(1)
	if n == f.panicOn {
		panic("boom")
	}
	return 0, 0
}

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(nil)
	return &l
}

func TestErrorSweepWorker_DisabledReturnsImmediately(t *testing.T) {
	w := NewErrorSweepWorker(time.Millisecond, time.Millisecond, &fakeSweeper{}, newTestLogger())
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestErrorSweepWorker_MissingChatReturnsImmediately(t *testing.T) {
	s := &fakeSweeper{enabled: true, noChat: true}
	w := NewErrorSweepWorker(time.Millisecond, time.Millisecond, s, newTestLogger())
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if s.calls.Load() != 0 {
		t.Fatal("no sweep expected without a target chat")
	}
}

func TestErrorSweepWorker_SweepsUntilStopped(t *testing.T) {
	s := &fakeSweeper{enabled: true}
	w := NewErrorSweepWorker(5*time.Millisecond, 5*time.Millisecond, s, newTestLogger())

	w.Start(context.Background())
	w.Start(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for s.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()
	w.Stop()

	if s.calls.Load() < 3 {
		t.Fatalf("expected repeated sweeps, got %d", s.calls.Load())
	}
	after := s.calls.Load()
	time.Sleep(20 * time.Millisecond)
	if s.calls.Load() != after {
		t.Fatal("sweeps continued after Stop")
	}
}

func TestErrorSweepWorker_SurvivesPanics(t *testing.T) {
	s := &fakeSweeper{enabled: true, panicOn: 1}
	w := NewErrorSweepWorker(2*time.Millisecond, 2*time.Millisecond, s, newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for s.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if s.calls.Load() < 2 {
		t.Fatal("worker stopped after a panicking sweep")
	}
}
