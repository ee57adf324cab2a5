package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testUnit(t *testing.T, interval time.Duration, run cycleFunc) *unit {
	t.Helper()
	u := newUnit("source", 1, interval, run, zap.NewNop())
	u.start()
	t.Cleanup(u.remove)
	return u
}

func TestTryTriggerStartsAnIdleUnit(t *testing.T) {
	ran := make(chan struct{}, 1)
	u := testUnit(t, 0, func(ctx context.Context) { ran <- struct{}{} })

	if got := u.tryTrigger(); got != Started {
		t.Fatalf("expected Started, got %v", got)
	}
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("cycle did not run")
	}
}

func TestTryTriggerReportsAlreadyRunningWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	u := testUnit(t, 0, func(ctx context.Context) {
		close(entered)
		<-release
	})

	if got := u.tryTrigger(); got != Started {
		t.Fatalf("expected first trigger to start, got %v", got)
	}
	<-entered

	if got := u.tryTrigger(); got != AlreadyRunning {
		t.Fatalf("expected AlreadyRunning while cycle in flight, got %v", got)
	}
	close(release)
}

func TestTicksAreDroppedNotQueuedWhileRunning(t *testing.T) {
	var mu sync.Mutex
	var runs int
	release := make(chan struct{})
	entered := make(chan struct{}, 1)

	u := testUnit(t, 20*time.Millisecond, func(ctx context.Context) {
		mu.Lock()
		runs++
		mu.Unlock()
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
	})

	<-entered
	time.Sleep(100 * time.Millisecond) // several ticks would fire here if queued instead of dropped

	mu.Lock()
	got := runs
	mu.Unlock()
	close(release)
	if got != 1 {
		t.Fatalf("expected ticks to be dropped while a cycle is running, got %d runs", got)
	}
}

func TestReloadTakesEffectWithoutWaitingOutOldInterval(t *testing.T) {
	ran := make(chan struct{}, 10)
	u := testUnit(t, time.Hour, func(ctx context.Context) { ran <- struct{}{} })

	u.reload(20 * time.Millisecond)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("reload did not take effect promptly")
	}
}

func TestRemoveStopsTheLoop(t *testing.T) {
	u := newUnit("source", 1, 0, func(ctx context.Context) {}, zap.NewNop())
	u.start()
	u.remove()
	// remove closes the stop channel, so it may be called only once per unit;
	// this test only checks that a single call returns.
}
