package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// TriggerResult is the outcome of asking a unit to run immediately.
type TriggerResult int

const (
	Started TriggerResult = iota
	AlreadyRunning
)

// cycleFunc runs one sync cycle for a unit. The loop passes
// context.Background(), so removing a unit stops its loop from starting new
// cycles but does not cancel a cycle already in flight; that cycle runs to
// completion.
type cycleFunc func(ctx context.Context)

// unit is the per-source/per-destination scheduler: a ticker-driven loop
// plus a one-shot manual trigger channel, with an at-most-one-concurrent-
// cycle guarantee enforced by running.
type unit struct {
	id       int64
	kind     string // "source" | "destination"
	interval time.Duration
	run      cycleFunc
	logger   *zap.Logger

	running  atomic.Bool
	trigger  chan struct{}
	stop     chan struct{}
	reloaded chan struct{}
	wg       sync.WaitGroup

	mu     sync.Mutex
	ticker *time.Ticker
}

func newUnit(kind string, id int64, interval time.Duration, run cycleFunc, logger *zap.Logger) *unit {
	return &unit{
		id:       id,
		kind:     kind,
		interval: interval,
		run:      run,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
		stop:     make(chan struct{}),
		reloaded: make(chan struct{}, 1),
	}
}

// start launches the unit's scheduling goroutine. With a zero interval no
// ticker is created (manual-only), but the goroutine still serves the
// trigger channel.
func (u *unit) start() {
	u.wg.Add(1)
	go u.loop()
}

func (u *unit) loop() {
	defer u.wg.Done()

	u.mu.Lock()
	if u.interval > 0 {
		u.ticker = time.NewTicker(u.interval)
	}
	u.mu.Unlock()
	defer func() {
		u.mu.Lock()
		if u.ticker != nil {
			u.ticker.Stop()
		}
		u.mu.Unlock()
	}()

	for {
		u.mu.Lock()
		var tickC <-chan time.Time
		if u.ticker != nil {
			tickC = u.ticker.C
		}
		u.mu.Unlock()

		select {
		case <-u.stop:
			return
		case <-u.reloaded:
			continue // re-fetch tickC under the new interval
		case <-tickC:
		case <-u.trigger:
		}
		u.runOnce(context.Background())

		// A tick that fired while the cycle ran is dropped rather than
		// delivered as soon as the cycle returns.
		select {
		case <-tickC:
		default:
		}
	}
}

// runOnce enforces the at-most-one-concurrent-cycle rule: if a cycle is
// already running, a tick is silently dropped (not queued).
func (u *unit) runOnce(ctx context.Context) {
	if !u.running.CompareAndSwap(false, true) {
		return
	}
	defer u.running.Store(false)
	u.run(ctx)
}

// tryTrigger asks the unit to run immediately. It never blocks: if a cycle
// is already in flight it reports AlreadyRunning without queuing anything.
func (u *unit) tryTrigger() TriggerResult {
	if u.running.Load() {
		return AlreadyRunning
	}
	select {
	case u.trigger <- struct{}{}:
		return Started
	default:
		return AlreadyRunning
	}
}

// reload swaps in a new interval, restarting the ticker if one exists, and
// wakes the loop so it picks up the new ticker channel on its next select
// rather than waiting out whatever the old one was doing.
func (u *unit) reload(interval time.Duration) {
	u.mu.Lock()
	u.interval = interval
	if u.ticker != nil {
		u.ticker.Stop()
		u.ticker = nil
	}
	if interval > 0 {
		u.ticker = time.NewTicker(interval)
	}
	u.mu.Unlock()

	select {
	case u.reloaded <- struct{}{}:
	default:
	}
}

// remove signals the loop to stop and waits up to 5s for it to observe the
// signal at its next suspension point, per the cancellation budget.
func (u *unit) remove() {
	close(u.stop)
	done := make(chan struct{})
	go func() {
		u.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		u.logger.Warn("unit did not stop within cancellation budget", zap.String("kind", u.kind), zap.Int64("id", u.id))
	}
}
