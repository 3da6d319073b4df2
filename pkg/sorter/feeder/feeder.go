/*
Copyright 2025 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package feeder implements the producer agent that drains a private backlog of items onto one conveyor.
package feeder

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	logutil "github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/common/observability/logging"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/config"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/conveyor"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/metrics"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/queue"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/types"
)

// Feeder moves items from its backlog onto its target conveyor, pausing BaseFeedInterval/rate after each deposit.
//
// The backlog is touched only by Load before Run starts and by the Run goroutine afterwards. Every accessor used for
// reporting reads an atomic mirror and is safe from any goroutine.
type Feeder struct {
	id     int
	target *conveyor.Conveyor
	rate   int
	cfg    *config.Config
	clock  clock.Clock
	logger logr.Logger

	backlog *queue.FixedQueue[types.Item]

	started      atomic.Bool
	initialCount atomic.Int64
	remaining    atomic.Int64
	waitTime     atomic.Int64 // nanoseconds

	timedOut    atomic.Bool
	timeoutCh   chan struct{}
	timeoutOnce sync.Once
}

// Option customizes a Feeder.
type Option func(*Feeder)

// WithClock sets the clock used for pacing and wait-time measurement.
func WithClock(clk clock.Clock) Option {
	return func(f *Feeder) {
		f.clock = clk
	}
}

// New creates a feeder with an empty backlog of the given capacity that deposits onto target at rate items per
// BaseFeedInterval. The target is marked as feeder-backed.
func New(id int, target *conveyor.Conveyor, capacity, rate int, cfg *config.Config, logger logr.Logger, opts ...Option) (*Feeder, error) {
	if target == nil {
		return nil, fmt.Errorf("feeder %d: %w: nil target conveyor", id, types.ErrInvalidConnection)
	}
	if rate < 1 {
		return nil, fmt.Errorf("feeder %d: %w, but got %d", id, types.ErrInvalidRate, rate)
	}
	backlog, err := queue.New[types.Item](capacity)
	if err != nil {
		return nil, fmt.Errorf("feeder %d: %w", id, err)
	}

	f := &Feeder{
		id:        id,
		target:    target,
		rate:      rate,
		cfg:       cfg,
		clock:     clock.RealClock{},
		logger:    logger.WithName("feeder").WithValues("feederID", id, "conveyorID", target.ID(), "rate", rate),
		backlog:   backlog,
		timeoutCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	target.MarkFeederBacked()
	return f, nil
}

// ID returns the feeder's identifier.
func (f *Feeder) ID() int { return f.id }

// Target returns the conveyor the feeder deposits onto.
func (f *Feeder) Target() *conveyor.Conveyor { return f.target }

// Load adds item to the back of the backlog. It must be called before Run.
func (f *Feeder) Load(item types.Item) error {
	if f.started.Load() {
		return fmt.Errorf("feeder %d: %w", f.id, types.ErrAlreadyStarted)
	}
	if err := f.backlog.Add(item); err != nil {
		return fmt.Errorf("feeder %d: %w", f.id, err)
	}
	f.initialCount.Add(1)
	f.remaining.Add(1)
	return nil
}

// RequestTimeout asks the feeder to stop depositing. It is idempotent and never blocks.
func (f *Feeder) RequestTimeout() {
	f.timeoutOnce.Do(func() {
		f.timedOut.Store(true)
		close(f.timeoutCh)
	})
}

// Run deposits items until the backlog is empty or a time-out is observed, then signals shutdown on the target
// conveyor. A cancelled ctx counts as a time-out. Run blocks until the feeder finishes.
func (f *Feeder) Run(ctx context.Context) {
	f.started.Store(true)
	f.logger.Info("Feeder started", "items", f.backlog.Len())
	defer f.cleanup()

	interval := f.cfg.FeedInterval(f.rate)
	for !f.backlog.IsEmpty() && !f.isTimedOut(ctx) {
		start := f.clock.Now()
		f.target.AcquireInsertion()
		waited := f.clock.Since(start)
		f.waitTime.Add(int64(waited))
		metrics.RecordFeederWait(f.id, waited)

		if f.isTimedOut(ctx) {
			f.target.AbortInsertion()
			break
		}
		if !f.depositFront() {
			break
		}
		f.pause(ctx, interval)
	}
}

// depositFront moves the front of the backlog onto the target. The caller holds insertion rights, which are
// released here.
func (f *Feeder) depositFront() bool {
	item, err := f.backlog.PeekFront()
	if err == nil {
		err = f.target.Append(item)
	}
	if err != nil {
		f.target.AbortInsertion()
		f.logger.Error(err, "Failed to deposit item, stopping")
		return false
	}
	_, _ = f.backlog.PopFront()
	f.remaining.Add(-1)
	f.target.ReleaseInsertion()

	metrics.RecordFeederDeposit(f.id)
	f.logger.V(logutil.TRACE).Info("Item deposited", "category", item.Category(), "remaining", f.backlog.Len())
	return true
}

// pause waits for d, returning early if the feeder is timed out or ctx is cancelled.
func (f *Feeder) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-f.clock.After(d):
	case <-f.timeoutCh:
	case <-ctx.Done():
	}
}

func (f *Feeder) isTimedOut(ctx context.Context) bool {
	if f.timedOut.Load() {
		return true
	}
	if ctx.Err() != nil {
		f.RequestTimeout()
		return true
	}
	return false
}

func (f *Feeder) cleanup() {
	f.target.Shutdown()
	f.logger.Info("Feeder finished",
		"deposited", f.Deposited(), "remaining", f.Remaining(), "timedOut", f.timedOut.Load(), "waited", f.WaitTime())
}

// InitialCount returns the number of items loaded before start.
func (f *Feeder) InitialCount() int {
	return int(f.initialCount.Load())
}

// Remaining returns the number of items still in the backlog.
func (f *Feeder) Remaining() int {
	return int(f.remaining.Load())
}

// Deposited returns the number of items moved onto the target conveyor so far.
func (f *Feeder) Deposited() int {
	return f.InitialCount() - f.Remaining()
}

// WaitTime returns the total time spent waiting for a free slot on the target conveyor.
func (f *Feeder) WaitTime() time.Duration {
	return time.Duration(f.waitTime.Load())
}
