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

// Package machine owns the object graph of one sorting machine and drives the lifecycle of its agents.
package machine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	logutil "github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/common/observability/logging"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/bin"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/config"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/conveyor"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/feeder"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/router"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/types"
)

// Machine is a fully wired sorting machine. Components are added while it is assembled; once started it is
// immutable.
type Machine struct {
	name   string
	runID  string
	cfg    *config.Config
	table  *router.DestinationTable
	clock  clock.Clock
	logger logr.Logger

	mu        sync.Mutex
	conveyors []*conveyor.Conveyor
	feeders   []*feeder.Feeder
	bins      []*bin.Bin
	routers   []*router.Router

	started      atomic.Bool
	startedAt    time.Time
	feederGroup  *errgroup.Group
	routerGroup  *errgroup.Group
	completion   chan struct{}
	timeoutOnce  sync.Once
	timedOutFlag atomic.Bool
}

// Option customizes a Machine.
type Option func(*Machine)

// WithClock sets the clock used to measure elapsed run time and shared with the agents built for the machine.
func WithClock(clk clock.Clock) Option {
	return func(m *Machine) {
		m.clock = clk
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(m *Machine) {
		m.runID = id
	}
}

// New creates an empty machine. table is shared read-only by every router added later.
func New(name string, cfg *config.Config, table *router.DestinationTable, logger logr.Logger, opts ...Option) *Machine {
	m := &Machine{
		name:       name,
		runID:      uuid.NewString(),
		cfg:        cfg,
		table:      table,
		clock:      clock.RealClock{},
		completion: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logger.WithName("machine").WithValues("machine", name, "runID", m.runID)
	return m
}

// Name returns the configuration name the machine was built from.
func (m *Machine) Name() string { return m.name }

// RunID returns the identifier of this run.
func (m *Machine) RunID() string { return m.runID }

// Config returns the timing configuration shared by the machine's agents.
func (m *Machine) Config() *config.Config { return m.cfg }

// Table returns the category to bin routing table.
func (m *Machine) Table() *router.DestinationTable { return m.table }

// Clock returns the clock agents built for this machine should share.
func (m *Machine) Clock() clock.Clock { return m.clock }

// Logger returns the machine's logger, carrying the run identifier.
func (m *Machine) Logger() logr.Logger { return m.logger }

// AddConveyor adds c to the machine.
func (m *Machine) AddConveyor(c *conveyor.Conveyor) error {
	return m.add(func() { m.conveyors = append(m.conveyors, c) })
}

// AddFeeder adds f to the machine.
func (m *Machine) AddFeeder(f *feeder.Feeder) error {
	return m.add(func() { m.feeders = append(m.feeders, f) })
}

// AddBin adds b to the machine.
func (m *Machine) AddBin(b *bin.Bin) error {
	return m.add(func() { m.bins = append(m.bins, b) })
}

// AddRouter adds r to the machine.
func (m *Machine) AddRouter(r *router.Router) error {
	return m.add(func() { m.routers = append(m.routers, r) })
}

func (m *Machine) add(fn func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started.Load() {
		return fmt.Errorf("machine %s: %w", m.name, types.ErrAlreadyStarted)
	}
	fn()
	return nil
}

// Conveyors returns the machine's conveyors in the order they were added.
func (m *Machine) Conveyors() []*conveyor.Conveyor { return m.conveyors }

// Feeders returns the machine's feeders in the order they were added.
func (m *Machine) Feeders() []*feeder.Feeder { return m.feeders }

// Bins returns the machine's bins in the order they were added.
func (m *Machine) Bins() []*bin.Bin { return m.bins }

// Routers returns the machine's routers in the order they were added.
func (m *Machine) Routers() []*router.Router { return m.routers }

// Start launches every feeder and then every router on its own goroutine. A cancelled ctx has the same effect as
// RequestTimeout. Start returns immediately; use AwaitCompletion to join.
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started.CompareAndSwap(false, true) {
		return fmt.Errorf("machine %s: %w", m.name, types.ErrAlreadyStarted)
	}
	m.startedAt = m.clock.Now()
	m.logger.Info("Starting machine",
		"conveyors", len(m.conveyors), "feeders", len(m.feeders), "bins", len(m.bins), "routers", len(m.routers))

	m.feederGroup = &errgroup.Group{}
	for _, f := range m.feeders {
		m.feederGroup.Go(func() error {
			f.Run(ctx)
			return nil
		})
	}
	m.routerGroup = &errgroup.Group{}
	for _, r := range m.routers {
		m.routerGroup.Go(func() error {
			r.Run()
			return nil
		})
	}

	go func() {
		_ = m.feederGroup.Wait()
		m.logger.V(logutil.VERBOSE).Info("All feeders finished")
		_ = m.routerGroup.Wait()
		m.logger.Info("Machine stopped", "elapsed", m.Elapsed())
		close(m.completion)
	}()
	return nil
}

// RequestTimeout asks every feeder to stop. It is idempotent.
func (m *Machine) RequestTimeout() {
	m.timeoutOnce.Do(func() {
		m.timedOutFlag.Store(true)
		m.logger.Info("Time-out requested")
		for _, f := range m.feeders {
			f.RequestTimeout()
		}
	})
}

// TimedOut reports whether RequestTimeout has been called.
func (m *Machine) TimedOut() bool {
	return m.timedOutFlag.Load()
}

// AwaitCompletion blocks until every feeder and then every router has finished, or ctx is done.
func (m *Machine) AwaitCompletion(ctx context.Context) error {
	if !m.started.Load() {
		return fmt.Errorf("machine %s: %w", m.name, types.ErrNotStarted)
	}
	select {
	case <-m.completion:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("machine %s: waiting for completion: %w", m.name, ctx.Err())
	}
}

// Done returns a channel closed when every agent has finished. It never closes for a machine that was not started.
func (m *Machine) Done() <-chan struct{} {
	return m.completion
}

// Elapsed returns the time since Start, or zero before Start.
func (m *Machine) Elapsed() time.Duration {
	if !m.started.Load() {
		return 0
	}
	return m.clock.Since(m.startedAt)
}
