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

// Package bin implements the collection bin, the terminal sink of the sorting machine.
package bin

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	logutil "github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/common/observability/logging"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/config"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/metrics"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/queue"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/types"
)

// Bin accumulates items of one destination. When its current container is full the container is replaced by an
// empty one before the next item goes in, so a deposit never fails.
type Bin struct {
	id       int
	capacity int
	cfg      *config.Config
	clock    clock.Clock
	logger   logr.Logger

	mu      sync.Mutex
	current *queue.FixedQueue[types.Item]

	totalEverStored atomic.Int64
	replacements    atomic.Int64
	occupancy       atomic.Int64
}

// Option customizes a Bin.
type Option func(*Bin)

// WithClock sets the clock used for the replacement delay.
func WithClock(clk clock.Clock) Option {
	return func(b *Bin) {
		b.clock = clk
	}
}

// New creates an empty bin whose containers hold capacity items.
func New(id, capacity int, cfg *config.Config, logger logr.Logger, opts ...Option) (*Bin, error) {
	current, err := queue.New[types.Item](capacity)
	if err != nil {
		return nil, fmt.Errorf("bin %d: %w", id, err)
	}
	b := &Bin{
		id:       id,
		capacity: capacity,
		cfg:      cfg,
		clock:    clock.RealClock{},
		logger:   logger.WithName("bin").WithValues("binID", id, "capacity", capacity),
		current:  current,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// ID returns the bin's identifier, the value categories resolve to.
func (b *Bin) ID() int { return b.id }

// Capacity returns the number of items a single container holds.
func (b *Bin) Capacity() int { return b.capacity }

// Deposit stores item, replacing the current container first if it is full.
func (b *Bin) Deposit(item types.Item) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current.IsFull() {
		b.replace()
	}
	if err := b.current.Add(item); err != nil {
		// A freshly replaced container always has room.
		b.logger.Error(err, "Failed to store item", "item", item)
		return
	}
	b.occupancy.Store(int64(b.current.Len()))
	total := b.totalEverStored.Add(1)
	metrics.RecordBinStored(b.id)
	b.logger.V(logutil.TRACE).Info("Item stored", "category", item.Category(), "occupancy", b.current.Len(), "total", total)
}

// replace discards the full container and starts a new one. The caller holds mu.
func (b *Bin) replace() {
	b.logger.V(logutil.DEBUG).Info("Bin full, replacing container", "stored", b.totalEverStored.Load())
	b.current.Reset()
	b.occupancy.Store(0)
	if b.cfg.BinReplaceDelay > 0 {
		b.clock.Sleep(b.cfg.BinReplaceDelay)
	}
	b.replacements.Add(1)
	metrics.RecordBinReplacement(b.id)
}

// TotalEverStored returns the number of items stored since the bin was created, across every container.
func (b *Bin) TotalEverStored() int {
	return int(b.totalEverStored.Load())
}

// Len returns the number of items in the current container.
func (b *Bin) Len() int {
	return int(b.occupancy.Load())
}

// Replacements returns the number of times a full container was replaced.
func (b *Bin) Replacements() int {
	return int(b.replacements.Load())
}
