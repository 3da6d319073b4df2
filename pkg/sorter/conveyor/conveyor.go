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

// Package conveyor implements the bounded buffer shared between the producers and consumers of the sorting machine.
//
// # Access Protocol
//
// Every mutation happens inside a critical section bracketed by one of two acquire/release pairs:
//
//	Insertion:  AcquireInsertion  (free-slot permit, then token)  ... Append ...      ReleaseInsertion  (token, then filled-slot permit)
//	Extraction: AcquireExtraction (filled-slot permit, then token) ... Peek/Remove ... ReleaseExtraction (token, then free-slot permit)
//
// The filled-slot permit is only signalled after the token is released, so a consumer can never observe an item
// before its insertion has fully committed.
//
// # Shutdown
//
// A producer that will never deliver again calls Shutdown (feeders) or StopProducing (routers). Both clear
// the one-way "waiting for more" flag first and then release exactly one permit per blocked side, never a
// broadcast: other threads blocked on the same conveyor stay blocked until their own turn comes.
package conveyor

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/sets"

	logutil "github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/common/observability/logging"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/metrics"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/queue"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/types"
)

// Conveyor is a capacity-bounded shared buffer of items.
type Conveyor struct {
	// --- Immutable after construction ---

	id       int
	capacity int
	logger   logr.Logger

	// --- Build-time state (set before any agent starts, read-only afterwards) ---

	destinations      sets.Set[int]
	hasUpstreamFeeder atomic.Bool

	// --- Synchronization ---

	free   *semaphore
	filled *semaphore
	token  sync.Mutex

	// --- Guarded by token ---

	items *queue.FixedQueue[types.Item]

	// --- Lock-free observations ---

	// occupancy mirrors items.Len() so readers outside the critical section never touch the queue.
	occupancy      atomic.Int64
	waitingForMore atomic.Bool
}

// New creates an empty conveyor that holds at most capacity items. It starts out expecting more items.
func New(id, capacity int, logger logr.Logger) (*Conveyor, error) {
	items, err := queue.New[types.Item](capacity)
	if err != nil {
		return nil, fmt.Errorf("conveyor %d: %w", id, err)
	}
	c := &Conveyor{
		id:           id,
		capacity:     capacity,
		logger:       logger.WithName("conveyor").WithValues("conveyorID", id, "capacity", capacity),
		destinations: sets.New[int](),
		free:         newSemaphore(capacity),
		filled:       newSemaphore(0),
		items:        items,
	}
	c.waitingForMore.Store(true)
	return c, nil
}

// ID returns the conveyor's identifier.
func (c *Conveyor) ID() int { return c.id }

// Capacity returns the maximum number of items the conveyor holds.
func (c *Conveyor) Capacity() int { return c.capacity }

// --- Build-time configuration ---

// AddDestination records that items bound for the bin with the given identity may travel along this conveyor.
// It may be called repeatedly but only before agents start.
func (c *Conveyor) AddDestination(binID int) {
	c.destinations.Insert(binID)
}

// HasDestination reports whether binID was registered with AddDestination.
func (c *Conveyor) HasDestination(binID int) bool {
	return c.destinations.Has(binID)
}

// Destinations returns the registered destination bin identities in ascending order.
func (c *Conveyor) Destinations() []int {
	return sets.List(c.destinations)
}

// MarkFeederBacked records that a feeder produces directly onto this conveyor.
func (c *Conveyor) MarkFeederBacked() {
	c.hasUpstreamFeeder.Store(true)
}

// HasUpstreamFeeder reports whether a feeder produces directly onto this conveyor.
func (c *Conveyor) HasUpstreamFeeder() bool {
	return c.hasUpstreamFeeder.Load()
}

// WatchFilled registers ch to be signalled, without blocking, whenever a filled-slot permit is released.
// A consumer serving several conveyors uses this to sleep until any of them may have something to take.
func (c *Conveyor) WatchFilled(ch chan<- struct{}) {
	c.filled.watch(ch)
}

// --- Observations (safe at any time, from any goroutine) ---

// Len returns the number of items currently on the conveyor.
func (c *Conveyor) Len() int {
	return int(c.occupancy.Load())
}

// IsEmpty reports whether the conveyor currently holds no items.
func (c *Conveyor) IsEmpty() bool {
	return c.Len() == 0
}

// OccupancyRatio returns occupied/capacity. It is advisory: the value may be stale by the time it is used.
func (c *Conveyor) OccupancyRatio() float64 {
	return float64(c.Len()) / float64(c.capacity)
}

// IsWaitingForMore reports whether a producer may still deliver items onto this conveyor.
func (c *Conveyor) IsWaitingForMore() bool {
	return c.waitingForMore.Load()
}

// IsViable reports whether a consumer can still expect to take an item from this conveyor.
func (c *Conveyor) IsViable() bool {
	return !c.IsEmpty() || c.IsWaitingForMore()
}

// MarkDone records that no further items will ever be produced onto this conveyor. The transition is one-way.
func (c *Conveyor) MarkDone() {
	if c.waitingForMore.CompareAndSwap(true, false) {
		c.logger.V(logutil.DEBUG).Info("Conveyor no longer expects items", "occupancy", c.Len())
	}
}

// --- Access protocol ---

// AcquireInsertion blocks until a free slot is reserved and the exclusive-access token is held.
func (c *Conveyor) AcquireInsertion() {
	c.free.acquire()
	c.token.Lock()
}

// ReleaseInsertion releases the token and then publishes one filled slot.
func (c *Conveyor) ReleaseInsertion() {
	c.token.Unlock()
	c.filled.release()
}

// AbortInsertion releases the token and returns the reserved free slot without publishing anything.
func (c *Conveyor) AbortInsertion() {
	c.token.Unlock()
	c.free.release()
}

// AcquireExtraction blocks until a filled slot is claimed and the exclusive-access token is held.
func (c *Conveyor) AcquireExtraction() {
	c.filled.acquire()
	c.token.Lock()
}

// TryAcquireExtraction claims a filled slot if one is available right now and then takes the token, which may
// still block briefly while a producer finishes its critical section. It reports whether extraction rights are held.
func (c *Conveyor) TryAcquireExtraction() bool {
	if !c.filled.tryAcquire() {
		return false
	}
	c.token.Lock()
	return true
}

// ReleaseExtraction releases the token and then frees one slot.
func (c *Conveyor) ReleaseExtraction() {
	c.token.Unlock()
	c.free.release()
}

// --- Critical-section operations (caller must hold insertion or extraction rights) ---

// Append adds item at the back of the conveyor.
func (c *Conveyor) Append(item types.Item) error {
	if err := c.items.Add(item); err != nil {
		c.logger.Error(err, "Insertion exceeded conveyor capacity", "item", item)
		return fmt.Errorf("conveyor %d: %w", c.id, err)
	}
	c.reconcileOccupancy()
	c.logger.V(logutil.TRACE).Info("Item placed on conveyor", "category", item.Category(), "occupancy", c.items.Len())
	return nil
}

// Peek returns the item closest to the consumer without removing it.
func (c *Conveyor) Peek() (types.Item, error) {
	item, err := c.items.PeekFront()
	if err != nil {
		return item, fmt.Errorf("conveyor %d: %w", c.id, err)
	}
	return item, nil
}

// RemoveFront removes and returns the item closest to the consumer.
func (c *Conveyor) RemoveFront() (types.Item, error) {
	item, err := c.items.PopFront()
	if err != nil {
		return item, fmt.Errorf("conveyor %d: %w", c.id, err)
	}
	c.reconcileOccupancy()
	c.logger.V(logutil.TRACE).Info("Item taken from conveyor", "category", item.Category(), "occupancy", c.items.Len())
	return item, nil
}

// TransferFront moves the front item of src onto c. The caller must hold extraction rights on src and insertion
// rights on c. On failure neither conveyor is modified.
func (c *Conveyor) TransferFront(src *Conveyor) (types.Item, error) {
	item, err := src.Peek()
	if err != nil {
		return item, err
	}
	if err := c.Append(item); err != nil {
		return item, err
	}
	if _, err := src.RemoveFront(); err != nil {
		// Unreachable while src's extraction rights are held: the peeked item cannot disappear.
		return item, err
	}
	return item, nil
}

// --- Shutdown signals ---

// Shutdown is the feeder's cleanup: mark the conveyor done, then release one free-slot and one filled-slot
// permit so that exactly one blocked thread on each side wakes and observes the flag.
func (c *Conveyor) Shutdown() {
	c.MarkDone()
	c.free.release()
	c.filled.release()
	c.logger.V(logutil.DEBUG).Info("Conveyor shut down by its feeder")
}

// StopProducing is a router's terminal cleanup for one of its outputs: mark the conveyor done, then release one
// filled-slot permit so a consumer blocked on it wakes and prunes the conveyor.
func (c *Conveyor) StopProducing() {
	c.MarkDone()
	c.filled.release()
	c.logger.V(logutil.DEBUG).Info("Conveyor released by its upstream router")
}

// Items returns a snapshot of the items on the conveyor, front first. It takes the token and so must not be called
// by a thread already holding access rights.
func (c *Conveyor) Items() []types.Item {
	c.token.Lock()
	defer c.token.Unlock()
	return c.items.Items()
}

func (c *Conveyor) reconcileOccupancy() {
	n := c.items.Len()
	c.occupancy.Store(int64(n))
	metrics.RecordConveyorOccupancy(c.id, n)
}
