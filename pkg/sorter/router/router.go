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

// Package router implements the turntable: an agent that repeatedly picks the most pressing of its input conveyors,
// takes one item from it and passes the item to a bin or to another conveyor, until no input can deliver anything
// more.
//
// # Lifecycle
//
//	active ──(last input pruned)──▶ terminal
//
// An input is pruned once it is empty and its producer has finished. When, after a transfer, no remaining input is
// viable, the router marks its output conveyors done so downstream routers stop preferring them. On reaching terminal
// it wakes one consumer of each output conveyor, which then observes the done mark and prunes that conveyor in turn.
//
// # Waiting on several inputs
//
// A router never blocks on a single chosen input. It rotates to the preferred input and tries every input in priority
// order without blocking; only when none has a filled slot does it wait, on a channel every input signals whenever it
// publishes a slot. This keeps a router that is fed two belts by the same upstream router from waiting on one belt
// while the upstream is blocked filling the other.
package router

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	logutil "github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/common/observability/logging"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/bin"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/config"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/conveyor"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/metrics"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/types"
)

// input is an attached input conveyor. Methods of the conveyor are promoted for priority selection.
type input struct {
	port types.Port
	*conveyor.Conveyor
}

// output is an attached output, in attachment order.
type output struct {
	port types.Port
	conn Connection
}

// Stats are the router's cumulative counters.
type Stats struct {
	ToBins                 int
	ToConveyors            int
	Dropped                int
	Rotations              int
	PrunedInputs           int
	UnresolvedDestinations int
	ActiveInputs           int
	Facing                 types.Port
	Terminated             bool
}

// Router moves items from its input conveyors to bins or output conveyors.
type Router struct {
	id     string
	table  *DestinationTable
	cfg    *config.Config
	clock  clock.Clock
	logger logr.Logger

	// --- Wiring (mutated only by Attach, before Run) ---

	ports             [types.NumPorts]*Connection
	outputs           []output
	destinationToPort map[int]types.Port

	// --- Owned by the Run goroutine ---

	inputs []input
	facing types.Port
	wake   chan struct{}

	// --- Observations ---

	started       atomic.Bool
	terminated    atomic.Bool
	activeInputs  atomic.Int64
	facingPort    atomic.Int32
	toBins        atomic.Int64
	toConveyors   atomic.Int64
	dropped       atomic.Int64
	rotations     atomic.Int64
	pruned        atomic.Int64
	unresolved    atomic.Int64
	attachMu      sync.Mutex
	doneCh        chan struct{}
	terminateOnce sync.Once
}

// Option customizes a Router.
type Option func(*Router)

// WithClock sets the clock used for rotation and movement delays.
func WithClock(clk clock.Clock) Option {
	return func(r *Router) {
		r.clock = clk
	}
}

// New creates a router with no connections. table resolves item categories to bins and is shared read-only.
func New(id string, table *DestinationTable, cfg *config.Config, logger logr.Logger, opts ...Option) *Router {
	r := &Router{
		id:                id,
		table:             table,
		cfg:               cfg,
		clock:             clock.RealClock{},
		logger:            logger.WithName("router").WithValues("routerID", id),
		destinationToPort: make(map[int]types.Port),
		wake:              make(chan struct{}, 1),
		doneCh:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ID returns the router's name.
func (r *Router) ID() string { return r.id }

// Attach connects conn to port. Output conveyors must have their destinations registered before they are attached.
// The last connection reaching a given bin identity takes it over, so a bin attached directly after an output conveyor
// listing it receives its items.
func (r *Router) Attach(port types.Port, conn Connection) error {
	r.attachMu.Lock()
	defer r.attachMu.Unlock()

	if r.started.Load() {
		return fmt.Errorf("router %s: %w", r.id, types.ErrAlreadyStarted)
	}
	if !port.Valid() {
		return fmt.Errorf("router %s: %w: %d", r.id, types.ErrInvalidPort, int(port))
	}
	if err := conn.validate(); err != nil {
		return fmt.Errorf("router %s port %s: %w", r.id, port, err)
	}
	if existing := r.ports[port]; existing != nil {
		return fmt.Errorf("router %s: %w: port %s holds %s", r.id, types.ErrPortOccupied, port, existing)
	}

	r.ports[port] = &conn
	switch conn.Kind() {
	case InputConveyor:
		r.inputs = append(r.inputs, input{port: port, Conveyor: conn.Conveyor()})
		r.activeInputs.Store(int64(len(r.inputs)))
		conn.Conveyor().WatchFilled(r.wake)
	case OutputConveyor:
		r.outputs = append(r.outputs, output{port: port, conn: conn})
		for _, dest := range conn.Conveyor().Destinations() {
			r.registerPort(dest, port)
		}
	case OutputBin:
		r.outputs = append(r.outputs, output{port: port, conn: conn})
		r.registerPort(conn.Bin().ID(), port)
	}
	r.logger.V(logutil.VERBOSE).Info("Connection attached", "port", port, "connection", conn)
	return nil
}

func (r *Router) registerPort(binID int, port types.Port) {
	r.destinationToPort[binID] = port
}

// Run processes items until no input port remains, then performs terminal cleanup. It blocks until the router is
// terminal; it is not cancellable, since only upstream shutdown can make a router stop safely.
func (r *Router) Run() {
	r.attachMu.Lock()
	r.started.Store(true)
	r.attachMu.Unlock()

	if len(r.inputs) > 0 {
		r.setFacing(r.inputs[0].port)
	}
	r.logger.Info("Router started", "inputs", len(r.inputs), "outputs", len(r.outputs), "facing", r.facing)

	for len(r.inputs) > 0 {
		r.iterate()
	}
	r.terminate()
}

// Done returns a channel closed once the router has reached terminal.
func (r *Router) Done() <-chan struct{} {
	return r.doneCh
}

// iterate takes at most one item from the most pressing viable input and passes it on.
func (r *Router) iterate() {
	start := r.clock.Now()
	defer func() {
		metrics.RecordRouterIteration(r.id, r.clock.Since(start))
	}()

	idx := r.acquireInput()
	in := r.inputs[idx]

	// The input may have been drained and closed while this router waited.
	if !in.IsViable() {
		in.ReleaseExtraction()
		r.prune(idx)
		return
	}

	item, err := in.Peek()
	if err != nil {
		r.logger.V(logutil.DEBUG).Info("Input had no item to take", "conveyorID", in.ID(), "reason", err.Error())
		in.ReleaseExtraction()
		return
	}

	r.sleep(r.cfg.MovementDelay)
	r.route(idx, item)
	in.ReleaseExtraction()
	r.sleep(r.cfg.MovementDelay)
}

// acquireInput returns the index of an input on which the router holds extraction rights, waiting until one has a
// filled slot.
func (r *Router) acquireInput() int {
	for {
		order := PriorityOrder(r.inputs)
		r.rotateTo(r.inputs[order[0]].port)
		for _, i := range order {
			if r.inputs[i].TryAcquireExtraction() {
				r.rotateTo(r.inputs[i].port)
				return i
			}
		}
		r.logger.V(logutil.TRACE).Info("Waiting for any input to fill")
		<-r.wake
	}
}

// route passes item, the front of input idx, to its destination. The caller holds extraction rights on the input.
func (r *Router) route(idx int, item types.Item) {
	binID, known := r.table.Lookup(item.Category())
	port, hasPort := r.destinationToPort[binID]
	if known && hasPort && r.ports[port].Kind() == OutputBin {
		r.deliverToBin(idx, port, r.ports[port].Bin(), item)
		return
	}

	out, ok := r.selectOutputConveyor(binID, known)
	if !ok {
		r.drop(idx, item, binID, known)
		return
	}
	r.forward(idx, out, item)
}

// selectOutputConveyor picks the output conveyor for binID. When no output conveyor lists binID the item is either
// forwarded to the first output conveyor or, with strict routing, not forwarded at all.
func (r *Router) selectOutputConveyor(binID int, resolved bool) (output, bool) {
	var first *output
	for i := range r.outputs {
		out := &r.outputs[i]
		if out.conn.Kind() != OutputConveyor {
			continue
		}
		if first == nil {
			first = out
		}
		if resolved && out.conn.Conveyor().HasDestination(binID) {
			return *out, true
		}
	}

	r.unresolved.Add(1)
	metrics.RecordRouterUnresolvedDestination(r.id)
	if first == nil || r.cfg.StrictRouting {
		return output{}, false
	}
	r.logger.Error(types.ErrUnknownDestination, "Forwarding item to the first output conveyor",
		"binID", binID, "conveyorID", first.conn.Conveyor().ID())
	return *first, true
}

func (r *Router) deliverToBin(idx int, port types.Port, b *bin.Bin, item types.Item) {
	in := r.inputs[idx]
	r.rotateTo(port)
	b.Deposit(item)
	if _, err := in.RemoveFront(); err != nil {
		r.logger.Error(err, "Failed to remove delivered item from input", "conveyorID", in.ID())
	}
	r.toBins.Add(1)
	metrics.RecordRouterTransfer(r.id, metrics.TargetBin)
	r.logger.V(logutil.DEBUG).Info("Item delivered to bin", "category", item.Category(), "binID", b.ID(), "port", port)
	r.afterTransfer(idx)
}

func (r *Router) forward(idx int, out output, item types.Item) {
	in := r.inputs[idx]
	dst := out.conn.Conveyor()
	r.rotateTo(out.port)

	dst.AcquireInsertion()
	if _, err := dst.TransferFront(in.Conveyor); err != nil {
		dst.AbortInsertion()
		r.logger.Error(err, "Failed to transfer item", "from", in.ID(), "to", dst.ID())
		return
	}
	r.toConveyors.Add(1)
	metrics.RecordRouterTransfer(r.id, metrics.TargetConveyor)
	r.logger.V(logutil.DEBUG).Info("Item passed on", "category", item.Category(), "conveyorID", dst.ID(), "port", out.port)
	r.afterTransfer(idx)
	dst.ReleaseInsertion()
}

// drop removes an item that has nowhere to go.
func (r *Router) drop(idx int, item types.Item, binID int, known bool) {
	in := r.inputs[idx]
	if _, err := in.RemoveFront(); err != nil {
		r.logger.Error(err, "Failed to remove undeliverable item from input", "conveyorID", in.ID())
		return
	}
	r.dropped.Add(1)
	metrics.RecordRouterTransfer(r.id, metrics.TargetDropped)
	err := types.ErrUnknownDestination
	if !known {
		err = fmt.Errorf("%w: category %q has no bin", types.ErrUnknownDestination, item.Category())
	}
	r.logger.Error(err, "Dropping item", "category", item.Category(), "binID", binID)
	r.afterTransfer(idx)
}

// afterTransfer prunes input idx if it can deliver nothing more and marks every output conveyor done when no input
// is viable any longer.
func (r *Router) afterTransfer(idx int) {
	if !r.inputs[idx].IsViable() {
		r.prune(idx)
	}
	for _, in := range r.inputs {
		if in.IsViable() {
			return
		}
	}
	for _, out := range r.outputs {
		if out.conn.Kind() == OutputConveyor {
			out.conn.Conveyor().MarkDone()
		}
	}
}

// prune removes input idx. Order of the remaining inputs is not significant.
func (r *Router) prune(idx int) {
	pruned := r.inputs[idx]
	last := len(r.inputs) - 1
	r.inputs[idx] = r.inputs[last]
	r.inputs[last] = input{}
	r.inputs = r.inputs[:last]

	r.activeInputs.Store(int64(len(r.inputs)))
	r.pruned.Add(1)
	metrics.RecordRouterPrunedInput(r.id)
	r.logger.V(logutil.DEFAULT).Info("Input pruned", "conveyorID", pruned.ID(), "port", pruned.port, "remaining", len(r.inputs))
}

// terminate wakes one consumer of every output conveyor after marking it done.
func (r *Router) terminate() {
	r.terminateOnce.Do(func() {
		for _, out := range r.outputs {
			if out.conn.Kind() == OutputConveyor {
				out.conn.Conveyor().StopProducing()
			}
		}
		r.terminated.Store(true)
		close(r.doneCh)
		s := r.Stats()
		r.logger.Info("Router finished", "toBins", s.ToBins, "toConveyors", s.ToConveyors, "dropped", s.Dropped,
			"rotations", s.Rotations)
	})
}

func (r *Router) rotateTo(port types.Port) {
	cost := RotationCost(r.facing, port, r.cfg.RotationUnit)
	if r.facing != port {
		r.logger.V(logutil.TRACE).Info("Rotating", "from", r.facing, "to", port, "cost", cost)
	}
	if cost > 0 {
		r.rotations.Add(1)
		metrics.RecordRouterRotation(r.id)
		r.sleep(cost)
	}
	r.setFacing(port)
}

func (r *Router) setFacing(port types.Port) {
	r.facing = port
	r.facingPort.Store(int32(port))
}

func (r *Router) sleep(d time.Duration) {
	if d > 0 {
		r.clock.Sleep(d)
	}
}

// Stats returns a snapshot of the router's counters. It is safe to call at any time.
func (r *Router) Stats() Stats {
	return Stats{
		ToBins:                 int(r.toBins.Load()),
		ToConveyors:            int(r.toConveyors.Load()),
		Dropped:                int(r.dropped.Load()),
		Rotations:              int(r.rotations.Load()),
		PrunedInputs:           int(r.pruned.Load()),
		UnresolvedDestinations: int(r.unresolved.Load()),
		ActiveInputs:           int(r.activeInputs.Load()),
		Facing:                 types.Port(r.facingPort.Load()),
		Terminated:             r.terminated.Load(),
	}
}
