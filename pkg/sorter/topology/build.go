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

package topology

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/bin"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/config"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/conveyor"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/feeder"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/machine"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/router"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/types"
)

// Build validates t and assembles the machine it describes, with every feeder loaded and every router wired. The
// machine is returned unstarted.
func Build(t *Topology, cfg *config.Config, logger logr.Logger, opts ...machine.Option) (*machine.Machine, error) {
	if err := Validate(t); err != nil {
		return nil, err
	}

	tb := router.NewDestinationTableBuilder()
	for _, b := range t.Bins {
		if err := tb.RegisterDestination(b.Category, b.ID); err != nil {
			return nil, err
		}
	}
	m := machine.New(t.Name, cfg, tb.Build(), logger, opts...)
	logger = m.Logger()

	conveyors := make(map[int]*conveyor.Conveyor, len(t.Conveyors))
	for _, spec := range t.Conveyors {
		c, err := conveyor.New(spec.ID, spec.Length, logger)
		if err != nil {
			return nil, err
		}
		for _, d := range spec.Destinations {
			c.AddDestination(d)
		}
		conveyors[spec.ID] = c
		if err := m.AddConveyor(c); err != nil {
			return nil, err
		}
	}

	bins := make(map[int]*bin.Bin, len(t.Bins))
	for _, spec := range t.Bins {
		b, err := bin.New(spec.ID, spec.Capacity, cfg, logger, bin.WithClock(m.Clock()))
		if err != nil {
			return nil, err
		}
		bins[spec.ID] = b
		if err := m.AddBin(b); err != nil {
			return nil, err
		}
	}

	for _, spec := range t.Feeders {
		f, err := feeder.New(spec.ID, conveyors[spec.Conveyor], spec.Capacity, spec.Rate, cfg, logger,
			feeder.WithClock(m.Clock()))
		if err != nil {
			return nil, err
		}
		for _, category := range spec.Items {
			if err := f.Load(types.NewItem(category)); err != nil {
				return nil, err
			}
		}
		if err := m.AddFeeder(f); err != nil {
			return nil, err
		}
	}

	for _, spec := range t.Routers {
		r := router.New(spec.ID, m.Table(), cfg, logger, router.WithClock(m.Clock()))
		for _, port := range types.AllPorts {
			e := spec.Endpoint(port)
			if e == nil {
				continue
			}
			if err := r.Attach(port, connectionFor(e, conveyors, bins)); err != nil {
				return nil, err
			}
		}
		if err := m.AddRouter(r); err != nil {
			return nil, err
		}
	}

	logger.Info("Machine built", "conveyors", len(t.Conveyors), "feeders", len(t.Feeders), "bins", len(t.Bins),
		"routers", len(t.Routers), "items", t.ItemCount())
	return m, nil
}

func connectionFor(e *Endpoint, conveyors map[int]*conveyor.Conveyor, bins map[int]*bin.Bin) router.Connection {
	switch e.Kind {
	case KindInput:
		return router.NewInputConveyor(conveyors[e.Ref])
	case KindOutput:
		return router.NewOutputConveyor(conveyors[e.Ref])
	default:
		return router.NewOutputBin(bins[e.Ref])
	}
}

// ItemCount returns the number of items loaded across every feeder.
func (t *Topology) ItemCount() int {
	n := 0
	for _, f := range t.Feeders {
		n += len(f.Items)
	}
	return n
}

// Summary is a one-line description of t for logs and the validate command.
func (t *Topology) Summary() string {
	return fmt.Sprintf("%s: %d conveyors, %d feeders, %d bins, %d routers, %d items, %ds",
		t.Name, len(t.Conveyors), len(t.Feeders), len(t.Bins), len(t.Routers), t.ItemCount(), t.DurationSeconds)
}
