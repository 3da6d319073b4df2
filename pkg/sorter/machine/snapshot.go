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

package machine

import (
	"time"

	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/router"
)

// FeederSnapshot is a point-in-time view of one feeder.
type FeederSnapshot struct {
	ID        int
	Loaded    int
	Remaining int
	Deposited int
	WaitTime  time.Duration
}

// ConveyorSnapshot is a point-in-time view of one conveyor.
type ConveyorSnapshot struct {
	ID             int
	Capacity       int
	Occupancy      int
	WaitingForMore bool
}

// BinSnapshot is a point-in-time view of one bin.
type BinSnapshot struct {
	ID              int
	Capacity        int
	Occupancy       int
	TotalEverStored int
	Replacements    int
}

// RouterSnapshot is a point-in-time view of one router.
type RouterSnapshot struct {
	ID string
	router.Stats
}

// Snapshot is a point-in-time view of the whole machine. Its parts are read independently and without stopping the
// agents, so totals only balance exactly once the machine has stopped.
type Snapshot struct {
	Name    string
	RunID   string
	Elapsed time.Duration

	// TimeScale is the machine's configured time scale. Elapsed and wait times are measured on the clock and
	// Simulated converts them back.
	TimeScale float64

	Feeders   []FeederSnapshot
	Conveyors []ConveyorSnapshot
	Bins      []BinSnapshot
	Routers   []RouterSnapshot
}

// Snapshot reads every component's reporting counters. It is safe to call at any time.
func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		Name:      m.name,
		RunID:     m.runID,
		Elapsed:   m.Elapsed(),
		TimeScale: m.cfg.TimeScale,
		Feeders:   make([]FeederSnapshot, 0, len(m.feeders)),
		Conveyors: make([]ConveyorSnapshot, 0, len(m.conveyors)),
		Bins:      make([]BinSnapshot, 0, len(m.bins)),
		Routers:   make([]RouterSnapshot, 0, len(m.routers)),
	}
	for _, f := range m.feeders {
		s.Feeders = append(s.Feeders, FeederSnapshot{
			ID:        f.ID(),
			Loaded:    f.InitialCount(),
			Remaining: f.Remaining(),
			Deposited: f.Deposited(),
			WaitTime:  f.WaitTime(),
		})
	}
	for _, c := range m.conveyors {
		s.Conveyors = append(s.Conveyors, ConveyorSnapshot{
			ID:             c.ID(),
			Capacity:       c.Capacity(),
			Occupancy:      c.Len(),
			WaitingForMore: c.IsWaitingForMore(),
		})
	}
	for _, b := range m.bins {
		s.Bins = append(s.Bins, BinSnapshot{
			ID:              b.ID(),
			Capacity:        b.Capacity(),
			Occupancy:       b.Len(),
			TotalEverStored: b.TotalEverStored(),
			Replacements:    b.Replacements(),
		})
	}
	for _, r := range m.routers {
		s.Routers = append(s.Routers, RouterSnapshot{ID: r.ID(), Stats: r.Stats()})
	}
	return s
}

// Simulated converts a duration measured during the run into the duration it stands for at a time scale of 1.
// A zero TimeScale is treated as 1.
func (s Snapshot) Simulated(d time.Duration) time.Duration {
	if s.TimeScale <= 0 {
		return d
	}
	return time.Duration(float64(d) / s.TimeScale)
}

// Loaded returns the number of items loaded into feeders before start.
func (s Snapshot) Loaded() int {
	n := 0
	for _, f := range s.Feeders {
		n += f.Loaded
	}
	return n
}

// InFeeders returns the number of items not yet deposited.
func (s Snapshot) InFeeders() int {
	n := 0
	for _, f := range s.Feeders {
		n += f.Remaining
	}
	return n
}

// Deposited returns the number of items feeders have put on conveyors.
func (s Snapshot) Deposited() int {
	n := 0
	for _, f := range s.Feeders {
		n += f.Deposited
	}
	return n
}

// OnConveyors returns the number of items currently on conveyors.
func (s Snapshot) OnConveyors() int {
	n := 0
	for _, c := range s.Conveyors {
		n += c.Occupancy
	}
	return n
}

// InBins returns the number of items ever stored in bins.
func (s Snapshot) InBins() int {
	n := 0
	for _, b := range s.Bins {
		n += b.TotalEverStored
	}
	return n
}

// Dropped returns the number of items routers discarded because they had no destination.
func (s Snapshot) Dropped() int {
	n := 0
	for _, r := range s.Routers {
		n += r.Dropped
	}
	return n
}

// Missing returns deposited items that are neither in a bin nor on a conveyor. It is zero for a stopped machine
// that dropped nothing.
func (s Snapshot) Missing() int {
	return s.Deposited() - s.InBins() - s.OnConveyors()
}
