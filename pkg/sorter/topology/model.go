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

// Package topology describes a sorting machine as data, reads that description from the legacy text format or from
// YAML/JSON, validates it, and builds a runnable machine from it.
package topology

import (
	"time"

	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/types"
)

// Topology is the complete description of a machine and of the items it sorts.
type Topology struct {
	// Name identifies the configuration in reports. Load defaults it to the file name.
	Name string `json:"name,omitempty"`

	Conveyors []Conveyor `json:"conveyors"`
	Feeders   []Feeder   `json:"feeders"`
	Bins      []Bin      `json:"bins"`
	Routers   []Router   `json:"routers"`

	// DurationSeconds is how long feeders run before they are timed out.
	DurationSeconds int `json:"durationSeconds"`
}

// Duration returns the run duration.
func (t *Topology) Duration() time.Duration {
	return time.Duration(t.DurationSeconds) * time.Second
}

// Conveyor describes a belt.
type Conveyor struct {
	ID     int `json:"id"`
	Length int `json:"length"`
	// Destinations are the bins reachable downstream of this conveyor.
	Destinations []int `json:"destinations,omitempty"`
}

// Feeder describes a hopper and the items loaded into it.
type Feeder struct {
	ID       int      `json:"id"`
	Conveyor int      `json:"conveyor"`
	Capacity int      `json:"capacity"`
	Rate     int      `json:"rate"`
	Items    []string `json:"items,omitempty"`
}

// Bin describes a sack and the item category it collects.
type Bin struct {
	ID       int    `json:"id"`
	Capacity int    `json:"capacity"`
	Category string `json:"category"`
}

// EndpointKind is what a router port is connected to.
type EndpointKind string

const (
	// KindInput drains a conveyor into the router.
	KindInput EndpointKind = "input"
	// KindOutput feeds a conveyor from the router.
	KindOutput EndpointKind = "output"
	// KindBin stores items into a bin.
	KindBin EndpointKind = "bin"
)

// Endpoint is the connection on one router port.
type Endpoint struct {
	Kind EndpointKind `json:"kind"`
	// Ref is the conveyor identity for KindInput and KindOutput, and the bin identity for KindBin.
	Ref int `json:"ref"`
}

// Router describes a turntable. Unused ports are nil.
type Router struct {
	ID    string    `json:"id"`
	North *Endpoint `json:"north,omitempty"`
	East  *Endpoint `json:"east,omitempty"`
	South *Endpoint `json:"south,omitempty"`
	West  *Endpoint `json:"west,omitempty"`
}

// Endpoint returns the connection on port p, or nil.
func (r *Router) Endpoint(p types.Port) *Endpoint {
	switch p {
	case types.North:
		return r.North
	case types.East:
		return r.East
	case types.South:
		return r.South
	case types.West:
		return r.West
	default:
		return nil
	}
}

// SetEndpoint sets the connection on port p.
func (r *Router) SetEndpoint(p types.Port, e *Endpoint) {
	switch p {
	case types.North:
		r.North = e
	case types.East:
		r.East = e
	case types.South:
		r.South = e
	case types.West:
		r.West = e
	}
}
