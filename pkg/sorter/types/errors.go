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

package types

import (
	"errors"
)

// --- Container Errors ---

// The following errors are returned by bounded containers. Under the conveyor acquire/release protocol they are
// unreachable for conveyors; callers that do see them treat the current operation as abandoned.
var (
	// ErrQueueFull indicates an insertion into a container that is already at capacity.
	ErrQueueFull = errors.New("queue at capacity")

	// ErrIndexOutOfRange indicates a peek or removal at a position that holds no item, including any access to an
	// empty container.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// --- Construction Errors ---

// The following errors are returned while the topology is being assembled, before any agent has started.
var (
	// ErrInvalidCapacity indicates a non-positive capacity for a queue, conveyor, feeder or bin.
	ErrInvalidCapacity = errors.New("capacity must be positive")

	// ErrInvalidRate indicates a feeder rate below one.
	ErrInvalidRate = errors.New("rate must be at least 1")

	// ErrInvalidPort indicates a port outside N/E/S/W.
	ErrInvalidPort = errors.New("invalid port")

	// ErrPortOccupied indicates an attempt to attach a second connection to a router port.
	ErrPortOccupied = errors.New("port already has a connection")

	// ErrInvalidConnection indicates a connection whose conveyor or bin reference is missing.
	ErrInvalidConnection = errors.New("invalid connection")

	// ErrDuplicateDestination indicates a category registered against two different bins.
	ErrDuplicateDestination = errors.New("category already registered to another bin")

	// ErrInvalidTopology wraps every validation failure of a topology description.
	ErrInvalidTopology = errors.New("invalid topology")
)

// --- Lifecycle Errors ---

var (
	// ErrAlreadyStarted indicates a mutation or second start of a component whose agents are already running.
	ErrAlreadyStarted = errors.New("already started")

	// ErrNotStarted indicates waiting on a machine that was never started.
	ErrNotStarted = errors.New("not started")
)

// --- Routing Errors ---

var (
	// ErrUnknownDestination indicates an item whose category, or whose resolved bin, has no reachable output on the
	// router handling it. This is a topology configuration defect.
	ErrUnknownDestination = errors.New("no output for destination")
)
