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

package router

import (
	"cmp"
	"slices"
	"time"

	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/types"
)

// candidate is the view of an input conveyor that priority selection needs.
type candidate interface {
	OccupancyRatio() float64
	HasUpstreamFeeder() bool
}

// PriorityOrder returns the indices of inputs, most preferred first.
//
// The preferred input is the one with the highest occupancy ratio, the lowest index winning ties. If even that input
// is empty, the last feeder-backed input in scan order is preferred instead, since that kind is the one guaranteed to
// receive more items; the first input's own feeder does not count, as it is already the default. The remaining inputs
// follow by descending ratio.
//
// Ratios are sampled once, without locking, so the order is a best-effort hint.
func PriorityOrder[C candidate](inputs []C) []int {
	if len(inputs) == 0 {
		return nil
	}

	ratios := make([]float64, len(inputs))
	best := 0
	for i, in := range inputs {
		ratios[i] = in.OccupancyRatio()
		if ratios[i] > ratios[best] {
			best = i
		}
	}

	preferred := best
	if ratios[best] == 0 {
		preferred = 0
		for i := len(inputs) - 1; i > 0; i-- {
			if inputs[i].HasUpstreamFeeder() {
				preferred = i
				break
			}
		}
	}

	order := make([]int, 0, len(inputs))
	for i := range inputs {
		if i != preferred {
			order = append(order, i)
		}
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(ratios[b], ratios[a])
	})
	return append([]int{preferred}, order...)
}

// RotationCost returns the simulated time to turn from one port to face another. Ports on the same axis are already
// aligned; any other turn is a single 90 degree unit.
func RotationCost(from, to types.Port, unit time.Duration) time.Duration {
	if from.SameAlignment(to) {
		return 0
	}
	return unit
}
