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
	"slices"
	"strings"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/types"
)

// Validate checks that t describes a machine that can run to completion: every reference resolves, every conveyor
// has exactly one producer and one consumer, and no item can travel in a circle. All problems are reported together
// in an error wrapping types.ErrInvalidTopology.
func Validate(t *Topology) error {
	v := &validator{
		t:         t,
		conveyors: sets.New[int](),
		bins:      sets.New[int](),
		producers: make(map[int][]string),
		consumers: make(map[int][]string),
	}
	v.checkConveyors()
	v.checkBins()
	v.checkConveyorDestinations()
	v.checkFeeders()
	v.checkRouters()
	v.checkWiring()
	v.checkAcyclic()
	if t.DurationSeconds <= 0 {
		v.addf("duration must be positive, got %ds", t.DurationSeconds)
	}

	if len(v.errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", types.ErrInvalidTopology, utilerrors.NewAggregate(v.errs))
}

type validator struct {
	t    *Topology
	errs []error

	conveyors sets.Set[int]
	bins      sets.Set[int]
	// producers and consumers name who puts items onto and takes items off each conveyor.
	producers map[int][]string
	consumers map[int][]string
}

func (v *validator) addf(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) checkConveyors() {
	for _, c := range v.t.Conveyors {
		if v.conveyors.Has(c.ID) {
			v.addf("conveyor %d: duplicate id", c.ID)
			continue
		}
		v.conveyors.Insert(c.ID)
		if c.Length <= 0 {
			v.addf("conveyor %d: length must be positive, got %d", c.ID, c.Length)
		}
	}
}

func (v *validator) checkBins() {
	categories := make(map[string]int)
	for _, b := range v.t.Bins {
		if v.bins.Has(b.ID) {
			v.addf("bin %d: duplicate id", b.ID)
			continue
		}
		v.bins.Insert(b.ID)
		if b.Capacity <= 0 {
			v.addf("bin %d: capacity must be positive, got %d", b.ID, b.Capacity)
		}
		if b.Category == "" {
			v.addf("bin %d: category must not be empty", b.ID)
			continue
		}
		if other, ok := categories[b.Category]; ok {
			v.addf("bin %d: %v: %q is collected by bin %d", b.ID, types.ErrDuplicateDestination, b.Category, other)
			continue
		}
		categories[b.Category] = b.ID
	}
}

func (v *validator) checkConveyorDestinations() {
	for _, c := range v.t.Conveyors {
		for _, d := range c.Destinations {
			if !v.bins.Has(d) {
				v.addf("conveyor %d: destination bin %d does not exist", c.ID, d)
			}
		}
	}
}

func (v *validator) checkFeeders() {
	seen := sets.New[int]()
	for _, f := range v.t.Feeders {
		if seen.Has(f.ID) {
			v.addf("feeder %d: duplicate id", f.ID)
			continue
		}
		seen.Insert(f.ID)
		if f.Capacity <= 0 {
			v.addf("feeder %d: capacity must be positive, got %d", f.ID, f.Capacity)
		}
		if f.Rate < 1 {
			v.addf("feeder %d: rate must be at least 1, got %d", f.ID, f.Rate)
		}
		if len(f.Items) > f.Capacity {
			v.addf("feeder %d: %d items exceed capacity %d", f.ID, len(f.Items), f.Capacity)
		}
		for i, item := range f.Items {
			if item == "" {
				v.addf("feeder %d: item %d has an empty category", f.ID, i)
			}
		}
		if !v.conveyors.Has(f.Conveyor) {
			v.addf("feeder %d: conveyor %d does not exist", f.ID, f.Conveyor)
			continue
		}
		v.producers[f.Conveyor] = append(v.producers[f.Conveyor], fmt.Sprintf("feeder %d", f.ID))
	}
}

func (v *validator) checkRouters() {
	seen := sets.New[string]()
	for _, r := range v.t.Routers {
		if r.ID == "" {
			v.addf("router with empty id")
		} else if seen.Has(r.ID) {
			v.addf("router %s: duplicate id", r.ID)
			continue
		}
		seen.Insert(r.ID)

		inputs, outputs := 0, 0
		for _, port := range types.AllPorts {
			e := r.Endpoint(port)
			if e == nil {
				continue
			}
			name := fmt.Sprintf("router %s port %s", r.ID, port)
			switch e.Kind {
			case KindInput:
				inputs++
				if !v.conveyors.Has(e.Ref) {
					v.addf("%s: conveyor %d does not exist", name, e.Ref)
					continue
				}
				v.consumers[e.Ref] = append(v.consumers[e.Ref], "router "+r.ID)
			case KindOutput:
				outputs++
				if !v.conveyors.Has(e.Ref) {
					v.addf("%s: conveyor %d does not exist", name, e.Ref)
					continue
				}
				v.producers[e.Ref] = append(v.producers[e.Ref], "router "+r.ID)
			case KindBin:
				outputs++
				if !v.bins.Has(e.Ref) {
					v.addf("%s: bin %d does not exist", name, e.Ref)
				}
			default:
				v.addf("%s: unknown connection kind %q", name, e.Kind)
			}
		}
		if inputs == 0 {
			v.addf("router %s: has no input", r.ID)
		}
		if outputs == 0 {
			v.addf("router %s: has no output", r.ID)
		}
	}
}

// checkWiring requires exactly one producer and one consumer per conveyor. A conveyor nobody drains blocks its
// producer forever; one nobody fills never signals its consumer to stop.
func (v *validator) checkWiring() {
	for _, c := range v.t.Conveyors {
		switch p := v.producers[c.ID]; len(p) {
		case 1:
		case 0:
			v.addf("conveyor %d: has no producer", c.ID)
		default:
			v.addf("conveyor %d: has several producers: %s", c.ID, strings.Join(p, ", "))
		}
		switch cs := v.consumers[c.ID]; len(cs) {
		case 1:
		case 0:
			v.addf("conveyor %d: has no consumer", c.ID)
		default:
			v.addf("conveyor %d: has several consumers: %s", c.ID, strings.Join(cs, ", "))
		}
	}
}

// checkAcyclic rejects any loop of routers connected by conveyors.
func (v *validator) checkAcyclic() {
	producedBy := make(map[int]string)
	for _, r := range v.t.Routers {
		for _, port := range types.AllPorts {
			if e := r.Endpoint(port); e != nil && e.Kind == KindOutput {
				producedBy[e.Ref] = r.ID
			}
		}
	}
	// downstream[a] lists the routers that take items a puts on a conveyor.
	downstream := make(map[string][]string)
	for _, r := range v.t.Routers {
		for _, port := range types.AllPorts {
			if e := r.Endpoint(port); e != nil && e.Kind == KindInput {
				if up, ok := producedBy[e.Ref]; ok {
					downstream[up] = append(downstream[up], r.ID)
				}
			}
		}
	}

	const (
		unvisited = iota
		inProgress
		finished
	)
	state := make(map[string]int)
	var visit func(id string, path []string) bool
	visit = func(id string, path []string) bool {
		switch state[id] {
		case inProgress:
			v.addf("routers form a cycle: %s", strings.Join(append(path, id), " -> "))
			return true
		case finished:
			return false
		}
		state[id] = inProgress
		for _, next := range downstream[id] {
			if visit(next, append(slices.Clip(path), id)) {
				return true
			}
		}
		state[id] = finished
		return false
	}
	for _, r := range v.t.Routers {
		if state[r.ID] == unvisited && visit(r.ID, nil) {
			return
		}
	}
}
