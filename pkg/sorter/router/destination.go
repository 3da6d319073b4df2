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
	"fmt"
	"maps"
	"slices"

	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/types"
)

// DestinationTableBuilder collects category to bin registrations while a topology is assembled.
type DestinationTableBuilder struct {
	entries map[string]int
}

// NewDestinationTableBuilder returns an empty builder.
func NewDestinationTableBuilder() *DestinationTableBuilder {
	return &DestinationTableBuilder{entries: make(map[string]int)}
}

// RegisterDestination routes items of category to the bin with binID. Registering the same pair twice is a no-op;
// registering a category against a second bin fails with types.ErrDuplicateDestination.
func (b *DestinationTableBuilder) RegisterDestination(category string, binID int) error {
	if existing, ok := b.entries[category]; ok && existing != binID {
		return fmt.Errorf("%w: category %q already routes to bin %d, cannot route to bin %d",
			types.ErrDuplicateDestination, category, existing, binID)
	}
	b.entries[category] = binID
	return nil
}

// Build freezes the registrations into a DestinationTable. The builder may keep being used; later registrations do
// not affect tables already built.
func (b *DestinationTableBuilder) Build() *DestinationTable {
	return &DestinationTable{entries: maps.Clone(b.entries)}
}

// DestinationTable maps item categories to bin identities. It is immutable and safe for concurrent reads by every
// router.
type DestinationTable struct {
	entries map[string]int
}

// Lookup returns the bin registered for category.
func (t *DestinationTable) Lookup(category string) (int, bool) {
	if t == nil {
		return 0, false
	}
	id, ok := t.entries[category]
	return id, ok
}

// Categories returns the registered categories in ascending order.
func (t *DestinationTable) Categories() []string {
	if t == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(t.entries))
}

// Len returns the number of registered categories.
func (t *DestinationTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}
