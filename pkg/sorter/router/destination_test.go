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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/types"
)

func TestDestinationTable(t *testing.T) {
	t.Parallel()
	b := NewDestinationTableBuilder()
	require.NoError(t, b.RegisterDestination("0-3", 1))
	require.NoError(t, b.RegisterDestination("4-6", 2))
	require.NoError(t, b.RegisterDestination("0-3", 1), "re-registering the same pair is allowed")

	err := b.RegisterDestination("0-3", 2)
	require.ErrorIs(t, err, types.ErrDuplicateDestination)

	table := b.Build()
	require.NoError(t, b.RegisterDestination("7-10", 3))

	id, ok := table.Lookup("4-6")
	assert.True(t, ok)
	assert.Equal(t, 2, id)
	_, ok = table.Lookup("7-10")
	assert.False(t, ok, "registrations after Build do not leak into the built table")
	assert.Equal(t, []string{"0-3", "4-6"}, table.Categories())
	assert.Equal(t, 2, table.Len())

	var nilTable *DestinationTable
	_, ok = nilTable.Lookup("0-3")
	assert.False(t, ok)
}
