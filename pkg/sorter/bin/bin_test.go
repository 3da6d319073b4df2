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

package bin

import (
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testclock "k8s.io/utils/clock/testing"

	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/config"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/types"
)

func TestNew_InvalidCapacity(t *testing.T) {
	t.Parallel()
	cfg, err := config.NewConfig()
	require.NoError(t, err)

	_, err = New(1, 0, cfg, logr.Discard())
	require.ErrorIs(t, err, types.ErrInvalidCapacity)
}

func TestBin_Deposit(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name             string
		capacity         int
		deposits         int
		wantLen          int
		wantReplacements int
		wantElapsed      time.Duration
	}{
		{name: "BelowCapacity", capacity: 10, deposits: 3, wantLen: 3},
		{name: "ExactlyFull_NoReplaceYet", capacity: 2, deposits: 2, wantLen: 2},
		{name: "CapacityOne_TwoItems", capacity: 1, deposits: 2, wantLen: 1, wantReplacements: 1, wantElapsed: 100 * time.Millisecond},
		{name: "SeveralCycles", capacity: 3, deposits: 10, wantLen: 1, wantReplacements: 3, wantElapsed: 300 * time.Millisecond},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := config.NewConfig()
			require.NoError(t, err)
			start := time.Unix(0, 0)
			clk := testclock.NewFakeClock(start)

			b, err := New(4, tc.capacity, cfg, logr.Discard(), WithClock(clk))
			require.NoError(t, err)

			for range tc.deposits {
				b.Deposit(types.NewItem("0-3"))
			}

			assert.Equal(t, tc.deposits, b.TotalEverStored(), "totalEverStored survives replacement")
			assert.Equal(t, tc.wantLen, b.Len())
			assert.Equal(t, tc.wantReplacements, b.Replacements())
			assert.Equal(t, tc.wantElapsed, clk.Since(start), "each replacement costs the configured delay")
		})
	}
}

func TestBin_ConcurrentDeposits(t *testing.T) {
	t.Parallel()
	cfg, err := config.NewConfig(config.WithBinReplaceDelay(0))
	require.NoError(t, err)
	b, err := New(1, 4, cfg, logr.Discard())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 25 {
				b.Deposit(types.NewItem("x"))
				assert.LessOrEqual(t, b.Len(), b.Capacity())
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 200, b.TotalEverStored())
	assert.Equal(t, 4, b.Len())
	assert.Equal(t, 49, b.Replacements())
}
