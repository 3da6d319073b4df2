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

package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/machine"
	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/router"
)

func snapshot(dropped int) machine.Snapshot {
	return machine.Snapshot{
		Name:    "scenario5.txt",
		RunID:   "4f9c2c1e-0000-4000-8000-000000000000",
		Elapsed: 42*time.Second + 700*time.Millisecond,
		Feeders: []machine.FeederSnapshot{
			{ID: 1, Loaded: 10, Remaining: 2, Deposited: 8, WaitTime: 3500 * time.Millisecond},
			{ID: 2, Loaded: 5, Remaining: 0, Deposited: 5},
		},
		Conveyors: []machine.ConveyorSnapshot{{ID: 1, Occupancy: 1}, {ID: 2, Occupancy: 2}},
		Bins:      []machine.BinSnapshot{{ID: 1, TotalEverStored: 6}, {ID: 2, TotalEverStored: 4 - dropped}},
		Routers:   []machine.RouterSnapshot{{ID: "A", Stats: router.Stats{Dropped: dropped}}},
	}
}

func TestInterim(t *testing.T) {
	t.Parallel()
	var b strings.Builder
	require.NoError(t, Interim(&b, snapshot(0)))

	want := `
Interim Report @ 42s:
2 presents remaining in hoppers;
10 presents sorted into sacks;
3 presents in the machine.

`
	if diff := cmp.Diff(want, b.String()); diff != "" {
		t.Errorf("Interim() mismatch (-want +got):\n%s", diff)
	}
}

func TestFinal(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		dropped int
		want    string
	}{
		{
			name: "NothingMissing",
			want: `

FINAL REPORT

Configuration: scenario5.txt
Run ID: 4f9c2c1e-0000-4000-8000-000000000000
Total Run Time 42s.
Hopper 1 deposited 8 presents and waited 3s.
Hopper 2 deposited 5 presents and waited 0s.


Out of 13 gifts deposited, 3 are still on the machine, and 10 made it into the sacks
0 gifts went missing.
`,
		},
		{
			name:    "DroppedItemsAreMissing",
			dropped: 1,
			want: `

FINAL REPORT

Configuration: scenario5.txt
Run ID: 4f9c2c1e-0000-4000-8000-000000000000
Total Run Time 42s.
Hopper 1 deposited 8 presents and waited 3s.
Hopper 2 deposited 5 presents and waited 0s.


Out of 13 gifts deposited, 3 are still on the machine, and 9 made it into the sacks
1 gifts had no route to their sack and were dropped.
1 gifts went missing.
`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var b strings.Builder
			require.NoError(t, Final(&b, snapshot(tc.dropped)))
			if diff := cmp.Diff(tc.want, b.String()); diff != "" {
				t.Errorf("Final() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLifecycleLines(t *testing.T) {
	t.Parallel()
	var b strings.Builder
	s := snapshot(0)
	require.NoError(t, Started(&b, s))
	s.Elapsed = 30*time.Second + 999*time.Millisecond
	require.NoError(t, InputStopped(&b, s))
	s.Elapsed = 33 * time.Second
	require.NoError(t, ShutdownComplete(&b, s))

	want := "Machine scenario5.txt will run with 15 presents (run 4f9c2c1e-0000-4000-8000-000000000000).\n" +
		"*** Machine Started ***\n" +
		"*** Input Stopped after 30s. ***\n" +
		"*** Machine completed shutdown after 33s. ***\n"
	if diff := cmp.Diff(want, b.String()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestReportsUseSimulatedTime(t *testing.T) {
	t.Parallel()
	// At a time scale of 0.01 every simulated second lasts 10ms on the clock.
	s := snapshot(0)
	s.TimeScale = 0.01
	s.Elapsed = 405 * time.Millisecond
	s.Feeders[0].WaitTime = 35 * time.Millisecond

	var b strings.Builder
	require.NoError(t, Interim(&b, s))
	require.NoError(t, InputStopped(&b, s))
	require.NoError(t, ShutdownComplete(&b, s))
	require.NoError(t, Final(&b, s))

	got := b.String()
	for _, want := range []string{
		"Interim Report @ 40s:",
		"*** Input Stopped after 40s. ***",
		"*** Machine completed shutdown after 40s. ***",
		"Total Run Time 40s.",
		"Hopper 1 deposited 8 presents and waited 3s.",
	} {
		require.Contains(t, got, want)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestFinal_WriteError(t *testing.T) {
	t.Parallel()
	require.EqualError(t, Final(failingWriter{}, snapshot(0)), "disk full")
}
