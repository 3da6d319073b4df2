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

package conveyor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/types"
)

func newTestConveyor(t *testing.T, capacity int) *Conveyor {
	t.Helper()
	c, err := New(1, capacity, logr.Discard())
	require.NoError(t, err, "New should not fail for a positive capacity")
	return c
}

// insert runs one full insertion critical section.
func insert(t *testing.T, c *Conveyor, category string) {
	t.Helper()
	c.AcquireInsertion()
	require.NoError(t, c.Append(types.NewItem(category)))
	c.ReleaseInsertion()
}

func TestNew(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		capacity  int
		expectErr bool
	}{
		{name: "Positive", capacity: 3},
		{name: "Zero_Invalid", capacity: 0, expectErr: true},
		{name: "Negative_Invalid", capacity: -2, expectErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c, err := New(7, tc.capacity, logr.Discard())
			if tc.expectErr {
				require.ErrorIs(t, err, types.ErrInvalidCapacity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 7, c.ID())
			assert.Equal(t, tc.capacity, c.Capacity())
			assert.True(t, c.IsEmpty())
			assert.True(t, c.IsWaitingForMore(), "a new conveyor expects items")
			assert.True(t, c.IsViable())
			assert.False(t, c.HasUpstreamFeeder())
		})
	}
}

func TestConveyor_Destinations(t *testing.T) {
	t.Parallel()
	c := newTestConveyor(t, 1)

	c.AddDestination(3)
	c.AddDestination(1)
	c.AddDestination(3)

	assert.Equal(t, []int{1, 3}, c.Destinations())
	assert.True(t, c.HasDestination(1))
	assert.False(t, c.HasDestination(2))
}

func TestConveyor_InsertExtractOrder(t *testing.T) {
	t.Parallel()
	c := newTestConveyor(t, 3)

	insert(t, c, "a")
	insert(t, c, "b")
	assert.Equal(t, 2, c.Len())
	assert.InDelta(t, 2.0/3.0, c.OccupancyRatio(), 1e-9)

	c.AcquireExtraction()
	front, err := c.Peek()
	require.NoError(t, err)
	assert.Equal(t, "a", front.Category())
	removed, err := c.RemoveFront()
	require.NoError(t, err)
	assert.Equal(t, front, removed)
	c.ReleaseExtraction()

	assert.Equal(t, []types.Item{types.NewItem("b")}, c.Items())
}

func TestConveyor_PeekEmptyIsRecoverable(t *testing.T) {
	t.Parallel()
	c := newTestConveyor(t, 1)

	_, err := c.Peek()
	require.ErrorIs(t, err, types.ErrIndexOutOfRange)
	_, err = c.RemoveFront()
	require.ErrorIs(t, err, types.ErrIndexOutOfRange)
}

func TestConveyor_TryAcquireExtraction(t *testing.T) {
	t.Parallel()
	c := newTestConveyor(t, 2)

	assert.False(t, c.TryAcquireExtraction(), "nothing to extract from an empty conveyor")

	insert(t, c, "a")
	require.True(t, c.TryAcquireExtraction())
	_, err := c.RemoveFront()
	require.NoError(t, err)
	c.ReleaseExtraction()

	assert.False(t, c.TryAcquireExtraction(), "the only filled permit was consumed")
}

func TestConveyor_AbortInsertionReturnsFreeSlot(t *testing.T) {
	t.Parallel()
	c := newTestConveyor(t, 1)

	c.AcquireInsertion()
	c.AbortInsertion()

	assert.False(t, c.TryAcquireExtraction(), "an aborted insertion publishes nothing")

	done := make(chan struct{})
	go func() {
		insert(t, c, "a")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("the free slot returned by AbortInsertion was lost")
	}
}

func TestConveyor_TransferFront(t *testing.T) {
	t.Parallel()
	src := newTestConveyor(t, 2)
	dst := newTestConveyor(t, 1)
	insert(t, src, "a")

	src.AcquireExtraction()
	dst.AcquireInsertion()
	item, err := dst.TransferFront(src)
	dst.ReleaseInsertion()
	src.ReleaseExtraction()

	require.NoError(t, err)
	assert.Equal(t, "a", item.Category())
	assert.Equal(t, 0, src.Len())
	assert.Equal(t, 1, dst.Len())
}

func TestConveyor_MarkDoneIsMonotonic(t *testing.T) {
	t.Parallel()
	c := newTestConveyor(t, 1)

	c.MarkDone()
	c.MarkDone()
	assert.False(t, c.IsWaitingForMore())
	assert.False(t, c.IsViable(), "an empty conveyor that expects nothing more is not viable")

	insert(t, c, "a")
	assert.False(t, c.IsWaitingForMore(), "inserting an item never re-arms the flag")
	assert.True(t, c.IsViable(), "a non-empty conveyor stays viable")
}

func TestConveyor_ShutdownWakesExactlyOneExtractor(t *testing.T) {
	t.Parallel()
	c := newTestConveyor(t, 2)

	var woken atomic.Int32
	var sawDone atomic.Int32
	for range 2 {
		go func() {
			c.AcquireExtraction()
			woken.Add(1)
			if !c.IsWaitingForMore() && c.IsEmpty() {
				sawDone.Add(1)
			}
			c.ReleaseExtraction()
		}()
	}
	// Let both extractors block on the filled-slot permit.
	time.Sleep(20 * time.Millisecond)

	c.Shutdown()

	require.Eventually(t, func() bool { return woken.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	// The second extractor stays blocked: shutdown is not a broadcast.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), woken.Load())
	assert.Equal(t, int32(1), sawDone.Load(), "the woken extractor must observe the done mark")

	c.StopProducing()
	require.Eventually(t, func() bool { return woken.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestConveyor_ShutdownWakesBlockedInserter(t *testing.T) {
	t.Parallel()
	c := newTestConveyor(t, 1)
	insert(t, c, "a")

	acquired := make(chan struct{})
	go func() {
		c.AcquireInsertion()
		close(acquired)
		c.AbortInsertion()
	}()

	select {
	case <-acquired:
		t.Fatal("an inserter acquired a slot on a full conveyor")
	case <-time.After(20 * time.Millisecond):
	}

	c.Shutdown()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not release the blocked inserter")
	}
}

func TestConveyor_WatchFilled(t *testing.T) {
	t.Parallel()
	c := newTestConveyor(t, 2)
	wake := make(chan struct{}, 1)
	c.WatchFilled(wake)

	insert(t, c, "a")
	select {
	case <-wake:
	default:
		t.Fatal("watcher was not signalled by an insertion")
	}

	c.StopProducing()
	select {
	case <-wake:
	default:
		t.Fatal("watcher was not signalled by StopProducing")
	}
}

func TestConveyor_CapacityInvariantUnderContention(t *testing.T) {
	t.Parallel()
	const (
		capacity  = 3
		producers = 4
		perWorker = 50
	)
	c := newTestConveyor(t, capacity)

	var maxSeen atomic.Int64
	observe := func() {
		n := int64(c.items.Len())
		for {
			cur := maxSeen.Load()
			if n <= cur || maxSeen.CompareAndSwap(cur, n) {
				return
			}
		}
	}

	var wg sync.WaitGroup
	for range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				c.AcquireInsertion()
				assert.NoError(t, c.Append(types.NewItem("x")))
				observe()
				c.ReleaseInsertion()
			}
		}()
	}

	var consumed atomic.Int64
	var cwg sync.WaitGroup
	for range 2 {
		cwg.Add(1)
		go func() {
			defer cwg.Done()
			for consumed.Load() < producers*perWorker {
				if !c.TryAcquireExtraction() {
					time.Sleep(time.Microsecond)
					continue
				}
				observe()
				_, err := c.RemoveFront()
				assert.NoError(t, err, "a filled permit guarantees a visible item")
				consumed.Add(1)
				c.ReleaseExtraction()
			}
		}()
	}

	wg.Wait()
	cwg.Wait()
	assert.Equal(t, int64(producers*perWorker), consumed.Load())
	assert.LessOrEqual(t, maxSeen.Load(), int64(capacity))
	assert.True(t, c.IsEmpty())
}
