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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemaphore_TryAcquire(t *testing.T) {
	t.Parallel()
	s := newSemaphore(1)

	assert.True(t, s.tryAcquire(), "first tryAcquire should take the only permit")
	assert.False(t, s.tryAcquire(), "second tryAcquire should find no permit")
	assert.Equal(t, 0, s.available())
}

func TestSemaphore_ReleaseBeyondInitialCount(t *testing.T) {
	t.Parallel()
	s := newSemaphore(0)

	s.release()
	s.release()
	assert.Equal(t, 2, s.available(), "release must not be capped by the initial count")
}

func TestSemaphore_ReleaseWakesOneAcquirer(t *testing.T) {
	t.Parallel()
	s := newSemaphore(0)

	woken := make(chan int, 2)
	for i := range 2 {
		go func() {
			s.acquire()
			woken <- i
		}()
	}

	s.release()
	select {
	case <-woken:
	case <-time.After(2 * time.Second):
		t.Fatal("release did not wake a blocked acquirer")
	}

	select {
	case id := <-woken:
		t.Fatalf("acquirer %d woke without a second release", id)
	case <-time.After(50 * time.Millisecond):
	}

	s.release()
	select {
	case <-woken:
	case <-time.After(2 * time.Second):
		t.Fatal("second release did not wake the remaining acquirer")
	}
}

func TestSemaphore_WatchersArePokedWithoutBlocking(t *testing.T) {
	t.Parallel()
	s := newSemaphore(0)
	ch := make(chan struct{}, 1)
	s.watch(ch)

	// The second release finds the channel full and must not block.
	s.release()
	s.release()

	require.Len(t, ch, 1)
	<-ch
	assert.Equal(t, 2, s.available())
}
