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

import "sync"

// semaphore is a counting semaphore whose release is never bounded by the initial count.
//
// Shutdown releases a permit nobody acquired, so the count may legitimately exceed its starting value. Each release
// wakes at most one blocked acquirer and pokes every registered watcher without blocking.
type semaphore struct {
	mu       sync.Mutex
	cond     *sync.Cond
	permits  int
	watchers []chan<- struct{}
}

func newSemaphore(permits int) *semaphore {
	s := &semaphore{permits: permits}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// acquire blocks until a permit is available and takes it.
func (s *semaphore) acquire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.permits == 0 {
		s.cond.Wait()
	}
	s.permits--
}

// tryAcquire takes a permit if one is available, without blocking.
func (s *semaphore) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.permits == 0 {
		return false
	}
	s.permits--
	return true
}

// release returns one permit.
func (s *semaphore) release() {
	s.mu.Lock()
	s.permits++
	watchers := s.watchers
	s.mu.Unlock()

	s.cond.Signal()
	for _, w := range watchers {
		select {
		case w <- struct{}{}:
		default:
		}
	}
}

// available returns the number of permits that could be acquired right now.
func (s *semaphore) available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permits
}

// watch registers ch to be signalled on every release. ch should be buffered; a full channel is skipped.
func (s *semaphore) watch(ch chan<- struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, ch)
}
