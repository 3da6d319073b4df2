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

// Package queue provides `FixedQueue`, the capacity-bounded positional container underlying every buffer in the
// sorting machine.
package queue

import (
	"fmt"

	"github.com/cchristou3/ChristmasConcurrencyConundrumSimulation/pkg/sorter/types"
)

// FixedQueue is a capacity-bounded FIFO that also supports index-based peek and removal.
//
// Elements occupy logical positions 0..Len()-1. Add appends at Len(); removing position i shifts every later element
// down by one, so relative order is always preserved.
//
// # Concurrency
//
// FixedQueue is NOT safe for concurrent use. Mutual exclusion is the responsibility of the owning component (the
// conveyor's exclusive-access token, the bin's mutex, or a feeder's single goroutine).
type FixedQueue[T any] struct {
	slots []T
	count int
}

// New creates an empty queue that holds at most capacity elements.
func New[T any](capacity int) (*FixedQueue[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w, but got %d", types.ErrInvalidCapacity, capacity)
	}
	return &FixedQueue[T]{slots: make([]T, capacity)}, nil
}

// Len returns the number of elements currently held.
func (q *FixedQueue[T]) Len() int {
	return q.count
}

// Cap returns the maximum number of elements the queue can hold.
func (q *FixedQueue[T]) Cap() int {
	return len(q.slots)
}

// IsEmpty reports whether the queue holds no elements.
func (q *FixedQueue[T]) IsEmpty() bool {
	return q.count == 0
}

// IsFull reports whether the queue is at capacity.
func (q *FixedQueue[T]) IsFull() bool {
	return q.count == len(q.slots)
}

// Add appends item at the back. It returns `types.ErrQueueFull` and leaves the queue unchanged when at capacity.
func (q *FixedQueue[T]) Add(item T) error {
	if q.IsFull() {
		return fmt.Errorf("%w: capacity %d", types.ErrQueueFull, len(q.slots))
	}
	q.slots[q.count] = item
	q.count++
	return nil
}

// Peek returns the element at position i without removing it.
func (q *FixedQueue[T]) Peek(i int) (T, error) {
	if err := q.checkIndex(i); err != nil {
		var zero T
		return zero, err
	}
	return q.slots[i], nil
}

// PeekFront returns the oldest element without removing it.
func (q *FixedQueue[T]) PeekFront() (T, error) {
	return q.Peek(0)
}

// Remove deletes and returns the element at position i, shifting later elements down by one.
func (q *FixedQueue[T]) Remove(i int) (T, error) {
	if err := q.checkIndex(i); err != nil {
		var zero T
		return zero, err
	}
	item := q.slots[i]
	copy(q.slots[i:q.count], q.slots[i+1:q.count])
	q.count--
	var zero T
	q.slots[q.count] = zero // Release the reference held by the vacated slot.
	return item, nil
}

// PopFront removes and returns the oldest element.
func (q *FixedQueue[T]) PopFront() (T, error) {
	return q.Remove(0)
}

// Items returns a copy of the held elements in order.
func (q *FixedQueue[T]) Items() []T {
	out := make([]T, q.count)
	copy(out, q.slots[:q.count])
	return out
}

// Reset discards every element.
func (q *FixedQueue[T]) Reset() {
	clear(q.slots[:q.count])
	q.count = 0
}

func (q *FixedQueue[T]) checkIndex(i int) error {
	if i < 0 || i >= q.count {
		return fmt.Errorf("%w: index %d, length %d", types.ErrIndexOutOfRange, i, q.count)
	}
	return nil
}
