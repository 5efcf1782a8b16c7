/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package ring provides a bounded history buffer. Pushing into a full ring
// overwrites the oldest element.
package ring

import "sync"

// Ring is a fixed-capacity circular buffer safe for concurrent use.
type Ring[T any] struct {
	mu    sync.RWMutex
	data  []T
	head  int // index of the oldest element
	count int
}

// New creates a ring holding at most size elements. Sizes below 1 are
// raised to 1.
func New[T any](size int) *Ring[T] {
	if size < 1 {
		size = 1
	}
	return &Ring[T]{data: make([]T, size)}
}

// Push appends x, evicting the oldest element when full.
func (r *Ring[T]) Push(x T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tail := (r.head + r.count) % len(r.data)
	r.data[tail] = x
	if r.count == len(r.data) {
		r.head = (r.head + 1) % len(r.data)
		return
	}
	r.count++
}

// Len returns the number of stored elements.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Cap returns the capacity.
func (r *Ring[T]) Cap() int {
	return len(r.data)
}

// Items returns a copy of the elements, oldest first.
func (r *Ring[T]) Items() []T {
	return r.Last(-1)
}

// Last returns a copy of the newest n elements, oldest first. A negative n
// returns everything.
func (r *Ring[T]) Last(n int) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n < 0 || n > r.count {
		n = r.count
	}
	out := make([]T, n)
	start := r.head + r.count - n
	for i := 0; i < n; i++ {
		out[i] = r.data[(start+i)%len(r.data)]
	}
	return out
}

// Back returns the newest element.
func (r *Ring[T]) Back() (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var zero T
	if r.count == 0 {
		return zero, false
	}
	return r.data[(r.head+r.count-1)%len(r.data)], true
}

// Reset drops every element without releasing the backing array.
func (r *Ring[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	for i := range r.data {
		r.data[i] = zero
	}
	r.head, r.count = 0, 0
}
