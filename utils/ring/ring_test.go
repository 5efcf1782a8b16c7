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

package ring

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingOverwritesOldest(t *testing.T) {
	r := New[int](3)
	_, ok := r.Back()
	assert.False(t, ok)

	for i := 1; i <= 5; i++ {
		r.Push(i)
	}
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []int{3, 4, 5}, r.Items())
	assert.Equal(t, []int{4, 5}, r.Last(2))
	assert.Equal(t, []int{3, 4, 5}, r.Last(10))

	back, ok := r.Back()
	assert.True(t, ok)
	assert.Equal(t, 5, back)

	r.Reset()
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Items())
}

func TestRingMinimumSize(t *testing.T) {
	r := New[string](0)
	r.Push("a")
	r.Push("b")
	assert.Equal(t, 1, r.Cap())
	assert.Equal(t, []string{"b"}, r.Items())
}

func TestRingConcurrentPush(t *testing.T) {
	r := New[int](50)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.Push(i)
				r.Last(5)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, r.Len())
}
