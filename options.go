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

package streamopt

import "github.com/rulego/streamopt/adaptive"

// WithProfile starts from the settings of the named built-in or
// registered profile instead of the defaults.
//
// Example:
//
//	e := streamopt.New(streamopt.WithProfile(adaptive.ProfileLargeDataset))
func WithProfile(name string) Option {
	return func(e *Engine) {
		e.startProfile = name
	}
}

// WithHighThroughput starts from the large-dataset profile: big batches,
// a large memory ceiling and more workers.
func WithHighThroughput() Option {
	return WithProfile(adaptive.ProfileLargeDataset)
}

// WithLowMemory starts from the memory-constrained profile: small batches,
// a 128 MiB ceiling and no caching.
func WithLowMemory() Option {
	return WithProfile(adaptive.ProfileMemoryConstrained)
}

// WithSmallFiles starts from the small-fast profile.
func WithSmallFiles() Option {
	return WithProfile(adaptive.ProfileSmallFast)
}
