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

package adaptive

import (
	"time"

	"github.com/rulego/streamopt/types"
)

// Built-in profile names.
const (
	ProfileSmallFast         = "small-fast"
	ProfileLargeDataset      = "large-dataset"
	ProfileMemoryConstrained = "memory-constrained"
	ProfileHighConcurrency   = "high-concurrency"
	ProfileErrorRecovery     = "error-recovery"
)

// BuiltinProfiles returns the profiles every manager starts with.
func BuiltinProfiles() []types.PerformanceProfile {
	base := types.DefaultSettings()

	small := base
	small.MaxWorkers = 4
	small.MemoryLimitMB = 256
	small.JSONBatchSize = 500
	small.SpreadsheetBatchSize = 250
	small.ColumnarBatchSize = 1000
	small.StreamConcurrency = 2
	small.OperationTimeout = 30 * time.Second

	large := base
	large.MaxWorkers = 8
	large.MemoryLimitMB = 2048
	large.JSONBatchSize = 5000
	large.SpreadsheetBatchSize = 2000
	large.ColumnarBatchSize = 10000
	large.StreamConcurrency = 8
	large.OperationTimeout = 300 * time.Second

	constrained := base
	constrained.MaxWorkers = 2
	constrained.MemoryLimitMB = 128
	constrained.JSONBatchSize = 200
	constrained.SpreadsheetBatchSize = 100
	constrained.ColumnarBatchSize = 500
	constrained.StreamConcurrency = 1
	constrained.EnableCaching = false

	concurrent := base
	concurrent.MaxWorkers = 16
	concurrent.MemoryLimitMB = 1024
	concurrent.JSONBatchSize = 2000
	concurrent.ColumnarBatchSize = 4000
	concurrent.StreamConcurrency = 8

	recovery := base
	recovery.MaxWorkers = 4
	recovery.RetryAttempts = 5
	recovery.RetryDelay = 2 * time.Second
	recovery.CircuitBreakerThreshold = 10
	recovery.CircuitBreakerTimeout = 120 * time.Second
	recovery.OperationTimeout = 120 * time.Second

	return []types.PerformanceProfile{
		{
			Name:        ProfileSmallFast,
			Description: "Small, simple inputs with plenty of memory",
			Target: types.WorkloadMatch{
				DataSize:       types.Ptr(types.DataSizeSmall),
				Complexity:     types.Ptr(types.ComplexitySimple),
				MemoryPressure: types.Ptr(types.MemoryPressureLow),
			},
			Settings: types.Validate(small),
			Priority: 1,
		},
		{
			Name:        ProfileLargeDataset,
			Description: "Large inputs read at high throughput",
			Target: types.WorkloadMatch{
				DataSize:       types.Ptr(types.DataSizeLarge),
				IOPattern:      types.Ptr(types.IOIntensive),
				MemoryPressure: types.Ptr(types.MemoryPressureMedium),
				Concurrency:    types.Ptr(types.ConcurrencyHigh),
			},
			Settings: types.Validate(large),
			Priority: 2,
		},
		{
			Name:        ProfileMemoryConstrained,
			Description: "Memory close to the ceiling",
			Target: types.WorkloadMatch{
				MemoryPressure: types.Ptr(types.MemoryPressureCritical),
			},
			Settings: types.Validate(constrained),
			Priority: 10,
		},
		{
			Name:        ProfileHighConcurrency,
			Description: "Saturated worker pool with memory to spare",
			Target: types.WorkloadMatch{
				IOPattern:      types.Ptr(types.IOIntensive),
				MemoryPressure: types.Ptr(types.MemoryPressureLow),
				Concurrency:    types.Ptr(types.ConcurrencyHigh),
			},
			Settings: types.Validate(concurrent),
			Priority: 3,
		},
		{
			Name:        ProfileErrorRecovery,
			Description: "High error rate, favour retries and tolerant breakers",
			Target: types.WorkloadMatch{
				ErrorRate: types.Ptr(types.ErrorRateHigh),
			},
			Settings: types.Validate(recovery),
			Priority: 8,
		},
	}
}

// MatchProfile returns the best scoring profile for w with a score of at
// least threshold. Ties go to the higher priority, then to the earlier
// profile.
func MatchProfile(profiles []types.PerformanceProfile, w types.WorkloadCharacteristics, threshold float64) (types.PerformanceProfile, float64, bool) {
	var (
		best      types.PerformanceProfile
		bestScore float64
		found     bool
	)
	for _, p := range profiles {
		score := p.Target.Score(w)
		if score < threshold {
			continue
		}
		if !found || score > bestScore || (score == bestScore && p.Priority > best.Priority) {
			best, bestScore, found = p, score, true
		}
	}
	return best, bestScore, found
}
