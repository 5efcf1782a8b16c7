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

import "github.com/rulego/streamopt/types"

const mb = 1 << 20

// rung returns the index of the first bound v falls below, or len(bounds).
func rung(v float64, bounds ...float64) int {
	for i, b := range bounds {
		if v < b {
			return i
		}
	}
	return len(bounds)
}

func classifyDataSize(bytes int64) types.DataSize {
	return types.DataSize(rung(float64(bytes), 10*mb, 100*mb, 1024*mb))
}

func classifyComplexity(avgRecordMs float64) types.Complexity {
	return types.Complexity(rung(avgRecordMs, 0.1, 1))
}

func classifyIO(throughput float64) types.IOPattern {
	return types.IOPattern(rung(throughput, 1000, 10000))
}

func classifyMemory(percent float64) types.MemoryPressure {
	return types.MemoryPressure(rung(percent, 50, 70, 85))
}

func classifyConcurrency(utilization float64) types.ConcurrencyLevel {
	return types.ConcurrencyLevel(rung(utilization, 30, 70))
}

func classifyErrorRate(percent float64) types.ErrorRateLevel {
	if percent <= 0 {
		return types.ErrorRateNone
	}
	return types.ErrorRateLevel(1 + rung(percent, 1, 5))
}

// Classify derives the workload characteristics of a dashboard sample.
func Classify(m types.DashboardMetrics) types.WorkloadCharacteristics {
	return types.WorkloadCharacteristics{
		DataSize:       classifyDataSize(m.Performance.BytesProcessed),
		Complexity:     classifyComplexity(m.Performance.AvgRecordTimeMs),
		IOPattern:      classifyIO(m.Performance.Throughput),
		MemoryPressure: classifyMemory(m.System.MemoryPercent),
		Concurrency:    classifyConcurrency(m.Performance.WorkerUtilization),
		ErrorRate:      classifyErrorRate(m.Performance.ErrorRate),
	}
}
