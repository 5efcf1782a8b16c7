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
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/rulego/streamopt/types"
)

// PerformanceTrend is the direction of performance between the last two
// samples.
type PerformanceTrend string

const (
	TrendImproving  PerformanceTrend = "improving"
	TrendStable     PerformanceTrend = "stable"
	TrendDegrading  PerformanceTrend = "degrading"
	TrendSuboptimal PerformanceTrend = "suboptimal"
)

const (
	// trendChange is the relative change that counts as movement
	trendChange = 0.1
	// memory and response time beyond which performance is suboptimal
	suboptimalMemoryPercent = 80
	suboptimalResponseMs    = 5000
)

// ClassifyTrend compares two consecutive samples. Falling throughput,
// slower reads or more errors degrade; the reverse improves. A sample with
// memory above 80% or reads slower than 5s is suboptimal regardless.
func ClassifyTrend(prev, last types.DashboardMetrics) PerformanceTrend {
	if last.System.MemoryPercent > suboptimalMemoryPercent || last.Performance.AvgExecutionTimeMs > suboptimalResponseMs {
		return TrendSuboptimal
	}
	worse, better := 0, 0
	tally := func(before, after float64, higherIsWorse bool) {
		change := relativeChange(before, after)
		if math.Abs(change) < trendChange {
			return
		}
		if (change > 0) == higherIsWorse {
			worse++
		} else {
			better++
		}
	}
	tally(prev.Performance.Throughput, last.Performance.Throughput, false)
	tally(prev.Performance.AvgExecutionTimeMs, last.Performance.AvgExecutionTimeMs, true)
	tally(prev.Performance.ErrorRate, last.Performance.ErrorRate, true)
	switch {
	case worse > better:
		return TrendDegrading
	case better > worse:
		return TrendImproving
	}
	return TrendStable
}

func relativeChange(before, after float64) float64 {
	switch {
	case before != 0:
		return (after - before) / math.Abs(before)
	case after != 0:
		return math.Copysign(1, after)
	}
	return 0
}

// CoefficientOfVariation returns stddev/mean of values. A zero mean yields
// 0 when every value is zero and +Inf otherwise.
func CoefficientOfVariation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean, _ := stats.Mean(values)
	sd, _ := stats.StandardDeviation(values)
	if mean == 0 {
		if sd == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return sd / math.Abs(mean)
}

// Synthesize derives target settings from a workload when no profile
// matches. Knobs the workload says nothing about keep their current value.
func Synthesize(w types.WorkloadCharacteristics, current types.Settings, m types.DashboardMetrics, numCPU int) types.Settings {
	if numCPU < 1 {
		numCPU = 1
	}
	target := current

	workers := float64(numCPU)
	switch w.Concurrency {
	case types.ConcurrencyLow:
		workers /= 2
	case types.ConcurrencyHigh:
		workers *= 2
	}
	pressure := 1.0
	switch w.MemoryPressure {
	case types.MemoryPressureHigh:
		pressure = 0.75
	case types.MemoryPressureCritical:
		pressure = 0.5
	}
	target.MaxWorkers = max(1, int(math.Round(workers*pressure)))
	target.StreamConcurrency = max(1, target.MaxWorkers/2)

	if used := m.System.MemoryUsedMB; used > 0 {
		headroom := []float64{2, 3, 4, 6}[w.DataSize]
		target.MemoryLimitMB = int(math.Round(used * headroom))
	}

	batch := []float64{500, 1000, 2500, 5000}[w.DataSize] * pressure * pressure
	target.JSONBatchSize = int(batch)
	target.SpreadsheetBatchSize = int(batch / 2)
	target.ColumnarBatchSize = int(batch * 2)

	timeout := []time.Duration{30 * time.Second, 60 * time.Second, 120 * time.Second}[w.Complexity]
	if w.DataSize >= types.DataSizeLarge {
		timeout *= 2
	}
	target.OperationTimeout = timeout

	switch w.ErrorRate {
	case types.ErrorRateHigh:
		target.RetryAttempts = 5
		target.CircuitBreakerThreshold = max(current.CircuitBreakerThreshold, 10)
	case types.ErrorRateMedium:
		target.RetryAttempts = 4
	default:
		target.RetryAttempts = 3
	}

	target.EnableCaching = w.MemoryPressure != types.MemoryPressureCritical
	return target
}

// Gradual moves current toward target. Each numeric knob changes by at
// most maxPercent of its current value, truncated to whole knob units so
// the cap holds after rounding. When the capped step truncates to zero the
// knob moves one unit toward its target instead, so knobs smaller than
// 100/maxPercent units still converge. Switches take the target value.
func Gradual(current, target types.Settings, maxPercent float64) types.Settings {
	out := current
	for _, k := range types.Knobs() {
		cur, tgt := k.Get(&current), k.Get(&target)
		limit := math.Abs(cur) * maxPercent / 100
		step := math.Trunc(math.Max(-limit, math.Min(limit, tgt-cur)))
		if step == 0 && math.Abs(tgt-cur) >= 1 {
			step = math.Copysign(1, tgt-cur)
		}
		k.Set(&out, cur+step)
	}
	out.EnableCaching = target.EnableCaching
	out.EnableStreaming = target.EnableStreaming
	return out
}
