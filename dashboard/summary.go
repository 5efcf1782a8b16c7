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

package dashboard

import (
	"fmt"
	"io"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/rulego/streamopt/types"
	"github.com/rulego/streamopt/utils/table"
)

const (
	// TrendWindow is the number of samples averaged on each side of a trend
	// comparison.
	TrendWindow = 10
	// TrendThreshold is the relative change below which a metric is stable.
	TrendThreshold = 0.1
)

// Trend metric names.
const (
	TrendMemory       = "memory"
	TrendCPU          = "cpu"
	TrendThroughput   = "throughput"
	TrendResponseTime = "responseTime"
	TrendErrorRate    = "errorRate"
	TrendHealth       = "health"
)

type trendMetric struct {
	name          string
	value         func(types.DashboardMetrics) float64
	higherIsWorse bool
}

var trendMetrics = []trendMetric{
	{TrendMemory, func(m types.DashboardMetrics) float64 { return m.System.MemoryPercent }, true},
	{TrendCPU, func(m types.DashboardMetrics) float64 { return m.System.CPUPercent }, true},
	{TrendThroughput, func(m types.DashboardMetrics) float64 { return m.Performance.Throughput }, false},
	{TrendResponseTime, func(m types.DashboardMetrics) float64 { return m.Performance.AvgExecutionTimeMs }, true},
	{TrendErrorRate, func(m types.DashboardMetrics) float64 { return m.Performance.ErrorRate }, true},
	{TrendHealth, func(m types.DashboardMetrics) float64 { return m.HealthScore }, false},
}

// ClassifyTrend compares the mean of the last window values with the mean
// of the window before it. With fewer than 2*window values both windows
// shrink to half the series.
func ClassifyTrend(values []float64, window int, higherIsWorse bool) types.Trend {
	if n := len(values) / 2; n < window {
		window = n
	}
	if window == 0 {
		return types.TrendStable
	}
	recent, _ := stats.Mean(values[len(values)-window:])
	previous, _ := stats.Mean(values[len(values)-2*window : len(values)-window])

	var change float64
	switch {
	case previous != 0:
		change = (recent - previous) / math.Abs(previous)
	case recent != 0:
		change = math.Copysign(1, recent)
	}
	if math.Abs(change) < TrendThreshold {
		return types.TrendStable
	}
	if (change > 0) != higherIsWorse {
		return types.TrendImproving
	}
	return types.TrendWorsening
}

// Trends classifies each trend metric over history.
func Trends(history []types.DashboardMetrics) map[string]types.Trend {
	out := make(map[string]types.Trend, len(trendMetrics))
	values := make([]float64, len(history))
	for _, tm := range trendMetrics {
		for i, m := range history {
			values[i] = tm.value(m)
		}
		out[tm.name] = ClassifyTrend(values, TrendWindow, tm.higherIsWorse)
	}
	return out
}

// HealthScore rates a sample from 0 to 100. Memory above 70%, errors, open
// circuit breakers and potential leaks each subtract from 100.
func HealthScore(m types.DashboardMetrics) float64 {
	score := 100.0
	score -= math.Max(0, m.System.MemoryPercent-70) * 0.5
	score -= m.Performance.ErrorRate * 2
	score -= math.Max(0, 100-m.Resilience.CircuitBreakerHealth) * 0.3
	score -= float64(m.Resilience.PotentialLeaks) * 2
	return math.Max(0, math.Min(100, score))
}

// Recommendations derives advice from a sample and the trends.
func Recommendations(m types.DashboardMetrics, trends map[string]types.Trend, t Thresholds) []string {
	var out []string
	if m.System.MemoryPercent > t.MemoryPercent {
		out = append(out, "Memory usage is high: lower memoryLimitMB or the batch sizes so more reads stream")
	} else if trends[TrendMemory] == types.TrendWorsening {
		out = append(out, "Memory usage is trending up: watch for growing caches or oversized batches")
	}
	if m.System.CPUPercent > t.CPUPercent {
		out = append(out, "CPU usage is high: reduce maxWorkers or streamConcurrency")
	}
	if m.Performance.ErrorRate > t.ErrorRatePercent {
		out = append(out, "Error rate is elevated: check the input files or read with skipInvalidRecords")
	}
	if m.Resilience.CircuitBreakerHealth < t.CircuitBreakerHealth {
		out = append(out, fmt.Sprintf("%d circuit breakers are open: inspect the failing dependencies", m.Resilience.OpenBreakers))
	}
	if m.Performance.AvgExecutionTimeMs > t.ResponseTimeMs {
		out = append(out, "Reads are slow: enable streaming or raise the batch sizes")
	}
	if m.Resilience.PotentialLeaks > 0 {
		out = append(out, fmt.Sprintf("%d potential resource leaks detected: check that readers are closed", m.Resilience.PotentialLeaks))
	}
	if m.Performance.WorkerUtilization >= 90 {
		out = append(out, "Worker pool is saturated: raise maxWorkers")
	}
	if trends[TrendThroughput] == types.TrendWorsening {
		out = append(out, "Throughput is declining")
	}
	if len(out) == 0 {
		out = append(out, "System is operating within normal parameters")
	}
	return out
}

// PerformanceSummary is the dashboard's digest of the current state.
type PerformanceSummary struct {
	Current         types.DashboardMetrics `json:"current"`
	Trends          map[string]types.Trend `json:"trends"`
	Recommendations []string               `json:"recommendations"`
	HealthScore     float64                `json:"healthScore"`
	ActiveAlerts    []types.Alert          `json:"activeAlerts"`
}

// GetPerformanceSummary returns the current sample with trends, health
// score, recommendations and active alerts.
func (d *Dashboard) GetPerformanceSummary() PerformanceSummary {
	current := d.GetCurrentMetrics()
	trends := Trends(d.history.Items())
	return PerformanceSummary{
		Current:         current,
		Trends:          trends,
		Recommendations: Recommendations(current, trends, d.cfg.Thresholds),
		HealthScore:     current.HealthScore,
		ActiveAlerts:    d.GetActiveAlerts(),
	}
}

// WriteSummary renders a summary as text tables.
func WriteSummary(w io.Writer, s PerformanceSummary) error {
	m := s.Current
	err := table.KeyValue(w, map[string]interface{}{
		"health score":         fmt.Sprintf("%.1f", s.HealthScore),
		"memory %":             fmt.Sprintf("%.1f", m.System.MemoryPercent),
		"cpu %":                fmt.Sprintf("%.1f", m.System.CPUPercent),
		"throughput rec/s":     fmt.Sprintf("%.1f", m.Performance.Throughput),
		"avg read ms":          fmt.Sprintf("%.2f", m.Performance.AvgExecutionTimeMs),
		"error rate %":         fmt.Sprintf("%.2f", m.Performance.ErrorRate),
		"records processed":    m.Performance.RecordsProcessed,
		"circuit breaker %":    fmt.Sprintf("%.1f", m.Resilience.CircuitBreakerHealth),
		"potential leaks":      m.Resilience.PotentialLeaks,
		"active alerts":        len(s.ActiveAlerts),
		"worker utilization %": fmt.Sprintf("%.1f", m.Performance.WorkerUtilization),
	})
	if err != nil {
		return err
	}

	rows := make([]map[string]interface{}, 0, len(s.Trends))
	for _, tm := range trendMetrics {
		if t, ok := s.Trends[tm.name]; ok {
			rows = append(rows, map[string]interface{}{"metric": tm.name, "trend": string(t)})
		}
	}
	if len(rows) > 0 {
		if err := table.Write(w, rows, []string{"metric", "trend"}); err != nil {
			return err
		}
	}
	for _, r := range s.Recommendations {
		if _, err := fmt.Fprintf(w, "- %s\n", r); err != nil {
			return err
		}
	}
	return nil
}
