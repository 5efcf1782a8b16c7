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
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rulego/streamopt/types"
)

// Alert ids.
const (
	AlertMemoryUsage          = "memory_usage"
	AlertCPUUsage             = "cpu_usage"
	AlertErrorRate            = "error_rate"
	AlertCircuitBreakerHealth = "circuit_breaker_health"
	AlertResponseTime         = "response_time"
	AlertResourceLeaks        = "resource_leaks"
)

// Factors scaling a threshold to the critical severity boundary, for
// upper and lower limits.
const (
	criticalFactor      = 1.2
	criticalFactorBelow = 0.8
)

type check struct {
	id     string
	metric string
	unit   string
	value  func(types.DashboardMetrics) float64
	limit  func(Thresholds) float64
	// below alerts when the value drops under the limit
	below bool
}

var checks = []check{
	{AlertMemoryUsage, "system.memoryPercent", "%",
		func(m types.DashboardMetrics) float64 { return m.System.MemoryPercent },
		func(t Thresholds) float64 { return t.MemoryPercent }, false},
	{AlertCPUUsage, "system.cpuPercent", "%",
		func(m types.DashboardMetrics) float64 { return m.System.CPUPercent },
		func(t Thresholds) float64 { return t.CPUPercent }, false},
	{AlertErrorRate, "performance.errorRate", "%",
		func(m types.DashboardMetrics) float64 { return m.Performance.ErrorRate },
		func(t Thresholds) float64 { return t.ErrorRatePercent }, false},
	{AlertCircuitBreakerHealth, "resilience.circuitBreakerHealth", "%",
		func(m types.DashboardMetrics) float64 { return m.Resilience.CircuitBreakerHealth },
		func(t Thresholds) float64 { return t.CircuitBreakerHealth }, true},
	{AlertResponseTime, "performance.avgExecutionTimeMs", "ms",
		func(m types.DashboardMetrics) float64 { return m.Performance.AvgExecutionTimeMs },
		func(t Thresholds) float64 { return t.ResponseTimeMs }, false},
	{AlertResourceLeaks, "resilience.potentialLeaks", "",
		func(m types.DashboardMetrics) float64 { return float64(m.Resilience.PotentialLeaks) },
		func(t Thresholds) float64 { return t.PotentialLeaks }, false},
}

func (c check) breached(v, limit float64) bool {
	if c.below {
		return v < limit
	}
	return v > limit
}

func (c check) severity(v, limit float64) types.AlertSeverity {
	if c.below {
		if v < limit*criticalFactorBelow {
			return types.AlertCritical
		}
	} else if v > limit*criticalFactor {
		return types.AlertCritical
	}
	return types.AlertWarning
}

func (c check) message(v, limit float64) string {
	dir := "above"
	if c.below {
		dir = "below"
	}
	return fmt.Sprintf("%s is %.1f%s, %s the %.1f%s threshold", c.metric, v, c.unit, dir, limit, c.unit)
}

// checkAlerts evaluates every check against m. A breached check activates
// its alert unless an active one exists, which is refreshed instead. A
// check back within limits resolves its active alert. It returns copies of
// the alerts that changed state. Callers hold d.mu.
func (d *Dashboard) checkAlerts(m types.DashboardMetrics, now time.Time) []types.Alert {
	var transitions []types.Alert
	for _, c := range checks {
		v, limit := c.value(m), c.limit(d.cfg.Thresholds)
		a := d.alerts[c.id]
		active := a != nil && !a.Resolved

		switch {
		case c.breached(v, limit) && active:
			a.Value = v
			a.Severity = c.severity(v, limit)
			a.Message = c.message(v, limit)
			a.UpdatedAt = now
		case c.breached(v, limit):
			a = &types.Alert{
				ID:         c.id,
				InstanceID: uuid.NewString(),
				Severity:   c.severity(v, limit),
				Metric:     c.metric,
				Message:    c.message(v, limit),
				Threshold:  limit,
				Value:      v,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			d.alerts[c.id] = a
			transitions = append(transitions, *a)
			d.log.Warn("alert %s raised: %s", c.id, a.Message)
		case active:
			a.Resolved = true
			a.ResolvedAt = now
			a.UpdatedAt = now
			a.Value = v
			transitions = append(transitions, *a)
			d.log.Info("alert %s resolved", c.id)
		}
	}
	return transitions
}

// GetActiveAlerts returns the unresolved alerts ordered by id.
func (d *Dashboard) GetActiveAlerts() []types.Alert {
	return d.listAlerts(func(a *types.Alert) bool { return !a.Resolved })
}

// GetAlerts returns the latest incarnation of every alert that was ever
// raised, ordered by id.
func (d *Dashboard) GetAlerts() []types.Alert {
	return d.listAlerts(func(*types.Alert) bool { return true })
}

func (d *Dashboard) listAlerts(keep func(*types.Alert) bool) []types.Alert {
	d.mu.RLock()
	out := make([]types.Alert, 0, len(d.alerts))
	for _, a := range d.alerts {
		if keep(a) {
			out = append(out, *a)
		}
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
