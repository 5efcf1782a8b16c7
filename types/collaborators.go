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

package types

// ResourceMonitor supplies memory pressure and triggers reclamation.
type ResourceMonitor interface {
	// PressureLevel returns a normalized [0,1] pressure signal
	PressureLevel() float64
	// ForceReclaim asks the runtime to release memory
	ForceReclaim()
}

// SystemSampler supplies process-level system metrics.
type SystemSampler interface {
	SystemMetrics() (SystemMetrics, error)
}

// CircuitBreakerHealth summarizes the breakers of a circuit breaker manager.
type CircuitBreakerHealth struct {
	// Percent of breakers in the closed state
	OverallHealth    float64 `json:"overallHealth"`
	OpenBreakers     int     `json:"openBreakers"`
	HalfOpenBreakers int     `json:"halfOpenBreakers"`
	TotalBreakers    int     `json:"totalBreakers"`
	// Percent of recent trips that recovered
	RecoveryRate float64 `json:"recoveryRate"`
}

// CircuitBreakerManager is the resilience layer reported on by the dashboard.
type CircuitBreakerManager interface {
	SystemHealth() (CircuitBreakerHealth, error)
}

// ResourceStats is the leak detector's view of tracked resources.
type ResourceStats struct {
	TotalTracked   int `json:"totalTracked"`
	PotentialLeaks int `json:"potentialLeaks"`
}

// LeakDetector tracks resources and flags the ones that look leaked.
type LeakDetector interface {
	ResourceStats() (ResourceStats, error)
}

// StatsProvider is implemented by every optimizer.
type StatsProvider interface {
	GetMetrics() OptimizerStats
}
