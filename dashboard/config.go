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

import "time"

// Thresholds are the alert limits. Every limit except CircuitBreakerHealth
// alerts when exceeded; CircuitBreakerHealth alerts when undercut.
type Thresholds struct {
	MemoryPercent        float64 `json:"memoryPercent" yaml:"memoryPercent"`
	CPUPercent           float64 `json:"cpuPercent" yaml:"cpuPercent"`
	ErrorRatePercent     float64 `json:"errorRatePercent" yaml:"errorRatePercent"`
	CircuitBreakerHealth float64 `json:"circuitBreakerHealth" yaml:"circuitBreakerHealth"`
	ResponseTimeMs       float64 `json:"responseTimeMs" yaml:"responseTimeMs"`
	PotentialLeaks       float64 `json:"potentialLeaks" yaml:"potentialLeaks"`
}

// Config configures a Dashboard.
type Config struct {
	UpdateInterval time.Duration `json:"updateInterval" yaml:"updateInterval"`
	// HistorySize bounds the number of retained samples
	HistorySize int        `json:"historySize" yaml:"historySize"`
	Thresholds  Thresholds `json:"thresholds" yaml:"thresholds"`
}

// DefaultConfig returns the default dashboard configuration.
func DefaultConfig() Config {
	return Config{
		UpdateInterval: 5 * time.Second,
		HistorySize:    60,
		Thresholds: Thresholds{
			MemoryPercent:        85,
			CPUPercent:           80,
			ErrorRatePercent:     5,
			CircuitBreakerHealth: 70,
			ResponseTimeMs:       5000,
			PotentialLeaks:       5,
		},
	}
}
