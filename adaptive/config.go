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

import "time"

// Config holds the adaptation parameters.
type Config struct {
	// Enabled starts the periodic adaptation loop on Start
	Enabled            bool          `json:"enabled" yaml:"enabled"`
	AdaptationInterval time.Duration `json:"adaptationInterval" yaml:"adaptationInterval"`
	// Length of the workload history, one sample per tick
	AnalysisWindowMinutes int `json:"analysisWindowMinutes" yaml:"analysisWindowMinutes"`
	// Throughput coefficient of variation at or above which the signal is
	// too noisy to tune
	StabilityThreshold float64 `json:"stabilityThreshold" yaml:"stabilityThreshold"`
	// Largest change of a numeric knob in one tick, in percent of its
	// current value
	MaxAdjustmentPercentage float64 `json:"maxAdjustmentPercentage" yaml:"maxAdjustmentPercentage"`
	// Minimum profile score for a profile to be used
	ProfileMatchThreshold float64 `json:"profileMatchThreshold" yaml:"profileMatchThreshold"`
	MinSamples            int     `json:"minSamples" yaml:"minSamples"`
}

// DefaultConfig returns the default adaptation parameters.
func DefaultConfig() Config {
	return Config{
		Enabled:                 true,
		AdaptationInterval:      30 * time.Second,
		AnalysisWindowMinutes:   10,
		StabilityThreshold:      0.3,
		MaxAdjustmentPercentage: 25,
		ProfileMatchThreshold:   0.7,
		MinSamples:              3,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.AdaptationInterval <= 0 {
		c.AdaptationInterval = def.AdaptationInterval
	}
	if c.AnalysisWindowMinutes <= 0 {
		c.AnalysisWindowMinutes = def.AnalysisWindowMinutes
	}
	if c.StabilityThreshold <= 0 {
		c.StabilityThreshold = def.StabilityThreshold
	}
	if c.MaxAdjustmentPercentage <= 0 {
		c.MaxAdjustmentPercentage = def.MaxAdjustmentPercentage
	}
	if c.ProfileMatchThreshold <= 0 {
		c.ProfileMatchThreshold = def.ProfileMatchThreshold
	}
	if c.MinSamples < 2 {
		c.MinSamples = def.MinSamples
	}
	return c
}
