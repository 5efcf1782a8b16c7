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

/*
Package types holds the model shared by the optimizers, the metrics dashboard
and the adaptive configuration manager.

# Settings

Settings is the bundle of numeric and boolean knobs that drive how files are
read: worker count, memory ceiling, per-format batch sizes, stream
concurrency, timeouts and resilience thresholds. A knob table describes every
numeric knob once (name, unit, hard bounds, accessor) so that validation,
gradual adjustment and diffing treat all knobs uniformly:

	s := types.DefaultSettings()
	s.MaxWorkers = 500
	s = types.Validate(s) // MaxWorkers clamped to 32

SettingsStore publishes settings to readers with an atomic pointer swap.
Optimizers take one snapshot per batch; the adaptive manager is the only
writer.

# Workload

WorkloadCharacteristics is a coarse, ordered classification of the current
load (data size, complexity, I/O pattern, memory pressure, concurrency, error
rate). PerformanceProfile pairs a partial WorkloadMatch with a Settings bundle.

# Metrics and alerts

DashboardMetrics is one sample of system, performance, resilience and
per-format optimizer metrics. Alert is a level-triggered threshold record.

# Errors

ValidationError, ParseError, OptimizationError and SecurityError form the
error taxonomy of read operations. All of them report a Severity and a
Category so failures can be counted by class.
*/
package types
