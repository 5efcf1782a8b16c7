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

import (
	"math"
	"runtime"
	"sort"
	"time"
)

// Settings is the set of tunable knobs read by the optimizers.
type Settings struct {
	// Worker pool size available to reads
	MaxWorkers int `json:"maxWorkers" yaml:"maxWorkers"`
	// Memory ceiling in MiB; files estimated larger than this are streamed
	MemoryLimitMB int `json:"memoryLimitMB" yaml:"memoryLimitMB"`
	// Records between backpressure checks, per format
	JSONBatchSize        int `json:"jsonBatchSize" yaml:"jsonBatchSize"`
	SpreadsheetBatchSize int `json:"spreadsheetBatchSize" yaml:"spreadsheetBatchSize"`
	ColumnarBatchSize    int `json:"columnarBatchSize" yaml:"columnarBatchSize"`
	// Bounded parallelism for worksheet and column analysis
	StreamConcurrency int `json:"streamConcurrency" yaml:"streamConcurrency"`
	// Upper bound for a single read operation
	OperationTimeout time.Duration `json:"operationTimeout" yaml:"operationTimeout"`
	// Resilience thresholds
	RetryAttempts           int           `json:"retryAttempts" yaml:"retryAttempts"`
	RetryDelay              time.Duration `json:"retryDelay" yaml:"retryDelay"`
	CircuitBreakerThreshold int           `json:"circuitBreakerThreshold" yaml:"circuitBreakerThreshold"`
	CircuitBreakerTimeout   time.Duration `json:"circuitBreakerTimeout" yaml:"circuitBreakerTimeout"`
	// Feature switches
	EnableCaching   bool `json:"enableCaching" yaml:"enableCaching"`
	EnableStreaming bool `json:"enableStreaming" yaml:"enableStreaming"`
}

// DefaultSettings returns the baseline settings used when none are supplied.
func DefaultSettings() Settings {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	return Validate(Settings{
		MaxWorkers:              workers,
		MemoryLimitMB:           512,
		JSONBatchSize:           1000,
		SpreadsheetBatchSize:    500,
		ColumnarBatchSize:       2000,
		StreamConcurrency:       4,
		OperationTimeout:        60 * time.Second,
		RetryAttempts:           3,
		RetryDelay:              time.Second,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   60 * time.Second,
		EnableCaching:           true,
		EnableStreaming:         true,
	})
}

// MemoryLimitBytes returns the memory ceiling in bytes.
func (s Settings) MemoryLimitBytes() int64 {
	if s.MemoryLimitMB <= 0 {
		return 0
	}
	return int64(s.MemoryLimitMB) << 20
}

// Knob describes one numeric setting: its name, unit and hard safety range.
// Values are always integral in the knob's unit.
type Knob struct {
	Name string
	Unit string
	Min  float64
	Max  float64
	Get  func(*Settings) float64
	Set  func(*Settings, float64)
}

// Clamp forces v into the knob's safety range. NaN maps to Min.
func (k Knob) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return k.Min
	}
	return math.Max(k.Min, math.Min(k.Max, v))
}

func intKnob(name, unit string, min, max float64, field func(*Settings) *int) Knob {
	return Knob{
		Name: name,
		Unit: unit,
		Min:  min,
		Max:  max,
		Get:  func(s *Settings) float64 { return float64(*field(s)) },
		Set:  func(s *Settings, v float64) { *field(s) = int(math.Round(v)) },
	}
}

func durationKnob(name string, unit time.Duration, unitName string, min, max float64, field func(*Settings) *time.Duration) Knob {
	return Knob{
		Name: name,
		Unit: unitName,
		Min:  min,
		Max:  max,
		Get:  func(s *Settings) float64 { return float64(*field(s) / unit) },
		Set:  func(s *Settings, v float64) { *field(s) = time.Duration(math.Round(v)) * unit },
	}
}

var knobTable = []Knob{
	intKnob("maxWorkers", "workers", 1, 32, func(s *Settings) *int { return &s.MaxWorkers }),
	intKnob("memoryLimitMB", "MiB", 64, 4096, func(s *Settings) *int { return &s.MemoryLimitMB }),
	intKnob("jsonBatchSize", "records", 100, 50000, func(s *Settings) *int { return &s.JSONBatchSize }),
	intKnob("spreadsheetBatchSize", "rows", 100, 50000, func(s *Settings) *int { return &s.SpreadsheetBatchSize }),
	intKnob("columnarBatchSize", "rows", 100, 50000, func(s *Settings) *int { return &s.ColumnarBatchSize }),
	intKnob("streamConcurrency", "streams", 1, 16, func(s *Settings) *int { return &s.StreamConcurrency }),
	durationKnob("operationTimeout", time.Second, "s", 5, 600, func(s *Settings) *time.Duration { return &s.OperationTimeout }),
	intKnob("retryAttempts", "attempts", 0, 10, func(s *Settings) *int { return &s.RetryAttempts }),
	durationKnob("retryDelay", time.Millisecond, "ms", 100, 30000, func(s *Settings) *time.Duration { return &s.RetryDelay }),
	intKnob("circuitBreakerThreshold", "failures", 1, 100, func(s *Settings) *int { return &s.CircuitBreakerThreshold }),
	durationKnob("circuitBreakerTimeout", time.Second, "s", 5, 600, func(s *Settings) *time.Duration { return &s.CircuitBreakerTimeout }),
}

// Knobs returns the numeric knob table in a stable order.
func Knobs() []Knob {
	out := make([]Knob, len(knobTable))
	copy(out, knobTable)
	return out
}

// KnobByName looks a knob up by its name.
func KnobByName(name string) (Knob, bool) {
	for _, k := range knobTable {
		if k.Name == name {
			return k, true
		}
	}
	return Knob{}, false
}

// Validate returns s with every numeric knob clamped into its hard bounds.
// Validate(Validate(s)) == Validate(s).
func Validate(s Settings) Settings {
	for _, k := range knobTable {
		k.Set(&s, k.Clamp(k.Get(&s)))
	}
	return s
}

// InBounds reports whether every numeric knob of s is within its range.
func InBounds(s Settings) bool {
	for _, k := range knobTable {
		v := k.Get(&s)
		if v < k.Min || v > k.Max {
			return false
		}
	}
	return true
}

// KnobChange records one knob moving between two settings.
type KnobChange struct {
	Name string  `json:"name"`
	From float64 `json:"from"`
	To   float64 `json:"to"`
}

// Diff lists the knobs whose values differ between before and after.
// Boolean switches are reported as 0/1.
func Diff(before, after Settings) []KnobChange {
	var changes []KnobChange
	for _, k := range knobTable {
		from, to := k.Get(&before), k.Get(&after)
		if from != to {
			changes = append(changes, KnobChange{Name: k.Name, From: from, To: to})
		}
	}
	if before.EnableCaching != after.EnableCaching {
		changes = append(changes, KnobChange{Name: "enableCaching", From: boolValue(before.EnableCaching), To: boolValue(after.EnableCaching)})
	}
	if before.EnableStreaming != after.EnableStreaming {
		changes = append(changes, KnobChange{Name: "enableStreaming", From: boolValue(before.EnableStreaming), To: boolValue(after.EnableStreaming)})
	}
	return changes
}

// ChangedNames returns the sorted names of the changed knobs.
func ChangedNames(changes []KnobChange) []string {
	names := make([]string, 0, len(changes))
	for _, c := range changes {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
