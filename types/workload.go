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
	"fmt"
	"strings"
)

// DataSize classifies the volume of data processed.
type DataSize int

const (
	DataSizeSmall DataSize = iota
	DataSizeMedium
	DataSizeLarge
	DataSizeXLarge
)

// Complexity classifies how expensive individual records are.
type Complexity int

const (
	ComplexitySimple Complexity = iota
	ComplexityModerate
	ComplexityComplex
)

// IOPattern classifies record throughput.
type IOPattern int

const (
	IOLight IOPattern = iota
	IOModerate
	IOIntensive
)

// MemoryPressure classifies memory usage relative to the ceiling.
type MemoryPressure int

const (
	MemoryPressureLow MemoryPressure = iota
	MemoryPressureMedium
	MemoryPressureHigh
	MemoryPressureCritical
)

// ConcurrencyLevel classifies worker utilization.
type ConcurrencyLevel int

const (
	ConcurrencyLow ConcurrencyLevel = iota
	ConcurrencyMedium
	ConcurrencyHigh
)

// ErrorRateLevel classifies the share of failing records.
type ErrorRateLevel int

const (
	ErrorRateNone ErrorRateLevel = iota
	ErrorRateLow
	ErrorRateMedium
	ErrorRateHigh
)

var (
	dataSizeNames       = []string{"small", "medium", "large", "xlarge"}
	complexityNames     = []string{"simple", "moderate", "complex"}
	ioPatternNames      = []string{"light", "moderate", "intensive"}
	memoryPressureNames = []string{"low", "medium", "high", "critical"}
	concurrencyNames    = []string{"low", "medium", "high"}
	errorRateNames      = []string{"none", "low", "medium", "high"}
)

func enumName(names []string, v int) string {
	if v >= 0 && v < len(names) {
		return names[v]
	}
	return "unknown"
}

func parseEnum(kind string, names []string, text []byte) (int, error) {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for i, name := range names {
		if name == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("invalid %s %q, expected one of %s", kind, s, strings.Join(names, ", "))
}

func (d DataSize) String() string               { return enumName(dataSizeNames, int(d)) }
func (d DataSize) MarshalText() ([]byte, error) { return []byte(d.String()), nil }
func (d *DataSize) UnmarshalText(text []byte) error {
	v, err := parseEnum("data size", dataSizeNames, text)
	*d = DataSize(v)
	return err
}

func (c Complexity) String() string               { return enumName(complexityNames, int(c)) }
func (c Complexity) MarshalText() ([]byte, error) { return []byte(c.String()), nil }
func (c *Complexity) UnmarshalText(text []byte) error {
	v, err := parseEnum("complexity", complexityNames, text)
	*c = Complexity(v)
	return err
}

func (p IOPattern) String() string               { return enumName(ioPatternNames, int(p)) }
func (p IOPattern) MarshalText() ([]byte, error) { return []byte(p.String()), nil }
func (p *IOPattern) UnmarshalText(text []byte) error {
	v, err := parseEnum("io pattern", ioPatternNames, text)
	*p = IOPattern(v)
	return err
}

func (m MemoryPressure) String() string               { return enumName(memoryPressureNames, int(m)) }
func (m MemoryPressure) MarshalText() ([]byte, error) { return []byte(m.String()), nil }
func (m *MemoryPressure) UnmarshalText(text []byte) error {
	v, err := parseEnum("memory pressure", memoryPressureNames, text)
	*m = MemoryPressure(v)
	return err
}

func (c ConcurrencyLevel) String() string               { return enumName(concurrencyNames, int(c)) }
func (c ConcurrencyLevel) MarshalText() ([]byte, error) { return []byte(c.String()), nil }
func (c *ConcurrencyLevel) UnmarshalText(text []byte) error {
	v, err := parseEnum("concurrency level", concurrencyNames, text)
	*c = ConcurrencyLevel(v)
	return err
}

func (e ErrorRateLevel) String() string               { return enumName(errorRateNames, int(e)) }
func (e ErrorRateLevel) MarshalText() ([]byte, error) { return []byte(e.String()), nil }
func (e *ErrorRateLevel) UnmarshalText(text []byte) error {
	v, err := parseEnum("error rate", errorRateNames, text)
	*e = ErrorRateLevel(v)
	return err
}

// WorkloadCharacteristics is a snapshot classification of the current load.
// It is recomputed on every adaptation tick and never stored authoritatively.
type WorkloadCharacteristics struct {
	DataSize       DataSize         `json:"dataSize" yaml:"dataSize"`
	Complexity     Complexity       `json:"complexity" yaml:"complexity"`
	IOPattern      IOPattern        `json:"ioPattern" yaml:"ioPattern"`
	MemoryPressure MemoryPressure   `json:"memoryPressure" yaml:"memoryPressure"`
	Concurrency    ConcurrencyLevel `json:"concurrency" yaml:"concurrency"`
	ErrorRate      ErrorRateLevel   `json:"errorRate" yaml:"errorRate"`
}

func (w WorkloadCharacteristics) String() string {
	return fmt.Sprintf("size=%s complexity=%s io=%s memory=%s concurrency=%s errors=%s",
		w.DataSize, w.Complexity, w.IOPattern, w.MemoryPressure, w.Concurrency, w.ErrorRate)
}

// WorkloadMatch is a partial target: nil fields are not part of the match.
type WorkloadMatch struct {
	DataSize       *DataSize         `json:"dataSize,omitempty" yaml:"dataSize,omitempty"`
	Complexity     *Complexity       `json:"complexity,omitempty" yaml:"complexity,omitempty"`
	IOPattern      *IOPattern        `json:"ioPattern,omitempty" yaml:"ioPattern,omitempty"`
	MemoryPressure *MemoryPressure   `json:"memoryPressure,omitempty" yaml:"memoryPressure,omitempty"`
	Concurrency    *ConcurrencyLevel `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	ErrorRate      *ErrorRateLevel   `json:"errorRate,omitempty" yaml:"errorRate,omitempty"`
}

// Score returns matches/defined over the fields set in m, compared by exact
// equality. A match with no defined fields scores 0.
func (m WorkloadMatch) Score(w WorkloadCharacteristics) float64 {
	defined, matched := 0, 0
	check := func(set bool, equal bool) {
		if !set {
			return
		}
		defined++
		if equal {
			matched++
		}
	}
	check(m.DataSize != nil, m.DataSize != nil && *m.DataSize == w.DataSize)
	check(m.Complexity != nil, m.Complexity != nil && *m.Complexity == w.Complexity)
	check(m.IOPattern != nil, m.IOPattern != nil && *m.IOPattern == w.IOPattern)
	check(m.MemoryPressure != nil, m.MemoryPressure != nil && *m.MemoryPressure == w.MemoryPressure)
	check(m.Concurrency != nil, m.Concurrency != nil && *m.Concurrency == w.Concurrency)
	check(m.ErrorRate != nil, m.ErrorRate != nil && *m.ErrorRate == w.ErrorRate)
	if defined == 0 {
		return 0
	}
	return float64(matched) / float64(defined)
}

// Defined counts the fields set in m.
func (m WorkloadMatch) Defined() int {
	n := 0
	for _, set := range []bool{m.DataSize != nil, m.Complexity != nil, m.IOPattern != nil,
		m.MemoryPressure != nil, m.Concurrency != nil, m.ErrorRate != nil} {
		if set {
			n++
		}
	}
	return n
}

// Ptr returns a pointer to v; handy when writing WorkloadMatch literals.
func Ptr[T any](v T) *T {
	return &v
}
