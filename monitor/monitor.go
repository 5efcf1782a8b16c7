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

// Package monitor is the default resource monitor. It compares the live Go
// heap with the memory ceiling from the current settings and reports a
// normalized pressure level, reclaims memory on demand and samples process
// level system metrics for the dashboard.
package monitor

import (
	"runtime"
	"runtime/debug"
	"runtime/metrics"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rulego/streamopt/logger"
	"github.com/rulego/streamopt/types"
)

const (
	heapObjectsMetric = "/memory/classes/heap/objects:bytes"
	userCPUMetric     = "/cpu/classes/user:cpu-seconds"
	goroutinesMetric  = "/sched/goroutines:goroutines"
)

// Monitor implements types.ResourceMonitor and types.SystemSampler.
type Monitor struct {
	settings types.SettingsProvider
	log      logger.Logger
	heapFn   func() uint64
	now      func() time.Time

	reclaims int64

	mu      sync.Mutex
	lastCPU float64
	lastAt  time.Time
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Monitor) { m.log = l }
}

// WithHeapReader replaces the live heap reader, mainly for tests.
func WithHeapReader(fn func() uint64) Option {
	return func(m *Monitor) { m.heapFn = fn }
}

// New creates a monitor reading the ceiling from settings.
func New(settings types.SettingsProvider, opts ...Option) *Monitor {
	m := &Monitor{settings: settings, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	m.log = logger.Named(m.log, "monitor")
	if m.heapFn == nil {
		m.heapFn = HeapBytes
	}
	return m
}

// PressureLevel returns live heap / memory ceiling clamped to [0,1].
func (m *Monitor) PressureLevel() float64 {
	limit := m.settings.Current().MemoryLimitBytes()
	if limit <= 0 {
		return 1
	}
	p := float64(m.heapFn()) / float64(limit)
	if p > 1 {
		return 1
	}
	return p
}

// ForceReclaim runs a collection and returns freed pages to the OS.
func (m *Monitor) ForceReclaim() {
	before := m.heapFn()
	runtime.GC()
	debug.FreeOSMemory()
	atomic.AddInt64(&m.reclaims, 1)
	m.log.Debug("reclaimed memory: heap %d -> %d bytes", before, m.heapFn())
}

// Reclaims returns how many reclamation passes ran.
func (m *Monitor) Reclaims() int64 {
	return atomic.LoadInt64(&m.reclaims)
}

// SystemMetrics samples heap, CPU and goroutine counts. CPU percent is the
// user CPU time consumed since the previous call relative to wall time
// across all CPUs; the first call reports 0.
func (m *Monitor) SystemMetrics() (types.SystemMetrics, error) {
	samples := []metrics.Sample{
		{Name: userCPUMetric},
		{Name: goroutinesMetric},
	}
	metrics.Read(samples)

	limitMB := float64(m.settings.Current().MemoryLimitMB)
	usedMB := float64(m.heapFn()) / (1 << 20)
	out := types.SystemMetrics{
		MemoryUsedMB:  usedMB,
		MemoryLimitMB: limitMB,
		NumCPU:        runtime.NumCPU(),
		Goroutines:    runtime.NumGoroutine(),
		PressureLevel: m.PressureLevel(),
	}
	if limitMB > 0 {
		out.MemoryPercent = usedMB / limitMB * 100
	}
	if samples[1].Value.Kind() == metrics.KindUint64 {
		out.Goroutines = int(samples[1].Value.Uint64())
	}
	if samples[0].Value.Kind() == metrics.KindFloat64 {
		out.CPUPercent = m.cpuPercent(samples[0].Value.Float64())
	}
	return out, nil
}

func (m *Monitor) cpuPercent(cpuSeconds float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	defer func() {
		m.lastCPU, m.lastAt = cpuSeconds, now
	}()
	if m.lastAt.IsZero() {
		return 0
	}
	wall := now.Sub(m.lastAt).Seconds() * float64(runtime.NumCPU())
	if wall <= 0 {
		return 0
	}
	p := (cpuSeconds - m.lastCPU) / wall * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// HeapBytes returns the bytes occupied by live and not yet swept heap
// objects.
func HeapBytes() uint64 {
	sample := []metrics.Sample{{Name: heapObjectsMetric}}
	metrics.Read(sample)
	if sample[0].Value.Kind() != metrics.KindUint64 {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		return ms.HeapAlloc
	}
	return sample[0].Value.Uint64()
}
