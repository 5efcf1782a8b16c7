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

// Package dashboard samples system, optimizer and resilience metrics on a
// fixed interval, keeps a bounded history, raises level-triggered threshold
// alerts and summarizes trends, health and recommendations.
//
// Every collaborator is optional. A missing or failing collaborator leaves
// its metric group at neutral defaults and never fails a sample.
package dashboard

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rulego/streamopt/logger"
	"github.com/rulego/streamopt/types"
	"github.com/rulego/streamopt/utils/ring"
)

// ErrRunning is returned by Start when the sampler is already running.
var ErrRunning = errors.New("dashboard: already running")

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Dashboard) { d.log = l }
}

// WithSystemSampler sets the source of system metrics.
func WithSystemSampler(s types.SystemSampler) Option {
	return func(d *Dashboard) { d.system = s }
}

// WithCircuitBreakers sets the circuit breaker manager.
func WithCircuitBreakers(m types.CircuitBreakerManager) Option {
	return func(d *Dashboard) { d.breakers = m }
}

// WithLeakDetector sets the resource leak detector.
func WithLeakDetector(l types.LeakDetector) Option {
	return func(d *Dashboard) { d.leaks = l }
}

// WithOptimizers adds optimizers whose counters are aggregated.
func WithOptimizers(ps ...types.StatsProvider) Option {
	return func(d *Dashboard) { d.optimizers = append(d.optimizers, ps...) }
}

// WithSettings sets the settings source used for worker utilization.
func WithSettings(p types.SettingsProvider) Option {
	return func(d *Dashboard) { d.settings = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Dashboard) { d.now = now }
}

// Dashboard is the metrics dashboard. It is safe for concurrent use.
type Dashboard struct {
	cfg        Config
	log        logger.Logger
	now        func() time.Time
	system     types.SystemSampler
	breakers   types.CircuitBreakerManager
	leaks      types.LeakDetector
	optimizers []types.StatsProvider
	settings   types.SettingsProvider

	history *ring.Ring[types.DashboardMetrics]

	mu          sync.RWMutex
	current     types.DashboardMetrics
	hasCurrent  bool
	alerts      map[string]*types.Alert
	prevRecords int64
	prevAt      time.Time

	// serializes Update
	updateMu sync.Mutex

	cbMu     sync.RWMutex
	onUpdate []func(types.DashboardMetrics)
	onAlert  []func(types.Alert)

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// New creates a stopped dashboard. Zero config fields take their defaults.
func New(cfg Config, opts ...Option) *Dashboard {
	def := DefaultConfig()
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = def.UpdateInterval
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = def.HistorySize
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = def.Thresholds
	}
	d := &Dashboard{
		cfg:     cfg,
		now:     time.Now,
		history: ring.New[types.DashboardMetrics](cfg.HistorySize),
		alerts:  make(map[string]*types.Alert),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = logger.Named(d.log, "dashboard")
	return d
}

// Config returns the configuration in use.
func (d *Dashboard) Config() Config { return d.cfg }

// OnUpdate registers fn to receive every new sample.
func (d *Dashboard) OnUpdate(fn func(types.DashboardMetrics)) {
	d.cbMu.Lock()
	d.onUpdate = append(d.onUpdate, fn)
	d.cbMu.Unlock()
}

// OnAlert registers fn to receive alert activations and resolutions.
func (d *Dashboard) OnAlert(fn func(types.Alert)) {
	d.cbMu.Lock()
	d.onAlert = append(d.onAlert, fn)
	d.cbMu.Unlock()
}

// Start takes a first sample and starts the sampler loop.
func (d *Dashboard) Start() error {
	d.runMu.Lock()
	if d.running {
		d.runMu.Unlock()
		return ErrRunning
	}
	d.running = true
	stop, done := make(chan struct{}), make(chan struct{})
	d.stopCh, d.done = stop, done
	d.runMu.Unlock()

	d.Update()
	go d.loop(stop, done)
	d.log.Info("started, sampling every %v", d.cfg.UpdateInterval)
	return nil
}

// Stop halts the sampler loop and waits for it to exit. Stopping a stopped
// dashboard is a no-op.
func (d *Dashboard) Stop() {
	d.runMu.Lock()
	if !d.running {
		d.runMu.Unlock()
		return
	}
	d.running = false
	stop, done := d.stopCh, d.done
	d.runMu.Unlock()

	close(stop)
	<-done
	d.log.Info("stopped")
}

// IsRunning reports whether the sampler loop is running.
func (d *Dashboard) IsRunning() bool {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	return d.running
}

func (d *Dashboard) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(d.cfg.UpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.Update()
		case <-stop:
			return
		}
	}
}

// Update takes one sample: it collects every metric group, checks the
// alert thresholds, appends to the history and notifies subscribers.
func (d *Dashboard) Update() types.DashboardMetrics {
	d.updateMu.Lock()
	defer d.updateMu.Unlock()

	now := d.now()
	m := types.DashboardMetrics{
		Timestamp:  now,
		Optimizers: make(map[string]types.OptimizerStats, len(d.optimizers)),
	}
	d.isolate("system", func() error { return d.collectSystem(&m) })
	d.isolate("optimizers", func() error { return d.collectOptimizers(&m) })
	d.isolate("resilience", func() error { return d.collectResilience(&m) })
	d.performance(&m, now)
	m.HealthScore = HealthScore(m)

	d.mu.Lock()
	d.current = m
	d.hasCurrent = true
	transitions := d.checkAlerts(m, now)
	d.mu.Unlock()
	d.history.Push(m)

	d.cbMu.RLock()
	onUpdate := slices.Clone(d.onUpdate)
	onAlert := slices.Clone(d.onAlert)
	d.cbMu.RUnlock()
	for _, a := range transitions {
		for _, fn := range onAlert {
			d.isolate("alert callback", func() error { fn(a); return nil })
		}
	}
	for _, fn := range onUpdate {
		d.isolate("update callback", func() error { fn(m); return nil })
	}
	return m
}

// isolate runs fn, logging its error or panic instead of propagating it.
func (d *Dashboard) isolate(name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("%s panicked: %v", name, r)
		}
	}()
	if err := fn(); err != nil {
		d.log.Warn("%s: %v", name, err)
	}
}

func (d *Dashboard) collectSystem(m *types.DashboardMetrics) error {
	if d.system == nil {
		return nil
	}
	sm, err := d.system.SystemMetrics()
	if err != nil {
		return err
	}
	m.System = sm
	return nil
}

func (d *Dashboard) collectOptimizers(m *types.DashboardMetrics) error {
	for _, p := range d.optimizers {
		st := p.GetMetrics()
		m.Optimizers[st.Format] = st
	}
	return nil
}

func (d *Dashboard) collectResilience(m *types.DashboardMetrics) error {
	m.Resilience.CircuitBreakerHealth = 100
	var errs []error
	if d.breakers != nil {
		h, err := d.breakers.SystemHealth()
		if err != nil {
			errs = append(errs, fmt.Errorf("circuit breakers: %w", err))
		} else {
			m.Resilience.CircuitBreakerHealth = h.OverallHealth
			m.Resilience.OpenBreakers = h.OpenBreakers
			m.Resilience.TotalBreakers = h.TotalBreakers
			m.Resilience.RecoveryRate = h.RecoveryRate
		}
	}
	if d.leaks != nil {
		rs, err := d.leaks.ResourceStats()
		if err != nil {
			errs = append(errs, fmt.Errorf("leak detector: %w", err))
		} else {
			m.Resilience.TrackedResources = rs.TotalTracked
			m.Resilience.PotentialLeaks = rs.PotentialLeaks
		}
	}
	return errors.Join(errs...)
}

// performance derives the aggregate performance group from the optimizer
// counters and the previous sample.
func (d *Dashboard) performance(m *types.DashboardMetrics, now time.Time) {
	p := &m.Performance
	var reads, failures, invalid int64
	var total time.Duration
	for _, st := range m.Optimizers {
		p.RecordsProcessed += st.RecordsProcessed
		p.BytesProcessed += st.BytesProcessed
		p.ActiveReads += st.ActiveReads
		reads += st.Reads
		failures += st.Failures
		invalid += st.ValidationErrors
		total += st.TotalProcessingTime
	}
	if reads > 0 {
		p.AvgExecutionTimeMs = float64(total.Microseconds()) / 1000 / float64(reads)
	}
	if p.RecordsProcessed > 0 {
		p.AvgRecordTimeMs = float64(total.Microseconds()) / 1000 / float64(p.RecordsProcessed)
	}
	if attempted := p.RecordsProcessed + invalid + failures; attempted > 0 {
		p.ErrorRate = float64(invalid+failures) / float64(attempted) * 100
	}
	if d.settings != nil {
		if workers := d.settings.Current().MaxWorkers; workers > 0 {
			p.WorkerUtilization = min(100, float64(p.ActiveReads)/float64(workers)*100)
		}
	}

	d.mu.Lock()
	if !d.prevAt.IsZero() {
		if elapsed := now.Sub(d.prevAt).Seconds(); elapsed > 0 && p.RecordsProcessed >= d.prevRecords {
			p.Throughput = float64(p.RecordsProcessed-d.prevRecords) / elapsed
		}
	}
	d.prevRecords = p.RecordsProcessed
	d.prevAt = now
	d.mu.Unlock()
}

// GetCurrentMetrics returns the latest sample, taking one if none exists.
func (d *Dashboard) GetCurrentMetrics() types.DashboardMetrics {
	d.mu.RLock()
	m, ok := d.current, d.hasCurrent
	d.mu.RUnlock()
	if !ok {
		return d.Update()
	}
	return m
}

// GetMetricsHistory returns the samples of the last minutes, oldest first.
// A non-positive minutes returns the whole history.
func (d *Dashboard) GetMetricsHistory(minutes int) []types.DashboardMetrics {
	items := d.history.Items()
	if minutes <= 0 {
		return items
	}
	cutoff := d.now().Add(-time.Duration(minutes) * time.Minute)
	for i, m := range items {
		if !m.Timestamp.Before(cutoff) {
			return items[i:]
		}
	}
	return nil
}
