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

// Package adaptive tunes the shared settings to the observed workload.
//
// Every tick classifies the latest dashboard sample, appends it to a
// bounded history and, when the history is long enough, throughput is
// stable and performance is degrading or suboptimal, moves the settings a
// bounded step toward a target. The target comes from the best matching
// PerformanceProfile or, failing that, from Synthesize. The result is
// validated and published with one atomic store.
package adaptive

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rulego/streamopt/logger"
	"github.com/rulego/streamopt/types"
	"github.com/rulego/streamopt/utils/ring"
)

// ErrRunning is returned by Start when the manager is already running.
var ErrRunning = errors.New("adaptive: already running")

// Skip reasons reported in AdaptationMetrics.LastDecision.
const (
	DecisionInsufficientSamples = "insufficient samples"
	DecisionUnstable            = "unstable throughput"
	DecisionAcceptable          = "performance acceptable"
	DecisionNoChange            = "already at target"
	DecisionAdapted             = "adapted"
	DecisionFailed              = "failed"
)

// MetricsSource supplies the latest dashboard sample.
type MetricsSource interface {
	GetCurrentMetrics() types.DashboardMetrics
}

// SettingsTarget is where adapted settings are published.
type SettingsTarget interface {
	Current() types.Settings
	Store(types.Settings) types.Settings
}

// SettingsChange describes one applied adaptation.
type SettingsChange struct {
	ID        string                        `json:"id"`
	Timestamp time.Time                     `json:"timestamp"`
	Profile   string                        `json:"profile,omitempty"`
	Workload  types.WorkloadCharacteristics `json:"workload"`
	Trend     PerformanceTrend              `json:"trend"`
	Before    types.Settings                `json:"before"`
	After     types.Settings                `json:"after"`
	Changes   []types.KnobChange            `json:"changes"`
}

// AdaptationMetrics summarizes the manager's activity.
type AdaptationMetrics struct {
	Ticks          int64                         `json:"ticks"`
	Adaptations    int64                         `json:"adaptations"`
	Failures       int64                         `json:"failures"`
	LastAdjustment time.Time                     `json:"lastAdjustment,omitempty"`
	LastDecision   string                        `json:"lastDecision"`
	StabilityScore float64                       `json:"stabilityScore"`
	ActiveProfile  string                        `json:"activeProfile,omitempty"`
	ChangedKnobs   []string                      `json:"changedKnobs,omitempty"`
	LastWorkload   types.WorkloadCharacteristics `json:"lastWorkload"`
	LastTrend      PerformanceTrend              `json:"lastTrend,omitempty"`
	Samples        int                           `json:"samples"`
}

type sample struct {
	at       time.Time
	workload types.WorkloadCharacteristics
	metrics  types.DashboardMetrics
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithProfiles replaces the built-in profiles.
func WithProfiles(ps ...types.PerformanceProfile) Option {
	return func(m *Manager) { m.profiles = append([]types.PerformanceProfile(nil), ps...) }
}

// WithCPUCount overrides runtime.NumCPU for synthesized worker counts.
func WithCPUCount(n int) Option {
	return func(m *Manager) { m.numCPU = n }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager is the adaptive configuration manager. It is safe for concurrent
// use.
type Manager struct {
	cfg    Config
	log    logger.Logger
	source MetricsSource
	target SettingsTarget
	numCPU int
	now    func() time.Time

	// mu serializes ticks and guards the fields below
	mu       sync.Mutex
	profiles []types.PerformanceProfile
	history  *ring.Ring[sample]
	baseline types.Settings
	metrics  AdaptationMetrics

	cbMu     sync.RWMutex
	onChange []func(SettingsChange)

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// New creates a stopped manager reading samples from source and
// publishing to target.
func New(cfg Config, source MetricsSource, target SettingsTarget, opts ...Option) *Manager {
	cfg = cfg.withDefaults()
	m := &Manager{
		cfg:      cfg,
		source:   source,
		target:   target,
		numCPU:   runtime.NumCPU(),
		now:      time.Now,
		profiles: BuiltinProfiles(),
		history:  ring.New[sample](cfg.AnalysisWindowMinutes),
		baseline: target.Current(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = logger.Named(m.log, "adaptive")
	return m
}

// Config returns the configuration in use.
func (m *Manager) Config() Config { return m.cfg }

// OnSettingsChanged registers fn to receive every applied adaptation.
func (m *Manager) OnSettingsChanged(fn func(SettingsChange)) {
	m.cbMu.Lock()
	m.onChange = append(m.onChange, fn)
	m.cbMu.Unlock()
}

// Start seeds the baseline and current settings with initial and, when
// enabled, starts the adaptation loop.
func (m *Manager) Start(initial types.Settings) error {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.running {
		return ErrRunning
	}
	m.mu.Lock()
	m.baseline = initial
	m.history.Reset()
	m.mu.Unlock()
	m.target.Store(initial)

	if !m.cfg.Enabled {
		m.log.Info("adaptation disabled, settings stay fixed")
		return nil
	}
	m.running = true
	m.stopCh, m.done = make(chan struct{}), make(chan struct{})
	go m.loop(m.stopCh, m.done)
	m.log.Info("started, adapting every %v", m.cfg.AdaptationInterval)
	return nil
}

// Stop halts the adaptation loop. Stopping a stopped manager is a no-op.
func (m *Manager) Stop() {
	m.runMu.Lock()
	if !m.running {
		m.runMu.Unlock()
		return
	}
	m.running = false
	stop, done := m.stopCh, m.done
	m.runMu.Unlock()

	close(stop)
	<-done
	m.log.Info("stopped")
}

// IsRunning reports whether the adaptation loop is running.
func (m *Manager) IsRunning() bool {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	return m.running
}

func (m *Manager) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.cfg.AdaptationInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := m.TriggerAdaptation(); err != nil {
				m.log.Error("adaptation tick abandoned: %v", err)
			}
		case <-stop:
			return
		}
	}
}

// TriggerAdaptation runs one adaptation cycle and returns the settings in
// effect afterwards. A failing cycle leaves the settings untouched.
func (m *Manager) TriggerAdaptation() (settings types.Settings, err error) {
	change, err := m.tick()
	if err != nil {
		return m.target.Current(), err
	}
	if change != nil {
		m.notify(*change)
		return change.After, nil
	}
	return m.target.Current(), nil
}

func (m *Manager) tick() (change *SettingsChange, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			change, err = nil, fmt.Errorf("adaptation panicked: %v", r)
		}
		if err != nil {
			m.metrics.Failures++
			m.metrics.LastDecision = DecisionFailed
		}
	}()
	m.metrics.Ticks++

	current := m.source.GetCurrentMetrics()
	s := sample{at: m.now(), workload: Classify(current), metrics: current}
	m.history.Push(s)
	m.metrics.Samples = m.history.Len()
	m.metrics.LastWorkload = s.workload

	recent := m.history.Items()
	throughput := make([]float64, len(recent))
	for i, r := range recent {
		throughput[i] = r.metrics.Performance.Throughput
	}
	cv := CoefficientOfVariation(throughput)
	m.metrics.StabilityScore = max(0, 1-cv)

	if len(recent) < m.cfg.MinSamples {
		m.metrics.LastDecision = DecisionInsufficientSamples
		return nil, nil
	}
	if cv >= m.cfg.StabilityThreshold {
		m.metrics.LastDecision = DecisionUnstable
		m.log.Debug("throughput cv %.2f, not adapting", cv)
		return nil, nil
	}
	trend := ClassifyTrend(recent[len(recent)-2].metrics, s.metrics)
	m.metrics.LastTrend = trend
	if trend != TrendDegrading && trend != TrendSuboptimal {
		m.metrics.LastDecision = DecisionAcceptable
		return nil, nil
	}

	before := m.target.Current()
	goal, profile := m.targetFor(s.workload, before, current)
	after := types.Validate(Gradual(before, goal, m.cfg.MaxAdjustmentPercentage))
	changes := types.Diff(before, after)
	if len(changes) == 0 {
		m.metrics.LastDecision = DecisionNoChange
		return nil, nil
	}

	m.target.Store(after)
	m.metrics.Adaptations++
	m.metrics.LastAdjustment = s.at
	m.metrics.LastDecision = DecisionAdapted
	m.metrics.ActiveProfile = profile
	m.metrics.ChangedKnobs = types.ChangedNames(changes)
	m.log.Info("%s workload (%s), adjusted %v", trend, s.workload, m.metrics.ChangedKnobs)
	return &SettingsChange{
		ID:        uuid.NewString(),
		Timestamp: s.at,
		Profile:   profile,
		Workload:  s.workload,
		Trend:     trend,
		Before:    before,
		After:     after,
		Changes:   changes,
	}, nil
}

// targetFor picks the matching profile's settings or synthesizes them.
// Callers hold m.mu.
func (m *Manager) targetFor(w types.WorkloadCharacteristics, current types.Settings, dm types.DashboardMetrics) (types.Settings, string) {
	if p, _, ok := MatchProfile(m.profiles, w, m.cfg.ProfileMatchThreshold); ok {
		return p.Settings, p.Name
	}
	return Synthesize(w, current, dm, m.numCPU), ""
}

func (m *Manager) notify(c SettingsChange) {
	m.cbMu.RLock()
	fns := slices.Clone(m.onChange)
	m.cbMu.RUnlock()
	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.log.Error("settings callback panicked: %v", r)
				}
			}()
			fn(c)
		}()
	}
}

// AddProfile registers a profile. A profile with the same name is
// replaced.
func (m *Manager) AddProfile(p types.PerformanceProfile) error {
	if err := p.Check(); err != nil {
		return err
	}
	p.Settings = types.Validate(p.Settings)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.profiles {
		if m.profiles[i].Name == p.Name {
			m.profiles[i] = p
			return nil
		}
	}
	m.profiles = append(m.profiles, p)
	return nil
}

// Profiles returns the registered profiles.
func (m *Manager) Profiles() []types.PerformanceProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.profiles)
}

// GetRecommendedSettings returns the validated target for workload w and
// the name of the matched profile, empty when the target was synthesized.
// Nothing is applied.
func (m *Manager) GetRecommendedSettings(w types.WorkloadCharacteristics) (types.Settings, string) {
	current := m.source.GetCurrentMetrics()
	m.mu.Lock()
	defer m.mu.Unlock()
	goal, profile := m.targetFor(w, m.target.Current(), current)
	return types.Validate(goal), profile
}

// Recommend classifies the current metrics and returns
// GetRecommendedSettings for that workload.
func (m *Manager) Recommend() (types.Settings, string) {
	return m.GetRecommendedSettings(Classify(m.source.GetCurrentMetrics()))
}

// GetCurrentSettings returns the settings in effect.
func (m *Manager) GetCurrentSettings() types.Settings {
	return m.target.Current()
}

// Baseline returns the settings the manager was started with.
func (m *Manager) Baseline() types.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseline
}

// ResetToBaseline publishes the baseline settings again.
func (m *Manager) ResetToBaseline() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.target.Store(m.baseline)
	m.metrics.ActiveProfile = ""
	m.log.Info("settings reset to baseline")
}

// GetAdaptationMetrics returns a snapshot of the adaptation metrics.
func (m *Manager) GetAdaptationMetrics() AdaptationMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.metrics
	out.ChangedKnobs = slices.Clone(m.metrics.ChangedKnobs)
	return out
}
