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

package streamopt

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rulego/streamopt/adaptive"
	"github.com/rulego/streamopt/dashboard"
	"github.com/rulego/streamopt/logger"
	"github.com/rulego/streamopt/monitor"
	"github.com/rulego/streamopt/optimizer"
	"github.com/rulego/streamopt/optimizer/columnopt"
	"github.com/rulego/streamopt/optimizer/jsonopt"
	"github.com/rulego/streamopt/optimizer/sheetopt"
	"github.com/rulego/streamopt/store"
	"github.com/rulego/streamopt/types"
)

// Engine owns one settings store and every component reading from it: the
// resource monitor, the JSON, spreadsheet and columnar optimizers, the
// metrics dashboard and the adaptive configuration manager.
//
// Example:
//
//	e := streamopt.New(streamopt.WithDiscardLog())
//	if err := e.Start(); err != nil {
//	    return err
//	}
//	defer e.Shutdown()
//	records, err := e.Read(ctx, "events.ndjson", optimizer.ReadOptions{ValidateSchema: true})
type Engine struct {
	log      logger.Logger
	initial  types.Settings
	settings *types.SettingsStore
	monitor  *monitor.Monitor

	json    *jsonopt.Optimizer
	sheet   *sheetopt.Optimizer
	column  *columnopt.Optimizer
	byExt   map[string]optimizer.Optimizer
	dash    *dashboard.Dashboard
	adapt   *adaptive.Manager
	audit   *store.Store
	metrics *dashboard.PrometheusCollector

	dashCfg      dashboard.Config
	adaptCfg     adaptive.Config
	profiles     []types.PerformanceProfile
	breakers     types.CircuitBreakerManager
	leaks        types.LeakDetector
	optOpts      []optimizer.Option
	monOpts      []monitor.Option
	startProfile string

	mu      sync.Mutex
	started bool
	closed  bool
}

// New creates a stopped engine. Call Start to begin sampling and
// adaptation; reads work either way.
func New(options ...Option) *Engine {
	e := &Engine{
		initial:  types.DefaultSettings(),
		dashCfg:  dashboard.DefaultConfig(),
		adaptCfg: adaptive.DefaultConfig(),
	}
	for _, opt := range options {
		opt(e)
	}
	e.log = logger.OrDefault(e.log)
	if e.startProfile != "" {
		e.applyProfile(e.startProfile)
	}

	e.settings = types.NewSettingsStore(e.initial)
	e.monitor = monitor.New(e.settings, append([]monitor.Option{monitor.WithLogger(e.log)}, e.monOpts...)...)
	opts := append([]optimizer.Option{
		optimizer.WithSettings(e.settings),
		optimizer.WithMonitor(e.monitor),
		optimizer.WithLogger(e.log),
	}, e.optOpts...)
	e.json = jsonopt.New(opts...)
	e.sheet = sheetopt.New(opts...)
	e.column = columnopt.New(opts...)
	e.byExt = make(map[string]optimizer.Optimizer)
	for _, o := range e.Optimizers() {
		for _, ext := range o.Extensions() {
			e.byExt[ext] = o
		}
	}

	dashOpts := []dashboard.Option{
		dashboard.WithLogger(e.log),
		dashboard.WithSystemSampler(e.monitor),
		dashboard.WithSettings(e.settings),
		dashboard.WithOptimizers(e.json, e.sheet, e.column),
	}
	if e.breakers != nil {
		dashOpts = append(dashOpts, dashboard.WithCircuitBreakers(e.breakers))
	}
	if e.leaks != nil {
		dashOpts = append(dashOpts, dashboard.WithLeakDetector(e.leaks))
	}
	e.dash = dashboard.New(e.dashCfg, dashOpts...)
	e.metrics = dashboard.NewPrometheusCollector(e.dash)

	e.adapt = adaptive.New(e.adaptCfg, e.dash, e.settings, adaptive.WithLogger(e.log))
	for _, p := range e.profiles {
		if err := e.adapt.AddProfile(p); err != nil {
			e.log.Warn("profile %q ignored: %v", p.Name, err)
		}
	}

	if e.audit != nil {
		e.dash.OnAlert(func(a types.Alert) {
			if err := e.audit.RecordAlert(a); err != nil {
				e.log.Warn("audit alert %s: %v", a.ID, err)
			}
		})
		e.adapt.OnSettingsChanged(func(c adaptive.SettingsChange) {
			if err := e.audit.RecordAdaptation(c); err != nil {
				e.log.Warn("audit adaptation %s: %v", c.ID, err)
			}
		})
	}
	return e
}

// applyProfile seeds the initial settings from a built-in or registered
// profile.
func (e *Engine) applyProfile(name string) {
	for _, p := range append(adaptive.BuiltinProfiles(), e.profiles...) {
		if p.Name == name {
			e.initial = types.Validate(p.Settings)
			return
		}
	}
	e.log.Warn("unknown profile %q, using default settings", name)
}

// Start starts the dashboard sampler and the adaptation loop.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return types.NewValidationError("engine", "closed", "engine is shut down")
	}
	if e.started {
		return nil
	}
	if err := e.dash.Start(); err != nil {
		return err
	}
	if err := e.adapt.Start(e.settings.Current()); err != nil {
		e.dash.Stop()
		return err
	}
	e.started = true
	return nil
}

// Stop stops the adaptation loop and the dashboard sampler. Settings keep
// their last adapted values.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return
	}
	e.adapt.Stop()
	e.dash.Stop()
	e.started = false
}

// Shutdown stops the loops and shuts every optimizer down. The audit store
// stays open; its owner closes it.
func (e *Engine) Shutdown() error {
	e.Stop()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	var first error
	for _, o := range e.Optimizers() {
		if err := o.Shutdown(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OptimizerFor returns the optimizer accepting path's extension.
func (e *Engine) OptimizerFor(path string) (optimizer.Optimizer, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if o, ok := e.byExt[ext]; ok {
		return o, nil
	}
	return nil, types.NewValidationError("path", path, "no optimizer for extension %q", ext)
}

// Read reads the selected records of path with the optimizer for its
// extension.
func (e *Engine) Read(ctx context.Context, path string, opts optimizer.ReadOptions) ([]optimizer.Record, error) {
	o, err := e.OptimizerFor(path)
	if err != nil {
		return nil, err
	}
	return o.OptimizeRead(ctx, path, opts)
}

// Each streams the selected records of path into fn.
func (e *Engine) Each(ctx context.Context, path string, opts optimizer.ReadOptions, fn func(optimizer.Record) error) error {
	o, err := e.OptimizerFor(path)
	if err != nil {
		return err
	}
	return o.Each(ctx, path, opts, fn)
}

// Analyze inspects path without reading its records.
func (e *Engine) Analyze(ctx context.Context, path string) (*optimizer.Analysis, error) {
	o, err := e.OptimizerFor(path)
	if err != nil {
		return nil, err
	}
	return o.Analyze(ctx, path)
}

// Optimizers returns the format optimizers.
func (e *Engine) Optimizers() []optimizer.Optimizer {
	return []optimizer.Optimizer{e.json, e.sheet, e.column}
}

func (e *Engine) JSON() *jsonopt.Optimizer            { return e.json }
func (e *Engine) Spreadsheet() *sheetopt.Optimizer    { return e.sheet }
func (e *Engine) Columnar() *columnopt.Optimizer      { return e.column }
func (e *Engine) Dashboard() *dashboard.Dashboard     { return e.dash }
func (e *Engine) Adaptive() *adaptive.Manager         { return e.adapt }
func (e *Engine) Monitor() *monitor.Monitor           { return e.monitor }
func (e *Engine) SettingsStore() *types.SettingsStore { return e.settings }

// Settings returns the settings in effect.
func (e *Engine) Settings() types.Settings { return e.settings.Current() }

// Collector returns a Prometheus collector over the dashboard.
func (e *Engine) Collector() prometheus.Collector { return e.metrics }

// Summary returns the dashboard's performance summary.
func (e *Engine) Summary() dashboard.PerformanceSummary {
	return e.dash.GetPerformanceSummary()
}
