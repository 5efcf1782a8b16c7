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
	"io"
	"time"

	"github.com/rulego/streamopt/adaptive"
	"github.com/rulego/streamopt/dashboard"
	"github.com/rulego/streamopt/logger"
	"github.com/rulego/streamopt/monitor"
	"github.com/rulego/streamopt/optimizer"
	"github.com/rulego/streamopt/store"
	"github.com/rulego/streamopt/types"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger shared by every component.
//
// Example:
//
//	e := streamopt.New(streamopt.WithLogger(logger.NewLogger(logger.DEBUG, os.Stderr)))
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithLogLevel sets the level of the global default logger, which the
// engine uses unless WithLogger is given.
func WithLogLevel(level logger.Level) Option {
	return func(e *Engine) {
		logger.GetDefault().SetLevel(level)
	}
}

// WithLogOutput logs to output at level.
func WithLogOutput(output io.Writer, level logger.Level) Option {
	return func(e *Engine) {
		e.log = logger.NewLogger(level, output)
	}
}

// WithDiscardLog disables logging.
func WithDiscardLog() Option {
	return func(e *Engine) {
		e.log = logger.NewDiscardLogger()
	}
}

// WithSettings sets the initial settings. They are published as given,
// without clamping.
func WithSettings(s types.Settings) Option {
	return func(e *Engine) {
		e.initial = s
	}
}

// WithDashboardConfig sets the dashboard configuration.
func WithDashboardConfig(cfg dashboard.Config) Option {
	return func(e *Engine) {
		e.dashCfg = cfg
	}
}

// WithAdaptiveConfig sets the adaptation configuration.
func WithAdaptiveConfig(cfg adaptive.Config) Option {
	return func(e *Engine) {
		e.adaptCfg = cfg
	}
}

// WithoutAdaptation keeps the settings fixed after Start.
func WithoutAdaptation() Option {
	return func(e *Engine) {
		e.adaptCfg.Enabled = false
	}
}

// WithProfiles registers extra performance profiles next to the built-in
// ones. A profile named like a built-in one replaces it.
func WithProfiles(ps ...types.PerformanceProfile) Option {
	return func(e *Engine) {
		e.profiles = append(e.profiles, ps...)
	}
}

// WithAuditStore records alert transitions and applied adaptations in s.
func WithAuditStore(s *store.Store) Option {
	return func(e *Engine) {
		e.audit = s
	}
}

// WithCircuitBreakers reports on m in the dashboard.
func WithCircuitBreakers(m types.CircuitBreakerManager) Option {
	return func(e *Engine) {
		e.breakers = m
	}
}

// WithLeakDetector reports on d in the dashboard.
func WithLeakDetector(d types.LeakDetector) Option {
	return func(e *Engine) {
		e.leaks = d
	}
}

// WithReclaimDelay sets the pause after a forced reclamation at a batch
// boundary.
func WithReclaimDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.optOpts = append(e.optOpts, optimizer.WithReclaimDelay(d))
	}
}

// WithHeapReader replaces the live heap reader of the monitor and the
// optimizers' peak tracking.
func WithHeapReader(fn func() uint64) Option {
	return func(e *Engine) {
		e.monOpts = append(e.monOpts, monitor.WithHeapReader(fn))
		e.optOpts = append(e.optOpts, optimizer.WithHeapReader(fn))
	}
}
