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

import "sync/atomic"

// SettingsProvider exposes the settings currently in effect.
type SettingsProvider interface {
	Current() Settings
}

// SettingsStore publishes Settings with an atomic pointer swap, so readers
// never observe a partially applied configuration.
type SettingsStore struct {
	current atomic.Pointer[Settings]
	version atomic.Uint64
}

// NewSettingsStore creates a store seeded with initial.
func NewSettingsStore(initial Settings) *SettingsStore {
	s := &SettingsStore{}
	s.current.Store(&initial)
	return s
}

// Current returns a copy of the settings in effect.
func (s *SettingsStore) Current() Settings {
	if p := s.current.Load(); p != nil {
		return *p
	}
	return DefaultSettings()
}

// Store swaps in next and returns the previous settings. No clamping is
// applied here; callers that need bounds call Validate first.
func (s *SettingsStore) Store(next Settings) Settings {
	previous := s.current.Swap(&next)
	s.version.Add(1)
	if previous == nil {
		return DefaultSettings()
	}
	return *previous
}

// Version increments on every Store.
func (s *SettingsStore) Version() uint64 {
	return s.version.Load()
}
