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
	"os"

	"gopkg.in/yaml.v3"
)

// LoadSettings reads settings from a YAML or JSON file. Fields missing from
// the file keep their DefaultSettings values; the result is validated.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings %s: %w", path, err)
	}
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("decode settings %s: %w", path, err)
	}
	return Validate(s), nil
}

// SaveSettings writes settings as YAML.
func SaveSettings(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadProfiles reads a YAML document with a top-level "profiles" list.
// Profile settings start from DefaultSettings and are validated.
func LoadProfiles(path string) ([]PerformanceProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles %s: %w", path, err)
	}
	var raw struct {
		Profiles []yaml.Node `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode profiles %s: %w", path, err)
	}
	profiles := make([]PerformanceProfile, 0, len(raw.Profiles))
	for i := range raw.Profiles {
		p := PerformanceProfile{Settings: DefaultSettings()}
		if err := raw.Profiles[i].Decode(&p); err != nil {
			return nil, fmt.Errorf("decode profile #%d: %w", i, err)
		}
		if err := p.Check(); err != nil {
			return nil, err
		}
		p.Settings = Validate(p.Settings)
		profiles = append(profiles, p)
	}
	return profiles, nil
}
