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
	"errors"
	"fmt"
)

// PerformanceProfile is a named, hand-authored configuration bundle matched
// against the current workload.
type PerformanceProfile struct {
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description" yaml:"description"`
	Target      WorkloadMatch `json:"target" yaml:"target"`
	Settings    Settings      `json:"settings" yaml:"settings"`
	Priority    int           `json:"priority" yaml:"priority"`
}

// Check reports whether the profile can be registered.
func (p PerformanceProfile) Check() error {
	if p.Name == "" {
		return errors.New("profile name is required")
	}
	if p.Target.Defined() == 0 {
		return fmt.Errorf("profile %q defines no target characteristics", p.Name)
	}
	return nil
}
