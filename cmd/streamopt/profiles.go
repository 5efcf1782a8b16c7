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

package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rulego/streamopt/types"
	"github.com/rulego/streamopt/utils/table"
)

func newProfilesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the performance profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles := a.engine.Adaptive().Profiles()
			rows := make([]map[string]interface{}, len(profiles))
			for i, p := range profiles {
				rows[i] = map[string]interface{}{
					"name":        p.Name,
					"priority":    p.Priority,
					"target":      describeTarget(p.Target),
					"workers":     p.Settings.MaxWorkers,
					"memory MiB":  p.Settings.MemoryLimitMB,
					"description": p.Description,
				}
			}
			return table.Write(cmd.OutOrStdout(), rows, []string{"name", "priority", "target", "workers", "memory MiB", "description"})
		},
	}
}

func describeTarget(m types.WorkloadMatch) string {
	var parts []string
	add := func(name string, v interface{ String() string }) {
		parts = append(parts, name+"="+v.String())
	}
	if m.DataSize != nil {
		add("size", *m.DataSize)
	}
	if m.Complexity != nil {
		add("complexity", *m.Complexity)
	}
	if m.IOPattern != nil {
		add("io", *m.IOPattern)
	}
	if m.MemoryPressure != nil {
		add("memory", *m.MemoryPressure)
	}
	if m.Concurrency != nil {
		add("concurrency", *m.Concurrency)
	}
	if m.ErrorRate != nil {
		add("errors", *m.ErrorRate)
	}
	return strings.Join(parts, " ")
}
