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
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/rulego/streamopt/utils/table"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var details bool
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Describe a file without reading its records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			an, err := a.engine.Analyze(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			err = table.KeyValue(out, map[string]interface{}{
				"format":            an.Format,
				"size bytes":        an.SizeBytes,
				"root":              an.RootKind,
				"estimated records": an.EstimatedRecords,
				"complexity":        an.Complexity,
				"streaming":         an.Streaming,
			})
			if err != nil || !details {
				return err
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{"schema": an.Schema, "details": an.Details})
		},
	}
	cmd.Flags().BoolVar(&details, "details", false, "also print the schema and format details as JSON")
	return cmd
}
