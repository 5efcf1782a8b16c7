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
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rulego/streamopt/dashboard"
	"github.com/rulego/streamopt/optimizer"
	"github.com/rulego/streamopt/utils/table"
)

type readFlags struct {
	opts    optimizer.ReadOptions
	sample  int
	jsonOut bool
	summary bool
}

func newReadCmd(a *app) *cobra.Command {
	var rf readFlags
	cmd := &cobra.Command{
		Use:   "read <file>",
		Short: "Read a file and print the records",
		Long:  "Read a file with the optimizer for its extension. Prints the record count and a sample as a table, or every record as JSON lines with --json.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(cmd, a, args[0], rf)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&rf.opts.ValidateSchema, "validate", false, "validate records against the inferred schema")
	f.BoolVar(&rf.opts.EnforceTypes, "enforce-types", false, "coerce values to the inferred types")
	f.BoolVar(&rf.opts.SkipInvalidRecords, "skip-invalid", false, "skip and count invalid records instead of failing")
	f.Int64Var(&rf.opts.MaxRecords, "max-records", 0, "stop after this many records")
	f.Int64Var(&rf.opts.StartRecord, "start", 0, "skip this many leading records")
	f.StringSliceVar(&rf.opts.SelectFields, "select", nil, "keep only these field paths")
	f.StringSliceVar(&rf.opts.Columns, "columns", nil, "columnar: keep only these columns")
	f.StringVar(&rf.opts.Predicate, "where", "", "columnar: keep rows matching this expression")
	f.Int64Var(&rf.opts.RowRange.Start, "row-start", 0, "columnar: first row position")
	f.Int64Var(&rf.opts.RowRange.End, "row-end", 0, "columnar: row position to stop before")
	f.StringSliceVar(&rf.opts.Worksheets, "sheet", nil, "spreadsheet: worksheets to read")
	f.IntVar(&rf.opts.HeaderRow, "header-row", 0, "spreadsheet: 1-based header row")
	f.IntVar(&rf.opts.StartRow, "start-row", 0, "spreadsheet: first data row")
	f.IntVar(&rf.opts.EndRow, "end-row", 0, "spreadsheet: last data row")
	f.IntVar(&rf.sample, "sample", 10, "records to print as a table")
	f.BoolVar(&rf.jsonOut, "json", false, "print every record as a JSON line")
	f.BoolVar(&rf.summary, "summary", false, "print the performance summary afterwards")
	return cmd
}

func runRead(cmd *cobra.Command, a *app, path string, rf readFlags) error {
	out := cmd.OutOrStdout()
	var (
		count  int
		sample []map[string]interface{}
		enc    = json.NewEncoder(out)
	)
	err := a.engine.Each(cmd.Context(), path, rf.opts, func(r optimizer.Record) error {
		count++
		if rf.jsonOut {
			return enc.Encode(r)
		}
		if len(sample) < rf.sample {
			sample = append(sample, r)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !rf.jsonOut {
		fmt.Fprintf(out, "%d records\n", count)
		if len(sample) > 0 {
			if err := table.Write(out, sample, fieldOrder(rf.opts)); err != nil {
				return err
			}
		}
	}
	if rf.summary {
		return writeSummary(out, a)
	}
	return nil
}

func fieldOrder(opts optimizer.ReadOptions) []string {
	if len(opts.Columns) > 0 {
		return opts.Columns
	}
	return opts.SelectFields
}

func writeSummary(w io.Writer, a *app) error {
	a.engine.Dashboard().Update()
	return dashboard.WriteSummary(w, a.engine.Summary())
}
