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

/*
Package streamopt reads JSON, spreadsheet and columnar files with schema
awareness and memory bounded streaming, and tunes its own settings to the
observed workload.

# Components

An Engine owns a single settings store. Everything else reads from it:

  - the format optimizers (optimizer/jsonopt, optimizer/sheetopt and
    optimizer/columnopt) refresh settings at every batch boundary and pick
    streaming or buffered reads against the memory ceiling;
  - the resource monitor reports heap pressure, and the optimizers reclaim
    memory when it crosses the high water mark;
  - the dashboard samples system, optimizer and resilience metrics, raises
    threshold alerts and scores health;
  - the adaptive manager classifies the workload from dashboard samples and
    moves the settings toward a matching profile in bounded steps.

# Getting started

	e := streamopt.New()
	if err := e.Start(); err != nil {
		log.Fatal(err)
	}
	defer e.Shutdown()

	records, err := e.Read(ctx, "orders.parquet", optimizer.ReadOptions{
		Columns:   []string{"id", "total"},
		Predicate: "total > 100",
	})

Streaming consumers use Each and return optimizer.ErrStop to end early:

	err := e.Each(ctx, "events.ndjson", optimizer.ReadOptions{EnforceTypes: true},
		func(r optimizer.Record) error {
			return sink.Write(r)
		})

# Settings

Settings come from types.DefaultSettings, a built-in profile (WithProfile)
or a YAML file (types.LoadSettings). Adapted settings are always clamped
into the hard bounds of the knob table; settings given explicitly are
published as is.
*/
package streamopt
