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

// Package optimizer holds the contract shared by the format optimizers and
// the machinery they have in common: read options, the record pipeline, the
// metrics collector and the batch boundary where settings are refreshed and
// memory pressure is handled.
package optimizer

import (
	"context"
	"errors"

	"github.com/rulego/streamopt/schema"
	"github.com/rulego/streamopt/types"
	"github.com/rulego/streamopt/utils/fieldpath"
)

// Record is one decoded row or document.
type Record = map[string]interface{}

// ErrStop is returned by an Each callback to end the read early. Each then
// returns nil.
var ErrStop = errors.New("optimizer: stop")

// Format names.
const (
	FormatJSON        = "json"
	FormatSpreadsheet = "spreadsheet"
	FormatColumnar    = "columnar"
)

// Optimizer is implemented by every format optimizer.
type Optimizer interface {
	// Format returns the format name used in metrics.
	Format() string
	// Extensions lists the accepted lower-case file extensions.
	Extensions() []string
	// OptimizeRead reads the whole selection into memory.
	OptimizeRead(ctx context.Context, path string, opts ReadOptions) ([]Record, error)
	// Each streams the selection into fn, record by record.
	Each(ctx context.Context, path string, opts ReadOptions, fn func(Record) error) error
	// Analyze inspects a file without reading its records.
	Analyze(ctx context.Context, path string) (*Analysis, error)
	GetMetrics() types.OptimizerStats
	Reset()
	Shutdown() error
}

// RowRange selects record positions [Start, End). End 0 leaves the range
// open.
type RowRange struct {
	Start int64 `json:"start" yaml:"start"`
	End   int64 `json:"end" yaml:"end"`
}

// ReadOptions controls a read. Fields that do not apply to a format are
// ignored by it.
type ReadOptions struct {
	ValidateSchema     bool
	EnforceTypes       bool
	SkipInvalidRecords bool
	// MaxRecords caps the number of emitted records, 0 is unlimited
	MaxRecords int64
	// StartRecord skips that many leading records
	StartRecord  int64
	SelectFields []string
	// Transformers rewrite the value at a field path after projection
	Transformers map[string]func(interface{}) interface{}
	// Schema overrides inference
	Schema *schema.Schema

	// columnar
	Columns   []string
	RowRange  RowRange
	Predicate string

	// spreadsheet
	Worksheets []string
	// HeaderRow is the 1-based header row, 0 means 1
	HeaderRow int
	// StartRow and EndRow are 1-based inclusive sheet rows, 0 leaves the
	// bound open
	StartRow int
	EndRow   int
}

// Check validates the format independent options.
func (o ReadOptions) Check() error {
	switch {
	case o.MaxRecords < 0:
		return types.NewValidationError("maxRecords", o.MaxRecords, "must not be negative")
	case o.StartRecord < 0:
		return types.NewValidationError("startRecord", o.StartRecord, "must not be negative")
	case o.RowRange.Start < 0 || o.RowRange.End < 0:
		return types.NewValidationError("rowRange", o.RowRange, "bounds must not be negative")
	case o.RowRange.End != 0 && o.RowRange.End < o.RowRange.Start:
		return types.NewValidationError("rowRange", o.RowRange, "end %d before start %d", o.RowRange.End, o.RowRange.Start)
	case o.HeaderRow < 0:
		return types.NewValidationError("headerRow", o.HeaderRow, "must not be negative")
	case o.StartRow < 0 || o.EndRow < 0:
		return types.NewValidationError("startRow/endRow", [2]int{o.StartRow, o.EndRow}, "must not be negative")
	case o.EndRow != 0 && o.EndRow < o.StartRow:
		return types.NewValidationError("endRow", o.EndRow, "before startRow %d", o.StartRow)
	}
	for _, c := range o.Columns {
		if c == "" {
			return types.NewValidationError("columns", o.Columns, "empty column name")
		}
	}
	for _, w := range o.Worksheets {
		if w == "" {
			return types.NewValidationError("worksheets", o.Worksheets, "empty worksheet name")
		}
	}
	if err := checkPaths("selectFields", o.SelectFields); err != nil {
		return err
	}
	for p, fn := range o.Transformers {
		if fn == nil {
			return types.NewValidationError("transformers", p, "nil transformer")
		}
		if err := checkPaths("transformers", []string{p}); err != nil {
			return err
		}
	}
	return nil
}

func checkPaths(field string, paths []string) error {
	err := fieldpath.CheckPaths(paths)
	if err == nil {
		return nil
	}
	var se *types.SecurityError
	if errors.As(err, &se) {
		return err
	}
	return types.NewValidationError(field, paths, "%v", err)
}

// Analysis summarizes a file's structure.
type Analysis struct {
	Format    string `json:"format"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"sizeBytes"`
	// RootKind is array, object or sequence for JSON, workbook or table
	// otherwise
	RootKind         string         `json:"rootKind"`
	EstimatedRecords int64          `json:"estimatedRecords"`
	Complexity       int            `json:"complexity"`
	Streaming        bool           `json:"streaming"`
	Schema           *schema.Schema `json:"schema,omitempty"`
	// Details holds format specific metadata such as worksheets or column
	// statistics
	Details interface{} `json:"details,omitempty"`
}
