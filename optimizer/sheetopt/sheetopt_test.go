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

package sheetopt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/rulego/streamopt/logger"
	"github.com/rulego/streamopt/optimizer"
	"github.com/rulego/streamopt/schema"
	"github.com/rulego/streamopt/types"
)

type sheet struct {
	name string
	rows [][]interface{}
}

// writeWorkbook saves sheets to a new workbook. A nil row leaves that row
// absent from the sheet.
func writeWorkbook(t *testing.T, sheets ...sheet) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, s := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", s.name))
		} else {
			_, err := f.NewSheet(s.name)
			require.NoError(t, err)
		}
		for r, row := range s.rows {
			if row == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(s.name, cell, &row))
		}
	}
	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func newOptimizer(memoryLimitMB int) (*Optimizer, *types.SettingsStore) {
	s := types.DefaultSettings()
	s.MemoryLimitMB = memoryLimitMB
	s.SpreadsheetBatchSize = 2
	s.StreamConcurrency = 2
	store := types.NewSettingsStore(s)
	return New(
		optimizer.WithSettings(store),
		optimizer.WithLogger(logger.NewDiscardLogger()),
		optimizer.WithReclaimDelay(0),
	), store
}

func people(n int) sheet {
	rows := [][]interface{}{{"id", "name", "score", "code"}}
	for i := 1; i <= n; i++ {
		rows = append(rows, []interface{}{i, fmt.Sprintf("person %d", i), float64(i) + 0.5, fmt.Sprintf("%03d", i)})
	}
	return sheet{name: "People", rows: rows}
}

func TestBufferedAndStreamingAreEquivalent(t *testing.T) {
	path := writeWorkbook(t, people(25), sheet{name: "Extra", rows: [][]interface{}{
		{"id", "note"},
		{100, "first"},
		{101, "TRUE"},
		{102, ""},
	}})

	optionSets := map[string]optimizer.ReadOptions{
		"plain":    {},
		"validate": {ValidateSchema: true, EnforceTypes: true, SkipInvalidRecords: true},
		"range":    {StartRecord: 3, MaxRecords: 5},
		"rows":     {StartRow: 5, EndRow: 12},
		"sheet":    {Worksheets: []string{"Extra"}},
		"project":  {SelectFields: []string{"name", "_sheet"}},
	}
	for name, opts := range optionSets {
		t.Run(name, func(t *testing.T) {
			buffered, _ := newOptimizer(512)
			streaming, _ := newOptimizer(0)

			want, err := buffered.OptimizeRead(context.Background(), path, opts)
			require.NoError(t, err)
			got, err := streaming.OptimizeRead(context.Background(), path, opts)
			require.NoError(t, err)

			assert.NotEmpty(t, want)
			assert.Equal(t, want, got)
			assert.Equal(t, int64(1), buffered.GetMetrics().BufferedReads)
			assert.Equal(t, int64(1), streaming.GetMetrics().StreamingReads)
		})
	}
}

func TestRecordsFollowHeaderRow(t *testing.T) {
	path := writeWorkbook(t, sheet{name: "Report", rows: [][]interface{}{
		{"Quarterly report"},
		{"id", "name", "name", "", "code"},
		{1, "ada", "lovelace", "x", "007"},
		nil,
		{2, "bob"},
	}})
	o, _ := newOptimizer(512)

	recs, err := o.OptimizeRead(context.Background(), path, optimizer.ReadOptions{HeaderRow: 2})
	require.NoError(t, err)
	assert.Equal(t, []optimizer.Record{
		{"id": int64(1), "name": "ada", "name_2": "lovelace", "D": "x", "code": "007"},
		{"id": int64(2), "name": "bob", "name_2": nil, "D": nil, "code": nil},
	}, recs)
}

func TestStartAndEndRow(t *testing.T) {
	path := writeWorkbook(t, people(10))
	for _, limit := range []int{512, 0} {
		o, _ := newOptimizer(limit)
		recs, err := o.OptimizeRead(context.Background(), path, optimizer.ReadOptions{
			StartRow:     4,
			EndRow:       6,
			SelectFields: []string{"id"},
		})
		require.NoError(t, err)
		assert.Equal(t, []optimizer.Record{{"id": int64(3)}, {"id": int64(4)}, {"id": int64(5)}}, recs)
	}
}

func TestWorksheetSelection(t *testing.T) {
	path := writeWorkbook(t,
		sheet{name: "A", rows: [][]interface{}{{"k"}, {"a1"}}},
		sheet{name: "B", rows: [][]interface{}{{"k"}, {"b1"}, {"b2"}}},
	)
	o, _ := newOptimizer(512)
	ctx := context.Background()

	recs, err := o.OptimizeRead(ctx, path, optimizer.ReadOptions{Worksheets: []string{"B", "A"}})
	require.NoError(t, err)
	assert.Equal(t, []optimizer.Record{
		{"k": "b1", SheetKey: "B"},
		{"k": "b2", SheetKey: "B"},
		{"k": "a1", SheetKey: "A"},
	}, recs)

	recs, err = o.OptimizeRead(ctx, path, optimizer.ReadOptions{Worksheets: []string{"A"}})
	require.NoError(t, err)
	assert.Equal(t, []optimizer.Record{{"k": "a1"}}, recs)

	_, err = o.OptimizeRead(ctx, path, optimizer.ReadOptions{Worksheets: []string{"Missing"}})
	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "worksheets", ve.Field)
}

func TestSchemaViolationsAreSkippedAndCounted(t *testing.T) {
	path := writeWorkbook(t, sheet{name: "S", rows: [][]interface{}{
		{"id", "score"},
		{1, 10},
		{2, "n/a"},
		{3, 30},
	}})
	s := &schema.Schema{Type: schema.TypeObject, Properties: []schema.Property{
		{Name: "score", Schema: &schema.Schema{Type: schema.TypeNumber}},
	}}

	for _, limit := range []int{512, 0} {
		o, _ := newOptimizer(limit)
		_, err := o.OptimizeRead(context.Background(), path, optimizer.ReadOptions{ValidateSchema: true, Schema: s})
		var pe *types.ParseError
		require.ErrorAs(t, err, &pe)
		assert.True(t, pe.SchemaViolation)
		assert.Equal(t, int64(1), pe.Record)

		recs, err := o.OptimizeRead(context.Background(), path, optimizer.ReadOptions{
			ValidateSchema:     true,
			SkipInvalidRecords: true,
			Schema:             s,
		})
		require.NoError(t, err)
		assert.Len(t, recs, 2)
		assert.Equal(t, int64(1), o.GetMetrics().ValidationErrors)
	}
}

func TestMalformedWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("this is not a zip archive"), 0o644))
	o, _ := newOptimizer(512)

	_, err := o.OptimizeRead(context.Background(), path, optimizer.ReadOptions{})
	var pe *types.ParseError
	require.ErrorAs(t, err, &pe)
	assert.False(t, pe.Recoverable())
	assert.Equal(t, int64(1), o.GetMetrics().Failures)

	_, err = o.OptimizeRead(context.Background(), filepath.Join(t.TempDir(), "book.csv"), optimizer.ReadOptions{})
	var ve *types.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestEachStopsEarly(t *testing.T) {
	path := writeWorkbook(t, people(50))
	o, _ := newOptimizer(0)

	var seen int
	err := o.Each(context.Background(), path, optimizer.ReadOptions{}, func(optimizer.Record) error {
		seen++
		if seen == 7 {
			return optimizer.ErrStop
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, seen)
}

func TestCancelledReadStopsAtBatchBoundary(t *testing.T) {
	path := writeWorkbook(t, people(20))
	o, _ := newOptimizer(0)
	ctx, cancel := context.WithCancel(context.Background())

	var seen int
	err := o.Each(ctx, path, optimizer.ReadOptions{}, func(optimizer.Record) error {
		seen++
		cancel()
		return nil
	})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.LessOrEqual(t, seen, 2)
}

func TestWorksheets(t *testing.T) {
	path := writeWorkbook(t,
		people(12),
		sheet{name: "Sparse", rows: [][]interface{}{
			{"a", "b", "c"},
			{1, "", 3},
			{"", "", ""},
			{4},
		}},
		sheet{name: "Empty"},
	)
	o, _ := newOptimizer(512)

	infos, err := o.Worksheets(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, infos, 3)

	assert.Equal(t, "People", infos[0].Name)
	assert.Equal(t, 0, infos[0].Index)
	assert.Equal(t, 13, infos[0].Rows)
	assert.Equal(t, 12, infos[0].DataRows())
	assert.Equal(t, 4, infos[0].Columns)
	assert.Equal(t, []string{"id", "name", "score", "code"}, infos[0].Headers)
	assert.Zero(t, infos[0].NullCells)
	assert.Positive(t, infos[0].EstimatedBytes)

	assert.Equal(t, "Sparse", infos[1].Name)
	assert.Equal(t, 1, infos[1].Index)
	assert.Equal(t, 4, infos[1].Rows)
	assert.Equal(t, 3, infos[1].Columns)
	// 12 cells, 6 filled
	assert.Equal(t, int64(6), infos[1].NullCells)

	assert.Equal(t, "Empty", infos[2].Name)
	assert.Zero(t, infos[2].Rows)
	assert.Zero(t, infos[2].DataRows())

	assert.Equal(t, 1, o.CacheLen())
	again, err := o.Worksheets(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, infos, again)
}

func TestAnalyze(t *testing.T) {
	path := writeWorkbook(t, people(12), sheet{name: "Extra", rows: [][]interface{}{{"x"}, {1}, {2}}})
	o, _ := newOptimizer(512)

	a, err := o.Analyze(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, optimizer.FormatSpreadsheet, a.Format)
	assert.Equal(t, "workbook", a.RootKind)
	assert.Equal(t, int64(14), a.EstimatedRecords)
	assert.Equal(t, 4+1+2, a.Complexity)
	assert.False(t, a.Streaming)
	require.NotNil(t, a.Schema)
	assert.Equal(t, []string{"code", "id", "name", "score"}, a.Schema.PropertyNames())
	id, ok := a.Schema.Property("id")
	require.True(t, ok)
	assert.Equal(t, schema.TypeInteger, id.Type)

	details, ok := a.Details.([]WorksheetInfo)
	require.True(t, ok)
	assert.Len(t, details, 2)
}

func TestRowDecoder(t *testing.T) {
	d := newRowDecoder("S", optimizer.ReadOptions{EndRow: 3}, true)

	_, ok, stop := d.next([]string{"a", "a", ""})
	assert.False(t, ok)
	assert.False(t, stop)
	assert.Equal(t, []string{"a", "a_2", ""}, d.headers)

	rec, ok, _ := d.next([]string{"1", "x", "TRUE", "extra"})
	require.True(t, ok)
	assert.Equal(t, optimizer.Record{"a": int64(1), "a_2": "x", "C": true, "D": "extra", SheetKey: "S"}, rec)

	_, ok, _ = d.next([]string{"", ""})
	assert.False(t, ok)

	_, _, stop = d.next([]string{"4"})
	assert.True(t, stop)
}
