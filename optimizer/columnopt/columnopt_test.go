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

package columnopt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/streamopt/logger"
	"github.com/rulego/streamopt/optimizer"
	"github.com/rulego/streamopt/schema"
	"github.com/rulego/streamopt/types"
)

type measurement struct {
	ID     int64    `parquet:"id"`
	Name   string   `parquet:"name"`
	Score  *float64 `parquet:"score,optional"`
	Active bool     `parquet:"active"`
}

func measurements(n int) []measurement {
	out := make([]measurement, n)
	for i := range out {
		id := int64(i + 1)
		m := measurement{ID: id, Name: fmt.Sprintf("person %d", id), Active: id%2 == 0}
		if id%4 != 0 {
			score := float64(id) + 0.5
			m.Score = &score
		}
		out[i] = m
	}
	return out
}

func writeText(t *testing.T, name string, sep string, rows []measurement) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(strings.Join([]string{"id", "name", "score", "active"}, sep) + "\n")
	for _, m := range rows {
		score := ""
		if m.Score != nil {
			score = fmt.Sprint(*m.Score)
		}
		b.WriteString(strings.Join([]string{fmt.Sprint(m.ID), m.Name, score, fmt.Sprint(m.Active)}, sep) + "\n")
	}
	return writeFile(t, name, b.String())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// writeParquet writes rows in row groups of groupSize.
func writeParquet(t *testing.T, rows []measurement, groupSize int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.parquet")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := parquet.NewGenericWriter[measurement](f)
	for start := 0; start < len(rows); start += groupSize {
		end := start + groupSize
		if end > len(rows) {
			end = len(rows)
		}
		_, err := w.Write(rows[start:end])
		require.NoError(t, err)
		require.NoError(t, w.Flush())
	}
	require.NoError(t, w.Close())
	return path
}

func newOptimizer(memoryLimitMB int) *Optimizer {
	s := types.DefaultSettings()
	s.MemoryLimitMB = memoryLimitMB
	s.ColumnarBatchSize = 2
	s.StreamConcurrency = 2
	return New(
		optimizer.WithSettings(types.NewSettingsStore(s)),
		optimizer.WithLogger(logger.NewDiscardLogger()),
		optimizer.WithReclaimDelay(0),
	)
}

func fixtures(t *testing.T) map[string]string {
	rows := measurements(12)
	return map[string]string{
		"csv":     writeText(t, "data.csv", ",", rows),
		"tsv":     writeText(t, "data.tsv", "\t", rows),
		"parquet": writeParquet(t, rows, 4),
	}
}

func TestBufferedAndStreamingAreEquivalent(t *testing.T) {
	optionSets := map[string]optimizer.ReadOptions{
		"plain":     {},
		"validate":  {ValidateSchema: true, EnforceTypes: true, SkipInvalidRecords: true},
		"rowRange":  {RowRange: optimizer.RowRange{Start: 5, End: 9}},
		"skipMax":   {StartRecord: 6, MaxRecords: 3},
		"columns":   {Columns: []string{"id", "name"}},
		"predicate": {Predicate: "id % 2 == 0"},
		"combined":  {Predicate: "id > 3", Columns: []string{"name"}, MaxRecords: 3},
	}
	for kind, path := range fixtures(t) {
		for name, opts := range optionSets {
			t.Run(kind+"/"+name, func(t *testing.T) {
				want, err := newOptimizer(512).OptimizeRead(context.Background(), path, opts)
				require.NoError(t, err)
				got, err := newOptimizer(0).OptimizeRead(context.Background(), path, opts)
				require.NoError(t, err)
				assert.NotEmpty(t, want)
				assert.Equal(t, want, got)
			})
		}
	}
}

func TestFormatsDecodeAlike(t *testing.T) {
	files := fixtures(t)
	want, err := newOptimizer(512).OptimizeRead(context.Background(), files["csv"], optimizer.ReadOptions{})
	require.NoError(t, err)
	require.Len(t, want, 12)
	assert.Equal(t, optimizer.Record{"id": int64(1), "name": "person 1", "score": 1.5, "active": false}, want[0])
	assert.Equal(t, optimizer.Record{"id": int64(4), "name": "person 4", "score": nil, "active": true}, want[3])

	for _, kind := range []string{"tsv", "parquet"} {
		got, err := newOptimizer(512).OptimizeRead(context.Background(), files[kind], optimizer.ReadOptions{})
		require.NoError(t, err)
		assert.Equal(t, want, got, kind)
	}
}

func TestPredicateAndProjection(t *testing.T) {
	path := fixtures(t)["csv"]
	recs, err := newOptimizer(512).OptimizeRead(context.Background(), path, optimizer.ReadOptions{
		Predicate: "active == true && id > 4",
		Columns:   []string{"id"},
	})
	require.NoError(t, err)
	assert.Equal(t, []optimizer.Record{{"id": int64(6)}, {"id": int64(8)}, {"id": int64(10)}, {"id": int64(12)}}, recs)

	recs, err = newOptimizer(512).OptimizeRead(context.Background(), path, optimizer.ReadOptions{
		Predicate: "score == nil",
		Columns:   []string{"id"},
	})
	require.NoError(t, err)
	assert.Equal(t, []optimizer.Record{{"id": int64(4)}, {"id": int64(8)}, {"id": int64(12)}}, recs)
}

func TestParquetRowRangeSkipsRowGroups(t *testing.T) {
	path := writeParquet(t, measurements(12), 4)
	opts := optimizer.ReadOptions{RowRange: optimizer.RowRange{Start: 6, End: 9}, Columns: []string{"id"}}

	o := newOptimizer(0)
	recs, err := o.OptimizeRead(context.Background(), path, opts)
	require.NoError(t, err)
	assert.Equal(t, []optimizer.Record{{"id": int64(7)}, {"id": int64(8)}, {"id": int64(9)}}, recs)
	assert.Equal(t, int64(1), o.GetMetrics().StreamingReads)
}

func TestParquetTableSkipRows(t *testing.T) {
	path := writeParquet(t, measurements(12), 4)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	info, err := f.Stat()
	require.NoError(t, err)

	tbl, err := newParquetTable(path, f, info.Size())
	require.NoError(t, err)
	defer tbl.Close()
	assert.Equal(t, []string{"id", "name", "score", "active"}, tbl.Columns())

	n, err := tbl.SkipRows(5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	rec, err := tbl.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(6), rec["id"])

	// only before the first row
	n, err = tbl.SkipRows(3)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInvalidOptions(t *testing.T) {
	path := fixtures(t)["csv"]
	o := newOptimizer(512)
	ctx := context.Background()

	_, err := o.OptimizeRead(ctx, path, optimizer.ReadOptions{Columns: []string{"id", "missing"}})
	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "columns", ve.Field)

	_, err = o.OptimizeRead(ctx, path, optimizer.ReadOptions{Predicate: "id >"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "predicate", ve.Field)

	_, err = o.OptimizeRead(ctx, path, optimizer.ReadOptions{RowRange: optimizer.RowRange{Start: 5, End: 2}})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "rowRange", ve.Field)
}

func TestMalformedRows(t *testing.T) {
	path := writeFile(t, "rows.csv", "id,name\n1,a\n2,b,extra\n3,c\n")
	for _, limit := range []int{512, 0} {
		o := newOptimizer(limit)
		_, err := o.OptimizeRead(context.Background(), path, optimizer.ReadOptions{})
		var pe *types.ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, int64(1), pe.Record)
		assert.True(t, pe.Recoverable())

		recs, err := o.OptimizeRead(context.Background(), path, optimizer.ReadOptions{SkipInvalidRecords: true})
		require.NoError(t, err)
		assert.Equal(t, []optimizer.Record{{"id": int64(1), "name": "a"}, {"id": int64(3), "name": "c"}}, recs)
		assert.Equal(t, int64(1), o.GetMetrics().ValidationErrors)
	}
}

func TestHeaderNamesAndBOM(t *testing.T) {
	path := writeFile(t, "h.csv", "\xef\xbb\xbfa,,a\n1,2,3\n")
	recs, err := newOptimizer(512).OptimizeRead(context.Background(), path, optimizer.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []optimizer.Record{{"a": int64(1), "column_2": int64(2), "a_2": int64(3)}}, recs)

	recs, err = newOptimizer(512).OptimizeRead(context.Background(), writeFile(t, "empty.csv", ""), optimizer.ReadOptions{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestStatistics(t *testing.T) {
	files := fixtures(t)
	for _, kind := range []string{"csv", "parquet"} {
		t.Run(kind, func(t *testing.T) {
			o := newOptimizer(512)
			st, err := o.Statistics(context.Background(), files[kind])
			require.NoError(t, err)
			assert.Equal(t, kind, st.Kind)
			assert.Equal(t, int64(12), st.Rows)
			require.Len(t, st.Columns, 4)

			id, ok := st.Column("id")
			require.True(t, ok)
			assert.Equal(t, schema.TypeInteger, id.Type)
			assert.Equal(t, 1.0, id.Min)
			assert.Equal(t, 12.0, id.Max)
			assert.Zero(t, id.NullCount)

			score, ok := st.Column("score")
			require.True(t, ok)
			assert.Equal(t, schema.TypeNumber, score.Type)
			assert.Equal(t, int64(3), score.NullCount)
			assert.InDelta(t, 0.25, score.NullRatio(), 1e-9)
			assert.Equal(t, 1.5, score.Min)
			assert.Equal(t, 11.5, score.Max)

			name, ok := st.Column("name")
			require.True(t, ok)
			assert.Equal(t, "person 1", name.Min)
			assert.Equal(t, "person 9", name.Max)

			active, ok := st.Column("active")
			require.True(t, ok)
			assert.Equal(t, schema.TypeBoolean, active.Type)

			assert.Positive(t, st.EstimatedMemoryBytes)
			assert.Positive(t, st.CompressionRatio)
			if kind == KindParquet {
				assert.Positive(t, id.CompressedBytes)
			} else {
				assert.Equal(t, 1.0, st.CompressionRatio)
			}

			again, err := o.Statistics(context.Background(), files[kind])
			require.NoError(t, err)
			assert.Same(t, st, again)
		})
	}
}

func TestStatisticsStopsOnCancel(t *testing.T) {
	files := fixtures(t)
	for _, kind := range []string{"csv", "parquet"} {
		t.Run(kind, func(t *testing.T) {
			o := newOptimizer(512)
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := o.Statistics(ctx, files[kind])
			assert.ErrorIs(t, err, context.Canceled)
			assert.Equal(t, 0, o.CacheLen())

			st, err := o.Statistics(context.Background(), files[kind])
			require.NoError(t, err)
			assert.Equal(t, int64(12), st.Rows)
		})
	}
}

func TestAnalyze(t *testing.T) {
	path := fixtures(t)["csv"]
	a, err := newOptimizer(512).Analyze(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, optimizer.FormatColumnar, a.Format)
	assert.Equal(t, "table", a.RootKind)
	assert.Equal(t, int64(12), a.EstimatedRecords)
	assert.Equal(t, 4, a.Complexity)
	assert.False(t, a.Streaming)
	require.NotNil(t, a.Schema)
	assert.Equal(t, []string{"active", "id", "name", "score"}, a.Schema.PropertyNames())

	st, ok := a.Details.(*TableStatistics)
	require.True(t, ok)
	assert.Equal(t, int64(12), st.Rows)

	assert.True(t, newOptimizer(0).UseStreaming(EstimatedSize(path, a.SizeBytes), newOptimizer(0).Settings()))
}
