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
	"errors"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
	"golang.org/x/sync/errgroup"

	"github.com/rulego/streamopt/optimizer"
	"github.com/rulego/streamopt/schema"
	"github.com/rulego/streamopt/utils/cast"
)

// valueOverhead approximates the per-value memory cost beyond its payload.
const valueOverhead = 16

// ColumnStatistics summarizes one column.
type ColumnStatistics struct {
	Name string      `json:"name"`
	Type schema.Type `json:"type"`
	// Count includes nulls
	Count     int64 `json:"count"`
	NullCount int64 `json:"nullCount"`
	// Min and Max are numeric when the column holds numbers, else the
	// lexical bounds of its text
	Min            interface{} `json:"min,omitempty"`
	Max            interface{} `json:"max,omitempty"`
	EstimatedBytes int64       `json:"estimatedBytes"`
	// CompressedBytes is the on-disk size, Parquet only
	CompressedBytes int64 `json:"compressedBytes,omitempty"`
}

// NullRatio returns the share of null values.
func (c ColumnStatistics) NullRatio() float64 {
	if c.Count == 0 {
		return 0
	}
	return float64(c.NullCount) / float64(c.Count)
}

// TableStatistics summarizes a columnar file.
type TableStatistics struct {
	Kind        string             `json:"kind"`
	Rows        int64              `json:"rows"`
	InvalidRows int64              `json:"invalidRows,omitempty"`
	Columns     []ColumnStatistics `json:"columns"`
	// CompressionRatio is in-memory over on-disk size, 1 for text formats
	CompressionRatio     float64 `json:"compressionRatio"`
	EstimatedMemoryBytes int64   `json:"estimatedMemoryBytes"`
}

// Column returns the statistics of the named column.
func (t *TableStatistics) Column(name string) (ColumnStatistics, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnStatistics{}, false
}

type columnAcc struct {
	stats            ColumnStatistics
	hasNum, hasText  bool
	minNum, maxNum   float64
	minText, maxText string
}

func (a *columnAcc) add(v interface{}) {
	a.stats.Count++
	if v == nil {
		a.stats.NullCount++
		return
	}
	a.stats.Type = schema.JoinType(a.stats.Type, schema.Infer(v).Type)
	switch x := v.(type) {
	case int64, float64:
		f, _ := cast.ToFloat(x)
		if !a.hasNum || f < a.minNum {
			a.minNum = f
		}
		if !a.hasNum || f > a.maxNum {
			a.maxNum = f
		}
		a.hasNum = true
		a.stats.EstimatedBytes += 8
	case bool:
		a.stats.EstimatedBytes++
	default:
		s := cast.ToString(x)
		if !a.hasText || s < a.minText {
			a.minText = s
		}
		if !a.hasText || s > a.maxText {
			a.maxText = s
		}
		a.hasText = true
		a.stats.EstimatedBytes += int64(len(s))
	}
}

func (a *columnAcc) result() ColumnStatistics {
	st := a.stats
	switch {
	case a.hasNum:
		st.Min, st.Max = a.minNum, a.maxNum
	case a.hasText:
		st.Min, st.Max = a.minText, a.maxText
	}
	if st.Type == "" {
		st.Type = schema.TypeNull
	}
	return st
}

// Statistics computes per-column statistics for the file at path. Columns
// are processed concurrently, at most StreamConcurrency at a time.
func (o *Optimizer) Statistics(ctx context.Context, path string) (*TableStatistics, error) {
	info, err := o.CheckPath(path)
	if err != nil {
		return nil, err
	}
	return o.statistics(ctx, path, info)
}

func (o *Optimizer) statistics(ctx context.Context, path string, info os.FileInfo) (*TableStatistics, error) {
	key := optimizer.CacheKey("columns", path, info)
	if cached, ok := o.CacheGet(key); ok {
		return cached.(*TableStatistics), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	settings := o.Settings()
	var st *TableStatistics
	if kindOf(path) == KindParquet {
		st, err = parquetStatistics(ctx, path, f, info.Size(), settings.StreamConcurrency)
	} else {
		st, err = textStatistics(ctx, path, f, settings.StreamConcurrency, o.BatchSize(settings))
	}
	if err != nil {
		return nil, err
	}
	for _, c := range st.Columns {
		st.EstimatedMemoryBytes += c.EstimatedBytes + c.Count*valueOverhead
	}
	if st.CompressionRatio == 0 {
		st.CompressionRatio = 1
	}
	o.CachePut(key, st)
	return st, nil
}

// textStatistics reads CSV or TSV rows in blocks and folds each block into
// the column accumulators, one goroutine per column.
func textStatistics(ctx context.Context, path string, f *os.File, concurrency, block int) (*TableStatistics, error) {
	t, err := openTable(path, f, 0)
	if err != nil {
		return nil, err
	}
	defer t.Close()
	cols := t.Columns()
	accs := make([]*columnAcc, len(cols))
	for i, name := range cols {
		accs[i] = &columnAcc{stats: ColumnStatistics{Name: name}}
	}
	st := &TableStatistics{Kind: kindOf(path)}

	rows := make([]optimizer.Record, 0, block)
	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for i := range accs {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				name := cols[i]
				for _, r := range rows {
					accs[i].add(r[name])
				}
				return nil
			})
		}
		err := g.Wait()
		st.Rows += int64(len(rows))
		rows = rows[:0]
		return err
	}

	for {
		rec, err := t.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if !recoverable(err) {
				return nil, err
			}
			st.InvalidRows++
			continue
		}
		rows = append(rows, rec)
		if len(rows) == block {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	for _, a := range accs {
		st.Columns = append(st.Columns, a.result())
	}
	return st, nil
}

// parquetStatistics scans each leaf column's pages in its own goroutine.
func parquetStatistics(ctx context.Context, path string, f *os.File, size int64, concurrency int) (*TableStatistics, error) {
	t, err := newParquetTable(path, f, size)
	if err != nil {
		return nil, err
	}
	defer t.Close()
	pf := t.file
	st := &TableStatistics{Kind: KindParquet, Rows: pf.NumRows()}
	accs := make([]*columnAcc, len(t.columns))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, name := range t.columns {
		acc := &columnAcc{stats: ColumnStatistics{Name: name}}
		accs[i] = acc
		i := i
		g.Go(func() error {
			for _, rg := range pf.RowGroups() {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := scanChunk(rg.ColumnChunks()[i], acc); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var compressed, uncompressed int64
	meta := pf.Metadata()
	for _, rg := range meta.RowGroups {
		for i, cc := range rg.Columns {
			if i < len(accs) {
				accs[i].stats.CompressedBytes += cc.MetaData.TotalCompressedSize
			}
			compressed += cc.MetaData.TotalCompressedSize
			uncompressed += cc.MetaData.TotalUncompressedSize
		}
	}
	if compressed > 0 {
		st.CompressionRatio = float64(uncompressed) / float64(compressed)
	}
	for _, a := range accs {
		st.Columns = append(st.Columns, a.result())
	}
	return st, nil
}

func scanChunk(chunk parquet.ColumnChunk, acc *columnAcc) error {
	pages := chunk.Pages()
	defer pages.Close()
	buf := make([]parquet.Value, 256)
	for {
		page, err := pages.ReadPage()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		values := page.Values()
		for {
			n, err := values.ReadValues(buf)
			for _, v := range buf[:n] {
				acc.add(goValue(v))
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return err
			}
			if n == 0 {
				break
			}
		}
	}
}

// Analyze computes column statistics and infers a schema from the leading
// rows.
func (o *Optimizer) Analyze(ctx context.Context, path string) (*optimizer.Analysis, error) {
	info, err := o.CheckPath(path)
	if err != nil {
		return nil, err
	}
	st, err := o.statistics(ctx, path, info)
	if err != nil {
		return nil, o.Fail(path, "analyze", err)
	}
	sampler := schema.NewSampler(schema.DefaultSampleSize, schema.DefaultMaxDepth)
	if err := sampleFile(path, info.Size(), sampler); err != nil {
		return nil, o.Fail(path, "analyze", err)
	}
	return &optimizer.Analysis{
		Format:           o.Format(),
		Path:             path,
		SizeBytes:        info.Size(),
		RootKind:         "table",
		EstimatedRecords: st.Rows,
		Complexity:       len(st.Columns),
		Streaming:        o.UseStreaming(EstimatedSize(path, info.Size()), o.Settings()),
		Schema:           sampler.Schema(schema.DefaultRequiredRatio),
		Details:          st,
	}, nil
}
