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
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/rulego/streamopt/optimizer"
	"github.com/rulego/streamopt/schema"
)

// cellOverhead approximates the per-cell memory cost beyond its text.
const cellOverhead = 16

// WorksheetInfo describes one worksheet.
type WorksheetInfo struct {
	Name  string `json:"name"`
	Index int    `json:"index"`
	// Dimension is the used range reported by the workbook, e.g. A1:D20
	Dimension string `json:"dimension,omitempty"`
	// Rows counts up to the last non-blank row, header included
	Rows    int      `json:"rows"`
	Columns int      `json:"columns"`
	Headers []string `json:"headers,omitempty"`
	// NullCells counts blank cells inside Rows x Columns
	NullCells      int64 `json:"nullCells"`
	EstimatedBytes int64 `json:"estimatedBytes"`
}

// DataRows returns the number of rows below the header.
func (w WorksheetInfo) DataRows() int {
	if w.Rows <= 1 {
		return 0
	}
	return w.Rows - 1
}

// Worksheets describes every worksheet of the workbook at path. Worksheets
// are scanned concurrently, at most StreamConcurrency at a time, each with
// its own handle on the file.
func (o *Optimizer) Worksheets(ctx context.Context, path string) ([]WorksheetInfo, error) {
	info, err := o.CheckPath(path)
	if err != nil {
		return nil, err
	}
	return o.worksheets(ctx, path, info)
}

func (o *Optimizer) worksheets(ctx context.Context, path string, info os.FileInfo) ([]WorksheetInfo, error) {
	key := optimizer.CacheKey("worksheets", path, info)
	if cached, ok := o.CacheGet(key); ok {
		return cached.([]WorksheetInfo), nil
	}

	f, err := open(path)
	if err != nil {
		return nil, err
	}
	names := f.GetSheetList()
	f.Close()

	infos := make([]WorksheetInfo, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Settings().StreamConcurrency)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			wi, err := scanWorksheet(gctx, path, name)
			if err != nil {
				return err
			}
			wi.Index = i
			infos[i] = wi
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	o.CachePut(key, infos)
	o.Logger().Debug("scanned %d worksheets of %s", len(infos), path)
	return infos, nil
}

func scanWorksheet(ctx context.Context, path, name string) (WorksheetInfo, error) {
	wi := WorksheetInfo{Name: name}
	f, err := open(path)
	if err != nil {
		return wi, err
	}
	defer f.Close()

	wi.Dimension, _ = f.GetSheetDimension(name)
	rows, err := f.Rows(name)
	if err != nil {
		return wi, sheetError(path, name, err)
	}
	defer rows.Close()

	var filled, textBytes int64
	for row := 1; rows.Next(); row++ {
		if row%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return wi, err
			}
		}
		cells, err := rows.Columns()
		if err != nil {
			return wi, sheetError(path, name, err)
		}
		if row == 1 {
			wi.Headers = optimizer.UniqueNames(cells)
		}
		if blank(cells) {
			continue
		}
		wi.Rows = row
		if len(cells) > wi.Columns {
			wi.Columns = len(cells)
		}
		for _, c := range cells {
			if c != "" {
				filled++
				textBytes += int64(len(c))
			}
		}
	}
	if err := rows.Error(); err != nil {
		return wi, sheetError(path, name, err)
	}
	cells := int64(wi.Rows) * int64(wi.Columns)
	wi.NullCells = cells - filled
	wi.EstimatedBytes = textBytes + cells*cellOverhead
	return wi, nil
}

// Analyze scans every worksheet and infers a schema from the leading data
// rows of the first one.
func (o *Optimizer) Analyze(ctx context.Context, path string) (*optimizer.Analysis, error) {
	info, err := o.CheckPath(path)
	if err != nil {
		return nil, err
	}
	infos, err := o.worksheets(ctx, path, info)
	if err != nil {
		return nil, o.Fail(path, "analyze", err)
	}

	a := &optimizer.Analysis{
		Format:    o.Format(),
		Path:      path,
		SizeBytes: info.Size(),
		RootKind:  "workbook",
		Streaming: o.UseStreaming(info.Size()*ExpansionFactor, o.Settings()),
		Details:   infos,
	}
	for _, wi := range infos {
		a.EstimatedRecords += int64(wi.DataRows())
		a.Complexity += wi.Columns
	}
	a.Complexity += len(infos)

	if len(infos) > 0 {
		s, err := sampleSchema(ctx, path, infos[0].Name)
		if err != nil {
			return nil, o.Fail(path, "analyze", err)
		}
		a.Schema = s
	}
	return a, nil
}

func sampleSchema(ctx context.Context, path, sheet string) (*schema.Schema, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sampler := schema.NewSampler(schema.DefaultSampleSize, schema.DefaultMaxDepth)
	err = walk(ctx, f, path, []string{sheet}, optimizer.ReadOptions{}, func(rec optimizer.Record) (bool, error) {
		return !sampler.Add(rec), nil
	})
	if err != nil {
		return nil, err
	}
	return sampler.Schema(schema.DefaultRequiredRatio), nil
}
