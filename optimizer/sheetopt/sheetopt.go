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

// Package sheetopt reads Excel workbooks as records, one per data row,
// keyed by the header row.
//
// Workbooks whose estimated in-memory size exceeds the memory ceiling are
// read through excelize's row iterator one row at a time. Smaller ones are
// loaded sheet by sheet with GetRows. Both paths decode rows the same way
// and feed the shared record pipeline.
package sheetopt

import (
	"context"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/rulego/streamopt/optimizer"
	"github.com/rulego/streamopt/schema"
	"github.com/rulego/streamopt/types"
)

// ExpansionFactor estimates how much larger a workbook is in memory than
// its compressed file.
const ExpansionFactor = 4

// Optimizer is the spreadsheet format optimizer.
type Optimizer struct {
	*optimizer.Base
}

var _ optimizer.Optimizer = (*Optimizer)(nil)

// New creates a spreadsheet optimizer.
func New(opts ...optimizer.Option) *Optimizer {
	return &Optimizer{
		Base: optimizer.NewBase(optimizer.FormatSpreadsheet, []string{".xlsx", ".xlsm", ".xltx", ".xltm"},
			func(s types.Settings) int { return s.SpreadsheetBatchSize }, opts...),
	}
}

// OptimizeRead reads the selected rows into memory.
func (o *Optimizer) OptimizeRead(ctx context.Context, path string, opts optimizer.ReadOptions) ([]optimizer.Record, error) {
	return optimizer.Collect(ctx, path, opts, o.Each)
}

// Each streams the selected rows into fn. Returning optimizer.ErrStop from
// fn ends the read without error.
func (o *Optimizer) Each(ctx context.Context, path string, opts optimizer.ReadOptions, fn func(optimizer.Record) error) error {
	decide := func(info os.FileInfo, s types.Settings) bool {
		return o.UseStreaming(info.Size()*ExpansionFactor, s)
	}
	return o.Run(ctx, path, opts, decide, func(ctx context.Context, info os.FileInfo, streaming bool) error {
		f, err := open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		sheets, err := selectSheets(f, opts.Worksheets)
		if err != nil {
			return err
		}
		if streaming {
			return o.streaming(ctx, f, path, info, sheets, opts, fn)
		}
		return o.buffered(ctx, f, path, info, sheets, opts, fn)
	})
}

func (o *Optimizer) buffered(ctx context.Context, f *excelize.File, path string, info os.FileInfo, sheets []string,
	opts optimizer.ReadOptions, fn func(optimizer.Record) error) error {
	var records []optimizer.Record
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return sheetError(path, sheet, err)
		}
		d := newRowDecoder(sheet, opts, len(sheets) > 1)
		for _, cells := range rows {
			rec, ok, stop := d.next(cells)
			if stop {
				break
			}
			if ok {
				records = append(records, rec)
			}
		}
	}

	s, err := o.ResolveSchema(path, info, opts, optimizer.SampleRecords(records))
	if err != nil {
		return err
	}
	pipe, err := optimizer.NewPipeline(o.Format(), path, opts, s, o.Stats())
	if err != nil {
		return err
	}
	feed := o.NewFeeder(ctx, pipe, fn)
	for i, rec := range records {
		records[i] = nil
		done, err := feed.Feed(rec)
		if err != nil {
			return err
		}
		if done {
			break
		}
	}
	return nil
}

func (o *Optimizer) streaming(ctx context.Context, f *excelize.File, path string, info os.FileInfo, sheets []string,
	opts optimizer.ReadOptions, fn func(optimizer.Record) error) error {
	s, err := o.ResolveSchema(path, info, opts, func(sampler *schema.Sampler) error {
		return walk(ctx, f, path, sheets, opts, func(rec optimizer.Record) (bool, error) {
			return !sampler.Add(rec), nil
		})
	})
	if err != nil {
		return err
	}
	pipe, err := optimizer.NewPipeline(o.Format(), path, opts, s, o.Stats())
	if err != nil {
		return err
	}
	feed := o.NewFeeder(ctx, pipe, fn)
	return walk(ctx, f, path, sheets, opts, feed.Feed)
}

// walk iterates the rows of sheets in order and hands each decoded record
// to fn until fn reports done.
func walk(ctx context.Context, f *excelize.File, path string, sheets []string, opts optimizer.ReadOptions,
	fn func(optimizer.Record) (bool, error)) error {
	for _, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return err
		}
		done, err := walkSheet(f, path, sheet, newRowDecoder(sheet, opts, len(sheets) > 1), fn)
		if err != nil || done {
			return err
		}
	}
	return nil
}

func walkSheet(f *excelize.File, path, sheet string, d *rowDecoder, fn func(optimizer.Record) (bool, error)) (bool, error) {
	rows, err := f.Rows(sheet)
	if err != nil {
		return true, sheetError(path, sheet, err)
	}
	defer rows.Close()

	for rows.Next() {
		cells, err := rows.Columns()
		if err != nil {
			return true, sheetError(path, sheet, err)
		}
		rec, ok, stop := d.next(cells)
		if stop {
			return false, nil
		}
		if !ok {
			continue
		}
		if done, err := fn(rec); err != nil || done {
			return true, err
		}
	}
	if err := rows.Error(); err != nil {
		return true, sheetError(path, sheet, err)
	}
	return false, nil
}

func open(path string) (*excelize.File, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &types.ParseError{Path: path, Offset: -1, Record: -1, Message: "malformed workbook", Cause: err}
	}
	return f, nil
}

// selectSheets returns the worksheets to read in workbook order, or the
// requested ones in the requested order.
func selectSheets(f *excelize.File, requested []string) ([]string, error) {
	all := f.GetSheetList()
	if len(requested) == 0 {
		return all, nil
	}
	known := make(map[string]bool, len(all))
	for _, name := range all {
		known[name] = true
	}
	for _, name := range requested {
		if !known[name] {
			return nil, types.NewValidationError("worksheets", name, "unknown worksheet, workbook has %v", all)
		}
	}
	return requested, nil
}

func sheetError(path, sheet string, err error) error {
	return &types.ParseError{Path: path, Offset: -1, Record: -1, Message: "unreadable worksheet " + sheet, Cause: err}
}
