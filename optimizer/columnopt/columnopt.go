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

// Package columnopt reads column oriented files: CSV, TSV and Parquet.
//
// On top of the shared read options it supports column projection, a
// boolean predicate written in expr syntax, and a physical row range. It
// also computes per-column statistics with bounded column parallelism.
package columnopt

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"

	"github.com/rulego/streamopt/condition"
	"github.com/rulego/streamopt/optimizer"
	"github.com/rulego/streamopt/schema"
	"github.com/rulego/streamopt/types"
)

// ExpansionFactor estimates how much larger a Parquet file is in memory
// than on disk. Text formats count one to one.
const ExpansionFactor = 4

// Optimizer is the columnar format optimizer.
type Optimizer struct {
	*optimizer.Base
}

var _ optimizer.Optimizer = (*Optimizer)(nil)

// New creates a columnar optimizer.
func New(opts ...optimizer.Option) *Optimizer {
	return &Optimizer{
		Base: optimizer.NewBase(optimizer.FormatColumnar, []string{".csv", ".tsv", ".tab", ".parquet"},
			func(s types.Settings) int { return s.ColumnarBatchSize }, opts...),
	}
}

// EstimatedSize returns the in-memory size estimate of a file of size bytes
// at path.
func EstimatedSize(path string, size int64) int64 {
	if kindOf(path) == KindParquet {
		return size * ExpansionFactor
	}
	return size
}

// OptimizeRead reads the selected rows into memory.
func (o *Optimizer) OptimizeRead(ctx context.Context, path string, opts optimizer.ReadOptions) ([]optimizer.Record, error) {
	return optimizer.Collect(ctx, path, opts, o.Each)
}

// Each streams the selected rows into fn. Returning optimizer.ErrStop from
// fn ends the read without error.
func (o *Optimizer) Each(ctx context.Context, path string, opts optimizer.ReadOptions, fn func(optimizer.Record) error) error {
	decide := func(info os.FileInfo, s types.Settings) bool {
		return o.UseStreaming(EstimatedSize(path, info.Size()), s)
	}
	return o.Run(ctx, path, opts, decide, func(ctx context.Context, info os.FileInfo, streaming bool) error {
		var pred condition.Condition
		if opts.Predicate != "" {
			c, err := condition.NewExprCondition(opts.Predicate)
			if err != nil {
				return types.NewValidationError("predicate", opts.Predicate, "%v", err)
			}
			pred = c
		}
		if streaming {
			return o.streaming(ctx, path, info, opts, pred, fn)
		}
		return o.buffered(ctx, path, info, opts, pred, fn)
	})
}

// item is a decoded row or the error that replaced it.
type item struct {
	rec optimizer.Record
	err error
}

func (o *Optimizer) buffered(ctx context.Context, path string, info os.FileInfo, opts optimizer.ReadOptions,
	pred condition.Condition, fn func(optimizer.Record) error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	t, err := openTable(path, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}
	defer t.Close()
	if err := checkColumns(t.Columns(), opts.Columns); err != nil {
		return err
	}

	var items []item
	var records []optimizer.Record
	for {
		rec, err := t.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if !recoverable(err) {
				return err
			}
			items = append(items, item{err: err})
			continue
		}
		items = append(items, item{rec: rec})
		records = append(records, rec)
	}

	s, err := o.ResolveSchema(path, info, opts, optimizer.SampleRecords(records))
	if err != nil {
		return err
	}
	pipe, err := o.pipeline(path, opts, s, pred)
	if err != nil {
		return err
	}
	feed := o.NewFeeder(ctx, pipe, fn)
	for i, it := range items {
		items[i] = item{}
		if it.err != nil {
			if err := feed.Invalid(it.err); err != nil {
				return err
			}
			continue
		}
		done, err := feed.Feed(it.rec)
		if err != nil {
			return err
		}
		if done {
			break
		}
	}
	return nil
}

func (o *Optimizer) streaming(ctx context.Context, path string, info os.FileInfo, opts optimizer.ReadOptions,
	pred condition.Condition, fn func(optimizer.Record) error) error {
	s, err := o.ResolveSchema(path, info, opts, func(sampler *schema.Sampler) error {
		return sampleFile(path, info.Size(), sampler)
	})
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	t, err := openTable(path, f, info.Size())
	if err != nil {
		return err
	}
	defer t.Close()
	if err := checkColumns(t.Columns(), opts.Columns); err != nil {
		return err
	}

	pipe, err := o.pipeline(path, opts, s, pred)
	if err != nil {
		return err
	}
	if sk, ok := t.(rowSkipper); ok && pipe.Skippable() > 0 {
		n, err := sk.SkipRows(pipe.Skippable())
		if err != nil {
			return err
		}
		pipe.Skip(n)
		o.Logger().Debug("skipped %d leading rows of %s", n, path)
	}

	feed := o.NewFeeder(ctx, pipe, fn)
	for {
		rec, err := t.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if !recoverable(err) {
				return err
			}
			if err := feed.Invalid(err); err != nil {
				return err
			}
			continue
		}
		done, err := feed.Feed(rec)
		if err != nil || done {
			return err
		}
	}
}

// pipeline builds the record pipeline with the predicate and column
// projection as its format stage. The predicate sees every column.
func (o *Optimizer) pipeline(path string, opts optimizer.ReadOptions, s *schema.Schema, pred condition.Condition) (*optimizer.Pipeline, error) {
	pipe, err := optimizer.NewPipeline(o.Format(), path, opts, s, o.Stats())
	if err != nil {
		return nil, err
	}
	if pred == nil && len(opts.Columns) == 0 {
		return pipe, nil
	}
	pipe.SetStage(func(rec optimizer.Record) (optimizer.Record, bool, error) {
		if pred != nil {
			ok, err := pred.EvaluateE(rec)
			if err != nil {
				return nil, false, &types.OptimizationError{Format: o.Format(), Path: path, Phase: "predicate", Cause: err}
			}
			if !ok {
				return nil, false, nil
			}
		}
		if len(opts.Columns) == 0 {
			return rec, true, nil
		}
		out := make(optimizer.Record, len(opts.Columns))
		for _, c := range opts.Columns {
			out[c] = rec[c]
		}
		return out, true, nil
	})
	return pipe, nil
}

// sampleFile feeds the first decodable rows of path to sampler.
func sampleFile(path string, size int64, sampler *schema.Sampler) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	t, err := openTable(path, f, size)
	if err != nil {
		// surfaces again from the main pass
		return nil
	}
	defer t.Close()
	for !sampler.Full() {
		rec, err := t.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if recoverable(err) {
				continue
			}
			return nil
		}
		sampler.Add(rec)
	}
	return nil
}

func checkColumns(have, want []string) error {
	known := make(map[string]bool, len(have))
	for _, c := range have {
		known[c] = true
	}
	for _, c := range want {
		if !known[c] {
			return types.NewValidationError("columns", c, "unknown column, file has %v", have)
		}
	}
	return nil
}

func recoverable(err error) bool {
	var pe *types.ParseError
	return errors.As(err, &pe) && pe.Recoverable()
}
