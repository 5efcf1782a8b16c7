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

// Package jsonopt reads JSON arrays, single objects and newline delimited
// JSON with schema inference, validation and memory bounded batching.
//
// Files larger than the current memory ceiling are read through a streaming
// scanner that delimits top-level records without loading the document.
// Smaller files are decoded whole. Both paths feed the same record pipeline
// and yield the same records for a well-formed file.
package jsonopt

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/rulego/streamopt/optimizer"
	"github.com/rulego/streamopt/schema"
	"github.com/rulego/streamopt/types"
)

var errFallback = errors.New("jsonopt: buffered parse failed")

// Optimizer is the JSON format optimizer.
type Optimizer struct {
	*optimizer.Base
}

var _ optimizer.Optimizer = (*Optimizer)(nil)

// New creates a JSON optimizer.
func New(opts ...optimizer.Option) *Optimizer {
	return &Optimizer{
		Base: optimizer.NewBase(optimizer.FormatJSON, []string{".json", ".jsonl", ".ndjson"},
			func(s types.Settings) int { return s.JSONBatchSize }, opts...),
	}
}

// OptimizeRead reads the selected records into memory.
func (o *Optimizer) OptimizeRead(ctx context.Context, path string, opts optimizer.ReadOptions) ([]optimizer.Record, error) {
	return optimizer.Collect(ctx, path, opts, o.Each)
}

// Each streams the selected records into fn. Returning optimizer.ErrStop
// from fn ends the read without error.
func (o *Optimizer) Each(ctx context.Context, path string, opts optimizer.ReadOptions, fn func(optimizer.Record) error) error {
	decide := func(info os.FileInfo, s types.Settings) bool {
		return o.UseStreaming(info.Size(), s)
	}
	return o.Run(ctx, path, opts, decide, func(ctx context.Context, info os.FileInfo, streaming bool) error {
		if !streaming {
			err := o.buffered(ctx, path, info, opts, fn)
			if !errors.Is(err, errFallback) {
				return err
			}
			o.Logger().Warn("%s does not parse as a whole, reading record by record", path)
		}
		return o.streaming(ctx, path, info, opts, fn)
	})
}

func (o *Optimizer) buffered(ctx context.Context, path string, info os.FileInfo, opts optimizer.ReadOptions, fn func(optimizer.Record) error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	values, err := decodeAll(data)
	if err != nil {
		if opts.SkipInvalidRecords {
			return errFallback
		}
		return &types.ParseError{Path: path, Offset: syntaxOffset(err), Record: -1, Message: "malformed document", Cause: err}
	}

	records := make([]optimizer.Record, len(values))
	for i, v := range values {
		records[i] = toRecord(v)
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

func (o *Optimizer) streaming(ctx context.Context, path string, info os.FileInfo, opts optimizer.ReadOptions, fn func(optimizer.Record) error) error {
	s, err := o.ResolveSchema(path, info, opts, func(sampler *schema.Sampler) error {
		return o.sampleFile(ctx, path, sampler)
	})
	if err != nil {
		return err
	}
	pipe, err := optimizer.NewPipeline(o.Format(), path, opts, s, o.Stats())
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	feed := o.NewFeeder(ctx, pipe, fn)
	sc := newScanner(path, f, MaxRecordBytes)
	for index := int64(0); ; index++ {
		raw, offset, err := sc.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		v, err := decodeValue(raw)
		if err != nil {
			perr := &types.ParseError{Path: path, Offset: offset, Record: index, Message: "malformed record", Cause: err}
			if err := feed.Invalid(perr); err != nil {
				return err
			}
			continue
		}
		done, err := feed.Feed(toRecord(v))
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// sampleFile feeds the first decodable records of path to sampler.
func (o *Optimizer) sampleFile(ctx context.Context, path string, sampler *schema.Sampler) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := newScanner(path, f, MaxRecordBytes)
	for !sampler.Full() {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, _, err := sc.Next()
		if err != nil {
			// structural errors surface from the main pass
			return nil
		}
		if v, err := decodeValue(raw); err == nil {
			sampler.Add(toRecord(v))
		}
	}
	return nil
}
