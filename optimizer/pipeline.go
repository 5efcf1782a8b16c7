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

package optimizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rulego/streamopt/schema"
	"github.com/rulego/streamopt/types"
	"github.com/rulego/streamopt/utils/fieldpath"
)

type transformer struct {
	accessor *fieldpath.FieldAccessor
	fn       func(interface{}) interface{}
}

// Stage is a format specific step run right after position selection. It
// returns the record to continue with, or false to drop it.
type Stage func(Record) (Record, bool, error)

// Pipeline applies the per-record stages shared by every read path, in
// order: position selection, the format stage, validation, coercion,
// projection, transformers, record cap. Both read paths of an optimizer feed decoded
// records through the same pipeline, which keeps them equivalent.
//
// A Pipeline is used by one read and is not safe for concurrent use.
type Pipeline struct {
	format       string
	path         string
	opts         ReadOptions
	schema       *schema.Schema
	stats        *Collector
	transformers []transformer
	stage        Stage

	start    int64
	end      int64 // exclusive, 0 open
	position int64
	emitted  int64
}

// NewPipeline prepares a pipeline for one read. s may be nil when neither
// validation nor coercion is requested.
func NewPipeline(format, path string, opts ReadOptions, s *schema.Schema, stats *Collector) (*Pipeline, error) {
	p := &Pipeline{
		format: format,
		path:   path,
		opts:   opts,
		schema: s,
		stats:  stats,
		start:  opts.StartRecord,
		end:    opts.RowRange.End,
	}
	if opts.RowRange.Start > p.start {
		p.start = opts.RowRange.Start
	}

	paths := make([]string, 0, len(opts.Transformers))
	for path := range opts.Transformers {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, tp := range paths {
		accessor, err := fieldpath.ParseFieldPath(tp)
		if err != nil {
			return nil, err
		}
		p.transformers = append(p.transformers, transformer{accessor: accessor, fn: opts.Transformers[tp]})
	}
	return p, nil
}

// SetStage installs the format specific stage.
func (p *Pipeline) SetStage(fn Stage) { p.stage = fn }

// Skippable returns how many leading positions would be dropped anyway,
// so a reader able to seek may skip them without decoding.
func (p *Pipeline) Skippable() int64 {
	if p.position >= p.start {
		return 0
	}
	return p.start - p.position
}

// Skip advances the position over n records the reader did not decode. n
// is capped by Skippable.
func (p *Pipeline) Skip(n int64) {
	if k := p.Skippable(); n > k {
		n = k
	}
	if n > 0 {
		p.position += n
	}
}

// Schema returns the schema used for validation and coercion.
func (p *Pipeline) Schema() *schema.Schema { return p.schema }

// Position returns how many decoded records were seen.
func (p *Pipeline) Position() int64 { return p.position }

// Emitted returns how many records were emitted.
func (p *Pipeline) Emitted() int64 { return p.emitted }

// Done reports whether no further record can be emitted.
func (p *Pipeline) Done() bool {
	if p.opts.MaxRecords > 0 && p.emitted >= p.opts.MaxRecords {
		return true
	}
	return p.end > 0 && p.position >= p.end
}

// Process runs one decoded record through the stages. It returns the
// record to emit and true, or false when the record is filtered out or
// skipped as invalid. A non-nil error aborts the read.
func (p *Pipeline) Process(rec Record) (Record, bool, error) {
	if p.Done() {
		return nil, false, nil
	}
	pos := p.position
	p.position++
	if pos < p.start {
		return nil, false, nil
	}
	if p.stage != nil {
		out, keep, err := p.stage(rec)
		if err != nil || !keep {
			return nil, false, err
		}
		rec = out
	}

	if p.opts.ValidateSchema && p.schema != nil {
		if issues := schema.Validate(rec, p.schema); len(issues) > 0 {
			err := &types.ParseError{
				Path:            p.path,
				Offset:          -1,
				Record:          pos,
				Message:         summarize(issues),
				SchemaViolation: true,
			}
			return nil, false, p.Invalid(err)
		}
	}
	if p.opts.EnforceTypes && p.schema != nil {
		if coerced, ok := schema.Coerce(rec, p.schema).(map[string]interface{}); ok {
			rec = coerced
		}
	}
	if len(p.opts.SelectFields) > 0 {
		projected, err := fieldpath.SelectFields(rec, p.opts.SelectFields)
		if err != nil {
			return nil, false, err
		}
		rec = projected
	}
	if err := p.transform(rec, pos); err != nil {
		return nil, false, err
	}

	p.emitted++
	p.stats.IncrementRecords(1)
	return rec, true, nil
}

// Invalid handles a record that failed to decode or validate. With
// SkipInvalidRecords the record is counted and dropped, otherwise err is
// returned.
func (p *Pipeline) Invalid(err error) error {
	if p.opts.SkipInvalidRecords {
		p.stats.IncrementValidationErrors()
		return nil
	}
	return err
}

func (p *Pipeline) transform(rec Record, pos int64) (err error) {
	if len(p.transformers) == 0 {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = &types.OptimizationError{
				Format: p.format,
				Path:   p.path,
				Phase:  "transform",
				Cause:  fmt.Errorf("transformer panicked on record %d: %v", pos, r),
			}
		}
	}()
	for _, t := range p.transformers {
		v, found := t.accessor.Get(rec)
		if !found {
			continue
		}
		if err := t.accessor.Set(rec, t.fn(v)); err != nil {
			return err
		}
	}
	return nil
}

func summarize(issues []schema.Issue) string {
	const maxShown = 3
	parts := make([]string, 0, maxShown)
	for i, is := range issues {
		if i == maxShown {
			parts = append(parts, fmt.Sprintf("and %d more", len(issues)-maxShown))
			break
		}
		parts = append(parts, is.String())
	}
	return "schema violation: " + strings.Join(parts, "; ")
}
