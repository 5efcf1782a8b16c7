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
	"os"

	"github.com/rulego/streamopt/schema"
)

// ResolveSchema returns the schema a read validates and coerces against:
// the caller's explicit schema, a cached one for this file version, or one
// inferred by sample. It returns nil when the read needs no schema.
//
// sample receives a bounded sampler and feeds it records from the start of
// the file; it should stop once the sampler is full.
func (b *Base) ResolveSchema(path string, info os.FileInfo, opts ReadOptions, sample func(*schema.Sampler) error) (*schema.Schema, error) {
	if opts.Schema != nil {
		return opts.Schema, nil
	}
	if !opts.ValidateSchema && !opts.EnforceTypes {
		return nil, nil
	}
	key := CacheKey("schema", path, info)
	if cached, ok := b.CacheGet(key); ok {
		return cached.(*schema.Schema), nil
	}

	sampler := schema.NewSampler(schema.DefaultSampleSize, schema.DefaultMaxDepth)
	if err := sample(sampler); err != nil {
		return nil, err
	}
	s := sampler.Schema(schema.DefaultRequiredRatio)
	if s != nil {
		b.stats.IncrementSchemas()
		b.CachePut(key, s)
		b.log.Debug("inferred schema for %s from %d records", path, sampler.Count())
	}
	return s, nil
}

// SampleRecords feeds already decoded records to a sampler.
func SampleRecords(records []Record) func(*schema.Sampler) error {
	return func(s *schema.Sampler) error {
		for _, r := range records {
			if !s.Add(r) {
				break
			}
		}
		return nil
	}
}
