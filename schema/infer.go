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

package schema

import (
	"encoding/json"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rulego/streamopt/utils/cast"
)

const (
	// DefaultSampleSize bounds how many records feed inference.
	DefaultSampleSize = 1000
	// DefaultMaxDepth caps nesting; deeper containers infer as any.
	DefaultMaxDepth = 16
	// DefaultRequiredRatio is the presence ratio that makes a property
	// required.
	DefaultRequiredRatio = 0.8
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Infer builds the schema of a single value.
func Infer(v interface{}) *Schema {
	return InferDepth(v, DefaultMaxDepth)
}

// InferDepth is Infer with an explicit nesting cap.
func InferDepth(v interface{}, maxDepth int) *Schema {
	return inferValue(v, 0, maxDepth)
}

func inferValue(v interface{}, depth, maxDepth int) *Schema {
	switch x := v.(type) {
	case nil:
		return &Schema{Type: TypeNull}
	case bool:
		return &Schema{Type: TypeBoolean}
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return &Schema{Type: TypeInteger}
	case float32, float64:
		return &Schema{Type: TypeNumber}
	case json.Number:
		if _, err := x.Int64(); err == nil {
			return &Schema{Type: TypeInteger}
		}
		return &Schema{Type: TypeNumber}
	case string:
		return &Schema{Type: ScalarType(x)}
	case time.Time:
		return &Schema{Type: TypeDate}
	case map[string]interface{}:
		if depth >= maxDepth {
			return &Schema{Type: TypeAny}
		}
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		s := &Schema{Type: TypeObject}
		if len(keys) > 0 {
			s.Properties = make([]Property, len(keys))
			s.Required = keys
		}
		for i, k := range keys {
			s.Properties[i] = Property{Name: k, Schema: inferValue(x[k], depth+1, maxDepth)}
		}
		return s
	case []interface{}:
		if depth >= maxDepth {
			return &Schema{Type: TypeAny}
		}
		s := &Schema{Type: TypeArray}
		for i, item := range x {
			if i >= DefaultSampleSize {
				break
			}
			s.Items = Merge(s.Items, inferValue(item, depth+1, maxDepth))
		}
		return s
	default:
		return &Schema{Type: TypeAny}
	}
}

// ScalarType classifies a string by the most specific special type in the
// order date, email, url, falling back to string.
func ScalarType(s string) Type {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return TypeString
	}
	if _, ok := cast.ParseDate(trimmed); ok {
		return TypeDate
	}
	if emailPattern.MatchString(trimmed) {
		return TypeEmail
	}
	if isURL(trimmed) {
		return TypeURL
	}
	return TypeString
}

func isURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	if err != nil || u.Host == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ftp", "ftps", "s3", "gs":
		return true
	}
	return false
}

// Sampler accumulates a record schema from a bounded prefix of a stream.
type Sampler struct {
	limit    int
	maxDepth int
	n        int
	merged   *Schema
	presence map[string]int
}

// NewSampler creates a sampler that keeps at most limit records. Values
// below 1 use DefaultSampleSize; maxDepth below 1 uses DefaultMaxDepth.
func NewSampler(limit, maxDepth int) *Sampler {
	if limit < 1 {
		limit = DefaultSampleSize
	}
	if maxDepth < 1 {
		maxDepth = DefaultMaxDepth
	}
	return &Sampler{limit: limit, maxDepth: maxDepth, presence: make(map[string]int)}
}

// Add folds record into the sample. It returns false once the sample is
// full, in which case the record is ignored.
func (s *Sampler) Add(record map[string]interface{}) bool {
	if s.n >= s.limit {
		return false
	}
	s.n++
	for k := range record {
		s.presence[k]++
	}
	s.merged = Merge(s.merged, inferValue(record, 0, s.maxDepth))
	return true
}

// Full reports whether the sample reached its limit.
func (s *Sampler) Full() bool { return s.n >= s.limit }

// Count returns the number of sampled records.
func (s *Sampler) Count() int { return s.n }

// Schema returns the record schema. A top-level property is required when
// present in at least ratio of the sampled records. It returns nil when
// nothing was sampled.
func (s *Sampler) Schema(ratio float64) *Schema {
	if s.n == 0 || s.merged == nil {
		return nil
	}
	if ratio <= 0 {
		ratio = DefaultRequiredRatio
	}
	out := s.merged.Clone()
	if out.Type != TypeObject {
		return out
	}
	out.Required = nil
	for _, p := range out.Properties {
		if float64(s.presence[p.Name]) >= ratio*float64(s.n) {
			out.Required = append(out.Required, p.Name)
		}
	}
	return out
}

// InferRecords infers a record schema from up to DefaultSampleSize records.
func InferRecords(records []map[string]interface{}) *Schema {
	sampler := NewSampler(DefaultSampleSize, DefaultMaxDepth)
	for _, r := range records {
		if !sampler.Add(r) {
			break
		}
	}
	return sampler.Schema(DefaultRequiredRatio)
}
