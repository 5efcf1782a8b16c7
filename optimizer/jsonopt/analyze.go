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

package jsonopt

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/rulego/streamopt/optimizer"
	"github.com/rulego/streamopt/schema"
)

const (
	// AnalysisPrefixBytes bounds the prefix read by Analyze.
	AnalysisPrefixBytes = 1 << 20
	// MaxComplexityDepth caps the depth counted by Complexity.
	MaxComplexityDepth = 10
)

// Structure is the JSON specific part of an Analysis.
type Structure struct {
	SampledRecords int   `json:"sampledRecords"`
	PrefixBytes    int64 `json:"prefixBytes"`
	MaxDepth       int   `json:"maxDepth"`
}

// Complexity sums element and key counts over v. Nodes deeper than
// maxDepth contribute nothing.
func Complexity(v interface{}, maxDepth int) int {
	return complexity(v, 1, maxDepth)
}

func complexity(v interface{}, depth, maxDepth int) int {
	if depth > maxDepth {
		return 0
	}
	switch x := v.(type) {
	case map[string]interface{}:
		n := len(x)
		for _, child := range x {
			n += complexity(child, depth+1, maxDepth)
		}
		return n
	case []interface{}:
		n := len(x)
		for _, child := range x {
			n += complexity(child, depth+1, maxDepth)
		}
		return n
	}
	return 0
}

func depthOf(v interface{}) int {
	switch x := v.(type) {
	case map[string]interface{}:
		d := 0
		for _, child := range x {
			if cd := depthOf(child); cd > d {
				d = cd
			}
		}
		return d + 1
	case []interface{}:
		d := 0
		for _, child := range x {
			if cd := depthOf(child); cd > d {
				d = cd
			}
		}
		return d + 1
	}
	return 0
}

// Analyze reads a bounded prefix of the file to classify the root, score
// structural complexity, infer a schema and estimate the record count.
func (o *Optimizer) Analyze(ctx context.Context, path string) (*optimizer.Analysis, error) {
	info, err := o.CheckPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, o.Fail(path, "analyze", err)
	}
	defer f.Close()

	sc := newScanner(path, io.LimitReader(f, AnalysisPrefixBytes), MaxRecordBytes)
	sampler := schema.NewSampler(schema.DefaultSampleSize, schema.DefaultMaxDepth)
	st := Structure{}
	complexityScore := 0
	var consumed int64
	reachedEOF, firstIsObject := false, false
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, _, err := sc.Next()
		if err != nil {
			// io.EOF, or a record cut off by the prefix limit
			reachedEOF = errors.Is(err, io.EOF)
			break
		}
		consumed = sc.Offset()
		v, err := decodeValue(raw)
		if err != nil {
			continue
		}
		if st.SampledRecords == 0 {
			_, firstIsObject = v.(map[string]interface{})
		}
		st.SampledRecords++
		complexityScore += Complexity(v, MaxComplexityDepth)
		if d := depthOf(v); d > st.MaxDepth {
			st.MaxDepth = d
		}
		sampler.Add(toRecord(v))
	}
	st.PrefixBytes = consumed

	rootKind := sc.Root().String()
	if sc.Root() == rootSequence && st.SampledRecords == 1 && reachedEOF && firstIsObject {
		rootKind = "object"
	}

	a := &optimizer.Analysis{
		Format:     o.Format(),
		Path:       path,
		SizeBytes:  info.Size(),
		RootKind:   rootKind,
		Complexity: complexityScore,
		Streaming:  o.UseStreaming(info.Size(), o.Settings()),
		Schema:     sampler.Schema(schema.DefaultRequiredRatio),
		Details:    st,
	}
	if consumed > 0 {
		a.EstimatedRecords = int64(float64(st.SampledRecords) * float64(info.Size()) / float64(consumed))
	}
	return a, nil
}
