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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/streamopt/logger"
	"github.com/rulego/streamopt/optimizer"
	"github.com/rulego/streamopt/schema"
	"github.com/rulego/streamopt/types"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// newOptimizer returns an optimizer over its own settings store. A
// memoryLimitMB of 0 forces the streaming path for every non-empty file.
func newOptimizer(memoryLimitMB int, opts ...optimizer.Option) (*Optimizer, *types.SettingsStore) {
	s := types.DefaultSettings()
	s.MemoryLimitMB = memoryLimitMB
	s.JSONBatchSize = 2
	store := types.NewSettingsStore(s)
	opts = append([]optimizer.Option{
		optimizer.WithSettings(store),
		optimizer.WithLogger(logger.NewDiscardLogger()),
		optimizer.WithReclaimDelay(0),
	}, opts...)
	return New(opts...), store
}

var documents = map[string]string{
	"array.json": `[
		{"id": 1, "name": "ada", "email": "ada@example.com", "tags": ["a", "b"], "meta": {"score": 1.5}},
		{"id": 2, "name": "brace } in { string", "email": "b@example.com", "tags": [], "meta": {"score": 2}},
		{"id": 3, "name": "escaped \"quote\" and \\ slash ]", "tags": ["x"], "meta": {"score": null}},
		{"id": 4, "name": "unicode é [", "email": "d@example.com", "tags": ["y"], "meta": {}}
	]`,
	"records.ndjson": "{\"id\": 1, \"v\": \"x\"}\n{\"id\": 2, \"v\": \"}{\"}\n\n{\"id\": 3, \"v\": null}\n",
	"single.json":    `{"id": 7, "nested": {"deep": [1, 2, {"k": "v"}]}}`,
	"scalars.json":   `[1, 2.5, "three", true, null, [4]]`,
	"empty.json":     `[]`,
}

var readOptionSets = map[string]optimizer.ReadOptions{
	"plain":    {},
	"validate": {ValidateSchema: true, EnforceTypes: true},
	"range":    {StartRecord: 1, MaxRecords: 2},
	"project": {
		SelectFields: []string{"id", "meta.score"},
		Transformers: map[string]func(interface{}) interface{}{
			"id": func(v interface{}) interface{} { return fmt.Sprint("id-", v) },
		},
	},
}

func TestBufferedAndStreamingAreEquivalent(t *testing.T) {
	for docName, content := range documents {
		path := writeFile(t, docName, content)
		for optName, opts := range readOptionSets {
			t.Run(docName+"/"+optName, func(t *testing.T) {
				buffered, _ := newOptimizer(512)
				streaming, _ := newOptimizer(0)

				want, err := buffered.OptimizeRead(context.Background(), path, opts)
				require.NoError(t, err)
				got, err := streaming.OptimizeRead(context.Background(), path, opts)
				require.NoError(t, err)

				assert.Equal(t, want, got)
				assert.Equal(t, int64(1), buffered.GetMetrics().BufferedReads)
				if len(content) > 0 {
					assert.Equal(t, int64(1), streaming.GetMetrics().StreamingReads)
				}
			})
		}
	}
}

func TestReadShapes(t *testing.T) {
	o, _ := newOptimizer(512)
	ctx := context.Background()

	recs, err := o.OptimizeRead(ctx, writeFile(t, "scalars.json", documents["scalars.json"]), optimizer.ReadOptions{})
	require.NoError(t, err)
	require.Len(t, recs, 6)
	assert.Equal(t, optimizer.Record{"value": int64(1)}, recs[0])
	assert.Equal(t, optimizer.Record{"value": 2.5}, recs[1])
	assert.Equal(t, optimizer.Record{"value": nil}, recs[4])
	assert.Equal(t, optimizer.Record{"value": []interface{}{int64(4)}}, recs[5])

	recs, err = o.OptimizeRead(ctx, writeFile(t, "single.json", documents["single.json"]), optimizer.ReadOptions{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(7), recs[0]["id"])

	recs, err = o.OptimizeRead(ctx, writeFile(t, "empty.json", ""), optimizer.ReadOptions{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestNumberNormalization(t *testing.T) {
	v, err := decodeValue([]byte(`{"i": 1, "f": 1.0, "e": 1e3, "big": 12345678901234567890, "neg": -3}`))
	require.NoError(t, err)
	m := v.(map[string]interface{})
	assert.Equal(t, int64(1), m["i"])
	assert.Equal(t, 1.0, m["f"])
	assert.Equal(t, 1000.0, m["e"])
	assert.Equal(t, 12345678901234567890.0, m["big"])
	assert.Equal(t, int64(-3), m["neg"])

	_, err = decodeValue([]byte(`{"a": 1} {"b": 2}`))
	assert.Error(t, err)
}

func TestSkipInvalidRecords(t *testing.T) {
	content := `[{"a": 1}, {"a": }, {"a": 3}]`
	for _, limit := range []int{512, 0} {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			path := writeFile(t, "bad.json", content)
			o, _ := newOptimizer(limit)

			recs, err := o.OptimizeRead(context.Background(), path, optimizer.ReadOptions{SkipInvalidRecords: true})
			require.NoError(t, err)
			assert.Equal(t, []optimizer.Record{{"a": int64(1)}, {"a": int64(3)}}, recs)
			stats := o.GetMetrics()
			assert.Equal(t, int64(1), stats.ValidationErrors)
			assert.Equal(t, int64(2), stats.RecordsProcessed)

			_, err = o.OptimizeRead(context.Background(), path, optimizer.ReadOptions{})
			var pe *types.ParseError
			require.True(t, errors.As(err, &pe), "%v", err)
		})
	}
}

func TestMalformedRecordIsRecoverableWhenStreaming(t *testing.T) {
	path := writeFile(t, "bad.json", `[{"a": 1}, {"a": }]`)
	o, _ := newOptimizer(0)
	_, err := o.OptimizeRead(context.Background(), path, optimizer.ReadOptions{})
	var pe *types.ParseError
	require.True(t, errors.As(err, &pe))
	assert.True(t, pe.Recoverable())
	assert.Equal(t, int64(1), pe.Record)
	assert.Equal(t, int64(1), o.GetMetrics().Failures)
}

func TestUnbalancedInputIsFatal(t *testing.T) {
	for _, content := range []string{`[{"a": 1}, {"a": 2`, `[{"a": 1}`, `[{"a": 1}] trailing`, `[{"a": 1} {"a": 2}]`} {
		path := writeFile(t, "cut.json", content)
		o, _ := newOptimizer(0)
		_, err := o.OptimizeRead(context.Background(), path, optimizer.ReadOptions{SkipInvalidRecords: true})
		var pe *types.ParseError
		require.True(t, errors.As(err, &pe), content)
		assert.False(t, pe.Recoverable(), content)
		assert.Equal(t, types.SeverityHigh, pe.Severity())
	}
}

func TestSchemaValidation(t *testing.T) {
	path := writeFile(t, "typed.json", `[{"id": 1, "n": "x"}, {"id": "two", "n": "y"}, {"id": 3, "n": "z"}]`)
	explicit := &schema.Schema{
		Type:       schema.TypeObject,
		Required:   []string{"id"},
		Properties: []schema.Property{{Name: "id", Schema: &schema.Schema{Type: schema.TypeInteger}}},
	}
	o, _ := newOptimizer(512)

	recs, err := o.OptimizeRead(context.Background(), path, optimizer.ReadOptions{
		ValidateSchema: true, SkipInvalidRecords: true, Schema: explicit,
	})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	stats := o.GetMetrics()
	assert.Equal(t, int64(1), stats.ValidationErrors)
	assert.InDelta(t, 0.5, stats.SchemaConsistency, 1e-9)
	assert.Zero(t, stats.SchemasDetected, "explicit schema is not inferred")

	_, err = o.OptimizeRead(context.Background(), path, optimizer.ReadOptions{ValidateSchema: true, Schema: explicit})
	var pe *types.ParseError
	require.True(t, errors.As(err, &pe))
	assert.True(t, pe.SchemaViolation)
}

func TestInferredSchemaIsCached(t *testing.T) {
	path := writeFile(t, "a.json", documents["array.json"])
	o, _ := newOptimizer(512)
	opts := optimizer.ReadOptions{ValidateSchema: true}

	_, err := o.OptimizeRead(context.Background(), path, opts)
	require.NoError(t, err)
	_, err = o.OptimizeRead(context.Background(), path, opts)
	require.NoError(t, err)
	assert.Equal(t, int64(1), o.GetMetrics().SchemasDetected)
	assert.Equal(t, 1, o.CacheLen())

	o.ClearCaches()
	_, err = o.OptimizeRead(context.Background(), path, opts)
	require.NoError(t, err)
	assert.Equal(t, int64(2), o.GetMetrics().SchemasDetected, "count accumulates across reads")

	o.Reset()
	assert.Equal(t, 0, o.CacheLen())
	assert.Zero(t, o.GetMetrics().Reads)
	assert.Zero(t, o.GetMetrics().SchemasDetected)
}

func TestPathAndOptionValidation(t *testing.T) {
	o, _ := newOptimizer(512)
	ctx := context.Background()

	_, err := o.OptimizeRead(ctx, writeFile(t, "data.txt", "[]"), optimizer.ReadOptions{})
	var ve *types.ValidationError
	assert.True(t, errors.As(err, &ve))

	_, err = o.OptimizeRead(ctx, filepath.Join(t.TempDir(), "missing.json"), optimizer.ReadOptions{})
	assert.True(t, errors.As(err, &ve))

	path := writeFile(t, "a.json", documents["array.json"])
	_, err = o.OptimizeRead(ctx, path, optimizer.ReadOptions{SelectFields: []string{"a.__proto__.x"}})
	var se *types.SecurityError
	assert.True(t, errors.As(err, &se))

	require.NoError(t, o.Shutdown())
	_, err = o.OptimizeRead(ctx, path, optimizer.ReadOptions{})
	assert.Error(t, err)
}

func TestEachStopsEarly(t *testing.T) {
	path := writeFile(t, "a.ndjson", documents["records.ndjson"])
	o, _ := newOptimizer(0)
	var seen int
	err := o.Each(context.Background(), path, optimizer.ReadOptions{}, func(optimizer.Record) error {
		seen++
		if seen == 2 {
			return optimizer.ErrStop
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, seen)

	boom := errors.New("sink failed")
	err = o.Each(context.Background(), path, optimizer.ReadOptions{}, func(optimizer.Record) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestSettingsSwapChangesNextReadPath(t *testing.T) {
	path := writeFile(t, "a.json", documents["array.json"])
	o, store := newOptimizer(512)

	_, err := o.OptimizeRead(context.Background(), path, optimizer.ReadOptions{})
	require.NoError(t, err)

	next := store.Current()
	next.MemoryLimitMB = 0
	store.Store(next)
	_, err = o.OptimizeRead(context.Background(), path, optimizer.ReadOptions{})
	require.NoError(t, err)

	stats := o.GetMetrics()
	assert.Equal(t, int64(1), stats.BufferedReads)
	assert.Equal(t, int64(1), stats.StreamingReads)
}

type scriptedMonitor struct {
	calls    int32
	spikeAt  int32
	reclaims int32
}

func (m *scriptedMonitor) PressureLevel() float64 {
	if atomic.AddInt32(&m.calls, 1) == m.spikeAt {
		return 0.95
	}
	return 0.2
}

func (m *scriptedMonitor) ForceReclaim() { atomic.AddInt32(&m.reclaims, 1) }

func TestPressureSpikeDuringStreamingRead(t *testing.T) {
	const n = 20000
	var b strings.Builder
	b.WriteString("[")
	padding := strings.Repeat("x", 100)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, `{"id": %d, "name": "row-%d", "payload": "%s"}`, i, i, padding)
	}
	b.WriteString("]")
	path := writeFile(t, "big.json", b.String())

	mon := &scriptedMonitor{spikeAt: 5}
	o, store := newOptimizer(1, optimizer.WithMonitor(mon))
	s := store.Current()
	s.JSONBatchSize = 500
	store.Store(s)

	var count int
	var cacheAfterSpike int
	err := o.Each(context.Background(), path, optimizer.ReadOptions{ValidateSchema: true}, func(optimizer.Record) error {
		count++
		if count == 500*6 {
			cacheAfterSpike = o.CacheLen()
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, n, count)
	assert.Equal(t, int32(1), atomic.LoadInt32(&mon.reclaims))
	assert.Equal(t, 0, cacheAfterSpike, "schema cache cleared at the spike")

	stats := o.GetMetrics()
	assert.Equal(t, int64(1), stats.StreamingReads)
	assert.Equal(t, int64(1), stats.CacheClears)
	assert.Equal(t, int64(1), stats.Reclaims)
	assert.Positive(t, stats.PeakHeapBytes)
}

func TestScannerBracesAcrossChunkBoundaries(t *testing.T) {
	// place closing braces inside string values right at bufio chunk edges
	var docs []string
	for _, pad := range []int{65530, 65533, 65535, 65536, 65537} {
		docs = append(docs, fmt.Sprintf(`{"s": "%s}}{", "t": "]"}`, strings.Repeat("a", pad)))
		docs = append(docs, `{"s": "}\"}"}`)
	}
	input := "[" + strings.Join(docs, ",") + "]"

	sc := newScanner("mem", strings.NewReader(input), MaxRecordBytes)
	var got []string
	for {
		raw, _, err := sc.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, string(raw))
	}
	assert.Equal(t, docs, got)
	for _, raw := range got {
		_, err := decodeValue([]byte(raw))
		assert.NoError(t, err)
	}
}

func TestScannerSequenceAndBOM(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("{\"a\":1}\n\"str\"\n42 true\n")...)
	sc := newScanner("mem", bytes.NewReader(input), MaxRecordBytes)
	var got []string
	for {
		raw, _, err := sc.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, string(raw))
	}
	assert.Equal(t, []string{`{"a":1}`, `"str"`, `42`, `true`}, got)
	assert.Equal(t, rootSequence, sc.Root())
}

func FuzzScannerStringValues(f *testing.F) {
	f.Add("}", "{")
	f.Add(`\"}`, "]],")
	f.Add(strings.Repeat("}", 70000), "")
	f.Fuzz(func(t *testing.T, a, b string) {
		var docs []string
		for _, s := range []string{a, b, a + b} {
			raw, err := json.Marshal(map[string]string{"s": s})
			require.NoError(t, err)
			docs = append(docs, string(raw))
		}
		sc := newScanner("fuzz", strings.NewReader("["+strings.Join(docs, ",")+"]"), MaxRecordBytes)
		var got []string
		for {
			raw, _, err := sc.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			require.NoError(t, err)
			got = append(got, string(raw))
		}
		require.Equal(t, docs, got)
	})
}

func TestScannerRecordSizeCap(t *testing.T) {
	sc := newScanner("mem", strings.NewReader(`[{"a": "0123456789"}]`), 8)
	_, _, err := sc.Next()
	var pe *types.ParseError
	require.True(t, errors.As(err, &pe))
	assert.False(t, pe.Recoverable())
}

func TestAnalyze(t *testing.T) {
	o, _ := newOptimizer(512)
	ctx := context.Background()

	a, err := o.Analyze(ctx, writeFile(t, "a.json", documents["array.json"]))
	require.NoError(t, err)
	assert.Equal(t, "array", a.RootKind)
	assert.Equal(t, int64(4), a.EstimatedRecords)
	assert.False(t, a.Streaming)
	assert.Positive(t, a.Complexity)
	require.NotNil(t, a.Schema)
	assert.Contains(t, a.Schema.PropertyNames(), "email")
	assert.Equal(t, 4, a.Details.(Structure).SampledRecords)

	a, err = o.Analyze(ctx, writeFile(t, "s.json", documents["single.json"]))
	require.NoError(t, err)
	assert.Equal(t, "object", a.RootKind)
	assert.Equal(t, 4, a.Details.(Structure).MaxDepth)

	a, err = o.Analyze(ctx, writeFile(t, "r.ndjson", documents["records.ndjson"]))
	require.NoError(t, err)
	assert.Equal(t, "sequence", a.RootKind)
}

func TestComplexityDepthCap(t *testing.T) {
	v := map[string]interface{}{
		"a": map[string]interface{}{
			"b": []interface{}{int64(1), int64(2), map[string]interface{}{"c": "d"}},
		},
	}
	assert.Equal(t, 1+1+3+1, Complexity(v, 10))
	assert.Equal(t, 1+1, Complexity(v, 2))
	assert.Equal(t, 0, Complexity("scalar", 10))
}
