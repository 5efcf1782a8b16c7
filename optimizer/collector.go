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
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rulego/streamopt/types"
)

// Collector gathers an optimizer's counters. All methods are safe for
// concurrent use.
type Collector struct {
	records          int64
	schemas          int64
	validationErrors int64
	peakHeap         uint64
	processingNanos  int64
	bytes            int64
	reads            int64
	failures         int64
	streamingReads   int64
	bufferedReads    int64
	activeReads      int64
	cacheClears      int64
	reclaims         int64

	mu         sync.Mutex
	byCategory map[types.Category]int64
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{byCategory: make(map[types.Category]int64)}
}

// IncrementRecords adds n emitted records.
func (c *Collector) IncrementRecords(n int64) {
	atomic.AddInt64(&c.records, n)
}

// IncrementValidationErrors counts one skipped or rejected record.
func (c *Collector) IncrementValidationErrors() {
	atomic.AddInt64(&c.validationErrors, 1)
}

// IncrementSchemas counts one schema inference. Reads served from the
// schema cache do not call it.
func (c *Collector) IncrementSchemas() {
	atomic.AddInt64(&c.schemas, 1)
}

// AddBytes counts bytes read from disk.
func (c *Collector) AddBytes(n int64) {
	atomic.AddInt64(&c.bytes, n)
}

// IncrementCacheClears counts a pressure triggered cache clear.
func (c *Collector) IncrementCacheClears() {
	atomic.AddInt64(&c.cacheClears, 1)
}

// IncrementReclaims counts a forced reclamation.
func (c *Collector) IncrementReclaims() {
	atomic.AddInt64(&c.reclaims, 1)
}

// ObserveHeap raises the recorded peak heap to b if larger.
func (c *Collector) ObserveHeap(b uint64) {
	for {
		cur := atomic.LoadUint64(&c.peakHeap)
		if b <= cur || atomic.CompareAndSwapUint64(&c.peakHeap, cur, b) {
			return
		}
	}
}

// GetRecordCount returns the emitted record count.
func (c *Collector) GetRecordCount() int64 {
	return atomic.LoadInt64(&c.records)
}

// GetValidationErrorCount returns the validation error count.
func (c *Collector) GetValidationErrorCount() int64 {
	return atomic.LoadInt64(&c.validationErrors)
}

// GetActiveReads returns the number of reads in flight.
func (c *Collector) GetActiveReads() int64 {
	return atomic.LoadInt64(&c.activeReads)
}

// ReadScope times one read. Create it with StartRead and close it with End.
type ReadScope struct {
	c     *Collector
	start time.Time
	done  int32
}

// StartRead opens a timing scope for one read.
func (c *Collector) StartRead(streaming bool) *ReadScope {
	atomic.AddInt64(&c.reads, 1)
	atomic.AddInt64(&c.activeReads, 1)
	if streaming {
		atomic.AddInt64(&c.streamingReads, 1)
	} else {
		atomic.AddInt64(&c.bufferedReads, 1)
	}
	return &ReadScope{c: c, start: time.Now()}
}

// End closes the scope, recording elapsed time and classifying err. Calls
// after the first are ignored.
func (s *ReadScope) End(err error) time.Duration {
	if !atomic.CompareAndSwapInt32(&s.done, 0, 1) {
		return 0
	}
	elapsed := time.Since(s.start)
	atomic.AddInt64(&s.c.processingNanos, int64(elapsed))
	atomic.AddInt64(&s.c.activeReads, -1)
	if err != nil {
		s.c.RecordFailure(err)
	}
	return elapsed
}

// RecordFailure counts a failed read by error category.
func (c *Collector) RecordFailure(err error) {
	atomic.AddInt64(&c.failures, 1)
	c.mu.Lock()
	c.byCategory[types.CategoryOf(err)]++
	c.mu.Unlock()
}

// Reset zeroes every counter except reads in flight.
func (c *Collector) Reset() {
	for _, p := range []*int64{
		&c.records, &c.schemas, &c.validationErrors, &c.processingNanos, &c.bytes,
		&c.reads, &c.failures, &c.streamingReads, &c.bufferedReads, &c.cacheClears, &c.reclaims,
	} {
		atomic.StoreInt64(p, 0)
	}
	atomic.StoreUint64(&c.peakHeap, 0)
	c.mu.Lock()
	c.byCategory = make(map[types.Category]int64)
	c.mu.Unlock()
}

// Snapshot returns the counters as an OptimizerStats value.
func (c *Collector) Snapshot(format string) types.OptimizerStats {
	stats := types.OptimizerStats{
		Format:              format,
		RecordsProcessed:    atomic.LoadInt64(&c.records),
		SchemasDetected:     atomic.LoadInt64(&c.schemas),
		ValidationErrors:    atomic.LoadInt64(&c.validationErrors),
		PeakHeapBytes:       atomic.LoadUint64(&c.peakHeap),
		TotalProcessingTime: time.Duration(atomic.LoadInt64(&c.processingNanos)),
		BytesProcessed:      atomic.LoadInt64(&c.bytes),
		Reads:               atomic.LoadInt64(&c.reads),
		Failures:            atomic.LoadInt64(&c.failures),
		StreamingReads:      atomic.LoadInt64(&c.streamingReads),
		BufferedReads:       atomic.LoadInt64(&c.bufferedReads),
		ActiveReads:         atomic.LoadInt64(&c.activeReads),
		CacheClears:         atomic.LoadInt64(&c.cacheClears),
		Reclaims:            atomic.LoadInt64(&c.reclaims),
		SchemaConsistency:   1,
	}
	if stats.RecordsProcessed > 0 {
		stats.AvgRecordTime = stats.TotalProcessingTime / time.Duration(stats.RecordsProcessed)
	}
	if stats.RecordsProcessed > 0 {
		stats.SchemaConsistency = math.Max(0, 1-float64(stats.ValidationErrors)/float64(stats.RecordsProcessed))
	} else if stats.ValidationErrors > 0 {
		stats.SchemaConsistency = 0
	}

	c.mu.Lock()
	if len(c.byCategory) > 0 {
		stats.FailuresByCategory = make(map[string]int64, len(c.byCategory))
		for k, v := range c.byCategory {
			stats.FailuresByCategory[string(k)] = v
		}
	}
	c.mu.Unlock()
	return stats
}
