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

package types

import "time"

// SystemMetrics describes process memory and CPU.
type SystemMetrics struct {
	MemoryUsedMB  float64 `json:"memoryUsedMB"`
	MemoryLimitMB float64 `json:"memoryLimitMB"`
	MemoryPercent float64 `json:"memoryPercent"`
	CPUPercent    float64 `json:"cpuPercent"`
	Goroutines    int     `json:"goroutines"`
	NumCPU        int     `json:"numCPU"`
	// Normalized [0,1] distance to the memory ceiling
	PressureLevel float64 `json:"pressureLevel"`
}

// PerformanceMetrics aggregates optimizer activity between two samples.
type PerformanceMetrics struct {
	// Records per second since the previous sample
	Throughput float64 `json:"throughput"`
	// Mean wall time of a read operation, in milliseconds
	AvgExecutionTimeMs float64 `json:"avgExecutionTimeMs"`
	// Active reads relative to MaxWorkers, in percent
	WorkerUtilization float64 `json:"workerUtilization"`
	RecordsProcessed  int64   `json:"recordsProcessed"`
	BytesProcessed    int64   `json:"bytesProcessed"`
	// Failed or invalid records relative to processed records, in percent
	ErrorRate   float64 `json:"errorRate"`
	ActiveReads int64   `json:"activeReads"`
	// Mean processing time per record, in milliseconds
	AvgRecordTimeMs float64 `json:"avgRecordTimeMs"`
}

// ResilienceMetrics reports on the circuit breakers and the leak detector.
type ResilienceMetrics struct {
	// Percent of healthy breakers, 100 when no breaker manager is attached
	CircuitBreakerHealth float64 `json:"circuitBreakerHealth"`
	OpenBreakers         int     `json:"openBreakers"`
	TotalBreakers        int     `json:"totalBreakers"`
	TrackedResources     int     `json:"trackedResources"`
	PotentialLeaks       int     `json:"potentialLeaks"`
	RecoveryRate         float64 `json:"recoveryRate"`
}

// OptimizerStats is a point-in-time snapshot of one optimizer's counters.
type OptimizerStats struct {
	Format           string `json:"format"`
	RecordsProcessed int64  `json:"recordsProcessed"`
	// SchemasDetected counts schema inferences since the last reset. Cache
	// hits and explicit schemas do not count; a single read adds 0 or 1.
	SchemasDetected     int64         `json:"schemasDetected"`
	ValidationErrors    int64         `json:"validationErrors"`
	PeakHeapBytes       uint64        `json:"peakHeapBytes"`
	TotalProcessingTime time.Duration `json:"totalProcessingTime"`
	AvgRecordTime       time.Duration `json:"avgRecordTime"`
	// SchemaConsistency is 1 - validationErrors/recordsProcessed, clamped
	// to [0, 1]. It is 1 while neither records nor errors were counted.
	SchemaConsistency  float64          `json:"schemaConsistency"`
	BytesProcessed     int64            `json:"bytesProcessed"`
	Reads              int64            `json:"reads"`
	Failures           int64            `json:"failures"`
	StreamingReads     int64            `json:"streamingReads"`
	BufferedReads      int64            `json:"bufferedReads"`
	ActiveReads        int64            `json:"activeReads"`
	CacheClears        int64            `json:"cacheClears"`
	Reclaims           int64            `json:"reclaims"`
	FailuresByCategory map[string]int64 `json:"failuresByCategory,omitempty"`
}

// DashboardMetrics is one dashboard sample.
type DashboardMetrics struct {
	Timestamp   time.Time                 `json:"timestamp"`
	System      SystemMetrics             `json:"system"`
	Performance PerformanceMetrics        `json:"performance"`
	Resilience  ResilienceMetrics         `json:"resilience"`
	Optimizers  map[string]OptimizerStats `json:"optimizers"`
	HealthScore float64                   `json:"healthScore"`
}

// AlertSeverity grades an alert.
type AlertSeverity string

const (
	AlertWarning  AlertSeverity = "warning"
	AlertCritical AlertSeverity = "critical"
)

// Alert is a level-triggered threshold record, upserted by ID.
type Alert struct {
	ID         string        `json:"id"`
	InstanceID string        `json:"instanceId"`
	Severity   AlertSeverity `json:"severity"`
	Metric     string        `json:"metric"`
	Message    string        `json:"message"`
	Threshold  float64       `json:"threshold"`
	Value      float64       `json:"value"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
	ResolvedAt time.Time     `json:"resolvedAt,omitempty"`
	Resolved   bool          `json:"resolved"`
}

// Trend is the direction of a metric over the recent history.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendWorsening Trend = "worsening"
)
