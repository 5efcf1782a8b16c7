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

package dashboard

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rulego/streamopt/types"
)

const namespace = "streamopt"

type gauge struct {
	desc  *prometheus.Desc
	value func(types.DashboardMetrics) float64
}

// PrometheusCollector exports the latest dashboard sample. It reads the
// current sample on every scrape and never triggers one.
type PrometheusCollector struct {
	d       *Dashboard
	gauges  []gauge
	records *prometheus.Desc
	errors  *prometheus.Desc
	alerts  *prometheus.Desc
}

var _ prometheus.Collector = (*PrometheusCollector)(nil)

// NewPrometheusCollector creates a collector over d.
func NewPrometheusCollector(d *Dashboard) *PrometheusCollector {
	g := func(name, help string, value func(types.DashboardMetrics) float64) gauge {
		return gauge{desc: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, nil), value: value}
	}
	return &PrometheusCollector{
		d: d,
		gauges: []gauge{
			g("memory_percent", "Heap use relative to the memory ceiling.",
				func(m types.DashboardMetrics) float64 { return m.System.MemoryPercent }),
			g("cpu_percent", "Process CPU use.",
				func(m types.DashboardMetrics) float64 { return m.System.CPUPercent }),
			g("throughput_records_per_second", "Records read per second since the previous sample.",
				func(m types.DashboardMetrics) float64 { return m.Performance.Throughput }),
			g("read_duration_avg_ms", "Mean read duration.",
				func(m types.DashboardMetrics) float64 { return m.Performance.AvgExecutionTimeMs }),
			g("error_rate_percent", "Failed or invalid records relative to all attempted records.",
				func(m types.DashboardMetrics) float64 { return m.Performance.ErrorRate }),
			g("worker_utilization_percent", "Active reads relative to the worker pool.",
				func(m types.DashboardMetrics) float64 { return m.Performance.WorkerUtilization }),
			g("circuit_breaker_health_percent", "Share of closed circuit breakers.",
				func(m types.DashboardMetrics) float64 { return m.Resilience.CircuitBreakerHealth }),
			g("potential_leaks", "Resources flagged as potentially leaked.",
				func(m types.DashboardMetrics) float64 { return float64(m.Resilience.PotentialLeaks) }),
			g("health_score", "Overall health from 0 to 100.",
				func(m types.DashboardMetrics) float64 { return m.HealthScore }),
		},
		records: prometheus.NewDesc(prometheus.BuildFQName(namespace, "optimizer", "records_total"),
			"Records emitted by an optimizer.", []string{"format"}, nil),
		errors: prometheus.NewDesc(prometheus.BuildFQName(namespace, "optimizer", "validation_errors_total"),
			"Records skipped as invalid by an optimizer.", []string{"format"}, nil),
		alerts: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "active_alerts"),
			"Unresolved alerts.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, g := range c.gauges {
		ch <- g.desc
	}
	ch <- c.records
	ch <- c.errors
	ch <- c.alerts
}

// Collect implements prometheus.Collector.
func (c *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	c.d.mu.RLock()
	m, ok := c.d.current, c.d.hasCurrent
	c.d.mu.RUnlock()
	if !ok {
		return
	}
	for _, g := range c.gauges {
		ch <- prometheus.MustNewConstMetric(g.desc, prometheus.GaugeValue, g.value(m))
	}
	for format, st := range m.Optimizers {
		ch <- prometheus.MustNewConstMetric(c.records, prometheus.CounterValue, float64(st.RecordsProcessed), format)
		ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(st.ValidationErrors), format)
	}
	ch <- prometheus.MustNewConstMetric(c.alerts, prometheus.GaugeValue, float64(len(c.d.GetActiveAlerts())))
}
