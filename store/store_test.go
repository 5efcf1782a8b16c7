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

package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/streamopt/adaptive"
	"github.com/rulego/streamopt/types"
)

func change(at time.Time, profile string) adaptive.SettingsChange {
	before := types.DefaultSettings()
	after := before
	after.MaxWorkers = max(1, before.MaxWorkers-1)
	after.EnableCaching = false
	return adaptive.SettingsChange{
		ID:        uuid.NewString(),
		Timestamp: at,
		Profile:   profile,
		Workload:  types.WorkloadCharacteristics{DataSize: types.DataSizeLarge, MemoryPressure: types.MemoryPressureCritical},
		Trend:     adaptive.TrendSuboptimal,
		Before:    before,
		After:     after,
		Changes:   types.Diff(before, after),
	}
}

func TestAdaptationsRoundTrip(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer s.Close()

	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	first := change(t0, adaptive.ProfileMemoryConstrained)
	second := change(t0.Add(time.Minute), "")
	require.NoError(t, s.RecordAdaptation(first))
	require.NoError(t, s.RecordAdaptation(second))
	assert.Error(t, s.RecordAdaptation(first), "duplicate ids are rejected")

	got, err := s.RecentAdaptations(10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)

	c := got[1]
	assert.True(t, first.Timestamp.Equal(c.Timestamp))
	assert.Equal(t, first.Profile, c.Profile)
	assert.Equal(t, first.Trend, c.Trend)
	assert.Equal(t, first.Workload, c.Workload)
	assert.Equal(t, first.Before, c.Before)
	assert.Equal(t, first.After, c.After)
	assert.Equal(t, first.Changes, c.Changes)

	got, err = s.RecentAdaptations(1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAlertsRoundTrip(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	raised := types.Alert{
		ID:         "memory_usage",
		InstanceID: uuid.NewString(),
		Severity:   types.AlertCritical,
		Metric:     "system.memoryPercent",
		Message:    "memory high",
		Threshold:  85,
		Value:      110,
		CreatedAt:  t0,
		UpdatedAt:  t0,
	}
	resolved := raised
	resolved.Resolved = true
	resolved.Value = 40
	resolved.UpdatedAt = t0.Add(time.Minute)
	resolved.ResolvedAt = resolved.UpdatedAt
	require.NoError(t, s.RecordAlert(raised))
	require.NoError(t, s.RecordAlert(resolved))

	got, err := s.RecentAlerts(10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Resolved)
	assert.Equal(t, 40.0, got[0].Value)
	assert.True(t, resolved.ResolvedAt.Equal(got[0].ResolvedAt))
	assert.False(t, got[1].Resolved)
	assert.Equal(t, raised.InstanceID, got[1].InstanceID)
	assert.Equal(t, types.AlertCritical, got[1].Severity)
	assert.Equal(t, raised.Metric, got[1].Metric)
	assert.True(t, t0.Equal(got[1].UpdatedAt))
}

func TestOpenFailsOnDirectory(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.Error(t, err)
}
