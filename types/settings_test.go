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

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ClampsToBounds(t *testing.T) {
	s := Settings{
		MaxWorkers:              500,
		MemoryLimitMB:           1,
		JSONBatchSize:           10,
		SpreadsheetBatchSize:    1_000_000,
		ColumnarBatchSize:       -4,
		StreamConcurrency:       0,
		OperationTimeout:        time.Hour,
		RetryAttempts:           -1,
		RetryDelay:              time.Millisecond,
		CircuitBreakerThreshold: 0,
		CircuitBreakerTimeout:   time.Second,
	}
	v := Validate(s)
	assert.Equal(t, 32, v.MaxWorkers)
	assert.Equal(t, 64, v.MemoryLimitMB)
	assert.Equal(t, 100, v.JSONBatchSize)
	assert.Equal(t, 50000, v.SpreadsheetBatchSize)
	assert.Equal(t, 100, v.ColumnarBatchSize)
	assert.Equal(t, 1, v.StreamConcurrency)
	assert.Equal(t, 600*time.Second, v.OperationTimeout)
	assert.Equal(t, 0, v.RetryAttempts)
	assert.Equal(t, 100*time.Millisecond, v.RetryDelay)
	assert.Equal(t, 1, v.CircuitBreakerThreshold)
	assert.Equal(t, 5*time.Second, v.CircuitBreakerTimeout)
	assert.True(t, InBounds(v))
	assert.False(t, InBounds(s))
}

func TestValidate_Idempotent(t *testing.T) {
	inputs := []Settings{
		{},
		DefaultSettings(),
		{MaxWorkers: math.MaxInt32, MemoryLimitMB: -1, OperationTimeout: -time.Second},
		{MaxWorkers: 7, MemoryLimitMB: 100, JSONBatchSize: 123, OperationTimeout: 1500 * time.Millisecond},
	}
	for _, s := range inputs {
		once := Validate(s)
		assert.Equal(t, once, Validate(once))
		assert.True(t, InBounds(once))
	}
}

func TestKnob_ClampNaN(t *testing.T) {
	k, ok := KnobByName("maxWorkers")
	require.True(t, ok)
	assert.Equal(t, k.Min, k.Clamp(math.NaN()))
	assert.Equal(t, 32.0, k.Clamp(math.Inf(1)))
}

func TestDiff(t *testing.T) {
	before := DefaultSettings()
	after := before
	after.MaxWorkers = before.MaxWorkers + 1
	after.OperationTimeout = 90 * time.Second
	after.EnableCaching = !before.EnableCaching

	changes := Diff(before, after)
	require.Len(t, changes, 3)
	assert.Equal(t, []string{"enableCaching", "maxWorkers", "operationTimeout"}, ChangedNames(changes))
	assert.Empty(t, Diff(before, before))
}

func TestSettingsStore_Swap(t *testing.T) {
	store := NewSettingsStore(DefaultSettings())
	next := DefaultSettings()
	next.MemoryLimitMB = 1

	previous := store.Store(next)
	assert.Equal(t, DefaultSettings().MemoryLimitMB, previous.MemoryLimitMB)
	assert.Equal(t, 1, store.Current().MemoryLimitMB, "store does not clamp")
	assert.Equal(t, uint64(1), store.Version())
}

func TestWorkloadMatch_Score(t *testing.T) {
	w := WorkloadCharacteristics{
		DataSize:       DataSizeLarge,
		Complexity:     ComplexitySimple,
		MemoryPressure: MemoryPressureHigh,
	}
	m := WorkloadMatch{
		DataSize:       Ptr(DataSizeLarge),
		Complexity:     Ptr(ComplexitySimple),
		MemoryPressure: Ptr(MemoryPressureLow),
	}
	assert.InDelta(t, 2.0/3.0, m.Score(w), 1e-9)
	assert.Equal(t, 3, m.Defined())
	assert.Equal(t, 0.0, WorkloadMatch{}.Score(w))
}

func TestEnumText(t *testing.T) {
	var d DataSize
	require.NoError(t, d.UnmarshalText([]byte("XLarge")))
	assert.Equal(t, DataSizeXLarge, d)
	assert.Error(t, d.UnmarshalText([]byte("huge")))

	text, err := MemoryPressureCritical.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "critical", string(text))
	assert.Equal(t, "unknown", ErrorRateLevel(42).String())
}

func TestLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
maxWorkers: 64
memoryLimitMB: 1024
operationTimeout: 2m
enableCaching: false
`), 0o644))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 32, s.MaxWorkers)
	assert.Equal(t, 1024, s.MemoryLimitMB)
	assert.Equal(t, 2*time.Minute, s.OperationTimeout)
	assert.False(t, s.EnableCaching)
	assert.Equal(t, DefaultSettings().JSONBatchSize, s.JSONBatchSize)
}

func TestSaveAndLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	s := DefaultSettings()
	s.ColumnarBatchSize = 4321
	require.NoError(t, SaveSettings(path, s))

	loaded, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestLoadProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
profiles:
  - name: nightly-batch
    description: large files, nobody waiting
    priority: 3
    target:
      dataSize: xlarge
      concurrency: low
    settings:
      maxWorkers: 2
      jsonBatchSize: 20000
`), 0o644))

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	p := profiles[0]
	assert.Equal(t, "nightly-batch", p.Name)
	assert.Equal(t, 2, p.Target.Defined())
	assert.Equal(t, DataSizeXLarge, *p.Target.DataSize)
	assert.Equal(t, 2, p.Settings.MaxWorkers)
	assert.Equal(t, 20000, p.Settings.JSONBatchSize)
	assert.Equal(t, DefaultSettings().MemoryLimitMB, p.Settings.MemoryLimitMB)
}

func TestLoadProfiles_RejectsEmptyTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiles:\n  - name: empty\n"), 0o644))
	_, err := LoadProfiles(path)
	assert.Error(t, err)
}
