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

package cast

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToBool(t *testing.T) {
	tests := []struct {
		name   string
		input  interface{}
		expect bool
		ok     bool
	}{
		{"native true", true, true, true},
		{"yes", "Yes", true, true},
		{"one string", "1", true, true},
		{"TRUE", " TRUE ", true, true},
		{"no", "no", false, true},
		{"zero string", "0", false, true},
		{"false", "False", false, true},
		{"int one", 1, true, true},
		{"float zero", 0.0, false, true},
		{"other number", 2, false, false},
		{"garbage", "maybe", false, false},
		{"nil", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToBool(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expect, got)
		})
	}
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		name   string
		input  interface{}
		expect float64
		ok     bool
	}{
		{"int", 42, 42, true},
		{"int64", int64(-3), -3, true},
		{"float32", float32(1.5), 1.5, true},
		{"string", " 3.25 ", 3.25, true},
		{"exponent", "1e3", 1000, true},
		{"empty", "", 0, false},
		{"nan string", "NaN", 0, false},
		{"nan value", math.NaN(), 0, false},
		{"inf", math.Inf(1), 0, false},
		{"bool", true, 0, false},
		{"text", "abc", 0, false},
		{"slice", []int{1}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToFloat(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expect, got)
		})
	}
}

func TestNumberFallsBackToOriginal(t *testing.T) {
	assert.Equal(t, int64(12), Number("12"))
	assert.Equal(t, 12.5, Number("12.5"))
	assert.Equal(t, int64(3), Number(3.0))
	assert.Equal(t, "twelve", Number("twelve"))
	assert.Equal(t, "NaN", Number("NaN"))
	assert.Nil(t, Number(nil))
}

func TestToInt(t *testing.T) {
	v, ok := ToInt("7")
	assert.True(t, ok)
	assert.Equal(t, int64(7), v)

	_, ok = ToInt(7.5)
	assert.False(t, ok)
	_, ok = ToInt(1e300)
	assert.False(t, ok)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input  string
		expect time.Time
	}{
		{"2024-03-05T10:20:30Z", time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC)},
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"2024-03-05 10:20:30", time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC)},
		{"03/05/2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			assert.True(t, ok)
			assert.True(t, tt.expect.Equal(got), "got %v", got)
		})
	}

	assert.Equal(t, "not a date", Date("not a date"))
	_, ok := ParseDate(12)
	assert.False(t, ok)
}

func TestBoolFallsBack(t *testing.T) {
	assert.Equal(t, true, Bool("yes"))
	assert.Equal(t, "perhaps", Bool("perhaps"))
}

func TestToString(t *testing.T) {
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "12", ToString(12))
	assert.Equal(t, "1.5", ToString(1.5))
	assert.Equal(t, "true", ToString(true))
	assert.Equal(t, "[1 2]", ToString([]int{1, 2}))
}

func TestToDuration(t *testing.T) {
	d, ok := ToDuration("1m30s")
	assert.True(t, ok)
	assert.Equal(t, 90*time.Second, d)

	d, ok = ToDuration("5")
	assert.True(t, ok)
	assert.Equal(t, 5*time.Second, d)

	d, ok = ToDuration(2)
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, d)

	_, ok = ToDuration("soon")
	assert.False(t, ok)
}

func TestNeverPanics(t *testing.T) {
	inputs := []interface{}{nil, struct{}{}, map[string]int{"a": 1}, make(chan int), func() {}, []byte("x")}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			Number(in)
			Bool(in)
			Date(in)
			ToString(in)
			ToDuration(in)
		})
	}
}
