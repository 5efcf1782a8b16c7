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

// Package cast converts loosely typed cell and field values. None of the
// functions panic: a value that cannot be converted is returned unchanged
// together with ok=false.
package cast

import (
	"fmt"
	"math"
	"strings"
	"time"

	spf "github.com/spf13/cast"
)

// DateLayouts are tried in order by ParseDate.
var DateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
}

// ToBool recognizes true/yes/1 and false/no/0 (case-insensitive) besides
// native booleans and numbers.
func ToBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "yes", "1":
			return true, true
		case "false", "no", "0":
			return false, true
		}
		return false, false
	case nil:
		return false, false
	}
	if f, ok := ToFloat(v); ok {
		switch f {
		case 1:
			return true, true
		case 0:
			return false, true
		}
	}
	return false, false
}

// ToFloat converts numbers and numeric strings. NaN and infinities are
// reported as failures.
func ToFloat(v any) (float64, bool) {
	if s, isString := v.(string); isString {
		v = strings.TrimSpace(s)
		if v == "" {
			return 0, false
		}
	}
	if _, isBool := v.(bool); isBool || v == nil {
		return 0, false
	}
	f, err := spf.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ToInt converts v to an int64 when it holds an integral value.
func ToInt(v any) (int64, bool) {
	f, ok := ToFloat(v)
	if !ok || f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// ToString formats any value.
func ToString(v any) string {
	if v == nil {
		return ""
	}
	s, err := spf.ToStringE(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return s
}

// ParseDate parses a string over DateLayouts.
func ParseDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range DateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// Number converts v to a number, preferring int64 for integral values, and
// falls back to v itself when it is not numeric.
func Number(v any) any {
	if i, ok := ToInt(v); ok {
		return i
	}
	if f, ok := ToFloat(v); ok {
		return f
	}
	return v
}

// Bool converts v to a bool or returns v unchanged.
func Bool(v any) any {
	if b, ok := ToBool(v); ok {
		return b
	}
	return v
}

// Date converts v to a time.Time or returns v unchanged.
func Date(v any) any {
	if t, ok := ParseDate(v); ok {
		return t
	}
	return v
}

// ToDuration converts numbers (as seconds) and Go duration strings.
func ToDuration(v any) (time.Duration, bool) {
	switch x := v.(type) {
	case time.Duration:
		return x, true
	case string:
		if _, numeric := ToFloat(x); !numeric {
			d, err := spf.ToDurationE(strings.TrimSpace(x))
			return d, err == nil
		}
	}
	if f, ok := ToFloat(v); ok {
		return time.Duration(f * float64(time.Second)), true
	}
	return 0, false
}
