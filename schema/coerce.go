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
	"time"

	"github.com/rulego/streamopt/utils/cast"
)

// Coerce converts v toward the declared type of s on a best-effort basis.
// It never panics and never fails: a value that cannot be converted is
// returned unchanged, as is a value whose Go type already matches.
// Containers are rebuilt, so v itself is never modified.
//
// Canonical Go types: boolean bool, integer int64 (any Go integer is left
// as is), number any Go numeric, string and email and url string, date
// time.Time.
func Coerce(v interface{}, s *Schema) interface{} {
	if v == nil || s == nil {
		return v
	}
	switch s.Type {
	case TypeBoolean:
		return cast.Bool(v)
	case TypeInteger:
		if isInteger(v) {
			return v
		}
		if i, ok := cast.ToInt(v); ok {
			return i
		}
		return v
	case TypeNumber:
		if isNumeric(v) {
			return v
		}
		if f, ok := cast.ToFloat(v); ok {
			return f
		}
		return v
	case TypeString, TypeEmail, TypeURL:
		switch v.(type) {
		case string:
			return v
		case map[string]interface{}, []interface{}:
			return v
		}
		return cast.ToString(v)
	case TypeDate:
		if _, ok := v.(time.Time); ok {
			return v
		}
		return cast.Date(v)
	case TypeObject:
		obj, ok := v.(map[string]interface{})
		if !ok {
			return v
		}
		out := make(map[string]interface{}, len(obj))
		for k, child := range obj {
			if ps, found := s.Property(k); found {
				out[k] = Coerce(child, ps)
				continue
			}
			out[k] = child
		}
		return out
	case TypeArray:
		arr, ok := v.([]interface{})
		if !ok || s.Items == nil {
			return v
		}
		out := make([]interface{}, len(arr))
		for i, item := range arr {
			out[i] = Coerce(item, s.Items)
		}
		return out
	}
	return v
}

func isInteger(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}
