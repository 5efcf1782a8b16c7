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
	"fmt"
	"math"
	"regexp"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rulego/streamopt/utils/cast"
)

// Issue is one validation failure.
type Issue struct {
	Path    string
	Message string
}

func (i Issue) String() string {
	return i.Path + ": " + i.Message
}

var patternCache sync.Map // pattern -> *regexp.Regexp or error

// Validate walks v against s and returns every issue found. A type mismatch
// stops descent into that subtree. A nil schema accepts anything.
func Validate(v interface{}, s *Schema) []Issue {
	var issues []Issue
	validate(v, s, "$", &issues)
	return issues
}

func validate(v interface{}, s *Schema, path string, issues *[]Issue) {
	if s == nil || s.Type == TypeAny || s.Type == TypeUnknown {
		return
	}
	if v == nil {
		if !s.Nullable && s.Type != TypeNull {
			*issues = append(*issues, Issue{Path: path, Message: "null value for non-nullable " + string(s.Type)})
		}
		return
	}
	if !matchesType(v, s.Type) {
		*issues = append(*issues, Issue{Path: path, Message: fmt.Sprintf("expected %s, got %T", s.Type, v)})
		return
	}

	switch s.Type {
	case TypeObject:
		obj := v.(map[string]interface{})
		for _, name := range s.Required {
			if _, ok := obj[name]; !ok {
				*issues = append(*issues, Issue{Path: path + "." + name, Message: "missing required property"})
			}
		}
		for _, p := range s.Properties {
			if child, ok := obj[p.Name]; ok {
				validate(child, p.Schema, path+"."+p.Name, issues)
			}
		}
	case TypeArray:
		if s.Items == nil {
			return
		}
		for i, item := range v.([]interface{}) {
			validate(item, s.Items, path+"["+strconv.Itoa(i)+"]", issues)
		}
	default:
		checkConstraints(v, s.Constraints, path, issues)
	}
}

func matchesType(v interface{}, t Type) bool {
	switch t {
	case TypeNull:
		return v == nil
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeInteger:
		switch x := v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		case float64:
			return x == math.Trunc(x) && !math.IsInf(x, 0)
		case float32:
			return float64(x) == math.Trunc(float64(x))
		}
		return false
	case TypeNumber:
		return isNumeric(v)
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeDate:
		switch x := v.(type) {
		case time.Time:
			return true
		case string:
			_, ok := cast.ParseDate(x)
			return ok
		}
		return false
	case TypeEmail:
		s, ok := v.(string)
		return ok && emailPattern.MatchString(s)
	case TypeURL:
		s, ok := v.(string)
		return ok && isURL(s)
	case TypeObject:
		_, ok := v.(map[string]interface{})
		return ok
	case TypeArray:
		_, ok := v.([]interface{})
		return ok
	}
	return true
}

func isNumeric(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

func checkConstraints(v interface{}, c *Constraints, path string, issues *[]Issue) {
	if c == nil {
		return
	}
	if s, ok := v.(string); ok {
		n := utf8.RuneCountInString(s)
		if c.MinLength != nil && n < *c.MinLength {
			*issues = append(*issues, Issue{Path: path, Message: fmt.Sprintf("length %d below minLength %d", n, *c.MinLength)})
		}
		if c.MaxLength != nil && n > *c.MaxLength {
			*issues = append(*issues, Issue{Path: path, Message: fmt.Sprintf("length %d above maxLength %d", n, *c.MaxLength)})
		}
		if c.Pattern != "" {
			re, err := compilePattern(c.Pattern)
			if err != nil {
				*issues = append(*issues, Issue{Path: path, Message: "invalid pattern: " + err.Error()})
			} else if !re.MatchString(s) {
				*issues = append(*issues, Issue{Path: path, Message: "does not match pattern " + c.Pattern})
			}
		}
		return
	}
	if isNumeric(v) {
		f, _ := cast.ToFloat(v)
		if c.Minimum != nil && f < *c.Minimum {
			*issues = append(*issues, Issue{Path: path, Message: fmt.Sprintf("%v below minimum %v", v, *c.Minimum)})
		}
		if c.Maximum != nil && f > *c.Maximum {
			*issues = append(*issues, Issue{Path: path, Message: fmt.Sprintf("%v above maximum %v", v, *c.Maximum)})
		}
	}
}

func compilePattern(p string) (*regexp.Regexp, error) {
	if cached, ok := patternCache.Load(p); ok {
		if re, isRe := cached.(*regexp.Regexp); isRe {
			return re, nil
		}
		return nil, cached.(error)
	}
	re, err := regexp.Compile(p)
	if err != nil {
		patternCache.Store(p, err)
		return nil, err
	}
	patternCache.Store(p, re)
	return re, nil
}
