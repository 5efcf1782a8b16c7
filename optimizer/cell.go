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
	"strconv"
	"strings"
)

// ParseCell converts a textual cell to int64, float64, bool or nil, keeping
// the text when none applies. Leading zeros keep the text so codes such as
// "007" survive.
func ParseCell(s string) interface{} {
	t := strings.TrimSpace(s)
	if t == "" {
		return nil
	}
	switch t {
	case "true", "TRUE", "True":
		return true
	case "false", "FALSE", "False":
		return false
	}
	if len(t) > 1 && t[0] == '0' && t[1] != '.' {
		return s
	}
	if i, err := strconv.ParseInt(t, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil && !strings.ContainsAny(t, "nNiI") {
		return f
	}
	return s
}

// UniqueNames returns header cells with repeated names suffixed _2, _3 and
// so on. Empty cells stay empty for the caller to name.
func UniqueNames(cells []string) []string {
	names := make([]string, len(cells))
	seen := make(map[string]int, len(cells))
	for i, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		seen[c]++
		if n := seen[c]; n > 1 {
			c += "_" + strconv.Itoa(n)
		}
		names[i] = c
	}
	return names
}
