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

// Package table renders rows of loosely typed values as an ASCII table.
package table

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rulego/streamopt/utils/cast"
)

// Write renders rows to w. Columns follow fieldOrder first, then any
// remaining columns in alphabetical order.
func Write(w io.Writer, rows []map[string]interface{}, fieldOrder []string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "(0 rows)")
		return err
	}

	columns := Columns(rows, fieldOrder)

	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
		for _, row := range rows {
			if v, ok := row[col]; ok {
				if n := len(cast.ToString(v)); n > widths[i] {
					widths[i] = n
				}
			}
		}
		// Minimum width is 4
		if widths[i] < 4 {
			widths[i] = 4
		}
	}

	var b strings.Builder
	border(&b, widths)
	b.WriteString("|")
	for i, col := range columns {
		fmt.Fprintf(&b, " %-*s |", widths[i], col)
	}
	b.WriteString("\n")
	border(&b, widths)
	for _, row := range rows {
		b.WriteString("|")
		for i, col := range columns {
			val := ""
			if v, ok := row[col]; ok {
				val = cast.ToString(v)
			}
			fmt.Fprintf(&b, " %-*s |", widths[i], val)
		}
		b.WriteString("\n")
	}
	border(&b, widths)
	fmt.Fprintf(&b, "(%d rows)\n", len(rows))

	_, err := io.WriteString(w, b.String())
	return err
}

// Columns lists the column names of rows in output order.
func Columns(rows []map[string]interface{}, fieldOrder []string) []string {
	seen := make(map[string]bool)
	for _, row := range rows {
		for col := range row {
			seen[col] = true
		}
	}

	columns := make([]string, 0, len(seen))
	for _, field := range fieldOrder {
		if seen[field] {
			columns = append(columns, field)
			delete(seen, field)
		}
	}
	rest := make([]string, 0, len(seen))
	for col := range seen {
		rest = append(rest, col)
	}
	sort.Strings(rest)
	return append(columns, rest...)
}

// KeyValue renders a two column name/value table.
func KeyValue(w io.Writer, pairs map[string]interface{}) error {
	names := make([]string, 0, len(pairs))
	for k := range pairs {
		names = append(names, k)
	}
	sort.Strings(names)
	rows := make([]map[string]interface{}, len(names))
	for i, k := range names {
		rows[i] = map[string]interface{}{"name": k, "value": pairs[k]}
	}
	return Write(w, rows, []string{"name", "value"})
}

func border(b *strings.Builder, widths []int) {
	b.WriteString("+")
	for _, width := range widths {
		b.WriteString(strings.Repeat("-", width+2))
		b.WriteString("+")
	}
	b.WriteString("\n")
}
