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

package sheetopt

import (
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/rulego/streamopt/optimizer"
)

// SheetKey holds the worksheet name in records when a read spans more than
// one worksheet.
const SheetKey = "_sheet"

// rowDecoder turns the rows of one worksheet into records. Rows are fed in
// sheet order starting at row 1.
type rowDecoder struct {
	sheet     string
	tag       bool
	headerRow int
	firstRow  int
	lastRow   int // inclusive, 0 open
	row       int
	headers   []string
}

func newRowDecoder(sheet string, opts optimizer.ReadOptions, tag bool) *rowDecoder {
	headerRow := opts.HeaderRow
	if headerRow == 0 {
		headerRow = 1
	}
	first := headerRow + 1
	if opts.StartRow > first {
		first = opts.StartRow
	}
	return &rowDecoder{
		sheet:     sheet,
		tag:       tag,
		headerRow: headerRow,
		firstRow:  first,
		lastRow:   opts.EndRow,
	}
}

// next decodes the following row. ok is false for rows that yield no
// record: rows up to the header, rows outside the range and blank rows.
// stop is true once the range is exhausted.
func (d *rowDecoder) next(cells []string) (rec optimizer.Record, ok, stop bool) {
	d.row++
	if d.lastRow > 0 && d.row > d.lastRow {
		return nil, false, true
	}
	if d.row == d.headerRow {
		d.headers = optimizer.UniqueNames(cells)
		return nil, false, false
	}
	if d.row < d.firstRow || blank(cells) {
		return nil, false, false
	}

	width := len(cells)
	if len(d.headers) > width {
		width = len(d.headers)
	}
	rec = make(optimizer.Record, width+1)
	for i := 0; i < width; i++ {
		var v interface{}
		if i < len(cells) {
			v = optimizer.ParseCell(cells[i])
		}
		rec[d.column(i)] = v
	}
	if d.tag {
		rec[SheetKey] = d.sheet
	}
	return rec, true, false
}

func (d *rowDecoder) column(i int) string {
	if i < len(d.headers) && d.headers[i] != "" {
		return d.headers[i]
	}
	return columnLetter(i)
}

func columnLetter(i int) string {
	name, err := excelize.ColumnNumberToName(i + 1)
	if err != nil {
		return "col" + strconv.Itoa(i+1)
	}
	return name
}

func blank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
