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

package columnopt

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/rulego/streamopt/optimizer"
	"github.com/rulego/streamopt/types"
)

// Table kinds.
const (
	KindCSV     = "csv"
	KindTSV     = "tsv"
	KindParquet = "parquet"
)

// source is what tables are opened over: an open file or a loaded buffer.
type source interface {
	io.Reader
	io.ReaderAt
}

// table yields the rows of a columnar file as records. Next returns io.EOF
// at the end and a *types.ParseError with a record index for a row that
// cannot be decoded; any other error ends the read.
type table interface {
	Columns() []string
	Next() (optimizer.Record, error)
	Close() error
}

// rowSkipper is implemented by tables able to seek past leading rows
// without decoding them.
type rowSkipper interface {
	SkipRows(n int64) (int64, error)
}

func kindOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab":
		return KindTSV
	case ".parquet":
		return KindParquet
	}
	return KindCSV
}

func openTable(path string, src source, size int64) (table, error) {
	switch kindOf(path) {
	case KindParquet:
		return newParquetTable(path, src, size)
	case KindTSV:
		return newCSVTable(path, src, '\t')
	}
	return newCSVTable(path, src, ',')
}

type csvTable struct {
	path    string
	r       *csv.Reader
	columns []string
	index   int64
}

func newCSVTable(path string, src io.Reader, comma rune) (*csvTable, error) {
	br := bufio.NewReader(src)
	if bom, err := br.Peek(3); err == nil && string(bom) == "\xef\xbb\xbf" {
		_, _ = br.Discard(3)
	}
	r := csv.NewReader(br)
	r.Comma = comma
	r.ReuseRecord = true
	t := &csvTable{path: path, r: r}

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return t, nil
	}
	if err != nil {
		return nil, &types.ParseError{Path: path, Offset: 1, Record: -1, Message: "malformed header", Cause: err}
	}
	t.columns = optimizer.UniqueNames(header)
	for i, name := range t.columns {
		if name == "" {
			t.columns[i] = "column_" + strconv.Itoa(i+1)
		}
	}
	return t, nil
}

func (t *csvTable) Columns() []string { return t.columns }

func (t *csvTable) Next() (optimizer.Record, error) {
	if t.columns == nil {
		return nil, io.EOF
	}
	fields, err := t.r.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	index := t.index
	t.index++
	if err != nil {
		line := int64(-1)
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			line = int64(pe.Line)
		}
		return nil, &types.ParseError{Path: t.path, Offset: line, Record: index, Message: "malformed row", Cause: err}
	}
	rec := make(optimizer.Record, len(t.columns))
	for i, name := range t.columns {
		rec[name] = optimizer.ParseCell(fields[i])
	}
	return rec, nil
}

func (t *csvTable) Close() error { return nil }

type parquetTable struct {
	path    string
	file    *parquet.File
	columns []string
	groups  []parquet.RowGroup
	group   int
	rows    parquet.Rows
	buf     []parquet.Row
	pending []parquet.Row
	started bool
}

func newParquetTable(path string, src io.ReaderAt, size int64) (*parquetTable, error) {
	f, err := parquet.OpenFile(src, size)
	if err != nil {
		return nil, &types.ParseError{Path: path, Offset: -1, Record: -1, Message: "malformed parquet file", Cause: err}
	}
	return &parquetTable{
		path:    path,
		file:    f,
		columns: leafNames(f.Schema()),
		groups:  f.RowGroups(),
		buf:     make([]parquet.Row, 128),
	}, nil
}

func leafNames(s *parquet.Schema) []string {
	paths := s.Columns()
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = strings.Join(p, ".")
	}
	return names
}

func (t *parquetTable) Columns() []string { return t.columns }

func (t *parquetTable) Next() (optimizer.Record, error) {
	t.started = true
	for len(t.pending) == 0 {
		if t.rows == nil {
			if t.group >= len(t.groups) {
				return nil, io.EOF
			}
			t.rows = t.groups[t.group].Rows()
			t.group++
		}
		n, err := t.rows.ReadRows(t.buf)
		t.pending = t.buf[:n]
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, &types.ParseError{Path: t.path, Offset: -1, Record: -1, Message: "unreadable row group", Cause: err}
		}
		if err != nil || n == 0 {
			_ = t.rows.Close()
			t.rows = nil
		}
	}
	row := t.pending[0]
	t.pending = t.pending[1:]
	return t.record(row), nil
}

// record converts one row. Values of repeated columns collect into a slice.
func (t *parquetTable) record(row parquet.Row) optimizer.Record {
	rec := make(optimizer.Record, len(t.columns))
	counts := make([]int, len(t.columns))
	for _, v := range row {
		col := v.Column()
		if col < 0 || col >= len(t.columns) {
			continue
		}
		name := t.columns[col]
		counts[col]++
		switch counts[col] {
		case 1:
			rec[name] = goValue(v)
		case 2:
			rec[name] = []interface{}{rec[name], goValue(v)}
		default:
			rec[name] = append(rec[name].([]interface{}), goValue(v))
		}
	}
	return rec
}

// SkipRows passes over whole row groups, then seeks inside the next one.
// It only acts before the first row is read.
func (t *parquetTable) SkipRows(n int64) (int64, error) {
	if t.started || n <= 0 {
		return 0, nil
	}
	t.started = true
	var skipped int64
	for t.group < len(t.groups) && skipped+t.groups[t.group].NumRows() <= n {
		skipped += t.groups[t.group].NumRows()
		t.group++
	}
	if skipped < n && t.group < len(t.groups) {
		t.rows = t.groups[t.group].Rows()
		t.group++
		if err := t.rows.SeekToRow(n - skipped); err != nil {
			return skipped, &types.ParseError{Path: t.path, Offset: -1, Record: -1, Message: "seek failed", Cause: err}
		}
		skipped = n
	}
	return skipped, nil
}

func (t *parquetTable) Close() error {
	if t.rows != nil {
		err := t.rows.Close()
		t.rows = nil
		return err
	}
	return nil
}

// goValue maps a parquet value to the record value types.
func goValue(v parquet.Value) interface{} {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	}
	return v.String()
}
