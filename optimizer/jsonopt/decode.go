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

package jsonopt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rulego/streamopt/optimizer"
)

// ValueKey holds a non-object top-level element.
const ValueKey = "value"

// decodeValue decodes exactly one JSON value. Numbers become int64 when the
// literal is integral and fits, float64 otherwise.
func decodeValue(raw []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after value")
	}
	return normalize(v), nil
}

// decodeAll decodes a whole document: the elements of a root array, or
// every value of a sequence.
func decodeAll(data []byte) ([]interface{}, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var arr []interface{}
		if err := dec.Decode(&arr); err != nil {
			return nil, err
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return nil, &json.SyntaxError{Offset: dec.InputOffset()}
		}
		for i := range arr {
			arr[i] = normalize(arr[i])
		}
		return arr, nil
	}

	var out []interface{}
	for {
		var v interface{}
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, normalize(v))
	}
}

func normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case json.Number:
		s := x.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := x.Int64(); err == nil {
				return i
			}
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return s
	case map[string]interface{}:
		for k, child := range x {
			x[k] = normalize(child)
		}
		return x
	case []interface{}:
		for i, child := range x {
			x[i] = normalize(child)
		}
		return x
	}
	return v
}

// toRecord wraps non-object values under ValueKey.
func toRecord(v interface{}) optimizer.Record {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return optimizer.Record{ValueKey: v}
}

// syntaxOffset extracts the byte offset of a decode error, -1 if unknown.
func syntaxOffset(err error) int64 {
	var se *json.SyntaxError
	if errors.As(err, &se) {
		return se.Offset
	}
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		return te.Offset
	}
	return -1
}
