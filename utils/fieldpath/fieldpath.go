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

// Package fieldpath resolves dotted and bracketed field paths against
// records decoded from JSON, spreadsheets and columnar files.
//
// Every write path goes through an allow-list key validator: a segment
// naming one of the reserved internal-object keys is rejected with a
// *types.SecurityError before anything is modified.
package fieldpath

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/rulego/streamopt/types"
)

// ReservedKeys are the segment names rejected on every path.
var ReservedKeys = map[string]struct{}{
	"__proto__":   {},
	"constructor": {},
	"prototype":   {},
}

// PartType is the kind of one path step.
type PartType string

const (
	PartField PartType = "field"
	PartIndex PartType = "array_index"
	PartKey   PartType = "map_key"
)

// FieldAccessor is a parsed field path.
type FieldAccessor struct {
	Path  string
	Parts []FieldPart
}

// FieldPart represents a single step of a field path
type FieldPart struct {
	Type  PartType
	Name  string // field name or map key
	Index int    // array index when Type is PartIndex, negative counts from the end
}

// ValidateKey checks one segment against the reserved keys and rejects
// control characters.
func ValidateKey(path, segment string) error {
	if _, reserved := ReservedKeys[segment]; reserved {
		return &types.SecurityError{Path: path, Segment: segment}
	}
	for _, r := range segment {
		if unicode.IsControl(r) {
			return &types.SecurityError{Path: path, Segment: segment}
		}
	}
	return nil
}

// ParseFieldPath parses a field path. Supported forms:
//   - a.b.c (nested fields)
//   - a.b[0] (array index, negative indexes count from the end)
//   - a.b["key"] / a.b['key'] (quoted map key)
//   - a[0].b[1].c['key'] (mixed access)
func ParseFieldPath(fieldPath string) (*FieldAccessor, error) {
	if strings.TrimSpace(fieldPath) == "" {
		return nil, &FieldAccessError{Path: fieldPath, Message: "empty field path"}
	}

	accessor := &FieldAccessor{Path: fieldPath}
	for _, segment := range strings.Split(fieldPath, ".") {
		if segment == "" {
			return nil, &FieldAccessError{Path: fieldPath, Message: "empty path segment"}
		}
		if err := parseSegment(fieldPath, segment, accessor); err != nil {
			return nil, err
		}
	}
	return accessor, nil
}

// parseSegment parses "name", "name[0]" or "name['k'][1]"
func parseSegment(fieldPath, segment string, accessor *FieldAccessor) error {
	bracket := strings.IndexByte(segment, '[')
	name := segment
	if bracket >= 0 {
		name = segment[:bracket]
	}
	if name != "" {
		if err := ValidateKey(fieldPath, name); err != nil {
			return err
		}
		accessor.Parts = append(accessor.Parts, FieldPart{Type: PartField, Name: name})
	}
	if bracket < 0 {
		return nil
	}

	remaining := segment[bracket:]
	for len(remaining) > 0 {
		if remaining[0] != '[' {
			return &FieldAccessError{Path: fieldPath, Message: "unexpected text after bracket"}
		}
		closing := strings.IndexByte(remaining, ']')
		if closing < 0 {
			return &FieldAccessError{Path: fieldPath, Message: "unmatched bracket in field path"}
		}
		part, err := parseBracketContent(fieldPath, remaining[1:closing])
		if err != nil {
			return err
		}
		accessor.Parts = append(accessor.Parts, part)
		remaining = remaining[closing+1:]
	}
	return nil
}

// parseBracketContent parses content within brackets
func parseBracketContent(fieldPath, content string) (FieldPart, error) {
	content = strings.TrimSpace(content)
	if len(content) >= 2 &&
		((content[0] == '\'' && content[len(content)-1] == '\'') ||
			(content[0] == '"' && content[len(content)-1] == '"')) {
		key := content[1 : len(content)-1]
		if err := ValidateKey(fieldPath, key); err != nil {
			return FieldPart{}, err
		}
		return FieldPart{Type: PartKey, Name: key}, nil
	}
	if num, err := strconv.Atoi(content); err == nil {
		return FieldPart{Type: PartIndex, Index: num, Name: content}, nil
	}
	return FieldPart{}, &FieldAccessError{
		Path:    fieldPath,
		Message: "invalid bracket content, expected number or quoted string",
	}
}

// CheckPaths parses every path and returns the first error. Callers use it
// to reject bad selections before any record is read.
func CheckPaths(paths []string) error {
	for _, p := range paths {
		if _, err := ParseFieldPath(p); err != nil {
			return err
		}
	}
	return nil
}

// GetNestedField resolves fieldPath against data.
func GetNestedField(data interface{}, fieldPath string) (interface{}, bool) {
	accessor, err := ParseFieldPath(fieldPath)
	if err != nil {
		return nil, false
	}
	return accessor.Get(data)
}

// Get resolves the accessor against data.
func (a *FieldAccessor) Get(data interface{}) (interface{}, bool) {
	current := data
	for _, part := range a.Parts {
		next, found := accessFieldPart(current, part)
		if !found {
			return nil, false
		}
		current = next
	}
	return current, true
}

// accessFieldPart accesses a single field part
func accessFieldPart(data interface{}, part FieldPart) (interface{}, bool) {
	switch v := data.(type) {
	case map[string]interface{}:
		// numeric brackets on a map read the key "0", "1", ...
		val, ok := v[part.Name]
		return val, ok
	case []interface{}:
		if part.Type != PartIndex {
			return nil, false
		}
		index := part.Index
		if index < 0 {
			index += len(v)
		}
		if index < 0 || index >= len(v) {
			return nil, false
		}
		return v[index], true
	default:
		return nil, false
	}
}

// SetNestedField sets value at fieldPath, creating missing intermediate
// maps. The whole path is validated before data is touched, so a rejected
// path leaves data unmodified.
func SetNestedField(data map[string]interface{}, fieldPath string, value interface{}) error {
	accessor, err := ParseFieldPath(fieldPath)
	if err != nil {
		return err
	}
	return accessor.Set(data, value)
}

// Set assigns value at the accessor's path inside data.
func (a *FieldAccessor) Set(data map[string]interface{}, value interface{}) error {
	for _, part := range a.Parts {
		if part.Type == PartIndex {
			return &FieldAccessError{
				Path:    a.Path,
				Message: "array index is not supported when setting a field",
			}
		}
	}
	if data == nil {
		return &FieldAccessError{Path: a.Path, Message: "nil target map"}
	}

	current := data
	for _, part := range a.Parts[:len(a.Parts)-1] {
		next, ok := current[part.Name].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			current[part.Name] = next
		}
		current = next
	}
	current[a.Parts[len(a.Parts)-1].Name] = value
	return nil
}

// SelectFields builds a new record holding only the selected paths. Nested
// paths keep their nesting in the output. Paths missing from the record are
// skipped. The source record is never modified.
func SelectFields(record map[string]interface{}, paths []string) (map[string]interface{}, error) {
	accessors := make([]*FieldAccessor, 0, len(paths))
	for _, p := range paths {
		accessor, err := ParseFieldPath(p)
		if err != nil {
			return nil, err
		}
		accessors = append(accessors, accessor)
	}

	out := make(map[string]interface{}, len(accessors))
	for _, accessor := range accessors {
		value, found := accessor.Get(record)
		if !found {
			continue
		}
		target := accessor
		if hasIndex(accessor) {
			// indexed selections are flattened under their literal path
			target = &FieldAccessor{Path: accessor.Path, Parts: []FieldPart{{Type: PartKey, Name: accessor.Path}}}
		}
		if err := target.Set(out, value); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func hasIndex(a *FieldAccessor) bool {
	for _, p := range a.Parts {
		if p.Type == PartIndex {
			return true
		}
	}
	return false
}

// GetFieldPathDepth gets the depth of field path
func GetFieldPathDepth(fieldPath string) int {
	accessor, err := ParseFieldPath(fieldPath)
	if err != nil {
		return 0
	}
	return len(accessor.Parts)
}

// FieldAccessError reports a malformed path.
type FieldAccessError struct {
	Path    string
	Message string
}

func (e *FieldAccessError) Error() string {
	return "field access error for path '" + e.Path + "': " + e.Message
}
