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

// Merge returns the least upper bound of a and b. The result is a fresh
// tree; neither input is modified.
//
// Merge is associative and idempotent: object properties are an ordered
// union, required names are intersected, and constraints survive only when
// both sides carry identical ones.
func Merge(a, b *Schema) *Schema {
	if a == nil {
		return b.Clone()
	}
	if b == nil {
		return a.Clone()
	}

	t := JoinType(a.Type, b.Type)
	nullable := a.Nullable || b.Nullable
	if t != TypeNull && (a.Type == TypeNull || b.Type == TypeNull) {
		nullable = true
	}

	var out *Schema
	switch {
	case t == TypeAny:
		out = &Schema{Type: TypeAny}
	case bottom(a.Type) && a.Type != t:
		out = b.Clone()
	case bottom(b.Type) && b.Type != t:
		out = a.Clone()
	default:
		out = &Schema{Type: t}
		if constraintsEqual(a.Constraints, b.Constraints) {
			out.Constraints = a.Constraints.clone()
		}
		switch t {
		case TypeObject:
			out.Properties = mergeProperties(a.Properties, b.Properties)
			out.Required = intersect(a.Required, b.Required)
		case TypeArray:
			out.Items = Merge(a.Items, b.Items)
		}
	}
	out.Nullable = nullable
	return out
}

// MergeAll folds Merge over schemas left to right. It returns nil for an
// empty list.
func MergeAll(schemas ...*Schema) *Schema {
	var out *Schema
	for i, s := range schemas {
		if i == 0 {
			out = s.Clone()
			continue
		}
		out = Merge(out, s)
	}
	return out
}

func mergeProperties(a, b []Property) []Property {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	inB := make(map[string]*Schema, len(b))
	for _, p := range b {
		inB[p.Name] = p.Schema
	}
	seen := make(map[string]bool, len(a))
	out := make([]Property, 0, len(a)+len(b))
	for _, p := range a {
		seen[p.Name] = true
		if other, ok := inB[p.Name]; ok {
			out = append(out, Property{Name: p.Name, Schema: Merge(p.Schema, other)})
			continue
		}
		out = append(out, Property{Name: p.Name, Schema: p.Schema.Clone()})
	}
	for _, p := range b {
		if !seen[p.Name] {
			out = append(out, Property{Name: p.Name, Schema: p.Schema.Clone()})
		}
	}
	return out
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	inB := make(map[string]bool, len(b))
	for _, name := range b {
		inB[name] = true
	}
	var out []string
	for _, name := range a {
		if inB[name] {
			out = append(out, name)
		}
	}
	return out
}

func constraintsEqual(a, b *Constraints) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return intPtrEqual(a.MinLength, b.MinLength) &&
		intPtrEqual(a.MaxLength, b.MaxLength) &&
		floatPtrEqual(a.Minimum, b.Minimum) &&
		floatPtrEqual(a.Maximum, b.Maximum) &&
		a.Pattern == b.Pattern &&
		a.Format == b.Format
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
