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

// Package schema infers, merges, validates and coerces structural type
// descriptions of JSON-like records.
//
// Types form a flat join-semilattice used by Merge:
//
//	unknown < null < every concrete type < any
//
// Joining two different concrete types yields any, so integer with number
// or date with string is any. Null is tracked as a Nullable flag once it is
// joined with a concrete type.
package schema

import "reflect"

// Type is the inferred type of one schema node.
type Type string

const (
	TypeUnknown Type = "unknown"
	TypeNull    Type = "null"
	TypeBoolean Type = "boolean"
	TypeInteger Type = "integer"
	TypeNumber  Type = "number"
	TypeString  Type = "string"
	TypeDate    Type = "date"
	TypeEmail   Type = "email"
	TypeURL     Type = "url"
	TypeObject  Type = "object"
	TypeArray   Type = "array"
	TypeAny     Type = "any"
)

// Schema is one node of a schema tree. Nodes returned by Infer and Merge are
// fresh copies and are never modified afterwards.
type Schema struct {
	Type        Type         `json:"type" yaml:"type"`
	Nullable    bool         `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	Properties  []Property   `json:"properties,omitempty" yaml:"properties,omitempty"`
	Items       *Schema      `json:"items,omitempty" yaml:"items,omitempty"`
	Required    []string     `json:"required,omitempty" yaml:"required,omitempty"`
	Constraints *Constraints `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// Property is a named child of an object schema.
type Property struct {
	Name   string  `json:"name" yaml:"name"`
	Schema *Schema `json:"schema" yaml:"schema"`
}

// Constraints are optional leaf checks.
type Constraints struct {
	MinLength *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Minimum   *float64 `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum   *float64 `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	Pattern   string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Format    string   `json:"format,omitempty" yaml:"format,omitempty"`
}

// Property returns the named child schema.
func (s *Schema) Property(name string) (*Schema, bool) {
	if s == nil {
		return nil, false
	}
	for _, p := range s.Properties {
		if p.Name == name {
			return p.Schema, true
		}
	}
	return nil, false
}

// PropertyNames lists child names in order.
func (s *Schema) PropertyNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.Properties))
	for i, p := range s.Properties {
		names[i] = p.Name
	}
	return names
}

// IsRequired reports whether name is in the required list.
func (s *Schema) IsRequired(name string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	out := &Schema{Type: s.Type, Nullable: s.Nullable}
	if len(s.Properties) > 0 {
		out.Properties = make([]Property, len(s.Properties))
		for i, p := range s.Properties {
			out.Properties[i] = Property{Name: p.Name, Schema: p.Schema.Clone()}
		}
	}
	out.Items = s.Items.Clone()
	if len(s.Required) > 0 {
		out.Required = append([]string(nil), s.Required...)
	}
	out.Constraints = s.Constraints.clone()
	return out
}

// Equal reports deep equality.
func (s *Schema) Equal(other *Schema) bool {
	return reflect.DeepEqual(s, other)
}

// Depth returns the nesting depth of the tree, 1 for a leaf.
func (s *Schema) Depth() int {
	if s == nil {
		return 0
	}
	d := 0
	for _, p := range s.Properties {
		if pd := p.Schema.Depth(); pd > d {
			d = pd
		}
	}
	if id := s.Items.Depth(); id > d {
		d = id
	}
	return d + 1
}

func (c *Constraints) clone() *Constraints {
	if c == nil {
		return nil
	}
	out := &Constraints{Pattern: c.Pattern, Format: c.Format}
	if c.MinLength != nil {
		v := *c.MinLength
		out.MinLength = &v
	}
	if c.MaxLength != nil {
		v := *c.MaxLength
		out.MaxLength = &v
	}
	if c.Minimum != nil {
		v := *c.Minimum
		out.Minimum = &v
	}
	if c.Maximum != nil {
		v := *c.Maximum
		out.Maximum = &v
	}
	return out
}

// bottom reports whether t carries no structural information.
func bottom(t Type) bool {
	return t == TypeUnknown || t == TypeNull || t == ""
}

// JoinType returns the least upper bound of a and b. Null and unknown
// yield to the other side; two different concrete types join to any.
func JoinType(a, b Type) Type {
	switch {
	case a == b:
		return a
	case a == TypeAny || b == TypeAny:
		return TypeAny
	case a == TypeUnknown || a == "":
		return b
	case b == TypeUnknown || b == "":
		return a
	case a == TypeNull:
		return b
	case b == TypeNull:
		return a
	}
	return TypeAny
}
