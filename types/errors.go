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

package types

import (
	"errors"
	"fmt"
	"strings"
)

// Severity grades a read failure.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Category groups failures for the dashboard.
type Category string

const (
	CategoryInput    Category = "input"
	CategoryParse    Category = "parse"
	CategorySchema   Category = "schema"
	CategoryIO       Category = "io"
	CategoryResource Category = "resource"
	CategorySecurity Category = "security"
	CategoryInternal Category = "internal"
)

// Classified is implemented by every error of the read taxonomy.
type Classified interface {
	error
	Severity() Severity
	Category() Category
}

// ValidationError reports bad caller input: path, extension or option bounds.
// It is never recoverable.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s: %s (got %v)", e.Field, e.Message, e.Value)
}

func (e *ValidationError) Severity() Severity { return SeverityMedium }
func (e *ValidationError) Category() Category { return CategoryInput }

// NewValidationError creates a ValidationError for field.
func NewValidationError(field string, value interface{}, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: fmt.Sprintf(format, args...)}
}

// ParseError reports malformed file content. Record-level parse errors can
// be skipped when the caller opts into skip-and-count.
type ParseError struct {
	Path string
	// Byte offset or row number where the problem was detected, -1 if unknown
	Offset int64
	// Zero-based index of the offending record, -1 for file-level errors
	Record  int64
	Message string
	// Schema violations use CategorySchema instead of CategoryParse
	SchemaViolation bool
	Cause           error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse error")
	if e.Path != "" {
		b.WriteString(" in ")
		b.WriteString(e.Path)
	}
	if e.Record >= 0 {
		fmt.Fprintf(&b, " at record %d", e.Record)
	} else if e.Offset >= 0 {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Cause }

func (e *ParseError) Severity() Severity {
	if e.Record < 0 {
		return SeverityHigh
	}
	return SeverityMedium
}

func (e *ParseError) Category() Category {
	if e.SchemaViolation {
		return CategorySchema
	}
	return CategoryParse
}

// Recoverable reports whether skip-and-count may skip the record.
func (e *ParseError) Recoverable() bool {
	return e.Record >= 0
}

// OptimizationError wraps any lower-level failure of an optimization pass.
type OptimizationError struct {
	Format string
	Path   string
	// Phase is the step that failed: analyze, infer, read, shutdown
	Phase string
	Cause error
}

func (e *OptimizationError) Error() string {
	return fmt.Sprintf("%s optimizer: %s %s: %v", e.Format, e.Phase, e.Path, e.Cause)
}

func (e *OptimizationError) Unwrap() error { return e.Cause }

func (e *OptimizationError) Severity() Severity {
	var c Classified
	if errors.As(e.Cause, &c) {
		return c.Severity()
	}
	return SeverityHigh
}

func (e *OptimizationError) Category() Category {
	var c Classified
	if errors.As(e.Cause, &c) {
		return c.Category()
	}
	return CategoryInternal
}

// SecurityError rejects a field path segment that names a reserved key.
type SecurityError struct {
	Path    string
	Segment string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("security error: field path %q uses reserved key %q", e.Path, e.Segment)
}

func (e *SecurityError) Severity() Severity { return SeverityCritical }
func (e *SecurityError) Category() Category { return CategorySecurity }

// Wrap returns err unchanged when it already belongs to the taxonomy,
// otherwise an OptimizationError wrapping it.
func Wrap(format, path, phase string, err error) error {
	if err == nil {
		return nil
	}
	var (
		ve *ValidationError
		pe *ParseError
		oe *OptimizationError
		se *SecurityError
	)
	if errors.As(err, &ve) || errors.As(err, &pe) || errors.As(err, &oe) || errors.As(err, &se) {
		return err
	}
	return &OptimizationError{Format: format, Path: path, Phase: phase, Cause: err}
}

// CategoryOf returns the category of err, CategoryInternal when unclassified.
func CategoryOf(err error) Category {
	var c Classified
	if errors.As(err, &c) {
		return c.Category()
	}
	return CategoryInternal
}
