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
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/rulego/streamopt/types"
)

// MaxRecordBytes caps the size of a single top-level record.
const MaxRecordBytes = 64 << 20

type rootKind int

const (
	rootUnknown rootKind = iota
	rootArray
	rootSequence
)

func (k rootKind) String() string {
	switch k {
	case rootArray:
		return "array"
	case rootSequence:
		return "sequence"
	}
	return "unknown"
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// scanner splits a JSON document into its top-level records without
// decoding them. The root may be an array, whose elements are the records,
// or a whitespace separated sequence of values. String and escape state is
// tracked so brackets inside string values never change the depth.
type scanner struct {
	path      string
	r         *bufio.Reader
	offset    int64
	root      rootKind
	index     int64
	done      bool
	maxRecord int
	buf       []byte
}

func newScanner(path string, r io.Reader, maxRecord int) *scanner {
	br := bufio.NewReaderSize(r, 64<<10)
	s := &scanner{path: path, r: br, maxRecord: maxRecord}
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
		s.offset = int64(len(utf8BOM))
	}
	return s
}

// Offset returns the number of bytes consumed.
func (s *scanner) Offset() int64 { return s.offset }

// Root returns the detected root kind.
func (s *scanner) Root() rootKind { return s.root }

// Next returns the raw bytes of the next record and its byte offset. It
// returns io.EOF after the last record. Structural errors are
// non-recoverable *types.ParseError values.
func (s *scanner) Next() ([]byte, int64, error) {
	if s.done {
		return nil, s.offset, io.EOF
	}
	c, err := s.skipSpace()

	if s.root == rootUnknown {
		if err == io.EOF {
			s.done = true
			return nil, s.offset, io.EOF
		}
		if err != nil {
			return nil, s.offset, err
		}
		if c == '[' {
			s.root = rootArray
			c, err = s.skipSpace()
			if err == nil && c == ']' {
				s.done = true
				return nil, s.offset, s.expectEOF()
			}
		} else {
			s.root = rootSequence
		}
	} else if s.root == rootArray && err == nil {
		switch c {
		case ']':
			s.done = true
			return nil, s.offset, s.expectEOF()
		case ',':
			c, err = s.skipSpace()
		default:
			return nil, s.offset, s.fail(fmt.Sprintf("expected ',' or ']' after element %d, found %q", s.index-1, c))
		}
	}

	if err == io.EOF {
		if s.root == rootArray {
			return nil, s.offset, s.fail("unterminated array")
		}
		s.done = true
		return nil, s.offset, io.EOF
	}
	if err != nil {
		return nil, s.offset, err
	}

	start := s.offset - 1
	raw, err := s.readValue(c)
	if err != nil {
		return nil, start, err
	}
	s.index++
	return raw, start, nil
}

func (s *scanner) readByte() (byte, error) {
	b, err := s.r.ReadByte()
	if err == nil {
		s.offset++
	}
	return b, err
}

func (s *scanner) skipSpace() (byte, error) {
	for {
		b, err := s.readByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b, nil
	}
}

func (s *scanner) expectEOF() error {
	if _, err := s.skipSpace(); err == io.EOF {
		return io.EOF
	} else if err != nil {
		return err
	}
	return s.fail("unexpected data after the root array")
}

func (s *scanner) push(b byte) error {
	s.buf = append(s.buf, b)
	if s.maxRecord > 0 && len(s.buf) > s.maxRecord {
		return s.fail(fmt.Sprintf("record %d exceeds %d bytes", s.index, s.maxRecord))
	}
	return nil
}

func (s *scanner) readValue(first byte) ([]byte, error) {
	s.buf = s.buf[:0]
	if err := s.push(first); err != nil {
		return nil, err
	}

	switch first {
	case '{', '[':
		depth := 1
		inString, escaped := false, false
		for depth > 0 {
			b, err := s.readByte()
			if err == io.EOF {
				return nil, s.fail(fmt.Sprintf("unbalanced record %d at end of input", s.index))
			}
			if err != nil {
				return nil, err
			}
			if err := s.push(b); err != nil {
				return nil, err
			}
			if inString {
				switch {
				case escaped:
					escaped = false
				case b == '\\':
					escaped = true
				case b == '"':
					inString = false
				}
				continue
			}
			switch b {
			case '"':
				inString = true
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	case '"':
		escaped := false
		for {
			b, err := s.readByte()
			if err == io.EOF {
				return nil, s.fail(fmt.Sprintf("unterminated string in record %d", s.index))
			}
			if err != nil {
				return nil, err
			}
			if err := s.push(b); err != nil {
				return nil, err
			}
			if escaped {
				escaped = false
			} else if b == '\\' {
				escaped = true
			} else if b == '"' {
				break
			}
		}
	case '}', ']', ',', ':':
		return nil, s.fail(fmt.Sprintf("unexpected %q", first))
	default:
		for {
			b, err := s.readByte()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}
			if isDelimiter(b) {
				_ = s.r.UnreadByte()
				s.offset--
				break
			}
			if err := s.push(b); err != nil {
				return nil, err
			}
		}
	}
	return append([]byte(nil), s.buf...), nil
}

func isDelimiter(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', ',', ']', '}', '[', '{', '"':
		return true
	}
	return false
}

func (s *scanner) fail(msg string) error {
	s.done = true
	return &types.ParseError{Path: s.path, Offset: s.offset, Record: -1, Message: msg}
}
