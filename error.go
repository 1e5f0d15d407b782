/*
 * Copyright 2021 National Library of Norway.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *       http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ccwarc

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned while scanning or extracting matches one of these with errors.Is.
var (
	// ErrMalformedHeader is returned for header lines missing required structure and for
	// a missing or non-numeric Content-Length.
	ErrMalformedHeader = errors.New("malformed header")
	// ErrTruncatedRecord is returned when the stream ends before a record is complete.
	ErrTruncatedRecord = errors.New("truncated record")
	// ErrLengthMismatch is returned when the bytes following the declared Content-Length are not a record boundary.
	ErrLengthMismatch = errors.New("content length mismatch")
)

// HeaderFieldError is used for violations of WARC header specification
type HeaderFieldError struct {
	kind      error
	fieldName string
	msg       string
	offset    int64
}

func newHeaderFieldError(fieldName string, msg string) *HeaderFieldError {
	return &HeaderFieldError{kind: ErrMalformedHeader, fieldName: fieldName, msg: msg}
}

func newHeaderFieldErrorf(fieldName string, msg string, param ...interface{}) *HeaderFieldError {
	return &HeaderFieldError{kind: ErrMalformedHeader, fieldName: fieldName, msg: fmt.Sprintf(msg, param...)}
}

func (e *HeaderFieldError) Error() string {
	if e.fieldName != "" {
		return fmt.Sprintf("ccwarc: %s at header %s (record offset %d)", e.msg, e.fieldName, e.offset)
	} else {
		return fmt.Sprintf("ccwarc: %s (record offset %d)", e.msg, e.offset)
	}
}

// FieldName returns the name of the offending field. Might be empty.
func (e *HeaderFieldError) FieldName() string {
	return e.fieldName
}

// Offset returns the stream offset of the record containing the field.
func (e *HeaderFieldError) Offset() int64 {
	return e.offset
}

func (e *HeaderFieldError) Is(target error) bool {
	return target == e.kind
}

// SyntaxError is used for framing errors like wrong line endings, missing separators or short reads
type SyntaxError struct {
	kind    error
	msg     string
	line    int
	offset  int64
	wrapped error
}

func newSyntaxError(kind error, msg string, pos *position) *SyntaxError {
	return &SyntaxError{kind: kind, msg: msg, line: pos.lineNumber}
}

func newWrappedSyntaxError(kind error, msg string, pos *position, wrapped error) *SyntaxError {
	return &SyntaxError{kind: kind, msg: msg, line: pos.lineNumber, wrapped: wrapped}
}

func (e *SyntaxError) Error() string {
	var s string
	if e.line > 0 {
		s = fmt.Sprintf("ccwarc: %s: %s at line %d (record offset %d)", e.kind, e.msg, e.line, e.offset)
	} else {
		s = fmt.Sprintf("ccwarc: %s: %s (record offset %d)", e.kind, e.msg, e.offset)
	}
	if e.wrapped != nil {
		s += ": " + e.wrapped.Error()
	}
	return s
}

// Line returns the line number within the record header, or 0 if the error is not tied to a line.
func (e *SyntaxError) Line() int {
	return e.line
}

// Offset returns the stream offset of the record where the error occurred.
func (e *SyntaxError) Offset() int64 {
	return e.offset
}

func (e *SyntaxError) Is(target error) bool {
	return target == e.kind
}

func (e *SyntaxError) Unwrap() error {
	return e.wrapped
}

// withOffset sets the record offset on errors created by this package.
func withOffset(err error, offset int64) error {
	var se *SyntaxError
	if errors.As(err, &se) {
		se.offset = offset
		return err
	}
	var he *HeaderFieldError
	if errors.As(err, &he) {
		he.offset = offset
	}
	return err
}

// MultiErr collects several errors into one.
type MultiErr []error

func (e MultiErr) Error() string {
	switch len(e) {

	case 0:
		return ""

	case 1:
		return e[0].Error()
	}

	const (
		start = "["
		sep   = ", "
		end   = "]"
	)

	n := len(start) + len(end) + (len(sep) * (len(e) - 1))
	for i := 0; i < len(e); i++ {
		n += len(e[i].Error())
	}

	var b strings.Builder
	b.Grow(n)
	b.WriteString(start)
	b.WriteString(e[0].Error())
	for _, s := range e[1:] {
		b.WriteString(sep)
		b.WriteString(s.Error())
	}
	b.WriteString(end)
	return b.String()
}

// Unwrap makes errors.Is and errors.As look at every collected error.
func (e MultiErr) Unwrap() []error {
	return e
}
