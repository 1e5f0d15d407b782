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
	"strconv"
	"strings"
)

// Validation holds the problems an error policy of ErrWarn turned into warnings. Every warning matches one
// of the error kinds with errors.Is and, once the record is complete, carries the record offset.
type Validation []error

func (v *Validation) String() string {
	if v.Valid() {
		return ""
	}

	sb := strings.Builder{}
	sb.WriteString("ccwarc: ")
	sb.WriteString(strconv.Itoa(len(*v)))
	sb.WriteString(" validation errors:\n")
	for i, e := range *v {
		sb.WriteString("  ")
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString(": ")
		sb.WriteString(e.Error())
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (v *Validation) addError(err error) {
	*v = append(*v, err)
}

// setOffset stamps the record offset on the collected warnings.
func (v *Validation) setOffset(offset int64) {
	for _, err := range *v {
		withOffset(err, offset)
	}
}

// Valid reports whether no validation errors were collected.
func (v *Validation) Valid() bool {
	return v == nil || len(*v) == 0
}

// Has reports whether a warning matches kind.
func (v *Validation) Has(kind error) bool {
	if v == nil {
		return false
	}
	for _, err := range *v {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// Err returns the warnings as a MultiErr, or nil if there are none.
func (v *Validation) Err() error {
	if v.Valid() {
		return nil
	}
	return MultiErr(*v)
}

// position tracks the line number within a header block.
type position struct {
	lineNumber int
}

func (p *position) incrLineNumber() *position {
	p.lineNumber++
	return p
}
