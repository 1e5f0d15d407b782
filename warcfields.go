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
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"
)

type nameValue struct {
	Name  string
	Value string
	raw   string // line as read without line ending, empty for constructed fields
}

func (n *nameValue) String() string {
	return n.Name + ": " + n.Value
}

// WarcFields is an ordered list of named fields, used for both WARC headers and HTTP headers.
//
// Fields keep the order and spelling they were parsed with, duplicates included. Lookup is case insensitive.
// WarcFields can not be modified after construction.
type WarcFields struct {
	fields []*nameValue
	index  map[string][]int // lower case name -> positions in fields
}

// NewWarcFields creates WarcFields from alternating names and values.
func NewWarcFields(nameValues ...string) *WarcFields {
	wf := &WarcFields{}
	for i := 0; i+1 < len(nameValues); i += 2 {
		wf.add(nameValues[i], nameValues[i+1])
	}
	return wf
}

func canonicalName(name string) string {
	return strings.ToLower(name)
}

// Get gets the first value associated with the given key. It is case insensitive.
// If the key doesn't exist or there are no values associated with the key, Get returns "".
// To access multiple values of a key, use GetAll.
func (wf *WarcFields) Get(name string) string {
	if pos, ok := wf.index[canonicalName(name)]; ok {
		return wf.fields[pos[0]].Value
	}
	return ""
}

// GetAll returns every value associated with the given key in the order they were added.
func (wf *WarcFields) GetAll(name string) []string {
	pos := wf.index[canonicalName(name)]
	if len(pos) == 0 {
		return nil
	}
	result := make([]string, len(pos))
	for i, p := range pos {
		result[i] = wf.fields[p].Value
	}
	return result
}

// GetInt64 parses the first value of the given key as a non-negative decimal number.
func (wf *WarcFields) GetInt64(name string) (int64, error) {
	if !wf.Has(name) {
		return 0, fmt.Errorf("missing field %s", name)
	}
	v := wf.Get(name)
	if v == "" || strings.TrimLeft(v, "0123456789") != "" {
		return 0, fmt.Errorf("not a decimal number: '%s'", v)
	}
	return strconv.ParseInt(v, 10, 64)
}

func (wf *WarcFields) Has(name string) bool {
	_, ok := wf.index[canonicalName(name)]
	return ok
}

// add appends a field. Existing fields with the same name are kept.
func (wf *WarcFields) add(name string, value string) {
	wf.addRaw(name, value, "")
}

// addRaw appends a field that was parsed from raw.
func (wf *WarcFields) addRaw(name, value, raw string) {
	if wf.index == nil {
		wf.index = make(map[string][]int)
	}
	key := canonicalName(name)
	wf.index[key] = append(wf.index[key], len(wf.fields))
	wf.fields = append(wf.fields, &nameValue{Name: name, Value: value, raw: raw})
}

// Len returns the number of fields, duplicates included.
func (wf *WarcFields) Len() int {
	return len(wf.fields)
}

// All iterates over the fields in their original order and spelling.
func (wf *WarcFields) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, nv := range wf.fields {
			if !yield(nv.Name, nv.Value) {
				return
			}
		}
	}
}

// Write writes the fields as lines terminated by CRLF. Parsed fields are written as they were read,
// white space and folded lines included. Other fields are written as 'Name: Value'.
func (wf *WarcFields) Write(w io.Writer) (bytesWritten int64, err error) {
	var n int
	for _, field := range wf.fields {
		if field.raw != "" {
			n, err = io.WriteString(w, field.raw+crlf)
		} else {
			n, err = fmt.Fprintf(w, "%s: %s\r\n", field.Name, field.Value)
		}
		bytesWritten += int64(n)
		if err != nil {
			return
		}
	}
	return
}

func (wf *WarcFields) String() string {
	sb := &strings.Builder{}
	if _, err := wf.Write(sb); err != nil {
		panic(err)
	}
	return sb.String()
}

