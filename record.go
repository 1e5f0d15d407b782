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
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nlnwa/whatwg-url/url"
)

const (
	sphtcrlf  = " \t\r\n"  // Space, Tab, Carriage return, Newline
	cr        = '\r'       // Carriage return
	lf        = '\n'       // Newline
	sp        = ' '        // Space
	ht        = '\t'       // Tab
	crlf      = "\r\n"     // Carriage return, Newline
	crlfcrlf  = "\r\n\r\n" // Carriage return, Newline, Carriage return, Newline
	warcMagic = "WARC/"
)

type WarcVersion struct {
	id    uint8
	txt   string
	major uint8
	minor uint8
}

func (v *WarcVersion) String() string {
	return "WARC/" + v.txt
}

func (v *WarcVersion) Major() uint8 {
	return v.major
}

func (v *WarcVersion) Minor() uint8 {
	return v.minor
}

var (
	// WARC versions
	V1_0 = &WarcVersion{id: 1, txt: "1.0", major: 1, minor: 0} // WARC 1.0
	V1_1 = &WarcVersion{id: 2, txt: "1.1", major: 1, minor: 1} // WARC 1.1
)

type RecordType uint16

func (rt RecordType) String() string {
	switch rt {
	case Warcinfo:
		return "warcinfo"
	case Response:
		return "response"
	case Resource:
		return "resource"
	case Request:
		return "request"
	case Metadata:
		return "metadata"
	case Revisit:
		return "revisit"
	case Conversion:
		return "conversion"
	case Continuation:
		return "continuation"
	default:
		return "unknown"
	}
}

func stringToRecordType(rt string) RecordType {
	switch strings.ToLower(rt) {
	case "warcinfo":
		return Warcinfo
	case "response":
		return Response
	case "resource":
		return Resource
	case "request":
		return Request
	case "metadata":
		return Metadata
	case "revisit":
		return Revisit
	case "conversion":
		return Conversion
	case "continuation":
		return Continuation
	default:
		return 0
	}
}

const (
	// WARC record types
	Warcinfo     RecordType = 1
	Response     RecordType = 2
	Resource     RecordType = 4
	Request      RecordType = 8
	Metadata     RecordType = 16
	Revisit      RecordType = 32
	Conversion   RecordType = 64
	Continuation RecordType = 128
)

const (
	// Well known content types
	ApplicationWarcFields = "application/warc-fields"
	ApplicationHttp       = "application/http"
)

// Record is one WARC record as read from a stream.
//
// The payload holds exactly Content-Length bytes. A Record is not modified after it is returned by the Scanner.
type Record struct {
	opts        *warcRecordOptions
	version     *WarcVersion
	versionLine string // as read, empty for constructed records
	headers     *WarcFields
	recordType  RecordType
	payload     []byte
	offset      int64
	validation  *Validation
}

// NewRecord creates a Record from already parsed parts. Content-Length must match the payload.
// The record uses default options for extracting an HTTP envelope.
func NewRecord(version *WarcVersion, headers *WarcFields, payload []byte) (*Record, error) {
	length, err := headers.GetInt64(ContentLength)
	if err != nil {
		return nil, newHeaderFieldError(ContentLength, err.Error())
	}
	if length != int64(len(payload)) {
		return nil, &HeaderFieldError{kind: ErrLengthMismatch, fieldName: ContentLength,
			msg: fmt.Sprintf("declared %d bytes, payload has %d", length, len(payload))}
	}
	return &Record{
		opts:       newOptions(),
		version:    version,
		headers:    headers,
		recordType: stringToRecordType(headers.Get(WarcType)),
		payload:    payload,
		validation: &Validation{},
	}, nil
}

func (r *Record) Version() *WarcVersion { return r.version }

// Type returns the record type resolved from WARC-Type, or 0 if it is missing or unknown.
func (r *Record) Type() RecordType { return r.recordType }

// WarcHeader returns the header fields in the order they were read.
func (r *Record) WarcHeader() *WarcFields { return r.headers }

// Payload returns the record content block. The returned slice must not be modified.
func (r *Record) Payload() []byte { return r.payload }

// PayloadReader returns a reader over the record content block.
func (r *Record) PayloadReader() io.Reader { return bytes.NewReader(r.payload) }

// Offset returns the position in the stream where the record started.
func (r *Record) Offset() int64 { return r.offset }

// Validation returns the warnings collected while parsing the record.
func (r *Record) Validation() *Validation { return r.validation }

func (r *Record) ContentLength() int64 { return int64(len(r.payload)) }

func (r *Record) ContentType() string { return r.headers.Get(ContentType) }

// RecordID returns WARC-Record-ID without the enclosing angle brackets.
func (r *Record) RecordID() string {
	return strings.TrimSuffix(strings.TrimPrefix(r.headers.Get(WarcRecordID), "<"), ">")
}

// TargetURI returns WARC-Target-URI as is. WARC/1.0 producers sometimes wrap it in angle brackets.
func (r *Record) TargetURI() string {
	return r.headers.Get(WarcTargetURI)
}

// TargetURL parses WARC-Target-URI with the WHATWG URL parser.
func (r *Record) TargetURL() (*url.Url, error) {
	uri := strings.TrimSuffix(strings.TrimPrefix(r.TargetURI(), "<"), ">")
	if uri == "" {
		return nil, fmt.Errorf("record %s has no %s", r.RecordID(), WarcTargetURI)
	}
	return url.Parse(uri)
}

// Date parses WARC-Date.
func (r *Record) Date() (time.Time, error) {
	return time.Parse(time.RFC3339, r.headers.Get(WarcDate))
}

func (r *Record) String() string {
	return fmt.Sprintf("WARC record: version: %s, type: %s, id: %s", r.version, r.Type(), r.RecordID())
}
