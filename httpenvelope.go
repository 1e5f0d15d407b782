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
	"mime"
	"net/http"
	"strconv"
	"strings"
)

// TextDecoder turns body bytes into text given the charset announced by the message, which might be empty.
type TextDecoder func(body []byte, charset string) (string, error)

// HttpEnvelope is an HTTP response embedded in the payload of a WARC record.
//
// The body is the raw bytes following the HTTP headers. No transfer or content decoding is done.
// The body shares memory with the record payload and must not be modified.
type HttpEnvelope struct {
	proto       string
	statusCode  int
	reason      string
	header      *WarcFields
	headerBytes []byte
	body        []byte
	validation  *Validation
}

// Proto returns the protocol version of the status line, e.g. 'HTTP/1.1'.
func (e *HttpEnvelope) Proto() string { return e.proto }

func (e *HttpEnvelope) StatusCode() int { return e.statusCode }

// StatusReason returns the reason phrase of the status line. It might be empty.
func (e *HttpEnvelope) StatusReason() string { return e.reason }

// StatusLine returns the status line without line ending.
func (e *HttpEnvelope) StatusLine() string {
	if e.reason == "" {
		return fmt.Sprintf("%s %03d", e.proto, e.statusCode)
	}
	return fmt.Sprintf("%s %03d %s", e.proto, e.statusCode, e.reason)
}

// Header returns the HTTP header fields in the order they were read.
func (e *HttpEnvelope) Header() *WarcFields { return e.header }

// HttpHeader returns the HTTP header fields as a net/http Header. Field order between different names is lost.
func (e *HttpEnvelope) HttpHeader() http.Header {
	h := make(http.Header, e.header.Len())
	for name, value := range e.header.All() {
		h.Add(name, value)
	}
	return h
}

// HeaderBytes returns the status line and header block including the separating blank line.
func (e *HttpEnvelope) HeaderBytes() []byte { return e.headerBytes }

func (e *HttpEnvelope) Body() []byte { return e.body }

func (e *HttpEnvelope) BodyReader() io.Reader { return bytes.NewReader(e.body) }

// Validation returns the warnings collected while parsing the envelope.
func (e *HttpEnvelope) Validation() *Validation { return e.validation }

// MediaType returns the media type of the Content-Type header in lower case, e.g. 'text/html'.
func (e *HttpEnvelope) MediaType() string {
	ct := e.header.Get(ContentType)
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	mt, _, _ := strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// Charset returns the charset parameter of the Content-Type header, or the empty string if there is none.
// The body is not inspected.
func (e *HttpEnvelope) Charset() string {
	ct := e.header.Get(ContentType)
	if ct == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(ct); err == nil {
		return params["charset"]
	}

	// Content-Type values in the wild are often not valid media types. Look for the parameter directly.
	i := strings.Index(strings.ToLower(ct), "charset=")
	if i < 0 {
		return ""
	}
	v := ct[i+len("charset="):]
	if j := strings.IndexAny(v, "; \t"); j >= 0 {
		v = v[:j]
	}
	return strings.Trim(v, `"'`)
}

// Text decodes the body with decode. A nil decode interprets the body as UTF-8, replacing invalid bytes with U+FFFD.
func (e *HttpEnvelope) Text(decode TextDecoder) (string, error) {
	if decode == nil {
		return strings.ToValidUTF8(string(e.body), "\uFFFD"), nil
	}
	return decode(e.body, e.Charset())
}

// HttpEnvelope extracts the embedded HTTP response using the options the record was scanned with.
// See ExtractHttpEnvelope.
func (r *Record) HttpEnvelope() (*HttpEnvelope, bool, error) {
	return extractHttpEnvelope(r, r.opts)
}

// ExtractHttpEnvelope parses the HTTP response embedded in a response record.
//
// If the record is not expected to hold an HTTP response, or its payload does not start with a valid status
// line, ok is false and err is nil. This is common: response records for DNS lookups hold no HTTP.
// An error is only returned when the status line is valid but the header block is broken.
func ExtractHttpEnvelope(record *Record, opts ...WarcRecordOption) (envelope *HttpEnvelope, ok bool, err error) {
	return extractHttpEnvelope(record, newOptions(opts...))
}

func extractHttpEnvelope(record *Record, opts *warcRecordOptions) (*HttpEnvelope, bool, error) {
	if opts == nil {
		opts = newOptions()
	}
	if !expectsHttp(record) || len(record.payload) == 0 {
		return nil, false, nil
	}

	payload := record.payload
	validation := &Validation{}
	// Bare LF line endings and folded lines are common in HTTP and never fatal inside an envelope
	p := &warcfieldsParser{errSyntax: min(opts.errBlock, ErrWarn)}
	pos := &position{}

	line, rest := nextLine(payload)
	proto, code, reason, ok := parseStatusLine(line)
	if !ok {
		return nil, false, nil
	}
	if err := p.checkLineEnding(line, validation, pos.incrLineNumber()); err != nil {
		return nil, false, withOffset(err, record.offset)
	}

	// Find the blank line separating headers from body
	headerEnd := -1
	consumed := len(line)
	for b := rest; len(b) > 0; {
		var l []byte
		l, b = nextLine(b)
		consumed += len(l)
		if l[len(l)-1] == lf && len(bytes.TrimRight(l, crlf)) == 0 {
			headerEnd = consumed
			break
		}
	}
	if headerEnd < 0 {
		err := newSyntaxError(ErrMalformedHeader, "missing line separator at end of http headers", pos)
		if err := opts.errBlock.handle(validation, err); err != nil {
			return nil, false, withOffset(err, record.offset)
		}
		headerEnd = len(payload)
	}

	header, err := p.Parse(payload[len(line):headerEnd], validation, pos)
	if err != nil {
		return nil, false, withOffset(err, record.offset)
	}

	envelope := &HttpEnvelope{
		proto:       proto,
		statusCode:  code,
		reason:      reason,
		header:      header,
		headerBytes: payload[:headerEnd],
		body:        payload[headerEnd:],
		validation:  validation,
	}

	// The WARC Content-Length already framed the payload. The HTTP one is informational.
	if opts.errBlock > ErrIgnore && header.Has(ContentLength) {
		if l, err := header.GetInt64(ContentLength); err != nil || l != int64(len(envelope.body)) {
			validation.addError(newHeaderFieldErrorf(ContentLength,
				"http Content-Length '%s' does not match body size %d", header.Get(ContentLength), len(envelope.body)))
		}
	}
	validation.setOffset(record.offset)
	return envelope, true, nil
}

// expectsHttp checks if the record type and content type announces an HTTP response.
func expectsHttp(record *Record) bool {
	if record.recordType == Response {
		return true
	}
	if record.recordType == Request {
		return false
	}
	mt, params, err := mime.ParseMediaType(record.ContentType())
	if err != nil || mt != ApplicationHttp {
		return false
	}
	return params["msgtype"] != "request"
}

// parseStatusLine parses 'HTTP/<version> <3-digit-code> <reason phrase>'.
func parseStatusLine(line []byte) (proto string, code int, reason string, ok bool) {
	if len(line) == 0 || line[len(line)-1] != lf {
		return
	}
	l := string(bytes.TrimRight(line, crlf))
	if !strings.HasPrefix(l, "HTTP/") {
		return
	}
	proto, rest, found := strings.Cut(l, " ")
	if !found || len(proto) == len("HTTP/") || strings.ContainsAny(proto, "\t") {
		return
	}
	codeStr, reason, _ := strings.Cut(rest, " ")
	if len(codeStr) != 3 || strings.Trim(codeStr, "0123456789") != "" {
		return
	}
	code, _ = strconv.Atoi(codeStr)
	return proto, code, strings.TrimSpace(reason), true
}
