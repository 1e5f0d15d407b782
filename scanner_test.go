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
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// record builds a canonical serialized record. Content-Length is computed from payload.
func record(version, recordType string, payload string, fields ...string) string {
	sb := &strings.Builder{}
	sb.WriteString(version + "\r\n")
	sb.WriteString("WARC-Type: " + recordType + "\r\n")
	sb.WriteString("WARC-Date: 2021-04-10T12:13:14Z\r\n")
	sb.WriteString("WARC-Record-ID: <urn:uuid:e9a0cecc-0221-11e7-adb1-0242ac120008>\r\n")
	for i := 0; i+1 < len(fields); i += 2 {
		sb.WriteString(fields[i] + ": " + fields[i+1] + "\r\n")
	}
	if len(payload) > 0 {
		sb.WriteString("Content-Type: application/octet-stream\r\n")
	}
	sb.WriteString(fmt.Sprintf("Content-Length: %d\r\n", len(payload)))
	sb.WriteString("\r\n")
	sb.WriteString(payload)
	sb.WriteString("\r\n\r\n")
	return sb.String()
}

const warcinfoPayload = "software: Webrecorder Platform v3.7\r\n" +
	"format: WARC File Format 1.0\r\n" +
	"creator: temp-MJFXHZ4S\r\n" +
	"isPartOf: Temporary%20Collection\r\n" +
	"json-metadata: {\"title\": \"Temporary Collection\", \"size\": 2865, \"created_at\": 1488772924, \"type\": \"collection\", \"desc\": \"\"}\r\n"

func scanAll(t *testing.T, s *Scanner) ([]*Record, error) {
	t.Helper()
	var records []*Record
	for {
		r, err := s.Next()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, r)
	}
}

func TestScanner_Next(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		opts      []WarcRecordOption
		wantCount int
		wantErr   error
	}{
		{"empty stream", "", nil, 0, nil},
		{"single record", record("WARC/1.0", "warcinfo", warcinfoPayload), nil, 1, nil},
		{"WARC/1.1", record("WARC/1.1", "warcinfo", warcinfoPayload), nil, 1, nil},
		{"empty payload", record("WARC/1.0", "metadata", ""), nil, 1, nil},
		{"three records",
			record("WARC/1.0", "warcinfo", warcinfoPayload) +
				record("WARC/1.0", "request", "GET / HTTP/1.1\r\n\r\n") +
				record("WARC/1.0", "response", "HTTP/1.1 200 OK\r\n\r\nhello"),
			nil, 3, nil},
		{"payload contains version line",
			record("WARC/1.0", "resource", "WARC/1.0\r\nWARC-Type: resource\r\n\r\n") +
				record("WARC/1.0", "resource", "WARC/1.1\r\n"),
			nil, 2, nil},
		{"missing version", "WARC-Type: warcinfo\r\nContent-Length: 0\r\n\r\n\r\n\r\n", nil, 0, ErrMalformedHeader},
		{"unsupported version", record("WARC/2.0", "warcinfo", ""), nil, 0, ErrMalformedHeader},
		{"unsupported version lenient", record("WARC/2.0", "warcinfo", ""), []WarcRecordOption{WithSyntaxErrorPolicy(ErrWarn)}, 1, nil},
		{"missing Content-Length", "WARC/1.0\r\nWARC-Type: warcinfo\r\n\r\n\r\n\r\n", nil, 0, ErrMalformedHeader},
		{"non numeric Content-Length", "WARC/1.0\r\nWARC-Type: warcinfo\r\nContent-Length: 12a\r\n\r\n12a\r\n\r\n", nil, 0, ErrMalformedHeader},
		{"negative Content-Length", "WARC/1.0\r\nWARC-Type: warcinfo\r\nContent-Length: -1\r\n\r\n\r\n\r\n", nil, 0, ErrMalformedHeader},
		{"missing colon", "WARC/1.0\r\nWARC-Type warcinfo\r\nContent-Length: 0\r\n\r\n\r\n\r\n", nil, 0, ErrMalformedHeader},
		{"eof in header", "WARC/1.0\r\nWARC-Type: warcinfo\r\nContent-Len", nil, 0, ErrTruncatedRecord},
		{"eof before blank line", "WARC/1.0\r\nWARC-Type: warcinfo\r\nContent-Length: 0\r\n", nil, 0, ErrTruncatedRecord},
		{"short payload", "WARC/1.0\r\nWARC-Type: resource\r\nContent-Length: 37\r\n\r\n0123456789", nil, 0, ErrTruncatedRecord},
		{"missing end of record marker", strings.TrimSuffix(record("WARC/1.0", "resource", "abc"), "\r\n\r\n"), nil, 1, ErrTruncatedRecord},
		{"eof inside end of record marker", strings.TrimSuffix(record("WARC/1.0", "resource", "abc"), "\r\n"), nil, 1, ErrTruncatedRecord},
		{"Content-Length too small",
			"WARC/1.0\r\nWARC-Type: resource\r\nContent-Length: 3\r\n\r\nabcdef\r\n\r\n",
			nil, 1, ErrLengthMismatch},
		{"bare line feeds strict", "WARC/1.0\nWARC-Type: warcinfo\nContent-Length: 0\n\n\n\n", nil, 0, ErrMalformedHeader},
		{"bare line feeds lenient", "WARC/1.0\nWARC-Type: warcinfo\nContent-Length: 3\n\nabc\n\n", []WarcRecordOption{WithSyntaxErrorPolicy(ErrWarn)}, 1, nil},
		{"extra padding strict",
			record("WARC/1.0", "resource", "abc") + "\r\n" + record("WARC/1.0", "resource", "abc"),
			nil, 1, ErrMalformedHeader},
		{"trailing line end strict", record("WARC/1.0", "resource", "abc") + "\r\n", nil, 1, nil},
		{"trailing white space strict", record("WARC/1.0", "resource", "abc") + "\r\n \t\n", nil, 1, nil},
		{"trailing garbage strict", record("WARC/1.0", "resource", "abc") + "\r\nx", nil, 1, ErrMalformedHeader},
		{"extra padding lenient",
			record("WARC/1.0", "resource", "abc") + "\r\n\r\n" + record("WARC/1.0", "resource", "abc") + "\r\n",
			[]WarcRecordOption{WithSyntaxErrorPolicy(ErrWarn)}, 2, nil},
		{"garbage between records lenient",
			record("WARC/1.0", "resource", "abc") + "garbage\r\n" + record("WARC/1.0", "resource", "abc"),
			[]WarcRecordOption{WithSyntaxErrorPolicy(ErrWarn)}, 2, nil},
		{"garbage at end lenient",
			record("WARC/1.0", "resource", "abc") + "garbage",
			[]WarcRecordOption{WithSyntaxErrorPolicy(ErrWarn)}, 1, ErrTruncatedRecord},
		{"garbage at end ignored",
			record("WARC/1.0", "resource", "abc") + "garbage",
			[]WarcRecordOption{WithNoValidation()}, 1, nil},
		{"header too large", record("WARC/1.0", "resource", "abc"), []WarcRecordOption{WithMaxHeaderSize(40)}, 0, ErrMalformedHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)

			s := NewScanner(strings.NewReader(tt.input), tt.opts...)
			records, err := scanAll(t, s)
			if tt.wantErr != nil {
				assert.ErrorIs(err, tt.wantErr)
			} else {
				assert.NoError(err)
			}
			assert.Len(records, tt.wantCount)
			for _, r := range records {
				l, err := r.WarcHeader().GetInt64(ContentLength)
				assert.NoError(err)
				assert.Equal(l, int64(len(r.Payload())))
				assert.Equal(l, r.ContentLength())
			}
		})
	}
}

func TestScanner_Payload(t *testing.T) {
	assert := assert.New(t)

	body := "吾輩は猫である。名前はまだ無い。\r\nどこで生れたかとんと見当がつかぬ。"
	payload := "HTTP/1.1 200 OK\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n" + body
	input := record("WARC/1.0", "warcinfo", warcinfoPayload) +
		record("WARC/1.0", "response", payload, WarcTargetURI, "http://example.jp/")

	s := NewScanner(strings.NewReader(input))
	records, err := scanAll(t, s)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(V1_0, records[0].Version())
	assert.Equal(Warcinfo, records[0].Type())
	assert.Equal([]byte(warcinfoPayload), records[0].Payload())

	assert.Equal(Response, records[1].Type())
	assert.Equal([]byte(payload), records[1].Payload())
	assert.Equal("http://example.jp/", records[1].TargetURI())

	env, ok, err := records[1].HttpEnvelope()
	assert.NoError(err)
	assert.True(ok)
	assert.Equal([]byte(body), env.Body())
}

func TestScanner_HeaderOrder(t *testing.T) {
	assert := assert.New(t)

	input := "WARC/1.0\r\n" +
		"warc-type: resource\r\n" +
		"X-Custom: one\r\n" +
		"WARC-Concurrent-To: <urn:uuid:1>\r\n" +
		"x-custom: two\r\n" +
		"WARC-Concurrent-To: <urn:uuid:2>\r\n" +
		"Content-Length: 0\r\n" +
		"\r\n\r\n\r\n"

	s := NewScanner(strings.NewReader(input))
	r, err := s.Next()
	require.NoError(t, err)

	assert.Equal(Resource, r.Type())
	assert.Equal([]string{"one", "two"}, r.WarcHeader().GetAll("X-CUSTOM"))
	assert.Equal([]string{"<urn:uuid:1>", "<urn:uuid:2>"}, r.WarcHeader().GetAll(WarcConcurrentTo))

	var names []string
	for name := range r.WarcHeader().All() {
		names = append(names, name)
	}
	assert.Equal([]string{"warc-type", "X-Custom", "WARC-Concurrent-To", "x-custom", "WARC-Concurrent-To", "Content-Length"}, names)
}

func TestScanner_Offset(t *testing.T) {
	assert := assert.New(t)

	first := record("WARC/1.0", "warcinfo", warcinfoPayload)
	second := record("WARC/1.0", "resource", "abc")
	third := "WARC/1.0\r\nWARC-Type: resource\r\nContent-Length: 37\r\n\r\n0123456789"

	s := NewScanner(strings.NewReader(first + second + third))
	r, err := s.Next()
	require.NoError(t, err)
	assert.Equal(int64(0), r.Offset())
	assert.Equal(int64(len(first)), s.Offset())

	r, err = s.Next()
	require.NoError(t, err)
	assert.Equal(int64(len(first)), r.Offset())

	_, err = s.Next()
	assert.ErrorIs(err, ErrTruncatedRecord)
	var syntaxErr *SyntaxError
	if assert.True(errors.As(err, &syntaxErr)) {
		assert.Equal(int64(len(first+second)), syntaxErr.Offset())
	}
}

func TestScanner_StickyError(t *testing.T) {
	assert := assert.New(t)

	input := record("WARC/1.0", "resource", "abc") +
		"WARC/1.0\r\nWARC-Type: resource\r\nContent-Length: 37\r\n\r\n0123456789" +
		record("WARC/1.0", "resource", "abc")

	s := NewScanner(strings.NewReader(input))
	r, err := s.Next()
	assert.NoError(err)
	assert.NotNil(r)

	_, err = s.Next()
	assert.ErrorIs(err, ErrTruncatedRecord)

	r, err2 := s.Next()
	assert.Nil(r)
	assert.Same(err, err2)
}

func TestScanner_PendingTrailerError(t *testing.T) {
	assert := assert.New(t)

	input := "WARC/1.0\r\nWARC-Type: resource\r\nContent-Length: 3\r\n\r\nabcdef\r\n\r\n" +
		record("WARC/1.0", "resource", "abc")

	s := NewScanner(strings.NewReader(input))
	r, err := s.Next()
	assert.NoError(err)
	if assert.NotNil(r) {
		assert.Equal([]byte("abc"), r.Payload())
	}

	r, err = s.Next()
	assert.Nil(r)
	assert.ErrorIs(err, ErrLengthMismatch)

	_, err2 := s.Next()
	assert.Same(err, err2)
}

func TestScanner_LenientWarnings(t *testing.T) {
	assert := assert.New(t)

	input := "garbage" + record("WARC/1.0", "resource", "abc")
	s := NewScanner(strings.NewReader(input), WithLenientValidation())
	r, err := s.Next()
	require.NoError(t, err)
	assert.False(r.Validation().Valid())
	assert.True(r.Validation().Has(ErrMalformedHeader))
	assert.Equal(int64(len("garbage")), r.Offset())
	for _, w := range *r.Validation() {
		var syntaxErr *SyntaxError
		var fieldErr *HeaderFieldError
		switch {
		case errors.As(w, &syntaxErr):
			assert.Equal(r.Offset(), syntaxErr.Offset())
		case errors.As(w, &fieldErr):
			assert.Equal(r.Offset(), fieldErr.Offset())
		default:
			assert.Fail("unexpected warning type", "%T", w)
		}
	}

	s = NewScanner(strings.NewReader(input), WithNoValidation())
	r, err = s.Next()
	require.NoError(t, err)
	assert.True(r.Validation().Valid())
}

func TestScanner_Records(t *testing.T) {
	assert := assert.New(t)

	input := record("WARC/1.0", "warcinfo", warcinfoPayload) +
		record("WARC/1.0", "resource", "abc") +
		record("WARC/1.0", "resource", "defg")

	s := NewScanner(strings.NewReader(input))
	var types []RecordType
	for r, err := range s.Records() {
		require.NoError(t, err)
		types = append(types, r.Type())
	}
	assert.Equal([]RecordType{Warcinfo, Resource, Resource}, types)

	// Stops after first error
	s = NewScanner(strings.NewReader(input + "WARC/1.0\r\nContent-Len"))
	var count, errCount int
	for _, err := range s.Records() {
		if err != nil {
			errCount++
			assert.ErrorIs(err, ErrTruncatedRecord)
			continue
		}
		count++
	}
	assert.Equal(3, count)
	assert.Equal(1, errCount)
}

func TestScanner_Rewind(t *testing.T) {
	assert := assert.New(t)

	input := record("WARC/1.0", "warcinfo", warcinfoPayload) + record("WARC/1.0", "resource", "abc")
	s := NewScanner(strings.NewReader(input))
	records, err := scanAll(t, s)
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.NoError(t, s.Rewind())
	assert.Equal(int64(0), s.Offset())
	again, err := scanAll(t, s)
	assert.NoError(err)
	assert.Equal(records, again)

	s = NewScanner(io.MultiReader(strings.NewReader(input)))
	assert.Error(s.Rewind())
}
