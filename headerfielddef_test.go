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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateHeader(t *testing.T) {
	valid := []string{
		WarcType, "response",
		WarcDate, "2021-04-10T12:13:14Z",
		WarcRecordID, "<urn:uuid:e9a0cecc-0221-11e7-adb1-0242ac120008>",
		WarcTargetURI, "http://example.com/",
		WarcIPAddress, "93.184.216.34",
		ContentType, "application/http; msgtype=response",
		ContentLength, "10",
	}
	replace := func(name, value string) []string {
		r := append([]string(nil), valid...)
		for i := 0; i < len(r); i += 2 {
			if r[i] == name {
				if value == "" {
					return append(r[:i], r[i+2:]...)
				}
				r[i+1] = value
			}
		}
		return r
	}

	tests := []struct {
		name         string
		fields       []string
		opts         []WarcRecordOption
		wantType     RecordType
		wantWarnings int
		wantErr      bool
	}{
		{"valid", valid, []WarcRecordOption{WithStrictValidation()}, Response, 0, false},
		{"not validated by default", replace(WarcIPAddress, "not an ip"), nil, Response, 0, false},
		{"bad ip", replace(WarcIPAddress, "not an ip"), []WarcRecordOption{WithSpecViolationPolicy(ErrWarn)}, Response, 1, false},
		{"bad ip fail", replace(WarcIPAddress, "not an ip"), []WarcRecordOption{WithSpecViolationPolicy(ErrFail)}, Response, 0, true},
		{"bad date", replace(WarcDate, "2021-04-10"), []WarcRecordOption{WithSpecViolationPolicy(ErrWarn)}, Response, 1, false},
		{"record id without brackets", replace(WarcRecordID, "urn:uuid:e9a0cecc"), []WarcRecordOption{WithSpecViolationPolicy(ErrWarn)}, Response, 1, false},
		{"missing date", replace(WarcDate, ""), []WarcRecordOption{WithSpecViolationPolicy(ErrWarn)}, Response, 1, false},
		{"missing content type", replace(ContentType, ""), []WarcRecordOption{WithSpecViolationPolicy(ErrWarn)}, Response, 1, false},
		{"field not allowed for type", append(replace(WarcType, "warcinfo"), WarcRefersTo, "<urn:uuid:1>"), []WarcRecordOption{WithSpecViolationPolicy(ErrWarn)}, Warcinfo, 2, false},
		{"repeated field", append(valid, WarcDate, "2021-04-10T12:13:14Z"), []WarcRecordOption{WithSpecViolationPolicy(ErrWarn)}, Response, 1, false},
		{"repeatable field", append(valid, WarcConcurrentTo, "<urn:uuid:1>", WarcConcurrentTo, "<urn:uuid:2>"), []WarcRecordOption{WithSpecViolationPolicy(ErrWarn)}, Response, 0, false},
		{"type case insensitive", replace(WarcType, "RESPONSE"), []WarcRecordOption{WithStrictValidation()}, Response, 0, false},
		{"unknown type", replace(WarcType, "screenshot"), nil, 0, 0, false},
		{"unknown type warn", replace(WarcType, "screenshot"), []WarcRecordOption{WithUnknownRecordTypePolicy(ErrWarn)}, 0, 1, false},
		{"unknown type fail", replace(WarcType, "screenshot"), []WarcRecordOption{WithUnknownRecordTypePolicy(ErrFail)}, 0, 0, true},
		{"missing type", replace(WarcType, ""), []WarcRecordOption{WithSpecViolationPolicy(ErrFail)}, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)

			validation := &Validation{}
			rt, err := validateHeader(NewWarcFields(tt.fields...), V1_1, validation, newOptions(tt.opts...))
			if tt.wantErr {
				assert.ErrorIs(err, ErrMalformedHeader)
				return
			}
			assert.NoError(err)
			assert.Equal(tt.wantType, rt)
			assert.Len(*validation, tt.wantWarnings, validation.String())
		})
	}
}

func TestScanner_SpecViolation(t *testing.T) {
	input := "WARC/1.1\r\nWARC-Type: resource\r\nContent-Length: 3\r\n\r\nabc\r\n\r\n"

	s := NewScanner(strings.NewReader(input), WithSpecViolationPolicy(ErrFail))
	_, err := s.Next()
	var fieldErr *HeaderFieldError
	if assert.ErrorAs(t, err, &fieldErr) {
		assert.Equal(t, int64(0), fieldErr.Offset())
	}

	s = NewScanner(strings.NewReader(input), WithSpecViolationPolicy(ErrWarn))
	r, err := s.Next()
	if assert.NoError(t, err) {
		// WARC-Record-ID, WARC-Date and Content-Type are missing
		assert.Len(t, *r.Validation(), 3)
	}
}
