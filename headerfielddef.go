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
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/nlnwa/whatwg-url/url"
)

const (
	// WARC header field name constants
	ContentLength             = "Content-Length"
	ContentType               = "Content-Type"
	WarcBlockDigest           = "WARC-Block-Digest"
	WarcConcurrentTo          = "WARC-Concurrent-To"
	WarcDate                  = "WARC-Date"
	WarcFilename              = "WARC-Filename"
	WarcIPAddress             = "WARC-IP-Address"
	WarcIdentifiedPayloadType = "WARC-Identified-Payload-Type"
	WarcPayloadDigest         = "WARC-Payload-Digest"
	WarcProfile               = "WARC-Profile"
	WarcRecordID              = "WARC-Record-ID"
	WarcRefersTo              = "WARC-Refers-To"
	WarcRefersToDate          = "WARC-Refers-To-Date"
	WarcRefersToTargetURI     = "WARC-Refers-To-Target-URI"
	WarcSegmentNumber         = "WARC-Segment-Number"
	WarcSegmentOriginID       = "WARC-Segment-Origin-ID"
	WarcSegmentTotalLength    = "WARC-Segment-Total-Length"
	WarcTargetURI             = "WARC-Target-URI"
	WarcTruncated             = "WARC-Truncated"
	WarcType                  = "WARC-Type"
	WarcWarcinfoID            = "WARC-Warcinfo-ID"
)

// validateHeader validates a WarcFields object as a WARC-record header
func validateHeader(wf *WarcFields, version *WarcVersion, validation *Validation, opts *warcRecordOptions) (RecordType, error) {
	rt, err := resolveRecordType(wf, validation, opts)
	if err != nil {
		return rt, err
	}

	if opts.errSpec == ErrIgnore {
		return rt, nil
	}

	for name, value := range wf.All() {
		def := lookupDef(name)
		if err := def.validationFunc(value, version, rt, def); err != nil {
			if err := opts.errSpec.handle(validation, newHeaderFieldError(def.nameOr(name), err.Error())); err != nil {
				return rt, err
			}
		}
	}
	for _, def := range fieldDefs {
		if def.name != "" && !def.repeatable && len(wf.GetAll(def.name)) > 1 {
			if err := opts.errSpec.handle(validation, newHeaderFieldError(def.name, "field occurs more than once")); err != nil {
				return rt, err
			}
		}
	}

	// Check for required fields
	for _, f := range requiredFields {
		if !wf.Has(f) {
			if err := opts.errSpec.handle(validation, newHeaderFieldErrorf("", "missing required field: %s", f)); err != nil {
				return rt, err
			}
		}
	}
	contentLength, _ := wf.GetInt64(ContentLength)
	if rt != Continuation && contentLength > 0 && !wf.Has(ContentType) {
		if err := opts.errSpec.handle(validation, newHeaderFieldErrorf("", "missing required field: %s", ContentType)); err != nil {
			return rt, err
		}
	}
	return rt, nil
}

func resolveRecordType(wf *WarcFields, validation *Validation, opts *warcRecordOptions) (RecordType, error) {
	typeField := wf.Get(WarcType)
	if typeField == "" {
		if err := opts.errSpec.handle(validation, newHeaderFieldError(WarcType, "missing required field")); err != nil {
			return 0, err
		}
		return 0, nil
	}

	rt := stringToRecordType(typeField)
	if rt == 0 {
		err := newHeaderFieldErrorf(WarcType, "unrecognized value '%s'", typeField)
		if err := opts.errUnknownRecordType.handle(validation, err); err != nil {
			return rt, err
		}
	}
	return rt, nil
}

var requiredFields = []string{WarcRecordID, ContentLength, WarcDate, WarcType}

const allTypes = Warcinfo | Response | Resource | Request | Metadata | Revisit | Conversion | Continuation

type fieldDef struct {
	name           string
	validationFunc func(value string, version *WarcVersion, recordType RecordType, def fieldDef) error
	repeatable     bool
	supportedRec   RecordType
	supportedSpec  uint8
}

func (def fieldDef) nameOr(name string) string {
	if def.name == "" {
		return name
	}
	return def.name
}

var fieldDefs = []fieldDef{
	{"", pUnknown, true, allTypes, V1_0.id | V1_1.id},
	{ContentLength, pLong, false, allTypes, V1_0.id | V1_1.id},
	{ContentType, pString, false, allTypes, V1_0.id | V1_1.id},
	{WarcBlockDigest, pDigest, false, allTypes, V1_0.id | V1_1.id},
	{WarcConcurrentTo, pWarcId, true, Response | Resource | Request | Metadata | Revisit, V1_0.id | V1_1.id},
	{WarcDate, pTime, false, allTypes, V1_0.id | V1_1.id},
	{WarcFilename, pString, false, Warcinfo, V1_0.id | V1_1.id},
	{WarcIPAddress, pIp, false, Response | Resource | Request | Metadata | Revisit, V1_0.id | V1_1.id},
	{WarcIdentifiedPayloadType, pString, false, allTypes, V1_0.id | V1_1.id},
	{WarcPayloadDigest, pDigest, false, allTypes, V1_0.id | V1_1.id},
	{WarcProfile, pURI, false, Revisit, V1_0.id | V1_1.id},
	{WarcRecordID, pWarcId, false, allTypes, V1_0.id | V1_1.id},
	{WarcRefersTo, pWarcId, false, Metadata | Revisit | Conversion, V1_0.id | V1_1.id},
	{WarcRefersToDate, pTime, false, Revisit, V1_1.id},
	{WarcRefersToTargetURI, pURI, false, Revisit, V1_1.id},
	{WarcSegmentNumber, pInt, false, allTypes, V1_0.id | V1_1.id},
	{WarcSegmentOriginID, pWarcId, false, Continuation, V1_0.id | V1_1.id},
	{WarcSegmentTotalLength, pLong, false, Continuation, V1_0.id | V1_1.id},
	{WarcTargetURI, pURI, false, allTypes, V1_0.id | V1_1.id},
	{WarcTruncated, pString, false, allTypes, V1_0.id | V1_1.id},
	{WarcType, pString, false, allTypes, V1_0.id | V1_1.id},
	{WarcWarcinfoID, pWarcId, false, Response | Resource | Request | Metadata | Revisit | Conversion | Continuation, V1_0.id | V1_1.id},
}

// Map lower case header name to field definition
var lcHdrNameToDef = make(map[string]fieldDef)

func init() {
	for _, fd := range fieldDefs {
		lcHdrNameToDef[strings.ToLower(fd.name)] = fd
	}
}

func lookupDef(name string) fieldDef {
	if f, ok := lcHdrNameToDef[strings.ToLower(name)]; ok {
		return f
	}
	return lcHdrNameToDef[""]
}

var (
	pUnknown = func(value string, version *WarcVersion, recordType RecordType, def fieldDef) error {
		return nil
	}
	pString = func(value string, version *WarcVersion, recordType RecordType, def fieldDef) error {
		_, err := checkLegal(version, recordType, def)
		return err
	}
	pDigest = pString
	pURI    = func(value string, version *WarcVersion, recordType RecordType, def fieldDef) error {
		if shouldValidate, err := checkLegal(version, recordType, def); !shouldValidate {
			return err
		}
		// WARC/1.0 allowed the URI to be enclosed in angle brackets
		_, err := url.Parse(strings.TrimSuffix(strings.TrimPrefix(value, "<"), ">"))
		return err
	}
	pIp = func(value string, version *WarcVersion, recordType RecordType, def fieldDef) error {
		if shouldValidate, err := checkLegal(version, recordType, def); !shouldValidate {
			return err
		}
		if ip := net.ParseIP(value); ip == nil {
			return fmt.Errorf("illegal ip address: %s", value)
		}
		return nil
	}
	pTime = func(value string, version *WarcVersion, recordType RecordType, def fieldDef) error {
		if shouldValidate, err := checkLegal(version, recordType, def); !shouldValidate {
			return err
		}
		_, err := time.Parse(time.RFC3339, value)
		return err
	}
	pWarcId = func(value string, version *WarcVersion, recordType RecordType, def fieldDef) error {
		if shouldValidate, err := checkLegal(version, recordType, def); !shouldValidate {
			return err
		}
		v := strings.TrimSuffix(strings.TrimPrefix(value, "<"), ">")
		if len(value) != len(v)+2 {
			return errors.New("WARC id should be encapsulated by <>")
		}
		_, err := url.Parse(v)
		return err
	}
	pInt = func(value string, version *WarcVersion, recordType RecordType, def fieldDef) error {
		if shouldValidate, err := checkLegal(version, recordType, def); !shouldValidate {
			return err
		}
		_, err := strconv.Atoi(value)
		return err
	}
	pLong = func(value string, version *WarcVersion, recordType RecordType, def fieldDef) error {
		if shouldValidate, err := checkLegal(version, recordType, def); !shouldValidate {
			return err
		}
		_, err := strconv.ParseInt(value, 10, 64)
		return err
	}
)

func checkLegal(version *WarcVersion, recordType RecordType, def fieldDef) (shouldValidate bool, err error) {
	// All fields are allowed for unknown record types
	if recordType == 0 {
		return
	}

	// Fields not defined in this WARC version are not validated
	if version.id&def.supportedSpec == 0 {
		return
	}

	if recordType&def.supportedRec == 0 {
		err = fmt.Errorf("illegal field in record type '%v'", recordType.String())
		return
	}
	shouldValidate = true
	return
}
