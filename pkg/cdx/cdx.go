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

// Package cdx creates CDXJ index lines for WARC records.
package cdx

import (
	"fmt"
	"io"
	"mime"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/nlnwa/ccwarc"
	"github.com/nlnwa/ccwarc/internal/timestamp"
	"github.com/nlnwa/ccwarc/pkg/loader"
	"github.com/nlnwa/whatwg-url/url"
)

// Record is one CDXJ entry.
type Record struct {
	Key        string `json:"-"`
	Timestamp  string `json:"-"`
	URL        string `json:"url"`
	Mime       string `json:"mime,omitempty"`
	Status     string `json:"status,omitempty"`
	Digest     string `json:"digest,omitempty"`
	Length     int64  `json:"length"`
	Offset     int64  `json:"offset"`
	Filename   string `json:"filename"`
	RecordID   string `json:"recordId"`
	RecordType string `json:"recordType"`
	Ref        string `json:"ref"`
}

// NewRecord creates a CDXJ entry. env is the HTTP envelope of the record and may be nil.
func NewRecord(wr *ccwarc.Record, env *ccwarc.HttpEnvelope, fileName string) *Record {
	uri := strings.TrimSuffix(strings.TrimPrefix(wr.TargetURI(), "<"), ">")
	rec := &Record{
		URL:        uri,
		Digest:     wr.WarcHeader().Get(ccwarc.WarcPayloadDigest),
		Length:     wr.ContentLength(),
		Offset:     wr.Offset(),
		Filename:   fileName,
		RecordID:   wr.RecordID(),
		RecordType: wr.Type().String(),
		Ref:        loader.StorageRef(fileName, wr.Offset()),
	}
	if key, err := Surt(uri); err == nil {
		rec.Key = key
	} else {
		rec.Key = uri
	}
	rec.Timestamp, _ = timestamp.To14(wr.WarcHeader().Get(ccwarc.WarcDate))

	if env != nil {
		rec.Status = strconv.Itoa(env.StatusCode())
		rec.Mime = env.MediaType()
	} else if mt, _, err := mime.ParseMediaType(wr.ContentType()); err == nil {
		rec.Mime = mt
	}
	return rec
}

// Time parses the 14 digit timestamp of the entry.
func (r *Record) Time() (time.Time, error) {
	return timestamp.From14ToTime(r.Timestamp)
}

// Write writes the entry as 'key timestamp {json}' followed by a newline.
func (r *Record) Write(w io.Writer) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s %s %s\n", r.Key, r.Timestamp, b)
	return err
}

// Surt returns the sort friendly form of a URL used as CDX key: host labels reversed and comma separated,
// a leading 'www' removed, followed by ')' and the path and query.
//
//	http://www.example.com:8080/a?b=1 -> com,example:8080)/a?b=1
func Surt(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("no host in '%s'", uri)
	}
	labels := strings.Split(strings.TrimSuffix(host, "."), ".")
	if len(labels) > 1 && labels[0] == "www" {
		labels = labels[1:]
	}
	sb := &strings.Builder{}
	for i := len(labels) - 1; i >= 0; i-- {
		sb.WriteString(labels[i])
		if i > 0 {
			sb.WriteByte(',')
		}
	}
	if port := u.Port(); port != "" {
		sb.WriteByte(':')
		sb.WriteString(port)
	}
	sb.WriteByte(')')
	sb.WriteString(u.Pathname())
	sb.WriteString(u.Search())
	return sb.String(), nil
}
