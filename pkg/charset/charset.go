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

// Package charset decodes HTTP bodies to UTF-8 text using the charset labels of the WHATWG Encoding Standard.
package charset

import (
	"strings"

	"github.com/nlnwa/ccwarc"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// Decoder is Decode as a ccwarc.TextDecoder.
var Decoder ccwarc.TextDecoder = Decode

// Lookup returns the encoding for a charset label like 'Shift_JIS' or 'latin1'. The second return value is the
// canonical name of the encoding.
func Lookup(label string) (encoding.Encoding, string, bool) {
	enc, err := htmlindex.Get(strings.TrimSpace(label))
	if err != nil {
		return nil, "", false
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		return nil, "", false
	}
	return enc, name, true
}

// Decode converts body from the named charset to UTF-8.
//
// An empty or unknown charset is decoded as UTF-8. Bytes that are invalid in the charset are replaced with U+FFFD.
func Decode(body []byte, charset string) (string, error) {
	if charset == "" {
		return lossyUTF8(body), nil
	}
	enc, name, ok := Lookup(charset)
	if !ok {
		log.Debugf("unknown charset '%s', decoding as utf-8", charset)
		return lossyUTF8(body), nil
	}
	if name == "utf-8" {
		return lossyUTF8(body), nil
	}
	b, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func lossyUTF8(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
