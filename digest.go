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
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base32"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
)

type digestEncoding uint8

func (d digestEncoding) encode(digest *digest) string {
	dig := digest.Sum(nil)
	switch d {
	case Base16:
		return hex.EncodeToString(dig)
	case Base32:
		return base32.StdEncoding.EncodeToString(dig)
	case Base64:
		return base64.StdEncoding.EncodeToString(dig)
	default:
		return string(dig)
	}
}

const (
	unknown digestEncoding = 0
	Base16  digestEncoding = 1
	Base32  digestEncoding = 2
	Base64  digestEncoding = 3
)

func detectEncoding(algorithm, digest string, defaultEncoding digestEncoding) digestEncoding {
	var algorithmLength int
	switch algorithm {
	case "md5":
		if len(digest) == 32 {
			// Special handling for md5 where encoded length are the same for base16 and base32.
			// Distinction can be done on base32 padding
			if strings.HasSuffix(digest, "=") {
				return Base32
			} else {
				return Base16
			}
		}
		algorithmLength = md5.Size
	case "sha1":
		algorithmLength = sha1.Size
	case "sha256":
		algorithmLength = sha256.Size
	case "sha512":
		algorithmLength = sha512.Size
	}
	switch len(digest) {
	case algorithmLength * 2:
		return Base16
	case base32.StdEncoding.EncodedLen(algorithmLength):
		return Base32
	case base64.StdEncoding.EncodedLen(algorithmLength):
		return Base64
	}
	return defaultEncoding
}

type digest struct {
	hash.Hash
	name     string
	hash     string
	encoding digestEncoding
}

func (d *digest) format() string {
	return fmt.Sprintf("%s:%s", d.name, d.encoding.encode(d))
}

func (d *digest) validate() error {
	computed := d.encoding.encode(d)
	equal := d.hash == computed
	if d.encoding == Base16 || d.encoding == Base32 {
		equal = strings.EqualFold(d.hash, computed)
	}
	if !equal {
		return fmt.Errorf("wrong digest: expected %s:%s, computed: %s:%s", d.name, d.hash, d.name, computed)
	}
	return nil
}

// newDigest creates a digest from a WARC digest field value like 'sha1:T4NG5T3U5H43DLSS5DVVQHKCBZR6QRJ2'.
// The algorithm is case insensitive and may contain a dash ('SHA-1').
func newDigest(digestString string, defaultEncoding digestEncoding) (*digest, error) {
	algorithm, hash, _ := strings.Cut(digestString, ":")
	algorithm = strings.ReplaceAll(strings.ToLower(algorithm), "-", "")
	if algorithm == "" {
		algorithm = "sha1"
	}
	encoding := detectEncoding(algorithm, hash, defaultEncoding)
	switch algorithm {
	case "md5":
		return &digest{md5.New(), algorithm, hash, encoding}, nil
	case "sha1":
		return &digest{sha1.New(), algorithm, hash, encoding}, nil
	case "sha256":
		return &digest{sha256.New(), algorithm, hash, encoding}, nil
	case "sha512":
		return &digest{sha512.New(), algorithm, hash, encoding}, nil
	default:
		return nil, fmt.Errorf("unsupported digest algorithm '%s'", algorithm)
	}
}

func validateDigestField(field, value string, content []byte) error {
	d, err := newDigest(value, Base32)
	if err != nil {
		return newHeaderFieldError(field, err.Error())
	}
	_, _ = d.Write(content)
	if err := d.validate(); err != nil {
		return newHeaderFieldError(field, err.Error())
	}
	return nil
}

// ValidateDigest validates block and payload digests if present.
//
// WARC-Block-Digest is computed over the whole content block. WARC-Payload-Digest is computed over the HTTP
// body if the record holds an HTTP envelope, otherwise over the whole content block.
func (r *Record) ValidateDigest() error {
	var errs MultiErr
	if v := r.headers.Get(WarcBlockDigest); v != "" {
		if err := validateDigestField(WarcBlockDigest, v, r.payload); err != nil {
			errs = append(errs, err)
		}
	}
	if v := r.headers.Get(WarcPayloadDigest); v != "" {
		content := r.payload
		if envelope, ok, err := r.HttpEnvelope(); err != nil {
			errs = append(errs, err)
		} else if ok {
			content = envelope.Body()
		}
		if err := validateDigestField(WarcPayloadDigest, v, content); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	for _, err := range errs {
		withOffset(err, r.offset)
	}
	return errs
}
