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
	"io"
)

// Marshal writes record in its serialized form and returns the number of bytes written.
//
// The version line and the fields of a record read by a Scanner are written as they were read, so valid input
// is reproduced byte for byte. Line endings, the blank line after the header and the end of record marker are
// always written as CRLF.
func Marshal(w io.Writer, record *Record) (int64, error) {
	// Write WARC record version
	versionLine := record.versionLine
	if versionLine == "" {
		versionLine = record.Version().String()
	}
	n, err := io.WriteString(w, versionLine+crlf)
	bytesWritten := int64(n)
	if err != nil {
		return bytesWritten, err
	}

	// Write WARC header
	bw, err := record.WarcHeader().Write(w)
	bytesWritten += bw
	if err != nil {
		return bytesWritten, err
	}

	// Write separator
	n, err = w.Write([]byte(crlf))
	bytesWritten += int64(n)
	if err != nil {
		return bytesWritten, err
	}

	// Write WARC content
	n, err = w.Write(record.Payload())
	bytesWritten += int64(n)
	if err != nil {
		return bytesWritten, err
	}

	// Write end of record separator
	n, err = w.Write([]byte(crlfcrlf))
	bytesWritten += int64(n)
	return bytesWritten, err
}
