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

/*
Package ccwarc reads WARC-files as produced by Common Crawl.

# WARC

A WARC file is a concatenation of records. Each record has a version line, a block of header fields,
a blank line, a content block of exactly Content-Length bytes and two blank lines.

To learn more about the WARC standard, read the specification at https://iipc.github.io/warc-specifications/specifications/warc-format/warc-1.1/

# Scan WARC records

The [Scanner] reads records from an uncompressed stream. It is initialized with [NewScanner]. Compressed files must be
decompressed by the caller, e.g. with a multistream gzip reader.

	s := ccwarc.NewScanner(r)
	for record, err := range s.Records() {
		if err != nil {
			return err
		}
		fmt.Println(record.TargetURI())
	}

[ParseHeader] parses a single header block.

# HTTP envelopes

Response records usually hold an HTTP response. [ExtractHttpEnvelope] parses the status line, the HTTP header fields
and returns the body bytes as is. Decoding the body to text is left to a [TextDecoder] supplied by the caller, the
charset announced in Content-Type is available from [HttpEnvelope.Charset].

# Validation

What is validated and how validation errors are handled can be controlled by setting the appropriate options when
creating the [Scanner]. By default framing is strict and field values are not validated.
*/
package ccwarc
