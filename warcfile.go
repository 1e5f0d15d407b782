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
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

var gzipMagic = []byte{0x1f, 0x8b}

// WarcFileReader reads records from a WARC file on disk. Gzip compressed files, including the
// record-per-member files distributed by Common Crawl, are decompressed transparently.
type WarcFileReader struct {
	file          *os.File
	gz            *gzip.Reader
	initialOffset int64
	scanner       *Scanner
}

// NewWarcFileReader opens filename and positions it at offset.
//
// For uncompressed files offset is a byte position in the file. For compressed files it counts
// uncompressed bytes, which are read and discarded.
func NewWarcFileReader(filename string, offset int64, opts ...WarcRecordOption) (*WarcFileReader, error) {
	file, err := os.Open(filename) // For read access.
	if err != nil {
		return nil, err
	}
	wf := &WarcFileReader{file: file}

	magic := make([]byte, len(gzipMagic))
	n, _ := file.ReadAt(magic, 0)
	if n == len(gzipMagic) && bytes.Equal(magic, gzipMagic) {
		if wf.gz, err = gzip.NewReader(file); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		if _, err := io.CopyN(io.Discard, wf.gz, offset); err != nil {
			_ = wf.Close()
			return nil, fmt.Errorf("%s: could not skip to offset %d: %w", filename, offset, err)
		}
		wf.initialOffset = offset
		wf.scanner = NewScanner(wf.gz, opts...)
		return wf, nil
	}

	if _, err = file.Seek(offset, io.SeekStart); err != nil {
		_ = file.Close()
		return nil, err
	}
	wf.scanner = NewScanner(file, opts...)
	return wf, nil
}

// Next returns the next record and its offset in the file.
func (wf *WarcFileReader) Next() (*Record, int64, error) {
	offset := wf.initialOffset + wf.scanner.Offset()
	record, err := wf.scanner.Next()
	if record != nil {
		offset = wf.initialOffset + record.Offset()
	}
	return record, offset, err
}

// Compressed reports whether the file is gzip compressed.
func (wf *WarcFileReader) Compressed() bool {
	return wf.gz != nil
}

func (wf *WarcFileReader) Close() error {
	if wf.gz != nil {
		_ = wf.gz.Close()
	}
	return wf.file.Close()
}

var warcFileSuffixes = []string{".warc", ".wet", ".wat"}

// IsWarcFileName reports whether name looks like a WARC, WET or WAT file, optionally gzip compressed.
func IsWarcFileName(name string) bool {
	name = strings.TrimSuffix(strings.ToLower(filepath.Base(name)), ".gz")
	for _, suffix := range warcFileSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
