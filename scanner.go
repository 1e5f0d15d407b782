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
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/nlnwa/ccwarc/internal/countingreader"
	log "github.com/sirupsen/logrus"
)

const scannerBufferSize = 64 * 1024

var errHeaderTooLarge = errors.New("header block too large")

// Scanner reads WARC records one at a time from an uncompressed byte stream.
//
// Records are delimited by their Content-Length field only. The payload is never searched for the next
// 'WARC/' token since payloads may contain it.
//
// Once Next has returned an error, every later call returns the same error. Records returned before the
// error are complete and valid. A Scanner is not safe for concurrent use.
type Scanner struct {
	opts    *warcRecordOptions
	parser  *warcfieldsParser
	src     io.Reader
	start   int64 // position of src when the scanner was created
	counter *countingreader.Reader
	r       *bufio.Reader
	pending error // error to return on the next call to Next
	err     error // sticky error
}

// NewScanner creates a Scanner reading from r.
//
// If r is an io.Seeker the scanner can be restarted with Rewind and offsets are reported relative to the
// start of r. Otherwise offsets count from the position r had when the scanner was created.
func NewScanner(r io.Reader, opts ...WarcRecordOption) *Scanner {
	o := newOptions(opts...)
	s := &Scanner{
		opts:   o,
		parser: &warcfieldsParser{errSyntax: o.errSyntax},
		src:    r,
	}
	if seeker, ok := r.(io.Seeker); ok {
		if pos, err := seeker.Seek(0, io.SeekCurrent); err == nil {
			s.start = pos
		}
	}
	s.counter = countingreader.New(r)
	s.r = bufio.NewReaderSize(s.counter, scannerBufferSize)
	return s
}

// Offset returns the stream position of the next record.
func (s *Scanner) Offset() int64 {
	return s.start + s.counter.N() - int64(s.r.Buffered())
}

// Rewind restarts scanning from where the stream was when the scanner was created.
// It requires the underlying reader to be an io.Seeker.
func (s *Scanner) Rewind() error {
	seeker, ok := s.src.(io.Seeker)
	if !ok {
		return errors.New("ccwarc: rewind requires an io.Seeker")
	}
	if _, err := seeker.Seek(s.start, io.SeekStart); err != nil {
		return err
	}
	s.counter.Reset(s.src)
	s.r.Reset(s.counter)
	s.pending = nil
	s.err = nil
	return nil
}

// Next returns the next record in the stream.
//
// At the end of a stream which ended after a complete record, Next returns io.EOF.
// Errors match ErrMalformedHeader, ErrTruncatedRecord or ErrLengthMismatch with errors.Is.
func (s *Scanner) Next() (*Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.pending != nil {
		s.err, s.pending = s.pending, nil
		return nil, s.err
	}

	offset := s.Offset()
	record, trailerErr, err := s.next()
	if err != nil {
		if err != io.EOF {
			err = withOffset(err, offset)
		}
		s.err = err
		return nil, err
	}
	if trailerErr != nil {
		s.pending = withOffset(trailerErr, record.offset)
	}
	record.validation.setOffset(record.offset)
	return record, nil
}

// Records returns the rest of the stream as a sequence. The sequence ends at io.EOF or after yielding the
// first error.
func (s *Scanner) Records() iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		for {
			record, err := s.Next()
			if err == io.EOF {
				return
			}
			if !yield(record, err) || err != nil {
				return
			}
		}
	}
}

func (s *Scanner) next() (record *Record, trailerErr error, err error) {
	validation := &Validation{}

	if err := s.findRecordStart(validation); err != nil {
		return nil, nil, err
	}
	offset := s.Offset()

	// Parse version line
	header := &bytes.Buffer{}
	pos := &position{}
	line, err := s.readLine(header, pos.incrLineNumber())
	if err != nil {
		return nil, nil, err
	}
	versionLine := string(trimLineEnding(line))
	version, err := s.parser.parseVersion(line, validation, pos)
	if err != nil {
		return nil, nil, err
	}

	// Collect the header block up to the blank line
	fieldsStart := header.Len()
	linePos := *pos
	for {
		lineStart := header.Len()
		line, err := s.readLine(header, linePos.incrLineNumber())
		if err != nil {
			return nil, nil, err
		}
		if len(bytes.TrimRight(line, crlf)) == 0 {
			header.Truncate(lineStart)
			if err := s.parser.checkLineEnding(line, validation, &linePos); err != nil {
				return nil, nil, err
			}
			break
		}
	}

	wf, err := s.parser.Parse(header.Bytes()[fieldsStart:], validation, pos)
	if err != nil {
		return nil, nil, err
	}

	length, err := wf.GetInt64(ContentLength)
	if err != nil {
		return nil, nil, newHeaderFieldError(ContentLength, err.Error())
	}

	rt, err := validateHeader(wf, version, validation, s.opts)
	if err != nil {
		return nil, nil, err
	}

	// Content-Length is authoritative. Grow the buffer as bytes arrive so that a bogus length
	// does not allocate memory up front.
	payload := &bytes.Buffer{}
	payload.Grow(int(min(length, scannerBufferSize)))
	n, err := io.CopyN(payload, s.r, length)
	if err != nil {
		if err == io.EOF {
			return nil, nil, newSyntaxError(ErrTruncatedRecord,
				fmt.Sprintf("content block is %d bytes, but Content-Length is %d", n, length), &position{})
		}
		return nil, nil, err
	}

	record = &Record{
		opts:        s.opts,
		version:     version,
		versionLine: versionLine,
		headers:     wf,
		recordType:  rt,
		payload:     payload.Bytes(),
		offset:      offset,
		validation:  validation,
	}
	trailerErr = s.readTrailer(validation)
	return record, trailerErr, nil
}

// findRecordStart positions the reader at the next 'WARC/'. In strict mode the record must start immediately.
func (s *Scanner) findRecordStart(validation *Validation) error {
	magic, err := s.r.Peek(len(warcMagic))
	if len(magic) == 0 && err == io.EOF {
		return io.EOF
	}
	if err != nil && err != io.EOF {
		return err
	}
	if bytes.Equal(magic, []byte(warcMagic)) {
		return nil
	}
	if s.opts.errSyntax == ErrFail {
		// White space at the end of the stream ends it cleanly. Anything else is reported by the version
		// line parser.
		rest, err := s.r.Peek(s.r.Size())
		if err == io.EOF && len(bytes.Trim(rest, sphtcrlf)) == 0 {
			_, _ = s.r.Discard(len(rest))
			log.Debugf("skipped %d bytes of white space at end of stream", len(rest))
			return io.EOF
		}
		return nil
	}

	var skipped int64
	onlySpace := true
	for !bytes.Equal(magic, []byte(warcMagic)) {
		if len(magic) < len(warcMagic) {
			// Stream ends before another record could start
			skipped += int64(len(magic))
			onlySpace = onlySpace && len(bytes.Trim(magic, sphtcrlf)) == 0
			_, _ = s.r.Discard(len(magic))
			if onlySpace {
				log.Debugf("skipped %d bytes of white space at end of stream", skipped)
				return io.EOF
			}
			err := newSyntaxError(ErrTruncatedRecord, fmt.Sprintf("%d bytes of garbage at end of stream", skipped), &position{})
			if s.opts.errSyntax == ErrIgnore {
				log.Debug(err)
				return io.EOF
			}
			return err
		}
		if bytes.IndexByte([]byte(sphtcrlf), magic[0]) < 0 {
			onlySpace = false
		}
		if _, err := s.r.Discard(1); err != nil {
			return err
		}
		skipped++
		magic, err = s.r.Peek(len(warcMagic))
		if err != nil && err != io.EOF {
			return err
		}
	}
	log.Debugf("skipped %d bytes before start of record at offset %d", skipped, s.Offset())
	if s.opts.errSyntax == ErrWarn {
		validation.addError(newSyntaxError(ErrMalformedHeader,
			fmt.Sprintf("record was found %d bytes after expected offset", skipped), &position{}))
	}
	return nil
}

// readLine appends the next line, including line ending, to buf and returns it.
// The returned slice is only valid until buf is modified.
func (s *Scanner) readLine(buf *bytes.Buffer, pos *position) ([]byte, error) {
	start := buf.Len()
	for {
		chunk, err := s.r.ReadSlice(lf)
		if buf.Len()+len(chunk) > s.opts.maxHeaderSize {
			return nil, newWrappedSyntaxError(ErrMalformedHeader,
				fmt.Sprintf("header block exceeds %d bytes", s.opts.maxHeaderSize), pos, errHeaderTooLarge)
		}
		buf.Write(chunk)
		switch err {
		case nil:
			return buf.Bytes()[start:], nil
		case bufio.ErrBufferFull:
			continue
		case io.EOF:
			return nil, newSyntaxError(ErrTruncatedRecord, "stream ended inside header block", pos)
		default:
			return nil, err
		}
	}
}

// readTrailer consumes the blank lines after the content block.
func (s *Scanner) readTrailer(validation *Validation) error {
	if s.opts.errSyntax == ErrFail {
		b, err := s.r.Peek(len(crlfcrlf))
		if bytes.Equal(b, []byte(crlfcrlf)) {
			_, err = s.r.Discard(len(crlfcrlf))
			return err
		}
		if err == io.EOF && bytes.HasPrefix([]byte(crlfcrlf), b) {
			_, _ = s.r.Discard(len(b))
			return newSyntaxError(ErrTruncatedRecord, "stream ended inside end of record marker", &position{})
		}
		if err != nil && err != io.EOF {
			return err
		}
		return newSyntaxError(ErrLengthMismatch, fmt.Sprintf("content block not followed by end of record marker, found %q", b), &position{})
	}

	var marker []byte
	for {
		b, err := s.r.Peek(1)
		if err != nil || (b[0] != cr && b[0] != lf) {
			break
		}
		marker = append(marker, b[0])
		_, _ = s.r.Discard(1)
	}
	if string(marker) == crlfcrlf {
		return nil
	}

	next, _ := s.r.Peek(len(warcMagic))
	var err error
	switch {
	case len(next) == 0 && len(marker) == 0:
		err = newSyntaxError(ErrTruncatedRecord, "stream ended before end of record marker", &position{})
	case len(next) == 0 || bytes.Equal(next, []byte(warcMagic)):
		err = newSyntaxError(ErrMalformedHeader, fmt.Sprintf("end of record marker should be %q, found %q", crlfcrlf, marker), &position{})
	default:
		err = newSyntaxError(ErrLengthMismatch, fmt.Sprintf("content block not followed by a record boundary, found %q", next), &position{})
	}
	log.Debug(err)
	if s.opts.errSyntax == ErrWarn {
		validation.addError(err)
	}
	return nil
}
