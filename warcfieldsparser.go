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
)

// warcfieldsParser parses 'Name: Value' lines. It is shared by the WARC header and the HTTP header parsing.
type warcfieldsParser struct {
	errSyntax errorPolicy
}

// ParseHeader parses the raw header block of one record: the version line followed by the field lines,
// excluding the blank line terminating the block.
func ParseHeader(block []byte, opts ...WarcRecordOption) (*WarcVersion, *WarcFields, *Validation, error) {
	o := newOptions(opts...)
	p := &warcfieldsParser{errSyntax: o.errSyntax}
	validation := &Validation{}
	pos := &position{}

	line, rest := nextLine(block)
	version, err := p.parseVersion(line, validation, pos.incrLineNumber())
	if err != nil {
		return nil, nil, validation, err
	}
	wf, err := p.Parse(rest, validation, pos)
	if err != nil {
		return version, nil, validation, err
	}
	return version, wf, validation, nil
}

// trimLineEnding removes a trailing LF or CRLF.
func trimLineEnding(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte{lf})
	return bytes.TrimSuffix(line, []byte{cr})
}

// nextLine splits off the first line of b including its line feed.
func nextLine(b []byte) (line, rest []byte) {
	if i := bytes.IndexByte(b, lf); i >= 0 {
		return b[:i+1], b[i+1:]
	}
	return b, nil
}

func (p *warcfieldsParser) checkLineEnding(line []byte, validation *Validation, pos *position) error {
	if len(line) == 0 || line[len(line)-1] != lf {
		return nil
	}
	if len(line) < 2 || line[len(line)-2] != cr {
		return p.errSyntax.handle(validation, newSyntaxError(ErrMalformedHeader, "missing carriage return", pos))
	}
	return nil
}

func (p *warcfieldsParser) parseVersion(line []byte, validation *Validation, pos *position) (*WarcVersion, error) {
	if err := p.checkLineEnding(line, validation, pos); err != nil {
		return nil, err
	}
	l := bytes.Trim(line, sphtcrlf)
	if !bytes.HasPrefix(l, []byte(warcMagic)) {
		return nil, newSyntaxError(ErrMalformedHeader, fmt.Sprintf("missing record version, found '%.20s'", l), pos)
	}
	txt := string(l[len(warcMagic):])
	switch txt {
	case V1_0.txt:
		return V1_0, nil
	case V1_1.txt:
		return V1_1, nil
	}
	err := newSyntaxError(ErrMalformedHeader, fmt.Sprintf("unsupported WARC version: %s", l), pos)
	if p.errSyntax.handle(validation, err) != nil {
		return nil, err
	}
	v := &WarcVersion{txt: txt}
	_, _ = fmt.Sscanf(txt, "%d.%d", &v.major, &v.minor)
	return v, nil
}

func (p *warcfieldsParser) parseLine(line []byte, wf *WarcFields, pos *position) error {
	raw := string(trimLineEnding(line))
	line = bytes.TrimRight(line, sphtcrlf)

	i := bytes.IndexByte(line, ':')
	if i < 0 {
		return newSyntaxError(ErrMalformedHeader, fmt.Sprintf("could not parse header line. Missing ':' in '%s'", line), pos)
	}

	name := string(bytes.Trim(line[:i], sphtcrlf))
	if name == "" {
		return newSyntaxError(ErrMalformedHeader, fmt.Sprintf("could not parse header line. Missing field name in '%s'", line), pos)
	}
	value := string(bytes.Trim(line[i+1:], sphtcrlf))

	wf.addRaw(name, value, raw)
	return nil
}

// Parse parses field lines until the end of block. A blank line ends the fields; anything after it is ignored.
//
// pos is the position of the line preceding block and is advanced for every line read.
func (p *warcfieldsParser) Parse(block []byte, validation *Validation, pos *position) (*WarcFields, error) {
	wf := &WarcFields{}
	var line []byte
	for len(block) > 0 {
		line, block = nextLine(block)
		pos.incrLineNumber()
		if err := p.checkLineEnding(line, validation, pos); err != nil {
			return nil, err
		}

		if len(bytes.TrimRight(line, crlf)) == 0 {
			break
		}

		// Folded continuation of the previous value
		if line[0] == sp || line[0] == ht {
			err := newSyntaxError(ErrMalformedHeader, "continuation line", pos)
			if wf.Len() == 0 || p.errSyntax.handle(validation, err) != nil {
				return nil, err
			}
			last := wf.fields[len(wf.fields)-1]
			last.Value += " " + string(bytes.Trim(line, sphtcrlf))
			last.raw += crlf + string(trimLineEnding(line))
			continue
		}

		if err := p.parseLine(line, wf, pos); err != nil {
			return nil, err
		}
	}
	return wf, nil
}
