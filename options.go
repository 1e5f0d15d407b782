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

// The errorPolicy constants describe how to handle WARC record errors.
type errorPolicy int8

const (
	ErrIgnore errorPolicy = 0 // Ignore the given error.
	ErrWarn   errorPolicy = 1 // Ignore given error, but submit a warning.
	ErrFail   errorPolicy = 2 // Fail on given error.
)

// handle applies the policy to err. It returns err if the policy is ErrFail, otherwise nil.
func (p errorPolicy) handle(validation *Validation, err error) error {
	switch p {
	case ErrWarn:
		validation.addError(err)
	case ErrFail:
		return err
	}
	return nil
}

type warcRecordOptions struct {
	errSyntax            errorPolicy
	errSpec              errorPolicy
	errUnknownRecordType errorPolicy
	errBlock             errorPolicy
	maxHeaderSize        int
}

// WarcRecordOption configures validation and parsing of WARC records.
type WarcRecordOption interface {
	apply(*warcRecordOptions)
}

// funcWarcRecordOption wraps a function that modifies warcRecordOptions into an
// implementation of the WarcRecordOption interface.
type funcWarcRecordOption struct {
	f func(*warcRecordOptions)
}

func (fo *funcWarcRecordOption) apply(po *warcRecordOptions) {
	fo.f(po)
}

func newFuncWarcRecordOption(f func(*warcRecordOptions)) *funcWarcRecordOption {
	return &funcWarcRecordOption{
		f: f,
	}
}

func defaultWarcRecordOptions() warcRecordOptions {
	return warcRecordOptions{
		errSyntax:            ErrFail,
		errSpec:              ErrIgnore,
		errUnknownRecordType: ErrIgnore,
		errBlock:             ErrFail,
		maxHeaderSize:        64 * 1024,
	}
}

func newOptions(opts ...WarcRecordOption) *warcRecordOptions {
	o := defaultWarcRecordOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}
	return &o
}

// WithSyntaxErrorPolicy sets the policy for handling framing errors: line endings, the padding
// between records, garbage in front of a record and unsupported version lines.
//
// With ErrWarn or ErrIgnore the scanner accepts bare '\n' line endings, any number of blank lines
// between records and resynchronizes on the next line starting with 'WARC/'.
//
// defaults to ErrFail
func WithSyntaxErrorPolicy(policy errorPolicy) WarcRecordOption {
	return newFuncWarcRecordOption(func(o *warcRecordOptions) {
		o.errSyntax = policy
	})
}

// WithSpecViolationPolicy sets the policy for handling violations of the WARC specification in header fields.
// defaults to ErrIgnore
func WithSpecViolationPolicy(policy errorPolicy) WarcRecordOption {
	return newFuncWarcRecordOption(func(o *warcRecordOptions) {
		o.errSpec = policy
	})
}

// WithUnknownRecordTypePolicy sets the policy for handling unknown record types.
// defaults to ErrIgnore
func WithUnknownRecordTypePolicy(policy errorPolicy) WarcRecordOption {
	return newFuncWarcRecordOption(func(o *warcRecordOptions) {
		o.errUnknownRecordType = policy
	})
}

// WithBlockErrorPolicy sets the policy for handling errors in an embedded HTTP message: a missing blank line
// after the header and malformed header lines.
//
// Bare LF line endings and folded header lines are accepted in the HTTP message under every policy. They are
// recorded as warnings unless the policy is ErrIgnore.
//
// defaults to ErrFail
func WithBlockErrorPolicy(policy errorPolicy) WarcRecordOption {
	return newFuncWarcRecordOption(func(o *warcRecordOptions) {
		o.errBlock = policy
	})
}

// WithMaxHeaderSize sets the maximum number of bytes accepted for a header block.
// defaults to 64 KiB
func WithMaxHeaderSize(size int) WarcRecordOption {
	return newFuncWarcRecordOption(func(o *warcRecordOptions) {
		o.maxHeaderSize = size
	})
}

// WithStrictValidation sets the error policy to ErrFail for all kinds of errors.
func WithStrictValidation() WarcRecordOption {
	return newFuncWarcRecordOption(func(o *warcRecordOptions) {
		o.errSyntax = ErrFail
		o.errSpec = ErrFail
		o.errUnknownRecordType = ErrFail
		o.errBlock = ErrFail
	})
}

// WithLenientValidation tolerates what real world producers get wrong, but records warnings.
func WithLenientValidation() WarcRecordOption {
	return newFuncWarcRecordOption(func(o *warcRecordOptions) {
		o.errSyntax = ErrWarn
		o.errSpec = ErrWarn
		o.errUnknownRecordType = ErrWarn
		o.errBlock = ErrWarn
	})
}

// WithNoValidation sets the error policy to ErrIgnore for all kinds of errors.
//
// Errors that make it impossible to find the record boundaries are still returned.
func WithNoValidation() WarcRecordOption {
	return newFuncWarcRecordOption(func(o *warcRecordOptions) {
		o.errSyntax = ErrIgnore
		o.errSpec = ErrIgnore
		o.errUnknownRecordType = ErrIgnore
		o.errBlock = ErrIgnore
	})
}
