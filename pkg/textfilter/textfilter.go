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

// Package textfilter selects Japanese prose from decoded crawl text.
//
// A text is kept when language detection on its first runes says Japanese and at least one of its
// sentences is long and contains a comma. That excludes most navigation menus, lists and boilerplate.
package textfilter

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
	"github.com/zeebo/xxh3"
)

const (
	DefaultPrefixRunes   = 16
	DefaultSentenceRunes = 100
	DefaultSampleRunes   = 4000

	sentenceEnd = "。"
	comma       = "、"
)

type options struct {
	prefixRunes   int
	sentenceRunes int
	sampleRunes   int
	dedupe        bool
}

// Option configures a Filter.
type Option interface {
	apply(*options)
}

type funcOption struct {
	f func(*options)
}

func (fo *funcOption) apply(o *options) {
	fo.f(o)
}

func newFuncOption(f func(*options)) *funcOption {
	return &funcOption{f: f}
}

// WithPrefixRunes sets how many leading runes are used for language detection.
// defaults to 16
func WithPrefixRunes(n int) Option {
	return newFuncOption(func(o *options) {
		o.prefixRunes = n
	})
}

// WithSentenceRunes sets how many runes a sentence must exceed to count as long.
// defaults to 100
func WithSentenceRunes(n int) Option {
	return newFuncOption(func(o *options) {
		o.sentenceRunes = n
	})
}

// WithSampleRunes sets the length of samples returned by Filter.Sample.
// defaults to 4000
func WithSampleRunes(n int) Option {
	return newFuncOption(func(o *options) {
		o.sampleRunes = n
	})
}

// WithDedupe makes the filter reject texts it has already kept once.
func WithDedupe(dedupe bool) Option {
	return newFuncOption(func(o *options) {
		o.dedupe = dedupe
	})
}

// Filter is safe for concurrent use.
type Filter struct {
	opts options

	mu   sync.Mutex
	seen map[uint64]struct{}

	detectTime atomic.Int64
	duplicates atomic.Int64
}

func New(opts ...Option) *Filter {
	o := options{
		prefixRunes:   DefaultPrefixRunes,
		sentenceRunes: DefaultSentenceRunes,
		sampleRunes:   DefaultSampleRunes,
	}
	for _, opt := range opts {
		opt.apply(&o)
	}
	f := &Filter{opts: o}
	if o.dedupe {
		f.seen = make(map[uint64]struct{})
	}
	return f
}

// Keep reports whether text should be kept.
func (f *Filter) Keep(text string) bool {
	start := time.Now()
	jpn := IsJapanese(text, f.opts.prefixRunes)
	f.detectTime.Add(int64(time.Since(start)))
	if !jpn {
		return false
	}
	if !HasLongSentence(text, f.opts.sentenceRunes) {
		return false
	}
	if f.seen != nil {
		key := xxh3.HashString(text)
		f.mu.Lock()
		_, dup := f.seen[key]
		f.seen[key] = struct{}{}
		f.mu.Unlock()
		if dup {
			f.duplicates.Add(1)
			return false
		}
	}
	return true
}

// Sample returns the first runes of text as configured with WithSampleRunes.
func (f *Filter) Sample(text string) string {
	return Sample(text, f.opts.sampleRunes)
}

// DetectTime returns the total time spent in language detection.
func (f *Filter) DetectTime() time.Duration {
	return time.Duration(f.detectTime.Load())
}

// Duplicates returns the number of texts rejected as already seen.
func (f *Filter) Duplicates() int64 {
	return f.duplicates.Load()
}

// IsJapanese runs language detection on the first prefixRunes runes of text.
func IsJapanese(text string, prefixRunes int) bool {
	prefix := Sample(text, prefixRunes)
	if prefix == "" {
		return false
	}
	return whatlanggo.Detect(prefix).Lang == whatlanggo.Jpn
}

// HasLongSentence reports whether text has a sentence, delimited by '。', of more than minRunes runes which
// contains '、'. Sentences are trimmed of white space before counting.
func HasLongSentence(text string, minRunes int) bool {
	for _, sentence := range strings.Split(text, sentenceEnd) {
		sentence = strings.TrimSpace(sentence)
		if utf8.RuneCountInString(sentence) > minRunes && strings.Contains(sentence, comma) {
			return true
		}
	}
	return false
}

// Sample returns the first n runes of text. Invalid UTF-8 bytes count as one rune each.
func Sample(text string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for count := 0; i < len(text) && count < n; count++ {
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return text[:i]
}
