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

// Package cmdutil holds helpers shared by the ccwarc subcommands.
package cmdutil

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"unicode/utf8"

	"github.com/nlnwa/ccwarc"
	"github.com/spf13/viper"
)

// RecordOptions returns the record options selected by the global --strict and --lenient flags.
func RecordOptions() []ccwarc.WarcRecordOption {
	switch {
	case viper.GetBool("strict"):
		return []ccwarc.WarcRecordOption{ccwarc.WithStrictValidation()}
	case viper.GetBool("lenient"):
		return []ccwarc.WarcRecordOption{ccwarc.WithLenientValidation()}
	default:
		return nil
	}
}

// ListFiles expands directories in args to the WARC files they contain. Files named explicitly are kept
// regardless of their name. The result is sorted within each directory.
func ListFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		var found []string
		err = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && ccwarc.IsWarcFileName(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		slices.Sort(found)
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no WARC files found in %v", args)
	}
	return files, nil
}

// CropString shortens s to at most n runes, marking the cut with '...'.
func CropString(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= 3 {
		return "..."[:max(n, 0)]
	}
	i, count := 0, 0
	for i = range s {
		if count == n-3 {
			break
		}
		count++
	}
	return s[:i] + "..."
}

func Contains(s []string, e string) bool {
	return slices.Contains(s, e)
}
