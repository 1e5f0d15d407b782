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

// Package loader loads single records addressed by storage references of the form 'warcfile:<name>:<offset>'.
package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nlnwa/ccwarc"
	log "github.com/sirupsen/logrus"
)

const storageRefScheme = "warcfile"

// StorageRef formats the storage reference of the record at offset in fileName.
func StorageRef(fileName string, offset int64) string {
	return storageRefScheme + ":" + fileName + ":" + strconv.FormatInt(offset, 10)
}

// IsStorageRef reports whether s looks like a storage reference.
func IsStorageRef(s string) bool {
	return strings.HasPrefix(s, storageRefScheme+":")
}

type StorageLoader interface {
	Load(ctx context.Context, storageRef string) (record *ccwarc.Record, err error)
}

type FileStorageLoader struct {
	FilePathResolver func(fileName string) (filePath string, err error)
	RecordOptions    []ccwarc.WarcRecordOption
}

// DirResolver resolves file names relative to dir.
func DirResolver(dir string) func(string) (string, error) {
	return func(fileName string) (string, error) {
		if filepath.IsAbs(fileName) {
			return fileName, nil
		}
		return filepath.Join(dir, fileName), nil
	}
}

func (f *FileStorageLoader) Load(ctx context.Context, storageRef string) (record *ccwarc.Record, err error) {
	filePath, offset, err := f.ParseStorageRef(storageRef)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log.Debugf("loading record from file: %s, offset: %v", filePath, offset)

	wf, err := ccwarc.NewWarcFileReader(filePath, offset, f.RecordOptions...)
	if err != nil {
		return nil, err
	}
	defer wf.Close()

	record, _, err = wf.Next()
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", storageRef, err)
	}
	return record, nil
}

// ParseStorageRef splits a storage reference into file path and offset. The offset is the part after the last colon,
// so file names may contain colons.
func (f *FileStorageLoader) ParseStorageRef(storageRef string) (filePath string, offset int64, err error) {
	rest, ok := strings.CutPrefix(storageRef, storageRefScheme+":")
	i := strings.LastIndexByte(rest, ':')
	if !ok || i <= 0 {
		return "", 0, fmt.Errorf("storage ref '%s' can't be handled by FileStorageLoader", storageRef)
	}
	filePath = rest[:i]
	offset, err = strconv.ParseInt(rest[i+1:], 10, 64)
	if err != nil || offset < 0 {
		return "", 0, fmt.Errorf("storage ref '%s' has no valid offset", storageRef)
	}

	if f.FilePathResolver != nil {
		if filePath, err = f.FilePathResolver(filePath); err != nil {
			return "", 0, err
		}
	}
	return filePath, offset, nil
}
