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

package cdx

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nlnwa/ccwarc"
	"github.com/prometheus/tsdb/fileutil"
	log "github.com/sirupsen/logrus"
)

// IndexSuffix is appended to the name of a WARC file to get the name of its index.
const IndexSuffix = ".cdxj"

// IndexFile writes the CDXJ index of the WARC file at path to path + IndexSuffix. The index is written to a
// '.open' file first and renamed when complete.
func IndexFile(path string, opts ...ccwarc.WarcRecordOption) (count int, err error) {
	wf, err := ccwarc.NewWarcFileReader(path, 0, opts...)
	if err != nil {
		return 0, err
	}
	defer wf.Close()

	openName := path + IndexSuffix + ".open"
	f, err := os.Create(openName)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(openName)
		}
	}()

	w := bufio.NewWriter(f)
	writer := NewCdxJ(w)
	name := filepath.Base(path)
	for {
		record, _, err := wf.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("%s: record num %d: %w", path, count+1, err)
		}
		count++
		if err := writer.Write(record, name); err != nil {
			return count, err
		}
	}
	if err = w.Flush(); err != nil {
		return count, err
	}
	if err = f.Close(); err != nil {
		return count, err
	}
	return count, fileutil.Rename(openName, path+IndexSuffix)
}

// AutoIndexer watches directories and indexes WARC files when they have stopped changing.
type AutoIndexer struct {
	settle time.Duration
	opts   []ccwarc.WarcRecordOption

	// OnIndexed, if set, is called after each indexing attempt.
	OnIndexed func(path string, count int, err error)

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string
}

// NewAutoIndexer creates an AutoIndexer that waits until a file has been quiet for settle before indexing it.
func NewAutoIndexer(settle time.Duration, opts ...ccwarc.WarcRecordOption) *AutoIndexer {
	return &AutoIndexer{
		settle:  settle,
		opts:    opts,
		pending: make(map[string]*time.Timer),
		ready:   make(chan string),
	}
}

// Run indexes every WARC file below dirs that lacks an up to date index, then watches dirs and their
// subdirectories for new or modified files until ctx is done.
func (a *AutoIndexer) Run(ctx context.Context, dirs ...string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, dir := range dirs {
		if err := a.addDir(ctx, watcher, dir); err != nil {
			return err
		}
	}

	defer a.stopTimers()
	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-a.ready:
			a.index(path)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := a.addDir(ctx, watcher, event.Name); err != nil {
						log.Errorf("could not watch new directory '%s': %v", event.Name, err)
					}
					continue
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 && ccwarc.IsWarcFileName(event.Name) {
				log.Debugf("modified file: %v", event.Name)
				a.queue(ctx, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnf("watcher error: %v", err)
		}
	}
}

// addDir watches dir and its subdirectories and indexes the WARC files found there.
func (a *AutoIndexer) addDir(ctx context.Context, watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		if ccwarc.IsWarcFileName(path) && !hasFreshIndex(path) {
			a.index(path)
		}
		return nil
	})
}

// queue schedules path for indexing, postponing it as long as the file keeps changing.
func (a *AutoIndexer) queue(ctx context.Context, path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok := a.pending[path]; ok {
		t.Reset(a.settle)
		return
	}
	a.pending[path] = time.AfterFunc(a.settle, func() {
		a.mu.Lock()
		delete(a.pending, path)
		a.mu.Unlock()
		select {
		case a.ready <- path:
		case <-ctx.Done():
		}
	})
}

func (a *AutoIndexer) stopTimers() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for path, t := range a.pending {
		t.Stop()
		delete(a.pending, path)
	}
}

func (a *AutoIndexer) index(path string) {
	start := time.Now()
	count, err := IndexFile(path, a.opts...)
	if err != nil {
		log.Errorf("indexing %s failed: %v", path, err)
	} else {
		log.Infof("%s: indexed %d records in %v", path, count, time.Since(start))
	}
	if a.OnIndexed != nil {
		a.OnIndexed(path, count, err)
	}
}

func hasFreshIndex(path string) bool {
	warc, err := os.Stat(path)
	if err != nil {
		return false
	}
	idx, err := os.Stat(path + IndexSuffix)
	return err == nil && !idx.ModTime().Before(warc.ModTime())
}
