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

package cmdutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCropString(t *testing.T) {
	tests := []struct {
		name string
		s    string
		n    int
		want string
	}{
		{"short", "abc", 10, "abc"},
		{"exact", "abcde", 5, "abcde"},
		{"cropped", "abcdefgh", 5, "ab..."},
		{"multibyte", "日本語のテキスト", 6, "日本語..."},
		{"tiny", "abcdefgh", 2, ".."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CropString(tt.s, tt.n))
		})
	}
}

func TestListFiles(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	for _, name := range []string{"b.warc.gz", "a.warc.wet.gz", "notes.txt", "sub/c.warc"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}

	files, err := ListFiles([]string{dir})
	assert.NoError(err)
	assert.Equal([]string{
		filepath.Join(dir, "a.warc.wet.gz"),
		filepath.Join(dir, "b.warc.gz"),
		filepath.Join(dir, "sub", "c.warc"),
	}, files)

	files, err = ListFiles([]string{filepath.Join(dir, "notes.txt")})
	assert.NoError(err)
	assert.Len(files, 1)

	_, err = ListFiles([]string{filepath.Join(dir, "missing")})
	assert.Error(err)

	_, err = ListFiles([]string{filepath.Join(dir, "sub", "..", "sub", "empty")})
	assert.Error(err)
}

func TestRecordOptions(t *testing.T) {
	defer viper.Reset()

	assert.Empty(t, RecordOptions())
	viper.Set("lenient", true)
	assert.Len(t, RecordOptions(), 1)
	viper.Set("strict", true)
	assert.Len(t, RecordOptions(), 1)
}
