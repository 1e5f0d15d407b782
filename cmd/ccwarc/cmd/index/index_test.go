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

package index

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(recordType, uri, payload string) string {
	return fmt.Sprintf("WARC/1.0\r\n"+
		"WARC-Type: %s\r\n"+
		"WARC-Record-ID: <urn:uuid:e9a0cecc-0221-11e7-adb1-0242ac120008>\r\n"+
		"WARC-Target-URI: %s\r\n"+
		"WARC-Date: 2021-04-10T12:13:14Z\r\n"+
		"Content-Type: application/http; msgtype=%s\r\n"+
		"Content-Length: %d\r\n"+
		"\r\n%s\r\n\r\n", recordType, uri, recordType, len(payload), payload)
}

func TestIndex(t *testing.T) {
	assert := assert.New(t)

	req := record("request", "http://www.example.com/", "GET / HTTP/1.1\r\nHost: www.example.com\r\n\r\n")
	resp := record("response", "http://www.example.com/", "HTTP/1.1 200 OK\r\nContent-Type: text/html\r\n\r\n<html></html>")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.warc"), []byte(req+resp), 0o644))

	out := &bytes.Buffer{}
	cmd := NewCommand()
	cmd.SetOut(out)
	cmd.SetArgs([]string{dir})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 1)
	assert.True(strings.HasPrefix(lines[0], "com,example)/ 20210410121314 {"), lines[0])
	assert.Contains(lines[0], `"filename":"test.warc"`)
	assert.Contains(lines[0], fmt.Sprintf(`"offset":%d`, len(req)))
	assert.Contains(lines[0], `"status":"200"`)
	assert.Contains(lines[0], `"mime":"text/html"`)
}
