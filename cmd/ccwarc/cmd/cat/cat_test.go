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

package cat

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func response(uri string, payload string) string {
	return fmt.Sprintf("WARC/1.0\r\n"+
		"WARC-Type: response\r\n"+
		"WARC-Record-ID: <urn:uuid:e9a0cecc-0221-11e7-adb1-0242ac120008>\r\n"+
		"WARC-Target-URI: %s\r\n"+
		"Content-Type: application/http; msgtype=response\r\n"+
		"Content-Length: %d\r\n"+
		"\r\n%s\r\n\r\n", uri, len(payload), payload)
}

func TestCat(t *testing.T) {
	color.NoColor = true
	assert := assert.New(t)

	sjis := string([]byte{0x93, 0xfa, 0x96, 0x7b, 0x8c, 0xea})
	first := response("http://example.jp/", "HTTP/1.1 200 OK\r\nContent-Type: text/plain; charset=Shift_JIS\r\n\r\n"+sjis)
	second := response("dns:example.jp", "20210410121314\r\nexample.jp. 300 IN A 1.2.3.4\r\n")
	path := filepath.Join(t.TempDir(), "test.warc")
	require.NoError(t, os.WriteFile(path, []byte(first+second), 0o644))

	out := &bytes.Buffer{}
	cmd := NewCommand()
	cmd.SetOut(out)
	cmd.SetArgs([]string{path})
	require.NoError(t, cmd.Execute())

	s := out.String()
	assert.Contains(s, "Offset: 0\nWARC/1.0\nWARC-Type: response\n")
	assert.Contains(s, "HTTP/1.1 200 OK\nContent-Type: text/plain; charset=Shift_JIS\n\n日本語\n")
	assert.Contains(s, fmt.Sprintf("Offset: %d\n", len(first)))
	assert.Contains(s, "example.jp. 300 IN A 1.2.3.4")

	out.Reset()
	cmd = NewCommand()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--offset", fmt.Sprint(len(first)), "--header", path})
	require.NoError(t, cmd.Execute())
	assert.Contains(out.String(), "WARC-Target-URI: dns:example.jp\n")
	assert.NotContains(out.String(), "1.2.3.4")
	assert.NotContains(out.String(), "http://example.jp/")

	out.Reset()
	cmd = NewCommand()
	cmd.SetOut(out)
	cmd.SetArgs([]string{fmt.Sprintf("warcfile:%s:%d", path, len(first))})
	require.NoError(t, cmd.Execute())
	assert.Contains(out.String(), fmt.Sprintf("Offset: %d\n", len(first)))
	assert.Contains(out.String(), "example.jp. 300 IN A 1.2.3.4")
	assert.NotContains(out.String(), "http://example.jp/")
}
