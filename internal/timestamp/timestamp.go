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

// Package timestamp converts between WARC-Date values and the 14 digit timestamps used by CDX indexes.
package timestamp

import (
	"time"
)

const (
	layout14   = "20060102150405"
	layoutW3c  = "2006-01-02T15:04:05Z"
	layoutWarc = time.RFC3339Nano
)

// To14 converts a WARC-Date like '2020-01-05T10:44:25Z' to '20200105104425'.
func To14(s string) (string, error) {
	t, err := time.Parse(layoutWarc, s)
	if err != nil {
		return "", err
	}
	return UTC14(t), nil
}

// From14ToTime parses a 14 digit timestamp as UTC.
func From14ToTime(s string) (time.Time, error) {
	return time.Parse(layout14, s)
}

func UTC(t time.Time) time.Time {
	return t.In(time.UTC)
}

func UTC14(t time.Time) string {
	return UTC(t).Format(layout14)
}

// UTCW3cIso8601 formats t with second precision as required by WARC/1.0.
func UTCW3cIso8601(t time.Time) string {
	return UTC(t).Format(layoutW3c)
}
