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

package internal

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Sprintt is like fmt.Sprintf, but takes named parameters from a map.
//
//	internal.Sprintt("samples-%{ts}s-%03{n}d.txt", map[string]any{"ts": "20210410121314", "n": 7})
//
// returns 'samples-20210410121314-007.txt'. Placeholders without a parameter are left for fmt to report.
func Sprintt(format string, params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var args []any
	for _, key := range keys {
		placeholder := "{" + key + "}"
		if !strings.Contains(format, placeholder) {
			continue
		}
		args = append(args, params[key])
		format = strings.ReplaceAll(format, placeholder, "["+strconv.Itoa(len(args))+"]")
	}
	return fmt.Sprintf(format, args...)
}
