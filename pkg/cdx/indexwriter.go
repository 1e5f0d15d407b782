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
	"io"

	"github.com/nlnwa/ccwarc"
	log "github.com/sirupsen/logrus"
)

type CdxWriter interface {
	Write(wr *ccwarc.Record, fileName string) error
}

// CdxJ writes CDXJ lines for captures: response, resource and revisit records.
type CdxJ struct {
	w io.Writer
}

func NewCdxJ(w io.Writer) *CdxJ {
	return &CdxJ{w: w}
}

func (c *CdxJ) Write(wr *ccwarc.Record, fileName string) error {
	switch wr.Type() {
	case ccwarc.Response, ccwarc.Resource, ccwarc.Revisit:
	default:
		return nil
	}
	if wr.TargetURI() == "" {
		return nil
	}

	env, ok, err := wr.HttpEnvelope()
	if err != nil {
		log.Debugf("indexing %s without http envelope: %v", wr.RecordID(), err)
	}
	if !ok {
		env = nil
	}
	return NewRecord(wr, env, fileName).Write(c.w)
}
