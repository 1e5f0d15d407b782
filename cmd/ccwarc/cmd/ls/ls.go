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

package ls

import (
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/nlnwa/ccwarc"
	"github.com/nlnwa/ccwarc/cmd/ccwarc/internal/cmdutil"
	"github.com/nlnwa/ccwarc/internal/timestamp"
	"github.com/spf13/cobra"
)

type conf struct {
	offset      int64
	recordCount int
	json        bool
	id          []string
	fileNames   []string
}

func NewCommand() *cobra.Command {
	c := &conf{}
	var cmd = &cobra.Command{
		Use:   "ls FILE...",
		Short: "List the records of WARC files",
		Long: `List one line per record with offset, record id, type and target URI.

With --json every record is printed as a JSON object on its own line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("missing file name")
			}
			c.fileNames = args
			return runE(c, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().Int64VarP(&c.offset, "offset", "o", 0, "record offset")
	cmd.Flags().IntVarP(&c.recordCount, "record-count", "c", 0, "The maximum number of records to show")
	cmd.Flags().BoolVar(&c.json, "json", false, "print records as JSON lines")
	cmd.Flags().StringArrayVar(&c.id, "id", []string{}, "only show records with this id")

	return cmd
}

type entry struct {
	File        string `json:"file"`
	Offset      int64  `json:"offset"`
	ID          string `json:"id"`
	Type        string `json:"type"`
	Date        string `json:"date,omitempty"`
	TargetURI   string `json:"uri,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Length      int64  `json:"length"`
	Warnings    int    `json:"warnings,omitempty"`
}

func runE(c *conf, out, errOut io.Writer) error {
	var errs ccwarc.MultiErr
	for _, fileName := range c.fileNames {
		count, err := readFile(c, fileName, out)
		_, _ = fmt.Fprintf(errOut, "%s: Count: %d\n", fileName, count)
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func readFile(c *conf, fileName string, out io.Writer) (int, error) {
	wf, err := ccwarc.NewWarcFileReader(fileName, c.offset, cmdutil.RecordOptions()...)
	if err != nil {
		return 0, err
	}
	defer wf.Close()

	count := 0
	enc := json.NewEncoder(out)
	for {
		record, offset, err := wf.Next()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("%s: record num %d: %w", fileName, count+1, err)
		}
		if len(c.id) > 0 && !cmdutil.Contains(c.id, record.WarcHeader().Get(ccwarc.WarcRecordID)) && !cmdutil.Contains(c.id, record.RecordID()) {
			continue
		}
		count++

		if c.json {
			e := entry{
				File:        fileName,
				Offset:      offset,
				ID:          record.RecordID(),
				Type:        record.Type().String(),
				TargetURI:   record.TargetURI(),
				ContentType: record.ContentType(),
				Length:      record.ContentLength(),
				Warnings:    len(*record.Validation()),
			}
			if date, err := record.Date(); err == nil {
				e.Date = timestamp.UTCW3cIso8601(date)
			}
			if err := enc.Encode(e); err != nil {
				return count, err
			}
		} else {
			_, _ = fmt.Fprintf(out, "%v\t%s\t%s\t%s\n", offset, record.RecordID(), record.Type(), record.TargetURI())
		}

		if c.recordCount > 0 && count >= c.recordCount {
			return count, nil
		}
	}
}
