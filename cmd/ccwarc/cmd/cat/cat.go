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
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/nlnwa/ccwarc"
	"github.com/nlnwa/ccwarc/cmd/ccwarc/internal/cmdutil"
	"github.com/nlnwa/ccwarc/pkg/charset"
	"github.com/nlnwa/ccwarc/pkg/loader"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type conf struct {
	offset      int64
	recordCount int
	headerOnly  bool
	maxBody     int
	id          []string
	fileName    string
}

var (
	nameColor   = color.New(color.FgCyan)
	statusColor = color.New(color.FgYellow, color.Bold)
	warnColor   = color.New(color.FgRed)
)

func NewCommand() *cobra.Command {
	c := &conf{}
	var cmd = &cobra.Command{
		Use:   "cat FILE|STORAGE_REF",
		Short: "Print records of a WARC file",
		Long: `Print the WARC header of each record. For records holding an HTTP response the
status line, the HTTP header and the body decoded to UTF-8 are printed as well.

A storage reference like 'warcfile:CC-MAIN-20210410-00000.warc.gz:1234', as found in the
ref field of the index, prints the single record it points to.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("missing file name")
			}
			c.fileName = args[0]
			if loader.IsStorageRef(c.fileName) {
				return loadE(cmd.Context(), c, cmd.OutOrStdout())
			}
			if c.offset >= 0 && c.recordCount == 0 {
				c.recordCount = 1
			}
			if c.offset < 0 {
				c.offset = 0
			}
			return runE(c, cmd.OutOrStdout())
		},
	}

	cmd.Flags().Int64VarP(&c.offset, "offset", "o", -1, "record offset")
	cmd.Flags().IntVarP(&c.recordCount, "record-count", "c", 0, "The maximum number of records to show")
	cmd.Flags().BoolVar(&c.headerOnly, "header", false, "show headers only")
	cmd.Flags().IntVar(&c.maxBody, "max-body", 4000, "crop body text to this many characters, 0 for no limit")
	cmd.Flags().StringArrayVar(&c.id, "id", []string{}, "only show records with this id")

	return cmd
}

func runE(c *conf, out io.Writer) error {
	wf, err := ccwarc.NewWarcFileReader(c.fileName, c.offset, cmdutil.RecordOptions()...)
	if err != nil {
		return err
	}
	defer wf.Close()

	count := 0
	for {
		record, offset, err := wf.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("record num %d: %w", count+1, err)
		}
		if len(c.id) > 0 && !cmdutil.Contains(c.id, record.RecordID()) {
			continue
		}
		count++

		printRecord(c, out, offset, record)

		if c.recordCount > 0 && count >= c.recordCount {
			break
		}
	}
	log.Debugf("Count: %d", count)
	return nil
}

func loadE(ctx context.Context, c *conf, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	l := &loader.FileStorageLoader{RecordOptions: cmdutil.RecordOptions()}
	_, offset, err := l.ParseStorageRef(c.fileName)
	if err != nil {
		return err
	}
	record, err := l.Load(ctx, c.fileName)
	if err != nil {
		return err
	}
	printRecord(c, out, offset, record)
	return nil
}

func printRecord(c *conf, out io.Writer, offset int64, record *ccwarc.Record) {
	_, _ = fmt.Fprintf(out, "Offset: %d\n", offset)
	_, _ = fmt.Fprintf(out, "%s\n", record.Version())
	printFields(out, record.WarcHeader())
	for _, w := range *record.Validation() {
		_, _ = warnColor.Fprintf(out, "Warning: %v\n", w)
	}
	_, _ = fmt.Fprintln(out)

	env, ok, err := record.HttpEnvelope()
	if err != nil {
		_, _ = warnColor.Fprintf(out, "Broken HTTP envelope: %v\n\n", err)
	}
	if !ok {
		if !c.headerOnly {
			text, _ := charset.Decode(record.Payload(), "")
			printBody(c, out, text)
		}
		return
	}

	_, _ = statusColor.Fprintln(out, env.StatusLine())
	printFields(out, env.Header())
	_, _ = fmt.Fprintln(out)
	if c.headerOnly {
		return
	}
	text, err := env.Text(charset.Decoder)
	if err != nil {
		_, _ = warnColor.Fprintf(out, "Could not decode body as %s: %v\n", env.Charset(), err)
		return
	}
	printBody(c, out, text)
}

func printFields(out io.Writer, wf *ccwarc.WarcFields) {
	for name, value := range wf.All() {
		_, _ = nameColor.Fprint(out, name)
		_, _ = fmt.Fprintf(out, ": %s\n", value)
	}
}

func printBody(c *conf, out io.Writer, text string) {
	if c.maxBody > 0 {
		text = cmdutil.CropString(text, c.maxBody)
	}
	_, _ = fmt.Fprintf(out, "%s\n\n", text)
}
