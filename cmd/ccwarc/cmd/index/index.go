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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nlnwa/ccwarc"
	"github.com/nlnwa/ccwarc/cmd/ccwarc/internal/cmdutil"
	"github.com/nlnwa/ccwarc/pkg/cdx"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type conf struct {
	fileNames []string
	fullPath  bool
	watch     bool
	settle    time.Duration
}

func NewCommand() *cobra.Command {
	c := &conf{}
	var cmd = &cobra.Command{
		Use:   "index FILE|DIR...",
		Short: "Write a CDXJ index of the given WARC files",
		Long: `Write one CDXJ line for every response, resource and revisit record with a target URI.

With --watch the arguments are directories. Every WARC file found there gets an index file
next to it (name + '.cdxj'), and new or modified files are indexed when they have not
changed for --settle. Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("missing file name")
			}
			if c.watch {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return cdx.NewAutoIndexer(c.settle, cmdutil.RecordOptions()...).Run(ctx, args...)
			}
			files, err := cmdutil.ListFiles(args)
			if err != nil {
				return err
			}
			c.fileNames = files
			return runE(c, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&c.fullPath, "full-path", false, "use the full path as file name in the index")
	cmd.Flags().BoolVar(&c.watch, "watch", false, "watch directories and write an index file per WARC file")
	cmd.Flags().DurationVar(&c.settle, "settle", 10*time.Second, "time a watched file must stay unchanged before it is indexed")

	return cmd
}

func runE(c *conf, out io.Writer) error {
	w := bufio.NewWriter(out)
	defer w.Flush()

	writer := cdx.NewCdxJ(w)
	for _, fileName := range c.fileNames {
		if err := readFile(c, writer, fileName); err != nil {
			return err
		}
	}
	return w.Flush()
}

func readFile(c *conf, writer cdx.CdxWriter, fileName string) error {
	wf, err := ccwarc.NewWarcFileReader(fileName, 0, cmdutil.RecordOptions()...)
	if err != nil {
		return err
	}
	defer wf.Close()

	name := fileName
	if !c.fullPath {
		name = filepath.Base(fileName)
	}

	count := 0
	for {
		record, _, err := wf.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%s: record num %d: %w", fileName, count+1, err)
		}
		count++

		if err := writer.Write(record, name); err != nil {
			return err
		}
	}
	log.Infof("%s: indexed %d records", fileName, count)
	return nil
}
