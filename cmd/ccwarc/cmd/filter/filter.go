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

package filter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/nlnwa/ccwarc"
	"github.com/nlnwa/ccwarc/cmd/ccwarc/internal/cmdutil"
	"github.com/nlnwa/ccwarc/internal"
	"github.com/nlnwa/ccwarc/internal/timestamp"
	"github.com/nlnwa/ccwarc/pkg/charset"
	"github.com/nlnwa/ccwarc/pkg/textfilter"
	"github.com/prometheus/tsdb/fileutil"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	openFileSuffix = ".open"
	sampleHeader   = "--- Sample from %{file}s record %{record}d %{uri}s ---\n"
	sampleFooter   = "--- End sample ---\n\n"
)

type conf struct {
	workers       int
	progress      int
	maxRecords    int
	out           string
	dedupe        bool
	prefixRunes   int
	sentenceRunes int
	sampleRunes   int
	fileNames     []string
}

func NewCommand() *cobra.Command {
	c := &conf{}
	var cmd = &cobra.Command{
		Use:   "filter FILE|DIR...",
		Short: "Extract Japanese prose from crawl files",
		Long: `Read the text of every conversion, response and resource record and keep texts
detected as Japanese which contain at least one long sentence with a comma.

A sample of every kept text is written to the output file. The file is written
with an .open suffix which is removed when all input files are processed.
The output file name may contain the placeholder %{ts}s, which is replaced by
the start time as a 14 digit timestamp.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("missing file or directory name")
			}
			files, err := cmdutil.ListFiles(args)
			if err != nil {
				return err
			}
			c.fileNames = files
			if c.workers < 1 {
				c.workers = 1
			}
			return runE(c, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&c.workers, "workers", "w", runtime.NumCPU(), "number of files processed in parallel")
	cmd.Flags().IntVar(&c.progress, "progress", 1000, "log progress every n records, 0 to disable")
	cmd.Flags().IntVar(&c.maxRecords, "max-records", 0, "maximum number of records read per file, 0 for no limit")
	cmd.Flags().StringVarP(&c.out, "out", "o", "raw_samples.txt", "output file for samples")
	cmd.Flags().BoolVar(&c.dedupe, "dedupe", false, "skip texts which have already been kept")
	cmd.Flags().IntVar(&c.prefixRunes, "detect-prefix", textfilter.DefaultPrefixRunes, "number of characters used for language detection")
	cmd.Flags().IntVar(&c.sentenceRunes, "sentence-length", textfilter.DefaultSentenceRunes, "minimum length of a long sentence")
	cmd.Flags().IntVar(&c.sampleRunes, "sample-length", textfilter.DefaultSampleRunes, "number of characters written per sample")

	return cmd
}

type fileStats struct {
	fileName    string
	records     int
	kept        int
	elapsed     time.Duration
	decodeTime  time.Duration
	processTime time.Duration
}

func (s *fileStats) String() string {
	return fmt.Sprintf("%s: processed %d records in %v, kept %d. decode %v (%.1f%%), filter %v (%.1f%%)",
		s.fileName, s.records, s.elapsed.Round(time.Millisecond), s.kept,
		s.decodeTime.Round(time.Microsecond), percent(s.decodeTime, s.elapsed),
		s.processTime.Round(time.Microsecond), percent(s.processTime, s.elapsed))
}

func percent(d, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	return d.Seconds() / total.Seconds() * 100
}

// sampleWriter serializes samples from concurrent workers.
type sampleWriter struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func (s *sampleWriter) write(fileName string, recordNum int, uri, sample string) error {
	header := internal.Sprintt(sampleHeader, map[string]any{
		"file":   fileName,
		"record": recordNum,
		"uri":    uri,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.WriteString(header); err != nil {
		return err
	}
	if _, err := s.w.WriteString(sample); err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	_, err := s.w.WriteString(sampleFooter)
	return err
}

type result struct {
	stats *fileStats
	err   error
}

func runE(c *conf, out io.Writer) error {
	start := time.Now()
	outName := internal.Sprintt(c.out, map[string]any{"ts": timestamp.UTC14(start)})
	f, err := os.Create(outName + openFileSuffix)
	if err != nil {
		return err
	}
	sw := &sampleWriter{w: bufio.NewWriter(f)}

	textFilter := textfilter.New(
		textfilter.WithPrefixRunes(c.prefixRunes),
		textfilter.WithSentenceRunes(c.sentenceRunes),
		textfilter.WithSampleRunes(c.sampleRunes),
		textfilter.WithDedupe(c.dedupe),
	)

	jobs := make(chan string)
	results := make(chan result)
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for fileName := range jobs {
				stats, err := processFile(c, textFilter, sw, fileName)
				results <- result{stats, err}
			}
		}()
	}
	go func() {
		for _, fileName := range c.fileNames {
			jobs <- fileName
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	var errs ccwarc.MultiErr
	var records, kept int
	for res := range results {
		if res.err != nil {
			log.Error(res.err)
			errs = append(errs, res.err)
		}
		if res.stats != nil {
			records += res.stats.records
			kept += res.stats.kept
			_, _ = fmt.Fprintln(out, res.stats)
		}
	}

	if err := sw.w.Flush(); err != nil {
		errs = append(errs, err)
	}
	if err := f.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := fileutil.Rename(outName+openFileSuffix, outName); err != nil {
		errs = append(errs, err)
	}

	elapsed := time.Since(start)
	_, _ = fmt.Fprintf(out, "Processed %d files, %d records in %v, kept %d. detect %v (%.1f%% of worker time)\n",
		len(c.fileNames), records, elapsed.Round(time.Millisecond), kept,
		textFilter.DetectTime().Round(time.Microsecond), percent(textFilter.DetectTime(), elapsed*time.Duration(c.workers)))
	if c.dedupe {
		_, _ = fmt.Fprintf(out, "Skipped %d duplicates\n", textFilter.Duplicates())
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func processFile(c *conf, textFilter *textfilter.Filter, sw *sampleWriter, fileName string) (*fileStats, error) {
	log.Infof("--- Processing %s ---", fileName)
	stats := &fileStats{fileName: fileName}
	start := time.Now()
	defer func() { stats.elapsed = time.Since(start) }()

	wf, err := ccwarc.NewWarcFileReader(fileName, 0, cmdutil.RecordOptions()...)
	if err != nil {
		return nil, err
	}
	defer wf.Close()

	for {
		if c.maxRecords > 0 && stats.records >= c.maxRecords {
			log.Infof("%s: record limit %d reached, stopping", fileName, c.maxRecords)
			return stats, nil
		}
		record, offset, err := wf.Next()
		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("error reading record in %s at offset %d: %w", fileName, offset, err)
		}
		stats.records++
		if err := record.Validation().Err(); err != nil {
			log.Debugf("%s: record at offset %d: %v", fileName, offset, err)
		}
		if c.progress > 0 && stats.records%c.progress == 0 {
			log.Infof("%s: %d records processed (%v)", fileName, stats.records, time.Since(start).Round(time.Millisecond))
		}

		switch record.Type() {
		case ccwarc.Conversion, ccwarc.Response, ccwarc.Resource:
		default:
			continue
		}

		decodeStart := time.Now()
		text, ok := recordText(record)
		stats.decodeTime += time.Since(decodeStart)
		if !ok {
			continue
		}

		processStart := time.Now()
		keep := textFilter.Keep(text)
		if keep {
			stats.kept++
			err = sw.write(fileName, stats.records, record.TargetURI(), textFilter.Sample(text))
		}
		stats.processTime += time.Since(processStart)
		if err != nil {
			return stats, err
		}
	}
}

// recordText returns the text of the HTTP body if the record holds an HTTP response, otherwise the text of the
// whole payload.
func recordText(record *ccwarc.Record) (string, bool) {
	env, ok, err := record.HttpEnvelope()
	if err != nil {
		log.Debugf("skipping record %s: %v", record.RecordID(), err)
		return "", false
	}
	if ok {
		if env.StatusCode() != 200 {
			return "", false
		}
		text, err := env.Text(charset.Decoder)
		if err != nil {
			log.Debugf("skipping record %s: %v", record.RecordID(), err)
			return "", false
		}
		return text, true
	}
	text, _ := charset.Decode(record.Payload(), "")
	return text, true
}
