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

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/nlnwa/ccwarc/cmd/ccwarc/cmd/cat"
	"github.com/nlnwa/ccwarc/cmd/ccwarc/cmd/filter"
	"github.com/nlnwa/ccwarc/cmd/ccwarc/cmd/index"
	"github.com/nlnwa/ccwarc/cmd/ccwarc/cmd/ls"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type conf struct {
	cfgFile string
}

// NewCommand returns a new cobra.Command implementing the root command for ccwarc
func NewCommand() *cobra.Command {
	c := &conf{}
	cmd := &cobra.Command{
		Use:   "ccwarc",
		Short: "Read WARC, WET and WAT files from Common Crawl",
		Long: `ccwarc reads WARC files as published by Common Crawl.

It lists and prints records, creates CDXJ indexes and filters Japanese text
out of crawl output.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if viper.GetBool("strict") && viper.GetBool("lenient") {
				return errors.New("--strict and --lenient are mutually exclusive")
			}
			level, err := log.ParseLevel(viper.GetString("log-level"))
			if err != nil {
				return err
			}
			log.SetLevel(level)
			log.SetOutput(cmd.ErrOrStderr())
			return nil
		},
	}

	cobra.OnInitialize(func() { c.initConfig() })

	// Flags
	cmd.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default is $HOME/.ccwarc.yaml)")
	cmd.PersistentFlags().String("log-level", "info", "log level, one of: panic, fatal, error, warn, info, debug, trace")
	cmd.PersistentFlags().Bool("strict", false, "fail on every kind of error, including field validation")
	cmd.PersistentFlags().Bool("lenient", false, "tolerate broken framing and record warnings")
	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		panic(err)
	}

	// Subcommands
	cmd.AddCommand(ls.NewCommand())
	cmd.AddCommand(cat.NewCommand())
	cmd.AddCommand(index.NewCommand())
	cmd.AddCommand(filter.NewCommand())

	return cmd
}

// initConfig reads in config file and ENV variables if set.
func (c *conf) initConfig() {
	if c.cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(c.cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// Search config in home directory with name ".ccwarc" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".ccwarc")
	}

	viper.SetEnvPrefix("ccwarc")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.Debugf("Using config file: %s", viper.ConfigFileUsed())
	}
}
