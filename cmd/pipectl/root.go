// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gogama/httpipe/config"
	"github.com/gogama/httpipe/internal/logger"
	"github.com/gogama/httpipe/internal/version"
)

// app carries the state shared by the commands of one invocation.
type app struct {
	configFile string
	opts       *config.Options
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "pipectl",
		Short: "Send HTTP requests through a retrying policy pipeline.",
		Long: `pipectl sends HTTP requests through an httpipe pipeline.

Settings come from the YAML file named by --config, overridden by
HTTPIPE_* environment variables (for example HTTPIPE_MAX_RETRIES=5),
overridden in turn by command-line flags.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "path to the YAML configuration file")

	flags := root.PersistentFlags()
	flags.String("transport", "", "transport to use: http or raw")
	flags.Int("max-retries", 0, "number of retries after the first attempt")
	flags.String("attempt-timeout", "", "timeout of each attempt, for example 10s")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.Bool("log-requests", false, "log every attempt")
	flags.String("record", "", "record exchanges to this YAML file")
	flags.String("playback", "", "replay exchanges from this YAML file instead of using the network")

	root.AddCommand(newSendCmd(a), newVersionCmd())

	return root
}

// loadConfig loads the configuration and applies flag overrides. It
// also sets the process-wide log level.
func (a *app) loadConfig(flags *pflag.FlagSet) error {
	opts, err := config.Load(a.configFile)
	if err != nil {
		return err
	}

	if err = bindFlagsToOptions(flags, opts); err != nil {
		return err
	}

	if err = opts.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.SetLevel(opts.ParsedLogLevel)
	a.opts = opts

	return nil
}

func bindFlagsToOptions(flags *pflag.FlagSet, opts *config.Options) error {
	var err error

	if flag := flags.Lookup("transport"); flag != nil && flag.Changed {
		opts.Transport, err = flags.GetString("transport")
	}
	if flag := flags.Lookup("max-retries"); err == nil && flag != nil && flag.Changed {
		opts.MaxRetries, err = flags.GetInt("max-retries")
	}
	if flag := flags.Lookup("attempt-timeout"); err == nil && flag != nil && flag.Changed {
		opts.AttemptTimeout, err = flags.GetString("attempt-timeout")
	}
	if flag := flags.Lookup("log-level"); err == nil && flag != nil && flag.Changed {
		opts.LogLevel, err = flags.GetString("log-level")
	}
	if flag := flags.Lookup("log-requests"); err == nil && flag != nil && flag.Changed {
		opts.LogRequests, err = flags.GetBool("log-requests")
	}
	if flag := flags.Lookup("record"); err == nil && flag != nil && flag.Changed {
		opts.RecordFile, err = flags.GetString("record")
	}
	if flag := flags.Lookup("playback"); err == nil && flag != nil && flag.Changed {
		opts.PlaybackFile, err = flags.GetString("playback")
	}

	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Full())
		},
	}
}
