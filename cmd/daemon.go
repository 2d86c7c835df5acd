/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"log"
	"log/slog"

	"github.com/rotblauer/ftmsd/daemon/webd"
	"github.com/rotblauer/ftmsd/params"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var optHTTPAddr string

// daemonCmd represents the serve command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the telemetry/web daemon",
	Long: `Serves the telemetry ingest and status API, and retries any
workout files left on disk by earlier failed uploads before
accepting new sessions.`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		slog.Info("daemon.Run")

		tracker, flat, journal, closer := buildTracker()
		defer closer()

		// Orphaned files first: a file on disk with no remote
		// activity is a workout that still needs uploading.
		go func() {
			if err := tracker.UploadPending(context.Background()); err != nil {
				slog.Warn("Startup retry pass stopped", "error", err)
			}
		}()

		config := params.DefaultWebDaemonConfig()
		config.DataDir = optDatadir
		config.Address = optHTTPAddr
		server := webd.NewWebDaemon(config, tracker, flat, journal)
		if err := server.Run(); err != nil {
			log.Fatalln(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	defaults := params.DefaultWebDaemonConfig()
	pFlags := daemonCmd.PersistentFlags()
	pFlags.AddFlagSet(&pflag.FlagSet{})
	pFlags.StringVar(&optHTTPAddr, "address", defaults.Address, "HTTP address to listen on")
}
