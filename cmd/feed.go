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
	"log/slog"
	"os"
	"time"

	"github.com/rotblauer/ftmsd/common"
	"github.com/rotblauer/ftmsd/stream"
	"github.com/rotblauer/ftmsd/types/telemetry"
	"github.com/spf13/cobra"
)

// feedCmd represents the feed command
var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Feed machine telemetry from stdin",
	Long: `Reads telemetry events as JSON lines from stdin and runs them
through session detection, exactly as live events would be.
EOF counts as a device disconnect: an active recording is
force-finished and saved for upload on next start.

Example:

  ftmsd feed < treadmill-session.ndjson
`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		slog.Info("feed.Run")

		tracker, _, _, closer := buildTracker()
		defer closer()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			<-common.Interrupted()
			cancel()
		}()

		dedupe := telemetry.NewDedupeLRUFunc()
		in := stream.NDJSON[telemetry.Event](ctx, os.Stdin)
		fresh := stream.Filter(ctx, dedupe, in)
		n := 0
		stream.Sink(ctx, func(e telemetry.Event) {
			if e.Time.IsZero() {
				e.Time = time.Now()
			}
			tracker.OnEvent(&e)
			n++
		}, fresh)

		tracker.OnDisconnect()
		slog.Info("Feed done", "events", n)
	},
}

func init() {
	rootCmd.AddCommand(feedCmd)
}
