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
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/montanaflynn/stats"
	"github.com/rotblauer/ftmsd/params"
	"github.com/rotblauer/ftmsd/smooth"
	"github.com/rotblauer/ftmsd/stream"
	"github.com/rotblauer/ftmsd/tcx"
	"github.com/rotblauer/ftmsd/types/activity"
	"github.com/rotblauer/ftmsd/types/telemetry"
	"github.com/spf13/cobra"
)

var optEncodeActivity string

// encodeCmd represents the encode command
var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Smooth and encode raw samples from stdin to TCX on stdout",
	Long: `Offline debugging for the smoothing pipeline and encoder.
Reads raw samples as JSON lines (time, distance_m, speed_kmh,
calories) and writes the finished TCX document to stdout.`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)

		ctx := context.Background()
		samples := stream.Collect(ctx, stream.NDJSON[telemetry.RawSample](ctx, os.Stdin))
		if len(samples) == 0 {
			log.Fatalln("no samples on stdin")
		}

		smoothed := smooth.Smooth(samples, params.DefaultSmoothConfig)

		speeds := []float64{}
		for _, s := range samples {
			if s.SpeedKmh > 0 {
				speeds = append(speeds, s.SpeedKmh)
			}
		}
		avg, _ := stats.Mean(stats.Float64Data(speeds))

		last := samples[len(samples)-1]
		summary := tcx.Summary{
			StartTime:     samples[0].Time,
			TotalSeconds:  last.Time.Sub(samples[0].Time).Seconds(),
			TotalMeters:   last.DistanceM,
			TotalCalories: last.Calories,
			AvgSpeedKmh:   avg,
		}

		content, err := tcx.Encode(smoothed, summary, activity.FromString(optEncodeActivity))
		if err != nil {
			log.Fatalln(err)
		}
		fmt.Print(content)
		slog.Info("Encoded", "raw", len(samples), "smoothed", len(smoothed))
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	encodeCmd.Flags().StringVar(&optEncodeActivity, "activity", "Workout", "activity type for the Sport mapping")
}
