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

	"github.com/rotblauer/ftmsd/params"
	"github.com/rotblauer/ftmsd/strava"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var optSetupCode string

// setupCmd represents the setup command
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "One-time Strava authorization",
	Long: `Exchanges an OAuth authorization code for tokens and writes them
to the config file. Run once without --code to print the
authorization URL, visit it, then run again with the code from
the redirect.

The client id and secret come from the config file or the
FTMSD_STRAVA_CLIENT_ID / FTMSD_STRAVA_CLIENT_SECRET environment.`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)

		clientID := viper.GetString(params.ConfStravaClientID)
		clientSecret := viper.GetString(params.ConfStravaClientSecret)
		if clientID == "" || clientSecret == "" {
			log.Fatalln("strava client id and secret are required")
		}

		if optSetupCode == "" {
			fmt.Printf(`Visit, authorize, and copy the code from the redirect URL:

  https://www.strava.com/oauth/authorize?client_id=%s&response_type=code&redirect_uri=http://localhost&scope=activity:write,profile:read_all

Then re-run:

  ftmsd setup --code <code>
`, clientID)
			return
		}

		uploader := strava.NewUploader(nil, clientID, clientSecret, "", nil)
		defer uploader.Close()

		ctx := context.Background()
		tokens, err := uploader.ExchangeCode(ctx, optSetupCode)
		if err != nil {
			log.Fatalln(err)
		}

		viper.Set(params.ConfStravaClientID, clientID)
		viper.Set(params.ConfStravaClientSecret, clientSecret)
		viper.Set(params.ConfStravaRefreshToken, tokens.RefreshToken)
		if err := os.MkdirAll(optDatadir, 0770); err != nil {
			log.Fatalln(err)
		}
		if err := viper.WriteConfigAs(optConfigFile); err != nil {
			log.Fatalln(err)
		}
		slog.Info("Wrote Strava credential", "config", optConfigFile)

		// Gear is optional; list it so the user can pick a gear_id.
		authed := strava.NewUploader(nil, clientID, clientSecret, tokens.RefreshToken, nil)
		defer authed.Close()
		gear, err := authed.AthleteGear(ctx)
		if err != nil {
			slog.Warn("Failed to list gear, skipping", "error", err)
			return
		}
		if len(gear) == 0 {
			fmt.Println("No gear on the athlete profile.")
			return
		}
		fmt.Printf("Gear (set %s to attach one to uploads):\n", params.ConfStravaGearID)
		for _, g := range gear {
			fmt.Printf("  %-12s %s\n", g.ID, g.Name)
		}
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
	setupCmd.Flags().StringVar(&optSetupCode, "code", "", "OAuth authorization code from the redirect URL")
}
