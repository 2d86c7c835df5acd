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
	"log/slog"

	"github.com/rotblauer/ftmsd/params"
	"github.com/rotblauer/ftmsd/session"
	"github.com/rotblauer/ftmsd/store"
	"github.com/rotblauer/ftmsd/strava"
	"github.com/spf13/viper"
)

// buildTracker wires the session tracker from the viper config:
// flat workout storage, the bbolt upload journal, and (when
// credentials are present) the Strava uploader whose rotated refresh
// tokens are written straight back to the config file.
func buildTracker() (*session.Tracker, *store.Flat, *store.Journal, func()) {
	flat := store.NewFlatWithRoot(optDatadir)

	journal, err := store.OpenJournal(optDatadir)
	if err != nil {
		slog.Warn("Failed to open upload journal, continuing without", "error", err)
		journal = nil
	}

	var uploader *strava.Uploader
	clientID := viper.GetString(params.ConfStravaClientID)
	clientSecret := viper.GetString(params.ConfStravaClientSecret)
	refreshToken := viper.GetString(params.ConfStravaRefreshToken)
	if clientID != "" && clientSecret != "" && refreshToken != "" {
		uploader = strava.NewUploader(params.DefaultStravaConfig(),
			clientID, clientSecret, refreshToken,
			func(rotated string) error {
				viper.Set(params.ConfStravaRefreshToken, rotated)
				return viper.WriteConfig()
			})
	} else {
		slog.Warn("Strava credentials not configured, uploads disabled")
	}

	config := &session.TrackerConfig{
		Session:      params.DefaultSessionConfig,
		Smooth:       params.DefaultSmoothConfig,
		MachineType:  viper.GetString(params.ConfMachineType),
		DeviceName:   viper.GetString(params.ConfDeviceName),
		ActivityType: viper.GetString(params.ConfStravaActivityType),
		NameTemplate: viper.GetString(params.ConfStravaNameTemplate),
		HideFromHome: viper.GetBool(params.ConfStravaHideFromHome),
		Private:      viper.GetBool(params.ConfStravaPrivate),
		GearID:       viper.GetString(params.ConfStravaGearID),
	}

	tracker := session.NewTracker(config, flat, journal, uploader)

	closer := func() {
		if uploader != nil {
			if err := uploader.Close(); err != nil {
				slog.Warn("Failed to close uploader", "error", err)
			}
		}
		if journal != nil {
			if err := journal.Close(); err != nil {
				slog.Warn("Failed to close journal", "error", err)
			}
		}
	}
	return tracker, flat, journal, closer
}
