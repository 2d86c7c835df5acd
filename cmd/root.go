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
	"os"
	"path/filepath"

	"github.com/rotblauer/ftmsd/params"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var optConfigFile string
var optDatadir string
var optVerbosity int

var rootCmd = &cobra.Command{
	Use:   "ftmsd",
	Short: "Fitness machine session daemon",
	Long: `ftmsd watches a stream of fitness-machine telemetry,
detects workout sessions, encodes them as TCX, and uploads
them to Strava.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	pFlags := rootCmd.PersistentFlags()
	pFlags.StringVar(&optConfigFile, "config", "", "config file (default <datadir>/config.yaml)")
	pFlags.StringVar(&optDatadir, "datadir", params.DefaultDatadirRoot, "data directory")
	pFlags.IntVarP(&optVerbosity, "verbosity", "v", 0, "log verbosity (slog levels; 0=info, -4=debug)")
}

// initConfig reads in the config file. The file holds the Strava
// credential and machine options, and is written back whenever the
// refresh token rotates.
func initConfig() {
	if optConfigFile == "" {
		optConfigFile = filepath.Join(optDatadir, "config.yaml")
	}
	viper.SetConfigFile(optConfigFile)
	viper.SetEnvPrefix("FTMSD")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		slog.Debug("Using config file", "file", viper.ConfigFileUsed())
	}
}

func setDefaultSlog(cmd *cobra.Command, args []string) {
	slog.SetLogLoggerLevel(slog.Level(optVerbosity))
}
