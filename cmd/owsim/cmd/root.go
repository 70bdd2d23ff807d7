// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package cmd contains the owsim commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "owsim",
	Short: "1-wire slave protocol engine simulator",
	Long: `owsim runs the 1-wire slave protocol engine against a simulated master,
or on a real GPIO pin.

Examples:
  owsim search --devices 3              # enumerate 3 simulated slaves
  owsim run read.ow --wave              # run a master script, plot the bus
  owsim run read.ow --png bus.png       # render the bus to an image
  owsim gpio --pin GPIO4 --id 0x...    # be a slave on GPIO4`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print the engine traces")
}
