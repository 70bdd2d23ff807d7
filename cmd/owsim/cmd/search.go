// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	devices      int
	thermometers int
	seed         int64
	alarm        bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Enumerate simulated slaves with the ROM search",
	Long: `Attach simulated slaves to a simulated bus and enumerate them with the
standard 1-wire search algorithm.

Examples:
  owsim search --devices 4
  owsim search --devices 2 --seed 7 -v
  owsim search --devices 0 --ds18b20 3 --alarm`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVarP(&devices, "devices", "n", 2, "number of simulated slaves")
	searchCmd.Flags().IntVar(&thermometers, "ds18b20", 0, "number of emulated DS18B20")
	searchCmd.Flags().Int64Var(&seed, "seed", 1, "seed of the slave identities")
	searchCmd.Flags().BoolVar(&alarm, "alarm", false, "conditional search")
}

func runSearch(cmd *cobra.Command, args []string) error {
	if devices+thermometers < 1 {
		return fmt.Errorf("at least one device is needed")
	}
	s, err := newSim(cmd.Context(), devices, thermometers, seed, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer s.Close()

	addrs, err := s.m.Search(alarm)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d devices found in %s of bus time\n", len(addrs), s.w.Now())
	for _, a := range addrs {
		fmt.Fprintf(out, "  %#016x\n", uint64(a))
	}
	if verbose {
		s.printStats(out)
	}
	return nil
}
